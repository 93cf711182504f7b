package channel

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CreateIndexes 創建數據庫索引以優化查詢性能
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	// 訊息集合索引
	messagesCollection := db.Collection("messages")

	// 1. 頻道 ID + 創建時間複合索引（最重要的索引，頻道訊息頁查詢）
	channelTimeIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "channel_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("channel_time_idx"),
	}

	// 2. 發送者 ID + 創建時間索引
	senderTimeIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "sender_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("sender_time_idx"),
	}

	messageIndexes := []mongo.IndexModel{
		channelTimeIndex,
		senderTimeIndex,
	}

	_, err := messagesCollection.Indexes().CreateMany(ctx, messageIndexes)
	if err != nil {
		return err
	}

	// 表情符號集合索引
	reactionsCollection := db.Collection("reactions")

	// 1. 唯一索引，保證同一用戶對同一訊息的同一表情符號最多一筆
	reactionUniqueIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "message_id", Value: 1},
			{Key: "user_id", Value: 1},
			{Key: "emoji", Value: 1},
		},
		Options: options.Index().SetName("reaction_unique_idx").SetUnique(true),
	}

	// 2. 頻道 ID 索引（頻道刪除時的級聯清除）
	reactionChannelIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "channel_id", Value: 1},
		},
		Options: options.Index().SetName("reaction_channel_idx"),
	}

	reactionIndexes := []mongo.IndexModel{
		reactionUniqueIndex,
		reactionChannelIndex,
	}

	_, err = reactionsCollection.Indexes().CreateMany(ctx, reactionIndexes)
	if err != nil {
		return err
	}

	// 頻道集合索引
	channelsCollection := db.Collection("channels")

	// 1. 群組內頻道名稱唯一索引
	groupNameIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "group_id", Value: 1},
			{Key: "name", Value: 1},
		},
		Options: options.Index().SetName("group_name_idx").SetUnique(true),
	}

	// 2. 頻道類型索引
	channelTypeIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "type", Value: 1},
		},
		Options: options.Index().SetName("channel_type_idx"),
	}

	channelIndexes := []mongo.IndexModel{
		groupNameIndex,
		channelTypeIndex,
	}

	_, err = channelsCollection.Indexes().CreateMany(ctx, channelIndexes)
	if err != nil {
		return err
	}

	// 群組成員集合索引（成員關係查詢）
	membersCollection := db.Collection("group_members")

	memberIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "group_id", Value: 1},
			{Key: "user_id", Value: 1},
		},
		Options: options.Index().SetName("group_member_idx").SetUnique(true),
	}

	_, err = membersCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{memberIndex})
	return err
}
