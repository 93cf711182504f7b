package database

import (
	"context"
	"fmt"

	"channel-hub/internal/platform/config"
	"channel-hub/internal/storage/database/channel"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Repositories 倉儲集合.
type Repositories struct {
	Channel  *channel.ChannelStore
	Message  *channel.MessageStore
	Reaction *channel.ReactionStore
}

// NewRepositories 創建倉儲集合
// 唯一索引是切換語義與頻道名稱唯一性的根基，創建失敗時中斷啟動
func NewRepositories(cfg *config.Config) (*Repositories, error) {
	db := mongoDB
	if db == nil {
		return nil, fmt.Errorf("MongoDB 連接未初始化")
	}

	ctx := context.Background()
	if err := channel.CreateIndexes(ctx, db); err != nil {
		return nil, fmt.Errorf("創建索引失敗: %w", err)
	}

	return &Repositories{
		Channel:  channel.NewChannelStore(db),
		Message:  channel.NewMessageStore(db),
		Reaction: channel.NewReactionStore(db),
	}, nil
}

// 全局變數，用於存儲 MongoDB 連接
var mongoDB *mongo.Database

// SetMongoDB 設置 MongoDB 連接.
func SetMongoDB(db *mongo.Database) {
	mongoDB = db
}
