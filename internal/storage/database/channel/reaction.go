package channel

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ReactionRepository 表情符號倉儲接口
type ReactionRepository interface {
	Toggle(ctx context.Context, reaction *Reaction) (added *Reaction, removed *Reaction, err error)
	ListByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]*Reaction, error)
	DeleteByMessage(ctx context.Context, messageID string) (int64, error)
	DeleteByChannel(ctx context.Context, channelID string) (int64, error)
}

// Reaction 表情符號數據模型
// 每筆記錄代表一個用戶對一則訊息的一種表情符號
type Reaction struct {
	ObjectID  bson.ObjectID `bson:"_id" json:"-"`
	ID        string        `json:"id,omitempty" bson:"id" form:"id"`
	MessageID string        `bson:"message_id" json:"message_id"`
	ChannelID string        `bson:"channel_id" json:"channel_id"`
	UserID    string        `bson:"user_id" json:"user_id"`
	UserName  string        `bson:"user_name" json:"user_name"`
	Emoji     string        `bson:"emoji" json:"emoji"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
}

// ReactionStore 表情符號存儲實作
type ReactionStore struct {
	collection *mongo.Collection
}

// NewReactionStore 創建新的表情符號存儲
func NewReactionStore(db *mongo.Database) *ReactionStore {
	return &ReactionStore{
		collection: db.Collection("reactions"),
	}
}

// Toggle 切換表情符號
// 已存在相同 (message_id, user_id, emoji) 的記錄時刪除並回傳 removed，
// 不存在時插入新記錄並回傳 added，單次呼叫只會有其中一種結果。
// 唯一索引保證併發切換時同一組合最多只有一筆記錄，
// 兩個併發的新增若撞上 duplicate key，後到者回傳已存在的那筆。
func (s *ReactionStore) Toggle(ctx context.Context, reaction *Reaction) (*Reaction, *Reaction, error) {
	key := bson.M{
		"message_id": reaction.MessageID,
		"user_id":    reaction.UserID,
		"emoji":      reaction.Emoji,
	}

	// 先嘗試刪除既有記錄
	var existing Reaction
	err := s.collection.FindOneAndDelete(ctx, key).Decode(&existing)
	if err == nil {
		return nil, &existing, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, err
	}

	// 沒有既有記錄，插入新的
	_id := bson.NewObjectID()
	reaction.ObjectID = _id
	reaction.ID = _id.Hex()
	reaction.CreatedAt = time.Now().UTC()

	_, err = s.collection.InsertOne(ctx, reaction)
	if err == nil {
		return reaction, nil, nil
	}

	if mongo.IsDuplicateKeyError(err) {
		// 併發的另一個切換搶先插入了，回傳存活的那筆
		var survivor Reaction
		if findErr := s.collection.FindOne(ctx, key).Decode(&survivor); findErr == nil {
			return &survivor, nil, nil
		}
		return nil, nil, err
	}

	return nil, nil, err
}

// ListByMessageIDs 批量查詢多則訊息的表情符號，按 message_id 分組
func (s *ReactionStore) ListByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]*Reaction, error) {
	result := make(map[string][]*Reaction, len(messageIDs))
	if len(messageIDs) == 0 {
		return result, nil
	}

	cursorResult, err := s.collection.Find(ctx, bson.M{
		"message_id": bson.M{"$in": messageIDs},
	})
	if err != nil {
		return nil, err
	}
	defer cursorResult.Close(ctx)

	for cursorResult.Next(ctx) {
		var reaction Reaction
		if err := cursorResult.Decode(&reaction); err != nil {
			return nil, err
		}
		result[reaction.MessageID] = append(result[reaction.MessageID], &reaction)
	}

	return result, cursorResult.Err()
}

// DeleteByMessage 刪除一則訊息的所有表情符號
func (s *ReactionStore) DeleteByMessage(ctx context.Context, messageID string) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"message_id": messageID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// DeleteByChannel 刪除頻道下的所有表情符號
func (s *ReactionStore) DeleteByChannel(ctx context.Context, channelID string) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"channel_id": channelID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
