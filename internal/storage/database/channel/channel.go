package channel

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// 頻道類型常數
const (
	TypeText         = "text"
	TypeVoice        = "voice"
	TypeAnnouncement = "announcement"
)

// IsValidChannelType 檢查頻道類型是否合法
func IsValidChannelType(t string) bool {
	return t == TypeText || t == TypeVoice || t == TypeAnnouncement
}

// ChannelRepository 頻道倉儲接口
type ChannelRepository interface {
	Create(ctx context.Context, ch *Channel) error
	GetByID(ctx context.Context, id string) (*Channel, error)
	ListByGroup(ctx context.Context, groupID string) ([]*Channel, error)
	Update(ctx context.Context, id string, update map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
}

// Channel 頻道數據模型
// ObjectID 是落庫的主鍵，ID 是它的十六進制表示，兩者在寫入時一起賦值
type Channel struct {
	ObjectID      bson.ObjectID `bson:"_id" json:"-"`
	ID            string        `json:"id,omitempty" bson:"id" form:"id"`
	GroupID       string        `bson:"group_id" json:"group_id"`
	Name          string        `bson:"name" json:"name"`
	Topic         string        `bson:"topic,omitempty" json:"topic,omitempty"`
	Type          string        `bson:"type" json:"type"`
	CreatorID     string        `bson:"creator_id" json:"creator_id"`
	CreatedAt     time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updated_at"`
	LastMessageAt time.Time     `bson:"last_message_at" json:"last_message_at"`
}

// NewChannel 創建新的 Channel 實例
func NewChannel() Channel {
	_id := bson.NewObjectID()
	now := time.Now().UTC()
	return Channel{ObjectID: _id, ID: _id.Hex(), CreatedAt: now, UpdatedAt: now, LastMessageAt: now}
}

// ChannelStore 頻道存儲實作
type ChannelStore struct {
	collection *mongo.Collection
}

// NewChannelStore 創建新的頻道存儲
func NewChannelStore(db *mongo.Database) *ChannelStore {
	return &ChannelStore{
		collection: db.Collection("channels"),
	}
}

// Create 創建頻道
// 同一群組內名稱重複時，唯一索引會返回 duplicate key 錯誤
func (s *ChannelStore) Create(ctx context.Context, ch *Channel) error {
	_id := bson.NewObjectID()
	ch.ObjectID = _id
	ch.ID = _id.Hex()
	ch.CreatedAt = time.Now()
	ch.UpdatedAt = time.Now()
	ch.LastMessageAt = time.Now()

	_, err := s.collection.InsertOne(ctx, ch)
	return err
}

// GetByID 根據 ID 獲取頻道
func (s *ChannelStore) GetByID(ctx context.Context, id string) (*Channel, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var ch Channel
	err = s.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&ch)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// ListByGroup 列出群組下的所有頻道
func (s *ChannelStore) ListByGroup(ctx context.Context, groupID string) ([]*Channel, error) {
	opts := options.Find()
	opts.SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursorResult, err := s.collection.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursorResult.Close(ctx)

	channels := []*Channel{}
	for cursorResult.Next(ctx) {
		var ch Channel
		if err := cursorResult.Decode(&ch); err != nil {
			return nil, err
		}
		channels = append(channels, &ch)
	}

	return channels, cursorResult.Err()
}

// Update 更新頻道
func (s *ChannelStore) Update(ctx context.Context, id string, update map[string]interface{}) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	update["updated_at"] = time.Now()
	_, err = s.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": update})
	return err
}

// Delete 刪除頻道
// 頻道下的訊息與表情符號由呼叫端透過對應的存儲一併清除
func (s *ChannelStore) Delete(ctx context.Context, id string) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = s.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	return err
}

// TouchLastMessage 更新頻道最後訊息時間
func (s *ChannelStore) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = s.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set": bson.M{"last_message_at": at, "updated_at": at},
	})
	return err
}
