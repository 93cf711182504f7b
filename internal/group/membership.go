package group

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Role 群組成員角色
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// CanManageChannels 是否可以管理頻道（創建、刪除、在公告頻道發言）
func (r Role) CanManageChannels() bool {
	return r == RoleOwner || r == RoleAdmin
}

// ErrNotMember 用戶不是群組成員
var ErrNotMember = errors.New("用戶不是群組成員")

// Reader 群組成員關係的只讀接口
// 成員管理由外部的群組服務負責，這裡只查詢
type Reader interface {
	// Membership 查詢用戶在群組中的角色，非成員返回 ErrNotMember
	Membership(ctx context.Context, groupID, userID string) (Role, error)
}

// member 群組成員文檔
type member struct {
	GroupID string `bson:"group_id"`
	UserID  string `bson:"user_id"`
	Role    string `bson:"role"`
}

// MongoReader 以 MongoDB group_members 集合為來源的成員關係查詢
type MongoReader struct {
	db *mongo.Database
}

// NewMongoReader 創建成員關係查詢器
func NewMongoReader(db *mongo.Database) *MongoReader {
	return &MongoReader{db: db}
}

// Membership 查詢用戶在群組中的角色
func (r *MongoReader) Membership(ctx context.Context, groupID, userID string) (Role, error) {
	collection := r.db.Collection("group_members")

	var m member
	err := collection.FindOne(ctx, bson.M{
		"group_id": groupID,
		"user_id":  userID,
	}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("查詢群組成員失敗: %w", err)
	}

	switch Role(m.Role) {
	case RoleOwner, RoleAdmin, RoleMember:
		return Role(m.Role), nil
	default:
		// 未知角色視為一般成員
		return RoleMember, nil
	}
}
