package channel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"channel-hub/internal/constants"
	"channel-hub/internal/platform/config"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MessageRepository 訊息倉儲接口
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	ListByChannel(ctx context.Context, channelID string, limit int, before *time.Time) ([]*Message, bool, error)
	DeleteByChannel(ctx context.Context, channelID string) (int64, error)
}

// Message 訊息數據模型
// 附件內嵌在訊息文檔中，單次 InsertOne 保證訊息與附件一起落庫
type Message struct {
	ObjectID    bson.ObjectID `bson:"_id" json:"-"`
	ID          string        `json:"id,omitempty" bson:"id" form:"id"`
	ChannelID   string        `bson:"channel_id" json:"channel_id"`
	SenderID    string        `bson:"sender_id" json:"sender_id"`
	SenderName  string        `bson:"sender_name" json:"sender_name"`
	Content     string        `bson:"content" json:"content"`
	Attachments []Attachment  `bson:"attachments,omitempty" json:"attachments,omitempty"`
	CreatedAt   time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updated_at"`

	// 表情符號在讀取時由 reactions 集合解析，不落庫在訊息文檔
	Reactions []*Reaction `bson:"-" json:"reactions,omitempty"`
}

// NewMessage 創建新的 Message 實例
func NewMessage() Message {
	_id := bson.NewObjectID()
	now := time.Now().UTC()
	return Message{ObjectID: _id, ID: _id.Hex(), CreatedAt: now, UpdatedAt: now}
}

// Attachment 附件數據模型
type Attachment struct {
	FileName string `bson:"file_name" json:"file_name"`
	FileURL  string `bson:"file_url" json:"file_url"`
	FileType string `bson:"file_type,omitempty" json:"file_type,omitempty"`
	FileSize int64  `bson:"file_size,omitempty" json:"file_size,omitempty"`
}

// Validate 檢查訊息是否可以發送
// 內容為空白時必須至少帶一個附件
func (m *Message) Validate() error {
	if strings.TrimSpace(m.Content) == "" && len(m.Attachments) == 0 {
		return fmt.Errorf("訊息內容不能為空")
	}

	maxAttachments := constants.DefaultMaxAttachments
	if cfg := config.Get(); cfg != nil && cfg.Limits.Message.MaxAttachments > 0 {
		maxAttachments = cfg.Limits.Message.MaxAttachments
	}
	if len(m.Attachments) > maxAttachments {
		return fmt.Errorf("附件數量超過上限 (%d 個)", maxAttachments)
	}

	for _, a := range m.Attachments {
		if strings.TrimSpace(a.FileName) == "" {
			return fmt.Errorf("附件檔名不能為空")
		}
		if len(a.FileName) > constants.MaxAttachmentFilenameLen {
			return fmt.Errorf("附件檔名超過最大長度限制 (%d 字符)", constants.MaxAttachmentFilenameLen)
		}
		if strings.TrimSpace(a.FileURL) == "" {
			return fmt.Errorf("附件 URL 不能為空")
		}
		if len(a.FileURL) > constants.MaxAttachmentURLLength {
			return fmt.Errorf("附件 URL 超過最大長度限制 (%d 字符)", constants.MaxAttachmentURLLength)
		}
	}

	return nil
}

// MessageStore 訊息存儲實作
type MessageStore struct {
	collection *mongo.Collection
}

// NewMessageStore 創建新的訊息存儲
func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{
		collection: db.Collection("messages"),
	}
}

// Create 創建訊息
func (s *MessageStore) Create(ctx context.Context, message *Message) error {
	if err := message.Validate(); err != nil {
		return err
	}

	_id := bson.NewObjectID()
	message.ObjectID = _id
	message.ID = _id.Hex()
	message.CreatedAt = time.Now()
	message.UpdatedAt = time.Now()

	if message.Attachments == nil {
		message.Attachments = []Attachment{}
	}

	_, err := s.collection.InsertOne(ctx, message)
	return err
}

// GetByID 根據 ID 獲取訊息
func (s *MessageStore) GetByID(ctx context.Context, id string) (*Message, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var message Message
	err = s.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&message)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListByChannel 獲取頻道的訊息頁
// 回傳最近的 limit 筆訊息，按創建時間正序排列（舊訊息在前）
// before 不為 nil 時只取該時間之前的訊息，用於往前翻頁
func (s *MessageStore) ListByChannel(ctx context.Context, channelID string, limit int, before *time.Time) ([]*Message, bool, error) {
	defaultLimit := constants.DefaultBacklogPageSize
	maxLimit := constants.MaxBacklogPageSize
	if cfg := config.Get(); cfg != nil {
		if cfg.Limits.Pagination.BacklogPageSize > 0 {
			defaultLimit = cfg.Limits.Pagination.BacklogPageSize
		}
		if cfg.Limits.Pagination.MaxPageSize > 0 {
			maxLimit = cfg.Limits.Pagination.MaxPageSize
		}
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	filter := bson.M{"channel_id": channelID}
	if before != nil {
		filter["created_at"] = bson.M{"$lt": *before}
	}

	opts := options.Find()
	opts.SetLimit(int64(limit + 1)) // 多取一個用於判斷是否有更多
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursorResult, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cursorResult.Close(ctx)

	var messages []*Message
	for cursorResult.Next(ctx) {
		var message Message
		if err := cursorResult.Decode(&message); err != nil {
			return nil, false, err
		}
		messages = append(messages, &message)
	}
	if err := cursorResult.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit] // 移除多取的那一個
	}

	// 反轉為正序，舊訊息在前
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, hasMore, nil
}

// DeleteByChannel 刪除頻道下的所有訊息，回傳刪除筆數
func (s *MessageStore) DeleteByChannel(ctx context.Context, channelID string) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"channel_id": channelID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
