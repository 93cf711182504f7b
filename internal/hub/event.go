package hub

import (
	"bytes"
	"encoding/json"
	"time"

	"channel-hub/internal/storage/database/channel"
)

// 事件類型常數，寫入 SSE 幀的 type 欄位
const (
	EventTypeNewMessage      = "new_message"
	EventTypeReactionAdded   = "reaction_added"
	EventTypeReactionRemoved = "reaction_removed"
	EventTypeConnectionTest  = "connection_test"
)

// Event 推送事件
// 四種事件各自實作 eventType，接收端依 type 欄位分流
type Event interface {
	eventType() string
}

// NewMessageEvent 新訊息事件
type NewMessageEvent struct {
	Message *channel.Message `json:"message"`
}

func (NewMessageEvent) eventType() string { return EventTypeNewMessage }

// ReactionAddedEvent 表情符號新增事件
// 頂層帶 message_id，reaction 攜帶完整記錄含反應者名稱
type ReactionAddedEvent struct {
	MessageID string            `json:"message_id"`
	Reaction  *channel.Reaction `json:"reaction"`
}

func (ReactionAddedEvent) eventType() string { return EventTypeReactionAdded }

// ReactionRemovedEvent 表情符號移除事件
// 記錄已刪除，事件只攜帶定位用的識別欄位
type ReactionRemovedEvent struct {
	MessageID  string `json:"message_id"`
	ReactionID string `json:"reaction_id"`
	UserID     string `json:"user_id"`
	Emoji      string `json:"emoji"`
}

func (ReactionRemovedEvent) eventType() string { return EventTypeReactionRemoved }

// ConnectionTestEvent 連接測試事件，SSE 連接建立後立即送出
type ConnectionTestEvent struct {
	ConnectionID string    `json:"connection_id"`
	Timestamp    time.Time `json:"timestamp"`
}

func (ConnectionTestEvent) eventType() string { return EventTypeConnectionTest }

// HeartbeatFrame SSE 心跳幀，注釋行不會觸發客戶端事件
var HeartbeatFrame = []byte(": heartbeat\n\n")

// Frame 將事件編碼為一個完整的 SSE data 幀
func Frame(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}

	// 將 type 欄位插入事件 JSON 物件的開頭
	var buf bytes.Buffer
	buf.Grow(len(body) + 32)
	buf.WriteString(`data: {"type":"`)
	buf.WriteString(ev.eventType())
	buf.WriteByte('"')
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1 : len(body)-1])
	}
	buf.WriteString("}\n\n")

	return buf.Bytes(), nil
}
