package client

import (
	"sync"

	"channel-hub/internal/storage/database/channel"
)

// ChannelState 客戶端側的頻道視圖
// 以訊息 ID 去重，推送與訊息頁重疊時同一則訊息只保留一份
type ChannelState struct {
	mu    sync.Mutex
	order []string
	byID  map[string]*channel.Message
}

// NewChannelState 創建頻道視圖
func NewChannelState() *ChannelState {
	return &ChannelState{
		byID: make(map[string]*channel.Message),
	}
}

// LoadBacklog 載入訊息頁，已存在的訊息不會重複
func (s *ChannelState) LoadBacklog(messages []*channel.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range messages {
		if _, exists := s.byID[m.ID]; exists {
			continue
		}
		s.byID[m.ID] = m
		s.order = append(s.order, m.ID)
	}
}

// ApplyNewMessage 套用新訊息事件
// 重複的訊息 ID 會被丟棄，回傳 false
func (s *ChannelState) ApplyNewMessage(m *channel.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[m.ID]; exists {
		return false
	}
	s.byID[m.ID] = m
	s.order = append(s.order, m.ID)
	return true
}

// ApplyReactionAdded 套用表情符號新增事件
// 訊息不在視圖中時丟棄事件，回傳 false
func (s *ChannelState) ApplyReactionAdded(r *channel.Reaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.byID[r.MessageID]
	if !exists {
		return false
	}

	// 同一筆表情符號不重複累計
	for _, existing := range m.Reactions {
		if existing.UserID == r.UserID && existing.Emoji == r.Emoji {
			return true
		}
	}
	m.Reactions = append(m.Reactions, r)
	return true
}

// ApplyReactionRemoved 套用表情符號移除事件
func (s *ChannelState) ApplyReactionRemoved(r *channel.Reaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.byID[r.MessageID]
	if !exists {
		return false
	}

	for i, existing := range m.Reactions {
		if existing.UserID == r.UserID && existing.Emoji == r.Emoji {
			m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
			return true
		}
	}
	return false
}

// Messages 按接收順序回傳訊息副本
func (s *ChannelState) Messages() []*channel.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*channel.Message, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.byID[id])
	}
	return result
}

// Len 當前視圖中的訊息數
func (s *ChannelState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
