package hub

import (
	"fmt"
	"sync"
	"time"

	"channel-hub/internal/constants"
)

// Subscriber 一條 SSE 連接的訂閱端
type Subscriber struct {
	ID        string
	ChannelID string
	UserID    string
	OpenedAt  time.Time

	frames    chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

// NewSubscriber 創建訂閱端，連接 ID 格式為 channel:user:<unixnano>
func NewSubscriber(channelID, userID string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = constants.SubscriberFrameBuffer
	}
	return &Subscriber{
		ID:        fmt.Sprintf("%s:%s:%d", channelID, userID, time.Now().UnixNano()),
		ChannelID: channelID,
		UserID:    userID,
		OpenedAt:  time.Now(),
		frames:    make(chan []byte, buffer),
		done:      make(chan struct{}),
	}
}

// Frames 待寫出的 SSE 幀
func (s *Subscriber) Frames() <-chan []byte {
	return s.frames
}

// Done 訂閱端被關閉時此通道會關閉
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Close 關閉訂閱端，重複呼叫是安全的
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// send 非阻塞投遞一個幀
// 緩衝區滿或訂閱端已關閉時回傳 false，表示連接已死或跟不上
func (s *Subscriber) send(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.frames <- frame:
		return true
	default:
		return false
	}
}

// Registry 連接註冊表
// 以頻道 ID 分組管理所有在線的 SSE 訂閱端
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[string]*Subscriber
	total    int
}

// NewRegistry 創建連接註冊表
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]map[string]*Subscriber),
	}
}

// Register 註冊訂閱端，連接 ID 重複時返回錯誤
func (r *Registry) Register(sub *Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, exists := r.channels[sub.ChannelID]
	if !exists {
		subs = make(map[string]*Subscriber)
		r.channels[sub.ChannelID] = subs
	}

	if _, exists := subs[sub.ID]; exists {
		return fmt.Errorf("連接 ID 已存在: %s", sub.ID)
	}

	subs[sub.ID] = sub
	r.total++
	return nil
}

// Unregister 移除並關閉訂閱端，重複呼叫是安全的
func (r *Registry) Unregister(channelID, subID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, exists := r.channels[channelID]
	if !exists {
		return
	}

	sub, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	r.total--
	if len(subs) == 0 {
		delete(r.channels, channelID)
	}

	sub.Close()
}

// Snapshot 取得頻道當前訂閱端的副本
// 回傳副本讓呼叫端可以在不持鎖的情況下遍歷
func (r *Registry) Snapshot(channelID string) []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs, exists := r.channels[channelID]
	if !exists {
		return nil
	}

	snapshot := make([]*Subscriber, 0, len(subs))
	for _, sub := range subs {
		snapshot = append(snapshot, sub)
	}
	return snapshot
}

// Stats 當前頻道數與訂閱端總數
func (r *Registry) Stats() (channels int, subscribers int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels), r.total
}

// CloseAll 關閉所有訂閱端，服務關閉時使用
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channelID, subs := range r.channels {
		for _, sub := range subs {
			sub.Close()
		}
		delete(r.channels, channelID)
	}
	r.total = 0
}
