package hub

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryRegisterAndSnapshot(t *testing.T) {
	r := NewRegistry()

	sub := NewSubscriber("channel_1", "user_1", 4)
	if err := r.Register(sub); err != nil {
		t.Fatalf("註冊訂閱端失敗: %v", err)
	}

	snapshot := r.Snapshot("channel_1")
	if len(snapshot) != 1 {
		t.Fatalf("快照應該包含 1 個訂閱端, got %d", len(snapshot))
	}
	if snapshot[0].ID != sub.ID {
		t.Errorf("快照中的訂閱端 ID 不符, got %s", snapshot[0].ID)
	}

	channels, subscribers := r.Stats()
	if channels != 1 || subscribers != 1 {
		t.Errorf("統計應該是 1 頻道 1 訂閱端, got %d/%d", channels, subscribers)
	}
}

func TestRegistryDuplicateID(t *testing.T) {
	r := NewRegistry()

	sub := NewSubscriber("channel_1", "user_1", 4)
	if err := r.Register(sub); err != nil {
		t.Fatalf("註冊訂閱端失敗: %v", err)
	}

	dup := &Subscriber{
		ID:        sub.ID,
		ChannelID: sub.ChannelID,
		UserID:    sub.UserID,
		frames:    make(chan []byte, 1),
		done:      make(chan struct{}),
	}
	if err := r.Register(dup); err == nil {
		t.Error("重複的連接 ID 應該返回錯誤")
	}
}

func TestRegistryUnregisterIdempotent(t *testing.T) {
	r := NewRegistry()

	sub := NewSubscriber("channel_1", "user_1", 4)
	if err := r.Register(sub); err != nil {
		t.Fatalf("註冊訂閱端失敗: %v", err)
	}

	r.Unregister(sub.ChannelID, sub.ID)
	r.Unregister(sub.ChannelID, sub.ID) // 重複移除不應該 panic

	if _, subscribers := r.Stats(); subscribers != 0 {
		t.Errorf("移除後訂閱端總數應該為 0, got %d", subscribers)
	}

	// 訂閱端應該已被關閉
	select {
	case <-sub.Done():
	default:
		t.Error("移除後訂閱端應該已關閉")
	}
}

func TestRegistrySnapshotIsCopy(t *testing.T) {
	r := NewRegistry()

	sub := NewSubscriber("channel_1", "user_1", 4)
	if err := r.Register(sub); err != nil {
		t.Fatalf("註冊訂閱端失敗: %v", err)
	}

	snapshot := r.Snapshot("channel_1")
	r.Unregister(sub.ChannelID, sub.ID)

	// 已取得的快照不受後續移除影響
	if len(snapshot) != 1 {
		t.Errorf("快照應該保持原有內容, got %d", len(snapshot))
	}
}

func TestRegistryChannelIsolation(t *testing.T) {
	r := NewRegistry()

	subA := NewSubscriber("channel_a", "user_1", 4)
	subB := NewSubscriber("channel_b", "user_2", 4)
	if err := r.Register(subA); err != nil {
		t.Fatalf("註冊訂閱端失敗: %v", err)
	}
	if err := r.Register(subB); err != nil {
		t.Fatalf("註冊訂閱端失敗: %v", err)
	}

	if got := r.Snapshot("channel_a"); len(got) != 1 || got[0].ID != subA.ID {
		t.Error("channel_a 的快照不應該包含其他頻道的訂閱端")
	}
	if got := r.Snapshot("channel_c"); got != nil {
		t.Error("不存在的頻道快照應該為 nil")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			channelID := fmt.Sprintf("channel_%d", n%5)
			sub := NewSubscriber(channelID, fmt.Sprintf("user_%d", n), 4)
			if err := r.Register(sub); err != nil {
				t.Errorf("併發註冊失敗: %v", err)
				return
			}
			r.Snapshot(channelID)
			r.Unregister(sub.ChannelID, sub.ID)
		}(i)
	}
	wg.Wait()

	if _, subscribers := r.Stats(); subscribers != 0 {
		t.Errorf("全部移除後訂閱端總數應該為 0, got %d", subscribers)
	}
}

func TestSubscriberSendAfterClose(t *testing.T) {
	sub := NewSubscriber("channel_1", "user_1", 4)
	sub.Close()

	if sub.send([]byte("data: {}\n\n")) {
		t.Error("已關閉的訂閱端投遞應該失敗")
	}
}

func TestSubscriberSendBufferFull(t *testing.T) {
	sub := NewSubscriber("channel_1", "user_1", 2)

	frame := []byte("data: {}\n\n")
	if !sub.send(frame) || !sub.send(frame) {
		t.Fatal("緩衝區未滿時投遞應該成功")
	}
	if sub.send(frame) {
		t.Error("緩衝區滿時投遞應該失敗")
	}
}
