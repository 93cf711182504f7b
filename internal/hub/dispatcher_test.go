package hub

import (
	"strings"
	"testing"
	"time"

	"channel-hub/internal/storage/database/channel"
)

// collectFrame 等待訂閱端收到下一個幀
func collectFrame(t *testing.T, sub *Subscriber) []byte {
	t.Helper()
	select {
	case frame := <-sub.Frames():
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("等待幀超時")
		return nil
	}
}

func newTestMessageEvent(id string) NewMessageEvent {
	return NewMessageEvent{
		Message: &channel.Message{
			ID:        id,
			ChannelID: "channel_1",
			SenderID:  "user_1",
			Content:   "測試訊息",
		},
	}
}

func TestDispatcherBroadcastReachesAllSubscribers(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r, 16)
	go d.Run()
	defer d.Close()

	subs := make([]*Subscriber, 5)
	for i := range subs {
		subs[i] = NewSubscriber("channel_1", "user", 8)
		if err := r.Register(subs[i]); err != nil {
			t.Fatalf("註冊訂閱端失敗: %v", err)
		}
	}

	d.Broadcast("channel_1", newTestMessageEvent("msg_1"))

	for i, sub := range subs {
		frame := string(collectFrame(t, sub))
		if !strings.Contains(frame, `"msg_1"`) {
			t.Errorf("訂閱端 %d 收到的幀不包含訊息 ID: %s", i, frame)
		}
	}
}

func TestDispatcherPerChannelOrdering(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r, 16)
	go d.Run()
	defer d.Close()

	sub := NewSubscriber("channel_1", "user_1", 8)
	if err := r.Register(sub); err != nil {
		t.Fatalf("註冊訂閱端失敗: %v", err)
	}

	for _, id := range []string{"msg_a", "msg_b", "msg_c"} {
		d.Broadcast("channel_1", newTestMessageEvent(id))
	}

	for _, want := range []string{"msg_a", "msg_b", "msg_c"} {
		frame := string(collectFrame(t, sub))
		if !strings.Contains(frame, want) {
			t.Errorf("幀順序錯誤, 期望 %s, got %s", want, frame)
		}
	}
}

func TestDispatcherChannelIsolation(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r, 16)
	go d.Run()
	defer d.Close()

	subA := NewSubscriber("channel_a", "user_1", 8)
	subB := NewSubscriber("channel_b", "user_2", 8)
	if err := r.Register(subA); err != nil {
		t.Fatalf("註冊訂閱端失敗: %v", err)
	}
	if err := r.Register(subB); err != nil {
		t.Fatalf("註冊訂閱端失敗: %v", err)
	}

	d.Broadcast("channel_a", newTestMessageEvent("msg_1"))

	collectFrame(t, subA)

	select {
	case frame := <-subB.Frames():
		t.Errorf("其他頻道的訂閱端不應該收到事件: %s", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDispatcherPrunesDeadSubscriber(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r, 16)
	go d.Run()
	defer d.Close()

	// 緩衝區只有 1，第二個事件投遞會失敗
	dead := NewSubscriber("channel_1", "user_1", 1)
	healthy := NewSubscriber("channel_1", "user_2", 8)
	if err := r.Register(dead); err != nil {
		t.Fatalf("註冊訂閱端失敗: %v", err)
	}
	if err := r.Register(healthy); err != nil {
		t.Fatalf("註冊訂閱端失敗: %v", err)
	}

	d.Broadcast("channel_1", newTestMessageEvent("msg_1"))
	d.Broadcast("channel_1", newTestMessageEvent("msg_2"))

	// 健康的訂閱端兩個事件都收到
	collectFrame(t, healthy)
	collectFrame(t, healthy)

	// 投遞失敗的訂閱端應該被剔除並關閉
	select {
	case <-dead.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("投遞失敗的訂閱端應該被剔除")
	}

	if _, subscribers := r.Stats(); subscribers != 1 {
		t.Errorf("剔除後應該剩 1 個訂閱端, got %d", subscribers)
	}
}

func TestDispatcherCloseDrainsQueue(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r, 16)
	go d.Run()

	sub := NewSubscriber("channel_1", "user_1", 8)
	if err := r.Register(sub); err != nil {
		t.Fatalf("註冊訂閱端失敗: %v", err)
	}

	d.Broadcast("channel_1", newTestMessageEvent("msg_1"))
	d.Close()

	// 關閉後訂閱端應該已被關閉
	select {
	case <-sub.Done():
	default:
		t.Error("關閉分發器後訂閱端應該已關閉")
	}

	// 關閉後的廣播不應該 panic
	d.Broadcast("channel_1", newTestMessageEvent("msg_2"))
}
