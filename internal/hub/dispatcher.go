package hub

import (
	"sync"

	"channel-hub/internal/constants"
	"channel-hub/internal/platform/logger"
)

// Broadcaster 推送事件到頻道所有在線訂閱端
type Broadcaster interface {
	Broadcast(channelID string, ev Event)
}

// job 一次廣播任務，幀在入隊前就已編碼完成
type job struct {
	channelID string
	frame     []byte
}

// Dispatcher 廣播分發器
// 單一 run loop 依序消化廣播任務，保證同一頻道的事件
// 按發佈順序投遞。投遞是盡力而為：訂閱端緩衝區滿或
// 連接已死時直接剔除，不做重送，離線期間的事件由
// 客戶端重連後透過訊息頁補上。
type Dispatcher struct {
	registry *Registry
	jobs     chan job

	closeOnce sync.Once
	quit      chan struct{}
	stopped   chan struct{}
}

// NewDispatcher 創建廣播分發器
func NewDispatcher(registry *Registry, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = constants.DefaultBroadcastQueueSize
	}
	return &Dispatcher{
		registry: registry,
		jobs:     make(chan job, queueSize),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Broadcast 發佈事件到頻道
// 佇列滿時丟棄並記錄，不阻塞呼叫端的請求處理
func (d *Dispatcher) Broadcast(channelID string, ev Event) {
	frame, err := Frame(ev)
	if err != nil {
		logger.LogErrorf("編碼推送事件失敗: %v", err)
		return
	}

	select {
	case <-d.quit:
		return
	default:
	}

	select {
	case d.jobs <- job{channelID: channelID, frame: frame}:
	default:
		// 推送層是通知流而非持久佇列：佇列滿時整個事件被丟棄，
		// 該頻道所有訂閱端都收不到，客戶端靠訊息頁補齊
		logger.LogWarnf("廣播佇列已滿，丟棄頻道 %s 的事件", channelID)
	}
}

// Run 啟動分發循環，阻塞直到 Close 被呼叫
func (d *Dispatcher) Run() {
	defer close(d.stopped)

	for {
		select {
		case <-d.quit:
			// 清空殘餘任務後退出
			for {
				select {
				case j := <-d.jobs:
					d.dispatch(j)
				default:
					return
				}
			}
		case j := <-d.jobs:
			d.dispatch(j)
		}
	}
}

// dispatch 將一個幀投遞給頻道的所有訂閱端
func (d *Dispatcher) dispatch(j job) {
	subs := d.registry.Snapshot(j.channelID)
	for _, sub := range subs {
		if !sub.send(j.frame) {
			// 投遞失敗的連接視為已死，從註冊表剔除
			d.registry.Unregister(sub.ChannelID, sub.ID)
			logger.LogInfof("訂閱端 %s 投遞失敗，已剔除", sub.ID)
		}
	}
}

// Close 停止分發循環並關閉所有訂閱端
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.quit)
		<-d.stopped
		d.registry.CloseAll()
	})
}
