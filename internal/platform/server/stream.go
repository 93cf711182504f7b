package server

import (
	"time"

	"channel-hub/internal/constants"
	"channel-hub/internal/httputil"
	"channel-hub/internal/hub"
	"channel-hub/internal/platform/config"
	"channel-hub/internal/platform/logger"
	"channel-hub/internal/platform/middleware"

	"github.com/gin-gonic/gin"
)

// streamChannel 使用 SSE 推送頻道事件
// 連接建立後先送出一個心跳幀與 connection_test 事件，之後依序推送
// 頻道內的新訊息與表情符號事件，間隔期以心跳注釋行保活
func (s *Server) streamChannel(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		httputil.Unauthorized(c, "未授權訪問")
		return
	}

	channelID := c.Param("channel_id")
	if err := middleware.ValidateObjectID(channelID); err != nil {
		httputil.BadRequest(c, "頻道 ID 格式錯誤")
		return
	}

	ch, ok := s.loadChannel(c, channelID)
	if !ok {
		return
	}

	if _, ok := s.requireMember(c, ch.GroupID, userID); !ok {
		return
	}

	// 訂閱端緩衝區大小
	buffer := constants.SubscriberFrameBuffer
	cfg := config.Get()
	if cfg != nil && cfg.Limits.SSE.SubscriberBuffer > 0 {
		buffer = cfg.Limits.SSE.SubscriberBuffer
	}

	sub := hub.NewSubscriber(channelID, userID, buffer)
	if err := s.registry.Register(sub); err != nil {
		httputil.InternalServerError(c, err)
		return
	}
	defer func() {
		s.registry.Unregister(sub.ChannelID, sub.ID)
		s.audit.LogStreamClosed(c.Request.Context(), userID, channelID, sub.ID, "disconnected")
	}()

	setupSSEHeaders(c)

	// 立即送出一個心跳幀，讓客戶端快速確認連接是通的
	if !writeFrame(c, hub.HeartbeatFrame) {
		return
	}

	// 連接測試事件，客戶端以此確認連接 ID
	testFrame, err := hub.Frame(hub.ConnectionTestEvent{
		ConnectionID: sub.ID,
		Timestamp:    time.Now(),
	})
	if err != nil {
		logger.LogErrorf("編碼連接測試事件失敗: %v", err)
		return
	}
	if !writeFrame(c, testFrame) {
		return
	}

	s.audit.LogStreamOpened(c.Request.Context(), userID, channelID, sub.ID)
	logger.Info(c.Request.Context(), "SSE 連接建立",
		logger.WithUserID(userID),
		logger.WithChannelID(channelID),
		logger.WithConnectionID(sub.ID),
	)

	handleSSELoop(c, sub)
}

// setupSSEHeaders 設置 SSE headers
func setupSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

// writeFrame 寫出一個 SSE 幀並刷新，失敗時回傳 false
func writeFrame(c *gin.Context, frame []byte) bool {
	if _, err := c.Writer.Write(frame); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}

// handleSSELoop 處理 SSE 循環
func handleSSELoop(c *gin.Context, sub *hub.Subscriber) {
	heartbeatInterval := config.HeartbeatInterval()

	ticker := time.NewTicker(time.Duration(heartbeatInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return

		case <-sub.Done():
			return

		case <-ticker.C:
			if !writeFrame(c, hub.HeartbeatFrame) {
				return
			}

		case frame := <-sub.Frames():
			if !writeFrame(c, frame) {
				return
			}
		}
	}
}
