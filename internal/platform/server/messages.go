package server

import (
	"strconv"
	"time"

	"channel-hub/internal/httputil"
	"channel-hub/internal/hub"
	"channel-hub/internal/platform/logger"
	"channel-hub/internal/platform/middleware"
	channelstore "channel-hub/internal/storage/database/channel"

	"github.com/gin-gonic/gin"
)

// sendMessage 發送訊息到頻道
// 先寫入存儲再廣播，確保收到推送的客戶端一定能在訊息頁中讀到同一則訊息
func (s *Server) sendMessage(c *gin.Context) {
	userID, displayName, ok := middleware.CurrentUser(c)
	if !ok {
		httputil.Unauthorized(c, "未授權訪問")
		return
	}

	channelID := c.Param("channel_id")
	if err := middleware.ValidateObjectID(channelID); err != nil {
		httputil.BadRequest(c, "頻道 ID 格式錯誤")
		return
	}

	var req struct {
		Content     string                    `json:"content"`
		Attachments []channelstore.Attachment `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "無效的請求格式")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content, len(req.Attachments) > 0); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	ch, ok := s.loadChannel(c, channelID)
	if !ok {
		return
	}

	role, ok := s.requireMember(c, ch.GroupID, userID)
	if !ok {
		return
	}

	// 語音頻道不承載文字訊息
	if ch.Type == channelstore.TypeVoice {
		httputil.BadRequest(c, "語音頻道不支持發送訊息")
		return
	}

	// 公告頻道只有群組管理者可以發言
	if ch.Type == channelstore.TypeAnnouncement && !role.CanManageChannels() {
		s.audit.LogAccessDenied(c.Request.Context(), userID, channelID, "announcement_post_denied")
		httputil.Forbidden(c, "只有群組管理者可以在公告頻道發言")
		return
	}

	message := &channelstore.Message{
		ChannelID:   channelID,
		SenderID:    userID,
		SenderName:  displayName,
		Content:     middleware.SanitizeInput(req.Content),
		Attachments: req.Attachments,
	}

	ctx := c.Request.Context()
	if err := s.messages.Create(ctx, message); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	if err := s.channels.TouchLastMessage(ctx, channelID, message.CreatedAt); err != nil {
		logger.LogWarnf("更新頻道最後訊息時間失敗: %v", err)
	}

	// 落庫成功後才推送
	s.hub.Broadcast(channelID, hub.NewMessageEvent{Message: message})

	s.audit.LogMessageSent(ctx, userID, channelID, message.ID, len(message.Attachments))

	c.JSON(200, gin.H{
		"success": true,
		"data":    message,
	})
}

// getMessages 獲取頻道的訊息頁
// 回傳最近的訊息，按時間正序排列，附帶各訊息的表情符號
func (s *Server) getMessages(c *gin.Context) {
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

	// 往前翻頁用的時間游標
	var before *time.Time
	if beforeStr := c.Query("before"); beforeStr != "" {
		parsed, err := time.Parse(time.RFC3339, beforeStr)
		if err != nil {
			httputil.BadRequest(c, "before 參數格式錯誤，需為 RFC3339 時間")
			return
		}
		before = &parsed
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			httputil.BadRequest(c, "limit 參數格式錯誤")
			return
		}
		limit = parsed
	}

	ctx := c.Request.Context()
	messages, hasMore, err := s.messages.ListByChannel(ctx, channelID, limit, before)
	if err != nil {
		httputil.InternalServerError(c, err)
		return
	}

	// 批量解析表情符號
	messageIDs := make([]string, len(messages))
	for i, m := range messages {
		messageIDs[i] = m.ID
	}
	reactionsByMessage, err := s.reactions.ListByMessageIDs(ctx, messageIDs)
	if err != nil {
		httputil.InternalServerError(c, err)
		return
	}
	for _, m := range messages {
		m.Reactions = reactionsByMessage[m.ID]
	}

	c.JSON(200, gin.H{
		"success":  true,
		"data":     messages,
		"count":    len(messages),
		"has_more": hasMore,
	})
}
