package server

import (
	"errors"

	"channel-hub/internal/httputil"
	"channel-hub/internal/hub"
	"channel-hub/internal/platform/middleware"
	channelstore "channel-hub/internal/storage/database/channel"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// toggleReaction 切換訊息的表情符號
// 同一用戶對同一訊息重複送出相同表情符號時，在新增與移除之間交替
func (s *Server) toggleReaction(c *gin.Context) {
	userID, displayName, ok := middleware.CurrentUser(c)
	if !ok {
		httputil.Unauthorized(c, "未授權訪問")
		return
	}

	messageID := c.Param("message_id")
	if err := middleware.ValidateObjectID(messageID); err != nil {
		httputil.BadRequest(c, "訊息 ID 格式錯誤")
		return
	}

	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "無效的請求格式")
		return
	}

	if err := middleware.ValidateEmoji(req.Emoji); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httputil.NotFoundError(c, "訊息不存在")
		} else {
			httputil.InternalServerError(c, err)
		}
		return
	}

	ch, ok := s.loadChannel(c, message.ChannelID)
	if !ok {
		return
	}

	if _, ok := s.requireMember(c, ch.GroupID, userID); !ok {
		return
	}

	reaction := &channelstore.Reaction{
		MessageID: messageID,
		ChannelID: message.ChannelID,
		UserID:    userID,
		UserName:  displayName,
		Emoji:     req.Emoji,
	}

	added, removed, err := s.reactions.Toggle(ctx, reaction)
	if err != nil {
		httputil.InternalServerError(c, err)
		return
	}

	// 落庫成功後才推送
	var outcome string
	switch {
	case added != nil:
		outcome = "added"
		s.hub.Broadcast(message.ChannelID, hub.ReactionAddedEvent{
			MessageID: messageID,
			Reaction:  added,
		})
	case removed != nil:
		outcome = "removed"
		s.hub.Broadcast(message.ChannelID, hub.ReactionRemovedEvent{
			MessageID:  messageID,
			ReactionID: removed.ID,
			UserID:     removed.UserID,
			Emoji:      removed.Emoji,
		})
	}

	s.audit.LogReactionToggled(ctx, userID, messageID, req.Emoji, outcome)

	var data *channelstore.Reaction
	if added != nil {
		data = added
	} else {
		data = removed
	}

	c.JSON(200, gin.H{
		"success": true,
		"outcome": outcome,
		"data":    data,
	})
}
