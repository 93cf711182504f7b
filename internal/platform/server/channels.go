package server

import (
	"channel-hub/internal/httputil"
	"channel-hub/internal/platform/middleware"
	channelstore "channel-hub/internal/storage/database/channel"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// createChannel 在群組中創建頻道
func (s *Server) createChannel(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		httputil.Unauthorized(c, "未授權訪問")
		return
	}

	groupID := c.Param("group_id")
	if err := middleware.ValidateUserID(groupID); err != nil {
		httputil.BadRequest(c, "群組 ID 格式錯誤")
		return
	}

	var req struct {
		Name  string `json:"name"`
		Topic string `json:"topic"`
		Type  string `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "無效的請求格式")
		return
	}

	if err := middleware.ValidateChannelName(req.Name); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	if req.Type == "" {
		req.Type = channelstore.TypeText
	}
	if !channelstore.IsValidChannelType(req.Type) {
		httputil.BadRequest(c, "頻道類型錯誤")
		return
	}

	// 只有群組管理者可以創建頻道
	role, ok := s.requireMember(c, groupID, userID)
	if !ok {
		return
	}
	if !role.CanManageChannels() {
		httputil.Forbidden(c, "只有群組管理者可以創建頻道")
		return
	}

	ch := &channelstore.Channel{
		GroupID:   groupID,
		Name:      middleware.SanitizeInput(req.Name),
		Topic:     middleware.SanitizeInput(req.Topic),
		Type:      req.Type,
		CreatorID: userID,
	}

	if err := s.channels.Create(c.Request.Context(), ch); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(409, httputil.ErrorMessage("群組內已有同名頻道"))
			return
		}
		httputil.InternalServerError(c, err)
		return
	}

	s.audit.LogChannelCreated(c.Request.Context(), userID, ch.ID, ch.Type)

	c.JSON(200, gin.H{
		"success": true,
		"data":    ch,
	})
}

// listGroupChannels 列出群組下的頻道
func (s *Server) listGroupChannels(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		httputil.Unauthorized(c, "未授權訪問")
		return
	}

	groupID := c.Param("group_id")

	if _, ok := s.requireMember(c, groupID, userID); !ok {
		return
	}

	channels, err := s.channels.ListByGroup(c.Request.Context(), groupID)
	if err != nil {
		httputil.InternalServerError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"success": true,
		"data":    channels,
		"count":   len(channels),
	})
}

// deleteChannel 刪除頻道及其所有訊息與表情符號
func (s *Server) deleteChannel(c *gin.Context) {
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

	role, ok := s.requireMember(c, ch.GroupID, userID)
	if !ok {
		return
	}
	if !role.CanManageChannels() {
		httputil.Forbidden(c, "只有群組管理者可以刪除頻道")
		return
	}

	ctx := c.Request.Context()

	// 級聯刪除頻道下的訊息與表情符號
	if _, err := s.reactions.DeleteByChannel(ctx, channelID); err != nil {
		httputil.InternalServerError(c, err)
		return
	}
	if _, err := s.messages.DeleteByChannel(ctx, channelID); err != nil {
		httputil.InternalServerError(c, err)
		return
	}
	if err := s.channels.Delete(ctx, channelID); err != nil {
		httputil.InternalServerError(c, err)
		return
	}

	s.audit.LogChannelDeleted(ctx, userID, channelID)

	c.JSON(200, httputil.Success("頻道已刪除"))
}
