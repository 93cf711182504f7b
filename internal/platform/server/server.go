package server

import (
	"errors"

	"channel-hub/internal/group"
	"channel-hub/internal/httputil"
	"channel-hub/internal/hub"
	"channel-hub/internal/security/audit"
	channelstore "channel-hub/internal/storage/database/channel"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Server HTTP API 處理器
// 依賴以接口注入，測試時可替換為假實作
type Server struct {
	channels  channelstore.ChannelRepository
	messages  channelstore.MessageRepository
	reactions channelstore.ReactionRepository
	groups    group.Reader
	hub       hub.Broadcaster
	registry  *hub.Registry
	audit     *audit.AuditService
}

// New 創建 API 處理器
func New(
	channels channelstore.ChannelRepository,
	messages channelstore.MessageRepository,
	reactions channelstore.ReactionRepository,
	groups group.Reader,
	broadcaster hub.Broadcaster,
	registry *hub.Registry,
	auditService *audit.AuditService,
) *Server {
	return &Server{
		channels:  channels,
		messages:  messages,
		reactions: reactions,
		groups:    groups,
		hub:       broadcaster,
		registry:  registry,
		audit:     auditService,
	}
}

// loadChannel 讀取頻道，不存在時回應 404
func (s *Server) loadChannel(c *gin.Context, channelID string) (*channelstore.Channel, bool) {
	ch, err := s.channels.GetByID(c.Request.Context(), channelID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httputil.NotFoundError(c, "頻道不存在")
		} else {
			httputil.InternalServerError(c, err)
		}
		return nil, false
	}
	return ch, true
}

// requireMember 確認用戶是頻道所屬群組的成員，回傳其角色
func (s *Server) requireMember(c *gin.Context, groupID, userID string) (group.Role, bool) {
	role, err := s.groups.Membership(c.Request.Context(), groupID, userID)
	if err != nil {
		if errors.Is(err, group.ErrNotMember) {
			s.audit.LogAccessDenied(c.Request.Context(), userID, groupID, "not_group_member")
			httputil.Forbidden(c, "您不是該群組的成員")
		} else {
			httputil.InternalServerError(c, err)
		}
		return "", false
	}
	return role, true
}
