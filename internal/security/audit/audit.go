package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"channel-hub/internal/platform/middleware"
)

// AuditService 審計服務
type AuditService struct {
	enabled bool
	logger  *log.Logger
}

// NewAuditService 創建審計服務
func NewAuditService(enabled bool) *AuditService {
	return &AuditService{
		enabled: enabled,
		logger:  log.Default(),
	}
}

// AuditEvent 審計事件
type AuditEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType string                 `json:"event_type"`
	UserID    string                 `json:"user_id"`
	ChannelID string                 `json:"channel_id,omitempty"`
	MessageID string                 `json:"message_id,omitempty"`
	Action    string                 `json:"action"`
	Result    string                 `json:"result"` // success, failure
	Details   map[string]interface{} `json:"details,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
}

// LogChannelCreated 記錄頻道創建
func (a *AuditService) LogChannelCreated(ctx context.Context, userID, channelID, channelType string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "channel_created",
		UserID:    userID,
		ChannelID: channelID,
		Action:    "create_channel",
		Result:    "success",
		Details: map[string]interface{}{
			"channel_type": channelType,
		},
	}

	a.enrichWithMetadata(ctx, &event)
	a.log(event)
}

// LogChannelDeleted 記錄頻道刪除
func (a *AuditService) LogChannelDeleted(ctx context.Context, userID, channelID string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "channel_deleted",
		UserID:    userID,
		ChannelID: channelID,
		Action:    "delete_channel",
		Result:    "success",
	}

	a.enrichWithMetadata(ctx, &event)
	a.log(event)
}

// LogMessageSent 記錄訊息發送
func (a *AuditService) LogMessageSent(ctx context.Context, userID, channelID, messageID string, attachmentCount int) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "message_sent",
		UserID:    userID,
		ChannelID: channelID,
		MessageID: messageID,
		Action:    "send_message",
		Result:    "success",
		Details: map[string]interface{}{
			"attachment_count": attachmentCount,
		},
	}

	a.log(event)
}

// LogReactionToggled 記錄表情符號切換
func (a *AuditService) LogReactionToggled(ctx context.Context, userID, messageID, emoji, outcome string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "reaction_toggled",
		UserID:    userID,
		MessageID: messageID,
		Action:    "toggle_reaction",
		Result:    "success",
		Details: map[string]interface{}{
			"emoji":   emoji,
			"outcome": outcome, // added, removed
		},
	}

	a.log(event)
}

// LogStreamOpened 記錄 SSE 連接建立
func (a *AuditService) LogStreamOpened(ctx context.Context, userID, channelID, connectionID string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "stream_opened",
		UserID:    userID,
		ChannelID: channelID,
		Action:    "open_stream",
		Result:    "success",
		Details: map[string]interface{}{
			"connection_id": connectionID,
		},
	}

	a.enrichWithMetadata(ctx, &event)
	a.log(event)
}

// LogStreamClosed 記錄 SSE 連接關閉
func (a *AuditService) LogStreamClosed(ctx context.Context, userID, channelID, connectionID, reason string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "stream_closed",
		UserID:    userID,
		ChannelID: channelID,
		Action:    "close_stream",
		Result:    "success",
		Details: map[string]interface{}{
			"connection_id": connectionID,
			"reason":        reason,
		},
	}

	a.log(event)
}

// LogAuthenticationFailure 記錄認證失敗
func (a *AuditService) LogAuthenticationFailure(ctx context.Context, userID, reason string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "authentication",
		UserID:    userID,
		Action:    "authenticate",
		Result:    "failure",
		Details: map[string]interface{}{
			"reason": reason,
		},
	}

	a.log(event)
}

// LogAccessDenied 記錄訪問被拒絕
func (a *AuditService) LogAccessDenied(ctx context.Context, userID, channelID, reason string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "access_denied",
		UserID:    userID,
		ChannelID: channelID,
		Action:    "access_resource",
		Result:    "denied",
		Details: map[string]interface{}{
			"reason": reason,
		},
	}

	a.log(event)
}

// LogRateLimitExceeded 記錄速率限制超過
func (a *AuditService) LogRateLimitExceeded(ctx context.Context, ipAddress, endpoint string) {
	if !a.enabled {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "rate_limit",
		Action:    "api_request",
		Result:    "blocked",
		IPAddress: ipAddress,
		Details: map[string]interface{}{
			"endpoint": endpoint,
			"reason":   "rate_limit_exceeded",
		},
	}

	a.log(event)
}

// log 記錄審計事件
func (a *AuditService) log(event AuditEvent) {
	jsonData, err := json.Marshal(event)
	if err != nil {
		a.logger.Printf("[AUDIT-ERROR] Failed to marshal event: %v", err)
		return
	}

	a.logger.Printf("[AUDIT] %s", string(jsonData))
}

// IsEnabled 檢查審計是否啟用
func (a *AuditService) IsEnabled() bool {
	return a.enabled
}

// enrichWithMetadata 從 context 提取請求元數據並補充審計事件
func (a *AuditService) enrichWithMetadata(ctx context.Context, event *AuditEvent) {
	if meta := middleware.GetRequestMetadata(ctx); meta != nil {
		event.IPAddress = meta.IPAddress
		event.UserAgent = meta.UserAgent
	}
}
