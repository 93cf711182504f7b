package constants

// HTTP 請求相關常數
const (
	// 默認值（可被配置覆蓋）
	DefaultMaxRequestBodySize = 10 << 20 // 10MB
	DefaultRequestTimeout     = 30       // 秒
)

// 分頁相關常數
const (
	DefaultBacklogPageSize = 100
	MaxBacklogPageSize     = 100
	MinPageSize            = 1
)

// 頻道相關常數
const (
	DefaultMaxChannelNameLength = 100
	MinChannelNameLength        = 1
	MaxChannelDescriptionLength = 500
)

// 訊息相關常數
const (
	DefaultMaxMessageLength  = 10000
	DefaultMaxAttachments    = 10
	MaxAttachmentFilenameLen = 255
	MaxAttachmentURLLength   = 2048
)

// 推送相關常數
const (
	SubscriberFrameBuffer     = 32
	DefaultBroadcastQueueSize = 256
)

// 表情符號相關常數
const (
	MaxEmojiLength = 32
)

// Rate Limiting 默認值
const (
	DefaultRateLimitPerMinute   = 100
	DefaultMessageRateLimit     = 30
	DefaultReactionRateLimit    = 60
	DefaultChannelRateLimit     = 10
	DefaultSSERateLimit         = 5
	RateLimitCleanupIntervalMin = 10 // 分鐘
)

// SSE 連接相關常數
const (
	DefaultSSEMaxConnectionsPerIP   = 3
	DefaultSSEMaxTotalConnections   = 1000
	DefaultSSEMinConnectionInterval = 10 // 秒
	DefaultSSEHeartbeatInterval     = 15 // 秒
	SSEConnectionCleanupIntervalMin = 10 // 分鐘
)

// 用戶 ID 相關常數
const (
	MaxUserIDLength = 100
)

// MongoDB 查詢相關常數
const (
	DefaultMongoQueryLimit = 20
	MaxMongoQueryLimit     = 100
)
