package server

import (
	"time"

	"channel-hub/internal/platform/config"
	"channel-hub/internal/platform/health"
	"channel-hub/internal/platform/middleware"

	"github.com/gin-gonic/gin"
)

// securityHeadersMiddleware 添加安全標頭
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 防止點擊劫持
		c.Header("X-Frame-Options", "DENY")

		// 防止 MIME 類型嗅探
		c.Header("X-Content-Type-Options", "nosniff")

		// 啟用 XSS 保護
		c.Header("X-XSS-Protection", "1; mode=block")

		// 內容安全策略
		c.Header("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self'; connect-src 'self'; frame-ancestors 'none';")

		// 推薦政策
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// 權限政策
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		c.Next()
	}
}

// corsMiddleware 安全的 CORS 中間件
// 允許的來源從配置讀取，未配置時只開放本地開發來源
func corsMiddleware() gin.HandlerFunc {
	allowedOrigins := map[string]bool{
		"http://localhost:3000": true, // 開發環境前端
		"http://localhost:8080": true, // 本地測試
		"http://127.0.0.1:8080": true, // 本地測試 (127.0.0.1)
	}
	if cfg := config.Get(); cfg != nil && len(cfg.Server.AllowedOrigins) > 0 {
		allowedOrigins = make(map[string]bool, len(cfg.Server.AllowedOrigins))
		for _, origin := range cfg.Server.AllowedOrigins {
			allowedOrigins[origin] = true
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if allowedOrigins[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400") // 預檢請求緩存 24 小時

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// Router 設定路由
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())

	// 添加請求 ID 中間件（最優先）
	r.Use(middleware.RequestIDMiddleware())

	// 添加安全標頭中間件
	r.Use(securityHeadersMiddleware())

	// 添加請求元數據中間件（提取 IP、User-Agent）
	r.Use(middleware.RequestMetadataMiddleware())

	// 從配置讀取限制參數
	cfg := config.Get()

	// 添加請求大小限制（防止大文件攻擊）
	maxBodySize := int64(10 << 20) // 默認 10MB
	if cfg != nil && cfg.Limits.Request.MaxBodySize > 0 {
		maxBodySize = cfg.Limits.Request.MaxBodySize
	}
	r.Use(middleware.RequestSizeLimiter(maxBodySize))

	// 每類端點各自的速率限制
	defaultPerMin, messagesPerMin, reactionsPerMin, channelsPerMin := 100, 30, 60, 10
	rateLimitingEnabled := false
	if cfg != nil {
		rateLimitingEnabled = cfg.Limits.RateLimiting.Enabled
		if cfg.Limits.RateLimiting.DefaultPerMinute > 0 {
			defaultPerMin = cfg.Limits.RateLimiting.DefaultPerMinute
		}
		if cfg.Limits.RateLimiting.MessagesPerMin > 0 {
			messagesPerMin = cfg.Limits.RateLimiting.MessagesPerMin
		}
		if cfg.Limits.RateLimiting.ReactionsPerMin > 0 {
			reactionsPerMin = cfg.Limits.RateLimiting.ReactionsPerMin
		}
		if cfg.Limits.RateLimiting.ChannelsPerMin > 0 {
			channelsPerMin = cfg.Limits.RateLimiting.ChannelsPerMin
		}
	}

	noLimit := func(c *gin.Context) { c.Next() }
	messageLimiter, reactionLimiter, channelLimiter := gin.HandlerFunc(noLimit), gin.HandlerFunc(noLimit), gin.HandlerFunc(noLimit)
	if rateLimitingEnabled {
		r.Use(middleware.NewRateLimiter(defaultPerMin, time.Minute).Middleware())
		messageLimiter = middleware.NewRateLimiter(messagesPerMin, time.Minute).Middleware()
		reactionLimiter = middleware.NewRateLimiter(reactionsPerMin, time.Minute).Middleware()
		channelLimiter = middleware.NewRateLimiter(channelsPerMin, time.Minute).Middleware()
	}

	// 創建 SSE 連接限制器
	sseMaxPerIP := 3
	sseInterval := 10
	sseMaxTotal := 1000
	if cfg != nil {
		if cfg.Limits.SSE.MaxConnectionsPerIP > 0 {
			sseMaxPerIP = cfg.Limits.SSE.MaxConnectionsPerIP
		}
		if cfg.Limits.SSE.MinConnectionInterval > 0 {
			sseInterval = cfg.Limits.SSE.MinConnectionInterval
		}
		if cfg.Limits.SSE.MaxTotalConnections > 0 {
			sseMaxTotal = cfg.Limits.SSE.MaxTotalConnections
		}
	}
	sseLimiter := middleware.NewSSEConnectionLimiter(sseMaxPerIP, time.Duration(sseInterval)*time.Second, sseMaxTotal)

	// 認證中間件，token 由外部用戶服務簽發
	jwtSecret, issuer := "", ""
	if cfg != nil {
		jwtSecret = cfg.Auth.JWTSecret
		issuer = cfg.Auth.Issuer
	}
	auth := middleware.NewAuthMiddleware(jwtSecret, issuer)

	// health check
	healthHandler := health.NewHealthHandler(s.registry)
	r.GET("/health", healthHandler.HealthCheck)

	api := r.Group("/api/v1", auth.RequireAuth())
	{
		// 頻道管理
		api.POST("/groups/:group_id/channels", channelLimiter, s.createChannel)
		api.GET("/groups/:group_id/channels", s.listGroupChannels)
		api.DELETE("/channels/:channel_id", channelLimiter, s.deleteChannel)

		// 訊息
		api.POST("/channels/:channel_id/messages", messageLimiter, s.sendMessage)
		api.GET("/channels/:channel_id/messages", s.getMessages)

		// 表情符號
		api.POST("/messages/:message_id/reactions", reactionLimiter, s.toggleReaction)

		// SSE endpoint - 應用額外的連接限制
		api.GET("/channels/:channel_id/stream", sseLimiter.Middleware(), s.streamChannel)
	}

	return r
}
