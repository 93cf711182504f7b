package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter 固定時間窗口的速率限制器，以客戶端 IP 為鍵
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	rate    int           // 每個時間窗口允許的請求數
	window  time.Duration // 時間窗口
}

// clientWindow 單一客戶端的計數窗口
type clientWindow struct {
	requests int
	resetAt  time.Time
	lastSeen time.Time
}

// NewRateLimiter 創建新的速率限制器
// rate: 每個時間窗口允許的請求數
// window: 時間窗口（例如：time.Minute）
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientWindow),
		rate:    rate,
		window:  window,
	}

	// 定期清理閒置客戶端記錄
	go rl.cleanupLoop()

	return rl
}

// Middleware 返回 Gin 中間件
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "請求過於頻繁，請稍後再試",
				"success": false,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// Allow 檢查指定客戶端是否允許再發一個請求
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cw, exists := rl.clients[ip]

	if !exists || now.After(cw.resetAt) {
		rl.clients[ip] = &clientWindow{
			requests: 1,
			resetAt:  now.Add(rl.window),
			lastSeen: now,
		}
		return true
	}

	cw.lastSeen = now
	if cw.requests >= rl.rate {
		return false
	}
	cw.requests++
	return true
}

// cleanupLoop 定期清理超過 10 分鐘無活動的客戶端記錄
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, cw := range rl.clients {
			if now.Sub(cw.lastSeen) > 10*time.Minute {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}
