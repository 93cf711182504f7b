package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// SSEConnectionLimiter SSE 連接限制器
// 限制單個 IP 的併發連接數、重連頻率，以及全局連接總數
type SSEConnectionLimiter struct {
	mu          sync.Mutex
	perIP       map[string]int       // IP -> 當前連接數
	lastConnect map[string]time.Time // IP -> 最後連接時間
	maxPerIP    int
	minInterval time.Duration
	maxTotal    int
	total       int
}

// NewSSEConnectionLimiter 創建 SSE 連接限制器
func NewSSEConnectionLimiter(maxPerIP int, minInterval time.Duration, maxTotal int) *SSEConnectionLimiter {
	l := &SSEConnectionLimiter{
		perIP:       make(map[string]int),
		lastConnect: make(map[string]time.Time),
		maxPerIP:    maxPerIP,
		minInterval: minInterval,
		maxTotal:    maxTotal,
	}

	go l.cleanupLoop()

	return l
}

// Middleware SSE 連接限制中間件
// SSE handler 會阻塞到串流結束，因此在 c.Next() 返回後釋放名額
func (l *SSEConnectionLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !l.acquire(clientIP) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "SSE 連接數已達上限，請稍後再試",
				"success": false,
			})
			c.Abort()
			return
		}
		defer l.release(clientIP)

		c.Next()
	}
}

// acquire 嘗試為此 IP 取得一個連接名額
func (l *SSEConnectionLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal {
		return false
	}
	if l.perIP[ip] >= l.maxPerIP {
		return false
	}
	if last, exists := l.lastConnect[ip]; exists && time.Since(last) < l.minInterval {
		return false
	}

	l.perIP[ip]++
	l.total++
	l.lastConnect[ip] = time.Now()
	return true
}

// release 釋放此 IP 的連接名額
func (l *SSEConnectionLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if count, exists := l.perIP[ip]; exists {
		if count <= 1 {
			delete(l.perIP, ip)
		} else {
			l.perIP[ip]--
		}
		l.total--
	}
}

// cleanupLoop 定期清理過期的最後連接時間記錄
func (l *SSEConnectionLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for ip, last := range l.lastConnect {
			if now.Sub(last) > 10*time.Minute && l.perIP[ip] == 0 {
				delete(l.lastConnect, ip)
			}
		}
		l.mu.Unlock()
	}
}

// Stats 獲取當前連接統計
func (l *SSEConnectionLimiter) Stats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[string]interface{}{
		"total_connections": l.total,
		"unique_ips":        len(l.perIP),
		"max_total":         l.maxTotal,
		"max_per_ip":        l.maxPerIP,
	}
}
