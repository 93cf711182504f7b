package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"channel-hub/internal/platform/logger"
	"channel-hub/internal/storage/database/channel"
)

// 重連前的固定等待時間
const reconnectDelay = 5 * time.Second

// Envelope 解碼後的推送事件
// reaction_added 攜帶完整 reaction，reaction_removed 只有頂層識別欄位
type Envelope struct {
	Type         string            `json:"type"`
	Message      *channel.Message  `json:"message,omitempty"`
	MessageID    string            `json:"message_id,omitempty"`
	Reaction     *channel.Reaction `json:"reaction,omitempty"`
	ReactionID   string            `json:"reaction_id,omitempty"`
	UserID       string            `json:"user_id,omitempty"`
	Emoji        string            `json:"emoji,omitempty"`
	ConnectionID string            `json:"connection_id,omitempty"`
}

// Session 一個頻道的客戶端會話
// 維護 SSE 連接與本地頻道視圖，連接中斷後固定間隔重連，
// 重連成功時先重拉訊息頁再繼續消費推送，靠訊息 ID 去重
type Session struct {
	baseURL    string
	token      string
	channelID  string
	httpClient *http.Client
	state      *ChannelState

	// OnEvent 每個套用成功的事件都會回調，可為 nil
	OnEvent func(Envelope)
}

// NewSession 創建頻道會話
func NewSession(baseURL, token, channelID string) *Session {
	return &Session{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		channelID:  channelID,
		httpClient: &http.Client{},
		state:      NewChannelState(),
	}
}

// State 本地頻道視圖
func (s *Session) State() *ChannelState {
	return s.state
}

// Run 啟動會話循環，阻塞直到 ctx 取消
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := s.LoadBacklog(ctx); err != nil {
			logger.LogWarnf("載入訊息頁失敗: %v", err)
		}

		if err := s.consumeStream(ctx); err != nil {
			logger.LogWarnf("SSE 連接中斷: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// LoadBacklog 拉取頻道訊息頁並合併進本地視圖
func (s *Session) LoadBacklog(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/v1/channels/%s/messages", s.baseURL, s.channelID)

	var resp struct {
		Success bool               `json:"success"`
		Data    []*channel.Message `json:"data"`
	}
	if err := s.getJSON(ctx, url, &resp); err != nil {
		return err
	}

	s.state.LoadBacklog(resp.Data)
	return nil
}

// SendMessage 發送訊息到頻道
func (s *Session) SendMessage(ctx context.Context, content string, attachments []channel.Attachment) (*channel.Message, error) {
	url := fmt.Sprintf("%s/api/v1/channels/%s/messages", s.baseURL, s.channelID)

	var resp struct {
		Success bool             `json:"success"`
		Data    *channel.Message `json:"data"`
	}
	err := s.postJSON(ctx, url, map[string]interface{}{
		"content":     content,
		"attachments": attachments,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ToggleReaction 切換訊息的表情符號，回傳 added 或 removed
func (s *Session) ToggleReaction(ctx context.Context, messageID, emoji string) (string, error) {
	url := fmt.Sprintf("%s/api/v1/messages/%s/reactions", s.baseURL, messageID)

	var resp struct {
		Success bool   `json:"success"`
		Outcome string `json:"outcome"`
	}
	err := s.postJSON(ctx, url, map[string]interface{}{"emoji": emoji}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Outcome, nil
}

// consumeStream 建立 SSE 連接並消費事件，連接結束時返回
func (s *Session) consumeStream(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/v1/channels/%s/stream", s.baseURL, s.channelID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("SSE 連接失敗: status %d", resp.StatusCode)
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimRight(line, "\r\n")

		// 注釋行是心跳，跳過
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		s.handleFrame([]byte(strings.TrimPrefix(line, "data: ")))
	}
}

// handleFrame 解碼並套用一個事件幀
func (s *Session) handleFrame(payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		logger.LogWarnf("解碼推送事件失敗: %v", err)
		return
	}

	applied := true
	switch env.Type {
	case "new_message":
		if env.Message == nil {
			return
		}
		// 重複的訊息 ID 直接丟棄
		applied = s.state.ApplyNewMessage(env.Message)
	case "reaction_added":
		if env.Reaction == nil {
			return
		}
		applied = s.state.ApplyReactionAdded(env.Reaction)
	case "reaction_removed":
		if env.MessageID == "" {
			return
		}
		applied = s.state.ApplyReactionRemoved(&channel.Reaction{
			ID:        env.ReactionID,
			MessageID: env.MessageID,
			UserID:    env.UserID,
			Emoji:     env.Emoji,
		})
	case "connection_test":
		// 連接確認，不改變視圖
	default:
		// 未知事件類型，忽略以保持向前兼容
		return
	}

	if applied && s.OnEvent != nil {
		s.OnEvent(env)
	}
}

// getJSON 發送帶認證的 GET 請求並解碼 JSON 回應
func (s *Session) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	return s.doJSON(req, out)
}

// postJSON 發送帶認證的 POST 請求並解碼 JSON 回應
func (s *Session) postJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	return s.doJSON(req, out)
}

func (s *Session) doJSON(req *http.Request, out interface{}) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("請求失敗: status %d: %s", resp.StatusCode, data)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
