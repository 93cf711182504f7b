package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"time"

	"channel-hub/internal/group"
	"channel-hub/internal/hub"
	"channel-hub/internal/platform/middleware"
	"channel-hub/internal/security/audit"
	channelstore "channel-hub/internal/storage/database/channel"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// fakeChannels 記憶體頻道存儲
type fakeChannels struct {
	mu    sync.Mutex
	items map[string]*channelstore.Channel
	next  int
}

func newFakeChannels() *fakeChannels {
	return &fakeChannels{items: make(map[string]*channelstore.Channel)}
}

// fakeObjectID 產生 24 位十六進制的假 ID
func fakeObjectID(n int) string {
	return fmt.Sprintf("%024x", n)
}

func (f *fakeChannels) Create(ctx context.Context, ch *channelstore.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.GroupID == ch.GroupID && existing.Name == ch.Name {
			return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
		}
	}
	f.next++
	ch.ID = fakeObjectID(f.next)
	ch.CreatedAt = time.Now()
	f.items[ch.ID] = ch
	return nil
}

func (f *fakeChannels) GetByID(ctx context.Context, id string) (*channelstore.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, exists := f.items[id]
	if !exists {
		return nil, mongo.ErrNoDocuments
	}
	return ch, nil
}

func (f *fakeChannels) ListByGroup(ctx context.Context, groupID string) ([]*channelstore.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*channelstore.Channel
	for _, ch := range f.items {
		if ch.GroupID == groupID {
			result = append(result, ch)
		}
	}
	return result, nil
}

func (f *fakeChannels) Update(ctx context.Context, id string, update map[string]interface{}) error {
	return nil
}

func (f *fakeChannels) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *fakeChannels) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	return nil
}

// fakeMessages 記憶體訊息存儲
type fakeMessages struct {
	mu    sync.Mutex
	items []*channelstore.Message
	next  int
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{}
}

func (f *fakeMessages) Create(ctx context.Context, m *channelstore.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	m.ID = fakeObjectID(1000 + f.next)
	m.CreatedAt = time.Now()
	f.items = append(f.items, m)
	return nil
}

func (f *fakeMessages) GetByID(ctx context.Context, id string) (*channelstore.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.items {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeMessages) ListByChannel(ctx context.Context, channelID string, limit int, before *time.Time) ([]*channelstore.Message, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*channelstore.Message
	for _, m := range f.items {
		if m.ChannelID == channelID {
			result = append(result, m)
		}
	}
	return result, false, nil
}

func (f *fakeMessages) DeleteByChannel(ctx context.Context, channelID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*channelstore.Message
	var deleted int64
	for _, m := range f.items {
		if m.ChannelID == channelID {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	f.items = kept
	return deleted, nil
}

// fakeReactions 記憶體表情符號存儲，模擬唯一索引的切換語義
type fakeReactions struct {
	mu    sync.Mutex
	items map[string]*channelstore.Reaction // key: message_id|user_id|emoji
	next  int
}

func newFakeReactions() *fakeReactions {
	return &fakeReactions{items: make(map[string]*channelstore.Reaction)}
}

func reactionKey(r *channelstore.Reaction) string {
	return r.MessageID + "|" + r.UserID + "|" + r.Emoji
}

func (f *fakeReactions) Toggle(ctx context.Context, r *channelstore.Reaction) (*channelstore.Reaction, *channelstore.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := reactionKey(r)
	if existing, exists := f.items[key]; exists {
		delete(f.items, key)
		return nil, existing, nil
	}
	f.next++
	r.ID = fakeObjectID(2000 + f.next)
	r.CreatedAt = time.Now()
	f.items[key] = r
	return r, nil, nil
}

func (f *fakeReactions) ListByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]*channelstore.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make(map[string][]*channelstore.Reaction)
	for _, r := range f.items {
		for _, id := range messageIDs {
			if r.MessageID == id {
				result[id] = append(result[id], r)
			}
		}
	}
	return result, nil
}

func (f *fakeReactions) DeleteByMessage(ctx context.Context, messageID string) (int64, error) {
	return 0, nil
}

func (f *fakeReactions) DeleteByChannel(ctx context.Context, channelID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for key, r := range f.items {
		if r.ChannelID == channelID {
			delete(f.items, key)
			deleted++
		}
	}
	return deleted, nil
}

// fakeGroups 固定成員表的群組查詢
type fakeGroups struct {
	roles map[string]group.Role // key: group_id|user_id
}

func newFakeGroups() *fakeGroups {
	return &fakeGroups{roles: make(map[string]group.Role)}
}

func (f *fakeGroups) set(groupID, userID string, role group.Role) {
	f.roles[groupID+"|"+userID] = role
}

func (f *fakeGroups) Membership(ctx context.Context, groupID, userID string) (group.Role, error) {
	role, exists := f.roles[groupID+"|"+userID]
	if !exists {
		return "", group.ErrNotMember
	}
	return role, nil
}

// recordingBroadcaster 記錄所有廣播呼叫
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	channelID string
	event     hub.Event
}

func (b *recordingBroadcaster) Broadcast(channelID string, ev hub.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{channelID: channelID, event: ev})
}

func (b *recordingBroadcaster) recorded() []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedEvent(nil), b.events...)
}

// testEnv 測試環境
type testEnv struct {
	server      *Server
	channels    *fakeChannels
	messages    *fakeMessages
	reactions   *fakeReactions
	groups      *fakeGroups
	broadcaster *recordingBroadcaster
}

func newTestEnv() *testEnv {
	env := &testEnv{
		channels:    newFakeChannels(),
		messages:    newFakeMessages(),
		reactions:   newFakeReactions(),
		groups:      newFakeGroups(),
		broadcaster: &recordingBroadcaster{},
	}
	env.server = New(
		env.channels,
		env.messages,
		env.reactions,
		env.groups,
		env.broadcaster,
		hub.NewRegistry(),
		audit.NewAuditService(false),
	)
	return env
}

// seedChannel 直接塞入一個頻道
func (env *testEnv) seedChannel(groupID, name, channelType string) *channelstore.Channel {
	ch := &channelstore.Channel{GroupID: groupID, Name: name, Type: channelType}
	if err := env.channels.Create(context.Background(), ch); err != nil {
		panic(err)
	}
	return ch
}

// doJSON 以指定身份發送 JSON 請求
func (env *testEnv) doJSON(method, path, userID, displayName string, body interface{}, handler gin.HandlerFunc, params gin.Params) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reqBody *bytes.Buffer
	if body != nil {
		data, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	c.Request = httptest.NewRequest(method, path, reqBody)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	if userID != "" {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.UserDisplayNameKey, displayName)
	}

	handler(c)
	return w
}
