package server

import (
	"net/http"
	"strings"
	"testing"

	"channel-hub/internal/group"
	"channel-hub/internal/hub"
	channelstore "channel-hub/internal/storage/database/channel"

	"github.com/gin-gonic/gin"
)

func TestSendMessageBroadcastsAfterWrite(t *testing.T) {
	env := newTestEnv()
	env.groups.set("group_1", "user_1", group.RoleMember)
	ch := env.seedChannel("group_1", "general", channelstore.TypeText)

	w := env.doJSON("POST", "/api/v1/channels/"+ch.ID+"/messages", "user_1", "小明",
		map[string]interface{}{"content": "大家好"},
		env.server.sendMessage,
		gin.Params{{Key: "channel_id", Value: ch.ID}},
	)

	if w.Code != http.StatusOK {
		t.Fatalf("發送訊息應該成功, got status %d: %s", w.Code, w.Body.String())
	}

	// 訊息已落庫
	if len(env.messages.items) != 1 {
		t.Fatalf("訊息應該已寫入存儲, got %d 筆", len(env.messages.items))
	}
	saved := env.messages.items[0]
	if saved.SenderID != "user_1" || saved.SenderName != "小明" {
		t.Errorf("訊息發送者不符: %+v", saved)
	}

	// 廣播帶著與落庫一致的訊息
	events := env.broadcaster.recorded()
	if len(events) != 1 {
		t.Fatalf("應該廣播 1 個事件, got %d", len(events))
	}
	if events[0].channelID != ch.ID {
		t.Errorf("廣播頻道不符: %s", events[0].channelID)
	}
	ev, ok := events[0].event.(hub.NewMessageEvent)
	if !ok {
		t.Fatalf("事件類型應該是 NewMessageEvent, got %T", events[0].event)
	}
	if ev.Message.ID != saved.ID {
		t.Errorf("廣播的訊息 ID 與落庫的不一致: %s vs %s", ev.Message.ID, saved.ID)
	}
}

func TestSendMessageRejectsNonMember(t *testing.T) {
	env := newTestEnv()
	ch := env.seedChannel("group_1", "general", channelstore.TypeText)

	w := env.doJSON("POST", "/api/v1/channels/"+ch.ID+"/messages", "outsider", "路人",
		map[string]interface{}{"content": "我能進來嗎"},
		env.server.sendMessage,
		gin.Params{{Key: "channel_id", Value: ch.ID}},
	)

	if w.Code != http.StatusForbidden {
		t.Errorf("非成員發送訊息應該返回 403, got %d", w.Code)
	}
	if len(env.broadcaster.recorded()) != 0 {
		t.Error("被拒絕的請求不應該觸發廣播")
	}
}

func TestSendMessageAnnouncementGuard(t *testing.T) {
	env := newTestEnv()
	env.groups.set("group_1", "member_1", group.RoleMember)
	env.groups.set("group_1", "admin_1", group.RoleAdmin)
	env.groups.set("group_1", "owner_1", group.RoleOwner)
	ch := env.seedChannel("group_1", "announcements", channelstore.TypeAnnouncement)

	// 一般成員被拒絕
	w := env.doJSON("POST", "/api/v1/channels/"+ch.ID+"/messages", "member_1", "小明",
		map[string]interface{}{"content": "我來公告一下"},
		env.server.sendMessage,
		gin.Params{{Key: "channel_id", Value: ch.ID}},
	)
	if w.Code != http.StatusForbidden {
		t.Errorf("一般成員在公告頻道發言應該返回 403, got %d", w.Code)
	}
	if len(env.broadcaster.recorded()) != 0 {
		t.Error("被拒絕的公告不應該觸發廣播")
	}

	// 管理員與擁有者可以發言
	for _, userID := range []string{"admin_1", "owner_1"} {
		w := env.doJSON("POST", "/api/v1/channels/"+ch.ID+"/messages", userID, "管理者",
			map[string]interface{}{"content": "正式公告"},
			env.server.sendMessage,
			gin.Params{{Key: "channel_id", Value: ch.ID}},
		)
		if w.Code != http.StatusOK {
			t.Errorf("%s 在公告頻道發言應該成功, got %d: %s", userID, w.Code, w.Body.String())
		}
	}
}

func TestSendMessageRejectsVoiceChannel(t *testing.T) {
	env := newTestEnv()
	env.groups.set("group_1", "user_1", group.RoleOwner)
	ch := env.seedChannel("group_1", "voice-room", channelstore.TypeVoice)

	w := env.doJSON("POST", "/api/v1/channels/"+ch.ID+"/messages", "user_1", "小明",
		map[string]interface{}{"content": "喂喂"},
		env.server.sendMessage,
		gin.Params{{Key: "channel_id", Value: ch.ID}},
	)

	if w.Code != http.StatusBadRequest {
		t.Errorf("語音頻道發送訊息應該返回 400, got %d", w.Code)
	}
}

func TestSendMessageEmptyContentWithAttachment(t *testing.T) {
	env := newTestEnv()
	env.groups.set("group_1", "user_1", group.RoleMember)
	ch := env.seedChannel("group_1", "general", channelstore.TypeText)

	// 沒有內容也沒有附件
	w := env.doJSON("POST", "/api/v1/channels/"+ch.ID+"/messages", "user_1", "小明",
		map[string]interface{}{"content": "   "},
		env.server.sendMessage,
		gin.Params{{Key: "channel_id", Value: ch.ID}},
	)
	if w.Code != http.StatusBadRequest {
		t.Errorf("空白訊息應該返回 400, got %d", w.Code)
	}

	// 只有附件沒有內容
	w = env.doJSON("POST", "/api/v1/channels/"+ch.ID+"/messages", "user_1", "小明",
		map[string]interface{}{
			"content": "",
			"attachments": []map[string]interface{}{
				{"file_name": "photo.png", "file_url": "https://files.example.com/photo.png"},
			},
		},
		env.server.sendMessage,
		gin.Params{{Key: "channel_id", Value: ch.ID}},
	)
	if w.Code != http.StatusOK {
		t.Errorf("只有附件的訊息應該成功, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSendMessageChannelNotFound(t *testing.T) {
	env := newTestEnv()
	env.groups.set("group_1", "user_1", group.RoleMember)

	missing := fakeObjectID(999)
	w := env.doJSON("POST", "/api/v1/channels/"+missing+"/messages", "user_1", "小明",
		map[string]interface{}{"content": "有人嗎"},
		env.server.sendMessage,
		gin.Params{{Key: "channel_id", Value: missing}},
	)

	if w.Code != http.StatusNotFound {
		t.Errorf("不存在的頻道應該返回 404, got %d", w.Code)
	}
}

func TestGetMessagesResolvesReactions(t *testing.T) {
	env := newTestEnv()
	env.groups.set("group_1", "user_1", group.RoleMember)
	ch := env.seedChannel("group_1", "general", channelstore.TypeText)

	// 先發一則訊息再加一個表情符號
	w := env.doJSON("POST", "/api/v1/channels/"+ch.ID+"/messages", "user_1", "小明",
		map[string]interface{}{"content": "第一則"},
		env.server.sendMessage,
		gin.Params{{Key: "channel_id", Value: ch.ID}},
	)
	if w.Code != http.StatusOK {
		t.Fatalf("發送訊息失敗: %d", w.Code)
	}
	messageID := env.messages.items[0].ID

	w = env.doJSON("POST", "/api/v1/messages/"+messageID+"/reactions", "user_1", "小明",
		map[string]interface{}{"emoji": "👍"},
		env.server.toggleReaction,
		gin.Params{{Key: "message_id", Value: messageID}},
	)
	if w.Code != http.StatusOK {
		t.Fatalf("切換表情符號失敗: %d: %s", w.Code, w.Body.String())
	}

	w = env.doJSON("GET", "/api/v1/channels/"+ch.ID+"/messages", "user_1", "小明",
		nil,
		env.server.getMessages,
		gin.Params{{Key: "channel_id", Value: ch.ID}},
	)
	if w.Code != http.StatusOK {
		t.Fatalf("獲取訊息頁失敗: %d: %s", w.Code, w.Body.String())
	}

	body := w.Body.String()
	if !strings.Contains(body, `"reactions"`) || !strings.Contains(body, "👍") {
		t.Errorf("訊息頁應該附帶表情符號: %s", body)
	}
}
