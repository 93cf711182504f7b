package channel

import (
	"strings"
	"testing"
)

func TestMessageValidate(t *testing.T) {
	m := &Message{Content: "大家好"}
	if err := m.Validate(); err != nil {
		t.Errorf("正常訊息不應該返回錯誤: %v", err)
	}
}

func TestMessageValidateEmptyContent(t *testing.T) {
	m := &Message{Content: "   "}
	if err := m.Validate(); err == nil {
		t.Error("空白內容且無附件的訊息應該返回錯誤")
	}
}

func TestMessageValidateAttachmentOnly(t *testing.T) {
	m := &Message{
		Content: "",
		Attachments: []Attachment{
			{FileName: "report.pdf", FileURL: "https://files.example.com/report.pdf"},
		},
	}
	if err := m.Validate(); err != nil {
		t.Errorf("只有附件沒有內容的訊息應該合法: %v", err)
	}
}

func TestMessageValidateTooManyAttachments(t *testing.T) {
	attachments := make([]Attachment, 11)
	for i := range attachments {
		attachments[i] = Attachment{
			FileName: "file.txt",
			FileURL:  "https://files.example.com/file.txt",
		}
	}

	m := &Message{Content: "附件太多", Attachments: attachments}
	if err := m.Validate(); err == nil {
		t.Error("超過附件數量上限的訊息應該返回錯誤")
	}
}

func TestMessageValidateAttachmentFields(t *testing.T) {
	cases := []struct {
		name       string
		attachment Attachment
	}{
		{"空檔名", Attachment{FileName: "", FileURL: "https://files.example.com/a"}},
		{"空 URL", Attachment{FileName: "a.txt", FileURL: ""}},
		{"超長檔名", Attachment{FileName: strings.Repeat("x", 256), FileURL: "https://files.example.com/a"}},
		{"超長 URL", Attachment{FileName: "a.txt", FileURL: "https://" + strings.Repeat("x", 2048)}},
	}

	for _, tc := range cases {
		m := &Message{Content: "測試", Attachments: []Attachment{tc.attachment}}
		if err := m.Validate(); err == nil {
			t.Errorf("%s 的附件應該返回錯誤", tc.name)
		}
	}
}

func TestIsValidChannelType(t *testing.T) {
	for _, valid := range []string{TypeText, TypeVoice, TypeAnnouncement} {
		if !IsValidChannelType(valid) {
			t.Errorf("%s 應該是合法的頻道類型", valid)
		}
	}

	for _, invalid := range []string{"", "video", "TEXT"} {
		if IsValidChannelType(invalid) {
			t.Errorf("%s 不應該是合法的頻道類型", invalid)
		}
	}
}
