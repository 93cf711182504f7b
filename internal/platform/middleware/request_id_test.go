package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func runRequestID(t *testing.T, incoming string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if incoming != "" {
		c.Request.Header.Set(RequestIDHeader, incoming)
	}

	RequestIDMiddleware()(c)
	return c, w
}

func TestRequestIDKeepsValidClientID(t *testing.T) {
	valid := uuid.New().String()
	c, w := runRequestID(t, valid)

	if GetRequestID(c) != valid {
		t.Errorf("合法的客戶端 Request ID 應該被沿用: %s", GetRequestID(c))
	}
	if w.Header().Get(RequestIDHeader) != valid {
		t.Errorf("響應頭的 Request ID 不符: %s", w.Header().Get(RequestIDHeader))
	}
}

func TestRequestIDReplacesInvalidClientID(t *testing.T) {
	c, _ := runRequestID(t, "not-a-uuid'; drop table--")

	got := GetRequestID(c)
	if got == "" {
		t.Fatal("應該生成新的 Request ID")
	}
	if got == "not-a-uuid'; drop table--" {
		t.Error("非法的客戶端 Request ID 不應被沿用")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("生成的 Request ID 應該是合法的 UUID: %v", err)
	}
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	c, w := runRequestID(t, "")

	got := GetRequestID(c)
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("缺省時應該生成合法的 UUID: %v", err)
	}
	if w.Header().Get(RequestIDHeader) != got {
		t.Error("響應頭應該帶上生成的 Request ID")
	}
}
