package database

import (
	"testing"

	"channel-hub/internal/platform/config"
)

func TestNewRepositoriesFailsWithoutConnection(t *testing.T) {
	SetMongoDB(nil)

	repos, err := NewRepositories(&config.Config{})
	if err == nil {
		t.Fatal("連接未初始化時應該返回錯誤，而不是靜默降級")
	}
	if repos != nil {
		t.Errorf("失敗時不應回傳倉儲集合: %+v", repos)
	}
}
