package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"channel-hub/internal/group"
	"channel-hub/internal/hub"
	"channel-hub/internal/platform/config"
	"channel-hub/internal/platform/driver"
	"channel-hub/internal/platform/logger"
	"channel-hub/internal/platform/server"
	"channel-hub/internal/security/audit"
	"channel-hub/internal/storage/database"
)

func main() {
	if err := mainNoExit(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// mainNoExit 分離主要邏輯以避免 exitAfterDefer 問題，確保 defer 函數正常執行.
func mainNoExit() error {
	// 初始化日誌.
	if err := logger.InitLogger(); err != nil {
		return err
	}
	defer logger.CloseLogger()

	ctx := context.Background()

	// 載入配置.
	if err := config.Load(); err != nil {
		return err
	}

	// 連接資料庫.
	if err := driver.ConnectMongo(); err != nil {
		return err
	}
	defer func() {
		if err := driver.CloseMongo(); err != nil {
			logger.Errorf(ctx, "關閉 MongoDB 連接失敗: %v", err)
		}
	}()

	// 設置 MongoDB 連接到 database 包
	database.SetMongoDB(driver.GetMongoDatabase())

	// 初始化 Repository.
	repos, err := database.NewRepositories(config.Get())
	if err != nil {
		return fmt.Errorf("初始化倉儲失敗: %w", err)
	}

	// 群組成員關係查詢，成員管理由外部群組服務負責
	groups := group.NewMongoReader(driver.GetMongoDatabase())

	cfg := config.Get()

	// 啟動推送層：註冊表 + 廣播分發器
	registry := hub.NewRegistry()
	dispatcher := hub.NewDispatcher(registry, cfg.Limits.SSE.BroadcastQueueSize)
	go dispatcher.Run()
	defer dispatcher.Close()

	auditService := audit.NewAuditService(cfg.Audit.Enabled)

	apiServer := server.New(
		repos.Channel,
		repos.Message,
		repos.Reaction,
		groups,
		dispatcher,
		registry,
		auditService,
	)

	httpServer := &http.Server{
		Addr:    config.GetServerAddr(),
		Handler: apiServer.Router(),
	}

	go func() {
		logger.Info(ctx, "[System] HTTP 服務器啟動", logger.WithDetails(map[string]interface{}{
			"addr": httpServer.Addr,
		}))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf(ctx, "HTTP 服務器啟動失敗: %v", err)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "正在關閉服務器...", logger.WithAction("shutdown"))

	// 優雅關閉：先停 HTTP 再停推送層
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "HTTP 服務器關閉失敗: %v", err)
	}

	return nil
}
