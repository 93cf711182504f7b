package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"channel-hub/internal/client"
	"channel-hub/internal/storage/database/channel"
)

// 終端頻道客戶端
// 連接到指定頻道，即時打印收到的事件，stdin 每一行作為訊息發送
func main() {
	var (
		baseURL   = flag.String("server", "http://localhost:8080", "API 服務器地址")
		token     = flag.String("token", os.Getenv("CHANNEL_HUB_TOKEN"), "認證 token")
		channelID = flag.String("channel", "", "頻道 ID")
	)
	flag.Parse()

	if *token == "" || *channelID == "" {
		fmt.Fprintln(os.Stderr, "用法: client -channel <channel_id> -token <jwt> [-server <url>]")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	session := client.NewSession(*baseURL, *token, *channelID)
	session.OnEvent = printEvent

	// stdin 的每一行發送為一則訊息
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if _, err := session.SendMessage(ctx, line, nil); err != nil {
				fmt.Fprintf(os.Stderr, "發送失敗: %v\n", err)
			}
		}
	}()

	fmt.Printf("已連接頻道 %s，Ctrl+C 離開\n", *channelID)
	if err := session.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "會話中斷: %v\n", err)
		os.Exit(1)
	}
}

// printEvent 將事件打印到終端
func printEvent(env client.Envelope) {
	switch env.Type {
	case "connection_test":
		fmt.Printf("-- 連接已建立 (%s)\n", env.ConnectionID)
	case "new_message":
		name := env.Message.SenderName
		if name == "" {
			name = env.Message.SenderID
		}
		fmt.Printf("[%s] %s: %s\n", env.Message.CreatedAt.Format("15:04:05"), name, env.Message.Content)
		for _, a := range env.Message.Attachments {
			fmt.Printf("    附件: %s (%s)\n", a.FileName, a.FileURL)
		}
	case "reaction_added":
		fmt.Printf("    %s 對 %s 加上了 %s\n", reactorName(env.Reaction), env.MessageID, env.Reaction.Emoji)
	case "reaction_removed":
		fmt.Printf("    %s 對 %s 收回了 %s\n", env.UserID, env.MessageID, env.Emoji)
	}
}

func reactorName(r *channel.Reaction) string {
	if r.UserName != "" {
		return r.UserName
	}
	return r.UserID
}
