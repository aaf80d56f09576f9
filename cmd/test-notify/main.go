// Command test-notify sends a probe notification through every configured
// channel so operators can verify ntfy, desktop and email settings without
// waiting for a real code.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/config"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/notifications"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	code := "TESTCODE123"
	if len(os.Args) > 1 {
		code = os.Args[1]
	}

	fmt.Printf("Sending probe notification %q to topic %s\n", code, cfg.Notifications.NtfyTopicURL)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	service := notifications.NewService(cfg)
	if err := service.NotifyCode(ctx, code); err != nil {
		fmt.Fprintf(os.Stderr, "Probe notification incomplete: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Probe notification delivered to all configured channels")
}
