// Command write-mock appends one mock row to the configured message log. It
// is a connectivity check for new deployments: if the row shows up in the
// sheet (or table), credentials and the tab name are right.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Muzaffarxon04/tg-message-archiver/config"
	"github.com/Muzaffarxon04/tg-message-archiver/mirror"
	"github.com/Muzaffarxon04/tg-message-archiver/msglog"
	"github.com/Muzaffarxon04/tg-message-archiver/store"
)

func main() {
	config.LoadDotenv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	at, err := writeMock(ctx, cfg)
	if err != nil {
		slog.Error("mock write failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("mock row appended", slog.String("timestamp", at), slog.String("tab", cfg.TabName))
}

// mockRow is the row written by the command.
func mockRow(ts string) msglog.Row {
	return msglog.Row{
		Timestamp: ts,
		Status:    msglog.StatusReceived,
		ChatID:    "1234567890",
		MessageID: "1",
		From:      "Mock User",
		Text:      "This is a mock test row",
	}
}

func writeMock(ctx context.Context, cfg *config.Config) (string, error) {
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer func() { _ = s.Close() }()

	if err := s.EnsureTab(ctx); err != nil {
		return "", err
	}
	ts := mirror.FormatTimestamp(time.Now())
	if err := s.Append(ctx, mockRow(ts).Values()); err != nil {
		return "", err
	}
	return ts, nil
}
