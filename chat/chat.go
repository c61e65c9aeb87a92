package chat

import (
	"context"
	"log/slog"
	"strings"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/Muzaffarxon04/tg-message-archiver/config"
	"github.com/Muzaffarxon04/tg-message-archiver/mirror"
)

// Sink receives message events; *mirror.Reconciler implements it.
type Sink interface {
	Apply(ctx context.Context, ev mirror.MessageEvent)
}

// ircClient is the part of *twitch.Client the recorder drives.
type ircClient interface {
	OnPrivateMessage(func(twitch.PrivateMessage))
	OnClearMessage(func(twitch.ClearMessage))
	Join(channels ...string)
	Connect() error
	Disconnect() error
}

// StartTwitchRecorder records chat for cfg.TwitchChannels until ctx is done.
func StartTwitchRecorder(ctx context.Context, cfg *config.Config, sink Sink) {
	if !cfg.TwitchEnabled() {
		slog.Info("twitch channels not set; skipping chat recorder", slog.String("component", "chat"))
		return
	}
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("twitch chat recorder disabled", slog.Any("err", err), slog.String("component", "chat"))
		return
	}
	var client *twitch.Client
	if cfg.TwitchBotUsername != "" {
		client = twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken)
	} else {
		client = twitch.NewAnonymousClient()
	}
	record(ctx, client, cfg.TwitchChannels, sink)
}

func record(ctx context.Context, client ircClient, channels []string, sink Sink) {
	log := slog.Default().With(slog.String("component", "chat"))

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		ev, ok := EventFromPrivate(msg)
		if !ok {
			log.Debug("privmsg without ids dropped", slog.String("channel", msg.Channel))
			return
		}
		sink.Apply(ctx, ev)
	})
	client.OnClearMessage(func(msg twitch.ClearMessage) {
		ev, ok := EventFromClear(msg)
		if !ok {
			return
		}
		log.Info("twitch message removed by moderator", slog.String("channel", msg.Channel), slog.String("login", msg.Login))
		sink.Apply(ctx, ev)
	})

	// Handle context cancellation by closing the client
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		_ = client.Disconnect()
		close(done)
	}()

	client.Join(channels...)
	log.Info("joining twitch chat", slog.Any("channels", channels))
	if err := client.Connect(); err != nil && ctx.Err() == nil {
		log.Error("twitch chat connect error", slog.Any("err", err))
	}
	<-done
}

// EventFromPrivate converts a PRIVMSG. Messages lacking a room or message id
// cannot be keyed and are rejected.
func EventFromPrivate(msg twitch.PrivateMessage) (mirror.MessageEvent, bool) {
	if msg.RoomID == "" || msg.ID == "" {
		return mirror.MessageEvent{}, false
	}
	ev := mirror.MessageEvent{
		ChatID:    msg.RoomID,
		MessageID: msg.ID,
		Kind:      mirror.KindReceived,
		Text:      msg.Message,
		From:      userLabel(msg.User),
	}
	if !msg.Time.IsZero() {
		ev.Timestamp = mirror.FormatTimestamp(msg.Time)
	}
	return ev, true
}

// EventFromClear converts a CLEARMSG into a delete of its target message.
func EventFromClear(msg twitch.ClearMessage) (mirror.MessageEvent, bool) {
	if msg.TargetMsgID == "" {
		return mirror.MessageEvent{}, false
	}
	return mirror.MessageEvent{
		ChatID:    msg.Tags["room-id"],
		MessageID: msg.TargetMsgID,
		Kind:      mirror.KindDeleted,
	}, true
}

func userLabel(u twitch.User) string {
	var parts []string
	if u.DisplayName != "" {
		parts = append(parts, u.DisplayName)
	}
	if u.Name != "" {
		parts = append(parts, "@"+u.Name)
	}
	return strings.Join(parts, " | ")
}
