package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/Muzaffarxon04/tg-message-archiver/config"
	"github.com/Muzaffarxon04/tg-message-archiver/mirror"
	"github.com/Muzaffarxon04/tg-message-archiver/msglog"
)

func TestEventFromPrivate(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev, ok := EventFromPrivate(twitch.PrivateMessage{
		RoomID:  "4711",
		ID:      "abc-123",
		Message: "Kappa",
		Time:    at,
		User:    twitch.User{Name: "viewer", DisplayName: "Viewer"},
	})
	if !ok {
		t.Fatal("valid privmsg rejected")
	}
	want := mirror.MessageEvent{
		ChatID: "4711", MessageID: "abc-123", Kind: mirror.KindReceived,
		Text: "Kappa", From: "Viewer | @viewer", Timestamp: "2024-05-01T12:00:00.000Z",
	}
	if ev != want {
		t.Errorf("event = %+v, want %+v", ev, want)
	}
	if _, ok := EventFromPrivate(twitch.PrivateMessage{ID: "x"}); ok {
		t.Error("privmsg without room id accepted")
	}
}

func TestEventFromClear(t *testing.T) {
	ev, ok := EventFromClear(twitch.ClearMessage{TargetMsgID: "abc-123", Tags: map[string]string{"room-id": "4711"}})
	if !ok || ev.Kind != mirror.KindDeleted || ev.ChatID != "4711" || ev.MessageID != "abc-123" {
		t.Errorf("event = %+v, ok = %v", ev, ok)
	}
	if _, ok := EventFromClear(twitch.ClearMessage{}); ok {
		t.Error("clearmsg without target accepted")
	}
}

type fakeClient struct {
	onPriv  func(twitch.PrivateMessage)
	onClear func(twitch.ClearMessage)
	joined  []string
	script  func(c *fakeClient)
	mu      sync.Mutex
	closed  bool
}

func (f *fakeClient) OnPrivateMessage(h func(twitch.PrivateMessage)) { f.onPriv = h }
func (f *fakeClient) OnClearMessage(h func(twitch.ClearMessage))     { f.onClear = h }
func (f *fakeClient) Join(ch ...string)                              { f.joined = append(f.joined, ch...) }
func (f *fakeClient) Connect() error {
	f.script(f)
	return nil
}
func (f *fakeClient) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestRecordFeedsReconciler(t *testing.T) {
	tbl := msglog.NewMemTable()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := tbl.EnsureTab(ctx); err != nil {
		t.Fatal(err)
	}
	rec := mirror.NewReconciler(tbl, mirror.NewGuard(time.Minute), mirror.WithRetry(1, 0))

	client := &fakeClient{script: func(c *fakeClient) {
		c.onPriv(twitch.PrivateMessage{RoomID: "1", ID: "m1", Message: "hello", User: twitch.User{Name: "a"}})
		c.onPriv(twitch.PrivateMessage{RoomID: "1", ID: "m2", Message: "spam", User: twitch.User{Name: "b"}})
		c.onClear(twitch.ClearMessage{TargetMsgID: "m2", Tags: map[string]string{"room-id": "1"}})
		cancel()
	}}
	record(ctx, client, []string{"somechannel"}, rec)

	if len(client.joined) != 1 || client.joined[0] != "somechannel" {
		t.Errorf("joined = %v", client.joined)
	}
	client.mu.Lock()
	closed := client.closed
	client.mu.Unlock()
	if !closed {
		t.Error("client not disconnected on cancel")
	}
	rows := tbl.DataRows()
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Status != msglog.StatusReceived || rows[1].Status != msglog.StatusDeleted || rows[1].Text != "spam" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestStartTwitchRecorderDisabled(t *testing.T) {
	// Returns immediately without channels or with half-set credentials.
	StartTwitchRecorder(context.Background(), &config.Config{}, nil)
	StartTwitchRecorder(context.Background(), &config.Config{TwitchChannels: []string{"x"}, TwitchBotUsername: "bot"}, nil)
}
