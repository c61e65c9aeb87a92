package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Muzaffarxon04/tg-message-archiver/telegram"
	"github.com/Muzaffarxon04/tg-message-archiver/telemetry"
)

// ErrUnauthorized is returned by Start when the transport session is not
// authorized. The caller is expected to exit.
var ErrUnauthorized = errors.New("mirror: transport not authorized")

// Transport is the chat client surface the mirror needs.
type Transport interface {
	EntityLookup
	Connect(ctx context.Context) (bool, error)
	OnNewMessage(h telegram.MessageHandler)
	OnEditedMessage(h telegram.MessageHandler)
	OnDeletedMessage(h telegram.DeleteHandler)
	OnRaw(h telegram.RawHandler)
}

// Mirror wires a Transport to the normalizer and reconciler. Both delivery
// paths feed the same reconciler; the dedup guard collapses the overlap.
type Mirror struct {
	transport Transport
	norm      *Normalizer
	rec       *Reconciler
}

func New(t Transport, norm *Normalizer, rec *Reconciler) *Mirror {
	return &Mirror{transport: t, norm: norm, rec: rec}
}

// Start connects the transport and subscribes both callback paths.
func (m *Mirror) Start(ctx context.Context) error {
	ok, err := m.transport.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect transport: %w", err)
	}
	if !ok {
		return ErrUnauthorized
	}
	m.transport.OnNewMessage(func(ctx context.Context, msg *telegram.Message) {
		m.handleMessage(ctx, KindReceived, msg)
	})
	m.transport.OnEditedMessage(func(ctx context.Context, msg *telegram.Message) {
		m.handleMessage(ctx, KindEdited, msg)
	})
	m.transport.OnDeletedMessage(m.handleDeleted)
	m.transport.OnRaw(m.handleRaw)
	slog.Info("mirror started", slog.String("component", "mirror"))
	return nil
}

func (m *Mirror) handleMessage(ctx context.Context, kind Kind, msg *telegram.Message) {
	ev, ok := m.norm.NormalizeMessage(ctx, kind, msg)
	if !ok {
		telemetry.IncDropped("unnormalizable")
		return
	}
	m.apply(ctx, ev)
}

func (m *Mirror) handleDeleted(ctx context.Context, chatRef any, ids []int64) {
	for _, ev := range m.norm.NormalizeDeleted(ctx, chatRef, ids) {
		m.apply(ctx, ev)
	}
}

func (m *Mirror) handleRaw(ctx context.Context, u telegram.Update) {
	telemetry.IncUpdate(u.Variant())
	slog.Debug("raw update", slog.String("variant", u.Variant()), slog.String("component", "mirror"))
	for _, ev := range m.norm.Normalize(ctx, u) {
		m.apply(ctx, ev)
	}
}

func (m *Mirror) apply(ctx context.Context, ev MessageEvent) {
	telemetry.IncEvent(string(ev.Kind))
	m.rec.Apply(ctx, ev)
}

// Reconciler exposes the reconciler so other sources can feed it.
func (m *Mirror) Reconciler() *Reconciler { return m.rec }
