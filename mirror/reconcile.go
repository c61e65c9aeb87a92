package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Muzaffarxon04/tg-message-archiver/msglog"
	"github.com/Muzaffarxon04/tg-message-archiver/telemetry"
)

// Reconciler applies MessageEvents to the log. It is the only writer.
//
// Row lifecycle per logical message (chat id, message id):
//
//	absent   --received--> received (append)
//	received --edited-->   edited   (rewrite row, text "old => new")
//	edited   --edited-->   edited
//	received/edited --deleted--> deleted (rewrite row, text kept)
//
// deleted is terminal: a later received or edited event appends a new row.
type Reconciler struct {
	table   msglog.Table
	locator *msglog.Locator
	guard   *Guard

	textLimit int
	attempts  int
	backoff   time.Duration
}

// ReconcilerOption customizes a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithTextLimit sets the text budget for log lines.
func WithTextLimit(n int) ReconcilerOption { return func(r *Reconciler) { r.textLimit = n } }

// WithRetry sets attempts and initial backoff for idempotent store calls.
func WithRetry(attempts int, backoff time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if attempts > 0 {
			r.attempts = attempts
		}
		r.backoff = backoff
	}
}

func NewReconciler(t msglog.Table, guard *Guard, opts ...ReconcilerOption) *Reconciler {
	if guard == nil {
		guard = NewGuard(0)
	}
	r := &Reconciler{
		table:     t,
		locator:   msglog.NewLocator(t),
		guard:     guard,
		textLimit: DefaultTextLimit,
		attempts:  3,
		backoff:   500 * time.Millisecond,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Apply reconciles one event. Failures are logged and absorbed so that a
// single bad update cannot stop the stream.
func (r *Reconciler) Apply(ctx context.Context, ev MessageEvent) {
	if !ev.Valid() {
		telemetry.IncDropped("invalid")
		return
	}
	if ev.Timestamp == "" {
		ev.Timestamp = nowISO()
	}
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	log := telemetry.LoggerWithCorr(ctx).With(
		slog.String("chat_id", ev.ChatID),
		slog.String("message_id", ev.MessageID),
		slog.String("kind", string(ev.Kind)),
		slog.String("component", "reconciler"),
	)

	// The lock is taken before Begin so a redelivery waits for the write it
	// duplicates instead of moving on to later events of its batch.
	unlock := r.guard.Lock(ev.MessageID)
	defer unlock()
	finish, ok := r.guard.Begin(KeyFor(ev))
	if !ok {
		telemetry.IncDedupHit()
		log.Debug("duplicate delivery suppressed")
		return
	}

	ctx, span := telemetry.StartSpan(ctx, "reconciler", "reconcile "+string(ev.Kind),
		telemetry.MessageAttrs(ev.ChatID, ev.MessageID, string(ev.Kind))...)
	defer span.End()

	var err error
	telemetry.TimeFunc(telemetry.ReconcileDuration, func() {
		switch ev.Kind {
		case KindReceived:
			err = r.received(ctx, log, ev)
		case KindEdited:
			err = r.edited(ctx, log, ev)
		case KindDeleted:
			err = r.deleted(ctx, log, ev)
		}
	})
	finish(err == nil)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("reconcile failed; event lost", slog.Any("err", err))
		return
	}
	telemetry.SetSpanSuccess(span)
}

func (r *Reconciler) received(ctx context.Context, log *slog.Logger, ev MessageEvent) error {
	m, found, err := r.findByKey(ctx, ev.ChatID, ev.MessageID)
	if err != nil {
		log.Warn("locate before append failed; appending", slog.Any("err", err))
	} else if found && m.Status != msglog.StatusDeleted {
		telemetry.IncDropped("already_recorded")
		log.Debug("message already recorded", slog.Int("row", m.Row))
		return nil
	}
	log.Info("message received", slog.String("from", ev.From), slog.String("text", Truncate(ev.Text, r.textLimit)))
	return r.append(ctx, log, ev, msglog.StatusReceived, ev.Text)
}

func (r *Reconciler) edited(ctx context.Context, log *slog.Logger, ev MessageEvent) error {
	log.Info("message edited", slog.String("text", Truncate(ev.Text, r.textLimit)))
	m, found, err := r.findByKey(ctx, ev.ChatID, ev.MessageID)
	if err != nil {
		log.Warn("locate before edit failed; appending as first seen", slog.Any("err", err))
	}
	if err != nil || !found || m.Status == msglog.StatusDeleted {
		return r.append(ctx, log, ev, msglog.StatusEdited, ev.Text)
	}

	prev, err := r.readRow(ctx, m.Row)
	if err != nil {
		log.Warn("read before merge failed; treating old text as empty", slog.Int("row", m.Row), slog.Any("err", err))
	}
	text := ev.Text
	if prev.Text != "" {
		text = prev.Text + " => " + ev.Text
	}
	row := msglog.Row{
		Timestamp: ev.Timestamp,
		Status:    msglog.StatusEdited,
		ChatID:    ev.ChatID,
		MessageID: ev.MessageID,
		From:      firstNonEmpty(prev.From, ev.From),
		Text:      text,
	}
	return r.update(ctx, log, m.Row, row)
}

func (r *Reconciler) deleted(ctx context.Context, log *slog.Logger, ev MessageEvent) error {
	var (
		row   int
		found bool
	)
	if ev.ChatID != "" {
		m, ok, err := r.findByKey(ctx, ev.ChatID, ev.MessageID)
		if err != nil {
			log.Warn("locate by key failed", slog.Any("err", err))
		}
		if ok && m.Status == msglog.StatusDeleted {
			telemetry.IncDropped("already_deleted")
			log.Debug("row already deleted", slog.Int("row", m.Row))
			return nil
		}
		row, found = m.Row, ok
	}
	if !found {
		var err error
		row, found, err = r.findByMessageIDOnly(ctx, ev.MessageID)
		if err != nil {
			log.Warn("locate by message id failed", slog.Any("err", err))
		}
	}
	if !found {
		telemetry.IncDropped("no_row")
		log.Info("delete for unknown or ambiguous message dropped")
		return nil
	}

	prev, err := r.readRow(ctx, row)
	if err != nil {
		return fmt.Errorf("read row %d before delete: %w", row, err)
	}
	if prev.Status == msglog.StatusDeleted {
		telemetry.IncDropped("already_deleted")
		return nil
	}
	out := prev
	out.Timestamp = ev.Timestamp
	out.Status = msglog.StatusDeleted
	if out.MessageID == "" {
		out.MessageID = ev.MessageID
	}
	if out.ChatID == "" {
		out.ChatID = ev.ChatID
	}
	return r.update(ctx, log, row, out)
}

func (r *Reconciler) append(ctx context.Context, log *slog.Logger, ev MessageEvent, status msglog.Status, text string) error {
	row := msglog.Row{
		Timestamp: ev.Timestamp,
		Status:    status,
		ChatID:    ev.ChatID,
		MessageID: ev.MessageID,
		From:      ev.From,
		Text:      text,
	}
	if err := r.table.Append(ctx, row.Values()); err != nil {
		telemetry.IncStoreError("append", ClassifyStoreError(err).String())
		return err
	}
	telemetry.IncAppended(string(status))
	log.Info("row appended", slog.String("status", string(status)))
	return nil
}

func (r *Reconciler) update(ctx context.Context, log *slog.Logger, at int, row msglog.Row) error {
	err := retryIdempotent(ctx, r.attempts, r.backoff, func() error {
		return r.table.UpdateRange(ctx, msglog.RowRange(at), row.Values())
	})
	if err != nil {
		telemetry.IncStoreError("update", ClassifyStoreError(err).String())
		return err
	}
	telemetry.IncUpdated(string(row.Status))
	log.Info("row updated", slog.Int("row", at), slog.String("status", string(row.Status)))
	return nil
}

func (r *Reconciler) findByKey(ctx context.Context, chatID, messageID string) (m msglog.Match, found bool, err error) {
	err = retryIdempotent(ctx, r.attempts, r.backoff, func() error {
		m, found, err = r.locator.FindByKey(ctx, chatID, messageID)
		return err
	})
	if err != nil {
		telemetry.IncStoreError("read", ClassifyStoreError(err).String())
	}
	return m, found, err
}

func (r *Reconciler) findByMessageIDOnly(ctx context.Context, messageID string) (row int, found bool, err error) {
	err = retryIdempotent(ctx, r.attempts, r.backoff, func() error {
		row, found, err = r.locator.FindByMessageIDOnly(ctx, messageID)
		return err
	})
	if err != nil {
		telemetry.IncStoreError("read", ClassifyStoreError(err).String())
	}
	return row, found, err
}

func (r *Reconciler) readRow(ctx context.Context, at int) (row msglog.Row, err error) {
	err = retryIdempotent(ctx, r.attempts, r.backoff, func() error {
		row, err = r.locator.ReadRow(ctx, at)
		return err
	})
	if err != nil {
		telemetry.IncStoreError("read", ClassifyStoreError(err).String())
	}
	return row, err
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
