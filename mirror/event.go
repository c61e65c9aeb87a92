// Package mirror turns a chat update stream into row-level state transitions
// of the message log. Normalizer reduces every delivered update to canonical
// MessageEvents, and Reconciler applies them to a msglog.Table with
// at-most-once-per-transition semantics.
package mirror

import (
	"time"
	"unicode/utf8"

	"github.com/Muzaffarxon04/tg-message-archiver/msglog"
)

// Kind is the lifecycle transition an event requests.
type Kind string

const (
	KindReceived Kind = "received"
	KindEdited   Kind = "edited"
	KindDeleted  Kind = "deleted"
)

// Status maps the transition onto the status column.
func (k Kind) Status() msglog.Status { return msglog.Status(k) }

// MessageEvent is the canonical unit the reconciler operates on.
type MessageEvent struct {
	ChatID    string // empty when a delete notification carried no chat
	MessageID string
	Kind      Kind
	Text      string
	From      string
	Timestamp string // RFC 3339 observation time
	// Revision distinguishes successive edits of one message (the
	// transport's edit_date). Zero when unknown.
	Revision int64
}

// Valid reports whether the event carries the identifiers its kind needs.
// Deletes may omit the chat id.
func (e MessageEvent) Valid() bool {
	if e.MessageID == "" {
		return false
	}
	switch e.Kind {
	case KindReceived, KindEdited:
		return e.ChatID != ""
	case KindDeleted:
		return true
	}
	return false
}

// Now is the observation clock. Tests replace it.
var Now = func() time.Time { return time.Now().UTC() }

// TimestampLayout is the observation timestamp format written to the log.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string { return t.UTC().Format(TimestampLayout) }

func nowISO() string { return FormatTimestamp(Now()) }

// DefaultTextLimit is the display budget for message text in logs.
const DefaultTextLimit = 100

// Truncate caps s at max runes and appends an ellipsis when it cut. It is
// meant for log output only; persisted text is never truncated.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "…"
		}
		n++
	}
	return s
}
