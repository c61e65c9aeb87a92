package mirror

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Muzaffarxon04/tg-message-archiver/telegram"
)

// EntityLookup resolves a peer reference to its entity.
type EntityLookup interface {
	GetEntity(ctx context.Context, ref any) (*telegram.Entity, error)
}

// Labeler produces the best-effort "from" label of a message. Lookups that
// fail degrade to an empty label; labeling never blocks recording.
type Labeler struct {
	lookup EntityLookup
}

func NewLabeler(lookup EntityLookup) *Labeler { return &Labeler{lookup: lookup} }

// labelInput memoizes the entity lookups a single Label call needs so that
// strategies can share them.
type labelInput struct {
	ctx    context.Context
	l      *Labeler
	msg    *telegram.Message
	chat   *telegram.Entity
	sender *telegram.Entity
	loaded struct{ chat, sender bool }
}

func (in *labelInput) chatEntity() *telegram.Entity {
	if !in.loaded.chat {
		in.loaded.chat = true
		in.chat = in.l.get(in.ctx, in.msg.PeerID)
	}
	return in.chat
}

func (in *labelInput) senderEntity() *telegram.Entity {
	if !in.loaded.sender {
		in.loaded.sender = true
		if in.msg.FromID != nil {
			in.sender = in.l.get(in.ctx, in.msg.FromID)
		}
	}
	return in.sender
}

type labelStrategy func(in *labelInput) string

// strategies are tried in order; the first non-empty label wins.
var strategies = []labelStrategy{
	titledChatLabel,
	func(in *labelInput) string { return personLabel(in.senderEntity()) },
	func(in *labelInput) string {
		if c := in.chatEntity(); c != nil && c.Username != "" {
			return "@" + c.Username
		}
		return ""
	},
	func(in *labelInput) string {
		if c := in.chatEntity(); c != nil {
			return fullName(c)
		}
		return ""
	},
	func(in *labelInput) string {
		if c := in.chatEntity(); c != nil && c.ID != 0 {
			return strconv.FormatInt(c.ID, 10)
		}
		return ""
	},
	func(in *labelInput) string {
		if in.msg.Post {
			return in.msg.PostAuthor
		}
		return ""
	},
}

// Label labels a full message. Groups and channels get
// "title[ | @username][ | sender]"; one-to-one chats prefer the sender, then
// the chat's username, display name and raw id.
func (l *Labeler) Label(ctx context.Context, msg *telegram.Message) string {
	if msg == nil {
		return ""
	}
	in := &labelInput{ctx: ctx, l: l, msg: msg}
	for _, s := range strategies {
		if v := strings.TrimSpace(s(in)); v != "" {
			return v
		}
	}
	return ""
}

// ShortLabel labels the compact one-to-one form, which only carries a user id.
func (l *Labeler) ShortLabel(ctx context.Context, userID int64) string {
	u := l.get(ctx, &telegram.PeerUser{UserID: userID})
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return fullName(u)
}

// ShortChatLabel labels the compact group form: "name | @username | title".
func (l *Labeler) ShortChatLabel(ctx context.Context, fromID, chatID int64) string {
	var parts []string
	if u := l.get(ctx, &telegram.PeerUser{UserID: fromID}); u != nil {
		if n := fullName(u); n != "" {
			parts = append(parts, n)
		}
		if u.Username != "" {
			parts = append(parts, "@"+u.Username)
		}
	}
	if c := l.get(ctx, &telegram.PeerChat{ChatID: chatID}); c != nil && c.Title != "" {
		parts = append(parts, c.Title)
	}
	return strings.Join(parts, " | ")
}

func (l *Labeler) get(ctx context.Context, ref any) *telegram.Entity {
	if l == nil || l.lookup == nil || ref == nil {
		return nil
	}
	e, err := l.lookup.GetEntity(ctx, ref)
	if err != nil {
		slog.Debug("entity lookup failed", slog.Any("err", err), slog.String("component", "labeler"))
		return nil
	}
	return e
}

func titledChatLabel(in *labelInput) string {
	c := in.chatEntity()
	if c == nil || c.Title == "" {
		return ""
	}
	parts := []string{c.Title}
	if c.Username != "" {
		parts = append(parts, "@"+c.Username)
	}
	if s := personLabel(in.senderEntity()); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " | ")
}

// personLabel is "first last[ | @username][ | +phone]".
func personLabel(e *telegram.Entity) string {
	if e == nil {
		return ""
	}
	var parts []string
	if n := fullName(e); n != "" {
		parts = append(parts, n)
	}
	if e.Username != "" {
		parts = append(parts, "@"+e.Username)
	}
	if e.Phone != "" {
		phone := e.Phone
		if !strings.HasPrefix(phone, "+") {
			phone = "+" + phone
		}
		parts = append(parts, phone)
	}
	return strings.Join(parts, " | ")
}

func fullName(e *telegram.Entity) string {
	return strings.TrimSpace(strings.Join(nonEmpty(e.FirstName, e.LastName), " "))
}

func nonEmpty(ss ...string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
