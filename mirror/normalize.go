package mirror

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/Muzaffarxon04/tg-message-archiver/telegram"
)

// Normalizer converts updates from either delivery path into MessageEvents.
type Normalizer struct {
	labels    *Labeler
	textLimit int
}

func NewNormalizer(labels *Labeler, textLimit int) *Normalizer {
	if textLimit <= 0 {
		textLimit = DefaultTextLimit
	}
	return &Normalizer{labels: labels, textLimit: textLimit}
}

// Normalize flattens u into events in delivery order. Containers recurse, a
// delete covering N messages yields N events, and anything that is not a
// structured message yields nothing.
func (n *Normalizer) Normalize(ctx context.Context, u telegram.Update) []MessageEvent {
	var out []MessageEvent
	n.collect(ctx, u, &out)
	return out
}

func (n *Normalizer) collect(ctx context.Context, u telegram.Update, out *[]MessageEvent) {
	switch v := u.(type) {
	case *telegram.Updates:
		for _, inner := range v.Updates {
			n.collect(ctx, inner, out)
		}
	case *telegram.UpdateShortMessage:
		if v.UserID == 0 || v.ID == 0 {
			return
		}
		*out = append(*out, MessageEvent{
			ChatID:    telegram.FormatChatID(v.UserID),
			MessageID: formatMessageID(v.ID),
			Kind:      KindReceived,
			Text:      v.Text,
			From:      n.labels.ShortLabel(ctx, v.UserID),
			Timestamp: nowISO(),
		})
	case *telegram.UpdateShortChatMessage:
		if v.ChatID == 0 || v.ID == 0 {
			return
		}
		*out = append(*out, MessageEvent{
			ChatID:    telegram.FormatChatID(v.ChatID),
			MessageID: formatMessageID(v.ID),
			Kind:      KindReceived,
			Text:      v.Text,
			From:      n.labels.ShortChatLabel(ctx, v.FromID, v.ChatID),
			Timestamp: nowISO(),
		})
	case *telegram.UpdateNewMessage:
		n.appendMessage(ctx, KindReceived, v.Message, out)
	case *telegram.UpdateNewChannelMessage:
		n.appendMessage(ctx, KindReceived, v.Message, out)
	case *telegram.UpdateEditMessage:
		n.appendMessage(ctx, KindEdited, v.Message, out)
	case *telegram.UpdateEditChannelMessage:
		n.appendMessage(ctx, KindEdited, v.Message, out)
	case *telegram.UpdateDeleteMessages:
		*out = append(*out, n.NormalizeDeleted(ctx, nil, v.Messages)...)
	case *telegram.UpdateDeleteChannelMessages:
		var ref any
		if v.ChannelID != 0 {
			ref = v.ChannelID
		}
		*out = append(*out, n.NormalizeDeleted(ctx, ref, v.Messages)...)
	default:
		// typing, read receipts, presence...
	}
}

func (n *Normalizer) appendMessage(ctx context.Context, kind Kind, msg *telegram.Message, out *[]MessageEvent) {
	if ev, ok := n.NormalizeMessage(ctx, kind, msg); ok {
		*out = append(*out, ev)
	}
}

// NormalizeMessage builds the event for a full message. Service messages and
// messages without a resolvable chat or id are dropped.
func (n *Normalizer) NormalizeMessage(ctx context.Context, kind Kind, msg *telegram.Message) (MessageEvent, bool) {
	if msg == nil || msg.Service || msg.ID == 0 {
		return MessageEvent{}, false
	}
	chatID, ok := telegram.ResolvePeer(msg.PeerID)
	if !ok {
		return MessageEvent{}, false
	}
	ev := MessageEvent{
		ChatID:    telegram.FormatChatID(chatID),
		MessageID: formatMessageID(msg.ID),
		Kind:      kind,
		Text:      msg.Text,
		From:      n.labels.Label(ctx, msg),
		Timestamp: nowISO(),
	}
	if kind == KindEdited {
		ev.Revision = msg.EditDate
	}
	return ev, true
}

// NormalizeDeleted builds one delete event per id. chatRef may be nil; the
// events then carry an empty chat id.
func (n *Normalizer) NormalizeDeleted(ctx context.Context, chatRef any, ids []int64) []MessageEvent {
	chatID := ""
	if id, ok := telegram.ResolvePeer(chatRef); ok {
		chatID = telegram.FormatChatID(id)
	} else {
		slog.Debug("delete without chat; falling back to message-id matching", slog.Int("ids", len(ids)), slog.String("component", "normalizer"))
	}
	ts := nowISO()
	out := make([]MessageEvent, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		out = append(out, MessageEvent{ChatID: chatID, MessageID: formatMessageID(id), Kind: KindDeleted, Timestamp: ts})
	}
	return out
}

// TextLimit is the display budget used when logging event text.
func (n *Normalizer) TextLimit() int { return n.textLimit }

func formatMessageID(id int64) string { return strconv.FormatInt(id, 10) }
