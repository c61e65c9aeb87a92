package telegram

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
)

// PeerKind tells which namespace a peer identifier lives in.
type PeerKind string

const (
	KindUser    PeerKind = "user"
	KindChat    PeerKind = "chat"
	KindChannel PeerKind = "channel"
	// KindAny is a bare identifier with no namespace tag.
	KindAny PeerKind = ""
)

// ResolvePeer maps any known peer reference shape to its canonical chat
// identifier. Recognized shapes:
//
//	PeerUser, PeerChat, PeerChannel (value or pointer)
//	{"_":"peerUser","user_id":N}, {"_":"peerChat","chat_id":N},
//	{"_":"peerChannel","channel_id":N} as gjson.Result, map[string]any,
//	json.RawMessage or []byte
//	a bare numeric identifier
//
// Unknown shapes, nil and zero ids yield (0, false).
func ResolvePeer(ref any) (int64, bool) {
	_, id, ok := classifyPeer(ref)
	return id, ok
}

// FormatChatID renders a chat identifier the way it is stored in the log.
func FormatChatID(id int64) string { return strconv.FormatInt(id, 10) }

func classifyPeer(ref any) (PeerKind, int64, bool) {
	var (
		kind PeerKind
		id   int64
	)
	switch p := ref.(type) {
	case nil:
		return KindAny, 0, false
	case *PeerUser:
		if p == nil {
			return KindAny, 0, false
		}
		kind, id = KindUser, p.UserID
	case PeerUser:
		kind, id = KindUser, p.UserID
	case *PeerChat:
		if p == nil {
			return KindAny, 0, false
		}
		kind, id = KindChat, p.ChatID
	case PeerChat:
		kind, id = KindChat, p.ChatID
	case *PeerChannel:
		if p == nil {
			return KindAny, 0, false
		}
		kind, id = KindChannel, p.ChannelID
	case PeerChannel:
		kind, id = KindChannel, p.ChannelID
	case gjson.Result:
		return classifyJSONPeer(p)
	case json.RawMessage:
		return classifyJSONPeer(gjson.ParseBytes(p))
	case []byte:
		return classifyJSONPeer(gjson.ParseBytes(p))
	case map[string]any:
		return classifyMapPeer(p)
	case int:
		kind, id = KindAny, int64(p)
	case int32:
		kind, id = KindAny, int64(p)
	case int64:
		kind, id = KindAny, p
	case float64:
		if p != math.Trunc(p) {
			return KindAny, 0, false
		}
		kind, id = KindAny, int64(p)
	case json.Number:
		n, err := p.Int64()
		if err != nil {
			return KindAny, 0, false
		}
		kind, id = KindAny, n
	default:
		return KindAny, 0, false
	}
	if id == 0 {
		return KindAny, 0, false
	}
	return kind, id, true
}

func classifyJSONPeer(r gjson.Result) (PeerKind, int64, bool) {
	if r.Type == gjson.Number {
		if id := r.Int(); id != 0 {
			return KindAny, id, true
		}
		return KindAny, 0, false
	}
	if !r.IsObject() {
		return KindAny, 0, false
	}
	var kind PeerKind
	var field string
	switch r.Get("_").String() {
	case "peerUser":
		kind, field = KindUser, "user_id"
	case "peerChat":
		kind, field = KindChat, "chat_id"
	case "peerChannel":
		kind, field = KindChannel, "channel_id"
	default:
		return KindAny, 0, false
	}
	id := r.Get(field).Int()
	if id == 0 {
		return KindAny, 0, false
	}
	return kind, id, true
}

func classifyMapPeer(m map[string]any) (PeerKind, int64, bool) {
	tag, _ := m["_"].(string)
	var kind PeerKind
	var field string
	switch tag {
	case "peerUser":
		kind, field = KindUser, "user_id"
	case "peerChat":
		kind, field = KindChat, "chat_id"
	case "peerChannel":
		kind, field = KindChannel, "channel_id"
	default:
		return KindAny, 0, false
	}
	_, id, ok := classifyPeer(m[field])
	if !ok {
		return KindAny, 0, false
	}
	return kind, id, true
}
