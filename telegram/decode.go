package telegram

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned by Decode for payloads that are not valid JSON.
var ErrInvalidJSON = errors.New("telegram: invalid update json")

// Decode parses one TL plain-object update. A top-level JSON array is treated
// as an anonymous container. Unknown constructors decode to *UnknownUpdate.
func Decode(data []byte) (Update, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return decodeUpdate(gjson.ParseBytes(data)), nil
}

func decodeUpdate(r gjson.Result) Update {
	if r.IsArray() {
		return &Updates{Name: "updates", Updates: decodeUpdateList(r)}
	}
	name := r.Get("_").String()
	switch name {
	case "updates", "updatesCombined":
		return &Updates{
			Name:    name,
			Updates: decodeUpdateList(r.Get("updates")),
			Users:   decodeEntities(r.Get("users")),
			Chats:   decodeEntities(r.Get("chats")),
		}
	case "updateShort":
		return &Updates{Name: name, Updates: []Update{decodeUpdate(r.Get("update"))}}
	case "updateShortMessage":
		return &UpdateShortMessage{
			ID:     r.Get("id").Int(),
			UserID: r.Get("user_id").Int(),
			Text:   r.Get("message").String(),
		}
	case "updateShortChatMessage":
		return &UpdateShortChatMessage{
			ID:     r.Get("id").Int(),
			FromID: r.Get("from_id").Int(),
			ChatID: r.Get("chat_id").Int(),
			Text:   r.Get("message").String(),
		}
	case "updateNewMessage":
		return &UpdateNewMessage{Message: decodeMessage(r.Get("message"))}
	case "updateNewChannelMessage":
		return &UpdateNewChannelMessage{Message: decodeMessage(r.Get("message"))}
	case "updateEditMessage":
		return &UpdateEditMessage{Message: decodeMessage(r.Get("message"))}
	case "updateEditChannelMessage":
		return &UpdateEditChannelMessage{Message: decodeMessage(r.Get("message"))}
	case "updateDeleteMessages":
		return &UpdateDeleteMessages{Messages: decodeIDs(r.Get("messages"))}
	case "updateDeleteChannelMessages":
		return &UpdateDeleteChannelMessages{
			ChannelID: r.Get("channel_id").Int(),
			Messages:  decodeIDs(r.Get("messages")),
		}
	default:
		return &UnknownUpdate{Name: name}
	}
}

func decodeUpdateList(r gjson.Result) []Update {
	if !r.IsArray() {
		return nil
	}
	arr := r.Array()
	out := make([]Update, 0, len(arr))
	for _, item := range arr {
		out = append(out, decodeUpdate(item))
	}
	return out
}

// decodeMessage returns nil for messageEmpty and non-objects.
func decodeMessage(r gjson.Result) *Message {
	if !r.IsObject() {
		return nil
	}
	switch r.Get("_").String() {
	case "message", "messageService":
	default:
		return nil
	}
	return &Message{
		ID:         r.Get("id").Int(),
		PeerID:     decodePeer(r.Get("peer_id")),
		FromID:     decodePeer(r.Get("from_id")),
		Text:       r.Get("message").String(),
		Post:       r.Get("post").Bool(),
		PostAuthor: r.Get("post_author").String(),
		EditDate:   r.Get("edit_date").Int(),
		Service:    r.Get("_").String() == "messageService",
	}
}

// decodePeer converts known peer objects to their typed form and leaves
// anything else as the raw gjson value so ResolvePeer can fail soft on it.
func decodePeer(r gjson.Result) any {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	kind, id, ok := classifyJSONPeer(r)
	if !ok {
		return r
	}
	switch kind {
	case KindUser:
		return &PeerUser{UserID: id}
	case KindChat:
		return &PeerChat{ChatID: id}
	case KindChannel:
		return &PeerChannel{ChannelID: id}
	}
	return r
}

func decodeIDs(r gjson.Result) []int64 {
	if !r.IsArray() {
		return nil
	}
	arr := r.Array()
	ids := make([]int64, 0, len(arr))
	for _, v := range arr {
		if id := v.Int(); id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func decodeEntities(r gjson.Result) []Entity {
	if !r.IsArray() {
		return nil
	}
	var out []Entity
	r.ForEach(func(_, v gjson.Result) bool {
		if id := v.Get("id").Int(); id != 0 {
			out = append(out, Entity{
				Kind:      entityKind(v.Get("_").String()),
				ID:        id,
				Title:     v.Get("title").String(),
				Username:  v.Get("username").String(),
				FirstName: v.Get("first_name").String(),
				LastName:  v.Get("last_name").String(),
				Phone:     v.Get("phone").String(),
			})
		}
		return true
	})
	return out
}

func entityKind(tag string) PeerKind {
	switch tag {
	case "user", "userEmpty":
		return KindUser
	case "chat", "chatForbidden", "chatEmpty":
		return KindChat
	case "channel", "channelForbidden":
		return KindChannel
	}
	return KindAny
}
