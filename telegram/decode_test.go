package telegram

import (
	"errors"
	"testing"
)

func TestDecodeVariants(t *testing.T) {
	tests := []struct {
		payload string
		variant string
	}{
		{`{"_":"updateShortMessage","id":1,"user_id":2,"message":"a"}`, "updateShortMessage"},
		{`{"_":"updateShortChatMessage","id":1,"from_id":2,"chat_id":3,"message":"a"}`, "updateShortChatMessage"},
		{`{"_":"updateNewMessage","message":{"_":"message","id":1}}`, "updateNewMessage"},
		{`{"_":"updateNewChannelMessage","message":{"_":"message","id":1}}`, "updateNewChannelMessage"},
		{`{"_":"updateEditMessage","message":{"_":"message","id":1}}`, "updateEditMessage"},
		{`{"_":"updateEditChannelMessage","message":{"_":"message","id":1}}`, "updateEditChannelMessage"},
		{`{"_":"updateDeleteMessages","messages":[1,2]}`, "updateDeleteMessages"},
		{`{"_":"updateDeleteChannelMessages","channel_id":5,"messages":[1]}`, "updateDeleteChannelMessages"},
		{`{"_":"updates","updates":[],"users":[],"chats":[]}`, "updates"},
		{`{"_":"updatesCombined","updates":[]}`, "updatesCombined"},
		{`{"_":"updateShort","update":{"_":"updateUserTyping"}}`, "updateShort"},
		{`[{"_":"updateUserTyping"}]`, "updates"},
		{`{"_":"updateUserStatus","user_id":1}`, "updateUserStatus"},
		{`{}`, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			u, err := Decode([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got := u.Variant(); got != tt.variant {
				t.Errorf("Variant() = %q, want %q", got, tt.variant)
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode([]byte(`{"_":`)); !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("err = %v, want ErrInvalidJSON", err)
	}
}

func TestDecodeMessageFields(t *testing.T) {
	u, err := Decode([]byte(`{"_":"updateNewChannelMessage","message":{"_":"message","id":77,
		"peer_id":{"_":"peerChannel","channel_id":100},"from_id":{"_":"peerUser","user_id":5},
		"message":"hello","post":true,"post_author":"Ed"}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	nm, ok := u.(*UpdateNewChannelMessage)
	if !ok || nm.Message == nil {
		t.Fatalf("decoded %T", u)
	}
	m := nm.Message
	if m.ID != 77 || m.Text != "hello" || !m.Post || m.PostAuthor != "Ed" || m.Service {
		t.Errorf("message = %+v", m)
	}
	if p, ok := m.PeerID.(*PeerChannel); !ok || p.ChannelID != 100 {
		t.Errorf("peer = %#v", m.PeerID)
	}
	if p, ok := m.FromID.(*PeerUser); !ok || p.UserID != 5 {
		t.Errorf("from = %#v", m.FromID)
	}
}

func TestDecodeServiceAndEmpty(t *testing.T) {
	u, _ := Decode([]byte(`{"_":"updateNewMessage","message":{"_":"messageService","id":3,"peer_id":{"_":"peerChat","chat_id":4}}}`))
	if m := u.(*UpdateNewMessage).Message; m == nil || !m.Service {
		t.Errorf("service message = %+v", m)
	}
	u, _ = Decode([]byte(`{"_":"updateNewMessage","message":{"_":"messageEmpty","id":3}}`))
	if m := u.(*UpdateNewMessage).Message; m != nil {
		t.Errorf("messageEmpty decoded to %+v", m)
	}
}

func TestDecodeContainerEntities(t *testing.T) {
	u, err := Decode([]byte(`{"_":"updates",
		"updates":[{"_":"updateDeleteChannelMessages","channel_id":9,"messages":[1,0,2]}],
		"users":[{"_":"user","id":1,"first_name":"A","username":"a","phone":"123"}],
		"chats":[{"_":"channel","id":9,"title":"T"},{"_":"chat","id":0}]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	c := u.(*Updates)
	if len(c.Users) != 1 || c.Users[0].Kind != KindUser || c.Users[0].Phone != "123" {
		t.Errorf("users = %+v", c.Users)
	}
	if len(c.Chats) != 1 || c.Chats[0].Kind != KindChannel || c.Chats[0].Title != "T" {
		t.Errorf("chats = %+v", c.Chats)
	}
	del := c.Updates[0].(*UpdateDeleteChannelMessages)
	if del.ChannelID != 9 || len(del.Messages) != 2 {
		t.Errorf("delete = %+v", del)
	}
}

func TestDecodeEditDate(t *testing.T) {
	u, err := Decode([]byte(`{"_":"updateEditMessage","message":{"_":"message","id":3,"peer_id":{"_":"peerUser","user_id":1},"message":"x","edit_date":1700000123}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	em, ok := u.(*UpdateEditMessage)
	if !ok || em.Message == nil || em.Message.EditDate != 1700000123 {
		t.Fatalf("decoded %+v", u)
	}
}
