// Package telegram models the subset of the MTProto update stream the archiver
// consumes: peer references, messages, entities and a closed set of update
// variants. Updates arrive as TL plain-object JSON (the "_" discriminator form
// emitted by client libraries) and are decoded with Decode.
package telegram

// PeerUser references a one-to-one conversation with a user.
type PeerUser struct{ UserID int64 }

// PeerChat references a basic group.
type PeerChat struct{ ChatID int64 }

// PeerChannel references a broadcast channel or supergroup.
type PeerChannel struct{ ChannelID int64 }

// Message is a full message object (TL "message" or "messageService").
type Message struct {
	ID         int64
	PeerID     any // peer reference, see ResolvePeer
	FromID     any // sender peer reference; nil for anonymous channel posts
	Text       string
	Post       bool
	PostAuthor string
	// EditDate is the unix time of the latest edit; 0 when never edited.
	EditDate int64
	// Service is set for messageService (joins, pins, title changes...).
	Service bool
}

// Entity is what an entity lookup yields for a user, chat or channel.
type Entity struct {
	Kind      PeerKind
	ID        int64
	Title     string
	Username  string
	FirstName string
	LastName  string
	Phone     string
}

// Update is one member of the closed update-variant set.
type Update interface {
	// Variant returns the TL constructor name, e.g. "updateNewMessage".
	Variant() string
}

type UpdateShortMessage struct {
	ID     int64
	UserID int64
	Text   string
}

type UpdateShortChatMessage struct {
	ID     int64
	FromID int64
	ChatID int64
	Text   string
}

type UpdateNewMessage struct{ Message *Message }

type UpdateNewChannelMessage struct{ Message *Message }

type UpdateEditMessage struct{ Message *Message }

type UpdateEditChannelMessage struct{ Message *Message }

// UpdateDeleteMessages carries no chat reference; ids are only unique per chat.
type UpdateDeleteMessages struct{ Messages []int64 }

type UpdateDeleteChannelMessages struct {
	ChannelID int64
	Messages  []int64
}

// Updates is a container ("updates", "updatesCombined", "updateShort").
// Users and Chats are the entities the server attached to the batch.
type Updates struct {
	Name    string
	Updates []Update
	Users   []Entity
	Chats   []Entity
}

// UnknownUpdate is anything outside the known set (typing, read receipts,
// presence, ...). It normalizes to nothing.
type UnknownUpdate struct{ Name string }

func (UpdateShortMessage) Variant() string          { return "updateShortMessage" }
func (UpdateShortChatMessage) Variant() string      { return "updateShortChatMessage" }
func (UpdateNewMessage) Variant() string            { return "updateNewMessage" }
func (UpdateNewChannelMessage) Variant() string     { return "updateNewChannelMessage" }
func (UpdateEditMessage) Variant() string           { return "updateEditMessage" }
func (UpdateEditChannelMessage) Variant() string    { return "updateEditChannelMessage" }
func (UpdateDeleteMessages) Variant() string        { return "updateDeleteMessages" }
func (UpdateDeleteChannelMessages) Variant() string { return "updateDeleteChannelMessages" }

func (u Updates) Variant() string {
	if u.Name == "" {
		return "updates"
	}
	return u.Name
}

func (u UnknownUpdate) Variant() string {
	if u.Name == "" {
		return "unknown"
	}
	return u.Name
}
