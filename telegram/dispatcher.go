package telegram

import (
	"context"
	"sync"
)

// Handler signatures for the typed and catch-all subscriptions.
type (
	MessageHandler func(ctx context.Context, msg *Message)
	DeleteHandler  func(ctx context.Context, chatRef any, ids []int64)
	RawHandler     func(ctx context.Context, u Update)
)

// Dispatcher routes updates to registered callbacks the way MTProto client
// libraries do: every update reaches the typed handlers that match it and,
// independently, every raw handler. The two paths run concurrently and
// Dispatch returns once both have finished.
type Dispatcher struct {
	mu       sync.RWMutex
	onNew    []MessageHandler
	onEdit   []MessageHandler
	onDelete []DeleteHandler
	onRaw    []RawHandler
}

func NewDispatcher() *Dispatcher { return &Dispatcher{} }

func (d *Dispatcher) OnNewMessage(h MessageHandler) {
	d.mu.Lock()
	d.onNew = append(d.onNew, h)
	d.mu.Unlock()
}

func (d *Dispatcher) OnEditedMessage(h MessageHandler) {
	d.mu.Lock()
	d.onEdit = append(d.onEdit, h)
	d.mu.Unlock()
}

func (d *Dispatcher) OnDeletedMessage(h DeleteHandler) {
	d.mu.Lock()
	d.onDelete = append(d.onDelete, h)
	d.mu.Unlock()
}

func (d *Dispatcher) OnRaw(h RawHandler) {
	d.mu.Lock()
	d.onRaw = append(d.onRaw, h)
	d.mu.Unlock()
}

// Dispatch delivers u to the typed path and the raw path.
func (d *Dispatcher) Dispatch(ctx context.Context, u Update) {
	d.mu.RLock()
	onNew, onEdit, onDelete, onRaw := d.onNew, d.onEdit, d.onDelete, d.onRaw
	d.mu.RUnlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.typed(ctx, u, onNew, onEdit, onDelete)
	}()
	go func() {
		defer wg.Done()
		for _, h := range onRaw {
			h(ctx, u)
		}
	}()
	wg.Wait()
}

func (d *Dispatcher) typed(ctx context.Context, u Update, onNew, onEdit []MessageHandler, onDelete []DeleteHandler) {
	switch v := u.(type) {
	case *Updates:
		for _, inner := range v.Updates {
			d.typed(ctx, inner, onNew, onEdit, onDelete)
		}
	case *UpdateShortMessage:
		msg := &Message{ID: v.ID, PeerID: &PeerUser{UserID: v.UserID}, FromID: &PeerUser{UserID: v.UserID}, Text: v.Text}
		for _, h := range onNew {
			h(ctx, msg)
		}
	case *UpdateShortChatMessage:
		msg := &Message{ID: v.ID, PeerID: &PeerChat{ChatID: v.ChatID}, FromID: &PeerUser{UserID: v.FromID}, Text: v.Text}
		for _, h := range onNew {
			h(ctx, msg)
		}
	case *UpdateNewMessage:
		fireMessage(ctx, v.Message, onNew)
	case *UpdateNewChannelMessage:
		fireMessage(ctx, v.Message, onNew)
	case *UpdateEditMessage:
		fireMessage(ctx, v.Message, onEdit)
	case *UpdateEditChannelMessage:
		fireMessage(ctx, v.Message, onEdit)
	case *UpdateDeleteMessages:
		for _, h := range onDelete {
			h(ctx, nil, v.Messages)
		}
	case *UpdateDeleteChannelMessages:
		for _, h := range onDelete {
			h(ctx, &PeerChannel{ChannelID: v.ChannelID}, v.Messages)
		}
	}
}

func fireMessage(ctx context.Context, msg *Message, hs []MessageHandler) {
	if msg == nil {
		return
	}
	for _, h := range hs {
		h(ctx, msg)
	}
}
