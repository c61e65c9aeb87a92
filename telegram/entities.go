package telegram

import (
	"context"
	"errors"
	"sync"
)

// ErrEntityNotFound is returned when no entity is known for a peer.
var ErrEntityNotFound = errors.New("telegram: entity not found")

type entityKey struct {
	kind PeerKind
	id   int64
}

// EntityCache remembers the users and chats the server attached to update
// containers. The server always sends the entities a container references,
// so the cache is sufficient for labeling messages from that container.
type EntityCache struct {
	mu sync.RWMutex
	m  map[entityKey]Entity
}

func NewEntityCache() *EntityCache {
	return &EntityCache{m: make(map[entityKey]Entity)}
}

// Put stores entities, replacing earlier versions with the same kind and id.
func (c *EntityCache) Put(ents ...Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range ents {
		if e.ID == 0 {
			continue
		}
		c.m[entityKey{e.Kind, e.ID}] = e
	}
}

// GetEntity looks up the entity for any peer reference ResolvePeer accepts.
// Bare identifiers match the first of channel, chat, user that is cached.
func (c *EntityCache) GetEntity(_ context.Context, ref any) (*Entity, error) {
	kind, id, ok := classifyPeer(ref)
	if !ok {
		return nil, ErrEntityNotFound
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	kinds := []PeerKind{kind}
	if kind == KindAny {
		kinds = []PeerKind{KindChannel, KindChat, KindUser, KindAny}
	}
	for _, k := range kinds {
		if e, ok := c.m[entityKey{k, id}]; ok {
			return &e, nil
		}
	}
	return nil, ErrEntityNotFound
}

// Len reports the number of cached entities.
func (c *EntityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
