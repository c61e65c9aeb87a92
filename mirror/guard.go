package mirror

import (
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// GuardKey identifies one logical transition.
type GuardKey struct {
	ChatID    string
	MessageID string
	Kind      Kind
	Content   uint64
	Revision  int64
}

// KeyFor derives the guard key of an event. Deletes ignore text; edits also
// carry their revision so editing back to an earlier text is a new
// transition.
func KeyFor(ev MessageEvent) GuardKey {
	k := GuardKey{ChatID: ev.ChatID, MessageID: ev.MessageID, Kind: ev.Kind}
	if ev.Kind != KindDeleted {
		k.Content = xxhash.Sum64String(ev.Text)
	}
	if ev.Kind == KindEdited {
		k.Revision = ev.Revision
	}
	return k
}

func (k GuardKey) String() string {
	return k.ChatID + "/" + k.MessageID + "/" + string(k.Kind) + "/" +
		strconv.FormatUint(k.Content, 16) + "/" + strconv.FormatInt(k.Revision, 10)
}

// Guard lets exactly one reconciliation per transition proceed. A key is
// held while its reconciliation is in flight and remembered for ttl after it
// completes, so redeliveries through a second callback path become no-ops
// whether they race the first or trail it.
type Guard struct {
	ttl time.Duration

	mu       sync.Mutex
	inFlight map[GuardKey]struct{}
	done     map[GuardKey]time.Time
	lastGC   time.Time

	locks keyedMutex
}

func NewGuard(ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Guard{
		ttl:      ttl,
		inFlight: make(map[GuardKey]struct{}),
		done:     make(map[GuardKey]time.Time),
		locks:    keyedMutex{m: make(map[string]*lockEntry)},
	}
}

// Begin claims k. When ok is false another delivery owns or already finished
// the transition. Otherwise finish must be called exactly once: success
// remembers the key, failure releases it so a redelivery may retry.
func (g *Guard) Begin(k GuardKey) (finish func(success bool), ok bool) {
	now := time.Now()
	g.mu.Lock()
	g.gcLocked(now)
	if _, busy := g.inFlight[k]; busy {
		g.mu.Unlock()
		return nil, false
	}
	if at, seen := g.done[k]; seen && now.Sub(at) < g.ttl {
		g.mu.Unlock()
		return nil, false
	}
	g.inFlight[k] = struct{}{}
	g.mu.Unlock()

	var once sync.Once
	return func(success bool) {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.inFlight, k)
			if success {
				g.done[k] = time.Now()
			}
		})
	}, true
}

// Lock serializes work on one message id. Deletes may arrive without a chat,
// so the lock ignores it; ids shared across chats only cost some contention.
func (g *Guard) Lock(messageID string) (unlock func()) {
	return g.locks.lock(messageID)
}

func (g *Guard) gcLocked(now time.Time) {
	if now.Sub(g.lastGC) < g.ttl/4 {
		return
	}
	g.lastGC = now
	for k, at := range g.done {
		if now.Sub(at) >= g.ttl {
			delete(g.done, k)
		}
	}
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and drops it when unused.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

func (km *keyedMutex) lock(key string) func() {
	km.mu.Lock()
	e, ok := km.m[key]
	if !ok {
		e = &lockEntry{}
		km.m[key] = e
	}
	e.refs++
	km.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		km.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(km.m, key)
		}
		km.mu.Unlock()
	}
}
