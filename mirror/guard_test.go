package mirror

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyFor(t *testing.T) {
	a := KeyFor(MessageEvent{ChatID: "1", MessageID: "2", Kind: KindEdited, Text: "x"})
	b := KeyFor(MessageEvent{ChatID: "1", MessageID: "2", Kind: KindEdited, Text: "y"})
	if a == b {
		t.Error("different edit texts share a key")
	}
	d1 := KeyFor(MessageEvent{ChatID: "1", MessageID: "2", Kind: KindDeleted, Text: "x"})
	d2 := KeyFor(MessageEvent{ChatID: "1", MessageID: "2", Kind: KindDeleted})
	if d1 != d2 {
		t.Error("delete keys depend on text")
	}
	if a.String() == "" {
		t.Error("empty key string")
	}

	r1 := KeyFor(MessageEvent{ChatID: "1", MessageID: "2", Kind: KindEdited, Text: "x", Revision: 1700000000})
	r2 := KeyFor(MessageEvent{ChatID: "1", MessageID: "2", Kind: KindEdited, Text: "x", Revision: 1700000060})
	if r1 == r2 {
		t.Error("edits with different revisions share a key")
	}
	n1 := KeyFor(MessageEvent{ChatID: "1", MessageID: "2", Kind: KindReceived, Text: "x", Revision: 5})
	n2 := KeyFor(MessageEvent{ChatID: "1", MessageID: "2", Kind: KindReceived, Text: "x"})
	if n1 != n2 {
		t.Error("received keys depend on revision")
	}
}

func TestGuardBegin(t *testing.T) {
	g := NewGuard(time.Minute)
	k := GuardKey{ChatID: "1", MessageID: "2", Kind: KindReceived}

	finish, ok := g.Begin(k)
	if !ok {
		t.Fatal("first Begin rejected")
	}
	if _, ok := g.Begin(k); ok {
		t.Fatal("Begin accepted while in flight")
	}
	finish(true)
	finish(true) // second call is a no-op
	if _, ok := g.Begin(k); ok {
		t.Fatal("Begin accepted a completed key within ttl")
	}
}

func TestGuardFailureReleases(t *testing.T) {
	g := NewGuard(time.Minute)
	k := GuardKey{ChatID: "1", MessageID: "2", Kind: KindReceived}
	finish, _ := g.Begin(k)
	finish(false)
	if _, ok := g.Begin(k); !ok {
		t.Fatal("failed transition was not released")
	}
}

func TestGuardExpiry(t *testing.T) {
	g := NewGuard(20 * time.Millisecond)
	k := GuardKey{ChatID: "1", MessageID: "2", Kind: KindReceived}
	finish, _ := g.Begin(k)
	finish(true)
	time.Sleep(30 * time.Millisecond)
	if _, ok := g.Begin(k); !ok {
		t.Fatal("key still remembered after ttl")
	}
}

func TestGuardLockSerializes(t *testing.T) {
	g := NewGuard(time.Minute)
	var (
		inside int32
		peak   int32
		wg     sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := g.Lock("2")
			defer unlock()
			n := atomic.AddInt32(&inside, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()
	if peak != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak)
	}
	g.locks.mu.Lock()
	defer g.locks.mu.Unlock()
	if len(g.locks.m) != 0 {
		t.Errorf("lock entries leaked: %d", len(g.locks.m))
	}
}
