package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/Muzaffarxon04/tg-message-archiver/telemetry"
)

// ErrNotConnected is returned by Ingest before Connect authorized the relay.
var ErrNotConnected = errors.New("telegram: relay not connected")

// Relay is a transport fed by an MTProto session running outside this
// process. The session pushes raw TL plain-object updates which Ingest
// decodes and fans out through the embedded Dispatcher. Entities attached to
// containers populate the cache used for GetEntity.
type Relay struct {
	*Dispatcher

	entities   *EntityCache
	token      string
	authorized atomic.Bool
}

// NewRelay creates a relay that authenticates pushes with token.
func NewRelay(token string) *Relay {
	return &Relay{Dispatcher: NewDispatcher(), entities: NewEntityCache(), token: token}
}

// Connect authorizes the relay. A relay without a shared token cannot
// authenticate its upstream session and reports unauthorized.
func (r *Relay) Connect(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if r.token == "" {
		r.authorized.Store(false)
		return false, nil
	}
	r.authorized.Store(true)
	slog.Info("telegram relay authorized", slog.String("component", "telegram"))
	return true, nil
}

// Authorized reports whether Connect succeeded.
func (r *Relay) Authorized() bool { return r.authorized.Load() }

// Token returns the shared secret upstream pushes must present.
func (r *Relay) Token() string { return r.token }

// GetEntity resolves a peer against entities seen so far.
func (r *Relay) GetEntity(ctx context.Context, ref any) (*Entity, error) {
	return r.entities.GetEntity(ctx, ref)
}

// Entities exposes the cache, mostly for seeding from a dialogs dump.
func (r *Relay) Entities() *EntityCache { return r.entities }

// Ingest decodes one pushed payload and dispatches it. It returns the decoded
// update so callers can report the variant.
func (r *Relay) Ingest(ctx context.Context, payload []byte) (Update, error) {
	if !r.Authorized() {
		return nil, ErrNotConnected
	}
	u, err := Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode update: %w", err)
	}
	r.cacheEntities(u)
	telemetry.SetEntitiesCached(r.entities.Len())
	r.Dispatch(ctx, u)
	return u, nil
}

func (r *Relay) cacheEntities(u Update) {
	c, ok := u.(*Updates)
	if !ok {
		return
	}
	r.entities.Put(c.Users...)
	r.entities.Put(c.Chats...)
	for _, inner := range c.Updates {
		r.cacheEntities(inner)
	}
}
