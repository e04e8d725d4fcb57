// Package guard deduplicates lead submissions. It prefers a shared store with
// atomic set-if-absent semantics and falls back to a process-local store when
// the shared one is unreachable at startup.
//
// In the local tier, duplicates that arrive at different replicas, or after a
// restart, are admitted again. After construction the guard never blocks a
// submission because of a store error: a failed check admits the key.
package guard

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-router/internal/store"
)

// Tier identifies which store backs the guard.
type Tier string

const (
	TierShared Tier = "shared"
	TierLocal  Tier = "local"
)

// ErrEmptyKey is returned by Release for an empty key.
var ErrEmptyKey = eris.New("guard: empty idempotency key")

// pingTimeout bounds the reachability probe at construction.
const pingTimeout = 3 * time.Second

// Guard admits each distinct key at most once per ttl window.
type Guard struct {
	st   store.Store
	tier Tier
	log  *zap.Logger
}

// LocalFactory builds the process-local fallback store.
type LocalFactory func() (store.Store, error)

// New selects the tier once. If primary answers Ping (and migrates), it is
// used; otherwise primary is closed and a store from local is used.
// A nil primary selects the local tier directly.
func New(ctx context.Context, primary store.Store, local LocalFactory) (*Guard, error) {
	log := zap.L().With(zap.String("component", "guard"))

	if primary != nil {
		err := probe(ctx, primary)
		if err == nil {
			log.Info("guard: using shared store")
			return &Guard{st: primary, tier: TierShared, log: log}, nil
		}
		log.Warn("guard: shared store unavailable, falling back to process-local store; duplicates across replicas and restarts will not be detected",
			zap.Error(err),
		)
		_ = primary.Close()
	}

	if local == nil {
		local = func() (store.Store, error) { return store.NewMemory() }
	}
	st, err := local()
	if err != nil {
		return nil, eris.Wrap(err, "guard: open local store")
	}
	return &Guard{st: st, tier: TierLocal, log: log}, nil
}

func probe(ctx context.Context, st store.Store) error {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := st.Ping(pctx); err != nil {
		return err
	}
	return st.Migrate(pctx)
}

// Tier reports which store was selected at construction.
func (g *Guard) Tier() Tier {
	return g.tier
}

// Admit returns true the first time key is seen within ttl and false on
// every repeat. An empty key is never admitted. Store errors admit the key.
func (g *Guard) Admit(ctx context.Context, key string, ttl time.Duration) bool {
	if key == "" {
		return false
	}
	ok, err := g.st.SetIfAbsent(ctx, key, ttl)
	if err != nil {
		g.log.Warn("guard: check failed, admitting submission",
			zap.String("key", key),
			zap.String("tier", string(g.tier)),
			zap.Error(err),
		)
		return true
	}
	return ok
}

// AdmittedAt returns when key was admitted, if it is still live.
func (g *Guard) AdmittedAt(ctx context.Context, key string) (time.Time, bool) {
	if key == "" {
		return time.Time{}, false
	}
	at, found, err := g.st.AdmittedAt(ctx, key)
	if err != nil {
		g.log.Debug("guard: admitted_at lookup failed", zap.String("key", key), zap.Error(err))
		return time.Time{}, false
	}
	return at, found
}

// Release clears key so the next submission with it is admitted.
func (g *Guard) Release(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return eris.Wrapf(g.st.Delete(ctx, key), "guard: release %s", key)
}

// Prune drops expired keys from stores that keep them until deleted and
// returns how many were removed. Stores with native expiry report zero.
func (g *Guard) Prune(ctx context.Context) (int64, error) {
	p, ok := g.st.(store.Pruner)
	if !ok {
		return 0, nil
	}
	n, err := p.DeleteExpired(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "guard: prune")
	}
	g.log.Info("guard: pruned expired keys", zap.Int64("removed", n), zap.String("tier", string(g.tier)))
	return n, nil
}

// Close releases the underlying store.
func (g *Guard) Close() error {
	return g.st.Close()
}
