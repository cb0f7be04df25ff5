package redis

import (
	"context"

	"github.com/petgalaxy/classroom-pets/internal/domain/leaderboard"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/pkg/circuitbreaker"
)

// GuardedCache runs every call of a leaderboard.Cache through a circuit
// breaker. Misses do not count as failures. While the circuit is open calls
// fail at once with shared.ErrServiceUnavailable.
type GuardedCache struct {
	next    leaderboard.Cache
	breaker *circuitbreaker.CircuitBreaker
}

var _ leaderboard.Cache = (*GuardedCache)(nil)

// NewGuardedCache wraps next in a circuitbreaker.CacheBreaker. opts are
// applied on top of the preset.
func NewGuardedCache(next leaderboard.Cache, opts ...circuitbreaker.Option) *GuardedCache {
	opts = append([]circuitbreaker.Option{circuitbreaker.WithIsFailure(missIsNotFailure)}, opts...)
	return &GuardedCache{
		next:    next,
		breaker: circuitbreaker.CacheBreaker("leaderboard-cache", opts...),
	}
}

func missIsNotFailure(err error) bool {
	return !shared.IsNotFound(err)
}

// StoreSnapshot implements leaderboard.Cache.
func (g *GuardedCache) StoreSnapshot(ctx context.Context, snap leaderboard.Snapshot) error {
	return g.run(ctx, "StoreSnapshot", func(ctx context.Context) error {
		return g.next.StoreSnapshot(ctx, snap)
	})
}

// LoadSnapshot implements leaderboard.Cache.
func (g *GuardedCache) LoadSnapshot(ctx context.Context) (*leaderboard.Snapshot, error) {
	var snap *leaderboard.Snapshot
	err := g.run(ctx, "LoadSnapshot", func(ctx context.Context) error {
		var err error
		snap, err = g.next.LoadSnapshot(ctx)
		return err
	})
	return snap, err
}

// Invalidate implements leaderboard.Cache.
func (g *GuardedCache) Invalidate(ctx context.Context) error {
	return g.run(ctx, "Invalidate", g.next.Invalidate)
}

// State reports the breaker state.
func (g *GuardedCache) State() circuitbreaker.State {
	return g.breaker.State()
}

func (g *GuardedCache) run(ctx context.Context, op string, fn func(context.Context) error) error {
	err := g.breaker.Execute(ctx, fn)
	if circuitbreaker.IsRejected(err) {
		return shared.WrapError("redis", op, shared.ErrServiceUnavailable, "cache circuit open", err)
	}
	return err
}
