package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petgalaxy/classroom-pets/internal/domain/leaderboard"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/pkg/circuitbreaker"
)

type flakyCache struct {
	err   error
	calls int
}

func (f *flakyCache) StoreSnapshot(context.Context, leaderboard.Snapshot) error {
	f.calls++
	return f.err
}

func (f *flakyCache) LoadSnapshot(context.Context) (*leaderboard.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &leaderboard.Snapshot{}, nil
}

func (f *flakyCache) Invalidate(context.Context) error {
	f.calls++
	return f.err
}

func TestGuardedCache_OpensOnStorageErrors(t *testing.T) {
	ctx := context.Background()
	inner := &flakyCache{err: shared.WrapError("redis", "LoadSnapshot", shared.ErrStorage, "read snapshot", errors.New("refused"))}
	g := NewGuardedCache(inner, circuitbreaker.WithFailureThreshold(2))

	for range 2 {
		_, err := g.LoadSnapshot(ctx)
		assert.True(t, shared.IsStorage(err))
	}
	require.Equal(t, circuitbreaker.StateOpen, g.State())

	_, err := g.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	assert.ErrorIs(t, g.Invalidate(ctx), shared.ErrServiceUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestGuardedCache_MissesKeepCircuitClosed(t *testing.T) {
	ctx := context.Background()
	inner := &flakyCache{err: shared.WrapError("redis", "LoadSnapshot", shared.ErrNotFound, "no cached leaderboard", ErrCacheMiss)}
	g := NewGuardedCache(inner, circuitbreaker.WithFailureThreshold(1))

	for range 5 {
		_, err := g.LoadSnapshot(ctx)
		assert.True(t, shared.IsNotFound(err))
	}
	assert.Equal(t, circuitbreaker.StateClosed, g.State())

	inner.err = nil
	snap, err := g.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.NotNil(t, snap)
	assert.NoError(t, g.StoreSnapshot(ctx, leaderboard.Snapshot{}))
}
