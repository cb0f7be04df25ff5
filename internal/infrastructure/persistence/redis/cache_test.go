package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petgalaxy/classroom-pets/internal/domain/leaderboard"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
)

func TestNamespacedKey(t *testing.T) {
	assert.Equal(t, "petgalaxy:leaderboard:snapshot", namespacedKey("petgalaxy", "leaderboard", "snapshot"))
	assert.Equal(t, "leaderboard", namespacedKey("", "leaderboard"))
}

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "cache:6380"
	cfg.DB = 2

	opts := cfg.Options()
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 3*time.Second, opts.ReadTimeout)
}

func TestMarshalSnapshot_NilEntries(t *testing.T) {
	data, err := marshalSnapshot(leaderboard.Snapshot{})
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `[]`, string(raw["entries"]))
}

func TestLeaderboardCache_Redis(t *testing.T) {
	addr := os.Getenv("PETGALAXY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PETGALAXY_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Addr = addr
	cfg.Namespace = "petgalaxy-test-" + time.Now().Format("150405.000")
	cache, err := NewCache(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	lc := NewLeaderboardCache(cache)

	_, err = lc.LoadSnapshot(ctx)
	assert.True(t, shared.IsNotFound(err))

	snap := leaderboard.Snapshot{
		Entries: []leaderboard.CachedEntry{
			{Rank: 1, StudentID: "S1", StudentName: "Ada", Score: 320, HasPet: true},
			{Rank: 2, StudentID: "S2", StudentName: "Bo", Score: 110, HasPet: true},
		},
		GeneratedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, lc.StoreSnapshot(ctx, snap))

	got, err := lc.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Entries, got.Entries)
	assert.True(t, snap.GeneratedAt.Equal(got.GeneratedAt))

	score, err := lc.Score(ctx, "S2")
	require.NoError(t, err)
	assert.Equal(t, 110, score)

	require.NoError(t, lc.Invalidate(ctx))
	_, err = lc.LoadSnapshot(ctx)
	assert.True(t, shared.IsNotFound(err))
	_, err = lc.Score(ctx, "S1")
	assert.True(t, shared.IsNotFound(err))
}
