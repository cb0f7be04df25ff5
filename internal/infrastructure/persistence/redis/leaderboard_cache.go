package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/petgalaxy/classroom-pets/internal/domain/leaderboard"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache stores the latest ranked snapshot.
//
// Layout:
//   - String "{ns}:leaderboard:snapshot" holds the Snapshot JSON
//   - Sorted Set "{ns}:leaderboard:scores" maps studentID -> score
//
// Both keys are rewritten in one MULTI so readers never see a mix of two
// snapshots.
type LeaderboardCache struct {
	cache *Cache
}

var _ leaderboard.Cache = (*LeaderboardCache)(nil)

// NewLeaderboardCache creates a new LeaderboardCache instance.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

func (l *LeaderboardCache) snapshotKey() string { return l.cache.Key("leaderboard", "snapshot") }
func (l *LeaderboardCache) scoresKey() string   { return l.cache.Key("leaderboard", "scores") }

// StoreSnapshot replaces the cached snapshot and score set.
func (l *LeaderboardCache) StoreSnapshot(ctx context.Context, snap leaderboard.Snapshot) error {
	data, err := marshalSnapshot(snap)
	if err != nil {
		return err
	}

	ttl := l.cache.config.TTL
	pipe := l.cache.client.TxPipeline()
	pipe.Del(ctx, l.snapshotKey(), l.scoresKey())
	pipe.Set(ctx, l.snapshotKey(), data, ttl)

	if len(snap.Entries) > 0 {
		members := make([]redis.Z, 0, len(snap.Entries))
		for _, e := range snap.Entries {
			members = append(members, redis.Z{Score: float64(e.Score), Member: e.StudentID})
		}
		pipe.ZAdd(ctx, l.scoresKey(), members...)
		if ttl > 0 {
			pipe.Expire(ctx, l.scoresKey(), ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return shared.WrapError("redis", "StoreSnapshot", shared.ErrStorage, "write snapshot", err)
	}
	return nil
}

// LoadSnapshot returns the cached snapshot.
func (l *LeaderboardCache) LoadSnapshot(ctx context.Context) (*leaderboard.Snapshot, error) {
	var snap leaderboard.Snapshot
	err := l.cache.Get(ctx, l.snapshotKey(), &snap)
	switch {
	case errors.Is(err, ErrCacheMiss):
		return nil, shared.WrapError("redis", "LoadSnapshot", shared.ErrNotFound, "no cached leaderboard", err)
	case err != nil:
		return nil, shared.WrapError("redis", "LoadSnapshot", shared.ErrStorage, "read snapshot", err)
	}
	return &snap, nil
}

// Score returns a student's score from the cached set.
func (l *LeaderboardCache) Score(ctx context.Context, studentID string) (int, error) {
	score, err := l.cache.client.ZScore(ctx, l.scoresKey(), studentID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, shared.WrapError("redis", "Score", shared.ErrNotFound, "student not cached", err)
	}
	if err != nil {
		return 0, shared.WrapError("redis", "Score", shared.ErrStorage, "read score", err)
	}
	return int(score), nil
}

// Invalidate drops the cached snapshot.
func (l *LeaderboardCache) Invalidate(ctx context.Context) error {
	if err := l.cache.Delete(ctx, l.snapshotKey(), l.scoresKey()); err != nil {
		return shared.WrapError("redis", "Invalidate", shared.ErrStorage, "delete snapshot", err)
	}
	return nil
}

func marshalSnapshot(snap leaderboard.Snapshot) ([]byte, error) {
	if snap.Entries == nil {
		snap.Entries = []leaderboard.CachedEntry{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return data, nil
}
