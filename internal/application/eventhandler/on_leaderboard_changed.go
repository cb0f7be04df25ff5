package eventhandler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/petgalaxy/classroom-pets/internal/domain/leaderboard"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// LEADERBOARD REFRESH HANDLER
// Rebuilds the cached leaderboard whenever a score can have moved.
// ═══════════════════════════════════════════════════════════════════════════

// RankingSource returns the current ranking and the leaderboard version it
// reflects. *classroom.Container satisfies it.
type RankingSource interface {
	RankedLeaderboard() ([]leaderboard.Entry, uint64)
}

// LeaderboardRefreshHandler keeps a leaderboard.Cache in step with the classroom.
//
// Writes are serialised and the ranking is read inside the lock, so with an
// async bus a later write always carries a newer ranking. A failed write
// drops the cached snapshot so readers fall back to live state.
type LeaderboardRefreshHandler struct {
	source  RankingSource
	cache   leaderboard.Cache
	log     *logger.Logger
	now     func() time.Time
	timeout time.Duration

	mu     sync.Mutex
	cached uint64 // version in the cache; 0 when unknown
}

// NewLeaderboardRefreshHandler creates the handler.
func NewLeaderboardRefreshHandler(source RankingSource, cache leaderboard.Cache, log *logger.Logger) *LeaderboardRefreshHandler {
	if log == nil {
		log = logger.Default()
	}
	return &LeaderboardRefreshHandler{
		source:  source,
		cache:   cache,
		log:     log.With(logger.Component("leaderboard_cache")),
		now:     time.Now,
		timeout: 2 * time.Second,
	}
}

// Handle implements Handler. A reset drops the cache; anything else
// stores a fresh snapshot.
func (h *LeaderboardRefreshHandler) Handle(event shared.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if event.EventType() == shared.EventClassroomReset {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.cached = 0
		if err := h.cache.Invalidate(ctx); err != nil {
			return fmt.Errorf("invalidate leaderboard: %w", err)
		}
		return nil
	}

	n, err := h.store(ctx)
	if err != nil {
		return err
	}
	h.log.Debug("leaderboard cached",
		logger.String("trigger", string(event.EventType())),
		logger.Int("entries", n),
	)
	return nil
}

// Refresh stores a snapshot of the current ranking, e.g. at startup.
func (h *LeaderboardRefreshHandler) Refresh(ctx context.Context) error {
	_, err := h.store(ctx)
	return err
}

func (h *LeaderboardRefreshHandler) store(ctx context.Context) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, version := h.source.RankedLeaderboard()
	if h.cached != 0 && version <= h.cached {
		return len(entries), nil
	}

	snap := leaderboard.Flatten(entries, h.now().UTC())
	snap.Version = version
	if err := h.cache.StoreSnapshot(ctx, snap); err != nil {
		h.cached = 0
		err = fmt.Errorf("store leaderboard: %w", err)
		if invErr := h.cache.Invalidate(ctx); invErr != nil {
			return 0, errors.Join(err, fmt.Errorf("invalidate leaderboard: %w", invErr))
		}
		return 0, err
	}
	h.cached = version
	return len(snap.Entries), nil
}

// EventTypes implements Handler.
func (h *LeaderboardRefreshHandler) EventTypes() []shared.EventType {
	return []shared.EventType{
		shared.EventStudentSaved,
		shared.EventPetAdopted,
		shared.EventPointsChanged,
		shared.EventPetLeveledUp,
		shared.EventPetMaxed,
		shared.EventStudentRemoved,
		shared.EventClassroomReset,
	}
}
