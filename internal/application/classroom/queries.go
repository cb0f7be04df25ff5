package classroom

import (
	"slices"
	"strings"

	"github.com/petgalaxy/classroom-pets/internal/domain/leaderboard"
	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// Queries never modify state. Returned values are shared with the container
// and must be treated as read-only.
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot returns the current state.
func (c *Container) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Leaderboard ranks the current roster.
func (c *Container) Leaderboard() []leaderboard.Entry {
	entries, _ := c.RankedLeaderboard()
	return entries
}

// RankedLeaderboard ranks the current roster and returns the leaderboard
// version the ranking reflects.
func (c *Container) RankedLeaderboard() ([]leaderboard.Entry, uint64) {
	c.mu.RLock()
	s, v := c.state, c.version
	c.mu.RUnlock()
	return leaderboard.Rank(s.Students, s.Pets), v
}

// LeaderboardVersion increases with every change that can move the ranking.
// A cached leaderboard.Snapshot with a lower Version is stale.
func (c *Container) LeaderboardVersion() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Certificate returns the completion certificate of a student's pet.
func (c *Container) Certificate(studentID string) (*pet.Certificate, error) {
	s := c.Snapshot()
	st, _ := s.Student(studentID)
	if st == nil {
		return nil, shared.ErrStudentNotFound
	}
	return pet.IssueCertificate(s.Pet(studentID), st.Name)
}

// ActivityItem is one point log entry attributed to its student.
type ActivityItem struct {
	StudentID   string
	StudentName string
	PetName     string
	Log         pet.PointLog
}

// ActivityFeed merges the logs of every pet, newest first. A non-empty query
// keeps entries whose student name or reason contains it, ignoring case.
// limit <= 0 returns everything.
func (c *Container) ActivityFeed(query string, limit int) []ActivityItem {
	return activityFeed(c.Snapshot(), query, limit)
}

func activityFeed(s State, query string, limit int) []ActivityItem {
	q := strings.ToLower(strings.TrimSpace(query))

	var items []ActivityItem
	for _, st := range s.Students {
		p := s.Pet(st.ID)
		if p == nil {
			continue
		}
		nameMatch := q == "" || strings.Contains(strings.ToLower(st.Name), q)
		for _, l := range p.Logs {
			if !nameMatch && !strings.Contains(strings.ToLower(l.Reason), q) {
				continue
			}
			items = append(items, ActivityItem{
				StudentID:   st.ID,
				StudentName: st.Name,
				PetName:     p.Name,
				Log:         l,
			})
		}
	}

	slices.SortStableFunc(items, func(a, b ActivityItem) int {
		return b.Log.Timestamp.Compare(a.Log.Timestamp)
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
