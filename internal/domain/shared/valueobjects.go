// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Environment
// ═══════════════════════════════════════════════════════════════════════════

// Env carries the two impure inputs domain transitions need: the current
// time and a source of fresh identifiers. Callers inject them so every
// transition stays a pure function of its arguments.
type Env struct {
	Now   func() time.Time
	NewID func() string
}

// Time returns the current time from the environment, UTC.
func (e Env) Time() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

// ID returns a fresh identifier from the environment.
func (e Env) ID() string {
	if e.NewID == nil {
		return fmt.Sprintf("%d", e.Time().UnixNano())
	}
	return e.NewID()
}

// FixedEnv returns an environment frozen at t that yields sequential IDs
// "id-1", "id-2", ... Useful in tests and deterministic replays.
func FixedEnv(t time.Time) Env {
	n := 0
	return Env{
		Now: func() time.Time { return t },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Rank Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Rank represents a student's position in the classroom leaderboard.
type Rank int

const (
	MinRank  Rank = 1
	Unranked Rank = 0
)

// IsValid checks if the rank is valid.
func (r Rank) IsValid() bool {
	return r >= MinRank
}

// IsTop returns true if the rank is in the top N.
func (r Rank) IsTop(n int) bool {
	return r.IsValid() && int(r) <= n
}

// Medal returns the podium badge for the first three places.
func (r Rank) Medal() string {
	switch r {
	case 1:
		return "👑"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return ""
	}
}
