package leaderboard

import (
	"context"
	"time"
)

// CachedEntry is the flattened form of an Entry kept in a shared cache.
type CachedEntry struct {
	Rank        int    `json:"rank"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Avatar      string `json:"avatar"`
	PetName     string `json:"pet_name,omitempty"`
	Stage       int    `json:"stage"`
	Score       int    `json:"score"`
	HasPet      bool   `json:"has_pet"`
	Badge       string `json:"badge,omitempty"`
}

// Snapshot is a cached leaderboard at a point in time. Version is the
// classroom leaderboard version it was ranked from.
type Snapshot struct {
	Entries     []CachedEntry `json:"entries"`
	GeneratedAt time.Time     `json:"generated_at"`
	Version     uint64        `json:"version"`
}

// StaleAt reports whether the snapshot predates the live version.
func (s Snapshot) StaleAt(live uint64) bool {
	return s.Version < live
}

// Flatten converts ranked entries to their cached form.
func Flatten(entries []Entry, at time.Time) Snapshot {
	out := make([]CachedEntry, len(entries))
	for i, e := range entries {
		ce := CachedEntry{
			Rank:        int(e.Rank),
			StudentID:   e.Student.ID,
			StudentName: e.Student.Name,
			Avatar:      e.Student.Avatar,
			Score:       e.Score,
			HasPet:      e.HasPet(),
			Badge:       e.Badge(),
		}
		if e.Pet != nil {
			ce.PetName = e.Pet.Name
			ce.Stage = e.Pet.Stage
		}
		out[i] = ce
	}
	return Snapshot{Entries: out, GeneratedAt: at}
}

// Cache stores the latest leaderboard snapshot for fast reads.
type Cache interface {
	// StoreSnapshot replaces the cached snapshot.
	StoreSnapshot(ctx context.Context, snap Snapshot) error

	// LoadSnapshot returns the cached snapshot or an error wrapping
	// shared.ErrNotFound on a miss.
	LoadSnapshot(ctx context.Context) (*Snapshot, error)

	// Invalidate drops the cached snapshot.
	Invalidate(ctx context.Context) error
}
