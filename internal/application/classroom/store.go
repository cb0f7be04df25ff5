package classroom

import (
	"context"

	"github.com/petgalaxy/classroom-pets/internal/domain/avatarpool"
	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/preset"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
)

// ConfigRepository is the key/value collection holding the class name and
// the point presets as JSON documents.
type ConfigRepository interface {
	// GetConfig returns the raw JSON stored under key, or an error wrapping
	// shared.ErrNotFound.
	GetConfig(ctx context.Context, key string) ([]byte, error)

	// PutConfig replaces the value under key.
	PutConfig(ctx context.Context, key string, value []byte) error
}

// Store is the local persistence port. Each backend implements every
// collection so a classroom can be saved and reloaded as a whole.
type Store interface {
	ConfigRepository
	student.Repository
	pet.Repository
	preset.Repository
	avatarpool.Repository

	// ClearAll wipes every collection.
	ClearAll(ctx context.Context) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}
