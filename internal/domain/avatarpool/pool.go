// Package avatarpool implements the bounded pool of uploaded student avatars.
// The pool holds at most Capacity images and evicts the oldest first.
package avatarpool

import (
	"context"
	"slices"
	"strings"

	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
)

const (
	// Capacity is the maximum number of avatars kept in the pool.
	Capacity = 30

	// MaxUploadBatch is the maximum number of images accepted per upload.
	MaxUploadBatch = 10
)

// Asset is one pooled avatar image.
type Asset struct {
	ID    string
	Image string
	// Timestamp is the upload time in unix milliseconds; eviction order.
	Timestamp int64
}

// InsertResult describes how a batch changed the pool.
type InsertResult struct {
	// Kept is the resulting pool, oldest first.
	Kept []Asset
	// Evicted are the assets pushed out, oldest first.
	Evicted []Asset
	// Persisted are the new assets that survived pruning; the only ones a
	// backend needs to write.
	Persisted []Asset
}

// Insert merges newItems into existing and prunes to Capacity. An ID already
// present is overwritten rather than duplicated, so re-inserting the same
// batch is idempotent. Ordering is ascending by timestamp; on equal
// timestamps existing assets sort before new ones.
func Insert(newItems, existing []Asset) InsertResult {
	incoming := make(map[string]struct{}, len(newItems))
	for _, a := range newItems {
		incoming[a.ID] = struct{}{}
	}

	combined := make([]Asset, 0, len(existing)+len(newItems))
	for _, a := range existing {
		if _, replaced := incoming[a.ID]; !replaced {
			combined = append(combined, a)
		}
	}
	seen := make(map[string]int, len(newItems))
	for _, a := range newItems {
		if i, dup := seen[a.ID]; dup {
			combined[i] = a
			continue
		}
		seen[a.ID] = len(combined)
		combined = append(combined, a)
	}

	slices.SortStableFunc(combined, func(a, b Asset) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		default:
			return 0
		}
	})

	var res InsertResult
	if over := len(combined) - Capacity; over > 0 {
		res.Evicted = combined[:over]
		res.Kept = combined[over:]
	} else {
		res.Kept = combined
	}

	for _, a := range res.Kept {
		if _, ok := incoming[a.ID]; ok {
			res.Persisted = append(res.Persisted, a)
		}
	}
	return res
}

// NewAssets stamps a batch of uploaded images. Blank images are skipped and
// the batch is truncated to MaxUploadBatch.
func NewAssets(images []string, env shared.Env) ([]Asset, error) {
	ts := env.Time().UnixMilli()
	assets := make([]Asset, 0, min(len(images), MaxUploadBatch))
	for _, img := range images {
		if len(assets) == MaxUploadBatch {
			break
		}
		img = strings.TrimSpace(img)
		if img == "" {
			continue
		}
		assets = append(assets, Asset{
			ID:        "pool-" + env.ID(),
			Image:     img,
			Timestamp: ts,
		})
	}
	if len(assets) == 0 {
		return nil, shared.ErrEmptyUpload
	}
	return assets, nil
}

// Repository defines the avatar pool collection of the local store.
type Repository interface {
	// ListPoolAssets returns the pool, oldest first.
	ListPoolAssets(ctx context.Context) ([]Asset, error)

	// SavePoolAssets inserts a batch with eviction: assets evicted by Insert
	// are deleted and surviving new assets are written in one unit of work.
	SavePoolAssets(ctx context.Context, newAssets []Asset) (InsertResult, error)
}
