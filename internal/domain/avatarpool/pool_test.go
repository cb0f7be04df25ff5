package avatarpool

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
)

func makeAssets(prefix string, n int, startTS int64) []Asset {
	out := make([]Asset, n)
	for i := range out {
		out[i] = Asset{
			ID:        fmt.Sprintf("%s-%d", prefix, i),
			Image:     fmt.Sprintf("data:image/png;base64,%s%d", prefix, i),
			Timestamp: startTS + int64(i),
		}
	}
	return out
}

func ids(assets []Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.ID
	}
	return out
}

func TestInsert_EvictsOldest(t *testing.T) {
	existing := makeAssets("old", 28, 1000)
	incoming := makeAssets("new", 5, 5000)

	res := Insert(incoming, existing)

	assert.Len(t, res.Kept, Capacity)
	assert.Equal(t, []string{"old-0", "old-1", "old-2"}, ids(res.Evicted))
	assert.Equal(t, ids(incoming), ids(res.Persisted))
	assert.Equal(t, "old-3", res.Kept[0].ID)
	assert.Equal(t, "new-4", res.Kept[Capacity-1].ID)
}

func TestInsert_UnderCapacityNeverEvicts(t *testing.T) {
	existing := makeAssets("old", 20, 1000)
	incoming := makeAssets("new", 10, 5000)

	res := Insert(incoming, existing)

	assert.Empty(t, res.Evicted)
	assert.Len(t, res.Kept, 30)
	assert.Len(t, res.Persisted, 10)
}

func TestInsert_Idempotent(t *testing.T) {
	existing := makeAssets("old", 29, 1000)
	incoming := makeAssets("new", 1, 5000)

	first := Insert(incoming, existing)
	second := Insert(incoming, first.Kept)

	assert.Equal(t, ids(first.Kept), ids(second.Kept))
	assert.Empty(t, second.Evicted)
	assert.Len(t, second.Kept, 30)
}

func TestInsert_OverwritesSameID(t *testing.T) {
	existing := []Asset{{ID: "a", Image: "v1", Timestamp: 1}}
	res := Insert([]Asset{{ID: "a", Image: "v2", Timestamp: 2}}, existing)

	require.Len(t, res.Kept, 1)
	assert.Equal(t, "v2", res.Kept[0].Image)
	assert.Empty(t, res.Evicted)
}

func TestInsert_NewItemsOlderThanPoolAreEvicted(t *testing.T) {
	// clock skew: a new asset older than everything in a full pool
	existing := makeAssets("old", 30, 1000)
	incoming := []Asset{{ID: "skewed", Image: "x", Timestamp: 1}}

	res := Insert(incoming, existing)

	assert.Equal(t, []string{"skewed"}, ids(res.Evicted))
	assert.Empty(t, res.Persisted)
	assert.Equal(t, ids(existing), ids(res.Kept))
}

func TestNewAssets(t *testing.T) {
	env := shared.FixedEnv(time.UnixMilli(42_000))
	images := make([]string, 12)
	for i := range images {
		images[i] = fmt.Sprintf("img-%d", i)
	}
	images[1] = "  "

	assets, err := NewAssets(images, env)
	require.NoError(t, err)
	assert.Len(t, assets, MaxUploadBatch)
	assert.Equal(t, int64(42_000), assets[0].Timestamp)
	assert.Equal(t, "img-2", assets[1].Image)

	_, err = NewAssets([]string{""}, env)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}
