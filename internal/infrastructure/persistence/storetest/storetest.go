// Package storetest holds behaviour tests every classroom store backend
// must pass.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petgalaxy/classroom-pets/internal/application/classroom"
	"github.com/petgalaxy/classroom-pets/internal/domain/avatarpool"
	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/preset"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
)

// Run executes the suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) classroom.Store) {
	t.Run("Config", func(t *testing.T) { testConfig(t, newStore(t)) })
	t.Run("StudentsKeepInsertionOrder", func(t *testing.T) { testStudents(t, newStore(t)) })
	t.Run("PetRoundTrip", func(t *testing.T) { testPets(t, newStore(t)) })
	t.Run("Resources", func(t *testing.T) { testResources(t, newStore(t)) })
	t.Run("PoolEviction", func(t *testing.T) { testPool(t, newStore(t)) })
	t.Run("ClearAll", func(t *testing.T) { testClearAll(t, newStore(t)) })
}

func testConfig(t *testing.T, s classroom.Store) {
	ctx := context.Background()

	_, err := s.GetConfig(ctx, classroom.ConfigClassName)
	assert.True(t, shared.IsNotFound(err))

	require.NoError(t, s.PutConfig(ctx, classroom.ConfigClassName, []byte(`"Room 1"`)))
	require.NoError(t, s.PutConfig(ctx, classroom.ConfigClassName, []byte(`"Room 2"`)))

	got, err := s.GetConfig(ctx, classroom.ConfigClassName)
	require.NoError(t, err)
	assert.JSONEq(t, `"Room 2"`, string(got))
}

func testStudents(t *testing.T, s classroom.Store) {
	ctx := context.Background()

	for _, id := range []string{"S3", "S1", "S2"} {
		require.NoError(t, s.SaveStudent(ctx, &student.Student{
			ID: id, Name: "name " + id, Avatar: "a.png", Gender: student.GenderBoy,
		}))
	}
	// An update keeps the original roster position.
	require.NoError(t, s.SaveStudent(ctx, &student.Student{
		ID: "S3", Name: "renamed", Avatar: "b.png", Gender: student.GenderGirl,
	}))

	got, err := s.ListStudents(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "S3", got[0].ID)
	assert.Equal(t, "renamed", got[0].Name)
	assert.Equal(t, student.GenderGirl, got[0].Gender)
	assert.Equal(t, "S1", got[1].ID)

	require.NoError(t, s.DeleteStudent(ctx, "S1"))
	require.NoError(t, s.DeleteStudent(ctx, "missing"))
	got, err = s.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	assert.Error(t, s.SaveStudent(ctx, &student.Student{ID: "bad", Gender: "cat"}))
}

func testPets(t *testing.T, s classroom.Store) {
	ctx := context.Background()
	env := shared.FixedEnv(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	images := make([]string, pet.StageCount)
	for i := range images {
		images[i] = fmt.Sprintf("img-%d", i)
	}
	p, err := pet.Adopt("S1", "Bun", images, env)
	require.NoError(t, err)
	p = pet.BuyFood(p, env).Pet
	p = pet.Feed(p, env).Pet

	require.NoError(t, s.SavePet(ctx, p))

	got, err := s.GetPet(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, p.Points, got.Points)
	assert.Equal(t, p.Progress, got.Progress)
	assert.Equal(t, p.CustomImages, got.CustomImages)
	require.Len(t, got.Logs, 3)
	assert.Equal(t, pet.ReasonFed, got.Logs[0].Reason)
	assert.True(t, p.AdoptionDate.Equal(got.AdoptionDate))

	all, err := s.ListPets(ctx)
	require.NoError(t, err)
	assert.Contains(t, all, "S1")

	require.NoError(t, s.DeletePet(ctx, "S1"))
	_, err = s.GetPet(ctx, "S1")
	assert.ErrorIs(t, err, shared.ErrPetNotFound)
}

func testResources(t *testing.T, s classroom.Store) {
	ctx := context.Background()

	require.NoError(t, s.SavePetImagePack(ctx, preset.PetImagePack{ID: "k2", Name: "Cats", Images: []string{"c"}}))
	require.NoError(t, s.SavePetImagePack(ctx, preset.PetImagePack{ID: "k1", Name: "Dogs", Images: []string{"d"}}))
	packs, err := s.ListPetImagePacks(ctx)
	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, "k2", packs[0].ID)

	require.NoError(t, s.DeletePetImagePack(ctx, "k2"))
	packs, err = s.ListPetImagePacks(ctx)
	require.NoError(t, err)
	assert.Len(t, packs, 1)

	require.NoError(t, s.SaveAvatarPreset(ctx, preset.AvatarPreset{ID: "a1", Name: "Fox", Image: "fox"}))
	avatars, err := s.ListAvatarPresets(ctx)
	require.NoError(t, err)
	require.Len(t, avatars, 1)
	assert.Equal(t, "Fox", avatars[0].Name)

	require.NoError(t, s.DeleteAvatarPreset(ctx, "a1"))
	avatars, err = s.ListAvatarPresets(ctx)
	require.NoError(t, err)
	assert.Empty(t, avatars)
}

func testPool(t *testing.T, s classroom.Store) {
	ctx := context.Background()

	batch := func(prefix string, n int, ts int64) []avatarpool.Asset {
		out := make([]avatarpool.Asset, n)
		for i := range out {
			out[i] = avatarpool.Asset{ID: fmt.Sprintf("%s-%d", prefix, i), Image: "img", Timestamp: ts + int64(i)}
		}
		return out
	}

	for i := range 3 {
		_, err := s.SavePoolAssets(ctx, batch(fmt.Sprintf("b%d", i), 10, int64(i*100)))
		require.NoError(t, err)
	}
	res, err := s.SavePoolAssets(ctx, batch("late", 5, 1000))
	require.NoError(t, err)
	assert.Len(t, res.Evicted, 5)
	assert.Len(t, res.Persisted, 5)

	pool, err := s.ListPoolAssets(ctx)
	require.NoError(t, err)
	require.Len(t, pool, avatarpool.Capacity)
	assert.Equal(t, "b0-5", pool[0].ID)
	assert.Equal(t, "late-4", pool[len(pool)-1].ID)

	// Re-inserting the same batch changes nothing.
	_, err = s.SavePoolAssets(ctx, batch("late", 5, 1000))
	require.NoError(t, err)
	again, err := s.ListPoolAssets(ctx)
	require.NoError(t, err)
	assert.Equal(t, pool, again)
}

func testClearAll(t *testing.T, s classroom.Store) {
	ctx := context.Background()

	require.NoError(t, s.PutConfig(ctx, classroom.ConfigClassName, []byte(`"x"`)))
	require.NoError(t, s.SaveStudent(ctx, &student.Student{ID: "S1", Name: "n", Avatar: "a", Gender: student.GenderBoy}))
	_, err := s.SavePoolAssets(ctx, []avatarpool.Asset{{ID: "p", Image: "i", Timestamp: 1}})
	require.NoError(t, err)

	require.NoError(t, s.ClearAll(ctx))

	_, err = s.GetConfig(ctx, classroom.ConfigClassName)
	assert.True(t, shared.IsNotFound(err))
	students, err := s.ListStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, students)
	pool, err := s.ListPoolAssets(ctx)
	require.NoError(t, err)
	assert.Empty(t, pool)
	assert.NoError(t, s.Ping(ctx))
}
