package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
)

func roster(ids ...string) []*student.Student {
	out := make([]*student.Student, len(ids))
	for i, id := range ids {
		out[i] = &student.Student{ID: id, Name: "name-" + id, Avatar: "a", Gender: student.GenderGirl}
	}
	return out
}

func TestScore(t *testing.T) {
	assert.Equal(t, 14, Score(&pet.Pet{Points: 10, Stage: 2, Food: 1}))
	assert.Equal(t, 13, Score(&pet.Pet{Points: 12, Stage: 0, Food: 0}))
	assert.Equal(t, NoPetScore, Score(nil))
}

func TestRank_OrdersByScore(t *testing.T) {
	students := roster("C", "B", "A")
	pets := map[string]*pet.Pet{
		"A": {ID: "A", Points: 10, Stage: 2, Food: 1},
		"B": {ID: "B", Points: 12, Stage: 0, Food: 0},
	}

	entries := Rank(students, pets)
	require.Len(t, entries, 3)

	assert.Equal(t, "A", entries[0].Student.ID)
	assert.Equal(t, 14, entries[0].Score)
	assert.Equal(t, "👑", entries[0].Badge())

	assert.Equal(t, "B", entries[1].Student.ID)
	assert.Equal(t, "🥈", entries[1].Badge())

	assert.Equal(t, "C", entries[2].Student.ID)
	assert.False(t, entries[2].HasPet())
	assert.Equal(t, "", entries[2].Badge())
	assert.EqualValues(t, 3, entries[2].Rank)
}

func TestRank_TiesKeepInsertionOrder(t *testing.T) {
	students := roster("first", "second", "third", "nopet1", "nopet2")
	pets := map[string]*pet.Pet{
		"first":  {Points: 5},
		"second": {Points: 5},
		"third":  {Points: 5},
	}

	entries := Rank(students, pets)

	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.Student.ID
	}
	assert.Equal(t, []string{"first", "second", "third", "nopet1", "nopet2"}, got)
}

func TestRank_PetInDebtStaysAboveNoPet(t *testing.T) {
	students := roster("A", "B", "C", "D")
	pets := map[string]*pet.Pet{
		"A": {ID: "A", Points: 10},
		"B": {ID: "B", Points: 0},
		"D": {ID: "D", Points: -20},
	}

	entries := Rank(students, pets)
	require.Len(t, entries, 4)
	assert.Equal(t, "D", entries[2].Student.ID)
	assert.Equal(t, -19, entries[2].Score)
	assert.True(t, entries[2].HasPet())
	assert.Equal(t, "🥉", entries[2].Badge())

	assert.Equal(t, "C", entries[3].Student.ID)
	assert.Equal(t, NoPetScore, entries[3].Score)
	assert.False(t, entries[3].HasPet())
}

func TestFlattenAndTop(t *testing.T) {
	students := roster("A", "B")
	pets := map[string]*pet.Pet{"B": {ID: "B", Name: "Bun", Stage: 3}}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	snap := Flatten(Rank(students, pets), at)
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, "B", snap.Entries[0].StudentID)
	assert.Equal(t, "Bun", snap.Entries[0].PetName)
	assert.Equal(t, 1, snap.Entries[0].Rank)
	assert.Equal(t, at, snap.GeneratedAt)

	assert.Len(t, Top(Rank(students, pets), 1), 1)
	assert.Len(t, Top(Rank(students, pets), 10), 2)
}
