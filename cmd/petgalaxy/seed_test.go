package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petgalaxy/classroom-pets/internal/application/classroom"
	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/persistence/memory"
	"github.com/petgalaxy/classroom-pets/pkg/logger"
)

const rosterYAML = `
className: Class 3B
petPacks:
  - name: Dragons
    images: [d0, d1, d2, d3, d4, d5, d6, d7, d8, d9]
presets:
  - label: Tidy desk
    amount: 3
students:
  - id: S1
    name: Lina
    avatar: lina.png
    gender: girl
    pet:
      name: Bun
      pack: Dragons
      points: 12
  - id: S2
    name: Tom
    avatar: tom.png
    gender: boy
`

func newSeedContainer(t *testing.T) *classroom.Container {
	t.Helper()
	c := classroom.NewContainer(classroom.Dependencies{
		Store:  memory.NewStore(),
		Env:    shared.FixedEnv(time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)),
		Logger: logger.Nop(),
	})
	require.NoError(t, c.Load(context.Background()))
	return c
}

func TestRosterApply(t *testing.T) {
	roster, err := ParseRoster(strings.NewReader(rosterYAML))
	require.NoError(t, err)

	room := newSeedContainer(t)
	sum, err := roster.Apply(context.Background(), room)
	require.NoError(t, err)
	assert.Equal(t, SeedSummary{Students: 2, Pets: 1, Packs: 1, Presets: 1}, sum)

	state := room.Snapshot()
	assert.Equal(t, "Class 3B", state.ClassName)
	require.Len(t, state.Students, 2)
	p := state.Pet("S1")
	require.NotNil(t, p)
	assert.Equal(t, pet.AdoptionBonus+12, p.Points)
	assert.Equal(t, "d0", p.CurrentImage())
	assert.Nil(t, state.Pet("S2"))
}

func TestRosterApply_UnknownPack(t *testing.T) {
	roster, err := ParseRoster(strings.NewReader(`
students:
  - name: Ada
    avatar: a.png
    gender: girl
    pet: {name: Rex, pack: Missing}
`))
	require.NoError(t, err)

	sum, err := roster.Apply(context.Background(), newSeedContainer(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pet pack")
	assert.Equal(t, 1, sum.Students)
}

func TestParseRoster_RejectsUnknownFields(t *testing.T) {
	_, err := ParseRoster(strings.NewReader("classname: typo\n"))
	assert.Error(t, err)
}

func TestHashPasscodeCommand(t *testing.T) {
	cmd := newRootCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"hash-passcode", "owl"})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "$2"))
}

func TestConfirm(t *testing.T) {
	var out strings.Builder
	assert.True(t, confirm(strings.NewReader("yes\n"), &out, "sure?"))
	assert.False(t, confirm(strings.NewReader("\n"), &out, "sure?"))
	assert.Contains(t, out.String(), "[y/N]")
}
