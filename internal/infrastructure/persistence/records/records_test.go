package records

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
)

func TestValidate_Student(t *testing.T) {
	ok := FromStudent(&student.Student{ID: "S1", Name: "Lina", Avatar: "a", Gender: student.GenderGirl})
	require.NoError(t, Validate(ok))

	bad := ok
	bad.Gender = "cat"
	bad.Name = strings.Repeat("x", 51)
	err := Validate(bad)
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	assert.Contains(t, err.Error(), "Gender")
	assert.Contains(t, err.Error(), "Name")
}

func TestValidate_Pet(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	p, err := pet.Adopt("S1", "Bun", []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}, shared.FixedEnv(at))
	require.NoError(t, err)

	rec := FromPet(p)
	require.NoError(t, Validate(rec))

	back := rec.Domain()
	assert.Equal(t, p.AdoptionDate, back.AdoptionDate)
	assert.Equal(t, p.Logs[0].Timestamp, back.Logs[0].Timestamp)

	rec.Stage = 10
	assert.Error(t, Validate(rec))

	rec.Stage = 0
	rec.Logs = make([]PointLog, 51)
	for i := range rec.Logs {
		rec.Logs[i] = PointLog{ID: "x", Reason: "r"}
	}
	assert.Error(t, Validate(rec))
}

func TestValidate_Pack(t *testing.T) {
	assert.Error(t, Validate(PetImagePack{ID: "p", Name: "n"}))
	assert.Error(t, Validate(PetImagePack{ID: "p", Name: "n", Images: []string{""}}))
	assert.NoError(t, Validate(PetImagePack{ID: "p", Name: "n", Images: []string{"a"}}))
}
