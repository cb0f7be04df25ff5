package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petgalaxy/classroom-pets/internal/application/classroom"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/persistence/storetest"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "classroom.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) classroom.Store {
		return openTempStore(t)
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), " ")
	assert.Error(t, err)
}

func TestReopenKeepsDataAndSkipsMigrations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "classroom.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.SaveStudent(ctx, &student.Student{ID: "S1", Name: "Lina", Avatar: "a", Gender: student.GenderGirl}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.ListStudents(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Lina", got[0].Name)
}

func TestPutConfigRejectsInvalidJSON(t *testing.T) {
	s := openTempStore(t)
	assert.Error(t, s.PutConfig(context.Background(), "className", []byte("not json")))
}

func TestUpSection(t *testing.T) {
	sql := "-- +migrate Up\nCREATE TABLE a(x);\n-- +migrate Down\nDROP TABLE a;"
	assert.Equal(t, "\nCREATE TABLE a(x);\n", upSection(sql))
	assert.Equal(t, "SELECT 1", upSection("SELECT 1"))
}
