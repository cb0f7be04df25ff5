package classroom

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/persistence/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func newTestContainer(t *testing.T, store Store) (*Container, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	c := NewContainer(Dependencies{
		Store:  store,
		Events: pub,
		Env:    shared.FixedEnv(testTime),
	})
	require.NoError(t, c.Load(context.Background()))
	return c, pub
}

func TestContainer_PersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	c, pub := newTestContainer(t, store)

	_, err := c.Dispatch(ctx, AddStudent{ID: "S1", Name: "Lina", Avatar: "a.png", Gender: student.GenderGirl})
	require.NoError(t, err)
	_, err = c.Dispatch(ctx, AdoptPet{StudentID: "S1", PetName: "Bun", Images: stageImages()})
	require.NoError(t, err)
	_, err = c.Dispatch(ctx, BuyFood{StudentID: "S1"})
	require.NoError(t, err)
	_, err = c.Dispatch(ctx, RenameClass{Name: "Room 4B"})
	require.NoError(t, err)
	_, err = c.Dispatch(ctx, AddPointPreset{Label: "Tidy desk", Amount: 2})
	require.NoError(t, err)
	_, err = c.Dispatch(ctx, AddPoolAvatars{Images: []string{"x.png", "y.png"}})
	require.NoError(t, err)

	assert.Equal(t, []shared.EventType{
		shared.EventStudentSaved,
		shared.EventPetAdopted,
		shared.EventPointsChanged,
		shared.EventPointsChanged,
	}, pub.types())

	reloaded, _ := newTestContainer(t, store)
	s := reloaded.Snapshot()
	assert.Equal(t, "Room 4B", s.ClassName)
	require.Len(t, s.Students, 1)
	assert.Equal(t, "Lina", s.Students[0].Name)
	require.NotNil(t, s.Pet("S1"))
	assert.Equal(t, 9, s.Pet("S1").Points)
	assert.Equal(t, 1, s.Pet("S1").Food)
	assert.Len(t, s.PointPresets, 6)
	assert.Len(t, s.PoolAssets, 2)
}

func TestContainer_LoadDefaultsOnEmptyStore(t *testing.T) {
	c, _ := newTestContainer(t, memory.NewStore())
	s := c.Snapshot()
	assert.Equal(t, DefaultClassName, s.ClassName)
	assert.Len(t, s.PointPresets, 5)
}

func TestContainer_RejectedActionKeepsState(t *testing.T) {
	c, pub := newTestContainer(t, memory.NewStore())

	_, err := c.Dispatch(context.Background(), FeedPet{StudentID: "ghost"})
	assert.ErrorIs(t, err, shared.ErrPetNotFound)
	assert.Empty(t, c.Snapshot().Students)
	assert.Empty(t, pub.types())
}

func TestContainer_PersistFailureKeepsMemoryState(t *testing.T) {
	store := memory.NewStore()
	c, _ := newTestContainer(t, store)
	store.FailWith = errors.New("disk full")

	res, err := c.Dispatch(context.Background(), AddStudent{ID: "S1", Name: "Lina", Avatar: "a", Gender: student.GenderGirl})
	require.Error(t, err)
	assert.True(t, shared.IsStorage(err))
	assert.Equal(t, "S1", res.SubjectID)
	assert.Len(t, c.Snapshot().Students, 1)

	stored, err := store.ListStudents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestContainer_ClearAll(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	c, pub := newTestContainer(t, store)

	_, err := c.Dispatch(ctx, AddStudent{ID: "S1", Name: "Lina", Avatar: "a", Gender: student.GenderGirl})
	require.NoError(t, err)
	_, err = c.Dispatch(ctx, ClearAll{})
	require.NoError(t, err)

	assert.Empty(t, c.Snapshot().Students)
	assert.Contains(t, pub.types(), shared.EventClassroomReset)

	stored, err := store.ListStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestContainer_Queries(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestContainer(t, memory.NewStore())

	for _, m := range []Msg{
		AddStudent{ID: "S1", Name: "Lina", Avatar: "a", Gender: student.GenderGirl},
		AddStudent{ID: "S2", Name: "Tom", Avatar: "b", Gender: student.GenderBoy},
		AdoptPet{StudentID: "S2", PetName: "Rex", Images: stageImages()},
	} {
		_, err := c.Dispatch(ctx, m)
		require.NoError(t, err)
	}

	board := c.Leaderboard()
	require.Len(t, board, 2)
	assert.Equal(t, "S2", board[0].Student.ID)
	assert.Equal(t, 11, board[0].Score)
	assert.Equal(t, "👑", board[0].Badge())

	_, err := c.Certificate("S2")
	assert.ErrorIs(t, err, shared.ErrCertificateLocked)
	_, err = c.Certificate("S1")
	assert.ErrorIs(t, err, shared.ErrPetNotFound)
	_, err = c.Certificate("nobody")
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)

	assert.Len(t, c.ActivityFeed("", 0), 1)
	assert.NoError(t, c.Ping(ctx))
}

func TestContainer_ConcurrentDispatch(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestContainer(t, memory.NewStore())

	_, err := c.Dispatch(ctx, AddStudent{ID: "S1", Name: "Lina", Avatar: "a", Gender: student.GenderGirl})
	require.NoError(t, err)
	_, err = c.Dispatch(ctx, AdoptPet{StudentID: "S1", PetName: "Bun", Images: stageImages()})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Dispatch(ctx, GivePoints{StudentID: "S1", Amount: 1, Reason: "tick"})
			_ = c.Leaderboard()
		}()
	}
	wg.Wait()

	assert.Equal(t, 30, c.Snapshot().Pet("S1").Points)
}

func TestContainer_LeaderboardVersion(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestContainer(t, memory.NewStore())
	assert.EqualValues(t, 1, c.LeaderboardVersion())

	_, err := c.Dispatch(ctx, AddStudent{ID: "S1", Name: "Lina", Avatar: "a", Gender: student.GenderGirl})
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.LeaderboardVersion())

	// Presets cannot move the ranking.
	_, err = c.Dispatch(ctx, AddPointPreset{Label: "Helping", Amount: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.LeaderboardVersion())

	// Rejected actions leave the version alone.
	_, err = c.Dispatch(ctx, GivePoints{StudentID: "S1", Amount: 5, Reason: "no pet"})
	require.Error(t, err)

	entries, v := c.RankedLeaderboard()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 2, v)
}
