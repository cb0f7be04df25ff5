package eventhandler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petgalaxy/classroom-pets/internal/application/classroom"
	"github.com/petgalaxy/classroom-pets/internal/domain/leaderboard"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/messaging"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/persistence/memory"
	"github.com/petgalaxy/classroom-pets/pkg/logger"
)

type fakeCache struct {
	mu          sync.Mutex
	stored      []leaderboard.Snapshot
	invalidated int
	err         error
	failNext    bool
}

func (f *fakeCache) StoreSnapshot(_ context.Context, snap leaderboard.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.failNext {
		f.failNext = false
		return errors.New("i/o timeout")
	}
	f.stored = append(f.stored, snap)
	return nil
}

func (f *fakeCache) LoadSnapshot(context.Context) (*leaderboard.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.stored) == 0 {
		return nil, shared.ErrNotFound
	}
	snap := f.stored[len(f.stored)-1]
	return &snap, nil
}

func (f *fakeCache) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	f.stored = nil
	return nil
}

func stageImages() []string {
	return []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
}

func TestLeaderboardRefresh_ThroughContainer(t *testing.T) {
	ctx := context.Background()
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: logger.Nop()})
	defer bus.Close()

	container := classroom.NewContainer(classroom.Dependencies{
		Store:  memory.NewStore(),
		Events: bus,
		Env:    shared.FixedEnv(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		Logger: logger.Nop(),
	})
	require.NoError(t, container.Load(ctx))

	cache := &fakeCache{}
	require.NoError(t, Register(bus,
		NewActivityLogHandler(logger.Nop()),
		NewLeaderboardRefreshHandler(container, cache, logger.Nop()),
	))

	_, err := container.Dispatch(ctx, classroom.AddStudent{ID: "S1", Name: "Ada", Avatar: "a", Gender: student.GenderGirl})
	require.NoError(t, err)
	_, err = container.Dispatch(ctx, classroom.AddStudent{ID: "S2", Name: "Bo", Avatar: "b", Gender: student.GenderBoy})
	require.NoError(t, err)
	_, err = container.Dispatch(ctx, classroom.AdoptPet{StudentID: "S2", PetName: "Rex", Images: stageImages()})
	require.NoError(t, err)

	snap, err := cache.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, "S2", snap.Entries[0].StudentID)
	assert.Equal(t, "Rex", snap.Entries[0].PetName)
	assert.False(t, snap.Entries[1].HasPet)

	_, err = container.Dispatch(ctx, classroom.ClearAll{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)
}

func TestLeaderboardRefresh_ReportsCacheErrors(t *testing.T) {
	cache := &fakeCache{err: errors.New("redis down")}
	h := NewLeaderboardRefreshHandler(rankingFunc(func() ([]leaderboard.Entry, uint64) { return nil, 1 }), cache, logger.Nop())

	err := h.Handle(shared.PointsChangedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventPointsChanged, "S1", time.Now()),
	})
	assert.ErrorContains(t, err, "redis down")
}

func TestActivityLogHandler_SubscribesToEverything(t *testing.T) {
	h := NewActivityLogHandler(logger.Nop())
	assert.Empty(t, h.EventTypes())
	assert.NoError(t, h.Handle(shared.StudentRemovedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventStudentRemoved, "S1", time.Now()),
		HadPet:    true,
	}))
}

type rankingFunc func() ([]leaderboard.Entry, uint64)

func (f rankingFunc) RankedLeaderboard() ([]leaderboard.Entry, uint64) { return f() }

func TestLeaderboardRefresh_Refresh(t *testing.T) {
	cache := &fakeCache{}
	h := NewLeaderboardRefreshHandler(rankingFunc(func() ([]leaderboard.Entry, uint64) {
		return []leaderboard.Entry{{Rank: 1, Student: &student.Student{ID: "S9", Name: "Zed"}, Score: leaderboard.NoPetScore}}, 4
	}), cache, logger.Nop())

	require.NoError(t, h.Refresh(context.Background()))
	require.Len(t, cache.stored, 1)
	assert.Equal(t, "S9", cache.stored[0].Entries[0].StudentID)
	assert.False(t, cache.stored[0].Entries[0].HasPet)
	assert.EqualValues(t, 4, cache.stored[0].Version)

	// Same version again: nothing new to write.
	require.NoError(t, h.Refresh(context.Background()))
	assert.Len(t, cache.stored, 1)
}

func TestLeaderboardRefresh_FailedWriteDropsSnapshot(t *testing.T) {
	ctx := context.Background()
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: logger.Nop()})
	defer bus.Close()

	container := classroom.NewContainer(classroom.Dependencies{
		Store:  memory.NewStore(),
		Events: bus,
		Env:    shared.FixedEnv(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		Logger: logger.Nop(),
	})
	require.NoError(t, container.Load(ctx))

	cache := &fakeCache{}
	require.NoError(t, Register(bus, NewLeaderboardRefreshHandler(container, cache, logger.Nop())))

	for _, m := range []classroom.Msg{
		classroom.AddStudent{ID: "A", Name: "Ada", Avatar: "a", Gender: student.GenderGirl},
		classroom.AddStudent{ID: "B", Name: "Bo", Avatar: "b", Gender: student.GenderBoy},
		classroom.AdoptPet{StudentID: "A", PetName: "Rex", Images: stageImages()},
		classroom.AdoptPet{StudentID: "B", PetName: "Kit", Images: stageImages()},
	} {
		_, err := container.Dispatch(ctx, m)
		require.NoError(t, err)
	}
	snap, err := cache.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", snap.Entries[0].StudentID)

	cache.failNext = true
	_, err = container.Dispatch(ctx, classroom.GivePoints{StudentID: "B", Amount: 20, Reason: "quiz"})
	require.NoError(t, err)

	_, err = cache.LoadSnapshot(ctx)
	assert.True(t, shared.IsNotFound(err), "a snapshot older than the live ranking must not survive")
	assert.Equal(t, 1, cache.invalidated)

	// The next change writes a fresh snapshot again.
	_, err = container.Dispatch(ctx, classroom.GivePoints{StudentID: "A", Amount: 1, Reason: "tidy"})
	require.NoError(t, err)
	snap, err = cache.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", snap.Entries[0].StudentID)
	assert.Equal(t, container.LeaderboardVersion(), snap.Version)
}

func TestLeaderboardRefresh_AsyncBusEndsOnNewest(t *testing.T) {
	ctx := context.Background()
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 4,
		Logger:         logger.Nop(),
	})

	container := classroom.NewContainer(classroom.Dependencies{
		Store:  memory.NewStore(),
		Events: bus,
		Env:    shared.FixedEnv(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		Logger: logger.Nop(),
	})
	require.NoError(t, container.Load(ctx))

	cache := &fakeCache{}
	require.NoError(t, Register(bus, NewLeaderboardRefreshHandler(container, cache, logger.Nop())))

	for _, id := range []string{"A", "B"} {
		_, err := container.Dispatch(ctx, classroom.AddStudent{ID: id, Name: "n" + id, Avatar: "a", Gender: student.GenderBoy})
		require.NoError(t, err)
		_, err = container.Dispatch(ctx, classroom.AdoptPet{StudentID: id, PetName: "p" + id, Images: stageImages()})
		require.NoError(t, err)
	}
	for i := range 30 {
		id := "A"
		if i%3 == 0 {
			id = "B"
		}
		_, err := container.Dispatch(ctx, classroom.GivePoints{StudentID: id, Amount: 2, Reason: "tick"})
		require.NoError(t, err)
	}
	require.NoError(t, bus.Close())

	live, version := container.RankedLeaderboard()
	snap, err := cache.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, version, snap.Version)
	assert.Equal(t, live[0].Student.ID, snap.Entries[0].StudentID)
	assert.Equal(t, live[0].Score, snap.Entries[0].Score)

	for i := 1; i < len(cache.stored); i++ {
		assert.Greater(t, cache.stored[i].Version, cache.stored[i-1].Version)
	}
}
