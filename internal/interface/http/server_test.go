package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petgalaxy/classroom-pets/internal/application/classroom"
	"github.com/petgalaxy/classroom-pets/internal/application/eventhandler"
	"github.com/petgalaxy/classroom-pets/internal/domain/leaderboard"
	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/messaging"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/persistence/memory"
	"github.com/petgalaxy/classroom-pets/internal/interface/http/handlers"
	"github.com/petgalaxy/classroom-pets/pkg/logger"
)

var testTime = time.Date(2024, 9, 2, 8, 30, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *ResponseMeta   `json:"meta"`
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
	room    *classroom.Container
	store   *memory.Store

	passcode string
}

func newTestAPI(t *testing.T, cfg Config, cache leaderboard.Cache) *testAPI {
	t.Helper()
	store := memory.NewStore()
	room := classroom.NewContainer(classroom.Dependencies{
		Store:  store,
		Env:    shared.FixedEnv(testTime),
		Logger: logger.Nop(),
	})
	require.NoError(t, room.Load(context.Background()))

	s := NewServer(cfg, Dependencies{
		Classroom:        room,
		LeaderboardCache: cache,
		Logger:           logger.Nop(),
	})
	return &testAPI{t: t, handler: s.Handler(), room: room, store: store}
}

func (a *testAPI) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.passcode != "" {
		req.Header.Set(handlers.PasscodeHeader, a.passcode)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func stageImages() []string {
	images := make([]string, pet.StageCount)
	for i := range images {
		images[i] = fmt.Sprintf("stage-%d.png", i)
	}
	return images
}

func TestStudentLifecycle(t *testing.T) {
	api := newTestAPI(t, DefaultConfig(), nil)

	rec, env := api.do(http.MethodPost, "/api/v1/students", studentRequest{ID: "S1", Name: "Lina", Avatar: "a.png", Gender: "girl"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeData[studentDTO](t, env)
	assert.Equal(t, "Lina", created.Name)
	assert.Nil(t, created.Pet)

	rec, env = api.do(http.MethodPost, "/api/v1/students", studentRequest{ID: "S1", Name: "Again", Avatar: "a.png", Gender: "girl"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_exists", env.Error.Code)

	rec, _ = api.do(http.MethodPut, "/api/v1/students/S1", studentRequest{Name: "Lina K."})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = api.do(http.MethodPost, "/api/v1/students/S1/adopt", adoptRequest{PetName: "Bun", Images: stageImages()})
	require.Equal(t, http.StatusCreated, rec.Code)
	adopted := decodeData[studentDTO](t, env)
	require.NotNil(t, adopted.Pet)
	assert.Equal(t, pet.AdoptionBonus, adopted.Pet.Points)
	assert.Equal(t, "stage-0.png", adopted.Pet.Image)

	rec, env = api.do(http.MethodPost, "/api/v1/students/S1/buy-food", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	action := decodeData[actionDTO](t, env)
	assert.Equal(t, string(pet.OutcomeFoodBought), action.Outcome)
	assert.Equal(t, 1, action.Student.Pet.Food)

	rec, env = api.do(http.MethodGet, "/api/v1/classroom", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	room := decodeData[classroomDTO](t, env)
	require.Len(t, room.Students, 1)
	assert.Equal(t, "Lina K.", room.Students[0].Name)
	assert.Equal(t, classroom.DefaultClassName, room.ClassName)

	rec, _ = api.do(http.MethodDelete, "/api/v1/students/S1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = api.do(http.MethodPut, "/api/v1/students/S1", studentRequest{Name: "Ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestInsufficientPointsIsNotAnError(t *testing.T) {
	api := newTestAPI(t, DefaultConfig(), nil)
	api.do(http.MethodPost, "/api/v1/students", studentRequest{ID: "S1", Name: "Tom", Avatar: "a.png", Gender: "boy"})
	api.do(http.MethodPost, "/api/v1/students/S1/adopt", adoptRequest{PetName: "Rex", Images: stageImages()})

	rec, _ := api.do(http.MethodPost, "/api/v1/students/S1/points", pointsRequest{Amount: -pet.AdoptionBonus, Reason: "talking"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := api.do(http.MethodPost, "/api/v1/students/S1/buy-food", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	action := decodeData[actionDTO](t, env)
	assert.Equal(t, string(pet.OutcomeInsufficientPoints), action.Outcome)
	assert.Equal(t, 0, action.Student.Pet.Points)
	assert.Equal(t, 0, action.Student.Pet.Food)
}

func TestValidationAndMalformedBodies(t *testing.T) {
	api := newTestAPI(t, DefaultConfig(), nil)

	rec, env := api.do(http.MethodPost, "/api/v1/students", studentRequest{Name: "Tom", Avatar: "a.png", Gender: "cat"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)
	assert.Equal(t, shared.ErrInvalidGender.Message, env.Error.Message)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/presets", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rec, _ = api.do(http.MethodGet, "/api/v1/students/nobody/certificate", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCertificateLockedUntilFinalStage(t *testing.T) {
	api := newTestAPI(t, DefaultConfig(), nil)
	api.do(http.MethodPost, "/api/v1/students", studentRequest{ID: "S1", Name: "Tom", Avatar: "a.png", Gender: "boy"})
	api.do(http.MethodPost, "/api/v1/students/S1/adopt", adoptRequest{PetName: "Rex", Images: stageImages()})

	rec, env := api.do(http.MethodGet, "/api/v1/students/S1/certificate", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", env.Error.Code)
}

func TestResources(t *testing.T) {
	api := newTestAPI(t, DefaultConfig(), nil)

	rec, env := api.do(http.MethodPost, "/api/v1/presets", presetRequest{Label: "Tidy desk", Amount: 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeData[map[string]any](t, env)
	id := created["id"].(string)
	require.NotEmpty(t, id)

	_, env = api.do(http.MethodGet, "/api/v1/presets", nil)
	assert.Equal(t, len(decodeData[[]map[string]any](t, env)), env.Meta.TotalCount)

	rec, _ = api.do(http.MethodDelete, "/api/v1/presets/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = api.do(http.MethodDelete, "/api/v1/presets/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = api.do(http.MethodPost, "/api/v1/pet-packs", packRequest{Name: "Dragons", Images: stageImages()})
	require.Equal(t, http.StatusCreated, rec.Code)
	pack := decodeData[packDTO](t, env)
	assert.Equal(t, "Dragons", pack.Name)

	rec, _ = api.do(http.MethodPost, "/api/v1/avatars", avatarRequest{Name: "Fox", Image: "fox.png"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = api.do(http.MethodPost, "/api/v1/avatar-pool", poolRequest{Images: []string{"x.png", "y.png"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, decodeData[[]assetDTO](t, env), 2)

	rec, env = api.do(http.MethodPost, "/api/v1/avatar-pool", poolRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)

	rec, env = api.do(http.MethodPut, "/api/v1/classroom/name", renameRequest{Name: "Class 3B"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Class 3B", decodeData[map[string]string](t, env)["className"])

	rec, env = api.do(http.MethodDelete, "/api/v1/data", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	room := decodeData[classroomDTO](t, env)
	assert.Equal(t, classroom.DefaultClassName, room.ClassName)
	assert.Zero(t, room.PoolSize)
}

func TestActivityFeed(t *testing.T) {
	api := newTestAPI(t, DefaultConfig(), nil)
	api.do(http.MethodPost, "/api/v1/students", studentRequest{ID: "S1", Name: "Tom", Avatar: "a.png", Gender: "boy"})
	api.do(http.MethodPost, "/api/v1/students/S1/adopt", adoptRequest{PetName: "Rex", Images: stageImages()})
	api.do(http.MethodPost, "/api/v1/students/S1/points", pointsRequest{Amount: 5, Reason: "Great answer"})

	_, env := api.do(http.MethodGet, "/api/v1/activity?q=great", nil)
	items := decodeData[[]activityDTO](t, env)
	require.Len(t, items, 1)
	assert.Equal(t, "Great answer", items[0].Log.Reason)
	assert.Equal(t, "Tom", items[0].StudentName)
}

type stubCache struct {
	snap *leaderboard.Snapshot
	err  error
}

func (c *stubCache) StoreSnapshot(context.Context, leaderboard.Snapshot) error { return nil }
func (c *stubCache) Invalidate(context.Context) error                          { return nil }
func (c *stubCache) LoadSnapshot(context.Context) (*leaderboard.Snapshot, error) {
	return c.snap, c.err
}

func TestLeaderboard_CacheFirst(t *testing.T) {
	cache := &stubCache{snap: &leaderboard.Snapshot{
		Entries:     []leaderboard.CachedEntry{{Rank: 1, StudentID: "C1"}, {Rank: 2, StudentID: "C2"}},
		GeneratedAt: testTime,
	}}
	api := newTestAPI(t, DefaultConfig(), cache)
	cache.snap.Version = api.room.LeaderboardVersion()

	_, env := api.do(http.MethodGet, "/api/v1/leaderboard?limit=1", nil)
	lb := decodeData[leaderboardDTO](t, env)
	assert.Equal(t, "cache", lb.Source)
	require.Len(t, lb.Entries, 1)
	assert.Equal(t, "C1", lb.Entries[0].StudentID)
	assert.Equal(t, 2, env.Meta.TotalCount)

	cache.snap, cache.err = nil, shared.WrapError("redis", "LoadSnapshot", shared.ErrNotFound, "miss", errors.New("nil"))
	api.do(http.MethodPost, "/api/v1/students", studentRequest{ID: "S1", Name: "Tom", Avatar: "a.png", Gender: "boy"})

	_, env = api.do(http.MethodGet, "/api/v1/leaderboard", nil)
	lb = decodeData[leaderboardDTO](t, env)
	assert.Equal(t, "live", lb.Source)
	require.Len(t, lb.Entries, 1)
	assert.Equal(t, "S1", lb.Entries[0].StudentID)
	assert.False(t, lb.Entries[0].HasPet)
}

// flakyCache keeps one snapshot in memory and can fail writes on demand.
type flakyCache struct {
	mu              sync.Mutex
	snap            *leaderboard.Snapshot
	failWrites      bool
	failInvalidates bool
}

func (c *flakyCache) StoreSnapshot(_ context.Context, snap leaderboard.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errors.New("i/o timeout")
	}
	c.snap = &snap
	return nil
}

func (c *flakyCache) LoadSnapshot(context.Context) (*leaderboard.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return nil, shared.WrapError("test", "LoadSnapshot", shared.ErrNotFound, "miss", nil)
	}
	snap := *c.snap
	return &snap, nil
}

func (c *flakyCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failInvalidates {
		return errors.New("i/o timeout")
	}
	c.snap = nil
	return nil
}

func TestLeaderboard_FailedCacheWriteServesLiveRanking(t *testing.T) {
	tests := []struct {
		name            string
		failInvalidates bool
	}{
		{name: "snapshot dropped"},
		{name: "stale snapshot left behind", failInvalidates: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: logger.Nop()})
			t.Cleanup(func() { _ = bus.Close() })

			room := classroom.NewContainer(classroom.Dependencies{
				Store:  memory.NewStore(),
				Events: bus,
				Env:    shared.FixedEnv(testTime),
				Logger: logger.Nop(),
			})
			require.NoError(t, room.Load(ctx))

			cache := &flakyCache{}
			require.NoError(t, eventhandler.Register(bus, eventhandler.NewLeaderboardRefreshHandler(room, cache, logger.Nop())))

			s := NewServer(DefaultConfig(), Dependencies{Classroom: room, LeaderboardCache: cache, Logger: logger.Nop()})
			api := &testAPI{t: t, handler: s.Handler(), room: room}

			for _, id := range []string{"A", "B"} {
				api.do(http.MethodPost, "/api/v1/students", studentRequest{ID: id, Name: "kid " + id, Avatar: "a.png", Gender: "girl"})
				api.do(http.MethodPost, "/api/v1/students/"+id+"/adopt", adoptRequest{PetName: "pet " + id, Images: stageImages()})
			}

			_, env := api.do(http.MethodGet, "/api/v1/leaderboard", nil)
			lb := decodeData[leaderboardDTO](t, env)
			assert.Equal(t, "cache", lb.Source)
			assert.Equal(t, "A", lb.Entries[0].StudentID)

			cache.mu.Lock()
			cache.failWrites, cache.failInvalidates = true, tt.failInvalidates
			cache.mu.Unlock()
			rec, _ := api.do(http.MethodPost, "/api/v1/students/B/points", pointsRequest{Amount: 20, Reason: "quiz"})
			require.Equal(t, http.StatusOK, rec.Code)

			_, env = api.do(http.MethodGet, "/api/v1/leaderboard", nil)
			lb = decodeData[leaderboardDTO](t, env)
			assert.Equal(t, "live", lb.Source)
			require.Len(t, lb.Entries, 2)
			assert.Equal(t, "B", lb.Entries[0].StudentID)
			assert.Equal(t, 31, lb.Entries[0].Score)
		})
	}
}

func TestPasscodeGuardsMutations(t *testing.T) {
	hash, err := handlers.HashPasscode("apple-tree")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.TeacherPasscodeHash = hash
	api := newTestAPI(t, cfg, nil)

	rec, env := api.do(http.MethodPost, "/api/v1/students", studentRequest{Name: "Tom", Avatar: "a.png", Gender: "boy"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_passcode", env.Error.Code)

	api.passcode = "wrong"
	rec, env = api.do(http.MethodPost, "/api/v1/students", studentRequest{Name: "Tom", Avatar: "a.png", Gender: "boy"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_passcode", env.Error.Code)

	api.passcode = "apple-tree"
	rec, _ = api.do(http.MethodPost, "/api/v1/students", studentRequest{Name: "Tom", Avatar: "a.png", Gender: "boy"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Reads stay open.
	api.passcode = ""
	rec, _ = api.do(http.MethodGet, "/api/v1/classroom", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStorageFailureIsReported(t *testing.T) {
	api := newTestAPI(t, DefaultConfig(), nil)
	api.store.FailWith = errors.New("disk full")

	rec, env := api.do(http.MethodPost, "/api/v1/students", studentRequest{Name: "Tom", Avatar: "a.png", Gender: "boy"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "storage_error", env.Error.Code)
}

func TestMiddleware(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 64
	api := newTestAPI(t, cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	req.Header.Set("Origin", "http://classroom.local")
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "http://classroom.local", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec, env := api.do(http.MethodPost, "/api/v1/avatar-pool", poolRequest{Images: []string{strings.Repeat("x", 128)}})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", env.Error.Code)

	rec, _ = api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
