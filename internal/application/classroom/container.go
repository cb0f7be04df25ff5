package classroom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/petgalaxy/classroom-pets/internal/domain/avatarpool"
	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/preset"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
	"github.com/petgalaxy/classroom-pets/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTAINER
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains everything the container needs.
type Dependencies struct {
	Store  Store
	Events shared.EventPublisher // optional
	Env    shared.Env
	Logger *logger.Logger
}

// NewEnv returns the production environment: wall clock and UUIDs.
func NewEnv() shared.Env {
	return shared.Env{
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// Container owns the classroom state. Dispatch is serialised; reads take a
// shared lock and return immutable snapshots.
type Container struct {
	mu    sync.RWMutex
	state State
	// version counts state swaps that published events, i.e. every change
	// that can move the leaderboard. Load counts as one.
	version uint64

	store  Store
	events shared.EventPublisher
	env    shared.Env
	log    *logger.Logger
}

// NewContainer creates a container holding DefaultState until Load runs.
func NewContainer(deps Dependencies) *Container {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Container{
		state:  DefaultState(),
		store:  deps.Store,
		events: deps.Events,
		env:    deps.Env,
		log:    log.With(logger.Component("classroom")),
	}
}

// Load hydrates the state from the store. Collections are read
// concurrently; missing config keys fall back to defaults.
func (c *Container) Load(ctx context.Context) error {
	start := time.Now()
	next := DefaultState()

	var (
		students []*student.Student
		pets     map[string]*pet.Pet
		packs    []preset.PetImagePack
		avatars  []preset.AvatarPreset
		pool     []avatarpool.Asset
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.loadConfig(gctx, ConfigClassName, &next.ClassName)
	})
	g.Go(func() error {
		return c.loadConfig(gctx, ConfigPointPresets, &next.PointPresets)
	})
	g.Go(func() (err error) {
		students, err = c.store.ListStudents(gctx)
		return err
	})
	g.Go(func() (err error) {
		pets, err = c.store.ListPets(gctx)
		return err
	})
	g.Go(func() (err error) {
		packs, err = c.store.ListPetImagePacks(gctx)
		return err
	})
	g.Go(func() (err error) {
		avatars, err = c.store.ListAvatarPresets(gctx)
		return err
	})
	g.Go(func() (err error) {
		pool, err = c.store.ListPoolAssets(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return shared.WrapError("classroom", "Load", shared.ErrStorage, "failed to load classroom", err)
	}

	next.Students = students
	if pets != nil {
		next.Pets = pets
	}
	next.PetImagePacks = packs
	next.AvatarPresets = avatars
	next.PoolAssets = pool

	c.mu.Lock()
	c.state = next
	c.version++
	c.mu.Unlock()

	c.log.Info("classroom loaded",
		logger.String("class_name", next.ClassName),
		logger.Int("students", len(next.Students)),
		logger.Int("pets", len(next.Pets)),
		logger.Int("pool_assets", len(next.PoolAssets)),
		logger.Latency(time.Since(start)),
	)
	return nil
}

func (c *Container) loadConfig(ctx context.Context, key string, dst any) error {
	raw, err := c.store.GetConfig(ctx, key)
	if shared.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("config %q: %w", key, err)
	}
	return nil
}

// Dispatch reduces msg against the current state, swaps in the result and
// persists its effects. Persistence runs after the swap and is not retried:
// on failure the in-memory state stays ahead of the store and the error is
// returned alongside the result.
func (c *Container) Dispatch(ctx context.Context, msg Msg) (Result, error) {
	log := c.log.With(logger.Operation(msg.Kind()))

	c.mu.Lock()
	res, err := Reduce(c.state, msg, c.env)
	if err != nil {
		c.mu.Unlock()
		log.Debug("action rejected", logger.Err(err))
		return Result{}, err
	}
	c.state = res.State
	if len(res.Events) > 0 {
		c.version++
	}
	persistErr := c.persist(ctx, res.Effects)
	c.mu.Unlock()

	if persistErr != nil {
		log.Error("failed to persist action", logger.Err(persistErr))
		persistErr = shared.WrapError("classroom", "Dispatch", shared.ErrStorage, "state saved in memory only", persistErr)
	}

	c.publish(log, res.Events)

	if res.Outcome != "" {
		log.Debug("pet action applied", logger.StudentID(res.SubjectID), logger.Outcome(string(res.Outcome)))
	}
	return res, persistErr
}

func (c *Container) persist(ctx context.Context, effects []Effect) error {
	var errs []error
	for _, e := range effects {
		if err := c.apply(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Target(), err))
		}
	}
	return errors.Join(errs...)
}

func (c *Container) apply(ctx context.Context, e Effect) error {
	switch e := e.(type) {
	case SaveStudentEffect:
		return c.store.SaveStudent(ctx, e.Student)
	case DeleteStudentEffect:
		return c.store.DeleteStudent(ctx, e.ID)
	case SavePetEffect:
		return c.store.SavePet(ctx, e.Pet)
	case DeletePetEffect:
		return c.store.DeletePet(ctx, e.ID)
	case PutConfigEffect:
		raw, err := json.Marshal(e.Value)
		if err != nil {
			return err
		}
		return c.store.PutConfig(ctx, e.Key, raw)
	case SavePetImagePackEffect:
		return c.store.SavePetImagePack(ctx, e.Pack)
	case DeletePetImagePackEffect:
		return c.store.DeletePetImagePack(ctx, e.ID)
	case SaveAvatarPresetEffect:
		return c.store.SaveAvatarPreset(ctx, e.Avatar)
	case DeleteAvatarPresetEffect:
		return c.store.DeleteAvatarPreset(ctx, e.ID)
	case SavePoolAssetsEffect:
		res, err := c.store.SavePoolAssets(ctx, e.Assets)
		if err == nil && len(res.Evicted) > 0 {
			c.log.Info("avatar pool pruned", logger.Int("evicted", len(res.Evicted)))
		}
		return err
	case ClearAllEffect:
		return c.store.ClearAll(ctx)
	default:
		return fmt.Errorf("unknown effect %T", e)
	}
}

func (c *Container) publish(log *logger.Logger, events []shared.Event) {
	if c.events == nil {
		return
	}
	for _, ev := range events {
		if err := c.events.Publish(ev); err != nil {
			log.Warn("event handler failed",
				logger.String("event_type", string(ev.EventType())),
				logger.Err(err),
			)
		}
	}
}

// Ping checks the backing store.
func (c *Container) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
