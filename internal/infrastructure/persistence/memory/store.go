// Package memory provides a map-backed classroom store. It keeps nothing
// across restarts and is used by tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/petgalaxy/classroom-pets/internal/domain/avatarpool"
	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/preset"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
)

// Store implements classroom.Store in memory.
type Store struct {
	mu sync.RWMutex

	config   map[string][]byte
	students []*student.Student
	pets     map[string]*pet.Pet
	packs    []preset.PetImagePack
	avatars  []preset.AvatarPreset
	pool     []avatarpool.Asset

	// FailWith, when set, is returned by every write. Tests use it to
	// exercise persistence failures.
	FailWith error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		config: map[string][]byte{},
		pets:   map[string]*pet.Pet{},
	}
}

func (s *Store) writeErr() error {
	if s.FailWith != nil {
		return shared.WrapError("memory", "Write", shared.ErrStorage, "write rejected", s.FailWith)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Config
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) GetConfig(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.config[key]
	if !ok {
		return nil, shared.NewDomainError("memory", "GetConfig", shared.ErrNotFound, fmt.Sprintf("config %q not set", key))
	}
	return slices.Clone(v), nil
}

func (s *Store) PutConfig(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	s.config[key] = slices.Clone(value)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Students
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) SaveStudent(_ context.Context, st *student.Student) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	cp := *st
	if i := slices.IndexFunc(s.students, func(x *student.Student) bool { return x.ID == st.ID }); i >= 0 {
		s.students[i] = &cp
		return nil
	}
	s.students = append(s.students, &cp)
	return nil
}

func (s *Store) ListStudents(_ context.Context) ([]*student.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*student.Student, len(s.students))
	for i, st := range s.students {
		cp := *st
		out[i] = &cp
	}
	return out, nil
}

func (s *Store) DeleteStudent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	s.students = slices.DeleteFunc(s.students, func(x *student.Student) bool { return x.ID == id })
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Pets
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) SavePet(_ context.Context, p *pet.Pet) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	s.pets[p.ID] = p.Clone()
	return nil
}

func (s *Store) GetPet(_ context.Context, id string) (*pet.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pets[id]
	if !ok {
		return nil, shared.ErrPetNotFound
	}
	return p.Clone(), nil
}

func (s *Store) ListPets(_ context.Context) (map[string]*pet.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*pet.Pet, len(s.pets))
	for id, p := range s.pets {
		out[id] = p.Clone()
	}
	return out, nil
}

func (s *Store) DeletePet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	delete(s.pets, id)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Resources
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) SavePetImagePack(_ context.Context, p preset.PetImagePack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	p.Images = slices.Clone(p.Images)
	if i := slices.IndexFunc(s.packs, func(x preset.PetImagePack) bool { return x.ID == p.ID }); i >= 0 {
		s.packs[i] = p
		return nil
	}
	s.packs = append(s.packs, p)
	return nil
}

func (s *Store) ListPetImagePacks(_ context.Context) ([]preset.PetImagePack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]preset.PetImagePack, len(s.packs))
	for i, p := range s.packs {
		p.Images = slices.Clone(p.Images)
		out[i] = p
	}
	return out, nil
}

func (s *Store) DeletePetImagePack(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	s.packs = slices.DeleteFunc(s.packs, func(x preset.PetImagePack) bool { return x.ID == id })
	return nil
}

func (s *Store) SaveAvatarPreset(_ context.Context, a preset.AvatarPreset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	if i := slices.IndexFunc(s.avatars, func(x preset.AvatarPreset) bool { return x.ID == a.ID }); i >= 0 {
		s.avatars[i] = a
		return nil
	}
	s.avatars = append(s.avatars, a)
	return nil
}

func (s *Store) ListAvatarPresets(_ context.Context) ([]preset.AvatarPreset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.avatars), nil
}

func (s *Store) DeleteAvatarPreset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	s.avatars = slices.DeleteFunc(s.avatars, func(x preset.AvatarPreset) bool { return x.ID == id })
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Avatar pool
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) ListPoolAssets(_ context.Context) ([]avatarpool.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.pool), nil
}

func (s *Store) SavePoolAssets(_ context.Context, newAssets []avatarpool.Asset) (avatarpool.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return avatarpool.InsertResult{}, err
	}
	res := avatarpool.Insert(newAssets, s.pool)
	s.pool = slices.Clone(res.Kept)
	return res, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	s.config = map[string][]byte{}
	s.students = nil
	s.pets = map[string]*pet.Pet{}
	s.packs = nil
	s.avatars = nil
	s.pool = nil
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }
