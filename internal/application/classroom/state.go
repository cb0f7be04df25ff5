// Package classroom is the single state container of the application.
//
// Every user action is a Msg. Reduce is a pure function from the current
// State and a Msg to the next State plus the persistence Effects and domain
// Events the change implies. Container serialises dispatch, swaps state,
// then hands effects to the Store and events to the bus.
package classroom

import (
	"slices"

	"github.com/petgalaxy/classroom-pets/internal/domain/avatarpool"
	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/preset"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
)

// DefaultClassName is the title of a fresh classroom.
const DefaultClassName = "My Pet Paradise"

// Config keys of the key/value collection.
const (
	ConfigClassName    = "className"
	ConfigPointPresets = "pointPresets"
)

// State is an immutable snapshot of the classroom. Reduce never mutates a
// State it receives; it returns a new one sharing untouched values.
type State struct {
	ClassName string
	// Students are in roster insertion order.
	Students      []*student.Student
	Pets          map[string]*pet.Pet
	PointPresets  []preset.PointPreset
	PetImagePacks []preset.PetImagePack
	AvatarPresets []preset.AvatarPreset
	// PoolAssets are oldest first.
	PoolAssets []avatarpool.Asset
}

// DefaultState is the state of an empty classroom.
func DefaultState() State {
	return State{
		ClassName:    DefaultClassName,
		Pets:         map[string]*pet.Pet{},
		PointPresets: preset.DefaultPointPresets(),
	}
}

// Student returns the student with id and its roster index.
func (s State) Student(id string) (*student.Student, int) {
	i := slices.IndexFunc(s.Students, func(st *student.Student) bool { return st.ID == id })
	if i < 0 {
		return nil, -1
	}
	return s.Students[i], i
}

// Pet returns the pet of student id, or nil.
func (s State) Pet(id string) *pet.Pet {
	return s.Pets[id]
}

// PointPreset looks a preset up by ID.
func (s State) PointPreset(id string) (preset.PointPreset, bool) {
	i := slices.IndexFunc(s.PointPresets, func(p preset.PointPreset) bool { return p.ID == id })
	if i < 0 {
		return preset.PointPreset{}, false
	}
	return s.PointPresets[i], true
}

// PetImagePack looks a pack up by ID.
func (s State) PetImagePack(id string) (preset.PetImagePack, bool) {
	i := slices.IndexFunc(s.PetImagePacks, func(p preset.PetImagePack) bool { return p.ID == id })
	if i < 0 {
		return preset.PetImagePack{}, false
	}
	return s.PetImagePacks[i], true
}

// clone copies every container so the caller may replace elements freely.
// Element values themselves are shared.
func (s State) clone() State {
	c := s
	c.Students = slices.Clone(s.Students)
	c.Pets = make(map[string]*pet.Pet, len(s.Pets))
	for k, v := range s.Pets {
		c.Pets[k] = v
	}
	c.PointPresets = slices.Clone(s.PointPresets)
	c.PetImagePacks = slices.Clone(s.PetImagePacks)
	c.AvatarPresets = slices.Clone(s.AvatarPresets)
	c.PoolAssets = slices.Clone(s.PoolAssets)
	return c
}
