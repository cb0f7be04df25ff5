// Package preset holds the teacher's shortcuts and uploaded resources:
// quick point adjustments, ten-stage pet image packs and avatar presets.
package preset

import (
	"context"
	"strings"

	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
)

// PointPreset is a named shortcut for a recurring point adjustment.
type PointPreset struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Amount int    `json:"amount"`
}

// DefaultPointPresets is the preset list of a fresh classroom.
func DefaultPointPresets() []PointPreset {
	return []PointPreset{
		{ID: "p1", Label: "Spoke up in class", Amount: 5},
		{ID: "p2", Label: "Excellent homework", Amount: 10},
		{ID: "p3", Label: "Helped a classmate", Amount: 15},
		{ID: "p4", Label: "Late / left early", Amount: -5},
		{ID: "p5", Label: "Distracted in class", Amount: -10},
	}
}

// NewPointPreset validates and stamps a preset.
func NewPointPreset(label string, amount int, env shared.Env) (PointPreset, error) {
	label = strings.TrimSpace(label)
	if label == "" || amount == 0 {
		return PointPreset{}, shared.ErrInvalidPreset
	}
	return PointPreset{ID: "preset-" + env.ID(), Label: label, Amount: amount}, nil
}

// Search filters presets whose label contains query, ignoring case.
// An empty query returns every preset.
func Search(presets []PointPreset, query string) []PointPreset {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return presets
	}
	out := make([]PointPreset, 0, len(presets))
	for _, p := range presets {
		if strings.Contains(strings.ToLower(p.Label), q) {
			out = append(out, p)
		}
	}
	return out
}

// PetImagePack is an uploaded set of stage images offered at adoption.
type PetImagePack struct {
	ID     string
	Name   string
	Images []string
}

// NewPetImagePack validates and stamps a pack.
func NewPetImagePack(name string, images []string, env shared.Env) (PetImagePack, error) {
	name = strings.TrimSpace(name)
	imgs := nonBlank(images)
	if name == "" || len(imgs) == 0 {
		return PetImagePack{}, shared.ErrInvalidPack
	}
	return PetImagePack{ID: "custom-" + env.ID(), Name: name, Images: imgs}, nil
}

// AvatarPreset is a named custom avatar resource.
type AvatarPreset struct {
	ID    string
	Name  string
	Image string
}

// NewAvatarPreset validates and stamps an avatar preset.
func NewAvatarPreset(name, image string, env shared.Env) (AvatarPreset, error) {
	name = strings.TrimSpace(name)
	image = strings.TrimSpace(image)
	if name == "" || image == "" {
		return AvatarPreset{}, shared.ErrInvalidPack
	}
	return AvatarPreset{ID: "avatar-" + env.ID(), Name: name, Image: image}, nil
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Repository defines the resource collections of the local store.
type Repository interface {
	SavePetImagePack(ctx context.Context, p PetImagePack) error
	ListPetImagePacks(ctx context.Context) ([]PetImagePack, error)
	DeletePetImagePack(ctx context.Context, id string) error

	SaveAvatarPreset(ctx context.Context, a AvatarPreset) error
	ListAvatarPresets(ctx context.Context) ([]AvatarPreset, error)
	DeleteAvatarPreset(ctx context.Context, id string) error
}
