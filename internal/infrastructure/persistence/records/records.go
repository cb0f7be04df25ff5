// Package records defines the storage shapes shared by the SQL backends.
// Every record is validated before it is written and after it is read, so
// a corrupted row surfaces as a validation error instead of a broken pet.
package records

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/petgalaxy/classroom-pets/internal/domain/avatarpool"
	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/preset"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of a record.
func Validate(record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
		return shared.NewDomainError("records", "Validate", shared.ErrValidation, strings.Join(parts, "; "))
	}
	return shared.WrapError("records", "Validate", shared.ErrValidation, "invalid record", err)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// ──────────────────────────────────────────────────────────────────────────────
// Student
// ──────────────────────────────────────────────────────────────────────────────

// Student is the stored form of a roster member.
type Student struct {
	ID        string `json:"id" validate:"required,max=128"`
	Name      string `json:"name" validate:"required,max=50"`
	Avatar    string `json:"avatar" validate:"required"`
	Gender    string `json:"gender" validate:"oneof=boy girl"`
	ExtraInfo string `json:"extraInfo,omitempty"`
	CreatedAt int64  `json:"createdAt" validate:"gte=0"`
}

// FromStudent converts a domain student.
func FromStudent(s *student.Student) Student {
	return Student{
		ID:        s.ID,
		Name:      s.Name,
		Avatar:    s.Avatar,
		Gender:    string(s.Gender),
		ExtraInfo: s.ExtraInfo,
		CreatedAt: toMillis(s.CreatedAt),
	}
}

// Domain converts the record back.
func (r Student) Domain() *student.Student {
	return &student.Student{
		ID:        r.ID,
		Name:      r.Name,
		Avatar:    r.Avatar,
		Gender:    student.Gender(r.Gender),
		ExtraInfo: r.ExtraInfo,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Pet
// ──────────────────────────────────────────────────────────────────────────────

// PointLog is the stored form of one history entry.
type PointLog struct {
	ID        string `json:"id" validate:"required"`
	Amount    int    `json:"amount"`
	Reason    string `json:"reason" validate:"required"`
	Timestamp int64  `json:"timestamp" validate:"gte=0"`
}

// Pet is the stored form of a pet. Images and logs are kept as JSON
// documents by the SQL backends.
type Pet struct {
	ID           string     `json:"id" validate:"required,max=128"`
	Name         string     `json:"name" validate:"required"`
	Stage        int        `json:"stage" validate:"gte=0,lte=9"`
	Progress     int        `json:"progress" validate:"gte=0,lte=100"`
	Points       int        `json:"points"`
	Food         int        `json:"food" validate:"gte=0"`
	CustomImages []string   `json:"customImages" validate:"dive,required"`
	IsAdopted    bool       `json:"isAdopted"`
	AdoptionDate int64      `json:"adoptionDate" validate:"gte=0"`
	Logs         []PointLog `json:"logs" validate:"max=50,dive"`
}

// FromPet converts a domain pet.
func FromPet(p *pet.Pet) Pet {
	logs := make([]PointLog, len(p.Logs))
	for i, l := range p.Logs {
		logs[i] = PointLog{
			ID:        l.ID,
			Amount:    l.Amount,
			Reason:    l.Reason,
			Timestamp: toMillis(l.Timestamp),
		}
	}
	images := p.CustomImages
	if images == nil {
		images = []string{}
	}
	return Pet{
		ID:           p.ID,
		Name:         p.Name,
		Stage:        p.Stage,
		Progress:     p.Progress,
		Points:       p.Points,
		Food:         p.Food,
		CustomImages: append([]string(nil), images...),
		IsAdopted:    p.IsAdopted,
		AdoptionDate: toMillis(p.AdoptionDate),
		Logs:         logs,
	}
}

// Domain converts the record back.
func (r Pet) Domain() *pet.Pet {
	logs := make([]pet.PointLog, len(r.Logs))
	for i, l := range r.Logs {
		logs[i] = pet.PointLog{
			ID:        l.ID,
			Amount:    l.Amount,
			Reason:    l.Reason,
			Timestamp: fromMillis(l.Timestamp),
		}
	}
	return &pet.Pet{
		ID:           r.ID,
		Name:         r.Name,
		Stage:        r.Stage,
		Progress:     r.Progress,
		Points:       r.Points,
		Food:         r.Food,
		CustomImages: append([]string(nil), r.CustomImages...),
		IsAdopted:    r.IsAdopted,
		AdoptionDate: fromMillis(r.AdoptionDate),
		Logs:         logs,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Resources
// ──────────────────────────────────────────────────────────────────────────────

// PetImagePack is the stored form of an uploaded stage image set.
type PetImagePack struct {
	ID     string   `json:"id" validate:"required"`
	Name   string   `json:"name" validate:"required"`
	Images []string `json:"images" validate:"min=1,dive,required"`
}

// FromPetImagePack converts a domain pack.
func FromPetImagePack(p preset.PetImagePack) PetImagePack {
	return PetImagePack{ID: p.ID, Name: p.Name, Images: append([]string(nil), p.Images...)}
}

// Domain converts the record back.
func (r PetImagePack) Domain() preset.PetImagePack {
	return preset.PetImagePack{ID: r.ID, Name: r.Name, Images: append([]string(nil), r.Images...)}
}

// AvatarPreset is the stored form of a custom avatar.
type AvatarPreset struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Image string `json:"image" validate:"required"`
}

// FromAvatarPreset converts a domain avatar preset.
func FromAvatarPreset(a preset.AvatarPreset) AvatarPreset {
	return AvatarPreset{ID: a.ID, Name: a.Name, Image: a.Image}
}

// Domain converts the record back.
func (r AvatarPreset) Domain() preset.AvatarPreset {
	return preset.AvatarPreset{ID: r.ID, Name: r.Name, Image: r.Image}
}

// PoolAsset is the stored form of one pooled avatar.
type PoolAsset struct {
	ID        string `json:"id" validate:"required"`
	Image     string `json:"image" validate:"required"`
	Timestamp int64  `json:"timestamp" validate:"gte=0"`
}

// FromPoolAsset converts a domain asset.
func FromPoolAsset(a avatarpool.Asset) PoolAsset {
	return PoolAsset{ID: a.ID, Image: a.Image, Timestamp: a.Timestamp}
}

// Domain converts the record back.
func (r PoolAsset) Domain() avatarpool.Asset {
	return avatarpool.Asset{ID: r.ID, Image: r.Image, Timestamp: r.Timestamp}
}
