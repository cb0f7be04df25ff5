// Package pet contains the pet progression engine: the pet entity, its point
// history and the pure transitions driven by teacher and student actions.
package pet

import (
	"strings"
	"time"

	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// StageCount is the number of growth stages; stages are 0..StageCount-1.
	StageCount = 10

	// MaxStage is the terminal stage.
	MaxStage = StageCount - 1

	// MaxProgress is a full progress bar within a stage.
	MaxProgress = 100

	// FeedGain is the progress earned by a successful feeding.
	FeedGain = 20

	// HungerPenalty is the progress lost when feeding with an empty pantry.
	HungerPenalty = 10

	// FoodPrice is the number of points one food ration costs.
	FoodPrice = 1

	// AdoptionBonus is the point balance a freshly adopted pet starts with.
	AdoptionBonus = 10

	// MaxLogs caps the point history; older entries fall off the tail.
	MaxLogs = 50
)

// Log reasons written by the engine.
const (
	ReasonAdoption   = "initial adoption bonus"
	ReasonBuyFood    = "bought an energy meal"
	ReasonFed        = "fed successfully (meal + magic spent)"
	ReasonStarving   = "hunger warning, growth damaged"
	ReasonExhausted  = "magic energy depleted, cannot transform"
	levelUpReasonFmt = "🎊 level up! now %d years old"
)

// ══════════════════════════════════════════════════════════════════════════════
// POINT LOG
// ══════════════════════════════════════════════════════════════════════════════

// PointLog is an immutable record of one point change.
type PointLog struct {
	ID        string
	Amount    int
	Reason    string
	Timestamp time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: PET
// ══════════════════════════════════════════════════════════════════════════════

// Pet belongs to exactly one student and shares the student's ID.
//
// Points may go negative: teacher deductions are applied unconditionally,
// only spending (buying food, feeding) requires a positive balance.
type Pet struct {
	ID           string
	Name         string
	Stage        int
	Progress     int
	Points       int
	Food         int
	CustomImages []string
	IsAdopted    bool
	AdoptionDate time.Time
	// Logs are ordered newest first.
	Logs []PointLog
}

// Clone returns a deep copy so transitions never alias the caller's slices.
func (p *Pet) Clone() *Pet {
	if p == nil {
		return nil
	}
	c := *p
	c.CustomImages = append([]string(nil), p.CustomImages...)
	c.Logs = append([]PointLog(nil), p.Logs...)
	return &c
}

// Age is the display age: stage 0 is one year old.
func (p *Pet) Age() int {
	return p.Stage + 1
}

// IsMaxed reports the terminal state that unlocks the certificate.
func (p *Pet) IsMaxed() bool {
	return p.Stage == MaxStage && p.Progress == MaxProgress
}

// CurrentImage returns the image for the pet's current stage, or "" when the
// image set is short.
func (p *Pet) CurrentImage() string {
	if p.Stage < 0 || p.Stage >= len(p.CustomImages) {
		return ""
	}
	return p.CustomImages[p.Stage]
}

// Validate checks the numeric invariants of a pet.
func (p *Pet) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return shared.NewDomainError("pet", "Validate", shared.ErrInvalidID, "pet id is required")
	}
	if p.Stage < 0 || p.Stage > MaxStage {
		return shared.NewDomainError("pet", "Validate", shared.ErrValueOutOfRange, "stage must be 0-9")
	}
	if p.Progress < 0 || p.Progress > MaxProgress {
		return shared.NewDomainError("pet", "Validate", shared.ErrValueOutOfRange, "progress must be 0-100")
	}
	if p.Food < 0 {
		return shared.NewDomainError("pet", "Validate", shared.ErrValueOutOfRange, "food cannot be negative")
	}
	if len(p.Logs) > MaxLogs {
		return shared.NewDomainError("pet", "Validate", shared.ErrValueOutOfRange, "too many log entries")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ADOPTION
// ══════════════════════════════════════════════════════════════════════════════

// Adopt creates the pet of studentID from a ten-image stage set.
func Adopt(studentID, name string, images []string, env shared.Env) (*Pet, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, shared.NewDomainError("pet", "Adopt", shared.ErrInvalidID, "student id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.ErrInvalidPetName
	}
	if len(images) != StageCount {
		return nil, shared.ErrInvalidStageImages
	}
	for _, img := range images {
		if strings.TrimSpace(img) == "" {
			return nil, shared.ErrInvalidStageImages
		}
	}

	now := env.Time()
	return &Pet{
		ID:           studentID,
		Name:         name,
		Points:       AdoptionBonus,
		CustomImages: append([]string(nil), images...),
		IsAdopted:    true,
		AdoptionDate: now,
		Logs: []PointLog{{
			ID:        env.ID(),
			Amount:    AdoptionBonus,
			Reason:    ReasonAdoption,
			Timestamp: now,
		}},
	}, nil
}
