// Package student contains the classroom roster model.
// This is pure domain logic with no external dependencies.
package student

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Gender selects the avatar set offered when a student joins.
type Gender string

const (
	GenderBoy  Gender = "boy"
	GenderGirl Gender = "girl"
)

// IsValid checks that the gender is one of the known values.
func (g Gender) IsValid() bool {
	return g == GenderBoy || g == GenderGirl
}

// MaxNameLength bounds student display names in runes.
const MaxNameLength = 50

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is a member of the classroom roster. Only the name, avatar and
// gender are editable; the ID never changes after creation.
type Student struct {
	// ID - unique identifier, also the key of the student's pet.
	ID string

	// Name - display name shown on the classroom wall.
	Name string

	// Avatar - image reference (URL or data URI) picked from the avatar pool.
	Avatar string

	// Gender - boy or girl.
	Gender Gender

	// ExtraInfo - optional free-form note kept by the teacher.
	ExtraInfo string

	// CreatedAt - when the teacher added the student.
	CreatedAt time.Time
}

// NewStudentParams contains the parameters for creating a student.
type NewStudentParams struct {
	ID     string
	Name   string
	Avatar string
	Gender Gender
}

// NewStudent creates a validated student. A missing ID is generated from env.
func NewStudent(params NewStudentParams, env shared.Env) (*Student, error) {
	name, err := normalizeName(params.Name)
	if err != nil {
		return nil, err
	}
	if !params.Gender.IsValid() {
		return nil, shared.ErrInvalidGender
	}
	avatar := strings.TrimSpace(params.Avatar)
	if avatar == "" {
		return nil, shared.ErrEmptyAvatar
	}

	id := strings.TrimSpace(params.ID)
	if id == "" {
		id = "S" + env.ID()
	}

	return &Student{
		ID:        id,
		Name:      name,
		Avatar:    avatar,
		Gender:    params.Gender,
		CreatedAt: env.Time(),
	}, nil
}

// Rename changes the display name.
func (s *Student) Rename(name string) error {
	n, err := normalizeName(name)
	if err != nil {
		return err
	}
	s.Name = n
	return nil
}

// ChangeAvatar replaces the avatar image.
func (s *Student) ChangeAvatar(avatar string) error {
	avatar = strings.TrimSpace(avatar)
	if avatar == "" {
		return shared.ErrEmptyAvatar
	}
	s.Avatar = avatar
	return nil
}

// ChangeGender updates the gender.
func (s *Student) ChangeGender(g Gender) error {
	if !g.IsValid() {
		return shared.ErrInvalidGender
	}
	s.Gender = g
	return nil
}

// Validate checks every invariant of an already constructed student.
func (s *Student) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return shared.NewDomainError("student", "Validate", shared.ErrInvalidID, "student id is required")
	}
	if _, err := normalizeName(s.Name); err != nil {
		return err
	}
	if !s.Gender.IsValid() {
		return shared.ErrInvalidGender
	}
	if strings.TrimSpace(s.Avatar) == "" {
		return shared.ErrEmptyAvatar
	}
	return nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", shared.ErrInvalidStudentName
	}
	return name, nil
}
