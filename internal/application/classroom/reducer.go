package classroom

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/petgalaxy/classroom-pets/internal/domain/avatarpool"
	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/preset"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
)

var (
	errStudentExists  = shared.NewDomainError("classroom", "AddStudent", shared.ErrAlreadyExists, "student id already taken")
	errPackNotFound   = shared.NewDomainError("preset", "Find", shared.ErrNotFound, "pet image pack not found")
	errAvatarNotFound = shared.NewDomainError("preset", "Find", shared.ErrNotFound, "avatar preset not found")
)

// Result is everything a successful Reduce produces.
type Result struct {
	State   State
	Effects []Effect
	Events  []shared.Event

	// Outcome is set by pet actions; an outcome that did not change the pet
	// comes with no effects and no events.
	Outcome pet.Outcome

	// SubjectID is the ID of the entity created or changed, if any.
	SubjectID string
}

// Reduce applies m to s. It is pure: s is never modified and every impure
// input comes from env. On error the caller keeps s.
func Reduce(s State, m Msg, env shared.Env) (Result, error) {
	switch m := m.(type) {
	case AddStudent:
		return reduceAddStudent(s, m, env)
	case UpdateStudent:
		return reduceUpdateStudent(s, m, env)
	case DeleteStudent:
		return reduceDeleteStudent(s, m, env)
	case AdoptPet:
		return reduceAdoptPet(s, m, env)
	case GivePoints:
		return reduceGivePoints(s, m, env)
	case BuyFood:
		return reducePetAction(s, m.StudentID, pet.ActionBuyFood, env)
	case FeedPet:
		return reducePetAction(s, m.StudentID, pet.ActionFeed, env)
	case RenameClass:
		return reduceRenameClass(s, m)
	case AddPointPreset:
		return reduceAddPointPreset(s, m, env)
	case DeletePointPreset:
		return reduceDeletePointPreset(s, m)
	case AddPetImagePack:
		return reduceAddPetImagePack(s, m, env)
	case DeletePetImagePack:
		return reduceDeletePetImagePack(s, m)
	case AddAvatarPreset:
		return reduceAddAvatarPreset(s, m, env)
	case DeleteAvatarPreset:
		return reduceDeleteAvatarPreset(s, m)
	case AddPoolAvatars:
		return reduceAddPoolAvatars(s, m, env)
	case ClearAll:
		return reduceClearAll(s, env)
	default:
		return Result{}, shared.NewDomainError("classroom", "Reduce", shared.ErrInvalidInput,
			fmt.Sprintf("unknown message %T", m))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER
// ══════════════════════════════════════════════════════════════════════════════

func reduceAddStudent(s State, m AddStudent, env shared.Env) (Result, error) {
	st, err := student.NewStudent(student.NewStudentParams{
		ID:     m.ID,
		Name:   m.Name,
		Avatar: m.Avatar,
		Gender: m.Gender,
	}, env)
	if err != nil {
		return Result{}, err
	}
	if existing, _ := s.Student(st.ID); existing != nil {
		return Result{}, errStudentExists
	}

	next := s.clone()
	next.Students = append(next.Students, st)

	return Result{
		State:     next,
		Effects:   []Effect{SaveStudentEffect{Student: st}},
		Events:    []shared.Event{studentSaved(st, true, env.Time())},
		SubjectID: st.ID,
	}, nil
}

func reduceUpdateStudent(s State, m UpdateStudent, env shared.Env) (Result, error) {
	current, i := s.Student(m.ID)
	if current == nil {
		return Result{}, shared.ErrStudentNotFound
	}

	edited := *current
	if m.Name != "" {
		if err := edited.Rename(m.Name); err != nil {
			return Result{}, err
		}
	}
	if m.Avatar != "" {
		if err := edited.ChangeAvatar(m.Avatar); err != nil {
			return Result{}, err
		}
	}
	if m.Gender != "" {
		if err := edited.ChangeGender(m.Gender); err != nil {
			return Result{}, err
		}
	}

	next := s.clone()
	next.Students[i] = &edited

	return Result{
		State:     next,
		Effects:   []Effect{SaveStudentEffect{Student: &edited}},
		Events:    []shared.Event{studentSaved(&edited, false, env.Time())},
		SubjectID: edited.ID,
	}, nil
}

func studentSaved(st *student.Student, created bool, at time.Time) shared.StudentSavedEvent {
	return shared.StudentSavedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventStudentSaved, st.ID, at),
		Name:      st.Name,
		Created:   created,
	}
}

func reduceDeleteStudent(s State, m DeleteStudent, env shared.Env) (Result, error) {
	current, i := s.Student(m.ID)
	if current == nil {
		return Result{}, shared.ErrStudentNotFound
	}

	next := s.clone()
	next.Students = slices.Delete(next.Students, i, i+1)
	_, hadPet := next.Pets[m.ID]
	delete(next.Pets, m.ID)

	return Result{
		State: next,
		Effects: []Effect{
			DeleteStudentEffect{ID: m.ID},
			DeletePetEffect{ID: m.ID},
		},
		Events: []shared.Event{shared.StudentRemovedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventStudentRemoved, m.ID, env.Time()),
			HadPet:    hadPet,
		}},
		SubjectID: m.ID,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PETS
// ══════════════════════════════════════════════════════════════════════════════

func reduceAdoptPet(s State, m AdoptPet, env shared.Env) (Result, error) {
	if st, _ := s.Student(m.StudentID); st == nil {
		return Result{}, shared.ErrStudentNotFound
	}
	if s.Pet(m.StudentID) != nil {
		return Result{}, shared.ErrPetAlreadyAdopted
	}

	images := m.Images
	if m.PackID != "" {
		pack, ok := s.PetImagePack(m.PackID)
		if !ok {
			return Result{}, errPackNotFound
		}
		images = pack.Images
	}

	p, err := pet.Adopt(m.StudentID, m.PetName, images, env)
	if err != nil {
		return Result{}, err
	}

	next := s.clone()
	next.Pets[p.ID] = p

	now := env.Time()
	return Result{
		State:   next,
		Effects: []Effect{SavePetEffect{Pet: p}},
		Events: []shared.Event{
			shared.PetAdoptedEvent{
				BaseEvent: shared.NewBaseEvent(shared.EventPetAdopted, p.ID, now),
				PetName:   p.Name,
			},
			pointsChanged(p.ID, pet.AdoptionBonus, p.Points, pet.ReasonAdoption, now),
		},
		SubjectID: p.ID,
	}, nil
}

func reduceGivePoints(s State, m GivePoints, env shared.Env) (Result, error) {
	if st, _ := s.Student(m.StudentID); st == nil {
		return Result{}, shared.ErrStudentNotFound
	}
	current := s.Pet(m.StudentID)
	if current == nil {
		return Result{}, shared.ErrPetNotFound
	}

	amount, reason := m.Amount, m.Reason
	if m.PresetID != "" {
		p, ok := s.PointPreset(m.PresetID)
		if !ok {
			return Result{}, shared.ErrPresetNotFound
		}
		amount, reason = p.Amount, p.Label
	}

	t, err := pet.GivePoints(current, amount, reason, env)
	if err != nil {
		return Result{}, err
	}

	next := s.clone()
	next.Pets[t.Pet.ID] = t.Pet

	return Result{
		State:     next,
		Effects:   []Effect{SavePetEffect{Pet: t.Pet}},
		Events:    []shared.Event{pointsChanged(t.Pet.ID, amount, t.Pet.Points, t.Pet.Logs[0].Reason, env.Time())},
		Outcome:   t.Outcome,
		SubjectID: t.Pet.ID,
	}, nil
}

func reducePetAction(s State, studentID string, action pet.Action, env shared.Env) (Result, error) {
	current := s.Pet(studentID)
	if current == nil {
		return Result{}, shared.ErrPetNotFound
	}

	t, err := pet.Apply(current, action, env)
	if err != nil {
		return Result{}, err
	}
	if !t.Outcome.Changed() {
		return Result{State: s, Outcome: t.Outcome, SubjectID: studentID}, nil
	}

	next := s.clone()
	next.Pets[studentID] = t.Pet

	now := env.Time()
	var events []shared.Event
	if delta := t.Pet.Points - current.Points; delta != 0 {
		events = append(events, pointsChanged(studentID, delta, t.Pet.Points, spendReason(t.Pet, delta), now))
	}
	if t.LeveledUp() {
		events = append(events, shared.PetLeveledUpEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventPetLeveledUp, studentID, now),
			OldStage:  t.PreviousStage,
			NewStage:  t.Pet.Stage,
		})
	}
	if t.Pet.IsMaxed() && !current.IsMaxed() {
		events = append(events, shared.PetMaxedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventPetMaxed, studentID, now),
			PetName:   t.Pet.Name,
		})
	}

	return Result{
		State:     next,
		Effects:   []Effect{SavePetEffect{Pet: t.Pet}},
		Events:    events,
		Outcome:   t.Outcome,
		SubjectID: studentID,
	}, nil
}

// spendReason finds the log entry that carried the point change, skipping
// zero-amount notes such as the level-up entry.
func spendReason(p *pet.Pet, delta int) string {
	for _, l := range p.Logs {
		if l.Amount == delta {
			return l.Reason
		}
	}
	return ""
}

func pointsChanged(id string, amount, total int, reason string, at time.Time) shared.PointsChangedEvent {
	return shared.PointsChangedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventPointsChanged, id, at),
		Amount:    amount,
		NewTotal:  total,
		Reason:    reason,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASS SETTINGS & RESOURCES
// ══════════════════════════════════════════════════════════════════════════════

func reduceRenameClass(s State, m RenameClass) (Result, error) {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return Result{}, shared.ErrInvalidClassName
	}

	next := s.clone()
	next.ClassName = name

	return Result{
		State:   next,
		Effects: []Effect{PutConfigEffect{Key: ConfigClassName, Value: name}},
	}, nil
}

func reduceAddPointPreset(s State, m AddPointPreset, env shared.Env) (Result, error) {
	p, err := preset.NewPointPreset(m.Label, m.Amount, env)
	if err != nil {
		return Result{}, err
	}

	next := s.clone()
	next.PointPresets = append(next.PointPresets, p)

	return Result{
		State:     next,
		Effects:   []Effect{PutConfigEffect{Key: ConfigPointPresets, Value: next.PointPresets}},
		SubjectID: p.ID,
	}, nil
}

func reduceDeletePointPreset(s State, m DeletePointPreset) (Result, error) {
	i := slices.IndexFunc(s.PointPresets, func(p preset.PointPreset) bool { return p.ID == m.ID })
	if i < 0 {
		return Result{}, shared.ErrPresetNotFound
	}

	next := s.clone()
	next.PointPresets = slices.Delete(next.PointPresets, i, i+1)

	return Result{
		State:     next,
		Effects:   []Effect{PutConfigEffect{Key: ConfigPointPresets, Value: next.PointPresets}},
		SubjectID: m.ID,
	}, nil
}

func reduceAddPetImagePack(s State, m AddPetImagePack, env shared.Env) (Result, error) {
	pack, err := preset.NewPetImagePack(m.Name, m.Images, env)
	if err != nil {
		return Result{}, err
	}

	next := s.clone()
	next.PetImagePacks = append(next.PetImagePacks, pack)

	return Result{
		State:     next,
		Effects:   []Effect{SavePetImagePackEffect{Pack: pack}},
		SubjectID: pack.ID,
	}, nil
}

func reduceDeletePetImagePack(s State, m DeletePetImagePack) (Result, error) {
	i := slices.IndexFunc(s.PetImagePacks, func(p preset.PetImagePack) bool { return p.ID == m.ID })
	if i < 0 {
		return Result{}, errPackNotFound
	}

	next := s.clone()
	next.PetImagePacks = slices.Delete(next.PetImagePacks, i, i+1)

	return Result{
		State:     next,
		Effects:   []Effect{DeletePetImagePackEffect{ID: m.ID}},
		SubjectID: m.ID,
	}, nil
}

func reduceAddAvatarPreset(s State, m AddAvatarPreset, env shared.Env) (Result, error) {
	a, err := preset.NewAvatarPreset(m.Name, m.Image, env)
	if err != nil {
		return Result{}, err
	}

	next := s.clone()
	next.AvatarPresets = append(next.AvatarPresets, a)

	return Result{
		State:     next,
		Effects:   []Effect{SaveAvatarPresetEffect{Avatar: a}},
		SubjectID: a.ID,
	}, nil
}

func reduceDeleteAvatarPreset(s State, m DeleteAvatarPreset) (Result, error) {
	i := slices.IndexFunc(s.AvatarPresets, func(a preset.AvatarPreset) bool { return a.ID == m.ID })
	if i < 0 {
		return Result{}, errAvatarNotFound
	}

	next := s.clone()
	next.AvatarPresets = slices.Delete(next.AvatarPresets, i, i+1)

	return Result{
		State:     next,
		Effects:   []Effect{DeleteAvatarPresetEffect{ID: m.ID}},
		SubjectID: m.ID,
	}, nil
}

func reduceAddPoolAvatars(s State, m AddPoolAvatars, env shared.Env) (Result, error) {
	assets, err := avatarpool.NewAssets(m.Images, env)
	if err != nil {
		return Result{}, err
	}

	res := avatarpool.Insert(assets, s.PoolAssets)

	next := s.clone()
	next.PoolAssets = res.Kept

	return Result{
		State:   next,
		Effects: []Effect{SavePoolAssetsEffect{Assets: assets}},
	}, nil
}

func reduceClearAll(s State, env shared.Env) (Result, error) {
	return Result{
		State:   DefaultState(),
		Effects: []Effect{ClearAllEffect{}},
		Events: []shared.Event{shared.ClassroomResetEvent{
			BaseEvent:       shared.NewBaseEvent(shared.EventClassroomReset, "", env.Time()),
			StudentsRemoved: len(s.Students),
		}},
	}, nil
}
