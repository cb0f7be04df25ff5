package http

import (
	"time"

	"github.com/petgalaxy/classroom-pets/internal/application/classroom"
	"github.com/petgalaxy/classroom-pets/internal/domain/avatarpool"
	"github.com/petgalaxy/classroom-pets/internal/domain/leaderboard"
	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/preset"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUESTS
// ══════════════════════════════════════════════════════════════════════════════

type studentRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Gender string `json:"gender"`
}

type adoptRequest struct {
	PetName string   `json:"petName"`
	Images  []string `json:"images"`
	PackID  string   `json:"packId"`
}

type pointsRequest struct {
	Amount   int    `json:"amount"`
	Reason   string `json:"reason"`
	PresetID string `json:"presetId"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type presetRequest struct {
	Label  string `json:"label"`
	Amount int    `json:"amount"`
}

type packRequest struct {
	Name   string   `json:"name"`
	Images []string `json:"images"`
}

type avatarRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

type poolRequest struct {
	Images []string `json:"images"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSES
// ══════════════════════════════════════════════════════════════════════════════

type pointLogDTO struct {
	ID        string `json:"id"`
	Amount    int    `json:"amount"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

type petDTO struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Stage        int           `json:"stage"`
	Age          int           `json:"age"`
	Progress     int           `json:"progress"`
	Points       int           `json:"points"`
	Food         int           `json:"food"`
	Image        string        `json:"image"`
	CustomImages []string      `json:"customImages"`
	IsAdopted    bool          `json:"isAdopted"`
	IsMaxed      bool          `json:"isMaxed"`
	AdoptionDate int64         `json:"adoptionDate"`
	Logs         []pointLogDTO `json:"logs"`
}

type studentDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Avatar    string  `json:"avatar"`
	Gender    string  `json:"gender"`
	ExtraInfo string  `json:"extraInfo,omitempty"`
	Pet       *petDTO `json:"pet,omitempty"`
}

type assetDTO struct {
	ID        string `json:"id"`
	Image     string `json:"image"`
	Timestamp int64  `json:"timestamp"`
}

type packDTO struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Images []string `json:"images"`
}

type avatarDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

type classroomDTO struct {
	ClassName     string               `json:"className"`
	Students      []studentDTO         `json:"students"`
	PointPresets  []preset.PointPreset `json:"pointPresets"`
	PetImagePacks []packDTO            `json:"petImagePacks"`
	AvatarPresets []avatarDTO          `json:"avatarPresets"`
	PoolSize      int                  `json:"poolSize"`
}

type actionDTO struct {
	Outcome string      `json:"outcome,omitempty"`
	Student *studentDTO `json:"student,omitempty"`
}

type leaderboardDTO struct {
	Entries     []leaderboard.CachedEntry `json:"entries"`
	GeneratedAt time.Time                 `json:"generatedAt"`
	Source      string                    `json:"source"`
}

type activityDTO struct {
	StudentID   string      `json:"studentId"`
	StudentName string      `json:"studentName"`
	PetName     string      `json:"petName"`
	Log         pointLogDTO `json:"log"`
}

type certificateDTO struct {
	StudentID    string `json:"studentId"`
	StudentName  string `json:"studentName"`
	PetName      string `json:"petName"`
	FinalImage   string `json:"finalImage"`
	AdoptionDate int64  `json:"adoptionDate"`
	Age          int    `json:"age"`
	Points       int    `json:"points"`
}

// ══════════════════════════════════════════════════════════════════════════════
// MAPPERS
// ══════════════════════════════════════════════════════════════════════════════

func toPointLogDTO(l pet.PointLog) pointLogDTO {
	return pointLogDTO{ID: l.ID, Amount: l.Amount, Reason: l.Reason, Timestamp: l.Timestamp.UnixMilli()}
}

func toPetDTO(p *pet.Pet) *petDTO {
	if p == nil {
		return nil
	}
	logs := make([]pointLogDTO, len(p.Logs))
	for i, l := range p.Logs {
		logs[i] = toPointLogDTO(l)
	}
	return &petDTO{
		ID:           p.ID,
		Name:         p.Name,
		Stage:        p.Stage,
		Age:          p.Age(),
		Progress:     p.Progress,
		Points:       p.Points,
		Food:         p.Food,
		Image:        p.CurrentImage(),
		CustomImages: append([]string{}, p.CustomImages...),
		IsAdopted:    p.IsAdopted,
		IsMaxed:      p.IsMaxed(),
		AdoptionDate: p.AdoptionDate.UnixMilli(),
		Logs:         logs,
	}
}

func toStudentDTO(s *student.Student, p *pet.Pet) studentDTO {
	return studentDTO{
		ID:        s.ID,
		Name:      s.Name,
		Avatar:    s.Avatar,
		Gender:    string(s.Gender),
		ExtraInfo: s.ExtraInfo,
		Pet:       toPetDTO(p),
	}
}

func toPackDTOs(packs []preset.PetImagePack) []packDTO {
	out := make([]packDTO, len(packs))
	for i, p := range packs {
		out[i] = packDTO{ID: p.ID, Name: p.Name, Images: append([]string{}, p.Images...)}
	}
	return out
}

func toAvatarDTOs(avatars []preset.AvatarPreset) []avatarDTO {
	out := make([]avatarDTO, len(avatars))
	for i, a := range avatars {
		out[i] = avatarDTO{ID: a.ID, Name: a.Name, Image: a.Image}
	}
	return out
}

func toAssetDTOs(assets []avatarpool.Asset) []assetDTO {
	out := make([]assetDTO, len(assets))
	for i, a := range assets {
		out[i] = assetDTO{ID: a.ID, Image: a.Image, Timestamp: a.Timestamp}
	}
	return out
}

func toClassroomDTO(s classroom.State) classroomDTO {
	students := make([]studentDTO, len(s.Students))
	for i, st := range s.Students {
		students[i] = toStudentDTO(st, s.Pet(st.ID))
	}
	presets := s.PointPresets
	if presets == nil {
		presets = []preset.PointPreset{}
	}
	return classroomDTO{
		ClassName:     s.ClassName,
		Students:      students,
		PointPresets:  presets,
		PetImagePacks: toPackDTOs(s.PetImagePacks),
		AvatarPresets: toAvatarDTOs(s.AvatarPresets),
		PoolSize:      len(s.PoolAssets),
	}
}

func toActivityDTOs(items []classroom.ActivityItem) []activityDTO {
	out := make([]activityDTO, len(items))
	for i, it := range items {
		out[i] = activityDTO{
			StudentID:   it.StudentID,
			StudentName: it.StudentName,
			PetName:     it.PetName,
			Log:         toPointLogDTO(it.Log),
		}
	}
	return out
}

func toCertificateDTO(c *pet.Certificate) certificateDTO {
	return certificateDTO{
		StudentID:    c.StudentID,
		StudentName:  c.StudentName,
		PetName:      c.PetName,
		FinalImage:   c.FinalImage,
		AdoptionDate: c.AdoptionDate.UnixMilli(),
		Age:          c.Age,
		Points:       c.Points,
	}
}
