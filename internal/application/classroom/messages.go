package classroom

import "github.com/petgalaxy/classroom-pets/internal/domain/student"

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGES
// Every mutation of the classroom is one of the types below.
// ══════════════════════════════════════════════════════════════════════════════

// Msg is a user action handled by Reduce.
type Msg interface {
	// Kind identifies the message in logs.
	Kind() string
}

// AddStudent enrols a student. ID is optional and generated when empty.
type AddStudent struct {
	ID     string
	Name   string
	Avatar string
	Gender student.Gender
}

// UpdateStudent edits a student; empty fields are left unchanged.
type UpdateStudent struct {
	ID     string
	Name   string
	Avatar string
	Gender student.Gender
}

// DeleteStudent removes a student together with their pet.
type DeleteStudent struct {
	ID string
}

// AdoptPet gives a student their pet. Images are the ten stage images;
// when PackID is set the images of that pack are used instead.
type AdoptPet struct {
	StudentID string
	PetName   string
	Images    []string
	PackID    string
}

// GivePoints awards or deducts points. A PresetID overrides Amount and
// Reason with the preset's values.
type GivePoints struct {
	StudentID string
	Amount    int
	Reason    string
	PresetID  string
}

// BuyFood spends one point on one food ration.
type BuyFood struct {
	StudentID string
}

// FeedPet feeds the student's pet.
type FeedPet struct {
	StudentID string
}

// RenameClass changes the classroom title.
type RenameClass struct {
	Name string
}

// AddPointPreset appends a point preset.
type AddPointPreset struct {
	Label  string
	Amount int
}

// DeletePointPreset removes a point preset.
type DeletePointPreset struct {
	ID string
}

// AddPetImagePack stores an uploaded stage image set.
type AddPetImagePack struct {
	Name   string
	Images []string
}

// DeletePetImagePack removes an image pack.
type DeletePetImagePack struct {
	ID string
}

// AddAvatarPreset stores a custom avatar.
type AddAvatarPreset struct {
	Name  string
	Image string
}

// DeleteAvatarPreset removes a custom avatar.
type DeleteAvatarPreset struct {
	ID string
}

// AddPoolAvatars uploads a batch of images into the avatar pool.
type AddPoolAvatars struct {
	Images []string
}

// ClearAll wipes every collection and restores the defaults.
type ClearAll struct{}

func (AddStudent) Kind() string         { return "add_student" }
func (UpdateStudent) Kind() string      { return "update_student" }
func (DeleteStudent) Kind() string      { return "delete_student" }
func (AdoptPet) Kind() string           { return "adopt_pet" }
func (GivePoints) Kind() string         { return "give_points" }
func (BuyFood) Kind() string            { return "buy_food" }
func (FeedPet) Kind() string            { return "feed_pet" }
func (RenameClass) Kind() string        { return "rename_class" }
func (AddPointPreset) Kind() string     { return "add_point_preset" }
func (DeletePointPreset) Kind() string  { return "delete_point_preset" }
func (AddPetImagePack) Kind() string    { return "add_pet_image_pack" }
func (DeletePetImagePack) Kind() string { return "delete_pet_image_pack" }
func (AddAvatarPreset) Kind() string    { return "add_avatar_preset" }
func (DeleteAvatarPreset) Kind() string { return "delete_avatar_preset" }
func (AddPoolAvatars) Kind() string     { return "add_pool_avatars" }
func (ClearAll) Kind() string           { return "clear_all" }
