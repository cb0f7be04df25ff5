package classroom

import (
	"github.com/petgalaxy/classroom-pets/internal/domain/avatarpool"
	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/preset"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
)

// Effect is a persistence instruction produced by Reduce. Effects are plain
// data; Container interprets them against a Store.
type Effect interface {
	// Target names the collection the effect touches.
	Target() string
}

type (
	// SaveStudentEffect upserts a student.
	SaveStudentEffect struct{ Student *student.Student }
	// DeleteStudentEffect removes a student.
	DeleteStudentEffect struct{ ID string }
	// SavePetEffect upserts a pet.
	SavePetEffect struct{ Pet *pet.Pet }
	// DeletePetEffect removes a pet.
	DeletePetEffect struct{ ID string }
	// PutConfigEffect stores a JSON-encodable value under Key.
	PutConfigEffect struct {
		Key   string
		Value any
	}
	// SavePetImagePackEffect upserts an image pack.
	SavePetImagePackEffect struct{ Pack preset.PetImagePack }
	// DeletePetImagePackEffect removes an image pack.
	DeletePetImagePackEffect struct{ ID string }
	// SaveAvatarPresetEffect upserts an avatar preset.
	SaveAvatarPresetEffect struct{ Avatar preset.AvatarPreset }
	// DeleteAvatarPresetEffect removes an avatar preset.
	DeleteAvatarPresetEffect struct{ ID string }
	// SavePoolAssetsEffect inserts a batch into the avatar pool with eviction.
	SavePoolAssetsEffect struct{ Assets []avatarpool.Asset }
	// ClearAllEffect wipes every collection.
	ClearAllEffect struct{}
)

func (SaveStudentEffect) Target() string        { return "students" }
func (DeleteStudentEffect) Target() string      { return "students" }
func (SavePetEffect) Target() string            { return "pets" }
func (DeletePetEffect) Target() string          { return "pets" }
func (PutConfigEffect) Target() string          { return "config" }
func (SavePetImagePackEffect) Target() string   { return "pet_image_packs" }
func (DeletePetImagePackEffect) Target() string { return "pet_image_packs" }
func (SaveAvatarPresetEffect) Target() string   { return "avatar_presets" }
func (DeleteAvatarPresetEffect) Target() string { return "avatar_presets" }
func (SavePoolAssetsEffect) Target() string     { return "avatar_pool" }
func (ClearAllEffect) Target() string           { return "*" }
