package pet

import "context"

// Repository defines the pets collection of the local store.
type Repository interface {
	// SavePet inserts or replaces a pet, keyed by its student ID.
	SavePet(ctx context.Context, p *Pet) error

	// GetPet returns a pet or shared.ErrPetNotFound.
	GetPet(ctx context.Context, id string) (*Pet, error)

	// ListPets returns every pet keyed by ID.
	ListPets(ctx context.Context) (map[string]*Pet, error)

	// DeletePet removes a pet. Deleting a missing ID is not an error.
	DeletePet(ctx context.Context, id string) error
}
