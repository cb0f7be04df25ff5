package student

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// The contract for the students collection. Implementations live in
// infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the students collection of the local store.
type Repository interface {
	// SaveStudent inserts or replaces a student, keyed by ID.
	// Replacing keeps the original roster position.
	SaveStudent(ctx context.Context, s *Student) error

	// ListStudents returns every student in roster insertion order.
	ListStudents(ctx context.Context) ([]*Student, error)

	// DeleteStudent removes a student. Deleting a missing ID is not an error.
	DeleteStudent(ctx context.Context, id string) error
}
