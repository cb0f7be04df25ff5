package pet

import (
	"time"

	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
)

// Certificate is the read-only award shown once a pet completes its growth.
type Certificate struct {
	StudentID    string
	StudentName  string
	PetName      string
	FinalImage   string
	AdoptionDate time.Time
	Age          int
	Points       int
}

// IssueCertificate builds the certificate view of a maxed pet.
func IssueCertificate(p *Pet, studentName string) (*Certificate, error) {
	if p == nil {
		return nil, shared.ErrPetNotFound
	}
	if !p.IsMaxed() {
		return nil, shared.ErrCertificateLocked
	}
	return &Certificate{
		StudentID:    p.ID,
		StudentName:  studentName,
		PetName:      p.Name,
		FinalImage:   p.CurrentImage(),
		AdoptionDate: p.AdoptionDate,
		Age:          p.Age(),
		Points:       p.Points,
	}, nil
}
