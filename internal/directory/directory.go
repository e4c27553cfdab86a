package directory

import (
	"context"
	"time"

	"github.com/Luffyt01/HemoLink/internal/domain"
)

// VerificationStatus of a hospital in the user directory.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// Donor is a donor profile owned by the user directory.
type Donor struct {
	ID           string
	Name         string
	BloodType    domain.BloodType
	Location     domain.Point
	Available    bool
	LastDonation *time.Time
}

// Hospital is a hospital profile owned by the user directory.
type Hospital struct {
	ID                 string
	Name               string
	Location           domain.Point
	VerificationStatus VerificationStatus
}

// DonorCandidate is a directory search hit: an available, compatible donor
// within the search radius, with the directory's own distance figure.
type DonorCandidate struct {
	ID           string
	Name         string
	BloodType    domain.BloodType
	DistanceKm   float64
	LastDonation *time.Time
	Available    bool
}

// EligibleDonorQuery describes a proximity search for eligible donors.
type EligibleDonorQuery struct {
	Point      domain.Point
	BloodTypes []domain.BloodType
	RadiusKm   int
	Limit      int
	// DonatedBefore excludes donors whose last donation is after this cutoff.
	// Donors who never donated always pass.
	DonatedBefore time.Time
}

// Directory is the donor/hospital directory collaborator.
type Directory interface {
	GetDonor(ctx context.Context, donorID string) (*Donor, error)
	GetHospital(ctx context.Context, hospitalID string) (*Hospital, error)
	GetHospitalByUser(ctx context.Context, userID string) (*Hospital, error)
	FindEligibleDonors(ctx context.Context, q EligibleDonorQuery) ([]DonorCandidate, error)
	SetDonorAvailability(ctx context.Context, donorID string, available bool) error
}

// Distance is the road-routing distance collaborator.
type Distance interface {
	DistanceKm(ctx context.Context, a, b domain.Point) (float64, error)
}
