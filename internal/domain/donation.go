package domain

import (
	"fmt"
	"strings"
	"time"
)

// DonationStatus represents the lifecycle state of a scheduled donation.
type DonationStatus string

const (
	DonationScheduled DonationStatus = "SCHEDULED"
	DonationCompleted DonationStatus = "COMPLETED"
	DonationCancelled DonationStatus = "CANCELLED"
	DonationMissed    DonationStatus = "MISSED"
)

func (s DonationStatus) String() string { return string(s) }

func (s DonationStatus) IsValid() bool {
	switch s {
	case DonationScheduled, DonationCompleted, DonationCancelled, DonationMissed:
		return true
	}
	return false
}

func ParseDonationStatusFromString(s string) (DonationStatus, error) {
	st := DonationStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid donation status %q", ErrValidation, s)
	}
	return st, nil
}

var donationTransitions = map[DonationStatus][]DonationStatus{
	DonationScheduled: {DonationCompleted, DonationCancelled, DonationMissed},
}

// CanTransitionDonation reports whether a donation may move from one status
// to another.
func CanTransitionDonation(from, to DonationStatus) bool {
	for _, next := range donationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Donation is a confirmed pledge by a donor against a specific request. At
// most one donation exists per (donor, request) pair.
type Donation struct {
	ID          string         `gorm:"type:uuid;primaryKey"`
	DonorID     string         `gorm:"type:varchar(64);not null"`
	RequestID   string         `gorm:"type:uuid;not null"`
	ScheduledAt time.Time      `gorm:"not null"`
	CompletedAt *time.Time     `gorm:"type:timestamptz"`
	Status      DonationStatus `gorm:"type:varchar(20);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
