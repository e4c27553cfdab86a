package domain

import (
	"fmt"
	"strings"
	"time"
)

// RequestStatus represents the lifecycle state of a blood request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestFulfilled RequestStatus = "FULFILLED"
	RequestExpired   RequestStatus = "EXPIRED"
	RequestCancelled RequestStatus = "CANCELLED"
)

func (s RequestStatus) String() string { return string(s) }

func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestPending, RequestFulfilled, RequestExpired, RequestCancelled:
		return true
	}
	return false
}

func ParseRequestStatusFromString(s string) (RequestStatus, error) {
	st := RequestStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid request status %q", ErrValidation, s)
	}
	return st, nil
}

// requestTransitions is the allowed status transition table. Terminal states
// have no outgoing transitions.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending: {RequestFulfilled, RequestExpired, RequestCancelled},
}

// CanTransitionRequest reports whether a request may move from one status to
// another.
func CanTransitionRequest(from, to RequestStatus) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Urgency represents the priority of a blood request and drives its default
// expiry window.
type Urgency string

const (
	UrgencyHigh   Urgency = "HIGH"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyLow    Urgency = "LOW"
)

func (u Urgency) String() string { return string(u) }

func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	}
	return false
}

func ParseUrgencyFromString(s string) (Urgency, error) {
	u := Urgency(strings.ToUpper(strings.TrimSpace(s)))
	if !u.IsValid() {
		return "", fmt.Errorf("%w: invalid urgency %q", ErrValidation, s)
	}
	return u, nil
}

// Point is a geographic location in degrees.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// BloodRequest is a hospital's demand for a number of blood units.
type BloodRequest struct {
	ID            string        `gorm:"type:uuid;primaryKey;column:request_id"`
	HospitalID    string        `gorm:"type:varchar(64);not null"`
	HospitalName  string        `gorm:"type:varchar(255);not null"`
	BloodType     BloodType     `gorm:"type:varchar(16);not null"`
	UnitsRequired int           `gorm:"not null"`
	Urgency       Urgency       `gorm:"type:varchar(10);not null"`
	Lng           float64       `gorm:"not null"`
	Lat           float64       `gorm:"not null"`
	Status        RequestStatus `gorm:"type:varchar(20);not null"`
	CreatedAt     time.Time     `gorm:"<-:create"`
	ExpiryTime    time.Time     `gorm:"not null"`
	UpdatedAt     time.Time
}

func (r *BloodRequest) Location() Point {
	return Point{Lng: r.Lng, Lat: r.Lat}
}

func (r *BloodRequest) Validate() error {
	if !r.BloodType.IsValid() {
		return fmt.Errorf("%w: invalid blood type %q", ErrValidation, r.BloodType)
	}
	if r.UnitsRequired < 1 {
		return fmt.Errorf("%w: units required must be >= 1 (got %d)", ErrValidation, r.UnitsRequired)
	}
	if !r.Urgency.IsValid() {
		return fmt.Errorf("%w: invalid urgency %q", ErrValidation, r.Urgency)
	}
	if r.HospitalID == "" {
		return fmt.Errorf("%w: hospital id is required", ErrValidation)
	}
	return nil
}

// DeriveExpiry returns the default expiry for a request of the given urgency
// created at the given time: HIGH +24h, MEDIUM +5d, LOW +14d.
func DeriveExpiry(urgency Urgency, from time.Time) time.Time {
	switch urgency {
	case UrgencyHigh:
		return from.Add(24 * time.Hour)
	case UrgencyMedium:
		return from.AddDate(0, 0, 5)
	default:
		return from.AddDate(0, 0, 14)
	}
}
