package domain

import (
	"fmt"
	"strings"
	"time"
)

// NotificationStatus tracks the outcome of offering a request to a donor.
type NotificationStatus string

const (
	NotificationPending     NotificationStatus = "PENDING"
	NotificationSent        NotificationStatus = "SENT"
	NotificationFailed      NotificationStatus = "FAILED"
	NotificationVolunteered NotificationStatus = "VOLUNTEERED"
)

func (s NotificationStatus) String() string { return string(s) }

func (s NotificationStatus) IsValid() bool {
	switch s {
	case NotificationPending, NotificationSent, NotificationFailed, NotificationVolunteered:
		return true
	}
	return false
}

func ParseNotificationStatusFromString(s string) (NotificationStatus, error) {
	st := NotificationStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid notification status %q", ErrValidation, s)
	}
	return st, nil
}

// MatchLog records that a donor was offered a request, or volunteered for it.
type MatchLog struct {
	ID          string             `gorm:"type:uuid;primaryKey"`
	RequestID   string             `gorm:"type:uuid;not null"`
	DonorID     string             `gorm:"type:varchar(64);not null"`
	MatchedAt   time.Time          `gorm:"not null"`
	Status      NotificationStatus `gorm:"type:varchar(20);not null"`
	Volunteered bool               `gorm:"not null;default:false"`
}
