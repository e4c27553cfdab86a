package repository

import (
	"time"

	"github.com/Luffyt01/HemoLink/internal/domain"
)

// BloodRequestModel is the persistence model for the blood_requests table.
type BloodRequestModel struct {
	ID            string               `gorm:"type:uuid;primaryKey;column:request_id"`
	HospitalID    string               `gorm:"type:varchar(64);not null"`
	HospitalName  string               `gorm:"type:varchar(255);not null"`
	BloodType     domain.BloodType     `gorm:"type:varchar(16);not null"`
	UnitsRequired int                  `gorm:"not null"`
	Urgency       domain.Urgency       `gorm:"type:varchar(10);not null"`
	Lng           float64              `gorm:"not null"`
	Lat           float64              `gorm:"not null"`
	Status        domain.RequestStatus `gorm:"type:varchar(20);not null"`
	CreatedAt     time.Time            `gorm:"<-:create"`
	ExpiryTime    time.Time            `gorm:"not null"`
	UpdatedAt     time.Time
}

func (BloodRequestModel) TableName() string {
	return "blood_requests"
}

// DonationModel is the persistence model for the donations table.
type DonationModel struct {
	ID          string                `gorm:"type:uuid;primaryKey"`
	DonorID     string                `gorm:"type:varchar(64);not null"`
	RequestID   string                `gorm:"type:uuid;not null"`
	ScheduledAt time.Time             `gorm:"not null"`
	CompletedAt *time.Time            `gorm:"type:timestamptz"`
	Status      domain.DonationStatus `gorm:"type:varchar(20);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (DonationModel) TableName() string {
	return "donations"
}

// MatchLogModel is the persistence model for the match_log table.
type MatchLogModel struct {
	ID          string                    `gorm:"type:uuid;primaryKey"`
	RequestID   string                    `gorm:"type:uuid;not null"`
	DonorID     string                    `gorm:"type:varchar(64);not null"`
	MatchedAt   time.Time                 `gorm:"not null"`
	Status      domain.NotificationStatus `gorm:"type:varchar(20);not null"`
	Volunteered bool                      `gorm:"not null;default:false"`
}

func (MatchLogModel) TableName() string {
	return "match_log"
}

func requestModelFromDomain(r *domain.BloodRequest) *BloodRequestModel {
	if r == nil {
		return nil
	}

	return &BloodRequestModel{
		ID:            r.ID,
		HospitalID:    r.HospitalID,
		HospitalName:  r.HospitalName,
		BloodType:     r.BloodType,
		UnitsRequired: r.UnitsRequired,
		Urgency:       r.Urgency,
		Lng:           r.Lng,
		Lat:           r.Lat,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		ExpiryTime:    r.ExpiryTime,
		UpdatedAt:     r.UpdatedAt,
	}
}

func requestModelToDomain(m *BloodRequestModel) *domain.BloodRequest {
	if m == nil {
		return nil
	}

	return &domain.BloodRequest{
		ID:            m.ID,
		HospitalID:    m.HospitalID,
		HospitalName:  m.HospitalName,
		BloodType:     m.BloodType,
		UnitsRequired: m.UnitsRequired,
		Urgency:       m.Urgency,
		Lng:           m.Lng,
		Lat:           m.Lat,
		Status:        m.Status,
		CreatedAt:     m.CreatedAt,
		ExpiryTime:    m.ExpiryTime,
		UpdatedAt:     m.UpdatedAt,
	}
}

func donationModelFromDomain(d *domain.Donation) *DonationModel {
	if d == nil {
		return nil
	}

	return &DonationModel{
		ID:          d.ID,
		DonorID:     d.DonorID,
		RequestID:   d.RequestID,
		ScheduledAt: d.ScheduledAt,
		CompletedAt: d.CompletedAt,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func donationModelToDomain(m *DonationModel) *domain.Donation {
	if m == nil {
		return nil
	}

	return &domain.Donation{
		ID:          m.ID,
		DonorID:     m.DonorID,
		RequestID:   m.RequestID,
		ScheduledAt: m.ScheduledAt,
		CompletedAt: m.CompletedAt,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func matchLogModelFromDomain(l *domain.MatchLog) *MatchLogModel {
	if l == nil {
		return nil
	}

	return &MatchLogModel{
		ID:          l.ID,
		RequestID:   l.RequestID,
		DonorID:     l.DonorID,
		MatchedAt:   l.MatchedAt,
		Status:      l.Status,
		Volunteered: l.Volunteered,
	}
}

func matchLogModelToDomain(m *MatchLogModel) *domain.MatchLog {
	if m == nil {
		return nil
	}

	return &domain.MatchLog{
		ID:          m.ID,
		RequestID:   m.RequestID,
		DonorID:     m.DonorID,
		MatchedAt:   m.MatchedAt,
		Status:      m.Status,
		Volunteered: m.Volunteered,
	}
}
