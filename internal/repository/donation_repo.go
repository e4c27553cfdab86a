package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Luffyt01/HemoLink/internal/domain"
	"gorm.io/gorm"
)

type DonationRepository interface {
	// Schedule inserts the donation and then runs confirm inside the same
	// transaction; if confirm fails the insert is rolled back. The unique
	// (donor_id, request_id) index rejects duplicate pairs at the store.
	Schedule(ctx context.Context, d *domain.Donation, confirm func(ctx context.Context) error) error
	GetByID(ctx context.Context, id string) (*domain.Donation, error)
	ExistsByDonorAndRequest(ctx context.Context, donorID, requestID string) (bool, error)
	ListByDonor(ctx context.Context, donorID string) ([]domain.Donation, error)
	CountByRequestAndStatus(ctx context.Context, requestID string, status domain.DonationStatus) (int64, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.DonationStatus, completedAt *time.Time) error
}

type GormDonationRepo struct {
	db *gorm.DB
}

func NewGormDonationRepo(db *gorm.DB) *GormDonationRepo {
	return &GormDonationRepo{db: db}
}

func (r *GormDonationRepo) Schedule(ctx context.Context, d *domain.Donation, confirm func(ctx context.Context) error) error {
	model := donationModelFromDomain(d)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		if confirm != nil {
			if err := confirm(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if d != nil {
		*d = *donationModelToDomain(model)
	}
	return nil
}

func (r *GormDonationRepo) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	var model DonationModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return donationModelToDomain(&model), nil
}

func (r *GormDonationRepo) ExistsByDonorAndRequest(ctx context.Context, donorID, requestID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&DonationModel{}).
		Where("donor_id = ? AND request_id = ?", donorID, requestID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormDonationRepo) ListByDonor(ctx context.Context, donorID string) ([]domain.Donation, error) {
	var models []DonationModel
	err := r.db.WithContext(ctx).
		Where("donor_id = ?", donorID).
		Order("scheduled_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	donations := make([]domain.Donation, 0, len(models))
	for i := range models {
		donations = append(donations, *donationModelToDomain(&models[i]))
	}

	return donations, nil
}

func (r *GormDonationRepo) CountByRequestAndStatus(ctx context.Context, requestID string, status domain.DonationStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&DonationModel{}).
		Where("request_id = ? AND status = ?", requestID, status).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormDonationRepo) UpdateStatus(ctx context.Context, id string, from, to domain.DonationStatus, completedAt *time.Time) error {
	updates := map[string]any{"status": to}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}

	result := r.db.WithContext(ctx).
		Model(&DonationModel{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}
