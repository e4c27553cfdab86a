package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Luffyt01/HemoLink/internal/domain"
	"gorm.io/gorm"
)

// ListParams composes the optional filter predicates for request queries.
// Only non-nil fields contribute to the query.
type ListParams struct {
	Status      *domain.RequestStatus
	BloodType   *domain.BloodType
	Urgency     *domain.Urgency
	ExpiryStart *time.Time
	ExpiryEnd   *time.Time
	Page        int
	PageSize    int
}

type DetailUpdate struct {
	BloodType     domain.BloodType
	UnitsRequired int
	Urgency       domain.Urgency
	ExpiryTime    time.Time
}

type RequestRepository interface {
	Create(ctx context.Context, r *domain.BloodRequest) error
	GetByID(ctx context.Context, id string) (*domain.BloodRequest, error)
	List(ctx context.Context, params ListParams) ([]domain.BloodRequest, int64, error)
	ListByHospital(ctx context.Context, hospitalID string, page, pageSize int) ([]domain.BloodRequest, int64, error)
	UpdateUrgency(ctx context.Context, id string, urgency domain.Urgency, expiry time.Time) error
	UpdateStatus(ctx context.Context, id string, from, to domain.RequestStatus) error
	UpdateDetails(ctx context.Context, id string, update DetailUpdate) error
	ForceStatus(ctx context.Context, id string, status domain.RequestStatus) error
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	MarkFulfilledIfComplete(ctx context.Context, id string) (bool, error)
}

type GormRequestRepo struct {
	db *gorm.DB
}

func NewGormRequestRepo(db *gorm.DB) *GormRequestRepo {
	return &GormRequestRepo{db: db}
}

func (r *GormRequestRepo) Create(ctx context.Context, request *domain.BloodRequest) error {
	model := requestModelFromDomain(request)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if request != nil {
		*request = *requestModelToDomain(model)
	}
	return nil
}

func (r *GormRequestRepo) GetByID(ctx context.Context, id string) (*domain.BloodRequest, error) {
	var model BloodRequestModel
	err := r.db.WithContext(ctx).First(&model, "request_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return requestModelToDomain(&model), nil
}

func (r *GormRequestRepo) List(ctx context.Context, params ListParams) ([]domain.BloodRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&BloodRequestModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.BloodType != nil {
		query = query.Where("blood_type = ?", *params.BloodType)
	}
	if params.Urgency != nil {
		query = query.Where("urgency = ?", *params.Urgency)
	}
	if params.ExpiryStart != nil {
		query = query.Where("expiry_time >= ?", *params.ExpiryStart)
	}
	if params.ExpiryEnd != nil {
		query = query.Where("expiry_time <= ?", *params.ExpiryEnd)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 10
	}
	pageSize = min(pageSize, 100)

	var models []BloodRequestModel
	err := query.
		Order("expiry_time ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	requests := make([]domain.BloodRequest, 0, len(models))
	for i := range models {
		requests = append(requests, *requestModelToDomain(&models[i]))
	}

	return requests, total, nil
}

func (r *GormRequestRepo) ListByHospital(ctx context.Context, hospitalID string, page, pageSize int) ([]domain.BloodRequest, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&BloodRequestModel{}).
		Where("hospital_id = ?", hospitalID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page = max(page, 1)
	if pageSize < 1 {
		pageSize = 10
	}
	pageSize = min(pageSize, 100)

	var models []BloodRequestModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	requests := make([]domain.BloodRequest, 0, len(models))
	for i := range models {
		requests = append(requests, *requestModelToDomain(&models[i]))
	}

	return requests, total, nil
}

func (r *GormRequestRepo) UpdateUrgency(ctx context.Context, id string, urgency domain.Urgency, expiry time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&BloodRequestModel{}).
		Where("request_id = ? AND urgency <> ?", id, urgency).
		Updates(map[string]any{
			"urgency":     urgency,
			"expiry_time": expiry,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormRequestRepo) UpdateStatus(ctx context.Context, id string, from, to domain.RequestStatus) error {
	result := r.db.WithContext(ctx).
		Model(&BloodRequestModel{}).
		Where("request_id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormRequestRepo) UpdateDetails(ctx context.Context, id string, update DetailUpdate) error {
	result := r.db.WithContext(ctx).
		Model(&BloodRequestModel{}).
		Where("request_id = ?", id).
		Updates(map[string]any{
			"blood_type":     update.BloodType,
			"units_required": update.UnitsRequired,
			"urgency":        update.Urgency,
			"expiry_time":    update.ExpiryTime,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormRequestRepo) ForceStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	result := r.db.WithContext(ctx).
		Model(&BloodRequestModel{}).
		Where("request_id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ExpireDue moves every PENDING request whose expiry is in the past to
// EXPIRED in one conditional batch statement, so overlapping sweeps are
// idempotent. Returns the number of requests expired.
func (r *GormRequestRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&BloodRequestModel{}).
		Where("status = ? AND expiry_time < ?", domain.RequestPending, now).
		Update("status", domain.RequestExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MarkFulfilledIfComplete transitions a request to FULFILLED only while it is
// still PENDING and its COMPLETED donation count has reached units_required.
// The count and the transition happen in a single statement, so concurrent
// completions cannot both observe a stale count.
func (r *GormRequestRepo) MarkFulfilledIfComplete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&BloodRequestModel{}).
		Where("request_id = ? AND status = ?", id, domain.RequestPending).
		Where("units_required <= (?)",
			r.db.Model(&DonationModel{}).
				Select("COUNT(*)").
				Where("request_id = ? AND status = ?", id, domain.DonationCompleted),
		).
		Update("status", domain.RequestFulfilled)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
