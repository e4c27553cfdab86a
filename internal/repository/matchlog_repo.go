package repository

import (
	"context"
	"errors"

	"github.com/Luffyt01/HemoLink/internal/domain"
	"gorm.io/gorm"
)

type MatchLogRepository interface {
	Create(ctx context.Context, l *domain.MatchLog) error
	CreateBatch(ctx context.Context, logs []*domain.MatchLog) error
	GetByID(ctx context.Context, id string) (*domain.MatchLog, error)
	UpdateStatus(ctx context.Context, id string, status domain.NotificationStatus) error
	ListByDonor(ctx context.Context, donorID string, includeRejected bool) ([]domain.MatchLog, error)
	ListByRequest(ctx context.Context, requestID string) ([]domain.MatchLog, error)
	ListByStatus(ctx context.Context, status domain.NotificationStatus) ([]domain.MatchLog, error)
	CountByRequest(ctx context.Context, requestID string) (int64, error)
}

type GormMatchLogRepo struct {
	db *gorm.DB
}

func NewGormMatchLogRepo(db *gorm.DB) *GormMatchLogRepo {
	return &GormMatchLogRepo{db: db}
}

func (r *GormMatchLogRepo) Create(ctx context.Context, l *domain.MatchLog) error {
	model := matchLogModelFromDomain(l)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if l != nil {
		*l = *matchLogModelToDomain(model)
	}
	return nil
}

func (r *GormMatchLogRepo) CreateBatch(ctx context.Context, logs []*domain.MatchLog) error {
	models := make([]MatchLogModel, 0, len(logs))
	modelIndexes := make([]int, 0, len(logs))
	for i, l := range logs {
		model := matchLogModelFromDomain(l)
		if model != nil {
			models = append(models, *model)
			modelIndexes = append(modelIndexes, i)
		}
	}

	if len(models) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).CreateInBatches(&models, 100).Error; err != nil {
		return err
	}

	for i := range models {
		idx := modelIndexes[i]
		if idx < len(logs) && logs[idx] != nil {
			*logs[idx] = *matchLogModelToDomain(&models[i])
		}
	}

	return nil
}

func (r *GormMatchLogRepo) GetByID(ctx context.Context, id string) (*domain.MatchLog, error) {
	var model MatchLogModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return matchLogModelToDomain(&model), nil
}

func (r *GormMatchLogRepo) UpdateStatus(ctx context.Context, id string, status domain.NotificationStatus) error {
	result := r.db.WithContext(ctx).
		Model(&MatchLogModel{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormMatchLogRepo) ListByDonor(ctx context.Context, donorID string, includeRejected bool) ([]domain.MatchLog, error) {
	query := r.db.WithContext(ctx).Where("donor_id = ?", donorID)
	if !includeRejected {
		query = query.Where("status <> ?", domain.NotificationFailed)
	}

	var models []MatchLogModel
	if err := query.Order("matched_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	logs := make([]domain.MatchLog, 0, len(models))
	for i := range models {
		logs = append(logs, *matchLogModelToDomain(&models[i]))
	}

	return logs, nil
}

func (r *GormMatchLogRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.MatchLog, error) {
	var models []MatchLogModel
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("matched_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	logs := make([]domain.MatchLog, 0, len(models))
	for i := range models {
		logs = append(logs, *matchLogModelToDomain(&models[i]))
	}

	return logs, nil
}

func (r *GormMatchLogRepo) ListByStatus(ctx context.Context, status domain.NotificationStatus) ([]domain.MatchLog, error) {
	var models []MatchLogModel
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("matched_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	logs := make([]domain.MatchLog, 0, len(models))
	for i := range models {
		logs = append(logs, *matchLogModelToDomain(&models[i]))
	}

	return logs, nil
}

func (r *GormMatchLogRepo) CountByRequest(ctx context.Context, requestID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&MatchLogModel{}).
		Where("request_id = ?", requestID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
