package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Luffyt01/HemoLink/internal/directory"
	"github.com/Luffyt01/HemoLink/internal/domain"
	"github.com/Luffyt01/HemoLink/internal/observability"
	"github.com/Luffyt01/HemoLink/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateRequestInput carries the fields a hospital supplies when raising a
// blood request. CallerUserID identifies the hospital user making the call.
type CreateRequestInput struct {
	CallerUserID  string
	BloodType     domain.BloodType
	UnitsRequired int
	Urgency       domain.Urgency
	ExpiryTime    *time.Time
}

// UpdateDetailsInput carries a full detail overwrite for a request.
type UpdateDetailsInput struct {
	BloodType     domain.BloodType
	UnitsRequired int
	Urgency       domain.Urgency
	ExpiryTime    time.Time
}

// RequestService owns the blood request lifecycle: creation, urgency and
// detail updates, cancellation, filtered queries, and the expiry batch.
type RequestService struct {
	requests repository.RequestRepository
	dir      directory.Directory
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewRequestService(
	requests repository.RequestRepository,
	dir directory.Directory,
	logger *zap.Logger,
) (*RequestService, error) {
	if requests == nil {
		return nil, fmt.Errorf("request repository is required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RequestService{
		requests: requests,
		dir:      dir,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (s *RequestService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *RequestService) Create(ctx context.Context, input CreateRequestInput) (*domain.BloodRequest, error) {
	if strings.TrimSpace(input.CallerUserID) == "" {
		return nil, fmt.Errorf("%w: caller user id is required", domain.ErrValidation)
	}

	hospital, err := s.dir.GetHospitalByUser(ctx, input.CallerUserID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	expiry := domain.DeriveExpiry(input.Urgency, now)
	if input.ExpiryTime != nil {
		expiry = input.ExpiryTime.UTC()
	}

	request := &domain.BloodRequest{
		ID:            uuid.NewString(),
		HospitalID:    hospital.ID,
		HospitalName:  hospital.Name,
		BloodType:     input.BloodType,
		UnitsRequired: input.UnitsRequired,
		Urgency:       input.Urgency,
		Lng:           hospital.Location.Lng,
		Lat:           hospital.Location.Lat,
		Status:        domain.RequestPending,
		ExpiryTime:    expiry,
	}

	if err := request.Validate(); err != nil {
		return nil, err
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, err
	}

	s.logger.Info("blood request created",
		zap.String("requestId", request.ID),
		zap.String("hospitalId", request.HospitalID),
		zap.String("bloodType", request.BloodType.String()),
		zap.String("urgency", request.Urgency.String()),
		zap.Int("unitsRequired", request.UnitsRequired),
	)

	return request, nil
}

func (s *RequestService) GetByID(ctx context.Context, id string) (*domain.BloodRequest, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: request id is required", domain.ErrValidation)
	}
	return s.requests.GetByID(ctx, strings.TrimSpace(id))
}

func (s *RequestService) UpdateUrgency(ctx context.Context, id string, urgency domain.Urgency) (*domain.BloodRequest, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if request.Urgency == urgency {
		return nil, fmt.Errorf("%w: urgency is already %s for request %s", domain.ErrValidation, urgency, id)
	}

	expiry := domain.DeriveExpiry(urgency, s.now().UTC())
	if err := s.requests.UpdateUrgency(ctx, id, urgency, expiry); err != nil {
		return nil, err
	}

	request.Urgency = urgency
	request.ExpiryTime = expiry
	return request, nil
}

func (s *RequestService) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) (*domain.BloodRequest, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if request.Status == status {
		return nil, fmt.Errorf("%w: status is already %s for request %s", domain.ErrValidation, status, id)
	}
	if !domain.CanTransitionRequest(request.Status, status) {
		return nil, fmt.Errorf("%w: request %s cannot move from %s to %s", domain.ErrValidation, id, request.Status, status)
	}

	if err := s.requests.UpdateStatus(ctx, id, request.Status, status); err != nil {
		return nil, err
	}

	request.Status = status
	return request, nil
}

func (s *RequestService) UpdateDetails(ctx context.Context, id string, input UpdateDetailsInput) (*domain.BloodRequest, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if request.BloodType == input.BloodType &&
		request.UnitsRequired == input.UnitsRequired &&
		request.Urgency == input.Urgency &&
		request.ExpiryTime.Equal(input.ExpiryTime) {
		return nil, fmt.Errorf("%w: no changes made to request %s", domain.ErrValidation, id)
	}

	if !input.BloodType.IsValid() {
		return nil, fmt.Errorf("%w: invalid blood type %q", domain.ErrValidation, input.BloodType)
	}
	if input.UnitsRequired < 1 {
		return nil, fmt.Errorf("%w: units required must be >= 1 (got %d)", domain.ErrValidation, input.UnitsRequired)
	}
	if !input.Urgency.IsValid() {
		return nil, fmt.Errorf("%w: invalid urgency %q", domain.ErrValidation, input.Urgency)
	}

	update := repository.DetailUpdate{
		BloodType:     input.BloodType,
		UnitsRequired: input.UnitsRequired,
		Urgency:       input.Urgency,
		ExpiryTime:    input.ExpiryTime.UTC(),
	}
	if err := s.requests.UpdateDetails(ctx, id, update); err != nil {
		return nil, err
	}

	request.BloodType = update.BloodType
	request.UnitsRequired = update.UnitsRequired
	request.Urgency = update.Urgency
	request.ExpiryTime = update.ExpiryTime
	return request, nil
}

func (s *RequestService) Cancel(ctx context.Context, id string) (*domain.BloodRequest, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.requests.ForceStatus(ctx, id, domain.RequestCancelled); err != nil {
		return nil, err
	}

	s.logger.Info("blood request cancelled", zap.String("requestId", id))

	request.Status = domain.RequestCancelled
	return request, nil
}

func (s *RequestService) ListFiltered(ctx context.Context, params repository.ListParams) ([]domain.BloodRequest, int64, error) {
	requests, total, err := s.requests.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	if len(requests) == 0 {
		return nil, 0, fmt.Errorf("%w: no requests matching criteria", domain.ErrNotFound)
	}
	return requests, total, nil
}

func (s *RequestService) ListByHospitalUser(ctx context.Context, callerUserID string, page, pageSize int) ([]domain.BloodRequest, int64, error) {
	if strings.TrimSpace(callerUserID) == "" {
		return nil, 0, fmt.Errorf("%w: caller user id is required", domain.ErrValidation)
	}

	hospital, err := s.dir.GetHospitalByUser(ctx, callerUserID)
	if err != nil {
		return nil, 0, err
	}

	requests, total, err := s.requests.ListByHospital(ctx, hospital.ID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, fmt.Errorf("%w: no requests found for hospital %s", domain.ErrNotFound, hospital.ID)
	}

	return requests, total, nil
}

// ExpireDue transitions every due PENDING request to EXPIRED in one batch
// statement. Invoked by the expiry sweeper.
func (s *RequestService) ExpireDue(ctx context.Context) (int64, error) {
	expired, err := s.requests.ExpireDue(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire due requests: %w", err)
	}

	if expired > 0 {
		s.logger.Info("expired stale requests", zap.Int64("count", expired))
		if s.metrics != nil {
			s.metrics.AddRequestsExpired(expired)
		}
	}

	return expired, nil
}
