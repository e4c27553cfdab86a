package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Luffyt01/HemoLink/internal/directory"
	"github.com/Luffyt01/HemoLink/internal/domain"
	"github.com/Luffyt01/HemoLink/internal/observability"
	"github.com/Luffyt01/HemoLink/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DonorHold takes a short-lived exclusive hold on a donor while a donation
// is being confirmed, so two confirms cannot race on the same donor.
type DonorHold interface {
	Acquire(ctx context.Context, donorID string) (bool, error)
	Release(ctx context.Context, donorID string) error
}

// ConfirmDonationInput carries a donor's confirmation for a request.
type ConfirmDonationInput struct {
	RequestID   string
	DonorID     string
	ScheduledAt time.Time
}

// DonationService schedules donations and drives their lifecycle, rolling
// completed units up into the parent request.
type DonationService struct {
	donations repository.DonationRepository
	requests  repository.RequestRepository
	dir       directory.Directory
	hold      DonorHold
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewDonationService(
	donations repository.DonationRepository,
	requests repository.RequestRepository,
	dir directory.Directory,
	hold DonorHold,
	logger *zap.Logger,
) (*DonationService, error) {
	if donations == nil {
		return nil, fmt.Errorf("donation repository is required")
	}
	if requests == nil {
		return nil, fmt.Errorf("request repository is required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory client is required")
	}
	if hold == nil {
		return nil, fmt.Errorf("donor hold is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DonationService{
		donations: donations,
		requests:  requests,
		dir:       dir,
		hold:      hold,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (s *DonationService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Confirm schedules a donation for an available donor against a PENDING
// request. A donor can confirm a given request at most once; the donor is
// marked unavailable in the same transaction as the donation write.
func (s *DonationService) Confirm(ctx context.Context, input ConfirmDonationInput) (*domain.Donation, error) {
	requestID := strings.TrimSpace(input.RequestID)
	donorID := strings.TrimSpace(input.DonorID)
	if requestID == "" || donorID == "" {
		return nil, fmt.Errorf("%w: request id and donor id are required", domain.ErrValidation)
	}
	if input.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("%w: scheduled time is required", domain.ErrValidation)
	}

	exists, err := s.donations.ExistsByDonorAndRequest(ctx, donorID, requestID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: donor %s already has a donation for request %s", domain.ErrConflict, donorID, requestID)
	}

	acquired, err := s.hold.Acquire(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire donor hold: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: donor %s is being confirmed elsewhere", domain.ErrDonorNotAvailable, donorID)
	}
	defer func() {
		if releaseErr := s.hold.Release(context.WithoutCancel(ctx), donorID); releaseErr != nil {
			s.logger.Warn("failed to release donor hold",
				zap.String("donorId", donorID),
				zap.Error(releaseErr),
			)
		}
	}()

	donor, err := s.dir.GetDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if !donor.Available {
		return nil, fmt.Errorf("%w: donor %s", domain.ErrDonorNotAvailable, donorID)
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != domain.RequestPending {
		return nil, fmt.Errorf("%w: request %s is %s, confirmation requires PENDING", domain.ErrValidation, requestID, request.Status)
	}

	now := s.now().UTC()
	donation := &domain.Donation{
		ID:          uuid.NewString(),
		DonorID:     donorID,
		RequestID:   requestID,
		ScheduledAt: input.ScheduledAt.UTC(),
		Status:      domain.DonationScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.donations.Schedule(ctx, donation, func(txCtx context.Context) error {
		return s.dir.SetDonorAvailability(txCtx, donorID, false)
	})
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%w: donor %s already has a donation for request %s", domain.ErrConflict, donorID, requestID)
		}
		return nil, err
	}

	s.logger.Info("donation scheduled",
		zap.String("donationId", donation.ID),
		zap.String("requestId", requestID),
		zap.String("donorId", donorID),
		zap.Time("scheduledAt", donation.ScheduledAt),
	)
	if s.metrics != nil {
		s.metrics.IncDonationsScheduled()
	}

	return donation, nil
}

// UpdateStatus transitions a donation. Completing the final unit flips the
// parent request to FULFILLED.
func (s *DonationService) UpdateStatus(ctx context.Context, donationID string, target domain.DonationStatus) (*domain.Donation, error) {
	donation, err := s.donations.GetByID(ctx, donationID)
	if err != nil {
		return nil, err
	}

	if donation.Status == target {
		return nil, fmt.Errorf("%w: donation %s is already %s", domain.ErrInvalidDonationStatus, donationID, target)
	}
	if !domain.CanTransitionDonation(donation.Status, target) {
		return nil, fmt.Errorf("%w: cannot move donation from %s to %s", domain.ErrInvalidDonationStatus, donation.Status, target)
	}

	var completedAt *time.Time
	if target == domain.DonationCompleted {
		request, err := s.requests.GetByID(ctx, donation.RequestID)
		if err != nil {
			return nil, err
		}
		if request.Status == domain.RequestExpired {
			return nil, fmt.Errorf("%w: request %s", domain.ErrRequestExpired, donation.RequestID)
		}

		now := s.now().UTC()
		completedAt = &now
	}

	if err := s.donations.UpdateStatus(ctx, donationID, donation.Status, target, completedAt); err != nil {
		return nil, err
	}

	donation.Status = target
	donation.CompletedAt = completedAt

	s.logger.Info("donation status updated",
		zap.String("donationId", donationID),
		zap.String("status", string(target)),
	)

	if target == domain.DonationCompleted {
		fulfilled, err := s.requests.MarkFulfilledIfComplete(ctx, donation.RequestID)
		if err != nil {
			return nil, fmt.Errorf("failed to roll up request fulfillment: %w", err)
		}
		if fulfilled {
			s.logger.Info("request fulfilled", zap.String("requestId", donation.RequestID))
		}
		if s.metrics != nil {
			s.metrics.IncDonationsCompleted()
		}
	}

	return donation, nil
}

// ListByDonor returns the donor's donations, newest first.
func (s *DonationService) ListByDonor(ctx context.Context, donorID string) ([]domain.Donation, error) {
	donations, err := s.donations.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if len(donations) == 0 {
		return nil, fmt.Errorf("%w: no donations for donor %s", domain.ErrNotFound, donorID)
	}
	return donations, nil
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
