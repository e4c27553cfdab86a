package service

import (
	"context"
	"fmt"

	"github.com/Luffyt01/HemoLink/internal/domain"
	"github.com/Luffyt01/HemoLink/internal/repository"
	"go.uber.org/zap"
)

// MatchLogService exposes the notification side of the match log: listing
// matches awaiting notification and acknowledging delivery.
type MatchLogService struct {
	matchLogs repository.MatchLogRepository
	logger    *zap.Logger
}

func NewMatchLogService(matchLogs repository.MatchLogRepository, logger *zap.Logger) (*MatchLogService, error) {
	if matchLogs == nil {
		return nil, fmt.Errorf("match log repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MatchLogService{
		matchLogs: matchLogs,
		logger:    logger,
	}, nil
}

// PendingNotifications returns match logs that have not been notified yet.
func (s *MatchLogService) PendingNotifications(ctx context.Context) ([]domain.MatchLog, error) {
	logs, err := s.matchLogs.ListByStatus(ctx, domain.NotificationPending)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, fmt.Errorf("%w: no pending notifications", domain.ErrNotFound)
	}
	return logs, nil
}

// MarkNotificationSent acknowledges that the donor was notified.
func (s *MatchLogService) MarkNotificationSent(ctx context.Context, matchID string) error {
	matchLog, err := s.matchLogs.GetByID(ctx, matchID)
	if err != nil {
		return err
	}

	if err := s.matchLogs.UpdateStatus(ctx, matchLog.ID, domain.NotificationSent); err != nil {
		return err
	}

	s.logger.Info("match notification sent",
		zap.String("matchId", matchID),
		zap.String("donorId", matchLog.DonorID),
	)
	return nil
}
