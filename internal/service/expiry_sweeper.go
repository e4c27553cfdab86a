package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultSweepInterval = 5 * time.Minute

// ExpirySweeper periodically expires blood requests whose deadline has
// passed without fulfillment.
type ExpirySweeper struct {
	requests *RequestService
	logger   *zap.Logger
	interval time.Duration
}

func NewExpirySweeper(requests *RequestService, interval time.Duration, logger *zap.Logger) (*ExpirySweeper, error) {
	if requests == nil {
		return nil, fmt.Errorf("request service is required")
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ExpirySweeper{
		requests: requests,
		logger:   logger,
		interval: interval,
	}, nil
}

func (s *ExpirySweeper) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.sweep(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("expiry sweeper initial sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("expiry sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) error {
	_, err := s.requests.ExpireDue(ctx)
	return err
}
