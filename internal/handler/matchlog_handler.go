package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Luffyt01/HemoLink/internal/domain"
	"github.com/gofiber/fiber/v2"
)

type MatchLogService interface {
	PendingNotifications(ctx context.Context) ([]domain.MatchLog, error)
	MarkNotificationSent(ctx context.Context, matchID string) error
}

type MatchLogHandler struct {
	service MatchLogService
}

func NewMatchLogHandler(service MatchLogService) (*MatchLogHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("match log service is required")
	}
	return &MatchLogHandler{service: service}, nil
}

func RegisterMatchLogRoutes(router fiber.Router, service MatchLogService) error {
	h, err := NewMatchLogHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1/match-logs")
	v1.Get("/pending", h.ListPending)
	v1.Patch("/:id/mark-sent", h.MarkSent)

	return nil
}

type matchLogResponse struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"requestId"`
	DonorID     string    `json:"donorId"`
	MatchedAt   time.Time `json:"matchedAt"`
	Status      string    `json:"status"`
	Volunteered bool      `json:"volunteered"`
}

func (h *MatchLogHandler) ListPending(c *fiber.Ctx) error {
	logs, err := h.service.PendingNotifications(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]matchLogResponse, 0, len(logs))
	for _, matchLog := range logs {
		responses = append(responses, matchLogResponse{
			ID:          matchLog.ID,
			RequestID:   matchLog.RequestID,
			DonorID:     matchLog.DonorID,
			MatchedAt:   matchLog.MatchedAt,
			Status:      matchLog.Status.String(),
			Volunteered: matchLog.Volunteered,
		})
	}

	return c.Status(fiber.StatusOK).JSON(responses)
}

func (h *MatchLogHandler) MarkSent(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.MarkNotificationSent(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"matchId": id,
		"status":  domain.NotificationSent.String(),
	})
}
