package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Luffyt01/HemoLink/internal/domain"
	"github.com/gofiber/fiber/v2"
)

type DonationService interface {
	UpdateStatus(ctx context.Context, donationID string, target domain.DonationStatus) (*domain.Donation, error)
	ListByDonor(ctx context.Context, donorID string) ([]domain.Donation, error)
}

type DonationHandler struct {
	service DonationService
}

func NewDonationHandler(service DonationService) (*DonationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("donation service is required")
	}
	return &DonationHandler{service: service}, nil
}

func RegisterDonationRoutes(router fiber.Router, service DonationService) error {
	h, err := NewDonationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1/donations")
	v1.Patch("/:id/status", h.UpdateStatus)
	v1.Get("/donor/:donorId", h.ListByDonor)

	return nil
}

type updateDonationStatusBody struct {
	Status string `json:"status"`
}

type donationResponse struct {
	ID          string     `json:"id"`
	DonorID     string     `json:"donorId"`
	RequestID   string     `json:"requestId"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (h *DonationHandler) UpdateStatus(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var body updateDonationStatusBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	status, err := domain.ParseDonationStatusFromString(body.Status)
	if err != nil {
		return toHTTPError(err)
	}

	updated, err := h.service.UpdateStatus(c.Context(), id, status)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toDonationResponse(updated))
}

func (h *DonationHandler) ListByDonor(c *fiber.Ctx) error {
	donorID := strings.TrimSpace(c.Params("donorId"))

	donations, err := h.service.ListByDonor(c.Context(), donorID)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]donationResponse, 0, len(donations))
	for _, donation := range donations {
		d := donation
		responses = append(responses, toDonationResponse(&d))
	}

	return c.Status(fiber.StatusOK).JSON(responses)
}

func toDonationResponse(d *domain.Donation) donationResponse {
	if d == nil {
		return donationResponse{}
	}

	return donationResponse{
		ID:          d.ID,
		DonorID:     d.DonorID,
		RequestID:   d.RequestID,
		ScheduledAt: d.ScheduledAt,
		CompletedAt: d.CompletedAt,
		Status:      d.Status.String(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
