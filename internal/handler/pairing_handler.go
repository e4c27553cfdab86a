package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Luffyt01/HemoLink/internal/domain"
	"github.com/Luffyt01/HemoLink/internal/service"
	"github.com/gofiber/fiber/v2"
)

type MatchingService interface {
	FindCompatibleDonors(ctx context.Context, requestID string, limit int) ([]service.DonorMatch, error)
	AutoMatch(ctx context.Context, requestID string) (*service.AutoMatchResult, error)
	ProcessVolunteer(ctx context.Context, requestID, donorID string) (*service.VolunteerAck, error)
	RejectMatch(ctx context.Context, matchID, donorID, reason string) error
	DonorMatchHistory(ctx context.Context, donorID string, includeRejected bool) ([]service.DonorMatchHistoryEntry, error)
	RequestDonorMatches(ctx context.Context, requestID string) ([]service.RequestMatchSummary, error)
	RequestMatchingStatus(ctx context.Context, requestID string) (*service.RequestMatchingStatus, error)
}

type DonationConfirmer interface {
	Confirm(ctx context.Context, input service.ConfirmDonationInput) (*domain.Donation, error)
}

type PairingHandler struct {
	matching  MatchingService
	donations DonationConfirmer
}

func NewPairingHandler(matching MatchingService, donations DonationConfirmer) (*PairingHandler, error) {
	if matching == nil {
		return nil, fmt.Errorf("matching service is required")
	}
	if donations == nil {
		return nil, fmt.Errorf("donation service is required")
	}
	return &PairingHandler{matching: matching, donations: donations}, nil
}

func RegisterPairingRoutes(router fiber.Router, matching MatchingService, donations DonationConfirmer) error {
	h, err := NewPairingHandler(matching, donations)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1/pairing")
	v1.Get("/requests/:id/matches", h.ListRequestMatches)
	v1.Get("/requests/:id/status", h.GetMatchingStatus)
	v1.Get("/requests/:id", h.FindDonors)
	v1.Post("/auto-match/:id", h.AutoMatch)
	v1.Post("/volunteer", h.Volunteer)
	v1.Post("/confirm", h.ConfirmDonation)
	v1.Post("/reject", h.RejectMatch)
	v1.Get("/history/:donorId", h.DonorHistory)

	return nil
}

type volunteerBody struct {
	RequestID string `json:"requestId"`
	DonorID   string `json:"donorId"`
}

type confirmDonationBody struct {
	RequestID   string    `json:"requestId"`
	DonorID     string    `json:"donorId"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

type rejectMatchBody struct {
	MatchID string `json:"matchId"`
	DonorID string `json:"donorId"`
	Reason  string `json:"reason,omitempty"`
}

type donorMatchResponse struct {
	DonorID    string  `json:"donorId"`
	DonorName  string  `json:"donorName"`
	BloodType  string  `json:"bloodType"`
	DistanceKm float64 `json:"distanceKm"`
	Score      float64 `json:"score"`
}

type autoMatchResponse struct {
	RequestID    string               `json:"requestId"`
	TotalMatches int                  `json:"totalMatches"`
	TopMatches   []donorMatchResponse `json:"topMatches"`
}

type volunteerResponse struct {
	MatchID   string `json:"matchId"`
	RequestID string `json:"requestId"`
	DonorID   string `json:"donorId"`
	Status    string `json:"status"`
}

type matchHistoryResponse struct {
	MatchID      string    `json:"matchId"`
	RequestID    string    `json:"requestId"`
	BloodType    string    `json:"bloodType"`
	Urgency      string    `json:"urgency"`
	MatchedAt    time.Time `json:"matchedAt"`
	Status       string    `json:"status"`
	HospitalName string    `json:"hospitalName"`
}

type requestMatchResponse struct {
	MatchID    string  `json:"matchId"`
	DonorID    string  `json:"donorId"`
	DonorName  string  `json:"donorName"`
	BloodType  string  `json:"bloodType"`
	Status     string  `json:"status"`
	DistanceKm float64 `json:"distanceKm"`
}

type matchingStatusResponse struct {
	RequestID          string `json:"requestId"`
	Status             string `json:"status"`
	TotalMatches       int64  `json:"totalMatches"`
	ConfirmedDonations int64  `json:"confirmedDonations"`
	UnitsRequired      int    `json:"unitsRequired"`
	UnitsFulfilled     int64  `json:"unitsFulfilled"`
}

func (h *PairingHandler) FindDonors(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	limit := c.QueryInt("limit", 0)

	matches, err := h.matching.FindCompatibleDonors(c.Context(), id, limit)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toDonorMatchResponses(matches))
}

func (h *PairingHandler) AutoMatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	result, err := h.matching.AutoMatch(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(autoMatchResponse{
		RequestID:    result.RequestID,
		TotalMatches: result.TotalMatches,
		TopMatches:   toDonorMatchResponses(result.TopMatches),
	})
}

func (h *PairingHandler) Volunteer(c *fiber.Ctx) error {
	var body volunteerBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	ack, err := h.matching.ProcessVolunteer(c.Context(), body.RequestID, body.DonorID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(volunteerResponse{
		MatchID:   ack.MatchID,
		RequestID: ack.RequestID,
		DonorID:   ack.DonorID,
		Status:    ack.Status.String(),
	})
}

func (h *PairingHandler) ConfirmDonation(c *fiber.Ctx) error {
	var body confirmDonationBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	donation, err := h.donations.Confirm(c.Context(), service.ConfirmDonationInput{
		RequestID:   body.RequestID,
		DonorID:     body.DonorID,
		ScheduledAt: body.ScheduledAt,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toDonationResponse(donation))
}

func (h *PairingHandler) RejectMatch(c *fiber.Ctx) error {
	var body rejectMatchBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.matching.RejectMatch(c.Context(), strings.TrimSpace(body.MatchID), strings.TrimSpace(body.DonorID), body.Reason); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"matchId": strings.TrimSpace(body.MatchID),
		"status":  domain.NotificationFailed.String(),
	})
}

func (h *PairingHandler) DonorHistory(c *fiber.Ctx) error {
	donorID := strings.TrimSpace(c.Params("donorId"))
	includeRejected := c.QueryBool("includeRejected", false)

	entries, err := h.matching.DonorMatchHistory(c.Context(), donorID, includeRejected)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]matchHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, matchHistoryResponse{
			MatchID:      entry.MatchID,
			RequestID:    entry.RequestID,
			BloodType:    entry.BloodType.String(),
			Urgency:      entry.Urgency.String(),
			MatchedAt:    entry.MatchedAt,
			Status:       entry.Status.String(),
			HospitalName: entry.HospitalName,
		})
	}

	return c.Status(fiber.StatusOK).JSON(responses)
}

func (h *PairingHandler) ListRequestMatches(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	summaries, err := h.matching.RequestDonorMatches(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]requestMatchResponse, 0, len(summaries))
	for _, summary := range summaries {
		responses = append(responses, requestMatchResponse{
			MatchID:    summary.MatchID,
			DonorID:    summary.DonorID,
			DonorName:  summary.DonorName,
			BloodType:  summary.BloodType.String(),
			Status:     summary.Status.String(),
			DistanceKm: summary.DistanceKm,
		})
	}

	return c.Status(fiber.StatusOK).JSON(responses)
}

func (h *PairingHandler) GetMatchingStatus(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	status, err := h.matching.RequestMatchingStatus(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(matchingStatusResponse{
		RequestID:          status.RequestID,
		Status:             status.Status.String(),
		TotalMatches:       status.TotalMatches,
		ConfirmedDonations: status.ConfirmedDonations,
		UnitsRequired:      status.UnitsRequired,
		UnitsFulfilled:     status.UnitsFulfilled,
	})
}

func toDonorMatchResponses(matches []service.DonorMatch) []donorMatchResponse {
	responses := make([]donorMatchResponse, 0, len(matches))
	for _, match := range matches {
		responses = append(responses, donorMatchResponse{
			DonorID:    match.DonorID,
			DonorName:  match.DonorName,
			BloodType:  match.BloodType.String(),
			DistanceKm: match.DistanceKm,
			Score:      match.Score,
		})
	}
	return responses
}
