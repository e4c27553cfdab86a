package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Luffyt01/HemoLink/internal/domain"
	"github.com/Luffyt01/HemoLink/internal/repository"
	"github.com/Luffyt01/HemoLink/internal/service"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100

	// HeaderHospitalUserID carries the authenticated hospital user behind
	// the request, injected by the API gateway.
	HeaderHospitalUserID = "X-Hospital-User-Id"
)

type RequestService interface {
	Create(ctx context.Context, input service.CreateRequestInput) (*domain.BloodRequest, error)
	GetByID(ctx context.Context, id string) (*domain.BloodRequest, error)
	UpdateUrgency(ctx context.Context, id string, urgency domain.Urgency) (*domain.BloodRequest, error)
	UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) (*domain.BloodRequest, error)
	UpdateDetails(ctx context.Context, id string, input service.UpdateDetailsInput) (*domain.BloodRequest, error)
	Cancel(ctx context.Context, id string) (*domain.BloodRequest, error)
	ListFiltered(ctx context.Context, params repository.ListParams) ([]domain.BloodRequest, int64, error)
	ListByHospitalUser(ctx context.Context, callerUserID string, page, pageSize int) ([]domain.BloodRequest, int64, error)
}

type RequestHandler struct {
	service RequestService
}

func NewRequestHandler(service RequestService) (*RequestHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("request service is required")
	}
	return &RequestHandler{service: service}, nil
}

func RegisterRequestRoutes(router fiber.Router, service RequestService) error {
	h, err := NewRequestHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/requests", h.CreateRequest)
	v1.Get("/requests/filter", h.FilterRequests)
	v1.Get("/requests/:id", h.GetRequest)
	v1.Get("/requests", h.ListMyRequests)
	v1.Patch("/requests/:id/urgency/:urgency", h.UpdateUrgency)
	v1.Patch("/requests/:id/status/:status", h.UpdateStatus)
	v1.Put("/requests/:id", h.UpdateDetails)
	v1.Patch("/requests/:id/cancel", h.CancelRequest)

	return nil
}

type createRequestBody struct {
	BloodType     string     `json:"bloodType"`
	UnitsRequired int        `json:"unitsRequired"`
	Urgency       string     `json:"urgency"`
	ExpiryTime    *time.Time `json:"expiryTime,omitempty"`
}

type updateDetailsBody struct {
	BloodType     string    `json:"bloodType"`
	UnitsRequired int       `json:"unitsRequired"`
	Urgency       string    `json:"urgency"`
	ExpiryTime    time.Time `json:"expiryTime"`
}

type requestResponse struct {
	ID            string     `json:"id"`
	HospitalID    string     `json:"hospitalId"`
	HospitalName  string     `json:"hospitalName"`
	BloodType     string     `json:"bloodType"`
	UnitsRequired int        `json:"unitsRequired"`
	Urgency       string     `json:"urgency"`
	Location      geoPoint   `json:"location"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiryTime    time.Time  `json:"expiryTime"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type geoPoint struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

type listRequestsResponse struct {
	Data []requestResponse `json:"data"`
	Meta listMeta          `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *RequestHandler) CreateRequest(c *fiber.Ctx) error {
	var body createRequestBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	bloodType, err := domain.ParseBloodTypeFromString(body.BloodType)
	if err != nil {
		return toHTTPError(err)
	}
	urgency, err := domain.ParseUrgencyFromString(body.Urgency)
	if err != nil {
		return toHTTPError(err)
	}

	created, err := h.service.Create(c.Context(), service.CreateRequestInput{
		CallerUserID:  callerUserID(c),
		BloodType:     bloodType,
		UnitsRequired: body.UnitsRequired,
		Urgency:       urgency,
		ExpiryTime:    body.ExpiryTime,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toRequestResponse(created))
}

func (h *RequestHandler) GetRequest(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	request, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toRequestResponse(request))
}

func (h *RequestHandler) ListMyRequests(c *fiber.Ctx) error {
	page := c.QueryInt("page", defaultPage)
	pageSize := c.QueryInt("pageSize", defaultPageSize)
	if page < 1 {
		return toHTTPError(fmt.Errorf("%w: page must be >= 1", domain.ErrValidation))
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return toHTTPError(fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize))
	}

	requests, total, err := h.service.ListByHospitalUser(c.Context(), callerUserID(c), page, pageSize)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listRequestsResponse{
		Data: toRequestResponses(requests),
		Meta: listMeta{Page: page, PageSize: pageSize, Total: total},
	})
}

func (h *RequestHandler) FilterRequests(c *fiber.Ctx) error {
	params, err := parseRequestListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	requests, total, err := h.service.ListFiltered(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listRequestsResponse{
		Data: toRequestResponses(requests),
		Meta: listMeta{Page: params.Page, PageSize: params.PageSize, Total: total},
	})
}

func (h *RequestHandler) UpdateUrgency(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	urgency, err := domain.ParseUrgencyFromString(c.Params("urgency"))
	if err != nil {
		return toHTTPError(err)
	}

	updated, err := h.service.UpdateUrgency(c.Context(), id, urgency)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toRequestResponse(updated))
}

func (h *RequestHandler) UpdateStatus(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	status, err := domain.ParseRequestStatusFromString(c.Params("status"))
	if err != nil {
		return toHTTPError(err)
	}

	updated, err := h.service.UpdateStatus(c.Context(), id, status)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toRequestResponse(updated))
}

func (h *RequestHandler) UpdateDetails(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var body updateDetailsBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	bloodType, err := domain.ParseBloodTypeFromString(body.BloodType)
	if err != nil {
		return toHTTPError(err)
	}
	urgency, err := domain.ParseUrgencyFromString(body.Urgency)
	if err != nil {
		return toHTTPError(err)
	}

	updated, err := h.service.UpdateDetails(c.Context(), id, service.UpdateDetailsInput{
		BloodType:     bloodType,
		UnitsRequired: body.UnitsRequired,
		Urgency:       urgency,
		ExpiryTime:    body.ExpiryTime,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toRequestResponse(updated))
}

func (h *RequestHandler) CancelRequest(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	cancelled, err := h.service.Cancel(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toRequestResponse(cancelled))
}

func parseRequestListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseRequestStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	if rawBloodType := strings.TrimSpace(c.Query("bloodType")); rawBloodType != "" {
		bloodType, err := domain.ParseBloodTypeFromString(rawBloodType)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.BloodType = &bloodType
	}

	if rawUrgency := strings.TrimSpace(c.Query("urgency")); rawUrgency != "" {
		urgency, err := domain.ParseUrgencyFromString(rawUrgency)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Urgency = &urgency
	}

	expiryStart, err := parseRFC3339Query(c.Query("expiryStart"), "expiryStart")
	if err != nil {
		return repository.ListParams{}, err
	}
	expiryEnd, err := parseRFC3339Query(c.Query("expiryEnd"), "expiryEnd")
	if err != nil {
		return repository.ListParams{}, err
	}
	params.ExpiryStart = expiryStart
	params.ExpiryEnd = expiryEnd

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func callerUserID(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Get(HeaderHospitalUserID))
}

func toRequestResponses(requests []domain.BloodRequest) []requestResponse {
	responses := make([]requestResponse, 0, len(requests))
	for _, request := range requests {
		r := request
		responses = append(responses, toRequestResponse(&r))
	}
	return responses
}

func toRequestResponse(r *domain.BloodRequest) requestResponse {
	if r == nil {
		return requestResponse{}
	}

	return requestResponse{
		ID:            r.ID,
		HospitalID:    r.HospitalID,
		HospitalName:  r.HospitalName,
		BloodType:     r.BloodType.String(),
		UnitsRequired: r.UnitsRequired,
		Urgency:       r.Urgency.String(),
		Location:      geoPoint{Lng: r.Lng, Lat: r.Lat},
		Status:        r.Status.String(),
		CreatedAt:     r.CreatedAt,
		ExpiryTime:    r.ExpiryTime,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidDonationStatus):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrDonorNotAvailable):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrRequestExpired):
		return fiber.NewError(fiber.StatusGone, err.Error())
	case errors.Is(err, domain.ErrUpstream):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return err
	}
}
