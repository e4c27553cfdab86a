package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Luffyt01/HemoLink/internal/domain"
	"github.com/Luffyt01/HemoLink/internal/service"
	"github.com/Luffyt01/HemoLink/internal/transport"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func TestPairingIntegration_FindDonors(t *testing.T) {
	t.Parallel()

	matching := &stubMatchingService{
		findCompatibleDonorsFn: func(ctx context.Context, requestID string, limit int) ([]service.DonorMatch, error) {
			if requestID != "r-1" {
				t.Fatalf("request id = %s, want r-1", requestID)
			}
			if limit != 3 {
				t.Fatalf("limit = %d, want 3 from query", limit)
			}
			return []service.DonorMatch{
				{DonorID: "d-1", DonorName: "Near", BloodType: domain.BloodONegative, DistanceKm: 10, Score: 0.87},
			}, nil
		},
	}

	app := newPairingTestApp(t, matching, &stubDonationConfirmer{})

	resp, body := performRequest(t, app, http.MethodGet, "/v1/pairing/requests/r-1?limit=3", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var matches []map[string]any
	if err := json.Unmarshal(body, &matches); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(matches) != 1 || matches[0]["donorId"] != "d-1" {
		t.Fatalf("matches = %v, want single d-1", matches)
	}
}

func TestPairingIntegration_Volunteer(t *testing.T) {
	t.Parallel()

	matching := &stubMatchingService{
		processVolunteerFn: func(ctx context.Context, requestID, donorID string) (*service.VolunteerAck, error) {
			return &service.VolunteerAck{
				MatchID:   "m-1",
				RequestID: requestID,
				DonorID:   donorID,
				Status:    domain.NotificationVolunteered,
			}, nil
		},
	}

	app := newPairingTestApp(t, matching, &stubDonationConfirmer{})

	body := `{"requestId":"r-1","donorId":"d-1"}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/pairing/volunteer", body)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(respBody))
	}

	var ack map[string]any
	if err := json.Unmarshal(respBody, &ack); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if ack["status"] != domain.NotificationVolunteered.String() {
		t.Fatalf("status = %v, want VOLUNTEERED", ack["status"])
	}
}

func TestPairingIntegration_ConfirmStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"duplicate", fmt.Errorf("%w: already confirmed", domain.ErrConflict), fiber.StatusConflict},
		{"unavailable", fmt.Errorf("%w: donor d-1", domain.ErrDonorNotAvailable), fiber.StatusConflict},
		{"expired", fmt.Errorf("%w: request r-1", domain.ErrRequestExpired), fiber.StatusGone},
		{"upstream", fmt.Errorf("%w: user service", domain.ErrUpstream), fiber.StatusBadGateway},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			donations := &stubDonationConfirmer{
				confirmFn: func(ctx context.Context, input service.ConfirmDonationInput) (*domain.Donation, error) {
					return nil, tc.err
				},
			}
			app := newPairingTestApp(t, &stubMatchingService{}, donations)

			body := `{"requestId":"r-1","donorId":"d-1","scheduledAt":"2026-03-01T10:00:00Z"}`
			resp, _ := performRequest(t, app, http.MethodPost, "/v1/pairing/confirm", body)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
		})
	}
}

func TestPairingIntegration_ConfirmSuccess(t *testing.T) {
	t.Parallel()

	scheduledAt, _ := time.Parse(time.RFC3339, "2026-03-01T10:00:00Z")
	donations := &stubDonationConfirmer{
		confirmFn: func(ctx context.Context, input service.ConfirmDonationInput) (*domain.Donation, error) {
			if !input.ScheduledAt.Equal(scheduledAt) {
				t.Fatalf("scheduledAt = %v, want %v", input.ScheduledAt, scheduledAt)
			}
			return &domain.Donation{
				ID:          "don-1",
				DonorID:     input.DonorID,
				RequestID:   input.RequestID,
				ScheduledAt: input.ScheduledAt,
				Status:      domain.DonationScheduled,
			}, nil
		},
	}

	app := newPairingTestApp(t, &stubMatchingService{}, donations)

	body := `{"requestId":"r-1","donorId":"d-1","scheduledAt":"2026-03-01T10:00:00Z"}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/pairing/confirm", body)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(respBody))
	}

	var donation map[string]any
	if err := json.Unmarshal(respBody, &donation); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if donation["status"] != domain.DonationScheduled.String() {
		t.Fatalf("status = %v, want SCHEDULED", donation["status"])
	}
}

func TestPairingIntegration_MatchingStatus(t *testing.T) {
	t.Parallel()

	matching := &stubMatchingService{
		requestMatchingStatusFn: func(ctx context.Context, requestID string) (*service.RequestMatchingStatus, error) {
			return &service.RequestMatchingStatus{
				RequestID:          requestID,
				Status:             domain.RequestPending,
				TotalMatches:       6,
				ConfirmedDonations: 3,
				UnitsRequired:      4,
				UnitsFulfilled:     1,
			}, nil
		},
	}

	app := newPairingTestApp(t, matching, &stubDonationConfirmer{})

	resp, body := performRequest(t, app, http.MethodGet, "/v1/pairing/requests/r-1/status", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var status map[string]any
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if status["totalMatches"] != float64(6) || status["unitsFulfilled"] != float64(1) {
		t.Fatalf("status payload = %v", status)
	}
}

func newPairingTestApp(t *testing.T, matching MatchingService, donations DonationConfirmer) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterPairingRoutes(app, matching, donations); err != nil {
		t.Fatalf("RegisterPairingRoutes() error = %v", err)
	}

	return app
}

type stubMatchingService struct {
	findCompatibleDonorsFn  func(ctx context.Context, requestID string, limit int) ([]service.DonorMatch, error)
	autoMatchFn             func(ctx context.Context, requestID string) (*service.AutoMatchResult, error)
	processVolunteerFn      func(ctx context.Context, requestID, donorID string) (*service.VolunteerAck, error)
	rejectMatchFn           func(ctx context.Context, matchID, donorID, reason string) error
	donorMatchHistoryFn     func(ctx context.Context, donorID string, includeRejected bool) ([]service.DonorMatchHistoryEntry, error)
	requestDonorMatchesFn   func(ctx context.Context, requestID string) ([]service.RequestMatchSummary, error)
	requestMatchingStatusFn func(ctx context.Context, requestID string) (*service.RequestMatchingStatus, error)
}

func (s *stubMatchingService) FindCompatibleDonors(ctx context.Context, requestID string, limit int) ([]service.DonorMatch, error) {
	if s.findCompatibleDonorsFn != nil {
		return s.findCompatibleDonorsFn(ctx, requestID, limit)
	}
	return nil, domain.ErrNotFound
}

func (s *stubMatchingService) AutoMatch(ctx context.Context, requestID string) (*service.AutoMatchResult, error) {
	if s.autoMatchFn != nil {
		return s.autoMatchFn(ctx, requestID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubMatchingService) ProcessVolunteer(ctx context.Context, requestID, donorID string) (*service.VolunteerAck, error) {
	if s.processVolunteerFn != nil {
		return s.processVolunteerFn(ctx, requestID, donorID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubMatchingService) RejectMatch(ctx context.Context, matchID, donorID, reason string) error {
	if s.rejectMatchFn != nil {
		return s.rejectMatchFn(ctx, matchID, donorID, reason)
	}
	return domain.ErrNotFound
}

func (s *stubMatchingService) DonorMatchHistory(ctx context.Context, donorID string, includeRejected bool) ([]service.DonorMatchHistoryEntry, error) {
	if s.donorMatchHistoryFn != nil {
		return s.donorMatchHistoryFn(ctx, donorID, includeRejected)
	}
	return nil, domain.ErrNotFound
}

func (s *stubMatchingService) RequestDonorMatches(ctx context.Context, requestID string) ([]service.RequestMatchSummary, error) {
	if s.requestDonorMatchesFn != nil {
		return s.requestDonorMatchesFn(ctx, requestID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubMatchingService) RequestMatchingStatus(ctx context.Context, requestID string) (*service.RequestMatchingStatus, error) {
	if s.requestMatchingStatusFn != nil {
		return s.requestMatchingStatusFn(ctx, requestID)
	}
	return nil, domain.ErrNotFound
}

type stubDonationConfirmer struct {
	confirmFn func(ctx context.Context, input service.ConfirmDonationInput) (*domain.Donation, error)
}

func (s *stubDonationConfirmer) Confirm(ctx context.Context, input service.ConfirmDonationInput) (*domain.Donation, error) {
	if s.confirmFn != nil {
		return s.confirmFn(ctx, input)
	}
	return nil, domain.ErrNotFound
}
