package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Luffyt01/HemoLink/internal/directory"
	"github.com/Luffyt01/HemoLink/internal/domain"
	"github.com/Luffyt01/HemoLink/internal/observability"
	"github.com/Luffyt01/HemoLink/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultSearchRadiusKm = 50
	autoMatchLimit        = 5
	donorRestDays         = 90
)

// DonorMatch is a ranked candidate for a request.
type DonorMatch struct {
	DonorID    string
	DonorName  string
	BloodType  domain.BloodType
	DistanceKm float64
	Score      float64
}

// AutoMatchResult summarizes an auto-match run.
type AutoMatchResult struct {
	RequestID    string
	TotalMatches int
	TopMatches   []DonorMatch
}

// VolunteerAck acknowledges a donor volunteering for a request.
type VolunteerAck struct {
	MatchID   string
	RequestID string
	DonorID   string
	Status    domain.NotificationStatus
}

// DonorMatchHistoryEntry is a match log enriched with request context.
type DonorMatchHistoryEntry struct {
	MatchID      string
	RequestID    string
	BloodType    domain.BloodType
	Urgency      domain.Urgency
	MatchedAt    time.Time
	Status       domain.NotificationStatus
	HospitalName string
}

// RequestMatchSummary is a match log enriched with donor identity and the
// routed distance to the request.
type RequestMatchSummary struct {
	MatchID    string
	DonorID    string
	DonorName  string
	BloodType  domain.BloodType
	Status     domain.NotificationStatus
	DistanceKm float64
}

// RequestMatchingStatus aggregates match and donation counts for a request.
type RequestMatchingStatus struct {
	RequestID          string
	Status             domain.RequestStatus
	TotalMatches       int64
	ConfirmedDonations int64
	UnitsRequired      int
	UnitsFulfilled     int64
}

// MatchingService finds, ranks, and records donor matches for blood requests
// and drives the volunteer and reject flows.
type MatchingService struct {
	requests  repository.RequestRepository
	matchLogs repository.MatchLogRepository
	donations repository.DonationRepository
	dir       directory.Directory
	distance  directory.Distance
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewMatchingService(
	requests repository.RequestRepository,
	matchLogs repository.MatchLogRepository,
	donations repository.DonationRepository,
	dir directory.Directory,
	distance directory.Distance,
	logger *zap.Logger,
) (*MatchingService, error) {
	if requests == nil {
		return nil, fmt.Errorf("request repository is required")
	}
	if matchLogs == nil {
		return nil, fmt.Errorf("match log repository is required")
	}
	if donations == nil {
		return nil, fmt.Errorf("donation repository is required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory client is required")
	}
	if distance == nil {
		return nil, fmt.Errorf("distance client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MatchingService{
		requests:  requests,
		matchLogs: matchLogs,
		donations: donations,
		dir:       dir,
		distance:  distance,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (s *MatchingService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// FindCompatibleDonors returns up to limit candidates for the request,
// ranked by composite score. The request's hospital must be verified.
func (s *MatchingService) FindCompatibleDonors(ctx context.Context, requestID string, limit int) ([]DonorMatch, error) {
	if limit < 1 {
		limit = autoMatchLimit
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	hospital, err := s.dir.GetHospital(ctx, request.HospitalID)
	if err != nil {
		return nil, err
	}
	if hospital.VerificationStatus != directory.VerificationVerified {
		return nil, fmt.Errorf("%w: hospital %s is not verified", domain.ErrValidation, request.HospitalID)
	}

	now := s.now().UTC()
	candidates, err := s.dir.FindEligibleDonors(ctx, directory.EligibleDonorQuery{
		Point:         request.Location(),
		BloodTypes:    domain.CompatibleDonorTypes(request.BloodType),
		RadiusKm:      defaultSearchRadiusKm,
		Limit:         limit,
		DonatedBefore: now.AddDate(0, 0, -donorRestDays),
	})
	if err != nil {
		return nil, err
	}

	matches := make([]DonorMatch, 0, len(candidates))
	for _, candidate := range candidates {
		matches = append(matches, DonorMatch{
			DonorID:    candidate.ID,
			DonorName:  candidate.Name,
			BloodType:  candidate.BloodType,
			DistanceKm: candidate.DistanceKm,
			Score:      compositeScore(candidate.DistanceKm, candidate.LastDonation, now),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	s.logger.Info("compatible donors found",
		zap.String("requestId", requestID),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(matches)),
	)
	if s.metrics != nil {
		s.metrics.AddMatchesFound(len(matches))
	}

	return matches, nil
}

// AutoMatch ranks candidates with a fixed limit and records a PENDING match
// log for each, so the notification pipeline can pick them up.
func (s *MatchingService) AutoMatch(ctx context.Context, requestID string) (*AutoMatchResult, error) {
	matches, err := s.FindCompatibleDonors(ctx, requestID, autoMatchLimit)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	logs := make([]*domain.MatchLog, 0, len(matches))
	for _, match := range matches {
		logs = append(logs, &domain.MatchLog{
			ID:        uuid.NewString(),
			RequestID: requestID,
			DonorID:   match.DonorID,
			MatchedAt: now,
			Status:    domain.NotificationPending,
		})
	}
	if err := s.matchLogs.CreateBatch(ctx, logs); err != nil {
		return nil, fmt.Errorf("failed to record match logs: %w", err)
	}

	return &AutoMatchResult{
		RequestID:    requestID,
		TotalMatches: len(matches),
		TopMatches:   matches,
	}, nil
}

// ProcessVolunteer records a donor volunteering for a PENDING request. The
// donor must be available and blood-type compatible with the request.
func (s *MatchingService) ProcessVolunteer(ctx context.Context, requestID, donorID string) (*VolunteerAck, error) {
	if strings.TrimSpace(requestID) == "" || strings.TrimSpace(donorID) == "" {
		return nil, fmt.Errorf("%w: request id and donor id are required", domain.ErrValidation)
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != domain.RequestPending {
		return nil, fmt.Errorf("%w: request %s is %s, volunteering requires PENDING", domain.ErrValidation, requestID, request.Status)
	}

	donor, err := s.dir.GetDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if !donor.Available {
		return nil, fmt.Errorf("%w: donor %s", domain.ErrDonorNotAvailable, donorID)
	}
	if !domain.IsCompatible(donor.BloodType, request.BloodType) {
		return nil, fmt.Errorf("%w: donor blood type %s is not compatible with %s", domain.ErrValidation, donor.BloodType, request.BloodType)
	}

	matchLog := &domain.MatchLog{
		ID:          uuid.NewString(),
		RequestID:   requestID,
		DonorID:     donorID,
		MatchedAt:   s.now().UTC(),
		Status:      domain.NotificationVolunteered,
		Volunteered: true,
	}
	if err := s.matchLogs.Create(ctx, matchLog); err != nil {
		return nil, err
	}

	s.logger.Info("donor volunteered",
		zap.String("matchId", matchLog.ID),
		zap.String("requestId", requestID),
		zap.String("donorId", donorID),
	)
	if s.metrics != nil {
		s.metrics.IncVolunteers()
	}

	return &VolunteerAck{
		MatchID:   matchLog.ID,
		RequestID: requestID,
		DonorID:   donorID,
		Status:    matchLog.Status,
	}, nil
}

// RejectMatch marks the match log FAILED. The reason is logged, not stored.
func (s *MatchingService) RejectMatch(ctx context.Context, matchID, donorID, reason string) error {
	matchLog, err := s.matchLogs.GetByID(ctx, matchID)
	if err != nil {
		return err
	}

	if err := s.matchLogs.UpdateStatus(ctx, matchLog.ID, domain.NotificationFailed); err != nil {
		return err
	}

	s.logger.Info("match rejected",
		zap.String("matchId", matchID),
		zap.String("donorId", donorID),
		zap.String("reason", reason),
	)

	return nil
}

// DonorMatchHistory lists a donor's match logs enriched with request
// context, excluding FAILED entries unless includeRejected is set.
func (s *MatchingService) DonorMatchHistory(ctx context.Context, donorID string, includeRejected bool) ([]DonorMatchHistoryEntry, error) {
	logs, err := s.matchLogs.ListByDonor(ctx, donorID, includeRejected)
	if err != nil {
		return nil, err
	}

	requestCache := make(map[string]*domain.BloodRequest, len(logs))
	entries := make([]DonorMatchHistoryEntry, 0, len(logs))
	for _, matchLog := range logs {
		request, ok := requestCache[matchLog.RequestID]
		if !ok {
			request, err = s.requests.GetByID(ctx, matchLog.RequestID)
			if err != nil {
				return nil, err
			}
			requestCache[matchLog.RequestID] = request
		}

		entries = append(entries, DonorMatchHistoryEntry{
			MatchID:      matchLog.ID,
			RequestID:    matchLog.RequestID,
			BloodType:    request.BloodType,
			Urgency:      request.Urgency,
			MatchedAt:    matchLog.MatchedAt,
			Status:       matchLog.Status,
			HospitalName: request.HospitalName,
		})
	}

	return entries, nil
}

// RequestDonorMatches lists the match logs on a request enriched with donor
// identity and the routed distance from the donor to the request.
func (s *MatchingService) RequestDonorMatches(ctx context.Context, requestID string) ([]RequestMatchSummary, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	logs, err := s.matchLogs.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	summaries := make([]RequestMatchSummary, 0, len(logs))
	for _, matchLog := range logs {
		donor, err := s.dir.GetDonor(ctx, matchLog.DonorID)
		if err != nil {
			return nil, err
		}
		distanceKm, err := s.distance.DistanceKm(ctx, donor.Location, request.Location())
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, RequestMatchSummary{
			MatchID:    matchLog.ID,
			DonorID:    matchLog.DonorID,
			DonorName:  donor.Name,
			BloodType:  donor.BloodType,
			Status:     matchLog.Status,
			DistanceKm: distanceKm,
		})
	}

	return summaries, nil
}

// RequestMatchingStatus aggregates the matching progress of a request.
func (s *MatchingService) RequestMatchingStatus(ctx context.Context, requestID string) (*RequestMatchingStatus, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	totalMatches, err := s.matchLogs.CountByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	scheduled, err := s.donations.CountByRequestAndStatus(ctx, requestID, domain.DonationScheduled)
	if err != nil {
		return nil, err
	}
	completed, err := s.donations.CountByRequestAndStatus(ctx, requestID, domain.DonationCompleted)
	if err != nil {
		return nil, err
	}

	return &RequestMatchingStatus{
		RequestID:          requestID,
		Status:             request.Status,
		TotalMatches:       totalMatches,
		ConfirmedDonations: scheduled + completed,
		UnitsRequired:      request.UnitsRequired,
		UnitsFulfilled:     completed,
	}, nil
}
