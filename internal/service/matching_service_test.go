package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Luffyt01/HemoLink/internal/directory"
	"github.com/Luffyt01/HemoLink/internal/domain"
)

func TestMatchingServiceFindCompatibleDonorsRanksByScore(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	nearRecent := now.AddDate(0, 0, -30)
	farStale := now.AddDate(0, 0, -170)

	requests := &fakeRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.BloodRequest, error) {
			return &domain.BloodRequest{
				ID:         id,
				HospitalID: "h-1",
				BloodType:  domain.BloodAPositive,
				Status:     domain.RequestPending,
				Lng:        29.0,
				Lat:        41.0,
			}, nil
		},
	}
	dir := &fakeDirectory{
		getHospitalFn: func(ctx context.Context, hospitalID string) (*directory.Hospital, error) {
			return &directory.Hospital{ID: hospitalID, VerificationStatus: directory.VerificationVerified}, nil
		},
		findEligibleDonorsFn: func(ctx context.Context, q directory.EligibleDonorQuery) ([]directory.DonorCandidate, error) {
			if q.RadiusKm != 50 {
				t.Fatalf("radius = %d, want 50", q.RadiusKm)
			}
			if len(q.BloodTypes) != 4 {
				t.Fatalf("blood type count = %d, want 4 for A_POSITIVE", len(q.BloodTypes))
			}
			if !q.DonatedBefore.Equal(now.AddDate(0, 0, -90)) {
				t.Fatalf("donated-before cutoff = %v, want 90 days back", q.DonatedBefore)
			}
			return []directory.DonorCandidate{
				{ID: "d-far", Name: "Far", BloodType: domain.BloodOPositive, DistanceKm: 80, LastDonation: &farStale},
				{ID: "d-near", Name: "Near", BloodType: domain.BloodAPositive, DistanceKm: 10, LastDonation: &nearRecent},
				{ID: "d-new", Name: "New", BloodType: domain.BloodONegative, DistanceKm: 5, LastDonation: nil},
			}, nil
		},
	}

	svc := newTestMatchingService(t, requests, &fakeMatchLogRepo{}, &fakeDonationRepo{}, dir, &fakeDistance{}, now)

	matches, err := svc.FindCompatibleDonors(context.Background(), "r-1", 10)
	if err != nil {
		t.Fatalf("FindCompatibleDonors() error = %v", err)
	}

	if len(matches) != 3 {
		t.Fatalf("match count = %d, want 3", len(matches))
	}
	if matches[0].DonorID != "d-near" {
		t.Fatalf("top match = %s, want d-near", matches[0].DonorID)
	}
	if matches[len(matches)-1].DonorID != "d-far" {
		t.Fatalf("last match = %s, want d-far", matches[len(matches)-1].DonorID)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Fatalf("matches not sorted by score at index %d", i)
		}
	}
}

func TestMatchingServiceFindCompatibleDonorsUnverifiedHospital(t *testing.T) {
	t.Parallel()

	requests := &fakeRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.BloodRequest, error) {
			return &domain.BloodRequest{ID: id, HospitalID: "h-1", BloodType: domain.BloodBPositive, Status: domain.RequestPending}, nil
		},
	}
	dir := &fakeDirectory{
		getHospitalFn: func(ctx context.Context, hospitalID string) (*directory.Hospital, error) {
			return &directory.Hospital{ID: hospitalID, VerificationStatus: directory.VerificationPending}, nil
		},
		findEligibleDonorsFn: func(ctx context.Context, q directory.EligibleDonorQuery) ([]directory.DonorCandidate, error) {
			t.Fatal("directory search must not run for an unverified hospital")
			return nil, nil
		},
	}

	svc := newTestMatchingService(t, requests, &fakeMatchLogRepo{}, &fakeDonationRepo{}, dir, &fakeDistance{}, time.Now().UTC())

	_, err := svc.FindCompatibleDonors(context.Background(), "r-1", 5)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestMatchingServiceAutoMatchRecordsPendingLogs(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	requests := &fakeRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.BloodRequest, error) {
			return &domain.BloodRequest{ID: id, HospitalID: "h-1", BloodType: domain.BloodONegative, Status: domain.RequestPending}, nil
		},
	}
	candidates := make([]directory.DonorCandidate, 0, 8)
	for i := 0; i < 8; i++ {
		candidates = append(candidates, directory.DonorCandidate{
			ID:         string(rune('a' + i)),
			BloodType:  domain.BloodONegative,
			DistanceKm: float64(5 * (i + 1)),
		})
	}
	dir := &fakeDirectory{
		getHospitalFn: func(ctx context.Context, hospitalID string) (*directory.Hospital, error) {
			return &directory.Hospital{ID: hospitalID, VerificationStatus: directory.VerificationVerified}, nil
		},
		findEligibleDonorsFn: func(ctx context.Context, q directory.EligibleDonorQuery) ([]directory.DonorCandidate, error) {
			return candidates, nil
		},
	}

	var recorded []*domain.MatchLog
	matchLogs := &fakeMatchLogRepo{
		createBatchFn: func(ctx context.Context, logs []*domain.MatchLog) error {
			recorded = logs
			return nil
		},
	}

	svc := newTestMatchingService(t, requests, matchLogs, &fakeDonationRepo{}, dir, &fakeDistance{}, now)

	result, err := svc.AutoMatch(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("AutoMatch() error = %v", err)
	}

	if result.TotalMatches != 5 {
		t.Fatalf("total matches = %d, want capped at 5", result.TotalMatches)
	}
	if len(recorded) != 5 {
		t.Fatalf("recorded logs = %d, want 5", len(recorded))
	}
	for _, matchLog := range recorded {
		if matchLog.Status != domain.NotificationPending {
			t.Fatalf("log status = %s, want PENDING", matchLog.Status)
		}
		if matchLog.RequestID != "r-1" {
			t.Fatalf("log request = %s, want r-1", matchLog.RequestID)
		}
		if matchLog.Volunteered {
			t.Fatal("auto-match logs must not be flagged as volunteered")
		}
	}
}

func TestMatchingServiceProcessVolunteer(t *testing.T) {
	t.Parallel()

	requests := &fakeRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.BloodRequest, error) {
			return &domain.BloodRequest{ID: id, HospitalID: "h-1", BloodType: domain.BloodAPositive, Status: domain.RequestPending}, nil
		},
	}
	dir := &fakeDirectory{
		getDonorFn: func(ctx context.Context, donorID string) (*directory.Donor, error) {
			return &directory.Donor{ID: donorID, BloodType: domain.BloodONegative, Available: true}, nil
		},
	}

	var created *domain.MatchLog
	matchLogs := &fakeMatchLogRepo{
		createFn: func(ctx context.Context, l *domain.MatchLog) error {
			created = l
			return nil
		},
	}

	svc := newTestMatchingService(t, requests, matchLogs, &fakeDonationRepo{}, dir, &fakeDistance{}, time.Now().UTC())

	ack, err := svc.ProcessVolunteer(context.Background(), "r-1", "d-1")
	if err != nil {
		t.Fatalf("ProcessVolunteer() error = %v", err)
	}

	if created == nil {
		t.Fatal("expected a match log to be created")
	}
	if !created.Volunteered {
		t.Fatal("volunteer log should be flagged as volunteered")
	}
	if created.Status != domain.NotificationVolunteered {
		t.Fatalf("log status = %s, want VOLUNTEERED", created.Status)
	}
	if ack.Status != domain.NotificationVolunteered {
		t.Fatalf("ack status = %s, want VOLUNTEERED", ack.Status)
	}
}

func TestMatchingServiceProcessVolunteerGuards(t *testing.T) {
	t.Parallel()

	expiredRequests := &fakeRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.BloodRequest, error) {
			return &domain.BloodRequest{ID: id, BloodType: domain.BloodAPositive, Status: domain.RequestExpired}, nil
		},
	}
	svc := newTestMatchingService(t, expiredRequests, &fakeMatchLogRepo{}, &fakeDonationRepo{}, &fakeDirectory{}, &fakeDistance{}, time.Now().UTC())
	if _, err := svc.ProcessVolunteer(context.Background(), "r-1", "d-1"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for non-PENDING request, got %v", err)
	}

	pendingRequests := &fakeRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.BloodRequest, error) {
			return &domain.BloodRequest{ID: id, BloodType: domain.BloodANegative, Status: domain.RequestPending}, nil
		},
	}

	unavailable := &fakeDirectory{
		getDonorFn: func(ctx context.Context, donorID string) (*directory.Donor, error) {
			return &directory.Donor{ID: donorID, BloodType: domain.BloodONegative, Available: false}, nil
		},
	}
	svc = newTestMatchingService(t, pendingRequests, &fakeMatchLogRepo{}, &fakeDonationRepo{}, unavailable, &fakeDistance{}, time.Now().UTC())
	if _, err := svc.ProcessVolunteer(context.Background(), "r-1", "d-1"); !errors.Is(err, domain.ErrDonorNotAvailable) {
		t.Fatalf("expected ErrDonorNotAvailable, got %v", err)
	}

	incompatible := &fakeDirectory{
		getDonorFn: func(ctx context.Context, donorID string) (*directory.Donor, error) {
			// A+ cannot give to A-.
			return &directory.Donor{ID: donorID, BloodType: domain.BloodAPositive, Available: true}, nil
		},
	}
	svc = newTestMatchingService(t, pendingRequests, &fakeMatchLogRepo{}, &fakeDonationRepo{}, incompatible, &fakeDistance{}, time.Now().UTC())
	if _, err := svc.ProcessVolunteer(context.Background(), "r-1", "d-1"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for incompatible donor, got %v", err)
	}
}

func TestMatchingServiceRejectMatch(t *testing.T) {
	t.Parallel()

	marked := false
	matchLogs := &fakeMatchLogRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.MatchLog, error) {
			return &domain.MatchLog{ID: id, RequestID: "r-1", DonorID: "d-1", Status: domain.NotificationSent}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status domain.NotificationStatus) error {
			if status != domain.NotificationFailed {
				t.Fatalf("status = %s, want FAILED", status)
			}
			marked = true
			return nil
		},
	}

	svc := newTestMatchingService(t, &fakeRequestRepo{}, matchLogs, &fakeDonationRepo{}, &fakeDirectory{}, &fakeDistance{}, time.Now().UTC())

	if err := svc.RejectMatch(context.Background(), "m-1", "d-1", "traveling"); err != nil {
		t.Fatalf("RejectMatch() error = %v", err)
	}
	if !marked {
		t.Fatal("expected the match log to be marked FAILED")
	}
}

func TestMatchingServiceRequestMatchingStatus(t *testing.T) {
	t.Parallel()

	requests := &fakeRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.BloodRequest, error) {
			return &domain.BloodRequest{ID: id, Status: domain.RequestPending, UnitsRequired: 4}, nil
		},
	}
	matchLogs := &fakeMatchLogRepo{
		countByRequestFn: func(ctx context.Context, requestID string) (int64, error) {
			return 6, nil
		},
	}
	donations := &fakeDonationRepo{
		countByRequestAndStatusFn: func(ctx context.Context, requestID string, status domain.DonationStatus) (int64, error) {
			switch status {
			case domain.DonationScheduled:
				return 2, nil
			case domain.DonationCompleted:
				return 1, nil
			}
			return 0, nil
		},
	}

	svc := newTestMatchingService(t, requests, matchLogs, donations, &fakeDirectory{}, &fakeDistance{}, time.Now().UTC())

	status, err := svc.RequestMatchingStatus(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("RequestMatchingStatus() error = %v", err)
	}

	if status.TotalMatches != 6 {
		t.Fatalf("total matches = %d, want 6", status.TotalMatches)
	}
	if status.ConfirmedDonations != 3 {
		t.Fatalf("confirmed donations = %d, want 3", status.ConfirmedDonations)
	}
	if status.UnitsFulfilled != 1 {
		t.Fatalf("units fulfilled = %d, want 1", status.UnitsFulfilled)
	}
	if status.UnitsRequired != 4 {
		t.Fatalf("units required = %d, want 4", status.UnitsRequired)
	}
}

func TestMatchingServiceDonorMatchHistoryEnrichment(t *testing.T) {
	t.Parallel()

	matchedAt := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	matchLogs := &fakeMatchLogRepo{
		listByDonorFn: func(ctx context.Context, donorID string, includeRejected bool) ([]domain.MatchLog, error) {
			if includeRejected {
				t.Fatal("includeRejected should be false")
			}
			return []domain.MatchLog{
				{ID: "m-1", RequestID: "r-1", DonorID: donorID, MatchedAt: matchedAt, Status: domain.NotificationSent},
				{ID: "m-2", RequestID: "r-1", DonorID: donorID, MatchedAt: matchedAt, Status: domain.NotificationVolunteered},
			}, nil
		},
	}
	requestLookups := 0
	requests := &fakeRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.BloodRequest, error) {
			requestLookups++
			return &domain.BloodRequest{
				ID:           id,
				BloodType:    domain.BloodBNegative,
				Urgency:      domain.UrgencyHigh,
				HospitalName: "City General",
				Status:       domain.RequestPending,
			}, nil
		},
	}

	svc := newTestMatchingService(t, requests, matchLogs, &fakeDonationRepo{}, &fakeDirectory{}, &fakeDistance{}, time.Now().UTC())

	entries, err := svc.DonorMatchHistory(context.Background(), "d-1", false)
	if err != nil {
		t.Fatalf("DonorMatchHistory() error = %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("entry count = %d, want 2", len(entries))
	}
	if entries[0].BloodType != domain.BloodBNegative || entries[0].HospitalName != "City General" {
		t.Fatal("history entry should carry request context")
	}
	if requestLookups != 1 {
		t.Fatalf("request lookups = %d, want 1 (cached per request)", requestLookups)
	}
}

func newTestMatchingService(
	t *testing.T,
	requests *fakeRequestRepo,
	matchLogs *fakeMatchLogRepo,
	donations *fakeDonationRepo,
	dir *fakeDirectory,
	distance *fakeDistance,
	now time.Time,
) *MatchingService {
	t.Helper()

	svc, err := NewMatchingService(requests, matchLogs, donations, dir, distance, nil)
	if err != nil {
		t.Fatalf("NewMatchingService() error = %v", err)
	}
	svc.now = func() time.Time { return now }
	return svc
}

type fakeMatchLogRepo struct {
	createFn         func(ctx context.Context, l *domain.MatchLog) error
	createBatchFn    func(ctx context.Context, logs []*domain.MatchLog) error
	getByIDFn        func(ctx context.Context, id string) (*domain.MatchLog, error)
	updateStatusFn   func(ctx context.Context, id string, status domain.NotificationStatus) error
	listByDonorFn    func(ctx context.Context, donorID string, includeRejected bool) ([]domain.MatchLog, error)
	listByRequestFn  func(ctx context.Context, requestID string) ([]domain.MatchLog, error)
	listByStatusFn   func(ctx context.Context, status domain.NotificationStatus) ([]domain.MatchLog, error)
	countByRequestFn func(ctx context.Context, requestID string) (int64, error)
}

func (f *fakeMatchLogRepo) Create(ctx context.Context, l *domain.MatchLog) error {
	if f.createFn != nil {
		return f.createFn(ctx, l)
	}
	return nil
}

func (f *fakeMatchLogRepo) CreateBatch(ctx context.Context, logs []*domain.MatchLog) error {
	if f.createBatchFn != nil {
		return f.createBatchFn(ctx, logs)
	}
	return nil
}

func (f *fakeMatchLogRepo) GetByID(ctx context.Context, id string) (*domain.MatchLog, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeMatchLogRepo) UpdateStatus(ctx context.Context, id string, status domain.NotificationStatus) error {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (f *fakeMatchLogRepo) ListByDonor(ctx context.Context, donorID string, includeRejected bool) ([]domain.MatchLog, error) {
	if f.listByDonorFn != nil {
		return f.listByDonorFn(ctx, donorID, includeRejected)
	}
	return nil, nil
}

func (f *fakeMatchLogRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.MatchLog, error) {
	if f.listByRequestFn != nil {
		return f.listByRequestFn(ctx, requestID)
	}
	return nil, nil
}

func (f *fakeMatchLogRepo) ListByStatus(ctx context.Context, status domain.NotificationStatus) ([]domain.MatchLog, error) {
	if f.listByStatusFn != nil {
		return f.listByStatusFn(ctx, status)
	}
	return nil, nil
}

func (f *fakeMatchLogRepo) CountByRequest(ctx context.Context, requestID string) (int64, error) {
	if f.countByRequestFn != nil {
		return f.countByRequestFn(ctx, requestID)
	}
	return 0, nil
}

type fakeDonationRepo struct {
	scheduleFn                func(ctx context.Context, d *domain.Donation, confirm func(ctx context.Context) error) error
	getByIDFn                 func(ctx context.Context, id string) (*domain.Donation, error)
	existsByDonorAndRequestFn func(ctx context.Context, donorID, requestID string) (bool, error)
	listByDonorFn             func(ctx context.Context, donorID string) ([]domain.Donation, error)
	countByRequestAndStatusFn func(ctx context.Context, requestID string, status domain.DonationStatus) (int64, error)
	updateStatusFn            func(ctx context.Context, id string, from, to domain.DonationStatus, completedAt *time.Time) error
}

func (f *fakeDonationRepo) Schedule(ctx context.Context, d *domain.Donation, confirm func(ctx context.Context) error) error {
	if f.scheduleFn != nil {
		return f.scheduleFn(ctx, d, confirm)
	}
	return nil
}

func (f *fakeDonationRepo) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDonationRepo) ExistsByDonorAndRequest(ctx context.Context, donorID, requestID string) (bool, error) {
	if f.existsByDonorAndRequestFn != nil {
		return f.existsByDonorAndRequestFn(ctx, donorID, requestID)
	}
	return false, nil
}

func (f *fakeDonationRepo) ListByDonor(ctx context.Context, donorID string) ([]domain.Donation, error) {
	if f.listByDonorFn != nil {
		return f.listByDonorFn(ctx, donorID)
	}
	return nil, nil
}

func (f *fakeDonationRepo) CountByRequestAndStatus(ctx context.Context, requestID string, status domain.DonationStatus) (int64, error) {
	if f.countByRequestAndStatusFn != nil {
		return f.countByRequestAndStatusFn(ctx, requestID, status)
	}
	return 0, nil
}

func (f *fakeDonationRepo) UpdateStatus(ctx context.Context, id string, from, to domain.DonationStatus, completedAt *time.Time) error {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, from, to, completedAt)
	}
	return nil
}
