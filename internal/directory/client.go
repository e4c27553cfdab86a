package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Luffyt01/HemoLink/internal/domain"
	"github.com/go-resty/resty/v2"
)

const (
	defaultClientTimeout = 10 * time.Second
	defaultRetryCount    = 2
)

type donorPayload struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	BloodType    string       `json:"bloodType"`
	Location     domain.Point `json:"location"`
	Available    bool         `json:"available"`
	LastDonation *time.Time   `json:"lastDonationDate,omitempty"`
}

type hospitalPayload struct {
	ID                 string       `json:"id"`
	HospitalName       string       `json:"hospitalName"`
	ServiceArea        domain.Point `json:"serviceArea"`
	VerificationStatus string       `json:"verificationStatus"`
}

type candidatePayload struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	BloodType    string     `json:"bloodType"`
	DistanceKm   float64    `json:"distanceKm"`
	LastDonation *time.Time `json:"lastDonationDate,omitempty"`
	Available    bool       `json:"available"`
}

type availabilityPayload struct {
	Available bool `json:"available"`
}

// UserServiceClient talks to the donor/hospital directory over HTTP. Lookups
// are retried (they are idempotent); the availability flip is not.
type UserServiceClient struct {
	client *resty.Client
}

func NewUserServiceClient(baseURL string) (*UserServiceClient, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("user service base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid user service base url: %w", err)
	}

	client := resty.New()
	client.SetBaseURL(trimmed)
	client.SetTimeout(defaultClientTimeout)
	client.SetRetryCount(defaultRetryCount)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, context.Canceled)
		}
		return r != nil && r.Request.Method == http.MethodGet && isTransientStatus(r.StatusCode())
	})

	return &UserServiceClient{client: client}, nil
}

func NewUserServiceClientWithClient(client *resty.Client) (*UserServiceClient, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	return &UserServiceClient{client: client}, nil
}

func (c *UserServiceClient) GetDonor(ctx context.Context, donorID string) (*Donor, error) {
	var payload donorPayload
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&payload).
		Get("/users/donors/" + url.PathEscape(donorID))
	if err := classify(resp, err, "donor "+donorID); err != nil {
		return nil, err
	}

	bloodType, err := domain.ParseBloodTypeFromString(payload.BloodType)
	if err != nil {
		return nil, fmt.Errorf("%w: directory returned unknown blood type %q for donor %s", domain.ErrUpstream, payload.BloodType, donorID)
	}

	return &Donor{
		ID:           payload.ID,
		Name:         payload.Name,
		BloodType:    bloodType,
		Location:     payload.Location,
		Available:    payload.Available,
		LastDonation: payload.LastDonation,
	}, nil
}

func (c *UserServiceClient) GetHospital(ctx context.Context, hospitalID string) (*Hospital, error) {
	return c.getHospital(ctx, "/users/hospitals/"+url.PathEscape(hospitalID), "hospital "+hospitalID)
}

func (c *UserServiceClient) GetHospitalByUser(ctx context.Context, userID string) (*Hospital, error) {
	return c.getHospital(ctx, "/users/hospitals/by-user/"+url.PathEscape(userID), "hospital for user "+userID)
}

func (c *UserServiceClient) getHospital(ctx context.Context, path, subject string) (*Hospital, error) {
	var payload hospitalPayload
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&payload).
		Get(path)
	if err := classify(resp, err, subject); err != nil {
		return nil, err
	}

	return &Hospital{
		ID:                 payload.ID,
		Name:               payload.HospitalName,
		Location:           payload.ServiceArea,
		VerificationStatus: VerificationStatus(strings.ToUpper(strings.TrimSpace(payload.VerificationStatus))),
	}, nil
}

func (c *UserServiceClient) FindEligibleDonors(ctx context.Context, q EligibleDonorQuery) ([]DonorCandidate, error) {
	bloodTypes := make([]string, 0, len(q.BloodTypes))
	for _, bt := range q.BloodTypes {
		bloodTypes = append(bloodTypes, bt.String())
	}

	var payload []candidatePayload
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("lng", strconv.FormatFloat(q.Point.Lng, 'f', -1, 64)).
		SetQueryParam("lat", strconv.FormatFloat(q.Point.Lat, 'f', -1, 64)).
		SetQueryParam("bloodTypes", strings.Join(bloodTypes, ",")).
		SetQueryParam("radiusKm", strconv.Itoa(q.RadiusKm)).
		SetQueryParam("limit", strconv.Itoa(q.Limit)).
		SetQueryParam("donatedBefore", q.DonatedBefore.UTC().Format(time.RFC3339)).
		SetResult(&payload).
		Get("/users/donors/eligible")
	if err := classify(resp, err, "eligible donors"); err != nil {
		return nil, err
	}

	candidates := make([]DonorCandidate, 0, len(payload))
	for _, item := range payload {
		bloodType, parseErr := domain.ParseBloodTypeFromString(item.BloodType)
		if parseErr != nil {
			continue
		}
		candidates = append(candidates, DonorCandidate{
			ID:           item.ID,
			Name:         item.Name,
			BloodType:    bloodType,
			DistanceKm:   item.DistanceKm,
			LastDonation: item.LastDonation,
			Available:    item.Available,
		})
	}

	return candidates, nil
}

func (c *UserServiceClient) SetDonorAvailability(ctx context.Context, donorID string, available bool) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(availabilityPayload{Available: available}).
		Patch("/users/donors/" + url.PathEscape(donorID) + "/availability")
	return classify(resp, err, "donor availability "+donorID)
}

// classify folds a resty result into the domain error taxonomy: transport
// errors and non-2xx responses become ErrUpstream, except 404 which maps to
// ErrNotFound.
func classify(resp *resty.Response, err error, subject string) error {
	if err != nil {
		return fmt.Errorf("%w: directory request for %s failed: %v", domain.ErrUpstream, subject, err)
	}
	if resp == nil {
		return fmt.Errorf("%w: directory returned empty response for %s", domain.ErrUpstream, subject)
	}

	status := resp.StatusCode()
	switch {
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, subject)
	default:
		return fmt.Errorf("%w: directory returned status %d for %s", domain.ErrUpstream, status, subject)
	}
}

func isTransientStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= http.StatusInternalServerError && status <= 599)
}
