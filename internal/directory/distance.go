package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Luffyt01/HemoLink/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultOSRMTimeout = 10 * time.Second

type osrmResponse struct {
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
}

// OSRMClient resolves road distances through an OSRM routing endpoint.
type OSRMClient struct {
	client *resty.Client
}

func NewOSRMClient(baseURL string) (*OSRMClient, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("osrm base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid osrm base url: %w", err)
	}

	client := resty.New()
	client.SetBaseURL(trimmed)
	client.SetTimeout(defaultOSRMTimeout)
	client.SetRetryCount(defaultRetryCount)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, context.Canceled)
		}
		return r != nil && isTransientStatus(r.StatusCode())
	})

	return &OSRMClient{client: client}, nil
}

func NewOSRMClientWithClient(client *resty.Client) (*OSRMClient, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	return &OSRMClient{client: client}, nil
}

func (c *OSRMClient) DistanceKm(ctx context.Context, a, b domain.Point) (float64, error) {
	coordinates := fmt.Sprintf("%f,%f;%f,%f", a.Lng, a.Lat, b.Lng, b.Lat)

	var payload osrmResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&payload).
		Get("/route/v1/driving/" + coordinates)
	if err != nil {
		return 0, fmt.Errorf("%w: osrm request failed: %v", domain.ErrUpstream, err)
	}
	if resp == nil || resp.StatusCode() != http.StatusOK {
		status := 0
		if resp != nil {
			status = resp.StatusCode()
		}
		return 0, fmt.Errorf("%w: osrm returned status %d", domain.ErrUpstream, status)
	}
	if len(payload.Routes) == 0 {
		return 0, fmt.Errorf("%w: osrm returned no routes", domain.ErrUpstream)
	}

	return payload.Routes[0].Distance / 1000.0, nil
}
