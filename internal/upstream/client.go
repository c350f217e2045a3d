// Package upstream consumes the job-processing service's HTTP API. The rest
// of the gateway only sees the JobSource interface, so tests substitute stubs.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jobtrace/jobtrace-gateway/internal/metrics"
	"github.com/jobtrace/jobtrace-gateway/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// JobSource lists the current jobs known to the upstream service.
type JobSource interface {
	ListJobs(ctx context.Context, service string) ([]models.Job, error)
}

// Client is the HTTP JobSource implementation.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an upstream client. ratePerSec/burst of 0 disables the
// outbound token bucket.
func NewClient(baseURL string, timeout time.Duration, ratePerSec float64, burst int) *Client {
	var limiter *rate.Limiter
	if ratePerSec > 0 && burst > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: limiter,
	}
}

type listJobsResponse struct {
	Jobs []models.Job `json:"jobs"`
}

// ListJobs fetches the full job list for a service. The request is bounded by
// the client timeout and by ctx.
func (c *Client) ListJobs(ctx context.Context, service string) ([]models.Job, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("upstream rate limit wait: %w", err)
		}
	}

	endpoint := fmt.Sprintf("%s/api/jobs?service=%s", c.baseURL, url.QueryEscape(service))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("upstream query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	var payload listJobsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode upstream response: %w", err)
	}
	return payload.Jobs, nil
}
