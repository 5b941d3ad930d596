// Package enrichment consumes the Activity Enrichment Gateway: an external
// service that resolves an opaque activity reference to display metadata.
// Only listing paths use it; a failed lookup degrades to a placeholder.
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// Sentinel errors for gateway lookups.
var (
	ErrUnavailable = errors.New("enrichment: activity details unavailable")
	ErrNotFound    = fmt.Errorf("%w: unknown activity", ErrUnavailable)
)

// Resolver resolves one activity reference to its details.
// Any failure wraps ErrUnavailable.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (domain.ActivityDetails, error)
}

// maxResponseBytes bounds how much of a gateway response is decoded.
const maxResponseBytes = 1 << 20

// Client calls the gateway over HTTP: GET {baseURL}/activities/{ref}.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewClient creates a gateway client. rps limits outbound requests per second
// (burst of the same size); rps <= 0 disables limiting.
func NewClient(baseURL string, timeout time.Duration, rps float64, logger *slog.Logger) *Client {
	limit := rate.Inf
	burst := 0
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(limit, burst),
		logger:      logger,
	}
}

// Resolve fetches the details for ref.
func (c *Client) Resolve(ctx context.Context, ref string) (domain.ActivityDetails, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return domain.ActivityDetails{}, fmt.Errorf("%w: rate limit: %w", ErrUnavailable, err)
	}

	endpoint := c.baseURL + "/activities/" + url.PathEscape(ref)
	c.logger.Debug("resolving activity", "ref", ref, "url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.ActivityDetails{}, fmt.Errorf("%w: create request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ActivityDetails{}, fmt.Errorf("%w: request: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ActivityDetails{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	case resp.StatusCode != http.StatusOK:
		return domain.ActivityDetails{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var details domain.ActivityDetails
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&details); err != nil {
		return domain.ActivityDetails{}, fmt.Errorf("%w: parse response: %w", ErrUnavailable, err)
	}
	return details, nil
}

// Disabled is the Resolver used when no gateway is configured.
type Disabled struct{}

// Resolve always reports ErrUnavailable.
func (Disabled) Resolve(_ context.Context, ref string) (domain.ActivityDetails, error) {
	return domain.ActivityDetails{}, fmt.Errorf("%w: no gateway configured for %q", ErrUnavailable, ref)
}
