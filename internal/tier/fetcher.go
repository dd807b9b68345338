package tier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/questai/mongodb-tools-api/internal/logger"
)

// Fetcher resolves a tier from the subscription service.
type Fetcher interface {
	FetchTier(ctx context.Context, endpoint string, headers map[string]string) (Tier, error)
}

// StatusError is returned when the subscription service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("subscription service returned status %d", e.StatusCode)
}

type subscriptionResponse struct {
	SubscriptionPackage *struct {
		Tier *string `json:"tier"`
	} `json:"subscription_package"`
}

// HTTPFetcher fetches tiers with plain GET requests.
type HTTPFetcher struct {
	client *http.Client
	logger *logger.Logger
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a fetcher whose requests are bounded by timeout.
func NewHTTPFetcher(log *logger.Logger, timeout time.Duration) *HTTPFetcher {
	if log == nil {
		log = logger.Production()
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		logger: log,
	}
}

// FetchTier calls the subscription endpoint with headers. A body without
// subscription_package.tier means FREE.
func (f *HTTPFetcher) FetchTier(ctx context.Context, endpoint string, headers map[string]string) (Tier, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Free, fmt.Errorf("failed to build subscription request: %w", err)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Free, fmt.Errorf("subscription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Free, &StatusError{StatusCode: resp.StatusCode}
	}

	var body subscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Free, fmt.Errorf("failed to decode subscription response: %w", err)
	}

	if body.SubscriptionPackage == nil || body.SubscriptionPackage.Tier == nil {
		return Free, nil
	}

	tier, err := Parse(*body.SubscriptionPackage.Tier)
	if err != nil {
		return Free, err
	}

	f.logger.Debug("Subscription tier fetched", "tier", tier)
	return tier, nil
}
