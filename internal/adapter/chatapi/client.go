// Package chatapi is the REST client for the chat platform's bot API.
package chatapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"golang.org/x/time/rate"

	"github.com/956zs/pinit/internal/adapter/metrics"
)

const (
	httpTimeout = 15 * time.Second

	// Client-side pacing for REST calls. The platform rate-limits per bot;
	// pacing here keeps bursts of prompt seeding from tripping it.
	requestsPerSecond = 10
	requestBurst      = 5
)

// APIError is a non-2xx response from the chat platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat api status %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the platform told us to back off.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Client performs chat-platform REST actions with bot-token auth, client-side
// pacing, and a circuit breaker. Calls never retry; the caller decides what a
// failure costs.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	breaker circuitbreaker.CircuitBreaker[any]
}

// NewClient creates a chat API client for the given base URL. The breaker
// opens on 60% failures over at least 5 calls in a 10s window, stays open for
// 30s, and closes after one half-open success.
func NewClient(baseURL, botToken string, pins *metrics.PinMetrics) *Client {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "chatapi",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			pins.BreakerTransitions.Inc()
			pins.BreakerState.Set(stateToFloat(e.NewState))
		}).
		Build()

	return &Client{
		baseURL: baseURL,
		token:   botToken,
		http:    &http.Client{Timeout: httpTimeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		breaker: cb,
	}
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// PinMessage pins messageID in channelID.
func (c *Client) PinMessage(ctx context.Context, channelID, messageID string) error {
	path := fmt.Sprintf("/channels/%s/pins/%s", url.PathEscape(channelID), url.PathEscape(messageID))
	return c.put(ctx, path)
}

// AddReaction adds emoji to messageID in channelID as the bot.
func (c *Client) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/@me",
		url.PathEscape(channelID), url.PathEscape(messageID), url.PathEscape(emoji))
	return c.put(ctx, path)
}

func (c *Client) put(ctx context.Context, path string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)

	if !c.breaker.TryAcquirePermit() {
		return fmt.Errorf("chat api call rejected: %w", circuitbreaker.ErrOpen)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordError(err)
		return fmt.Errorf("chat api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.breaker.RecordSuccess()
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}

	// The breaker tracks platform availability, not request validity: a 4xx
	// means the platform answered.
	if resp.StatusCode >= 500 || apiErr.RateLimited() {
		c.breaker.RecordError(apiErr)
	} else {
		c.breaker.RecordSuccess()
	}

	return apiErr
}
