// Package provider provides HTTP client utilities for external providers.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"provider-sync-service/internal/domain"
)

// ClientConfig holds configuration for a provider client.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Retry   RetryConfig
	CB      CBConfig
	Rate    RateConfig
}

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts int
	WaitTime    time.Duration
	MaxWaitTime time.Duration
}

// CBConfig holds circuit breaker configuration.
type CBConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
}

// RateConfig holds client-side rate limiting. Zero RequestsPerSecond disables it.
type RateConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// NewRestyClient creates a new Resty HTTP client with retry configuration.
func NewRestyClient(cfg ClientConfig) *resty.Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retry.MaxAttempts).
		SetRetryWaitTime(cfg.Retry.WaitTime).
		SetRetryMaxWaitTime(cfg.Retry.MaxWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Retry on network errors or 5xx status codes
			if err != nil {
				return true
			}

			return r.StatusCode() >= 500
		})

	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	return client
}

// NewCircuitBreaker creates a new circuit breaker for a provider.
func NewCircuitBreaker[T any](name string, cfg CBConfig, logger *zap.Logger) *gobreaker.CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.Requests >= 3 && failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return gobreaker.NewCircuitBreaker[T](settings)
}

// NewRateLimiter creates the client-side limiter of a provider.
func NewRateLimiter(cfg RateConfig) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
}

// Caller performs rate-limited GET requests behind a circuit breaker.
// Every upstream failure is reported as domain.ErrProviderUnavailable.
type Caller struct {
	name    string
	client  *resty.Client
	cb      *gobreaker.CircuitBreaker[*resty.Response]
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewCaller creates a new Caller for the named provider.
func NewCaller(name string, cfg ClientConfig, logger *zap.Logger) *Caller {
	return &Caller{
		name:    name,
		client:  NewRestyClient(cfg),
		cb:      NewCircuitBreaker[*resty.Response](name, cfg.CB, logger),
		limiter: NewRateLimiter(cfg.Rate),
		logger:  logger,
	}
}

// Resty exposes the underlying client (tests hook their transport on it).
func (c *Caller) Resty() *resty.Client {
	return c.client
}

// Get fetches path with query parameters and decodes the JSON body into result.
func (c *Caller) Get(ctx context.Context, path string, query map[string]string, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limiter: %w", c.name, err)
	}

	_, err := c.cb.Execute(func() (*resty.Response, error) {
		r, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(query).
			SetResult(result).
			Get(path)
		if err != nil {
			return nil, err
		}
		if r.IsError() {
			return nil, fmt.Errorf("%s returned status %d", c.name, r.StatusCode())
		}

		return r, nil
	})
	if err != nil {
		c.logger.Warn("provider call failed",
			zap.String("provider", c.name),
			zap.String("path", path),
			zap.String("state", c.cb.State().String()),
			zap.Error(err),
		)

		return fmt.Errorf("%w: GET %s: %w", domain.ErrProviderUnavailable, path, err)
	}

	return nil
}

// GetBytes fetches an absolute URL and returns the raw body.
func (c *Caller) GetBytes(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limiter: %w", c.name, err)
	}

	resp, err := c.cb.Execute(func() (*resty.Response, error) {
		r, err := c.client.R().
			SetContext(ctx).
			Get(url)
		if err != nil {
			return nil, err
		}
		if r.IsError() {
			return nil, fmt.Errorf("%s returned status %d", c.name, r.StatusCode())
		}

		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", domain.ErrProviderUnavailable, url, err)
	}

	return resp.Body(), nil
}
