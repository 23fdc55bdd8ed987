package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"lexassist-backend/logger"
	"lexassist-backend/metrics"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3
	initialBackoff    = time.Second
)

// Client wraps a Provider with key validation, an overall deadline, retries and metrics
type Client struct {
	provider     Provider
	providerName string
	timeout      time.Duration
	maxRetries   int
	backoff      time.Duration
	log          logger.Logger
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

func WithInitialBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		c.backoff = d
	}
}

func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// WithProviderName selects the credential format checked by ValidateKey
func WithProviderName(name string) ClientOption {
	return func(c *Client) {
		c.providerName = name
	}
}

func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider:   provider,
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
		backoff:    initialBackoff,
		log:        logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete runs req with retries inside one deadline.
// 400 and 401 responses fail immediately; an expired deadline yields ErrTimeout.
func (c *Client) Complete(ctx context.Context, apiKey string, req Request) (text string, err error) {
	if err := ValidateKey(c.providerName, apiKey); err != nil {
		return "", err
	}

	started := time.Now()
	defer func() { metrics.ObserveModelCall(req.Operation, started, err) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	backoff := c.backoff
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff); err != nil {
				return "", c.deadlineError(ctx, err)
			}
			backoff *= 2
		}

		text, err = c.provider.Complete(ctx, apiKey, req)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", c.deadlineError(ctx, err)
		}
		if !retryable(err) {
			return "", err
		}
		c.log.Warn("model call failed, retrying", map[string]interface{}{
			"operation": req.Operation,
			"attempt":   attempt + 1,
			"error":     err.Error(),
		})
	}
	return "", fmt.Errorf("model call failed after %d attempts: %w", c.maxRetries, err)
}

func (c *Client) deadlineError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	return err
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode != http.StatusBadRequest && apiErr.StatusCode != http.StatusUnauthorized
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
