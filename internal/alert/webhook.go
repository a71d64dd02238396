package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/leoprotocol/leoscore/internal/logging"
)

// ErrRejected is returned when a webhook answers with a 4xx status.
// Rejected deliveries are not retried.
var ErrRejected = errors.New("webhook rejected")

const (
	requestTimeout = 5 * time.Second
	maxAttempts    = 3
)

var (
	httpClient = &http.Client{Timeout: requestTimeout}

	// retryInterval is the first wait between attempts. It grows
	// exponentially after that.
	retryInterval = time.Second
)

// Send posts an event to cfg.URL. Transport errors and 5xx answers are
// retried with exponential backoff until maxAttempts or ctx ends.
func Send(ctx context.Context, cfg AlertConfig, event AlertEvent, logger *zap.Logger) error {
	body, err := FormatPayload(cfg.Format, event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	logger = logging.OrNop(logger)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInterval
	bo.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(bo, maxAttempts-1), ctx)

	attempts := 0
	err = backoff.RetryNotify(func() error {
		attempts++
		return post(ctx, cfg, body)
	}, b, func(err error, wait time.Duration) {
		logger.Debug("retrying webhook delivery",
			zap.String("url", cfg.URL),
			zap.String("kind", event.Kind),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRejected):
		return err
	default:
		return fmt.Errorf("webhook failed after %d attempts: %w", attempts, err)
	}
}

// post makes one delivery attempt. A 4xx answer is wrapped as permanent so
// the backoff loop stops.
func post(ctx context.Context, cfg AlertConfig, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return backoff.Permanent(fmt.Errorf("%w: HTTP %d", ErrRejected, resp.StatusCode))
	default:
		return fmt.Errorf("webhook server error: HTTP %d", resp.StatusCode)
	}
}
