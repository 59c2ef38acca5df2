package fetch

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"
)

// ErrorType classifies a failed attempt for the retry policy.
type ErrorType int

const (
	ErrorTypeSuccess ErrorType = iota
	ErrorTypeCredential
	ErrorTypeNetwork
	ErrorTypeRetryable
	ErrorTypeFatal
)

// RetryConfig holds the parameters for ExecuteWithRetry.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	OnRetry      func(attempt int, err error, errType ErrorType)
}

// ClassifyError determines the error type for the retry policy. A user
// cancellation (context.Canceled) is always fatal — it must propagate as
// an error, never as a retry.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}

	if errors.Is(err, context.Canceled) {
		return ErrorTypeFatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeNetwork
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "407") ||
		strings.Contains(errStr, "proxy authentication required") {
		return ErrorTypeFatal
	}

	if strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "forbidden") {
		return ErrorTypeCredential
	}

	if strings.Contains(errStr, "tls handshake timeout") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "eof") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "server closed idle connection") ||
		strings.Contains(errStr, "stream error") ||
		strings.Contains(errStr, "http2: server sent goaway") {
		return ErrorTypeNetwork
	}

	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "throttl") ||
		strings.Contains(errStr, "slow down") {
		return ErrorTypeRetryable
	}

	if strings.Contains(errStr, "400") ||
		strings.Contains(errStr, "404") ||
		strings.Contains(errStr, "invalid") {
		return ErrorTypeFatal
	}

	return ErrorTypeFatal
}

// CalculateBackoff returns an exponential-backoff-with-full-jitter delay:
// a random value in [0, min(maxDelay, initialDelay*2^attempt)).
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}

	base := time.Duration(1<<uint(attempt)) * initialDelay
	if base > maxDelay {
		base = maxDelay
	}
	if base <= 0 {
		return 0
	}

	return time.Duration(rand.Int63n(int64(base)))
}

// ExecuteWithRetry runs operation up to cfg.MaxRetries times, classifying
// each failure to decide whether and how long to wait before the next
// attempt. Fatal errors, including context cancellation, return
// immediately without a retry.
func ExecuteWithRetry(ctx context.Context, cfg RetryConfig, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		errType := ClassifyError(err)
		if errType == ErrorTypeFatal {
			return err
		}

		if attempt < cfg.MaxRetries-1 {
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt+1, err, errType)
			}

			var wait time.Duration
			if errType == ErrorTypeCredential {
				wait = time.Second
			} else {
				wait = CalculateBackoff(attempt, cfg.InitialDelay, cfg.MaxDelay)
			}

			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}
