package database

import (
	"context"
	"database/sql"
	"errors"
	"perfumery_server/lib"
	"strings"
	"time"
)

// RetryConfig defines retry behavior
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	EnableRetry  bool
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		EnableRetry:  true,
	}
}

// Errors that carry a business outcome; replaying the transaction gives the same answer
var permanentErrors = []error{
	context.DeadlineExceeded,
	context.Canceled,
	sql.ErrNoRows,
	lib.ErrInsufficientStock,
	lib.ErrInvalidTransition,
	lib.ErrOrderNotPayable,
	lib.ErrOrderNotFound,
	lib.ErrProductNotFound,
}

// SQLSTATE classes worth another attempt: connection exceptions,
// insufficient resources and operator intervention (e.g. cannot_connect_now)
var retryableClasses = []string{"08", "53", "57"}

var transientMessages = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"eof",
	"connection closed",
	"bad connection",
	"too many clients",
	"server is not accepting",
	"temporary failure",
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	for _, permanent := range permanentErrors {
		if errors.Is(err, permanent) {
			return false
		}
	}

	if code := lib.SQLState(err); code != "" {
		switch code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return true
		case "57014": // query_canceled
			return false
		}
		for _, class := range retryableClasses {
			if strings.HasPrefix(code, class) {
				return true
			}
		}
		// constraint, syntax and data errors won't change on replay
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, transient := range transientMessages {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}

// RetryWithBackoff runs operation until it succeeds, fails permanently or
// runs out of attempts. The delay grows by Multiplier up to MaxDelay.
func RetryWithBackoff(ctx context.Context, config RetryConfig, operation func() error) error {
	if !config.EnableRetry || config.MaxAttempts < 2 {
		return operation()
	}

	delay := config.InitialDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = operation(); err == nil || !isRetryableError(err) || attempt == config.MaxAttempts {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(time.Duration(float64(delay)*config.Multiplier), config.MaxDelay)
	}
}

// WithRetry wraps a database operation with the default retry policy
func WithRetry(ctx context.Context, fn func() error) error {
	return RetryWithBackoff(ctx, DefaultRetryConfig(), fn)
}
