package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"perfumery_server/lib"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "no rows", err: sql.ErrNoRows, want: false},
		{name: "context canceled", err: context.Canceled, want: false},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: false},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "deadlock", err: fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40P01"}), want: true},
		{name: "too many connections", err: &pgconn.PgError{Code: "53300"}, want: true},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "insufficient stock", err: fmt.Errorf("%w for Beoful Eau", lib.ErrInsufficientStock), want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Fatalf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2, EnableRetry: true}
}

func TestRetryWithBackoffRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetry(), func() error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoffStopsOnPermanentErrors(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetry(), func() error {
		calls++
		return &pgconn.PgError{Code: "23505"}
	})
	if err == nil || calls != 1 {
		t.Fatalf("err = %v, calls = %d; want error after 1 call", err, calls)
	}
}

func TestRetryWithBackoffGivesUp(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetry(), func() error {
		calls++
		return errors.New("connection reset by peer")
	})
	if err == nil || calls != 3 {
		t.Fatalf("err = %v, calls = %d; want error after 3 calls", err, calls)
	}
}

func TestNormalizePageAndPagination(t *testing.T) {
	page, size := NormalizePage(0, 0, 20, 100)
	if page != 1 || size != 20 {
		t.Fatalf("NormalizePage(0,0) = %d,%d", page, size)
	}
	if _, size = NormalizePage(2, 500, 20, 100); size != 100 {
		t.Fatalf("page size not capped: %d", size)
	}

	p := NewPagination(2, 20, 41)
	if p.TotalPages != 3 {
		t.Fatalf("TotalPages = %d, want 3", p.TotalPages)
	}
}
