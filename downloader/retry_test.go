package downloader

import (
	"context"
	"errors"
	"testing"
	"time"

	"servefetch/internal"
)

func TestRetryDelay_Table(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 8 * time.Second},
		{100, 8 * time.Second},
	}
	for _, tt := range tests {
		if got := retryDelay(tt.attempt); got != tt.want {
			t.Errorf("retryDelay(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestRetry_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "op", 3, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly one call, got %d", calls)
	}
}

func TestRetry_RetriesRetryableErrorThenSucceeds(t *testing.T) {
	retryable := internal.NewTransferError(internal.KindTransport, "fetch", "connection reset", nil)
	calls := 0
	err := Retry(context.Background(), "op", 3, func() error {
		calls++
		if calls < 3 {
			return retryable
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_StopsOnNonRetryableError(t *testing.T) {
	terminal := internal.NewTransferError(internal.KindInput, "fetch", "bad request", nil)
	calls := 0
	err := Retry(context.Background(), "op", 5, func() error {
		calls++
		return terminal
	})
	if !errors.Is(err, terminal) {
		t.Fatalf("expected terminal error returned, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call before giving up, got %d", calls)
	}
}

func TestRetry_ExhaustsMaxAttempts(t *testing.T) {
	retryable := internal.NewTransferError(internal.KindTransport, "fetch", "timeout", nil)
	calls := 0
	err := Retry(context.Background(), "op", 3, func() error {
		calls++
		return retryable
	})
	if !errors.Is(err, retryable) {
		t.Fatalf("expected last error returned, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestRetry_ContextCancelledDuringBackoffAbortsEarly(t *testing.T) {
	retryable := internal.NewTransferError(internal.KindTransport, "fetch", "timeout", nil)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Retry(ctx, "op", 5, func() error {
		calls++
		if calls == 1 {
			cancel()
		}
		return retryable
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly one call before cancellation, got %d", calls)
	}
}

func TestRetry_MaxAttemptsFloorsAtOne(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "op", 0, func() error {
		calls++
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly one call when maxAttempts <= 0, got %d", calls)
	}
}
