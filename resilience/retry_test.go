package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	cfg := DefaultRetryConfig()
	callCount := 0

	result, err := Retry(context.Background(), cfg, func(attempt int) (string, error) {
		callCount++
		if attempt != 0 {
			t.Errorf("expected attempt 0, got %d", attempt)
		}
		return "success", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %s", result)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	}
	var attempts []int

	result, err := Retry(context.Background(), cfg, func(attempt int) (string, error) {
		attempts = append(attempts, attempt)
		if attempt < 2 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %s", result)
	}
	if len(attempts) != 3 || attempts[0] != 0 || attempts[1] != 1 || attempts[2] != 2 {
		t.Errorf("expected attempts [0 1 2], got %v", attempts)
	}
}

func TestRetry_ExceedsMaxAttempts(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	}
	callCount := 0
	testErr := errors.New("persistent error")

	_, err := Retry(context.Background(), cfg, func(attempt int) (string, error) {
		callCount++
		return "", testErr
	})

	if !errors.Is(err, testErr) {
		t.Errorf("expected testErr, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		RetryIf:     func(err error) bool { return false },
	}
	callCount := 0

	_, err := Retry(context.Background(), cfg, func(attempt int) (string, error) {
		callCount++
		return "", errors.New("fatal")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts: 10,
		BaseDelay:   50 * time.Millisecond,
	}
	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0

	_, err := Retry(ctx, cfg, func(attempt int) (string, error) {
		callCount++
		cancel()
		return "", errors.New("fail")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", callCount)
	}
}

func TestRetry_LinearBackoff(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   10 * time.Millisecond,
	}
	var backoffs []time.Duration
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		backoffs = append(backoffs, backoff)
	}

	_, _ = Retry(context.Background(), cfg, func(attempt int) (string, error) {
		return "", errors.New("fail")
	})

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}
	if len(backoffs) != len(want) {
		t.Fatalf("expected %d backoffs, got %d", len(want), len(backoffs))
	}
	for i, b := range backoffs {
		if b != want[i] {
			t.Errorf("backoff %d: expected %v, got %v", i, want[i], b)
		}
	}
}

func TestRetry_MaxDelayCaps(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    15 * time.Millisecond,
	}
	var backoffs []time.Duration
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		backoffs = append(backoffs, backoff)
	}

	_, _ = Retry(context.Background(), cfg, func(attempt int) (string, error) {
		return "", errors.New("fail")
	})

	for _, b := range backoffs {
		if b > 15*time.Millisecond {
			t.Errorf("backoff %v exceeds cap", b)
		}
	}
}
