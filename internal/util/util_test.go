package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRateLimiterNew(t *testing.T) {
	rl := NewRateLimiter(60)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
}

func TestIsTradingDay(t *testing.T) {
	// 2024-01-06 is a Saturday, 2024-01-07 a Sunday, 2024-01-08 a Monday.
	sat := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	sun := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	mon := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	if IsTradingDay(sat) {
		t.Error("Saturday should not be a trading day")
	}
	if IsTradingDay(sun) {
		t.Error("Sunday should not be a trading day")
	}
	if !IsTradingDay(mon) {
		t.Error("Monday should be a trading day")
	}
}

func TestTradingDays(t *testing.T) {
	// Mon 2024-01-01 through Sun 2024-01-14: exactly 10 weekdays.
	start := time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)
	end := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)

	days := TradingDays(start, end)
	if len(days) != 10 {
		t.Fatalf("TradingDays returned %d days, want 10", len(days))
	}
	for _, d := range days {
		if !IsTradingDay(d) {
			t.Errorf("TradingDays returned a weekend date: %v", d)
		}
		if d.Hour() != 0 || d.Location() != time.UTC {
			t.Errorf("TradingDays returned non-midnight date: %v", d)
		}
	}
	if !days[0].Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first day = %v, want 2024-01-01", days[0])
	}
}

func TestTradingDaysEmptyRange(t *testing.T) {
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	if days := TradingDays(start, end); days != nil {
		t.Errorf("TradingDays(start>end) = %v, want nil", days)
	}
}
