package resilience

import (
	"testing"
	"time"
)

func TestGatewayBackoff(t *testing.T) {
	backoff := GatewayBackoff()

	if backoff.BaseDelay != 50*time.Millisecond {
		t.Errorf("Expected BaseDelay = 50ms, got %v", backoff.BaseDelay)
	}

	if backoff.MaxDelay != 1*time.Second {
		t.Errorf("Expected MaxDelay = 1s, got %v", backoff.MaxDelay)
	}

	if backoff.Multiplier != 2.0 {
		t.Errorf("Expected Multiplier = 2.0, got %f", backoff.Multiplier)
	}

	if backoff.Jitter != 0.1 {
		t.Errorf("Expected Jitter = 0.1, got %f", backoff.Jitter)
	}
}

func TestExponentialBackoff_NextDelay(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 50 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second}, // 1.6s capped
		{8, 1 * time.Second},
	}

	for _, tt := range tests {
		delay := backoff.NextDelay(tt.attempt)
		if delay != tt.expected {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, delay, tt.expected)
		}
	}
}

func TestExponentialBackoff_WithJitter(t *testing.T) {
	backoff := GatewayBackoff()

	attempt := 3
	delays := make([]time.Duration, 100)
	for i := 0; i < 100; i++ {
		delays[i] = backoff.NextDelay(attempt)
	}

	// 400ms ±10%
	expectedDelay := 400 * time.Millisecond
	minExpected := time.Duration(float64(expectedDelay) * 0.9)
	maxExpected := time.Duration(float64(expectedDelay) * 1.1)

	for i, delay := range delays {
		if delay < minExpected || delay > maxExpected {
			t.Errorf("Delay[%d] = %v, expected range [%v, %v]", i, delay, minExpected, maxExpected)
		}
	}

	allSame := true
	for _, delay := range delays[1:] {
		if delay != delays[0] {
			allSame = false
			break
		}
	}
	if allSame {
		t.Error("All delays are identical - jitter is not working")
	}
}

func TestExponentialBackoff_NegativeAttempt(t *testing.T) {
	backoff := GatewayBackoff()

	delay := backoff.NextDelay(-1)
	if delay != backoff.BaseDelay {
		t.Errorf("NextDelay(-1) = %v, want %v", delay, backoff.BaseDelay)
	}
}

func TestFixedBackoff(t *testing.T) {
	backoff := &FixedBackoff{Delay: 250 * time.Millisecond}

	for attempt := 0; attempt < 9; attempt++ {
		delay := backoff.NextDelay(attempt)
		if delay != 250*time.Millisecond {
			t.Errorf("FixedBackoff.NextDelay(%d) = %v, want 250ms", attempt, delay)
		}
	}
}

func TestNewBackoff(t *testing.T) {
	if b := NewBackoff("none", time.Second); b != nil {
		t.Errorf("NewBackoff(none) = %v, want nil", b)
	}
	if b := NewBackoff("", time.Second); b != nil {
		t.Errorf("NewBackoff(\"\") = %v, want nil", b)
	}

	fixed, ok := NewBackoff("fixed", 200*time.Millisecond).(*FixedBackoff)
	if !ok {
		t.Fatal("NewBackoff(fixed) did not return *FixedBackoff")
	}
	if fixed.Delay != 200*time.Millisecond {
		t.Errorf("fixed delay = %v, want 200ms", fixed.Delay)
	}

	if _, ok := NewBackoff("exponential", 0).(*ExponentialBackoff); !ok {
		t.Error("NewBackoff(exponential) did not return *ExponentialBackoff")
	}
}

func TestGatewayBackoff_NineAttemptBudget(t *testing.T) {
	backoff := GatewayBackoff()

	// Eight waits separate nine attempts
	total := time.Duration(0)
	for attempt := 0; attempt < 8; attempt++ {
		total += backoff.NextDelay(attempt)
	}

	if total > 6*time.Second {
		t.Errorf("Total delay %v exceeds reasonable threshold", total)
	}
}

func BenchmarkExponentialBackoff(b *testing.B) {
	backoff := GatewayBackoff()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = backoff.NextDelay(i % 9)
	}
}
