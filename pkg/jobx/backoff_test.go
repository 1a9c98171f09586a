package jobx_test

import (
	"testing"
	"time"

	"github.com/robypag/scentsmith/pkg/jobx"
)

func TestBackoffExponentialDoubles(t *testing.T) {
	p := jobx.BackoffPolicy{
		Kind:     jobx.BackoffExponential,
		Delay:    5 * time.Second,
		MaxDelay: 5 * time.Minute,
	}

	want := map[int]time.Duration{
		1: 5 * time.Second,
		2: 10 * time.Second,
		3: 20 * time.Second,
		4: 40 * time.Second,
	}
	for attempt, expected := range want {
		if got := p.Next(attempt); got != expected {
			t.Fatalf("attempt %d: expected %v, got %v", attempt, expected, got)
		}
	}
}

func TestBackoffExponentialCapped(t *testing.T) {
	p := jobx.BackoffPolicy{
		Kind:     jobx.BackoffExponential,
		Delay:    time.Minute,
		MaxDelay: 5 * time.Minute,
	}

	if got := p.Next(10); got != 5*time.Minute {
		t.Fatalf("expected cap of 5m, got %v", got)
	}
}

func TestBackoffFixed(t *testing.T) {
	p := jobx.BackoffPolicy{
		Kind:  jobx.BackoffFixed,
		Delay: 7 * time.Second,
	}

	for attempt := 0; attempt < 4; attempt++ {
		if got := p.Next(attempt); got != 7*time.Second {
			t.Fatalf("attempt %d: expected fixed 7s, got %v", attempt, got)
		}
	}
}

func TestDefaultBackoff(t *testing.T) {
	p := jobx.DefaultBackoff()
	if p.Kind != jobx.BackoffExponential {
		t.Fatalf("expected exponential default, got %q", p.Kind)
	}
	if p.Next(0) <= 0 {
		t.Fatal("default backoff must produce a positive delay")
	}
}
