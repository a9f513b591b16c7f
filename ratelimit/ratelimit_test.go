package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewDisabledWhenNonPositive(t *testing.T) {
	tests := []struct {
		name   string
		limit  int
		window time.Duration
	}{
		{"zero limit", 0, time.Minute},
		{"negative limit", -1, time.Minute},
		{"zero window", 5, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := New(nil, tc.limit, tc.window)
			decision, err := l.Allow(context.Background(), "consumer-a")
			if err != nil {
				t.Fatalf("Allow: %v", err)
			}
			if !decision.Allowed {
				t.Fatal("disabled limiter denied a request, want always-allow")
			}
		})
	}
}

func TestInProcessLimiterEnforcesLimit(t *testing.T) {
	l := New(nil, 3, time.Minute)

	for i := 0; i < 3; i++ {
		d, err := l.Allow(context.Background(), "consumer-a")
		if err != nil {
			t.Fatalf("Allow (request %d): %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("Allow (request %d) denied, want allowed within limit", i)
		}
	}

	d, err := l.Allow(context.Background(), "consumer-a")
	if err != nil {
		t.Fatalf("Allow (over limit): %v", err)
	}
	if d.Allowed {
		t.Fatal("Allow (over limit) = allowed, want denied")
	}
	if d.Remaining != 0 {
		t.Fatalf("Remaining = %d, want 0", d.Remaining)
	}
}

func TestInProcessLimiterIsPerConsumer(t *testing.T) {
	l := New(nil, 1, time.Minute)

	d1, _ := l.Allow(context.Background(), "consumer-a")
	if !d1.Allowed {
		t.Fatal("consumer-a first request denied, want allowed")
	}

	d2, _ := l.Allow(context.Background(), "consumer-b")
	if !d2.Allowed {
		t.Fatal("consumer-b first request denied, want allowed (separate bucket from consumer-a)")
	}

	d3, _ := l.Allow(context.Background(), "consumer-a")
	if d3.Allowed {
		t.Fatal("consumer-a second request allowed, want denied (limit of 1)")
	}
}

func TestInProcessLimiterResetsAfterWindow(t *testing.T) {
	l := New(nil, 1, 20*time.Millisecond)

	d1, _ := l.Allow(context.Background(), "consumer-a")
	if !d1.Allowed {
		t.Fatal("first request denied, want allowed")
	}

	d2, _ := l.Allow(context.Background(), "consumer-a")
	if d2.Allowed {
		t.Fatal("second request within window allowed, want denied")
	}

	time.Sleep(30 * time.Millisecond)

	d3, _ := l.Allow(context.Background(), "consumer-a")
	if !d3.Allowed {
		t.Fatal("request after window reset denied, want allowed")
	}
}
