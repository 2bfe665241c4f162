package infrastructure

import "testing"

func TestSMSRateLimiterBurst(t *testing.T) {
	rl := NewSMSRateLimiter(0.001, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("+358401234567") {
			t.Fatalf("request %d within burst denied", i+1)
		}
	}
	if rl.Allow("+358401234567") {
		t.Fatal("request beyond burst allowed")
	}
}

func TestSMSRateLimiterIsolatesNumbers(t *testing.T) {
	rl := NewSMSRateLimiter(0.001, 1)

	if !rl.Allow("+358401234567") {
		t.Fatal("first number denied")
	}
	if rl.Allow("+358401234567") {
		t.Fatal("first number should be exhausted")
	}
	if !rl.Allow("+15551234567") {
		t.Fatal("second number should have its own bucket")
	}
}

func TestSMSRateLimiterRefill(t *testing.T) {
	rl := NewSMSRateLimiter(1000, 1)

	if !rl.Allow("+358401234567") {
		t.Fatal("initial request denied")
	}

	// At 1000 tokens/sec the bucket refills almost immediately.
	deadline := 1_000_000
	for i := 0; i < deadline; i++ {
		if rl.Allow("+358401234567") {
			return
		}
	}
	t.Fatal("bucket never refilled")
}
