package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Close()

	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d denied inside the budget", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("request over budget allowed")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()

	if !rl.allow("10.0.0.1") {
		t.Fatal("first client denied")
	}
	if !rl.allow("10.0.0.2") {
		t.Fatal("second client throttled by the first client's bucket")
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("first client exceeded its own budget")
	}
}

func TestRateLimiterRefillsAfterInterval(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)
	defer rl.Close()

	if !rl.allow("10.0.0.1") {
		t.Fatal("first request denied")
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("second request inside the interval allowed")
	}

	time.Sleep(15 * time.Millisecond)
	if !rl.allow("10.0.0.1") {
		t.Fatal("bucket not refilled after the interval")
	}
}
