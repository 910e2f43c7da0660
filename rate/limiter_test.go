package rate

import (
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	interval := 10 * time.Millisecond
	lim := NewLimiter(1, 100, Every(interval))

	tooShort := time.Millisecond

	steps := []struct {
		allow bool
		wait  time.Duration
	}{
		{true, tooShort},
		{false, interval},
		{true, interval},
		{true, tooShort},
		{false, tooShort},
		{false, tooShort},
	}

	for i, step := range steps {
		if got := lim.Check("client-a"); got != step.allow {
			t.Fatalf("step %d: got %v, want %v", i, got, step.allow)
		}
		time.Sleep(step.wait)
	}
}

func TestLimiterBurst(t *testing.T) {
	interval := 100 * time.Millisecond
	lim := NewLimiter(10, 100, Every(interval))

	// The full burst is available immediately.
	for i := 0; i < 10; i++ {
		if !lim.Check("client-b") {
			t.Fatalf("burst request %d denied", i)
		}
	}

	// The bucket is drained now and refills one token per interval.
	if lim.Check("client-b") {
		t.Fatal("request beyond the burst allowed")
	}
	time.Sleep(interval + 10*time.Millisecond)
	if !lim.Check("client-b") {
		t.Fatal("request after a refill denied")
	}
}

func TestLimiterIsolatesClients(t *testing.T) {
	lim := NewLimiter(1, 100, Every(time.Minute))

	if !lim.Check("client-c") {
		t.Fatal("first request of client-c denied")
	}
	if lim.Check("client-c") {
		t.Fatal("second request of client-c allowed")
	}
	if !lim.Check("client-d") {
		t.Fatal("client-d must own a fresh bucket")
	}
}
