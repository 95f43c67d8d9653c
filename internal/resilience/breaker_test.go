package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
)

var errUpstream = eris.New("upstream down")

// testBreaker returns a breaker with a controllable clock.
func testBreaker(threshold int, cooldown time.Duration) (*Breaker, *time.Time) {
	b := NewBreaker(threshold, cooldown)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func trip(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		if b.Allow() {
			b.Record(errUpstream)
		}
	}
}

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	b, _ := testBreaker(3, time.Minute)

	if !b.Allow() {
		t.Fatal("new breaker should allow calls")
	}
	b.Record(nil)
	if b.State() != Closed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := testBreaker(3, time.Minute)

	trip(b, 3)
	if b.State() != Open {
		t.Fatalf("expected open after 3 failures, got %s", b.State())
	}
	if b.Allow() {
		t.Error("open breaker should reject calls")
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := testBreaker(3, time.Minute)

	trip(b, 2)
	b.Record(nil)
	trip(b, 2)
	if b.State() != Closed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_ProbeAfterCooldown(t *testing.T) {
	b, now := testBreaker(3, time.Minute)

	trip(b, 3)
	*now = now.Add(time.Minute)

	if b.State() != HalfOpen {
		t.Fatalf("expected half-open after cooldown, got %s", b.State())
	}
	if !b.Allow() {
		t.Fatal("half-open breaker should admit one probe")
	}
	if b.Allow() {
		t.Error("second caller should not get a probe slot")
	}

	b.Record(nil)
	if b.State() != Closed {
		t.Errorf("successful probe should close the breaker, got %s", b.State())
	}
	if !b.Allow() {
		t.Error("closed breaker should allow calls")
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b, now := testBreaker(3, time.Minute)

	trip(b, 3)
	*now = now.Add(time.Minute)

	if !b.Allow() {
		t.Fatal("expected probe slot")
	}
	b.Record(errUpstream)

	if b.State() != Open {
		t.Fatalf("failed probe should reopen, got %s", b.State())
	}
	if b.Allow() {
		t.Error("reopened breaker should reject calls")
	}

	*now = now.Add(time.Minute)
	if !b.Allow() {
		t.Error("next cooldown should admit another probe")
	}
}

func TestBreaker_CancellationNeverCounts(t *testing.T) {
	b, _ := testBreaker(3, time.Minute)

	for i := 0; i < 10; i++ {
		if !b.Allow() {
			t.Fatal("breaker should stay closed")
		}
		b.Record(eris.Wrap(context.Canceled, "call aborted"))
	}
	if b.State() != Closed {
		t.Errorf("cancellations should not trip the breaker, got %s", b.State())
	}
}

func TestBreaker_Defaults(t *testing.T) {
	b := NewBreaker(0, 0)

	trip(b, 4)
	if b.State() != Closed {
		t.Fatalf("default threshold is 5, got %s after 4 failures", b.State())
	}
	trip(b, 1)
	if b.State() != Open {
		t.Errorf("expected open after 5 failures, got %s", b.State())
	}
}
