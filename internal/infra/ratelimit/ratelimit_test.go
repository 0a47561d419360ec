package ratelimit

import (
	"testing"
	"time"
)

func TestPerKey_Allow(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Error("third event within the same instant should be refused")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("other keys have their own bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("10.0.0.1") {
		t.Error("tokens should refill after one second")
	}
}

func TestPerKey_EvictsIdle(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(10, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}

	now = now.Add(2 * time.Minute)
	l.Allow("10.0.0.3")
	if l.Len() != 1 {
		t.Errorf("Len() = %d after sweep, want 1", l.Len())
	}
}

func TestNew_DefaultTTL(t *testing.T) {
	if l := New(1, 0); l.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", l.ttl, DefaultTTL)
	}
}
