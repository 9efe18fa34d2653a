package security

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestAdminLoginFailuresTrigger(t *testing.T) {
	redis := miniredis.RunT(t)
	alerter := NewAuditAlerter(redis.Addr(), "", "test:alerts")
	if alerter == nil {
		t.Fatalf("expected alerter")
	}
	defer alerter.Close()
	var last AlertResult
	for i := 0; i < 5; i++ {
		result, err := alerter.Observe(context.Background(), EventAdminLogin, OutcomeFail, "203.0.113.7")
		if err != nil {
			t.Fatalf("observe: %v", err)
		}
		if i < 4 && result.Triggered {
			t.Fatalf("triggered early at %d", i+1)
		}
		last = result
	}
	if !last.Triggered || last.Count != 5 || last.Window != 5*time.Minute {
		t.Fatalf("unexpected result: %+v", last)
	}

	// another client has its own counter
	other, err := alerter.Observe(context.Background(), EventAdminLogin, OutcomeFail, "198.51.100.1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if other.Count != 1 {
		t.Fatalf("expected separate counter, got %d", other.Count)
	}
}

func TestCounterResetsWithWindow(t *testing.T) {
	redis := miniredis.RunT(t)
	alerter := NewAuditAlerter(redis.Addr(), "", "test:alerts")
	defer alerter.Close()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	alerter.now = func() time.Time { return now }
	for i := 0; i < 3; i++ {
		if _, err := alerter.Observe(context.Background(), EventCheckout, OutcomeFail, "203.0.113.7"); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}
	now = now.Add(10 * time.Minute)
	result, err := alerter.Observe(context.Background(), EventCheckout, OutcomeFail, "203.0.113.7")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("expected new window, got count %d", result.Count)
	}
}

func TestObserveIgnoresUnknownRules(t *testing.T) {
	redis := miniredis.RunT(t)
	alerter := NewAuditAlerter(redis.Addr(), "", "test:alerts")
	defer alerter.Close()
	result, err := alerter.Observe(context.Background(), EventAdminLogin, "success", "127.0.0.1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if result.Triggered || result.Count != 0 {
		t.Fatalf("unexpected result for unknown rule: %+v", result)
	}
}

func TestNilAlerterIsInert(t *testing.T) {
	var alerter *AuditAlerter
	if NewAuditAlerter("", "", "") != nil {
		t.Fatalf("expected nil alerter without redis addr")
	}
	result, err := alerter.Observe(context.Background(), EventAdminLogin, OutcomeFail, "127.0.0.1")
	if err != nil || result.Triggered {
		t.Fatalf("nil alerter should observe nothing: %+v %v", result, err)
	}
	if err := alerter.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
