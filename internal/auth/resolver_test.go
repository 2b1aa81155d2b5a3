package auth

import (
	"testing"
	"time"
)

func TestResolve_RoundTrip(t *testing.T) {
	r := NewResolver("test-secret", time.Hour)

	token, err := r.Issue("u-1", "rishi@example.com", "rishi")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	p := r.Resolve("Bearer " + token)
	if p == nil {
		t.Fatal("expected a principal, got nil")
	}
	if p.ID != "u-1" || p.Email != "rishi@example.com" || p.Username != "rishi" {
		t.Errorf("unexpected principal: %+v", p)
	}
}

func TestResolve_BearerCaseInsensitive(t *testing.T) {
	r := NewResolver("test-secret", time.Hour)

	token, err := r.Issue("u-1", "", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if p := r.Resolve("bearer " + token); p == nil {
		t.Error("lowercase scheme should resolve")
	}
	if p := r.Resolve("BEARER " + token); p == nil {
		t.Error("uppercase scheme should resolve")
	}
}

func TestResolve_GuestFallthrough(t *testing.T) {
	r := NewResolver("test-secret", time.Hour)

	valid, err := r.Issue("u-1", "", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	other := NewResolver("other-secret", time.Hour)
	foreign, err := other.Issue("u-1", "", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	expired, err := NewResolver("test-secret", -time.Hour).Issue("u-1", "", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{"empty header", ""},
		{"no scheme", valid},
		{"wrong scheme", "Basic " + valid},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong signature", "Bearer " + foreign},
		{"expired", "Bearer " + expired},
	}
	for _, tc := range cases {
		if p := r.Resolve(tc.header); p != nil {
			t.Errorf("%s: expected nil principal, got %+v", tc.name, p)
		}
	}
}
