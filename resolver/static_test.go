package resolver

import (
	"context"
	"errors"
	"testing"
)

func TestStatic_SingleHost(t *testing.T) {
	s, err := NewStatic(StaticConfig{Host: "eureka.test", Port: 8761})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, err := s.Resolve(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "http://eureka.test:8761/eureka/v2/apps/" {
		t.Errorf("unexpected url: %s", url)
	}
}

func TestStatic_SecureHost(t *testing.T) {
	s, err := NewStatic(StaticConfig{Host: "eureka.test", Port: 443, Secure: true, ServicePath: "/eureka/apps/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, _ := s.Resolve(context.Background(), 0)
	if url != "https://eureka.test:443/eureka/apps/" {
		t.Errorf("unexpected url: %s", url)
	}
}

func TestStatic_RotationIsSticky(t *testing.T) {
	s, err := NewStatic(StaticConfig{
		ServiceURLs: map[string][]string{
			DefaultZone: {"http://a:8761/", "http://b:8761/"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if url, _ := s.Resolve(ctx, 0); url != "http://a:8761/" {
		t.Errorf("first call: expected urlA, got %s", url)
	}
	if url, _ := s.Resolve(ctx, 1); url != "http://b:8761/" {
		t.Errorf("retry call: expected urlB, got %s", url)
	}
	// Rotation persists for later non-retry calls.
	if url, _ := s.Resolve(ctx, 0); url != "http://b:8761/" {
		t.Errorf("subsequent call: expected urlB, got %s", url)
	}
}

func TestStatic_SingleEntryNeverRotates(t *testing.T) {
	s, _ := NewStatic(StaticConfig{
		ServiceURLs: map[string][]string{DefaultZone: {"http://only:8761/"}},
	})

	for attempt := 0; attempt < 3; attempt++ {
		if url, _ := s.Resolve(context.Background(), attempt); url != "http://only:8761/" {
			t.Errorf("attempt %d: expected the single url, got %s", attempt, url)
		}
	}
}

func TestStatic_ZoneAffinity(t *testing.T) {
	cfg := StaticConfig{
		ServiceURLs: map[string][]string{
			"us-east-1a": {"http://a:8761/"},
			"us-east-1b": {"http://b:8761/"},
		},
		AvailabilityZones: map[string][]string{
			"us-east-1": {"us-east-1a", "us-east-1b"},
		},
		Region:         "us-east-1",
		PreferSameZone: true,
		InstanceZone:   "us-east-1b",
	}

	s, err := NewStatic(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url, _ := s.Resolve(context.Background(), 0); url != "http://b:8761/" {
		t.Errorf("expected same-zone url first, got %s", url)
	}

	// Affinity disabled: first configured zone's first URL wins.
	cfg.PreferSameZone = false
	s, _ = NewStatic(cfg)
	if url, _ := s.Resolve(context.Background(), 0); url != "http://a:8761/" {
		t.Errorf("expected first zone url, got %s", url)
	}
}

func TestStatic_NoServers(t *testing.T) {
	if _, err := NewStatic(StaticConfig{}); !errors.Is(err, ErrNoServers) {
		t.Errorf("expected ErrNoServers, got %v", err)
	}
	if _, err := NewStatic(StaticConfig{ServiceURLs: map[string][]string{"empty": nil}}); !errors.Is(err, ErrNoServers) {
		t.Errorf("expected ErrNoServers for empty zone lists, got %v", err)
	}
}
