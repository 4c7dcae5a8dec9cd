package version

import (
	"strings"
	"testing"
)

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	if !strings.HasPrefix(ua, "eureka-go/") {
		t.Errorf("expected eureka-go/ prefix, got %q", ua)
	}
	if !strings.Contains(ua, String()) {
		t.Errorf("expected version %q in %q", String(), ua)
	}
}

func TestString_LdflagsOverride(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "1.2.3"
	if String() != "1.2.3" {
		t.Errorf("expected ldflags value to win, got %q", String())
	}
}
