package audio

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

// Kind selects a backend implementation.
type Kind int

const (
	// KindAuto picks the production backend when a device is likely to
	// exist, otherwise the mock.
	KindAuto Kind = iota
	// KindProduction always opens a real output device.
	KindProduction
	// KindMock always uses the deterministic fake.
	KindMock
)

func (k Kind) String() string {
	switch k {
	case KindAuto:
		return "auto"
	case KindProduction:
		return "production"
	case KindMock:
		return "mock"
	default:
		return "unknown"
	}
}

// ParseKind maps a config value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "auto":
		return KindAuto, nil
	case "production", "real":
		return KindProduction, nil
	case "mock", "fake":
		return KindMock, nil
	default:
		return KindAuto, fmt.Errorf("unknown audio backend %q", s)
	}
}

// IsCI reports whether the process looks like it is running in a CI or
// otherwise headless environment where opening an audio device is a bad
// idea.
func IsCI() bool {
	ciVars := []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"TRAVIS",
		"CIRCLECI",
		"BUILDKITE",
		"DRONE",
		"TEAMCITY_VERSION",
	}
	for _, name := range ciVars {
		if val := os.Getenv(name); val != "" && val != "false" {
			log.Debug("Audio: CI environment detected", "variable", name)
			return true
		}
	}
	if os.Getenv("DRAWL_MOCK_AUDIO") == "true" {
		log.Debug("Audio: mock backend requested via environment")
		return true
	}
	return false
}

// New creates a backend of the requested kind. There is no package-level
// instance; the caller owns the returned backend and its lifetime.
func New(kind Kind) (Backend, error) {
	switch kind {
	case KindProduction:
		log.Debug("Audio: creating production backend")
		return newProductionBackend()

	case KindMock:
		log.Debug("Audio: creating mock backend")
		return NewMockBackend(), nil

	case KindAuto:
		if IsCI() {
			log.Info("Audio: using mock backend", "reason", "CI environment")
			return NewMockBackend(), nil
		}
		b, err := newProductionBackend()
		if err != nil {
			log.Warn("Audio: output device unavailable, falling back to mock", "error", err)
			return NewMockBackend(), nil
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unknown audio backend kind: %v", kind)
	}
}
