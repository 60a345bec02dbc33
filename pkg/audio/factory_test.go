package audio

import "testing"

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", KindAuto, false},
		{"auto", KindAuto, false},
		{"production", KindProduction, false},
		{"real", KindProduction, false},
		{"mock", KindMock, false},
		{"fake", KindMock, false},
		{"speaker", KindAuto, true},
	}
	for _, tt := range tests {
		t.Run("in="+tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsCI(t *testing.T) {
	for _, name := range []string{
		"CI", "CONTINUOUS_INTEGRATION", "GITHUB_ACTIONS", "GITLAB_CI",
		"JENKINS_URL", "TRAVIS", "CIRCLECI", "BUILDKITE", "DRONE",
		"TEAMCITY_VERSION", "DRAWL_MOCK_AUDIO",
	} {
		t.Setenv(name, "")
	}

	if IsCI() {
		t.Error("IsCI should be false with all CI variables cleared")
	}

	t.Setenv("CI", "true")
	if !IsCI() {
		t.Error("CI=true should be detected")
	}
	t.Setenv("CI", "false")
	if IsCI() {
		t.Error("CI=false should not count as CI")
	}

	t.Setenv("DRAWL_MOCK_AUDIO", "true")
	if !IsCI() {
		t.Error("DRAWL_MOCK_AUDIO=true should force the mock backend")
	}
}

func TestNewMockKind(t *testing.T) {
	b, err := New(KindMock)
	if err != nil {
		t.Fatalf("New(KindMock) failed: %v", err)
	}
	if _, ok := b.(*MockBackend); !ok {
		t.Errorf("New(KindMock) returned %T, want *MockBackend", b)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestNewAutoUnderCI(t *testing.T) {
	t.Setenv("CI", "true")
	b, err := New(KindAuto)
	if err != nil {
		t.Fatalf("New(KindAuto) failed: %v", err)
	}
	defer b.Close()
	if _, ok := b.(*MockBackend); !ok {
		t.Errorf("auto kind under CI returned %T, want *MockBackend", b)
	}
}

func TestKindString(t *testing.T) {
	if KindAuto.String() != "auto" || KindProduction.String() != "production" || KindMock.String() != "mock" {
		t.Error("Kind.String mismatch")
	}
	if StateSuspended.String() != "suspended" || StateRunning.String() != "running" {
		t.Error("State.String mismatch")
	}
}
