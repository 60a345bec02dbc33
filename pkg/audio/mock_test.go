package audio

import (
	"errors"
	"testing"
	"time"
)

func TestMockVoiceFinishesAfterDuration(t *testing.T) {
	b := NewMockBackend()
	b.SetTimeScale(50)

	v, err := b.NewVoice(testClip(200*time.Millisecond), b.NewGainStage(1), VoiceSpec{})
	if err != nil {
		t.Fatalf("NewVoice failed: %v", err)
	}
	mv := v.(*MockVoice)
	if got := mv.PlaybackDuration(); got != 200*time.Millisecond {
		t.Errorf("playback duration = %v, want 200ms", got)
	}

	v.Start()
	select {
	case <-v.Done():
	case <-time.After(time.Second):
		t.Fatal("voice never finished")
	}
	if !mv.WasStarted() {
		t.Error("voice should report started")
	}
	if mv.WasStopped() {
		t.Error("naturally finished voice should not report stopped")
	}
}

func TestMockVoiceStop(t *testing.T) {
	b := NewMockBackend()
	v, err := b.NewVoice(testClip(time.Hour), b.NewGainStage(1), VoiceSpec{})
	if err != nil {
		t.Fatalf("NewVoice failed: %v", err)
	}
	v.Start()

	if err := v.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	select {
	case <-v.Done():
	default:
		t.Fatal("Done should be closed after Stop")
	}

	// Stopping an already-ended voice stays silent.
	if err := v.Stop(); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}
}

func TestMockBackendFailureInjection(t *testing.T) {
	b := NewMockBackend()

	forced := &DecodeError{Reason: "forced"}
	b.SetDecodeErr(forced)
	if _, err := b.Decode(EncodeWAV(testClip(10 * time.Millisecond))); !errors.Is(err, forced) {
		t.Errorf("forced decode error not returned: got %v", err)
	}
	b.SetDecodeErr(nil)
	if _, err := b.Decode(EncodeWAV(testClip(10 * time.Millisecond))); err != nil {
		t.Errorf("decode should succeed after reset: %v", err)
	}

	boom := errors.New("no node for you")
	b.SetVoiceErr(boom)
	if _, err := b.NewVoice(testClip(10*time.Millisecond), nil, VoiceSpec{}); !errors.Is(err, boom) {
		t.Errorf("forced voice error not returned: got %v", err)
	}

	b.SetResumeErr(errors.New("resume refused"))
	if err := b.Resume(); err == nil {
		t.Error("forced resume error not returned")
	}
	if b.State() != StateSuspended {
		t.Error("failed resume should leave the backend suspended")
	}
}

func TestMockBackendStateAndCounters(t *testing.T) {
	b := NewMockBackend()
	if b.State() != StateSuspended {
		t.Fatal("mock backend should start suspended")
	}
	if err := b.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if b.State() != StateRunning {
		t.Error("backend should be running after Resume")
	}
	if got := b.ResumeCount(); got != 1 {
		t.Errorf("resume count = %d, want 1", got)
	}

	if _, err := b.Decode(EncodeWAV(testClip(10 * time.Millisecond))); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := b.DecodeCount(); got != 1 {
		t.Errorf("decode count = %d, want 1", got)
	}

	if _, err := b.NewVoice(testClip(10*time.Millisecond), nil, VoiceSpec{}); err != nil {
		t.Fatalf("NewVoice failed: %v", err)
	}
	if got := b.VoiceCount(); got != 1 {
		t.Errorf("voice count = %d, want 1", got)
	}
}

func TestMockBackendRejectsBadClips(t *testing.T) {
	b := NewMockBackend()
	if _, err := b.NewVoice(nil, nil, VoiceSpec{}); !errors.Is(err, ErrNilClip) {
		t.Errorf("nil clip: got %v, want ErrNilClip", err)
	}
	if _, err := b.NewVoice(&Clip{Format: DefaultFormat()}, nil, VoiceSpec{}); !errors.Is(err, ErrEmptyClip) {
		t.Errorf("empty clip: got %v, want ErrEmptyClip", err)
	}
}

func TestMockBackendClose(t *testing.T) {
	b := NewMockBackend()
	v, err := b.NewVoice(testClip(time.Hour), nil, VoiceSpec{})
	if err != nil {
		t.Fatalf("NewVoice failed: %v", err)
	}
	v.Start()

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	select {
	case <-v.Done():
	default:
		t.Error("close should finish outstanding voices")
	}

	if _, err := b.NewVoice(testClip(time.Second), nil, VoiceSpec{}); !errors.Is(err, ErrBackendClosed) {
		t.Errorf("NewVoice after close: got %v, want ErrBackendClosed", err)
	}
	if err := b.Resume(); !errors.Is(err, ErrBackendClosed) {
		t.Errorf("Resume after close: got %v, want ErrBackendClosed", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}
