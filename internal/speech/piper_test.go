package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/drawlapp/drawl/pkg/audio"
)

// writeStub drops an executable shell script standing in for the piper
// binary.
func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "piper")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func stubPiper(bin string) *Piper {
	return &Piper{
		binary:  bin,
		model:   "voice.onnx",
		voice:   "voice",
		rate:    8000,
		timeout: 5 * time.Second,
	}
}

func TestPiperArgs(t *testing.T) {
	p := &Piper{model: "/m/amy.onnx"}
	want := []string{"--model", "/m/amy.onnx", "--output-raw"}
	if got := p.args(); !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v, want %v", got, want)
	}

	p.config = "/m/amy.onnx.json"
	want = append(want, "--config", "/m/amy.onnx.json")
	if got := p.args(); !reflect.DeepEqual(got, want) {
		t.Fatalf("args with config = %v, want %v", got, want)
	}
}

func TestPiperSetModel(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "en_US-amy-medium.onnx")
	config := model + ".json"
	if err := os.WriteFile(model, []byte("onnx"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(config, []byte(`{"audio":{"sample_rate":16000}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	p := &Piper{}
	if err := p.SetModel(model); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	if p.Voice() != "en_US-amy-medium" {
		t.Fatalf("voice = %q", p.Voice())
	}
	if p.config != config {
		t.Fatalf("config = %q, want %q", p.config, config)
	}
	if p.rate != 16000 {
		t.Fatalf("rate = %d, want 16000", p.rate)
	}

	// A model without a sibling config falls back to the piper default.
	bare := filepath.Join(dir, "bare.onnx")
	if err := os.WriteFile(bare, []byte("onnx"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := p.SetModel(bare); err != nil {
		t.Fatalf("SetModel bare: %v", err)
	}
	if p.config != "" || p.rate != piperRate {
		t.Fatalf("bare model config/rate = %q/%d", p.config, p.rate)
	}
}

func TestPiperSetModelRejectsBadPaths(t *testing.T) {
	p := &Piper{}
	if err := p.SetModel("/tmp/model.bin"); !errors.Is(err, ErrNoModel) {
		t.Fatalf("non-onnx err = %v", err)
	}
	if err := p.SetModel(filepath.Join(t.TempDir(), "ghost.onnx")); !errors.Is(err, ErrNoModel) {
		t.Fatalf("missing file err = %v", err)
	}
}

func TestModelSampleRateFallsBack(t *testing.T) {
	if got := modelSampleRate(""); got != piperRate {
		t.Fatalf("no config: %d", got)
	}
	if got := modelSampleRate(filepath.Join(t.TempDir(), "ghost.json")); got != piperRate {
		t.Fatalf("missing config: %d", got)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := modelSampleRate(bad); got != piperRate {
		t.Fatalf("corrupt config: %d", got)
	}
}

func TestPiperValidate(t *testing.T) {
	p := &Piper{}
	if err := p.Validate(); !errors.Is(err, ErrEngineNotFound) {
		t.Fatalf("no binary err = %v", err)
	}
	p.binary = "/usr/bin/piper"
	if err := p.Validate(); !errors.Is(err, ErrNoModel) {
		t.Fatalf("no model err = %v", err)
	}
	p.model = "/m/amy.onnx"
	if err := p.Validate(); err != nil {
		t.Fatalf("validate = %v", err)
	}
}

func TestPiperBlankTextSkipsSubprocess(t *testing.T) {
	data, err := (&Piper{}).Synthesize(context.Background(), " \n\t")
	if data != nil || err != nil {
		t.Fatalf("blank text = %q, %v", data, err)
	}
}

func TestPiperSynthesizeWrapsPCM(t *testing.T) {
	p := stubPiper(writeStub(t, "cat > /dev/null\nprintf 'ABCD'"))

	wav, err := p.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	clip, err := audio.DecodeWAV(wav)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(clip.PCM) != "ABCD" {
		t.Fatalf("pcm = %q", clip.PCM)
	}
	if clip.Format.SampleRate != 8000 || clip.Format.Channels != 1 {
		t.Fatalf("format = %+v", clip.Format)
	}
}

func TestPiperPadsOddPCM(t *testing.T) {
	p := stubPiper(writeStub(t, "cat > /dev/null\nprintf 'ABC'"))

	wav, err := p.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	clip, err := audio.DecodeWAV(wav)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(clip.PCM) != "ABC\x00" {
		t.Fatalf("pcm = %q", clip.PCM)
	}
}

func TestPiperSurfacesStderr(t *testing.T) {
	p := stubPiper(writeStub(t, "cat > /dev/null\necho 'model load failed' >&2\nexit 1"))

	_, err := p.Synthesize(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "model load failed") {
		t.Fatalf("err = %v, want stderr tail included", err)
	}
}

func TestPiperEmptyOutputFails(t *testing.T) {
	p := stubPiper(writeStub(t, "cat > /dev/null"))

	_, err := p.Synthesize(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "no audio") {
		t.Fatalf("err = %v", err)
	}
}

func TestPiperTimesOut(t *testing.T) {
	p := stubPiper(writeStub(t, "while :; do :; done"))
	p.timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := p.Synthesize(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("err = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("timeout took %s", elapsed)
	}
}
