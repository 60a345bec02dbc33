package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	homedir "github.com/mitchellh/go-homedir"

	"github.com/drawlapp/drawl/pkg/audio"
)

// piperRate is the sample rate assumed when a model ships without a
// config file. Published piper voices default to 22.05kHz mono.
const piperRate = 22050

// Piper synthesizes narration by shelling out to the piper binary with
// an ONNX voice model. One subprocess runs at a time.
type Piper struct {
	binary  string
	model   string
	config  string
	voice   string
	rate    int
	timeout time.Duration

	mu sync.Mutex
}

// NewPiper locates the piper binary and the first voice model under the
// standard model directories. A missing model is not fatal here; it can
// still be set with SetModel and Validate reports it until then.
func NewPiper() (*Piper, error) {
	p := &Piper{rate: piperRate, timeout: defaultTimeout}

	bin, err := findBinary("piper", piperBinaryPaths()...)
	if err != nil {
		return nil, fmt.Errorf("%w (install from https://github.com/rhasspy/piper)", err)
	}
	p.binary = bin

	if err := p.findModel(); err != nil {
		log.Debug("Speech: no default piper model", "err", err)
	}
	return p, nil
}

// NewPiperWithModel locates the piper binary and uses the given model.
func NewPiperWithModel(modelPath string) (*Piper, error) {
	p, err := NewPiper()
	if err != nil {
		return nil, err
	}
	if err := p.SetModel(modelPath); err != nil {
		return nil, err
	}
	return p, nil
}

// SetModel points the engine at an .onnx voice model. A sibling
// model.onnx.json config is picked up when present and read for the
// model's output sample rate.
func (p *Piper) SetModel(path string) error {
	if !strings.HasSuffix(path, ".onnx") {
		return fmt.Errorf("%w: %s is not an .onnx model", ErrNoModel, path)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %v", ErrNoModel, err)
	}
	p.model = path
	p.voice = strings.TrimSuffix(filepath.Base(path), ".onnx")
	p.config = ""
	if cfg := path + ".json"; fileExists(cfg) {
		p.config = cfg
	}
	p.rate = modelSampleRate(p.config)
	return nil
}

// SetTimeout bounds a single synthesis run.
func (p *Piper) SetTimeout(d time.Duration) {
	if d > 0 {
		p.timeout = d
	}
}

// Name identifies the engine in logs and cache keys.
func (p *Piper) Name() string { return "piper" }

// Voice returns the selected model's name, such as en_US-amy-medium.
func (p *Piper) Voice() string {
	if p.voice == "" {
		return "none"
	}
	return p.voice
}

// Validate reports whether a binary and a voice model are configured.
func (p *Piper) Validate() error {
	if p.binary == "" {
		return fmt.Errorf("%w: piper", ErrEngineNotFound)
	}
	if p.model == "" {
		return fmt.Errorf("%w: download one from https://github.com/rhasspy/piper/releases "+
			"into ~/.local/share/piper-voices", ErrNoModel)
	}
	return nil
}

// Synthesize renders text through piper and wraps the raw PCM stream in
// a WAV container at the model's sample rate.
func (p *Piper) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	// One subprocess at a time.
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binary, p.args()...)
	// Stdin must be wired before the process starts.
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 2 * time.Second

	log.Debug("Speech: running piper", "voice", p.voice, "chars", len(text))
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("piper timed out after %s", p.timeout)
		}
		return nil, fmt.Errorf("piper failed: %w%s", err, stderrTail(stderr.String()))
	}

	pcm := stdout.Bytes()
	if len(pcm) == 0 {
		return nil, fmt.Errorf("piper produced no audio%s", stderrTail(stderr.String()))
	}
	if len(pcm)%2 != 0 {
		// Half a sample at the tail; pad rather than drop.
		pcm = append(pcm, 0)
	}

	rate := p.rate
	if rate <= 0 {
		rate = piperRate
	}
	clip := &audio.Clip{
		Format: audio.Format{SampleRate: rate, Channels: 1, BitDepth: 16},
		PCM:    pcm,
	}
	return audio.EncodeWAV(clip), nil
}

// args builds the piper invocation. Raw PCM on stdout, text on stdin.
func (p *Piper) args() []string {
	args := []string{"--model", p.model, "--output-raw"}
	if p.config != "" {
		args = append(args, "--config", p.config)
	}
	return args
}

// findModel walks the standard voice directories for the first .onnx
// model.
func (p *Piper) findModel() error {
	dirs := []string{
		"/usr/share/piper-voices",
		"/usr/local/share/piper-voices",
		"/opt/piper/voices",
	}
	if home, err := homedir.Dir(); err == nil {
		dirs = append([]string{
			filepath.Join(home, ".local", "share", "piper-voices"),
			filepath.Join(home, ".config", "piper", "voices"),
		}, dirs...)
	}

	for _, dir := range dirs {
		var found string
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".onnx") {
				found = path
				return fs.SkipAll
			}
			return nil
		})
		if found != "" {
			return p.SetModel(found)
		}
	}
	return fmt.Errorf("%w under the piper voice directories", ErrNoModel)
}

// piperBinaryPaths lists locations checked when piper is not on PATH.
func piperBinaryPaths() []string {
	paths := []string{
		"/usr/local/bin/piper",
		"/usr/bin/piper",
		"/opt/piper/piper",
	}
	if home, err := homedir.Dir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".local", "bin", "piper"),
			filepath.Join(home, "bin", "piper"),
		)
	}
	return paths
}

// modelSampleRate reads the output sample rate from a model's JSON
// config, falling back to the piper default when absent or unreadable.
func modelSampleRate(configPath string) int {
	if configPath == "" {
		return piperRate
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return piperRate
	}
	var cfg struct {
		Audio struct {
			SampleRate int `json:"sample_rate"`
		} `json:"audio"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil || cfg.Audio.SampleRate <= 0 {
		return piperRate
	}
	return cfg.Audio.SampleRate
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
