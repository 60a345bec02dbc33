package speech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Say shells out to a system speech command, macOS say or espeak, as the
// zero-setup engine when no piper install is present.
type Say struct {
	binary  string
	name    string
	voice   string
	timeout time.Duration

	mu sync.Mutex
}

// NewSay locates a system speech binary, preferring say, then
// espeak-ng, then espeak.
func NewSay() (*Say, error) {
	for _, name := range []string{"say", "espeak-ng", "espeak"} {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		return &Say{binary: path, name: name, timeout: defaultTimeout}, nil
	}
	return nil, fmt.Errorf("%w: say, espeak-ng or espeak", ErrEngineNotFound)
}

// SetVoice selects a voice by name, passed through to the binary.
func (s *Say) SetVoice(name string) { s.voice = name }

// SetTimeout bounds a single synthesis run.
func (s *Say) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Name returns the underlying binary's name.
func (s *Say) Name() string { return s.name }

// Voice returns the selected voice, or "default" when unset.
func (s *Say) Voice() string {
	if s.voice == "" {
		return "default"
	}
	return s.voice
}

// Validate reports whether the binary is still present.
func (s *Say) Validate() error {
	if s.binary == "" {
		return fmt.Errorf("%w: say", ErrEngineNotFound)
	}
	if _, err := os.Stat(s.binary); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineNotFound, err)
	}
	return nil
}

// Synthesize renders text through the system speech command. Both
// flavors write correct WAV headers only when they can seek the output,
// so synthesis goes through a temp file.
func (s *Say) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	// One subprocess at a time.
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := os.CreateTemp("", "drawl-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp clip: %w", err)
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.binary, s.args(outPath)...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 2 * time.Second

	log.Debug("Speech: running system speech", "binary", s.name, "chars", len(text))
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s timed out after %s", s.name, s.timeout)
		}
		return nil, fmt.Errorf("%s failed: %w%s", s.name, err, stderrTail(stderr.String()))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read synthesized clip: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s produced no audio%s", s.name, stderrTail(stderr.String()))
	}
	return data, nil
}

// args builds the invocation for one clip written to outPath. Text
// arrives on stdin for both flavors.
func (s *Say) args(outPath string) []string {
	var args []string
	if strings.HasPrefix(s.name, "espeak") {
		args = []string{"-w", outPath, "--stdin"}
	} else {
		args = []string{"-o", outPath, "--data-format=LEI16@22050", "-f", "-"}
	}
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	return args
}
