package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/drawlapp/drawl/internal/script"
	"github.com/drawlapp/drawl/internal/speech"
)

// Editors fire several writes per save.
const debounceWindow = 200 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch PATH",
	Short: "Narrate a file every time it changes",
	Long:  paragraph(fmt.Sprintf("\n%s a markdown file, or a whole directory of them, and narrate every change as it lands. An edit clears whatever is still queued.", keyword("Watch"))),
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func runWatch(_ *cobra.Command, args []string) error {
	target := expandPath(args[0])
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("unable to stat watch target: %w", err)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("unable to get absolute path: %w", err)
	}

	// fsnotify wants the directory; single-file watches miss renames.
	dir := abs
	var only string
	if !info.IsDir() {
		dir = filepath.Dir(abs)
		only = abs
	}

	st, err := buildStack(true)
	if err != nil {
		return err
	}
	defer st.close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create fsnotify watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("unable to add dir to fsnotify watcher: %w", err)
	}
	log.Info("fsnotify watching dir", "dir", dir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lastSeen := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			st.queue.Clear()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if only != "" && event.Name != only {
				continue
			}
			if only == "" && !narratable(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if time.Since(lastSeen[event.Name]) < debounceWindow {
				continue
			}
			lastSeen[event.Name] = time.Now()

			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			narrateChanged(st, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}

// narrateChanged reparses a changed document and queues it, dropping
// any narration still pending from the previous version.
func narrateChanged(st *stack, path string) {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Error("Watch: could not read changed file", "file", path, "error", err)
		return
	}

	parser := script.NewParser(script.WithCodeBlocks(readCode))
	var lines []script.Line
	if isMarkdown(path) {
		lines = parser.Parse(b)
	} else {
		lines = parser.ParseText(string(b))
	}
	if len(lines) == 0 {
		log.Debug("Watch: nothing to narrate", "file", path)
		return
	}

	st.queue.Clear()
	for _, ln := range lines {
		st.queue.Submit(speech.Fetch(st.engine, ln.Text))
	}
	log.Info("Watch: narrating", "file", path, "lines", len(lines))
}

// narratable filters directory events down to documents drawl reads.
func narratable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".mdown", ".mkdn", ".markdown", ".txt":
		return true
	default:
		return false
	}
}
