package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# style name or JSON path (default "auto")
style: "auto"
# word-wrap at width
width: 0
# speech engine: auto, piper, or say
engine: "auto"
# voice for the engine (piper model path or say voice name)
# voice: "~/voices/en_US-lessac-medium.onnx"
# narration volume (0.0 to 1.0)
volume: 1.0
# narration playback rate
rate: 1.0
# max engine calls per minute (0 for unlimited)
rate-limit: 0

# Ambient pencil bed
ambience:
  # pause between strokes
  min_interval: "300ms"
  max_interval: "900ms"
  # bed level while narration is silent
  volume: 0.5
  # bed level while narration speaks
  ducked_volume: 0.15
  # per-stroke playback-rate jitter
  min_rate: 0.85
  max_rate: 1.2
  # WAV file to carve strokes from; empty for the synthesized stroke
  stroke: ""

# Synthesized clip cache
cache:
  # cache directory; empty for the user cache dir
  dir: ""
  disk_mb: 200
  memory_mb: 16
  # zstd level for clips on disk (0 disables compression)
  compression: 3
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the drawl config file",
	Long:    paragraph(fmt.Sprintf("\n%s the drawl config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("drawl config\ndrawl config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Drawl", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
