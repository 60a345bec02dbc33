// Package main provides the entry point for the drawl CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	te "github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/drawlapp/drawl/internal/script"
	"github.com/drawlapp/drawl/internal/speech"
	"github.com/drawlapp/drawl/pkg/narrate"
	"github.com/drawlapp/drawl/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	tuiMode    bool
	styleName  string
	width      uint
	engineName string
	voiceName  string
	strokeWAV  string
	noAmbience bool
	startMuted bool
	mockAudio  bool
	readCode   bool
	rateLimit  int
	volume     float64
	speechRate float64
	debug      bool
	logFile    string

	rootCmd = &cobra.Command{
		Use:   "drawl [SOURCE|-]",
		Short: "Narrate markdown on the CLI, pencil sounds included",
		Long: paragraph(
			fmt.Sprintf("\nRender a markdown document and %s, with an ambient pencil bed underneath that steps aside whenever the voice speaks.", keyword("read it aloud")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// source provides a readable narration script.
type source struct {
	reader io.ReadCloser
	path   string
}

// sourceFromArg opens a readable source for an argument: a file path,
// or - for stdin.
func sourceFromArg(arg string) (*source, error) {
	if arg == "-" {
		return &source{reader: os.Stdin}, nil
	}

	path := expandPath(arg)
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &source{r, abs}, nil
}

// validateStyle checks if the style is a default style, if not, checks
// that the custom style exists.
func validateStyle(style string) error {
	if style != styles.AutoStyle && styles.DefaultStyles[style] == nil {
		style = expandPath(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

func validateOptions(cmd *cobra.Command) error {
	// grab config values from Viper
	styleName = viper.GetString("style")
	width = viper.GetUint("width")
	tuiMode = viper.GetBool("tui")
	engineName = viper.GetString("engine")
	voiceName = viper.GetString("voice")
	volume = viper.GetFloat64("volume")
	speechRate = viper.GetFloat64("rate")
	rateLimit = viper.GetInt("rate-limit")
	strokeWAV = viper.GetString("ambience.stroke")
	noAmbience = viper.GetBool("no-ambience")
	startMuted = viper.GetBool("muted")
	mockAudio = viper.GetBool("mock-audio")
	readCode = viper.GetBool("read-code")

	if debug {
		log.SetLevel(log.DebugLevel)
	}
	if logFile != "" {
		if _, err := openLogFile(logFile); err != nil {
			return err
		}
	}

	if err := validateStyle(styleName); err != nil {
		return err
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	// Use the no-TTY style when stdout is not a terminal and no style
	// was passed by arg.
	if !isTerminal && !cmd.Flags().Changed("style") {
		styleName = "notty"
	}

	// Detect terminal width
	if !cmd.Flags().Changed("width") {
		if isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}
			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(cmd *cobra.Command, args []string) error {
	// if stdin is a pipe then use stdin for input. note that you can
	// also explicitly use a - to read from stdin.
	if yes, err := stdinIsPipe(); err != nil {
		return err
	} else if yes {
		src := &source{reader: os.Stdin}
		defer src.reader.Close() //nolint:errcheck
		return executeSource(cmd, src, os.Stdout)
	}

	// Without a document the console becomes the script: lines are
	// typed in and narrated as they come.
	if len(args) == 0 {
		return runTUI(nil)
	}

	src, err := sourceFromArg(args[0])
	if err != nil {
		return err
	}
	defer src.reader.Close() //nolint:errcheck
	return executeSource(cmd, src, os.Stdout)
}

func executeSource(cmd *cobra.Command, src *source, w io.Writer) error {
	b, err := io.ReadAll(src.reader)
	if err != nil {
		return fmt.Errorf("unable to read from reader: %w", err)
	}

	parser := script.NewParser(script.WithCodeBlocks(readCode))
	var lines []script.Line
	if isMarkdown(src.path) {
		lines = parser.Parse(b)
	} else {
		lines = parser.ParseText(string(b))
	}
	if len(lines) == 0 {
		return errors.New("nothing to narrate")
	}
	log.Debug("Parsed narration script", "path", src.path, "lines", len(lines))

	if tuiMode || cmd.Flags().Changed("tui") {
		return runTUI(lineTexts(lines))
	}

	if isMarkdown(src.path) {
		out, err := renderDocument(b)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprint(w, out); err != nil {
			return fmt.Errorf("unable to write to writer: %w", err)
		}
	}

	return narrateLines(lines)
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case "", ".md", ".mdown", ".mkdn", ".markdown":
		return true
	default:
		return false
	}
}

func lineTexts(lines []script.Line) []string {
	texts := make([]string, len(lines))
	for i, ln := range lines {
		texts[i] = ln.Text
	}
	return texts
}

func renderDocument(b []byte) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamourStyle(styleName),
		glamour.WithWordWrap(int(width)), //nolint:gosec
	)
	if err != nil {
		return "", fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := r.Render(string(b))
	if err != nil {
		return "", fmt.Errorf("unable to render markdown: %w", err)
	}
	return out, nil
}

func glamourStyle(name string) glamour.TermRendererOption {
	if name == styles.AutoStyle {
		if te.HasDarkBackground() {
			return glamour.WithStandardStyle(styles.DarkStyle)
		}
		return glamour.WithStandardStyle(styles.LightStyle)
	}
	if styles.DefaultStyles[name] != nil {
		return glamour.WithStandardStyle(name)
	}
	return glamour.WithStylesFromJSONFile(expandPath(name))
}

// narrateLines speaks a parsed script front to back. All lines are
// submitted up front so fetches overlap playback; interrupt clears the
// queue and returns cleanly.
func narrateLines(lines []script.Line) error {
	st, err := buildStack(true)
	if err != nil {
		return err
	}
	defer st.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handles := make([]*narrate.Handle, 0, len(lines))
	for _, ln := range lines {
		handles = append(handles, st.queue.Submit(speech.Fetch(st.engine, ln.Text)))
	}
	return speakAll(ctx, st.queue, handles)
}

// speakAll waits for submitted entries front to back. On interrupt the
// queue is cleared and the remaining entries abandoned.
func speakAll(ctx context.Context, q *narrate.Queue, handles []*narrate.Handle) error {
	for i, h := range handles {
		select {
		case <-h.Finished():
		case <-ctx.Done():
			log.Info("Narration interrupted", "spoken", i, "of", len(handles))
			q.Clear()
			return nil
		}
		if out, ok := h.Outcome(); ok && out.Kind == narrate.OutcomeSkipped && out.Reason != nil {
			log.Warn("Line skipped", "index", i, "reason", out.Reason)
		}
	}
	return nil
}

func runTUI(lines []string) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	st, err := buildStack(true)
	if err != nil {
		return err
	}
	defer st.close()

	// Tea owns the terminal now; stderr logging would tear the screen.
	if logFile == "" && os.Getenv("DRAWL_LOGFILE") == "" {
		log.SetOutput(io.Discard)
	}

	if _, err := ui.NewProgram(cfg, st.queue, st.amb, st.engine, lines).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

func setupLog() (func() error, error) {
	if file := os.Getenv("DRAWL_LOGFILE"); file != "" {
		return openLogFile(file)
	}
	return func() error { return nil }, nil
}

// openLogFile moves logging to a file and raises the level; the file
// stays open for the life of the process.
func openLogFile(path string) (func() error, error) {
	f, err := os.OpenFile(expandPath(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	return f.Close, nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().BoolVarP(&tuiMode, "tui", "t", false, "narrate in the interactive console")
	rootCmd.Flags().StringVarP(&styleName, "style", "s", styles.AutoStyle, "style name or JSON path")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to disable)")
	rootCmd.Flags().StringVarP(&engineName, "engine", "e", "auto", "speech engine (auto, piper, say)")
	rootCmd.Flags().StringVar(&voiceName, "voice", "", "voice for the engine (piper model path or say voice name)")
	rootCmd.Flags().Float64Var(&volume, "volume", 1.0, "narration volume, 0 to 1")
	rootCmd.Flags().Float64Var(&speechRate, "rate", 1.0, "narration playback rate")
	rootCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "max engine calls per minute (0 for unlimited)")
	rootCmd.Flags().BoolVar(&noAmbience, "no-ambience", false, "disable the ambient pencil bed")
	rootCmd.Flags().StringVar(&strokeWAV, "stroke-wav", "", "WAV file to carve ambient strokes from")
	rootCmd.Flags().BoolVar(&startMuted, "muted", false, "start with narration muted")
	rootCmd.Flags().BoolVar(&readCode, "read-code", false, "narrate code blocks too")
	rootCmd.Flags().BoolVar(&mockAudio, "mock-audio", false, "use the silent mock audio backend")
	_ = rootCmd.Flags().MarkHidden("mock-audio")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a file")

	// Config bindings
	_ = viper.BindPFlag("tui", rootCmd.Flags().Lookup("tui"))
	_ = viper.BindPFlag("style", rootCmd.Flags().Lookup("style"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("engine", rootCmd.Flags().Lookup("engine"))
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("volume", rootCmd.Flags().Lookup("volume"))
	_ = viper.BindPFlag("rate", rootCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("rate-limit", rootCmd.Flags().Lookup("rate-limit"))
	_ = viper.BindPFlag("no-ambience", rootCmd.Flags().Lookup("no-ambience"))
	_ = viper.BindPFlag("ambience.stroke", rootCmd.Flags().Lookup("stroke-wav"))
	_ = viper.BindPFlag("muted", rootCmd.Flags().Lookup("muted"))
	_ = viper.BindPFlag("read-code", rootCmd.Flags().Lookup("read-code"))
	_ = viper.BindPFlag("mock-audio", rootCmd.Flags().Lookup("mock-audio"))

	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("width", 0)
	viper.SetDefault("engine", "auto")
	viper.SetDefault("voice", "")
	viper.SetDefault("volume", 1.0)
	viper.SetDefault("rate", 1.0)
	viper.SetDefault("rate-limit", 0)

	// Ambience defaults
	viper.SetDefault("ambience.min_interval", "300ms")
	viper.SetDefault("ambience.max_interval", "900ms")
	viper.SetDefault("ambience.volume", 0.5)
	viper.SetDefault("ambience.ducked_volume", 0.15)
	viper.SetDefault("ambience.min_rate", 0.85)
	viper.SetDefault("ambience.max_rate", 1.2)
	viper.SetDefault("ambience.stroke", "")

	// Clip cache defaults
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.disk_mb", 200)
	viper.SetDefault("cache.memory_mb", 16)
	viper.SetDefault("cache.compression", 3)

	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(configCmd, manCmd, cacheCmd, playCmd, watchCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "drawl")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "drawl")}, dirs...)
	}

	if c := os.Getenv("DRAWL_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("drawl")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("drawl")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "drawl.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
