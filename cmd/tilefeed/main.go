package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tilefeed/internal/config"
	"tilefeed/internal/feed"
)

// version is injected at release build time; effectiveVersion falls back to
// module build info for plain go install builds.
var version = ""

var (
	// Global flags
	cfgPath   string
	verbose   bool
	logFormat string

	// Root (feed) flags
	delaySeconds float64

	// Loaded by PersistentPreRunE, shared by every command
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd is the feed itself: deliver staged tiles into a serving
// directory at a fixed pace.
var rootCmd = &cobra.Command{
	Use:   "tilefeed <source-dir> <dest-dir>",
	Short: "Feed pre-generated map tiles into a serving directory at a fixed pace",
	Long: `tilefeed emulates a live tile generator by copying staged tiles into a
serving directory one at a time, in row/column order, pausing between
copies.

Tiles are files named tile_<row>_<col>.tif. When a sidecar named
tile_<row>_<col>.json sits next to a tile it is copied too and its
bounds are echoed in the progress output.

Progress goes to stdout; diagnostics go to stderr.`,
	Args: cobra.ExactArgs(2),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		logger, err = buildLogger(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runFeed,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log encoding: console or json (overrides config)")

	rootCmd.Flags().Float64VarP(&delaySeconds, "delay", "d", 2.0, "Delay in seconds between tile copies")

	rootCmd.Version = effectiveVersion()

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(initCmd)
}

// runFeed executes the one-shot delivery pass.
func runFeed(cmd *cobra.Command, args []string) error {
	source, dest := args[0], args[1]

	delay := cfg.DelayDuration()
	if cmd.Flags().Changed("delay") {
		delay = time.Duration(delaySeconds * float64(time.Second))
	}

	feeder := feed.New(feed.Options{
		Out:    cmd.OutOrStdout(),
		Logger: logger,
	})
	_, err := feeder.Run(cmd.Context(), source, dest, delay)
	return err
}

// buildLogger assembles the stderr diagnostics logger. The stdout progress
// stream never travels through zap.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()

	format := cfg.Logging.Format
	if logFormat != "" {
		format = logFormat
	}
	switch format {
	case "console", "":
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	case "json":
		zc.Encoding = "json"
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if cfg.Logging.File != "" {
		zc.OutputPaths = []string{cfg.Logging.File}
	}

	return zc.Build()
}

// effectiveVersion resolves the release version from module build info when
// none was injected via ldflags.
func effectiveVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "devel"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
