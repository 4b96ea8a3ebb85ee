package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tilefeed/internal/feed"
	"tilefeed/internal/watch"
)

var (
	watchDebounce time.Duration
	watchInitial  bool
)

// statsInterval paces the activity snapshots a long-running mirror writes
// to the log.
const statsInterval = 30 * time.Second

// watchCmd mirrors the staging directory continuously instead of pacing a
// fixed set once.
var watchCmd = &cobra.Command{
	Use:   "watch <source-dir> <dest-dir>",
	Short: "Continuously mirror new tiles into the serving directory",
	Long: `Watches the staging directory and copies each tile (plus its sidecar
metadata) into the serving directory once it has settled for the
debounce window. Runs until interrupted.

With --initial, tiles already staged are fed first, without pacing.`,
	Args: cobra.ExactArgs(2),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Settle window before a changed tile is copied (overrides config)")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", false, "Feed tiles already staged before watching")
}

// runWatch mirrors the staging directory until SIGINT or SIGTERM.
func runWatch(cmd *cobra.Command, args []string) error {
	source, dest := args[0], args[1]

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	if watchInitial {
		feeder := feed.New(feed.Options{Out: cmd.OutOrStdout(), Logger: logger})
		if _, err := feeder.Run(ctx, source, dest, 0); err != nil {
			return err
		}
	}

	debounce := cfg.WatchDebounce()
	if cmd.Flags().Changed("debounce") {
		debounce = watchDebounce
	}

	m, err := watch.New(source, dest, watch.Options{
		Debounce: debounce,
		Out:      cmd.OutOrStdout(),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if err := m.Start(ctx); err != nil {
		return err
	}

	go logMirrorStats(ctx, m)

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", source)
	<-ctx.Done()
	m.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Mirrored %d tiles.\n", m.Stats().Tiles)
	return nil
}

// logMirrorStats emits periodic activity snapshots so long-running mirrors
// stay observable in the logs.
func logMirrorStats(ctx context.Context, m *watch.Mirror) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := m.Stats()
			logger.Info("mirror activity",
				zap.Int("tiles", s.Tiles),
				zap.Int("sidecars", s.Sidecars),
				zap.Int("events", s.Events),
				zap.Int("errors", s.Errors),
				zap.String("last_tile", s.LastTile))
		}
	}
}
