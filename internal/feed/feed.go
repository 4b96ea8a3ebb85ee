// Package feed implements the paced delivery pass: an ordered, one-at-a-time
// copy of staged tiles (plus their sidecar metadata) into the serving
// directory, with a fixed pause between tiles to emulate a live generator.
package feed

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tilefeed/internal/tile"
)

// separator is the banner rule downstream tooling greps for. Keep in sync
// with anything parsing the progress stream.
var separator = strings.Repeat("-", 50)

// Options configures a Feeder. Zero-value fields fall back to defaults:
// stdout for progress, a nop logger, and a real wall-clock pause.
type Options struct {
	// Out receives the progress stream. It is the consumer-facing contract
	// of the feed and stays plain text regardless of logging settings.
	Out io.Writer

	// Logger receives structured diagnostics, never progress.
	Logger *zap.Logger

	// Sleep implements the pause between consecutive tiles. Tests inject a
	// recorder here; the default honors context cancellation.
	Sleep func(ctx context.Context, d time.Duration)
}

// Feeder drives one delivery pass. Construct with New so the output sink,
// pacing clock and run ID are always set.
type Feeder struct {
	out    io.Writer
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration)
	runID  string
}

// Summary reports what a completed pass delivered.
type Summary struct {
	Total    int           // tiles matched in the staging directory
	Sidecars int           // sidecar metadata files copied alongside
	Elapsed  time.Duration // wall-clock time for the whole pass
}

func New(opts Options) *Feeder {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Feeder{
		out:    opts.Out,
		logger: opts.Logger,
		sleep:  opts.Sleep,
		runID:  uuid.NewString(),
	}
}

// Run copies every staged tile from source into dest in row/column order,
// pausing delay between consecutive tiles (never after the last). It blocks
// until the pass completes or fails; the first error aborts the pass and is
// returned, leaving tiles already delivered in place.
//
// Cancellation is honored between operations only. A file copy that has
// started always runs to completion so the serving directory never holds a
// torn tile.
func (f *Feeder) Run(ctx context.Context, source, dest string, delay time.Duration) (Summary, error) {
	start := time.Now()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return Summary{}, fmt.Errorf("failed to create destination directory: %w", err)
	}

	tiles, err := tile.List(source)
	if err != nil {
		return Summary{}, err
	}
	total := len(tiles)

	f.logger.Info("feed starting",
		zap.String("run_id", f.runID),
		zap.String("source", source),
		zap.String("dest", dest),
		zap.Int("tiles", total),
		zap.Duration("delay", delay))

	fmt.Fprintf(f.out, "Source: %s\n", source)
	fmt.Fprintf(f.out, "Destination: %s\n", dest)
	fmt.Fprintf(f.out, "Found %d tiles\n", total)
	fmt.Fprintln(f.out, separator)

	sum := Summary{Total: total}
	for i, t := range tiles {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		withMeta, err := f.deliver(source, dest, t, i+1, total)
		if err != nil {
			f.logger.Error("feed aborted",
				zap.String("run_id", f.runID),
				zap.String("tile", t.Name),
				zap.Error(err))
			return sum, err
		}
		if withMeta {
			sum.Sidecars++
		}
		if i+1 < total {
			f.sleep(ctx, delay)
		}
	}

	fmt.Fprintln(f.out, separator)
	fmt.Fprintf(f.out, "Done! Copied %d tiles.\n", total)

	sum.Elapsed = time.Since(start)
	f.logger.Info("feed complete",
		zap.String("run_id", f.runID),
		zap.Int("tiles", total),
		zap.Int("sidecars", sum.Sidecars),
		zap.Duration("elapsed", sum.Elapsed))
	return sum, nil
}

// deliver copies one tile and, when present, its sidecar. The progress line
// is printed only after every step for that tile has succeeded.
func (f *Feeder) deliver(source, dest string, t tile.Tile, i, total int) (bool, error) {
	if err := CopyFile(filepath.Join(source, t.Name), filepath.Join(dest, t.Name)); err != nil {
		return false, fmt.Errorf("failed to copy tile %s: %w", t.Name, err)
	}

	sidecar := t.SidecarName()
	srcMeta := filepath.Join(source, sidecar)
	if _, err := os.Stat(srcMeta); err != nil {
		fmt.Fprintf(f.out, "[%d/%d] Copied: %s (no metadata)\n", i, total, t.Name)
		f.logger.Debug("tile delivered",
			zap.String("run_id", f.runID),
			zap.String("tile", t.Name),
			zap.Bool("sidecar", false))
		return false, nil
	}

	if err := CopyFile(srcMeta, filepath.Join(dest, sidecar)); err != nil {
		return false, fmt.Errorf("failed to copy sidecar %s: %w", sidecar, err)
	}
	md, err := tile.ReadMetadata(srcMeta)
	if err != nil {
		return false, err
	}

	fmt.Fprintf(f.out, "[%d/%d] Copied: %s\n", i, total, t.Name)
	fmt.Fprintf(f.out, "    Bounds: %s\n", md.Bounds.Display())
	f.logger.Debug("tile delivered",
		zap.String("run_id", f.runID),
		zap.String("tile", t.Name),
		zap.Bool("sidecar", true))
	return true, nil
}

// sleepContext pauses for d unless ctx ends first. The feed loop re-checks
// ctx after every pause, so cancellation lands between tiles, never mid-copy.
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
