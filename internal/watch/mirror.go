// Package watch mirrors a staging directory into the serving directory
// continuously, copying each tile once the generator has finished writing
// it. Unlike a one-shot feed pass, the mirror keeps going when a single
// tile fails; a live generator must not be stalled by one bad file.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"tilefeed/internal/feed"
	"tilefeed/internal/tile"
)

// DefaultDebounce is the settle window applied when none is configured.
// Generators write tiles in several bursts; copying before the writes stop
// would serve torn files.
const DefaultDebounce = 500 * time.Millisecond

// flushInterval is how often pending events are checked against the settle
// window.
const flushInterval = 100 * time.Millisecond

// Options configures a Mirror. Zero-value fields fall back to defaults.
type Options struct {
	Debounce time.Duration // settle window, DefaultDebounce when <= 0
	Out      io.Writer     // progress stream, stdout when nil
	Logger   *zap.Logger   // diagnostics, nop when nil
}

// Mirror watches a staging directory and replicates settled tiles (plus
// their sidecars) into the serving directory.
type Mirror struct {
	source   string
	dest     string
	debounce time.Duration
	out      io.Writer
	logger   *zap.Logger

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu      sync.RWMutex
	running bool
	pending map[string]time.Time // tile filename -> last event time
	stats   Stats
}

// Stats is a point-in-time snapshot of mirror activity.
type Stats struct {
	Tiles     int       // tiles delivered (a re-written tile counts again)
	Sidecars  int       // sidecar files delivered alongside
	Events    int       // tile-shaped filesystem events observed
	Errors    int       // per-tile failures that were logged and skipped
	LastTile  string    // most recently delivered tile filename
	LastEvent time.Time // when the last tile-shaped event arrived
}

// New prepares a mirror from source into dest. Call Start to begin watching.
func New(source, dest string, opts Options) (*Mirror, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	return &Mirror{
		source:   source,
		dest:     dest,
		debounce: opts.Debounce,
		out:      opts.Out,
		logger:   opts.Logger,
		watcher:  watcher,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		pending:  make(map[string]time.Time),
	}, nil
}

// Start registers the watch and launches the event loop in a goroutine.
// It is non-blocking; pair it with Stop. A failed Start releases the
// watcher, so the mirror cannot be reused afterwards.
func (m *Mirror) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	if err := os.MkdirAll(m.dest, 0o755); err != nil {
		m.watcher.Close()
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	if err := m.watcher.Add(m.source); err != nil {
		m.watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", m.source, err)
	}
	m.running = true

	m.logger.Info("mirror started",
		zap.String("source", m.source),
		zap.String("dest", m.dest),
		zap.Duration("debounce", m.debounce))

	go m.run(ctx)
	return nil
}

// Stop halts the event loop and releases the watcher. It blocks until the
// loop has exited; pending tiles that had not settled are dropped.
func (m *Mirror) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopCh)
	<-m.doneCh

	if err := m.watcher.Close(); err != nil {
		m.logger.Error("failed to close watcher", zap.Error(err))
	}
	m.logger.Info("mirror stopped")
}

// Running reports whether the event loop is active.
func (m *Mirror) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Stats returns a snapshot of mirror activity.
func (m *Mirror) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func (m *Mirror) run(ctx context.Context) {
	defer close(m.doneCh)

	flush := time.NewTicker(flushInterval)
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("mirror context cancelled")
			return

		case <-m.stopCh:
			return

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleEvent(event)

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("watch error", zap.Error(err))
			m.mu.Lock()
			m.stats.Errors++
			m.mu.Unlock()

		case <-flush.C:
			m.copySettled()
		}
	}
}

// handleEvent records tile-shaped creates and writes for later delivery.
// A sidecar event re-queues its tile so the pair is re-delivered together;
// everything else (chmod, removes, foreign files) is ignored.
func (m *Mirror) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	name := filepath.Base(event.Name)
	t, ok := tile.Parse(name)
	if !ok {
		t, ok = tile.ParseSidecar(name)
		if !ok {
			return
		}
		// Sidecar arrived on its own: only re-queue when its tile is
		// already staged. Otherwise the tile's own event will pick the
		// pair up later.
		if _, err := os.Stat(filepath.Join(m.source, t.Name)); err != nil {
			return
		}
	}

	m.logger.Debug("staging event",
		zap.String("file", name),
		zap.String("tile", t.Name),
		zap.String("op", event.Op.String()))

	m.mu.Lock()
	m.stats.Events++
	m.stats.LastEvent = time.Now()
	m.pending[t.Name] = time.Now()
	m.mu.Unlock()
}

// copySettled delivers every pending tile whose last event is older than
// the settle window. Tiles settling in the same flush go out in feed order.
func (m *Mirror) copySettled() {
	m.mu.Lock()
	now := time.Now()
	ready := make([]tile.Tile, 0, len(m.pending))
	for name, eventTime := range m.pending {
		if now.Sub(eventTime) >= m.debounce {
			if t, ok := tile.Parse(name); ok {
				ready = append(ready, t)
			}
			delete(m.pending, name)
		}
	}
	m.mu.Unlock()

	sort.Slice(ready, func(i, j int) bool { return ready[i].Less(ready[j]) })
	for _, t := range ready {
		m.deliver(t)
	}
}

// deliver copies one settled tile and its sidecar if present. Failures are
// logged and counted; the mirror keeps running.
func (m *Mirror) deliver(t tile.Tile) {
	src := filepath.Join(m.source, t.Name)
	if _, err := os.Stat(src); err != nil {
		// Deleted between settling and delivery.
		m.logger.Debug("tile vanished before delivery", zap.String("tile", t.Name))
		return
	}

	withMeta, md, err := m.copyPair(t)
	if err != nil {
		m.logger.Error("delivery failed", zap.String("tile", t.Name), zap.Error(err))
		m.mu.Lock()
		m.stats.Errors++
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	m.stats.Tiles++
	if withMeta {
		m.stats.Sidecars++
	}
	n := m.stats.Tiles
	m.stats.LastTile = t.Name
	m.mu.Unlock()

	if withMeta {
		fmt.Fprintf(m.out, "[%d] Copied: %s\n", n, t.Name)
		fmt.Fprintf(m.out, "    Bounds: %s\n", md.Bounds.Display())
	} else {
		fmt.Fprintf(m.out, "[%d] Copied: %s (no metadata)\n", n, t.Name)
	}
}

func (m *Mirror) copyPair(t tile.Tile) (bool, *tile.Metadata, error) {
	if err := feed.CopyFile(filepath.Join(m.source, t.Name), filepath.Join(m.dest, t.Name)); err != nil {
		return false, nil, fmt.Errorf("failed to copy tile: %w", err)
	}

	sidecar := t.SidecarName()
	srcMeta := filepath.Join(m.source, sidecar)
	if _, err := os.Stat(srcMeta); err != nil {
		return false, nil, nil
	}
	if err := feed.CopyFile(srcMeta, filepath.Join(m.dest, sidecar)); err != nil {
		return false, nil, fmt.Errorf("failed to copy sidecar: %w", err)
	}
	md, err := tile.ReadMetadata(srcMeta)
	if err != nil {
		return false, nil, err
	}
	return true, md, nil
}
