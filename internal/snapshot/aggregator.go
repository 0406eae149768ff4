package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/onglet/internal/corpus"
)

// systemSchemes are filtered out before resolution even starts: these pages
// never belong in the corpus. Extension pages are kept.
var systemSchemes = []string{"chrome://", "edge://", "about:", "devtools://"}

// Source enumerates open tabs and captures their DOM.
// Implemented by browser.Manager.
type Source interface {
	Tabs(ctx context.Context) ([]corpus.TabInfo, error)
	HTML(ctx context.Context, id string) (string, error)
}

// Aggregator fans resolution out over all open tabs and publishes the joined
// result as an immutable Snapshot. It is the single writer of the current
// snapshot; readers always see a complete, consistent value.
type Aggregator struct {
	source   Source
	resolver *Resolver
	logger   *slog.Logger

	// onPublish, when set, persists each published snapshot. Errors are
	// logged, not propagated: persistence is best-effort.
	onPublish func(*corpus.Snapshot) error

	mu      sync.RWMutex
	current *corpus.Snapshot

	notify chan *corpus.Snapshot
}

// NewAggregator creates an Aggregator.
func NewAggregator(source Source, resolver *Resolver, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		source:   source,
		resolver: resolver,
		logger:   logger,
		notify:   make(chan *corpus.Snapshot, 1),
	}
}

// SetPublishHook registers a persistence hook called after each publish.
func (a *Aggregator) SetPublishHook(fn func(*corpus.Snapshot) error) {
	a.onPublish = fn
}

// Restore installs a previously persisted snapshot as the current one.
// Used at startup so readers have data before the first refresh completes.
func (a *Aggregator) Restore(s *corpus.Snapshot) {
	if s == nil {
		return
	}
	a.mu.Lock()
	a.current = s
	a.mu.Unlock()
}

// Current returns the last published snapshot, or nil before the first
// refresh. The returned value is shared and must not be mutated.
func (a *Aggregator) Current() *corpus.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Updates returns a channel carrying newly published snapshots. Slow
// consumers only ever see the latest one; intermediate publishes are
// coalesced away.
func (a *Aggregator) Updates() <-chan *corpus.Snapshot {
	return a.notify
}

// Refresh rebuilds the corpus from all currently open tabs and publishes the
// result atomically. Per-tab failures are retained as failed TabRecords;
// only tab enumeration failure is an error.
func (a *Aggregator) Refresh(ctx context.Context) (*corpus.Snapshot, error) {
	start := time.Now()

	all, err := a.source.Tabs(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: enumerate tabs: %w", err)
	}

	eligible := all[:0:0]
	for _, t := range all {
		if t.URL == "" || isSystemPage(t.URL) {
			continue
		}
		eligible = append(eligible, t)
	}

	records := make([]corpus.TabRecord, len(eligible))
	g, gctx := errgroup.WithContext(ctx)
	for i, tab := range eligible {
		g.Go(func() error {
			records[i] = a.resolver.Resolve(gctx, tab)
			return nil
		})
	}
	g.Wait()

	stats := corpus.Stats{Total: len(records)}
	for _, r := range records {
		if r.HasContent {
			stats.Successful++
		} else {
			stats.Failed++
		}
		if r.Summary != "" {
			stats.Summarized++
		}
	}

	snap := &corpus.Snapshot{
		Tabs:        records,
		LastUpdated: time.Now().UTC(),
		Stats:       stats,
	}
	a.publish(snap)

	a.logger.Info("snapshot: refresh complete",
		"total", stats.Total,
		"successful", stats.Successful,
		"failed", stats.Failed,
		"elapsed", time.Since(start))
	return snap, nil
}

func (a *Aggregator) publish(snap *corpus.Snapshot) {
	a.mu.Lock()
	a.current = snap
	a.mu.Unlock()

	if a.onPublish != nil {
		if err := a.onPublish(snap); err != nil {
			a.logger.Warn("snapshot: persist failed", "error", err)
		}
	}

	// Coalescing notify: drop the stale pending value if any.
	select {
	case a.notify <- snap:
	default:
		select {
		case <-a.notify:
		default:
		}
		select {
		case a.notify <- snap:
		default:
		}
	}
}

func isSystemPage(u string) bool {
	for _, s := range systemSchemes {
		if strings.HasPrefix(u, s) {
			return true
		}
	}
	return false
}
