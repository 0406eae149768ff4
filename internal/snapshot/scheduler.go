package snapshot

import (
	"context"
	"log/slog"
	"time"
)

// SchedulerConfig controls refresh scheduling.
type SchedulerConfig struct {
	// Debounce is how long the scheduler waits after a trigger before
	// refreshing, so bursts of tab events coalesce into one refresh.
	// Default: 500ms.
	Debounce time.Duration `yaml:"debounce"`

	// Interval is the periodic refresh interval. Default: 10s.
	// Negative disables periodic refreshing.
	Interval time.Duration `yaml:"interval"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *SchedulerConfig) defaults() {
	if c.Debounce <= 0 {
		c.Debounce = 500 * time.Millisecond
	}
	if c.Interval == 0 {
		c.Interval = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Scheduler serializes refreshes behind a single loop. All triggers — tab
// lifecycle events, the periodic timer, explicit refresh requests — funnel
// through one channel, so two refreshes can never race and publish out of
// order.
type Scheduler struct {
	agg     *Aggregator
	cfg     SchedulerConfig
	trigger chan struct{}
}

// NewScheduler creates a Scheduler for the given aggregator.
func NewScheduler(agg *Aggregator, cfg SchedulerConfig) *Scheduler {
	cfg.defaults()
	return &Scheduler{
		agg:     agg,
		cfg:     cfg,
		trigger: make(chan struct{}, 1),
	}
}

// RequestRefresh asks for a refresh. Requests arriving while one is already
// pending are coalesced; the call never blocks.
func (s *Scheduler) RequestRefresh() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run consumes triggers until ctx is cancelled. It refreshes once
// immediately on start, mirroring the aggregate-on-boot behaviour.
func (s *Scheduler) Run(ctx context.Context) {
	s.refresh(ctx)

	var tick <-chan time.Time
	if s.cfg.Interval > 0 {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			if !s.debounce(ctx) {
				return
			}
			s.refresh(ctx)
		case <-tick:
			s.refresh(ctx)
		}
	}
}

// debounce waits out the coalescing window, absorbing further triggers.
// Returns false if ctx was cancelled while waiting.
func (s *Scheduler) debounce(ctx context.Context) bool {
	timer := time.NewTimer(s.cfg.Debounce)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-s.trigger:
			// absorbed; the window is not extended
		case <-timer.C:
			return true
		}
	}
}

func (s *Scheduler) refresh(ctx context.Context) {
	if _, err := s.agg.Refresh(ctx); err != nil {
		s.cfg.Logger.Error("snapshot: scheduled refresh failed", "error", err)
	}
}
