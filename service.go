package onglet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/onglet/internal/answer"
	"github.com/hazyhaar/onglet/internal/corpus"
	"github.com/hazyhaar/onglet/internal/snapshot"
	"github.com/hazyhaar/onglet/internal/store"
)

// Browser is the tab surface the service needs. Implemented by
// browser.Manager; tests substitute a fake.
type Browser interface {
	Tabs(ctx context.Context) ([]corpus.TabInfo, error)
	HTML(ctx context.Context, id string) (string, error)
	Activate(ctx context.Context, id string) error
	Open(ctx context.Context, pageURL string) (string, error)
}

// Service ties the pipeline together: tab aggregation, scheduled refreshes,
// question answering, and the persisted conversation log.
type Service struct {
	cfg     Config
	browser Browser
	store   *store.Store // nil when persistence is disabled
	agg     *snapshot.Aggregator
	sched   *snapshot.Scheduler
	synth   *answer.Synthesizer
	logger  *slog.Logger
}

// New wires a Service. st may be nil to disable persistence; the remote
// answering path is enabled iff cfg.AnswerEndpoint is set.
func New(b Browser, st *store.Store, cfg Config, logger *slog.Logger) *Service {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Resolver.Logger = logger
	cfg.Scheduler.Logger = logger
	cfg.Answer.Logger = logger

	resolver := snapshot.NewResolver(b, &snapshot.LeadSummarizer{}, cfg.Resolver)
	agg := snapshot.NewAggregator(b, resolver, logger)
	sched := snapshot.NewScheduler(agg, cfg.Scheduler)

	var client answer.Client
	if cfg.AnswerEndpoint != "" {
		client = answer.NewHTTPClient(cfg.AnswerEndpoint, nil)
	}
	synth := answer.NewSynthesizer(client, nil, cfg.Answer)

	return &Service{
		cfg:     cfg,
		browser: b,
		store:   st,
		agg:     agg,
		sched:   sched,
		synth:   synth,
		logger:  logger,
	}
}

// Config returns the effective configuration after defaults.
func (s *Service) Config() Config {
	return s.cfg
}

// Start restores the cached snapshot, installs the persistence hook, and
// runs the refresh scheduler until ctx is cancelled. The browser connection
// is owned by the caller and must already be up.
func (s *Service) Start(ctx context.Context) {
	if s.store != nil {
		if cached, err := s.store.LoadSnapshot(ctx); err != nil {
			s.logger.Warn("service: snapshot restore failed", "error", err)
		} else if cached != nil {
			s.agg.Restore(cached)
			s.logger.Info("service: snapshot restored",
				"tabs", cached.Stats.Total, "age", time.Since(cached.LastUpdated))
		}
		s.agg.SetPublishHook(func(snap *corpus.Snapshot) error {
			return s.store.SaveSnapshot(context.Background(), snap)
		})
	}
	go s.sched.Run(ctx)
}

// Refresh rebuilds the corpus immediately, bypassing the debounce window,
// and returns the freshly published snapshot.
func (s *Service) Refresh(ctx context.Context) (*corpus.Snapshot, error) {
	return s.agg.Refresh(ctx)
}

// RequestRefresh schedules a debounced refresh; it never blocks.
func (s *Service) RequestRefresh() {
	s.sched.RequestRefresh()
}

// Snapshot returns the last published snapshot, or nil before the first
// refresh completes.
func (s *Service) Snapshot() *corpus.Snapshot {
	return s.agg.Current()
}

// Ask answers the question against the current snapshot and appends both
// sides of the exchange to the conversation log. keywordOnly bypasses the
// remote service and runs the deterministic keyword search instead.
func (s *Service) Ask(ctx context.Context, question string, keywordOnly bool) (corpus.Message, error) {
	if question == "" {
		return corpus.Message{}, fmt.Errorf("service: empty question")
	}

	snap := s.agg.Current()

	var res corpus.AnswerResult
	if keywordOnly {
		var tabs []corpus.TabRecord
		if snap != nil {
			tabs = snap.Tabs
		}
		res = answer.KeywordFallback(question, tabs, s.cfg.KeywordTopK, s.cfg.Answer.SnippetLen)
	} else {
		res = s.synth.Ask(ctx, question, snap)
	}

	user := corpus.Message{
		ID:        uuid.NewString(),
		Role:      corpus.RoleUser,
		Content:   question,
		CreatedAt: time.Now().UTC(),
	}
	assistant := corpus.Message{
		ID:        uuid.NewString(),
		Role:      corpus.RoleAssistant,
		Content:   res.Answer,
		Citations: res.Citations,
		CreatedAt: res.Timestamp,
	}

	if s.store != nil {
		if err := s.store.AppendMessage(ctx, user); err != nil {
			return corpus.Message{}, fmt.Errorf("service: log question: %w", err)
		}
		if err := s.store.AppendMessage(ctx, assistant); err != nil {
			return corpus.Message{}, fmt.Errorf("service: log answer: %w", err)
		}
	}
	return assistant, nil
}

// Navigate focuses the tab a citation points at. A known tab ID wins; else
// an open tab with the exact URL is activated; else a new tab is opened and
// a refresh is scheduled. Returns the ID of the focused tab.
func (s *Service) Navigate(ctx context.Context, pageURL, tabID string) (string, error) {
	if tabID != "" {
		if err := s.browser.Activate(ctx, tabID); err == nil {
			return tabID, nil
		}
		// The cited tab is gone; fall through to the URL.
	}
	if pageURL == "" {
		return "", fmt.Errorf("service: navigate needs a url or tab id")
	}

	tabs, err := s.browser.Tabs(ctx)
	if err != nil {
		return "", fmt.Errorf("service: navigate: %w", err)
	}
	for _, t := range tabs {
		if t.URL == pageURL {
			if err := s.browser.Activate(ctx, t.ID); err != nil {
				return "", fmt.Errorf("service: navigate: %w", err)
			}
			return t.ID, nil
		}
	}

	id, err := s.browser.Open(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("service: navigate: %w", err)
	}
	s.sched.RequestRefresh()
	return id, nil
}

// Messages returns the conversation log in chronological order.
func (s *Service) Messages(ctx context.Context) ([]corpus.Message, error) {
	if s.store == nil {
		return []corpus.Message{}, nil
	}
	return s.store.Messages(ctx)
}

// ClearMessages deletes the conversation log.
func (s *Service) ClearMessages(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.ClearMessages(ctx)
}
