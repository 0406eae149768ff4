package snapshot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/onglet/internal/corpus"
)

type fakeSource struct {
	tabs     []corpus.TabInfo
	html     map[string]string
	tabsErr  error
	delay    map[string]time.Duration
	tabCalls atomic.Int64
}

func (f *fakeSource) Tabs(ctx context.Context) ([]corpus.TabInfo, error) {
	f.tabCalls.Add(1)
	return f.tabs, f.tabsErr
}

func (f *fakeSource) HTML(ctx context.Context, id string) (string, error) {
	if d := f.delay[id]; d > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(d):
		}
	}
	h, ok := f.html[id]
	if !ok {
		return "", fmt.Errorf("no page %s", id)
	}
	return h, nil
}

func contentPage(title, word string, n int) string {
	body := strings.TrimSpace(strings.Repeat(word+" ", n))
	return `<html><head><title>` + title + `</title></head><body><main><article><p>` +
		body + `</p></article></main></body></html>`
}

func newTestResolver(src *fakeSource) *Resolver {
	return NewResolver(src, &LeadSummarizer{}, ResolverConfig{
		TabTimeout: time.Second,
	})
}

func TestResolver_PolicyTable(t *testing.T) {
	src := &fakeSource{html: map[string]string{}}
	r := newTestResolver(src)

	cases := []struct {
		url        string
		wantErr    corpus.ErrorKind
		hasContent bool
	}{
		{"chrome://settings", corpus.ErrRestricted, false},
		{"about:blank", corpus.ErrRestricted, false},
		{"data:text/html,hi", corpus.ErrRestricted, false},
		{"edge://flags", corpus.ErrRestricted, false},
		{"chrome-extension://abcdef/panel.html", "", true},
		{"file:///home/user/notes.html", corpus.ErrFilePermission, false},
		{"https://example.com/missing", corpus.ErrExtraction, false},
	}

	for _, tc := range cases {
		rec := r.Resolve(context.Background(), corpus.TabInfo{
			ID: "t1", URL: tc.url, Title: "Some Tab",
		})
		if rec.Error != tc.wantErr {
			t.Errorf("%s: error got %q, want %q", tc.url, rec.Error, tc.wantErr)
		}
		if rec.HasContent != tc.hasContent {
			t.Errorf("%s: hasContent got %v, want %v", tc.url, rec.HasContent, tc.hasContent)
		}
	}
}

func TestResolver_ExtensionPageSynthesis(t *testing.T) {
	r := newTestResolver(&fakeSource{})
	rec := r.Resolve(context.Background(), corpus.TabInfo{
		ID: "ext", URL: "chrome-extension://abc/ui.html", Title: "Notes Panel",
	})
	if !rec.HasContent {
		t.Fatal("extension page should be content-bearing")
	}
	if !strings.Contains(rec.Text, "Notes Panel") {
		t.Errorf("synthesized text should carry the title, got %q", rec.Text)
	}
	if rec.Summary == "" {
		t.Error("extension record should carry a summary")
	}
	if rec.Length != len(rec.Text) {
		t.Errorf("Length %d does not match text %d", rec.Length, len(rec.Text))
	}
}

func TestResolver_Extraction(t *testing.T) {
	src := &fakeSource{
		html: map[string]string{
			"t1": contentPage("Rust Book", "ownership borrowing lifetimes explained", 30),
		},
	}
	r := newTestResolver(src)
	rec := r.Resolve(context.Background(), corpus.TabInfo{
		ID: "t1", URL: "https://doc.rust-lang.org/book/", Title: "Rust Book",
	})
	if !rec.HasContent {
		t.Fatalf("expected content, got error %q text %q", rec.Error, rec.Text)
	}
	if len(rec.Text) < 100 {
		t.Errorf("hasContent implies text >= 100 chars, got %d", len(rec.Text))
	}
	if len(rec.Text) > 10000 {
		t.Errorf("text exceeds cap: %d", len(rec.Text))
	}
	if rec.Summary == "" {
		t.Error("summarizer should have produced a summary for long text")
	}
}

func TestResolver_ShortContentIsFailure(t *testing.T) {
	src := &fakeSource{
		html: map[string]string{"t1": "<html><body><p>tiny</p></body></html>"},
	}
	r := newTestResolver(src)
	rec := r.Resolve(context.Background(), corpus.TabInfo{ID: "t1", URL: "https://x.test/"})
	if rec.HasContent {
		t.Error("short text must not count as content")
	}
	if rec.Error != corpus.ErrExtraction {
		t.Errorf("error: got %q", rec.Error)
	}
}

func TestResolver_HangingTabTimesOut(t *testing.T) {
	src := &fakeSource{
		html:  map[string]string{"slow": contentPage("Slow", "word", 50)},
		delay: map[string]time.Duration{"slow": time.Second},
	}
	r := NewResolver(src, nil, ResolverConfig{TabTimeout: 20 * time.Millisecond})

	start := time.Now()
	rec := r.Resolve(context.Background(), corpus.TabInfo{ID: "slow", URL: "https://slow.test/"})
	if rec.Error != corpus.ErrExtraction {
		t.Errorf("hanging tab: error got %q, want %q", rec.Error, corpus.ErrExtraction)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("per-tab timeout did not bound the capture")
	}
}

func newTestAggregator(src *fakeSource) *Aggregator {
	return NewAggregator(src, newTestResolver(src), nil)
}

func TestAggregator_Refresh(t *testing.T) {
	src := &fakeSource{
		tabs: []corpus.TabInfo{
			{ID: "t1", URL: "https://a.test/", Title: "A"},
			{ID: "t2", URL: "https://b.test/", Title: "B"},
			{ID: "t3", URL: "chrome://settings", Title: "Settings"}, // filtered
			{ID: "t4", URL: "data:text/plain,x", Title: "Data"},    // failed record
		},
		html: map[string]string{
			"t1": contentPage("A", "alpha content for the first tab", 20),
			"t2": "<html><body><p>nope</p></body></html>",
		},
	}
	agg := newTestAggregator(src)

	snap, err := agg.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if snap.Stats.Total != len(snap.Tabs) {
		t.Errorf("stats.total %d != len(tabs) %d", snap.Stats.Total, len(snap.Tabs))
	}
	if snap.Stats.Total != 3 {
		t.Errorf("system page should be excluded, total got %d", snap.Stats.Total)
	}
	if snap.Stats.Successful != 1 {
		t.Errorf("successful: got %d, want 1", snap.Stats.Successful)
	}
	if snap.Stats.Failed != 2 {
		t.Errorf("failed: got %d, want 2", snap.Stats.Failed)
	}
	if got := agg.Current(); got != snap {
		t.Error("Current should return the published snapshot")
	}
}

func TestAggregator_EmptySnapshot(t *testing.T) {
	src := &fakeSource{tabs: []corpus.TabInfo{{ID: "t1", URL: "chrome://history"}}}
	agg := newTestAggregator(src)

	snap, err := agg.Refresh(context.Background())
	if err != nil {
		t.Fatalf("zero eligible tabs must publish an empty snapshot, got %v", err)
	}
	if snap.Stats.Total != 0 || len(snap.Tabs) != 0 {
		t.Errorf("want empty snapshot, got %+v", snap.Stats)
	}
}

func TestAggregator_EnumerationFailure(t *testing.T) {
	src := &fakeSource{tabsErr: fmt.Errorf("browser gone")}
	agg := newTestAggregator(src)

	if _, err := agg.Refresh(context.Background()); err == nil {
		t.Fatal("enumeration failure must surface as a refresh error")
	}
	if agg.Current() != nil {
		t.Error("failed refresh must not publish")
	}
}

func TestAggregator_AtomicPublish(t *testing.T) {
	src := &fakeSource{
		tabs: []corpus.TabInfo{
			{ID: "t1", URL: "https://a.test/"},
			{ID: "t2", URL: "https://b.test/"},
		},
		html: map[string]string{
			"t1": contentPage("A", "first page body text", 20),
			"t2": contentPage("B", "second page body text", 20),
		},
	}
	agg := newTestAggregator(src)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if snap := agg.Current(); snap != nil {
				if snap.Stats.Total != len(snap.Tabs) {
					t.Errorf("reader saw inconsistent snapshot: total %d, tabs %d",
						snap.Stats.Total, len(snap.Tabs))
				}
			}
		}
	}()

	for range 20 {
		if _, err := agg.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh: %v", err)
		}
	}
	close(done)
	wg.Wait()
}

func TestAggregator_PublishHookAndUpdates(t *testing.T) {
	src := &fakeSource{tabs: nil}
	agg := newTestAggregator(src)

	var persisted atomic.Int64
	agg.SetPublishHook(func(*corpus.Snapshot) error {
		persisted.Add(1)
		return nil
	})

	if _, err := agg.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if persisted.Load() != 1 {
		t.Errorf("publish hook calls: got %d, want 1", persisted.Load())
	}

	select {
	case snap := <-agg.Updates():
		if snap == nil {
			t.Error("nil snapshot on updates channel")
		}
	default:
		t.Error("publish should have notified the updates channel")
	}
}

func TestScheduler_CoalescesTriggers(t *testing.T) {
	src := &fakeSource{}
	agg := newTestAggregator(src)
	sched := NewScheduler(agg, SchedulerConfig{
		Debounce: 20 * time.Millisecond,
		Interval: -1, // periodic off
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	// Burst of triggers inside one debounce window.
	for range 5 {
		sched.RequestRefresh()
	}
	time.Sleep(100 * time.Millisecond)
	cancel()
	wg.Wait()

	// One initial refresh on Run start plus one for the whole burst.
	if got := src.tabCalls.Load(); got != 2 {
		t.Errorf("refresh count: got %d, want 2", got)
	}
}
