package onglet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/hazyhaar/onglet/internal/corpus"
	"github.com/hazyhaar/onglet/internal/snapshot"
	"github.com/hazyhaar/onglet/internal/store"
)

// schedulerOff disables periodic refreshing so tests control every refresh.
func schedulerOff() snapshot.SchedulerConfig {
	return snapshot.SchedulerConfig{Interval: -1}
}

type fakeBrowser struct {
	mu        sync.Mutex
	tabs      []corpus.TabInfo
	html      map[string]string
	tabsErr   error
	activated []string
	opened    []string
}

func (f *fakeBrowser) Tabs(ctx context.Context) ([]corpus.TabInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tabsErr != nil {
		return nil, f.tabsErr
	}
	return append([]corpus.TabInfo(nil), f.tabs...), nil
}

func (f *fakeBrowser) HTML(ctx context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.html[id]
	if !ok {
		return "", fmt.Errorf("no such tab %s", id)
	}
	return h, nil
}

func (f *fakeBrowser) Activate(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tabs {
		if t.ID == id {
			f.activated = append(f.activated, id)
			return nil
		}
	}
	return fmt.Errorf("no such tab %s", id)
}

func (f *fakeBrowser) Open(ctx context.Context, pageURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("opened-%d", len(f.opened)+1)
	f.opened = append(f.opened, pageURL)
	f.tabs = append(f.tabs, corpus.TabInfo{ID: id, URL: pageURL, Title: "New Tab"})
	return id, nil
}

func articleHTML(title, topic string) string {
	body := strings.TrimSpace(strings.Repeat(topic+" explained in depth with worked examples and diagrams. ", 8))
	return fmt.Sprintf(`<html><head><title>%s</title></head><body><main><p>%s</p></main></body></html>`, title, body)
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		tabs: []corpus.TabInfo{
			{ID: "t1", URL: "https://go.test/concurrency", Title: "Go Concurrency Patterns"},
			{ID: "t2", URL: "https://cook.test/pasta", Title: "Weeknight Pasta"},
		},
		html: map[string]string{
			"t1": articleHTML("Go Concurrency Patterns", "goroutines channels select golang"),
			"t2": articleHTML("Weeknight Pasta", "tomato basil garlic olive oil"),
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestService_RefreshAndSnapshot(t *testing.T) {
	svc := New(newFakeBrowser(), nil, Config{}, quietLogger())

	if svc.Snapshot() != nil {
		t.Fatal("snapshot must be nil before the first refresh")
	}

	snap, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if snap.Stats.Total != 2 || snap.Stats.Successful != 2 {
		t.Errorf("stats: %+v", snap.Stats)
	}
	if got := svc.Snapshot(); got != snap {
		t.Error("Snapshot must return the freshly published value")
	}
}

func TestService_AskLogsConversation(t *testing.T) {
	st := openTestStore(t)
	svc := New(newFakeBrowser(), st, Config{}, quietLogger())
	ctx := context.Background()

	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	msg, err := svc.Ask(ctx, "what tabs are open", false)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if msg.Role != corpus.RoleAssistant {
		t.Errorf("role: got %q", msg.Role)
	}
	if !strings.Contains(msg.Content, "You have 2 tabs open") {
		t.Errorf("answer: %q", msg.Content)
	}

	msgs, err := svc.Messages(ctx)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("log entries: got %d, want 2", len(msgs))
	}
	if msgs[0].Role != corpus.RoleUser || msgs[0].Content != "what tabs are open" {
		t.Errorf("user entry: %+v", msgs[0])
	}
	if msgs[1].ID != msg.ID {
		t.Error("assistant entry must match the returned message")
	}

	if err := svc.ClearMessages(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if msgs, _ := svc.Messages(ctx); len(msgs) != 0 {
		t.Errorf("log after clear: %d entries", len(msgs))
	}
}

func TestService_AskKeywordOnly(t *testing.T) {
	svc := New(newFakeBrowser(), nil, Config{}, quietLogger())
	ctx := context.Background()

	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	msg, err := svc.Ask(ctx, "find the golang article", true)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if len(msg.Citations) != 1 || msg.Citations[0].TabID != "t1" {
		t.Errorf("keyword search should cite the golang tab: %+v", msg.Citations)
	}
}

func TestService_AskEmptyQuestion(t *testing.T) {
	svc := New(newFakeBrowser(), nil, Config{}, quietLogger())
	if _, err := svc.Ask(context.Background(), "", false); err == nil {
		t.Error("empty question must be rejected")
	}
}

func TestService_NavigateActivatesExistingTab(t *testing.T) {
	fb := newFakeBrowser()
	svc := New(fb, nil, Config{}, quietLogger())

	id, err := svc.Navigate(context.Background(), "https://cook.test/pasta", "")
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if id != "t2" {
		t.Errorf("tab id: got %s, want t2", id)
	}
	if len(fb.opened) != 0 {
		t.Error("an open tab must be activated, not re-opened")
	}
}

func TestService_NavigateByTabID(t *testing.T) {
	fb := newFakeBrowser()
	svc := New(fb, nil, Config{}, quietLogger())

	id, err := svc.Navigate(context.Background(), "", "t1")
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if id != "t1" || len(fb.activated) != 1 {
		t.Errorf("id %s, activated %v", id, fb.activated)
	}
}

func TestService_NavigateOpensUnknownURL(t *testing.T) {
	fb := newFakeBrowser()
	svc := New(fb, nil, Config{}, quietLogger())

	id, err := svc.Navigate(context.Background(), "https://new.test/page", "")
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if !strings.HasPrefix(id, "opened-") {
		t.Errorf("expected a new tab, got %s", id)
	}
	if len(fb.opened) != 1 || fb.opened[0] != "https://new.test/page" {
		t.Errorf("opened: %v", fb.opened)
	}
}

func TestService_NavigateStaleTabIDFallsBackToURL(t *testing.T) {
	fb := newFakeBrowser()
	svc := New(fb, nil, Config{}, quietLogger())

	// The cited tab is gone but the URL is still open elsewhere.
	id, err := svc.Navigate(context.Background(), "https://go.test/concurrency", "gone")
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if id != "t1" {
		t.Errorf("tab id: got %s, want t1", id)
	}
}

func TestService_SnapshotRestoredFromStore(t *testing.T) {
	st := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := New(newFakeBrowser(), st, Config{Scheduler: schedulerOff()}, quietLogger())
	first.Start(ctx)
	if _, err := first.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// A restarted service with a dead browser still serves the cached corpus.
	dead := &fakeBrowser{tabsErr: fmt.Errorf("browser gone")}
	second := New(dead, st, Config{Scheduler: schedulerOff()}, quietLogger())
	second.Start(ctx)

	snap := second.Snapshot()
	if snap == nil {
		t.Fatal("snapshot must be restored from the store")
	}
	if snap.Stats.Total != 2 {
		t.Errorf("restored stats: %+v", snap.Stats)
	}
}
