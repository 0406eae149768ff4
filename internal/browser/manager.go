// Package browser attaches to a Chrome instance via Rod and exposes the
// small tab surface the aggregation pipeline needs: enumerate open tabs
// across all windows, capture a tab's DOM, activate a tab, open a new one.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/onglet/internal/corpus"
)

// Config configures the browser manager.
type Config struct {
	// ControlURL is the WebSocket URL of a running Chrome instance.
	// Empty = launch a local headless Chrome via launcher.
	ControlURL string `yaml:"control_url"`

	// NavTimeout bounds navigation when opening a new tab. Default: 30s.
	NavTimeout time.Duration `yaml:"nav_timeout"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the Rod browser connection.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a Manager. Call Start to connect.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start connects to Chrome (or launches a local headless instance).
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("browser: manager is closed")
	}

	wsURL := m.cfg.ControlURL
	if wsURL == "" {
		l := launcher.New().Headless(true)
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		m.cfg.Logger.Info("browser: launched local chrome", "url", wsURL)
	} else {
		m.cfg.Logger.Info("browser: connecting to remote", "url", wsURL)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("browser: connect: %w", err)
	}
	m.browser = b
	return nil
}

// Close shuts down the connection and any locally launched Chrome.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}

func (m *Manager) current() (*rod.Browser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.browser == nil {
		return nil, fmt.Errorf("browser: not connected")
	}
	return m.browser, nil
}

// Tabs enumerates every open page target across all windows.
func (m *Manager) Tabs(ctx context.Context) ([]corpus.TabInfo, error) {
	b, err := m.current()
	if err != nil {
		return nil, err
	}

	pages, err := b.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("browser: list pages: %w", err)
	}

	tabs := make([]corpus.TabInfo, 0, len(pages))
	for _, p := range pages {
		info, err := p.Context(ctx).Info()
		if err != nil {
			m.cfg.Logger.Debug("browser: page info failed", "error", err)
			continue
		}
		title := info.Title
		if title == "" {
			title = "Untitled"
		}
		tabs = append(tabs, corpus.TabInfo{
			ID:         string(p.TargetID),
			URL:        info.URL,
			Title:      title,
			FaviconURL: faviconURL(info.URL),
		})
	}
	return tabs, nil
}

// HTML captures the full DOM of the tab as outer HTML.
func (m *Manager) HTML(ctx context.Context, id string) (string, error) {
	p, err := m.page(ctx, id)
	if err != nil {
		return "", err
	}
	res, err := p.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Activate brings the tab to the foreground.
func (m *Manager) Activate(ctx context.Context, id string) error {
	p, err := m.page(ctx, id)
	if err != nil {
		return err
	}
	if _, err := p.Context(ctx).Activate(); err != nil {
		return fmt.Errorf("browser: activate: %w", err)
	}
	return nil
}

// Open creates a new tab, navigates it, and returns its target ID.
func (m *Manager) Open(ctx context.Context, pageURL string) (string, error) {
	b, err := m.current()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return "", fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return "", fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		m.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	if _, err := page.Activate(); err != nil {
		m.cfg.Logger.Debug("browser: activate new tab failed", "error", err)
	}
	return string(page.TargetID), nil
}

// page finds an open page by target ID.
func (m *Manager) page(ctx context.Context, id string) (*rod.Page, error) {
	b, err := m.current()
	if err != nil {
		return nil, err
	}
	pages, err := b.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("browser: list pages: %w", err)
	}
	for _, p := range pages {
		if string(p.TargetID) == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("browser: no tab with id %s", id)
}

// faviconURL derives the conventional favicon location from a page URL.
// Only meaningful for http(s) pages.
func faviconURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/favicon.ico"
}
