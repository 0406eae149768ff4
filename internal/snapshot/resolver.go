// Package snapshot builds the tab corpus: it resolves every open tab into a
// TabRecord and publishes immutable snapshots of the whole set.
package snapshot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/onglet/internal/corpus"
	"github.com/hazyhaar/onglet/internal/extract"
)

// contentThreshold is the minimum extracted-text length for a tab to count
// as content-bearing.
const contentThreshold = 100

// restrictedSchemes are browser-internal schemes that can never be read.
// Extension pages are deliberately not listed; they get a synthesized record.
var restrictedSchemes = []string{
	"chrome:", "edge:", "about:", "data:", "devtools:", "view-source:",
}

var extensionSchemes = []string{"chrome-extension:", "moz-extension:"}

// PageHTML captures a tab's DOM. Implemented by browser.Manager.
type PageHTML interface {
	HTML(ctx context.Context, id string) (string, error)
}

// Summarizer produces an optional short summary for a content-bearing tab.
type Summarizer interface {
	Summarize(ctx context.Context, title, text string) (string, error)
}

// ResolverConfig configures per-tab resolution.
type ResolverConfig struct {
	// TabTimeout bounds DOM capture and extraction for one tab, so a hanging
	// page cannot stall the whole refresh. Default: 10s.
	TabTimeout time.Duration `yaml:"tab_timeout"`

	// SummarizeTimeout bounds the optional summarizer call. Default: 2s.
	SummarizeTimeout time.Duration `yaml:"summarize_timeout"`

	// AllowFileURLs enables extraction from file:// tabs. Off by default:
	// local file access has to be an explicit opt-in.
	AllowFileURLs bool `yaml:"allow_file_urls"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *ResolverConfig) defaults() {
	if c.TabTimeout <= 0 {
		c.TabTimeout = 10 * time.Second
	}
	if c.SummarizeTimeout <= 0 {
		c.SummarizeTimeout = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Resolver turns one open tab into a TabRecord. Failures are recorded on the
// TabRecord, never returned: one tab's error must not abort a batch.
type Resolver struct {
	source     PageHTML
	summarizer Summarizer
	cfg        ResolverConfig
}

// NewResolver creates a Resolver. summarizer may be nil.
func NewResolver(source PageHTML, summarizer Summarizer, cfg ResolverConfig) *Resolver {
	cfg.defaults()
	return &Resolver{source: source, summarizer: summarizer, cfg: cfg}
}

// Resolve applies the eligibility policy and runs extraction.
func (r *Resolver) Resolve(ctx context.Context, tab corpus.TabInfo) corpus.TabRecord {
	rec := corpus.TabRecord{
		ID:         tab.ID,
		URL:        tab.URL,
		Title:      tab.Title,
		FaviconURL: tab.FaviconURL,
	}

	if hasScheme(tab.URL, restrictedSchemes) {
		rec.Text = "Restricted page"
		rec.Error = corpus.ErrRestricted
		return rec
	}

	if hasScheme(tab.URL, extensionSchemes) {
		// No DOM access for extension pages; synthesize from metadata.
		text := "Extension page: " + tab.Title + ". Browser extension interface."
		rec.Text = text
		rec.Summary = "Extension: " + tab.Title
		rec.HasContent = true
		rec.Length = len(text)
		return rec
	}

	if strings.HasPrefix(tab.URL, "file:") && !r.cfg.AllowFileURLs {
		rec.Text = "Local file access is not enabled"
		rec.Error = corpus.ErrFilePermission
		return rec
	}

	tabCtx, cancel := context.WithTimeout(ctx, r.cfg.TabTimeout)
	defer cancel()

	pageHTML, err := r.source.HTML(tabCtx, tab.ID)
	if err != nil {
		r.cfg.Logger.Debug("snapshot: dom capture failed", "tab", tab.ID, "url", tab.URL, "error", err)
		rec.Text = "Extraction failed"
		rec.Error = corpus.ErrExtraction
		return rec
	}

	res, err := extract.Extract([]byte(pageHTML))
	if err != nil {
		r.cfg.Logger.Debug("snapshot: extract failed", "tab", tab.ID, "error", err)
		rec.Text = "Extraction failed"
		rec.Error = corpus.ErrExtraction
		return rec
	}

	if !res.Success || len(res.Text) < contentThreshold {
		rec.Text = res.Text
		if rec.Text == "" {
			rec.Text = "No extractable content"
		}
		rec.Error = corpus.ErrExtraction
		return rec
	}

	rec.Text = res.Text
	rec.Length = res.Length
	rec.HasContent = true
	rec.Summary = r.summarize(ctx, tab.Title, res)
	return rec
}

// summarize runs the optional summarizer with its own small budget.
// Failure or timeout degrades silently to no summary.
func (r *Resolver) summarize(ctx context.Context, title string, res *extract.Result) string {
	if r.summarizer == nil || len(res.Text) < 200 {
		return ""
	}

	sumCtx, cancel := context.WithTimeout(ctx, r.cfg.SummarizeTimeout)
	defer cancel()

	// Markdown keeps headings and list structure when a region was found.
	input := extract.Truncate(extract.Markdown(res.HTML, res.Text), 3000)
	summary, err := r.summarizer.Summarize(sumCtx, title, input)
	if err != nil {
		r.cfg.Logger.Debug("snapshot: summarize failed", "title", title, "error", err)
		return ""
	}
	return extract.CleanText(summary)
}

func hasScheme(u string, schemes []string) bool {
	for _, s := range schemes {
		if strings.HasPrefix(u, s) {
			return true
		}
	}
	return false
}
