package answer

import (
	"context"
	"html"
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/onglet/internal/corpus"
	"github.com/hazyhaar/onglet/internal/extract"
)

// Canned answers for the short-circuit paths.
const (
	AnswerRedirect  = "Ask about your tabs."
	AnswerNoContent = "No content found. Refresh tabs."
)

// Config configures the Synthesizer.
type Config struct {
	// MaxContextTabs is how many content-bearing tabs are offered to the
	// remote service, in snapshot order. Default: 10.
	MaxContextTabs int `yaml:"max_context_tabs"`

	// ExcerptLen bounds each context excerpt. Default: 300.
	ExcerptLen int `yaml:"excerpt_len"`

	// SnippetLen bounds snippets in locally composed answers. Default: 100.
	SnippetLen int `yaml:"snippet_len"`

	// RemoteTimeout bounds the remote answering call. Default: 45s.
	RemoteTimeout time.Duration `yaml:"remote_timeout"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxContextTabs <= 0 {
		c.MaxContextTabs = 10
	}
	if c.ExcerptLen <= 0 {
		c.ExcerptLen = 300
	}
	if c.SnippetLen <= 0 {
		c.SnippetLen = 100
	}
	if c.RemoteTimeout <= 0 {
		c.RemoteTimeout = 45 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Synthesizer answers questions against a published snapshot. Every path
// returns a structured AnswerResult; remote failures degrade to the
// deterministic local answer and are never surfaced as errors.
type Synthesizer struct {
	client   Client
	validate Validator
	strip    *bluemonday.Policy
	cfg      Config
}

// NewSynthesizer creates a Synthesizer. client may be nil, which disables
// the remote path entirely; validate may be nil for DefaultValidator.
func NewSynthesizer(client Client, validate Validator, cfg Config) *Synthesizer {
	cfg.defaults()
	if validate == nil {
		validate = DefaultValidator
	}
	return &Synthesizer{
		client:   client,
		validate: validate,
		strip:    bluemonday.StrictPolicy(),
		cfg:      cfg,
	}
}

// Ask produces an AnswerResult for the question against the snapshot.
// snap may be nil (no refresh has completed yet).
func (s *Synthesizer) Ask(ctx context.Context, question string, snap *corpus.Snapshot) corpus.AnswerResult {
	now := time.Now().UTC()

	if !Relevant(question) {
		return corpus.AnswerResult{Answer: AnswerRedirect, Citations: []corpus.Citation{}, Timestamp: now}
	}

	var content []corpus.TabRecord
	if snap != nil {
		content = snap.ContentTabs()
	}
	if len(content) == 0 {
		return corpus.AnswerResult{Answer: AnswerNoContent, Citations: []corpus.Citation{}, Timestamp: now}
	}

	selected := content
	if len(selected) > s.cfg.MaxContextTabs {
		selected = selected[:s.cfg.MaxContextTabs]
	}

	answerText := s.remoteAnswer(ctx, question, selected)
	if answerText == "" {
		answerText = localAnswer(selected, s.cfg.SnippetLen)
	}

	// Citations resolve against the full snapshot, not just the context
	// subset; the answer may legitimately reference any tab.
	citations := Citations(answerText, snap.Tabs)
	if len(citations) == 0 {
		citations = make([]corpus.Citation, 0, len(selected))
		for _, t := range selected {
			citations = append(citations, corpus.Cite(t))
		}
	}

	return corpus.AnswerResult{Answer: answerText, Citations: citations, Timestamp: now}
}

// remoteAnswer runs the remote call and quality gate. Empty return means
// the local fallback must be used; the reasons are logged, not returned.
func (s *Synthesizer) remoteAnswer(ctx context.Context, question string, selected []corpus.TabRecord) string {
	if s.client == nil {
		return ""
	}

	entries := make([]ContextEntry, 0, len(selected))
	for _, t := range selected {
		excerpt := t.Summary
		if excerpt == "" {
			excerpt = t.Text
		}
		entries = append(entries, ContextEntry{
			Title:   t.Title,
			Excerpt: extract.Truncate(excerpt, s.cfg.ExcerptLen),
		})
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.RemoteTimeout)
	defer cancel()

	text, err := s.client.Ask(callCtx, question, entries)
	if err != nil {
		s.cfg.Logger.Warn("answer: remote failed, using local fallback",
			"kind", corpus.ErrRemote, "error", err)
		return ""
	}

	text = s.stripMarkup(text)
	if !s.validate(text) {
		s.cfg.Logger.Warn("answer: remote answer rejected, using local fallback",
			"kind", corpus.ErrValidation, "length", len(text))
		return ""
	}
	return text
}

// stripMarkup removes any HTML the remote service slipped into the answer.
// Sanitizing entity-escapes the remaining text, so the escaping is undone to
// keep quoted titles matchable.
func (s *Synthesizer) stripMarkup(text string) string {
	return html.UnescapeString(s.strip.Sanitize(text))
}
