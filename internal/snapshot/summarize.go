package snapshot

import (
	"context"
	"strings"

	"github.com/hazyhaar/onglet/internal/extract"
)

// LeadSummarizer is the built-in Summarizer: it keeps the first two
// sentences of the text. It has no external dependency and cannot fail for
// transient reasons; model-backed summarizers can be swapped in through the
// Summarizer interface.
type LeadSummarizer struct {
	// MaxLen caps the summary. Default: 150.
	MaxLen int
}

// Summarize returns the leading sentences of text, capped at MaxLen.
func (l *LeadSummarizer) Summarize(ctx context.Context, title, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	maxLen := l.MaxLen
	if maxLen <= 0 {
		maxLen = 150
	}

	text = extract.CleanText(text)
	sentences := splitSentences(text)
	summary := strings.Join(firstN(sentences, 2), ". ")
	if summary != "" && !strings.HasSuffix(summary, ".") {
		summary += "."
	}
	if summary == "" {
		summary = extract.Truncate(text, maxLen)
	}
	return extract.Truncate(summary, maxLen), nil
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstN(ss []string, n int) []string {
	if len(ss) > n {
		return ss[:n]
	}
	return ss
}
