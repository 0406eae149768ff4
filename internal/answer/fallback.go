package answer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hazyhaar/onglet/internal/corpus"
	"github.com/hazyhaar/onglet/internal/extract"
)

// AnswerNoMatches is returned when no tab scores against the question.
const AnswerNoMatches = "No matches found."

// localAnswer composes the deterministic numbered-list answer from the tabs
// that were offered as context. It has no external dependency and cannot
// fail for transient reasons.
func localAnswer(tabs []corpus.TabRecord, snippetLen int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You have %d tabs open:\n\n", len(tabs))
	for i, t := range tabs {
		fmt.Fprintf(&sb, "%d. %q\n   %s...\n\n", i+1, t.Title, snippet(t, snippetLen))
	}
	return strings.TrimSpace(sb.String())
}

// snippet prefers the summary, else a truncated text prefix.
func snippet(t corpus.TabRecord, n int) string {
	if t.Summary != "" {
		return extract.Truncate(t.Summary, n)
	}
	return extract.Truncate(t.Text, n)
}

// KeywordFallback scores content-bearing tabs against question tokens and
// answers with the top-scoring ones. It is fully deterministic: identical
// question and tab set always produce identical output.
func KeywordFallback(question string, tabs []corpus.TabRecord, topK, snippetLen int) corpus.AnswerResult {
	now := time.Now().UTC()
	if topK <= 0 {
		topK = 1
	}

	var content []corpus.TabRecord
	for _, t := range tabs {
		if t.HasContent {
			content = append(content, t)
		}
	}
	if len(content) == 0 {
		return corpus.AnswerResult{Answer: "No content found.", Citations: []corpus.Citation{}, Timestamp: now}
	}

	tokens := tokenize(question)

	type scored struct {
		tab   corpus.TabRecord
		score int
	}
	var hits []scored
	for _, t := range content {
		haystack := strings.ToLower(t.Title + "\n" + t.Text + "\n" + t.Summary)
		score := 0
		for _, tok := range tokens {
			if strings.Contains(haystack, tok) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{tab: t, score: score})
		}
	}
	if len(hits) == 0 {
		return corpus.AnswerResult{Answer: AnswerNoMatches, Citations: []corpus.Citation{}, Timestamp: now}
	}

	// Stable: ties keep snapshot order, so the result is deterministic.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > topK {
		hits = hits[:topK]
	}

	var sb strings.Builder
	sb.WriteString("Found relevant content:\n\n")
	citations := make([]corpus.Citation, 0, len(hits))
	for i, h := range hits {
		fmt.Fprintf(&sb, "%d. %q\n   %s\n\n", i+1, h.tab.Title, snippet(h.tab, snippetLen))
		citations = append(citations, corpus.Cite(h.tab))
	}

	return corpus.AnswerResult{
		Answer:    strings.TrimSpace(sb.String()),
		Citations: citations,
		Timestamp: now,
	}
}

// tokenize lowercases and keeps alphanumeric words longer than two runes.
func tokenize(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}
