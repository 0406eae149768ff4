package answer

import (
	"regexp"

	"github.com/hazyhaar/onglet/internal/corpus"
)

// minCitableTitle is the minimum title length considered for citation
// matching; shorter titles produce too many false positives.
const minCitableTitle = 6

// TitleMatcher decides whether an answer text references a tab title.
// The default is exact quoted-literal matching; fuzzier matchers can be
// swapped in without touching the resolution logic.
type TitleMatcher interface {
	Matches(answer, title string) bool
}

// QuotedTitleMatcher matches the exact title inside double quotes,
// case-insensitively.
type QuotedTitleMatcher struct{}

func (QuotedTitleMatcher) Matches(answer, title string) bool {
	re, err := regexp.Compile(`(?i)"` + regexp.QuoteMeta(title) + `"`)
	if err != nil {
		return false
	}
	return re.MatchString(answer)
}

// Citations resolves which candidate tabs the answer text references, using
// the default quoted-title matcher. Citation order follows candidate scan
// order, not order of appearance in the answer.
func Citations(answerText string, candidates []corpus.TabRecord) []corpus.Citation {
	return CitationsWith(QuotedTitleMatcher{}, answerText, candidates)
}

// CitationsWith resolves citations using the given matcher.
func CitationsWith(m TitleMatcher, answerText string, candidates []corpus.TabRecord) []corpus.Citation {
	var out []corpus.Citation
	if answerText == "" {
		return out
	}
	for _, tab := range candidates {
		if len(tab.Title) < minCitableTitle {
			continue
		}
		if m.Matches(answerText, tab.Title) {
			out = append(out, corpus.Cite(tab))
		}
	}
	return out
}
