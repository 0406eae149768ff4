// Package answer turns a question about the tab corpus into an AnswerResult:
// a remote model call bounded by a timeout and validated for quality, with
// deterministic local fallbacks so a question always gets an answer.
package answer

import "strings"

// tabKeywords mark questions that are about the open-tab corpus.
var tabKeywords = []string{
	"tab", "page", "open", "website", "site", "url",
	"link", "article", "reading", "browsing",
}

// genericKeywords mark general-knowledge trivia better served elsewhere.
var genericKeywords = []string{
	"what is", "who is", "how to", "why", "when",
	"define", "explain", "tell me about",
}

// Relevant reports whether the question is about the tab corpus. The bias is
// toward answering from tab content: only unambiguous general-knowledge
// phrasing is turned away.
func Relevant(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range tabKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	for _, kw := range genericKeywords {
		if strings.Contains(q, kw) {
			return false
		}
	}
	return true
}
