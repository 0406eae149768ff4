// Package onglet aggregates the content of every open browser tab into a
// queryable corpus and answers natural-language questions about it, with
// citations back to the tabs an answer came from.
package onglet

import "github.com/hazyhaar/onglet/internal/corpus"

// Re-exported model types so consumers never import internal packages.
type (
	TabInfo      = corpus.TabInfo
	TabRecord    = corpus.TabRecord
	Snapshot     = corpus.Snapshot
	Stats        = corpus.Stats
	Citation     = corpus.Citation
	Message      = corpus.Message
	AnswerResult = corpus.AnswerResult
	Role         = corpus.Role
)

const (
	RoleUser      = corpus.RoleUser
	RoleAssistant = corpus.RoleAssistant
)
