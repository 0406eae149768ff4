// Package corpus defines the data model shared by the tab aggregation and
// answering pipeline: tab descriptors, extraction records, published
// snapshots, and the conversation log entries built on top of them.
package corpus

import "time"

// ErrorKind classifies why a tab yielded no usable content.
type ErrorKind string

const (
	// ErrRestricted marks browser-internal schemes that cannot be read.
	ErrRestricted ErrorKind = "restricted"
	// ErrFilePermission marks file:// tabs without confirmed read access.
	ErrFilePermission ErrorKind = "file_permission"
	// ErrExtraction marks a failed page capture or extraction.
	ErrExtraction ErrorKind = "extraction_failed"
	// ErrSummarize marks a summarizer that ran out of budget.
	ErrSummarize ErrorKind = "summarize_timeout"
	// ErrRemote marks a failed remote answering call.
	ErrRemote ErrorKind = "remote_error"
	// ErrValidation marks a remote answer rejected by the quality gate.
	ErrValidation ErrorKind = "validation_failed"
)

// TabInfo describes an open tab before any extraction is attempted.
type TabInfo struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	FaviconURL string `json:"favicon_url,omitempty"`
}

// TabRecord is the normalised extraction result for one open tab.
//
// Invariant: HasContent is true iff the extracted text passed the success
// threshold and no fatal per-tab error occurred. Text never exceeds 10000
// characters; Length preserves the pre-truncation size.
type TabRecord struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	FaviconURL string    `json:"favicon_url,omitempty"`
	Text       string    `json:"text"`
	Summary    string    `json:"summary,omitempty"`
	HasContent bool      `json:"has_content"`
	Length     int       `json:"length"`
	Error      ErrorKind `json:"error,omitempty"`
}

// Stats aggregates a refresh outcome.
type Stats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Summarized int `json:"summarized"`
	Failed     int `json:"failed"`
}

// Snapshot is an immutable, timestamped collection of TabRecords
// representing the corpus state at one refresh. A refresh produces a wholly
// new Snapshot; published snapshots are never mutated.
type Snapshot struct {
	Tabs        []TabRecord `json:"tabs"`
	LastUpdated time.Time   `json:"last_updated"`
	Stats       Stats       `json:"stats"`
}

// ContentTabs returns the content-bearing records in snapshot order.
func (s *Snapshot) ContentTabs() []TabRecord {
	var out []TabRecord
	for _, t := range s.Tabs {
		if t.HasContent {
			out = append(out, t)
		}
	}
	return out
}

// Citation references a TabRecord as it existed in the snapshot used to
// answer a question. Citations are copies, not live references, so later tab
// closures cannot invalidate past answers.
type Citation struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	FaviconURL string `json:"favicon_url,omitempty"`
	TabID      string `json:"tab_id"`
}

// Cite builds a Citation from a TabRecord.
func Cite(t TabRecord) Citation {
	return Citation{
		Title:      t.Title,
		URL:        t.URL,
		FaviconURL: t.FaviconURL,
		TabID:      t.ID,
	}
}

// Role distinguishes conversation participants.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation log entry. The log is append-only.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// AnswerResult is the unit returned for every question. It is structurally
// identical whether the remote service or a local fallback produced it.
type AnswerResult struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Timestamp time.Time  `json:"timestamp"`
}
