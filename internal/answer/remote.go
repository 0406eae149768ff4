package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ContextEntry is one tab offered to the remote answering service.
type ContextEntry struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

// Client calls a remote answering service with the question and the bounded
// tab context. Implementations must honour ctx cancellation.
type Client interface {
	Ask(ctx context.Context, question string, entries []ContextEntry) (string, error)
}

// HTTPClient speaks the proxy contract: a Gemini-shaped prompt in, an answer
// out in either a flat `answer` field or the nested candidates shape. Both
// are tolerated; no other fields are required.
type HTTPClient struct {
	endpoint string
	hc       *http.Client
}

// NewHTTPClient creates a Client for the given endpoint. The per-call
// timeout comes from ctx; hc may be nil for http.DefaultClient.
func NewHTTPClient(endpoint string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{endpoint: endpoint, hc: hc}
}

type remotePart struct {
	Text string `json:"text"`
}

type remoteContent struct {
	Parts []remotePart `json:"parts"`
}

type remoteRequest struct {
	Prompt struct {
		Contents []remoteContent `json:"contents"`
	} `json:"prompt"`
}

type remoteResponse struct {
	Answer     string `json:"answer"`
	Candidates []struct {
		Content struct {
			Parts []remotePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Ask sends the question and context and extracts the answer text.
func (c *HTTPClient) Ask(ctx context.Context, question string, entries []ContextEntry) (string, error) {
	var reqBody remoteRequest
	reqBody.Prompt.Contents = []remoteContent{
		{Parts: []remotePart{{Text: buildPrompt(question, entries)}}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("answer: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("answer: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("answer: remote call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("answer: remote status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("answer: read response: %w", err)
	}

	var rr remoteResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return "", fmt.Errorf("answer: decode response: %w", err)
	}

	if rr.Answer != "" {
		return rr.Answer, nil
	}
	if len(rr.Candidates) > 0 && len(rr.Candidates[0].Content.Parts) > 0 {
		return rr.Candidates[0].Content.Parts[0].Text, nil
	}
	return "", fmt.Errorf("answer: empty remote response")
}

// buildPrompt renders the instruction, the numbered tab context, and the
// question into one prompt.
func buildPrompt(question string, entries []ContextEntry) string {
	var tabs strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&tabs, "%d. %q\n   %s...\n\n", i+1, e.Title, e.Excerpt)
	}

	return fmt.Sprintf(`You are a helpful assistant that summarizes open browser tabs.

User has %d tabs open. When asked "what tabs are open" or similar, provide a numbered list with brief descriptions.

Format:
1. "Exact Tab Title"
   Brief description of the content (one line)

2. "Next Tab Title"
   Brief description...

Available tabs:
%s
User question: %s

Remember: Use exact tab titles in quotes, provide helpful summaries.`,
		len(entries), tabs.String(), question)
}
