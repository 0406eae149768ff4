package answer

import "strings"

// Validator decides whether a remote answer is usable. The remote service is
// untrusted and may return templated filler; answers it rejects are replaced
// by the deterministic local answer.
type Validator func(answer string) bool

// degeneratePatterns are known filler shapes the remote service echoes back
// when it has nothing to say.
var degeneratePatterns = []string{
	"Found content. Check:",
	"Found relevant content.\nCheck:",
}

// DefaultValidator rejects empty, too-short, quoteless, or known-degenerate
// answers. A usable answer cites at least one tab title in double quotes.
func DefaultValidator(answer string) bool {
	a := strings.TrimSpace(answer)
	if len(a) < 50 {
		return false
	}
	if !strings.Contains(a, `"`) {
		return false
	}
	for _, pat := range degeneratePatterns {
		if strings.Contains(a, pat) {
			return false
		}
	}
	return true
}
