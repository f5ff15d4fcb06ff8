package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	errx "github.com/finadvisor-poc/server/internal/core/error"
)

// safety limits to avoid pathological model output
const (
	maxContentLen = 64 * 1024
	maxErrSnippet = 200
)

// stripCodeFence removes a surrounding markdown code fence, tolerating an
// optional language tag on the opening fence (```json and friends).
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimLeft(s, "`")
		if j := strings.IndexAny(s, "{["); j > 0 {
			s = s[j:]
		}
	}
	if j := strings.LastIndex(s, "```"); j >= 0 {
		s = s[:j]
	}
	return strings.TrimSpace(s)
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}

// ParseVerdict decodes a model response into a Verdict, stripping code-fence
// decoration first. Any decode failure wraps errx.ErrVerdictParse so callers
// can run the fallback policy instead of surfacing the error.
func ParseVerdict(content string) (*Verdict, error) {
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	s := stripCodeFence(content)
	if s == "" {
		return nil, fmt.Errorf("%w: empty response", errx.ErrVerdictParse)
	}

	var v Verdict
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("%w: %v (content: %q)", errx.ErrVerdictParse, err, safeSnippet(s))
	}
	return &v, nil
}
