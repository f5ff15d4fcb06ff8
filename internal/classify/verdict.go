// Package classify turns free-form user text into a category verdict by
// prompting a deterministic chat model and repairing its output with a
// last-matched-category fallback policy.
package classify

// Verdict is the structured result of one classification attempt. It is
// produced fresh per query and never persisted; only TopMatch feeds the
// user's scratch state.
type Verdict struct {
	TopMatch        string  `json:"top_match"`
	ConfidenceScore float64 `json:"confidence_score"`
	NotSupported    bool    `json:"not_supported"`
	ContextChange   bool    `json:"context_change"`
	Error           string  `json:"error,omitempty"`
}
