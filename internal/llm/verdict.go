package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/llm-msg-triage/internal/core"
)

// verdictResponse mirrors the JSON object the provider is asked to emit.
// Pointer fields so a missing key is distinguishable from a zero value.
type verdictResponse struct {
	IsSpam         *bool    `json:"is_spam"`
	Confidence     *float64 `json:"confidence"`
	Reason         *string  `json:"reason"`
	Classification *string  `json:"classification"`
}

// Fallback is the conservative verdict used whenever a provider cannot
// produce a valid structured answer. It errs toward flagging, never
// toward silent approval.
func Fallback(reason string) core.ScoreResult {
	return core.ScoreResult{
		IsSpam:         true,
		Confidence:     0.5,
		Reason:         reason,
		Classification: core.ClassSuspicious,
	}
}

// ParseVerdict extracts the JSON object embedded in a provider completion
// and validates it. The object is located between the first '{' and the
// last '}' so surrounding prose does not break parsing. All four fields
// must be present and the classification must be canonical.
func ParseVerdict(raw string) (core.ScoreResult, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return core.ScoreResult{}, fmt.Errorf("no JSON object found in response")
	}

	var resp verdictResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
		return core.ScoreResult{}, fmt.Errorf("failed to parse response as JSON: %w", err)
	}

	switch {
	case resp.IsSpam == nil:
		return core.ScoreResult{}, fmt.Errorf("response missing field: is_spam")
	case resp.Confidence == nil:
		return core.ScoreResult{}, fmt.Errorf("response missing field: confidence")
	case resp.Reason == nil:
		return core.ScoreResult{}, fmt.Errorf("response missing field: reason")
	case resp.Classification == nil:
		return core.ScoreResult{}, fmt.Errorf("response missing field: classification")
	}

	classification := core.Classification(strings.ToLower(strings.TrimSpace(*resp.Classification)))
	if !core.ValidClassification(classification) {
		return core.ScoreResult{}, fmt.Errorf("response has unknown classification: %q", *resp.Classification)
	}

	return core.ScoreResult{
		IsSpam:         *resp.IsSpam,
		Confidence:     clamp(*resp.Confidence),
		Reason:         *resp.Reason,
		Classification: classification,
	}, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
