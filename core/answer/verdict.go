package answer

import (
	"strings"

	"github.com/siherrmann/hybridqa/model"
)

// ParseVerdict maps the guardrail's free-text verdict onto the closed
// verdict set. "Partially Passed" is checked before the other verdicts
// because it contains "Passed" as a substring. Text matching none of the
// verdicts is Unparseable; the raw text is preserved on the result either
// way.
func ParseVerdict(text string) model.Verdict {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "partially passed"):
		return model.VerdictPartiallyPassed
	case strings.Contains(lower, "passed"):
		return model.VerdictPassed
	case strings.Contains(lower, "failed"):
		return model.VerdictFailed
	default:
		return model.VerdictUnparseable
	}
}
