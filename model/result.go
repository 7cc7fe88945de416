package model

// Verdict is the guardrail's judgement of a generated answer, parsed from
// the raw verdict text.
type Verdict string

const (
	VerdictPassed          Verdict = "Passed"
	VerdictFailed          Verdict = "Failed"
	VerdictPartiallyPassed Verdict = "Partially Passed"
	VerdictUnparseable     Verdict = "Unparseable"
)

// AnswerResult is the assembled output of a full query:
// generated answer, guardrail verdict and the chunks used as context.
// Empty marks the no-relevant-context terminal state; it is a normal
// result value, not an error.
type AnswerResult struct {
	Answer     string   `json:"answer"`
	Guardrail  string   `json:"guardrail"`
	Verdict    Verdict  `json:"verdict"`
	ChunksUsed []*Chunk `json:"chunks_used"`
	Empty      bool     `json:"empty"`
}

// EmptyAnswerResult returns the sentinel result for a query that retrieved
// no context. The language model is never invoked for such queries.
func EmptyAnswerResult() *AnswerResult {
	return &AnswerResult{
		Answer: "No relevant context found in knowledge base.",
		Empty:  true,
	}
}
