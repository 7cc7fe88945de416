package answer

import (
	"context"
	"io"
	"log/slog"

	"github.com/siherrmann/hybridqa/helper"
	"github.com/siherrmann/hybridqa/llm"
	"github.com/siherrmann/hybridqa/model"
)

// Retriever is the hybrid retrieval port.
type Retriever interface {
	Retrieve(ctx context.Context, query string, config *model.QueryConfig) ([]*model.Chunk, error)
}

// Generator is the text-generation port. Deltas are written to w as they
// arrive (w may be nil); the return value is the full response text.
type Generator interface {
	CompleteStream(ctx context.Context, messages []llm.Message, w io.Writer) (string, error)
}

// Orchestrator drives a query through retrieve → generate → guardrail →
// assemble. The flow is linear: zero retrieved chunks short-circuits to the
// empty result without any model call, and generation failures propagate
// uncaught.
type Orchestrator struct {
	retriever Retriever
	generator Generator
	logger    *slog.Logger
	stream    io.Writer
}

// NewOrchestrator creates an orchestrator over the given retriever and
// generator.
func NewOrchestrator(retriever Retriever, generator Generator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}
}

// SetStreamWriter echoes generation and guardrail deltas to w as they
// arrive, for interactive callers.
func (o *Orchestrator) SetStreamWriter(w io.Writer) {
	o.stream = w
}

// AnswerQuery runs the full query pipeline and assembles the structured
// result. A topK of zero or less uses the default.
func (o *Orchestrator) AnswerQuery(ctx context.Context, query string, topK int) (*model.AnswerResult, error) {
	config := model.DefaultQueryConfig()
	if topK > 0 {
		config.TopK = topK
	}

	chunks, err := o.retriever.Retrieve(ctx, query, config)
	if err != nil {
		return nil, helper.NewError("retrieve context", err)
	}

	if len(chunks) == 0 {
		o.logger.Info("No relevant context found", slog.String("query", query))
		return model.EmptyAnswerResult(), nil
	}

	contextText := ContextBlock(chunks)

	generatedAnswer, err := o.generator.CompleteStream(ctx, generateMessages(contextText, query), o.stream)
	if err != nil {
		return nil, helper.NewError("generate answer", err)
	}

	guardrail, err := o.generator.CompleteStream(ctx, guardrailMessages(contextText, generatedAnswer, query), o.stream)
	if err != nil {
		return nil, helper.NewError("guardrail check", err)
	}

	verdict := ParseVerdict(guardrail)
	o.logger.Info("Query answered",
		slog.Int("chunks_used", len(chunks)),
		slog.String("verdict", string(verdict)),
	)

	return &model.AnswerResult{
		Answer:     generatedAnswer,
		Guardrail:  guardrail,
		Verdict:    verdict,
		ChunksUsed: chunks,
	}, nil
}
