package answer

import (
	"fmt"
	"strings"

	"github.com/siherrmann/hybridqa/llm"
	"github.com/siherrmann/hybridqa/model"
)

const answerSystemPrompt = "You are a helpful assistant answering based on internal knowledge."

const guardrailSystemPrompt = "You are an AI guardrail checking for accuracy and hallucinations and respond with very concise logic."

// ContextBlock renders the retrieved chunks as the prompt context:
// one block per chunk with its document, page and chunk identifiers,
// joined by blank lines.
func ContextBlock(chunks []*model.Chunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		blocks = append(blocks, fmt.Sprintf("Document: %s, Page: %d, Chunk: %s\nText: %s", chunk.DocID, chunk.PageNumber, chunk.ChunkID, chunk.Text))
	}
	return strings.Join(blocks, "\n\n")
}

// generateMessages builds the answer generation prompt.
func generateMessages(contextText string, query string) []llm.Message {
	return []llm.Message{
		llm.SystemMessage(answerSystemPrompt),
		llm.UserMessage(fmt.Sprintf("Answer the following question using the context below:\n\n%s\n\nQuestion: %s", contextText, query)),
	}
}

// guardrailMessages builds the validation prompt for the second model pass.
func guardrailMessages(contextText string, generatedAnswer string, query string) []llm.Message {
	return []llm.Message{
		llm.SystemMessage(guardrailSystemPrompt),
		llm.UserMessage(fmt.Sprintf("Validate the following answer based on context:\n\n%s\n\nAnswer: %s\n\nQuestion: %s\n\nDoes this answer only use internal knowledge and cite sources correctly? Provide the final verdict: Passed, Failed, or Partially Passed.", contextText, generatedAnswer, query)),
	}
}
