package pipeline

import (
	"fmt"
	"strings"

	"github.com/siherrmann/hybridqa/helper"
)

// Chunking methods accepted by ChunkerForMethod.
const (
	ChunkMethodSentence    = "sentence"
	ChunkMethodParagraph   = "paragraph"
	ChunkMethodFixedLength = "fixed_length"
)

// DefaultChunkSize is the fixed-length window size in characters.
const DefaultChunkSize = 500

// ChunkerForMethod returns the chunker for the given method name. The
// chunk size only applies to the fixed-length method. An unknown method is
// a configuration error, raised before any chunk is produced.
func ChunkerForMethod(method string, chunkSize int) (ChunkFunc, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	switch method {
	case ChunkMethodSentence:
		return SentenceChunker(), nil
	case ChunkMethodParagraph:
		return ParagraphChunker(), nil
	case ChunkMethodFixedLength:
		return FixedLengthChunker(chunkSize), nil
	default:
		return nil, helper.NewError("select chunker", fmt.Errorf("unknown chunking method %q: %w", method, helper.ErrConfiguration))
	}
}

// SentenceChunker creates a chunker that splits text at sentence
// boundaries, one chunk per sentence. The chunk size does not apply to
// this method.
func SentenceChunker() ChunkFunc {
	return func(text string) ([]string, error) {
		return splitSentences(text), nil
	}
}

// ParagraphChunker creates a chunker that splits on blank-line boundaries.
// Empty paragraphs are dropped.
func ParagraphChunker() ChunkFunc {
	return func(text string) ([]string, error) {
		paragraphs := strings.Split(text, "\n\n")

		var chunks []string
		for _, para := range paragraphs {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			chunks = append(chunks, para)
		}

		return chunks, nil
	}
}

// FixedLengthChunker creates a chunker that cuts non-overlapping character
// windows of the given size. The final window may be shorter.
func FixedLengthChunker(size int) ChunkFunc {
	return func(text string) ([]string, error) {
		if size <= 0 {
			return nil, helper.NewError("fixed length chunker", fmt.Errorf("chunk size must be positive: %w", helper.ErrConfiguration))
		}

		runes := []rune(strings.TrimSpace(text))

		var chunks []string
		for start := 0; start < len(runes); start += size {
			end := start + size
			if end > len(runes) {
				end = len(runes)
			}
			chunks = append(chunks, string(runes[start:end]))
		}

		return chunks, nil
	}
}

// splitSentences splits text at sentence-ending punctuation followed by a
// space. Whitespace-only fragments are dropped.
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "! ", "!|")
	text = strings.ReplaceAll(text, "? ", "?|")
	text = strings.ReplaceAll(text, ". ", ".|")

	var sentences []string
	for _, s := range strings.Split(text, "|") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}
