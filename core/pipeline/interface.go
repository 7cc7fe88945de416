package pipeline

import (
	"strings"

	"github.com/siherrmann/hybridqa/model"
)

// ChunkFunc splits one page's text into sub-chunk texts.
type ChunkFunc func(text string) ([]string, error)

// EmbedFunc is a function that generates an embedding for text.
type EmbedFunc func(text string) ([]float32, error)

// EntityExtractFunc extracts entity mentions from text.
type EntityExtractFunc func(text string) ([]model.EntityMention, error)

// Pipeline combines chunking, embedding and entity extraction functions.
type Pipeline struct {
	Chunker         ChunkFunc
	Embedder        EmbedFunc
	EntityExtractor EntityExtractFunc // Optional
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// SetEntityExtractor sets the entity extraction function
func (p *Pipeline) SetEntityExtractor(extractor EntityExtractFunc) {
	p.EntityExtractor = extractor
}

// ChunkPage splits one OCR page text into chunk records with deterministic
// IDs "{doc_id}_p{page}_c{seq}_{i}". The sub-chunk index i is 1-based.
// A page that is empty after trimming yields zero chunks, not an error.
func (p *Pipeline) ChunkPage(docID string, page int, seq int, text string) ([]*model.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	texts, err := p.Chunker(text)
	if err != nil {
		return nil, err
	}

	chunks := make([]*model.Chunk, 0, len(texts))
	for i, chunkText := range texts {
		chunks = append(chunks, &model.Chunk{
			ChunkID:    model.NewChunkID(docID, page, seq, i+1),
			DocID:      docID,
			PageNumber: page,
			Text:       chunkText,
		})
	}

	return chunks, nil
}
