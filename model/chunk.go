package model

import (
	"fmt"
	"time"
)

type RetrievalMethod string

const (
	RetrievalMethodVector RetrievalMethod = "vector"
	RetrievalMethodGraph  RetrievalMethod = "graph"
)

// Chunk represents the atomic retrievable unit of a document.
// ChunkID is the natural key; it is derived deterministically from the
// owning document, the page number and the position within the page, so
// re-ingesting the same source produces the same IDs.
type Chunk struct {
	ID         int       `json:"id"`
	ChunkID    string    `json:"chunk_id"`
	DocID      string    `json:"doc_id"`
	PageNumber int       `json:"page_number"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	// Results
	Distance        float64         `json:"distance,omitempty"`
	RetrievalMethod RetrievalMethod `json:"retrieval_method,omitempty"`
}

// NewChunkID derives the chunk identifier "{doc_id}_p{page}_c{seq}_{sub}".
// seq is the chunk sequence taken from the OCR page file name, sub is the
// 1-based sub-chunk index produced by the chunking method.
func NewChunkID(docID string, page int, seq int, sub int) string {
	return fmt.Sprintf("%s_p%d_c%d_%d", docID, page, seq, sub)
}
