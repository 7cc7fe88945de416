package model

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Document represents a source document in the knowledge base.
// DocID is the natural key derived from the source file name and stays
// stable across re-ingestion runs.
type Document struct {
	ID        int64     `json:"id"`
	RID       uuid.UUID `json:"rid"`
	DocID     string    `json:"doc_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDocument creates a document with the title defaulting to the doc ID.
func NewDocument(docID string) *Document {
	return &Document{
		DocID: docID,
		Title: docID,
	}
}

// DocIDFromPath derives the stable document ID from a source file path
// (file name without extension).
func DocIDFromPath(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
