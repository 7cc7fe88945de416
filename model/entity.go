package model

import (
	"time"

	"github.com/google/uuid"
)

// Entity represents a named entity mentioned in chunk text.
// Name is the exact extracted text span and is the unique key; near-duplicate
// surface forms ("NYC" vs "New York City") stay separate entities.
type Entity struct {
	ID        int       `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EntityMention is a single extracted mention before it is merged into the
// graph store.
type EntityMention struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}
