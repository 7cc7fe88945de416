package helper

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline's failure taxonomy. External service
// failures (database, language model) are wrapped but carry no sentinel;
// they propagate to the caller unmodified.
var (
	// ErrConfiguration marks an invalid or missing configuration value,
	// e.g. an unknown chunking method.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing persisted artifact, e.g. the vector
	// index or metadata file.
	ErrNotFound = errors.New("not found")
	// ErrConsistency marks a violated cross-store precondition, e.g. a
	// chunk upsert referencing a document that does not exist.
	ErrConsistency = errors.New("consistency error")
)

// NewError wraps an error with the operation that failed.
func NewError(op string, err error) error {
	return fmt.Errorf("error in %s: %w", op, err)
}
