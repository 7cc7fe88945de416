package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntityExtractor(t *testing.T) {
	// Note: NewEntityExtractor uses hugot which requires downloading the
	// distilbert-NER model on first run

	t.Run("Create entity extractor", func(t *testing.T) {
		if testing.Short() {
			t.Skip("Skipping NewEntityExtractor test in short mode (requires model download)")
		}

		extractor, err := NewEntityExtractor()
		require.NoError(t, err)
		require.NotNil(t, extractor)
		defer extractor.Close()
	})

	t.Run("Extract entities from text", func(t *testing.T) {
		if testing.Short() {
			t.Skip("Skipping NewEntityExtractor test in short mode (requires model download)")
		}

		extractor, err := NewEntityExtractor()
		require.NoError(t, err)
		defer extractor.Close()

		mentions, err := extractor.Extract("My name is Wolfgang and I live in Berlin.")
		assert.NoError(t, err)

		for _, mention := range mentions {
			t.Logf("  - %s (%s)", mention.Text, mention.Label)
			assert.NotEmpty(t, mention.Text, "Expected mention text to be non-empty")
			assert.NotContains(t, mention.Label, "B-", "Expected BIO prefixes to be stripped")
			assert.NotContains(t, mention.Label, "I-", "Expected BIO prefixes to be stripped")
		}
	})

	t.Run("Handle empty text", func(t *testing.T) {
		if testing.Short() {
			t.Skip("Skipping NewEntityExtractor test in short mode (requires model download)")
		}

		extractor, err := NewEntityExtractor()
		require.NoError(t, err)
		defer extractor.Close()

		mentions, err := extractor.Extract("")
		assert.NoError(t, err)
		assert.Empty(t, mentions, "Expected no mentions for empty text")
	})
}

func TestNormalizeEntityLabel(t *testing.T) {
	t.Run("Strips BIO prefixes", func(t *testing.T) {
		assert.Equal(t, "PER", normalizeEntityLabel("B-PER"))
		assert.Equal(t, "LOC", normalizeEntityLabel("I-LOC"))
		assert.Equal(t, "ORG", normalizeEntityLabel("ORG"))
	})
}
