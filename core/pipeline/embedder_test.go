package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder(t *testing.T) {
	// Note: NewEmbedder uses hugot which requires downloading models
	// These tests may take longer on first run

	t.Run("Create embedder successfully", func(t *testing.T) {
		if testing.Short() {
			t.Skip("Skipping NewEmbedder test in short mode (requires model download)")
		}

		embedder, err := NewEmbedder()
		require.NoError(t, err)
		require.NotNil(t, embedder)
		defer embedder.Close()
	})

	t.Run("Generate embedding for text", func(t *testing.T) {
		if testing.Short() {
			t.Skip("Skipping NewEmbedder test in short mode (requires model download)")
		}

		embedder, err := NewEmbedder()
		require.NoError(t, err)
		defer embedder.Close()

		embedding, err := embedder.Embed("This is a test sentence.")
		require.NoError(t, err)
		assert.Equal(t, EmbeddingDimension, len(embedding), "all-MiniLM-L6-v2 produces 384-dimensional embeddings")

		hasNonZero := false
		for _, val := range embedding {
			if val != 0 {
				hasNonZero = true
				break
			}
		}
		assert.True(t, hasNonZero, "Embedding should contain non-zero values")
	})

	t.Run("Same text produces same embedding", func(t *testing.T) {
		if testing.Short() {
			t.Skip("Skipping NewEmbedder test in short mode (requires model download)")
		}

		embedder, err := NewEmbedder()
		require.NoError(t, err)
		defer embedder.Close()

		embedding1, err := embedder.Embed("Deterministic embedding test")
		require.NoError(t, err)
		embedding2, err := embedder.Embed("Deterministic embedding test")
		require.NoError(t, err)

		require.Equal(t, len(embedding1), len(embedding2))
		for i := range embedding1 {
			assert.InDelta(t, embedding1[i], embedding2[i], 0.0001, "Same text should produce same embedding")
		}
	})

	t.Run("Different texts produce different embeddings", func(t *testing.T) {
		if testing.Short() {
			t.Skip("Skipping NewEmbedder test in short mode (requires model download)")
		}

		embedder, err := NewEmbedder()
		require.NoError(t, err)
		defer embedder.Close()

		embedding1, err := embedder.Embed("Machine learning is fascinating")
		require.NoError(t, err)
		embedding2, err := embedder.Embed("The weather is nice today")
		require.NoError(t, err)

		assert.NotEqual(t, embedding1, embedding2, "Different texts should produce different embeddings")
	})
}
