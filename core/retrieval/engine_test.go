package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/siherrmann/hybridqa/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGraph returns fixed chunks for any keyword, or an error.
type fakeGraph struct {
	chunks []*model.Chunk
	err    error
	calls  int
}

func (f *fakeGraph) SelectChunksByEntityKeyword(keyword string) ([]*model.Chunk, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

func chunkWithID(chunkID string) *model.Chunk {
	return &model.Chunk{ChunkID: chunkID, DocID: "doc", PageNumber: 1, Text: "text for " + chunkID}
}

func staticVectors(chunks ...*model.Chunk) VectorSearchFunc {
	return func(embedding []float32, topK int) ([]*model.Chunk, error) {
		if topK > len(chunks) {
			topK = len(chunks)
		}
		return chunks[:topK], nil
	}
}

func staticEmbedder(text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func TestEngineRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("Vector order precedes graph-only additions", func(t *testing.T) {
		vectors := staticVectors(chunkWithID("A"), chunkWithID("B"), chunkWithID("C"))
		graph := &fakeGraph{chunks: []*model.Chunk{chunkWithID("B"), chunkWithID("D")}}
		engine := NewEngine(vectors, graph, staticEmbedder, nil)

		results, err := engine.Retrieve(ctx, "some query", &model.QueryConfig{TopK: 5})
		assert.NoError(t, err, "Expected Retrieve to not return an error")
		require.Len(t, results, 4, "Expected vector hits plus graph-only additions")
		assert.Equal(t, "A", results[0].ChunkID, "Expected vector order preserved")
		assert.Equal(t, "B", results[1].ChunkID, "Expected vector order preserved")
		assert.Equal(t, "C", results[2].ChunkID, "Expected vector order preserved")
		assert.Equal(t, "D", results[3].ChunkID, "Expected graph-only chunk appended")
	})

	t.Run("Merged result is truncated to top-k", func(t *testing.T) {
		vectors := staticVectors(chunkWithID("A"), chunkWithID("B"))
		graph := &fakeGraph{chunks: []*model.Chunk{chunkWithID("C"), chunkWithID("D")}}
		engine := NewEngine(vectors, graph, staticEmbedder, nil)

		results, err := engine.Retrieve(ctx, "some query", &model.QueryConfig{TopK: 3})
		assert.NoError(t, err)
		require.Len(t, results, 3, "Expected merged set truncated to top-k")
		assert.Equal(t, "C", results[2].ChunkID, "Expected the first graph addition to survive truncation")
	})

	t.Run("Graph branch never reranks vector hits", func(t *testing.T) {
		vectors := staticVectors(chunkWithID("A"), chunkWithID("B"))
		// Graph returns the same chunks in reversed order.
		graph := &fakeGraph{chunks: []*model.Chunk{chunkWithID("B"), chunkWithID("A")}}
		engine := NewEngine(vectors, graph, staticEmbedder, nil)

		results, err := engine.Retrieve(ctx, "some query", &model.QueryConfig{TopK: 5})
		assert.NoError(t, err)
		require.Len(t, results, 2, "Expected duplicates removed")
		assert.Equal(t, "A", results[0].ChunkID, "Expected vector ranking untouched")
		assert.Equal(t, "B", results[1].ChunkID, "Expected vector ranking untouched")
	})

	t.Run("Graph store failure degrades to vector-only", func(t *testing.T) {
		vectors := staticVectors(chunkWithID("A"))
		graph := &fakeGraph{err: fmt.Errorf("connection refused")}
		engine := NewEngine(vectors, graph, staticEmbedder, nil)

		results, err := engine.Retrieve(ctx, "some query", &model.QueryConfig{TopK: 5})
		assert.NoError(t, err, "Expected graph failure to not fail retrieval")
		require.Len(t, results, 1, "Expected pure vector results")
		assert.Equal(t, "A", results[0].ChunkID)
	})

	t.Run("Nil graph searcher is vector-only", func(t *testing.T) {
		vectors := staticVectors(chunkWithID("A"))
		engine := NewEngine(vectors, nil, staticEmbedder, nil)

		results, err := engine.Retrieve(ctx, "some query", &model.QueryConfig{TopK: 5})
		assert.NoError(t, err)
		assert.Len(t, results, 1, "Expected pure vector results without a graph store")
	})

	t.Run("Graph chunks are tagged with the graph retrieval method", func(t *testing.T) {
		vectors := staticVectors()
		graph := &fakeGraph{chunks: []*model.Chunk{chunkWithID("G")}}
		engine := NewEngine(vectors, graph, staticEmbedder, nil)

		results, err := engine.Retrieve(ctx, "some query", &model.QueryConfig{TopK: 5})
		assert.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, model.RetrievalMethodGraph, results[0].RetrievalMethod, "Expected graph retrieval method tag")
	})

	t.Run("Empty stores yield an empty result", func(t *testing.T) {
		engine := NewEngine(staticVectors(), &fakeGraph{}, staticEmbedder, nil)

		results, err := engine.Retrieve(ctx, "some query", &model.QueryConfig{TopK: 5})
		assert.NoError(t, err)
		assert.Empty(t, results, "Expected no chunks from empty stores")
	})

	t.Run("Embedder failure is a hard error", func(t *testing.T) {
		engine := NewEngine(staticVectors(chunkWithID("A")), &fakeGraph{}, func(text string) ([]float32, error) {
			return nil, fmt.Errorf("model not loaded")
		}, nil)

		_, err := engine.Retrieve(ctx, "some query", &model.QueryConfig{TopK: 5})
		assert.Error(t, err, "Expected embedder failure to propagate")
	})

	t.Run("Nil config uses the default top-k", func(t *testing.T) {
		var chunks []*model.Chunk
		for i := 0; i < 10; i++ {
			chunks = append(chunks, chunkWithID(fmt.Sprintf("C%d", i)))
		}
		engine := NewEngine(staticVectors(chunks...), nil, staticEmbedder, nil)

		results, err := engine.Retrieve(ctx, "some query", nil)
		assert.NoError(t, err)
		assert.Len(t, results, model.DefaultQueryConfig().TopK, "Expected the default top-k")
	})

	t.Run("Short tokens do not reach the graph store", func(t *testing.T) {
		graph := &fakeGraph{}
		engine := NewEngine(staticVectors(), graph, staticEmbedder, nil)

		_, err := engine.Retrieve(ctx, "is an of", &model.QueryConfig{TopK: 5})
		assert.NoError(t, err)
		assert.Zero(t, graph.calls, "Expected no keyword lookups for tokens of length <= 2")
	})
}

func TestExtractKeywords(t *testing.T) {
	t.Run("Lowercases and drops short tokens", func(t *testing.T) {
		keywords := extractKeywords("Who IS Marie Curie of")
		assert.Equal(t, []string{"who", "marie", "curie"}, keywords, "Expected lowercase tokens of length > 2")
	})

	t.Run("Empty query yields no keywords", func(t *testing.T) {
		assert.Empty(t, extractKeywords("  "), "Expected no keywords for an empty query")
	})
}
