package retrieval

import (
	"context"
	"log/slog"
	"strings"

	"github.com/siherrmann/hybridqa/model"
)

// VectorSearcher is the vector branch port: nearest chunks by ascending
// distance. Implemented by the flat file index and by the pgvector-backed
// chunks handler.
type VectorSearcher interface {
	Search(embedding []float32, topK int) ([]*model.Chunk, error)
}

// VectorSearchFunc adapts a plain function to the VectorSearcher port.
type VectorSearchFunc func(embedding []float32, topK int) ([]*model.Chunk, error)

func (f VectorSearchFunc) Search(embedding []float32, topK int) ([]*model.Chunk, error) {
	return f(embedding, topK)
}

// GraphSearcher is the graph keyword branch port: chunks mentioning entities
// whose name contains the keyword.
type GraphSearcher interface {
	SelectChunksByEntityKeyword(keyword string) ([]*model.Chunk, error)
}

// EmbedFunc embeds the query text for the vector branch.
type EmbedFunc func(text string) ([]float32, error)

// Engine merges ranked vector hits with graph keyword hits into a single
// deduplicated context set. The vector order is always preserved and always
// precedes graph-only additions; the graph branch supplements, never
// reranks.
type Engine struct {
	vectors  VectorSearcher
	graph    GraphSearcher
	embedder EmbedFunc
	logger   *slog.Logger
}

// NewEngine creates a new retrieval engine. A nil graph searcher degrades
// retrieval to pure vector search.
func NewEngine(vectors VectorSearcher, graph GraphSearcher, embedder EmbedFunc, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		vectors:  vectors,
		graph:    graph,
		embedder: embedder,
		logger:   logger,
	}
}

// Retrieve returns up to config.TopK chunk records for the query:
// vector-branch results in ascending-distance order, followed by
// graph-branch results not already present by chunk ID.
func (e *Engine) Retrieve(ctx context.Context, query string, config *model.QueryConfig) ([]*model.Chunk, error) {
	if config == nil {
		config = model.DefaultQueryConfig()
	}

	embedding, err := e.embedder(query)
	if err != nil {
		return nil, err
	}

	vectorChunks, err := e.vectors.Search(embedding, config.TopK)
	if err != nil {
		return nil, err
	}

	graphChunks := e.graphRetrieve(query, config.TopK)

	seen := make(map[string]bool, len(vectorChunks))
	merged := make([]*model.Chunk, 0, len(vectorChunks)+len(graphChunks))
	for _, chunk := range vectorChunks {
		if seen[chunk.ChunkID] {
			continue
		}
		seen[chunk.ChunkID] = true
		merged = append(merged, chunk)
	}

	for _, chunk := range graphChunks {
		if seen[chunk.ChunkID] {
			continue
		}
		seen[chunk.ChunkID] = true
		merged = append(merged, chunk)
	}

	if len(merged) > config.TopK {
		merged = merged[:config.TopK]
	}

	e.logger.Debug("Hybrid retrieval complete",
		slog.Int("vector", len(vectorChunks)),
		slog.Int("graph", len(graphChunks)),
		slog.Int("merged", len(merged)),
	)

	return merged, nil
}

// graphRetrieve runs the keyword branch. An unavailable or failing graph
// store degrades to an empty branch, logged, never an error.
func (e *Engine) graphRetrieve(query string, topK int) []*model.Chunk {
	if e.graph == nil {
		return nil
	}

	var chunks []*model.Chunk
	seen := make(map[string]bool)

	for _, keyword := range extractKeywords(query) {
		matches, err := e.graph.SelectChunksByEntityKeyword(keyword)
		if err != nil {
			e.logger.Warn("Graph branch unavailable, degrading to vector-only retrieval", slog.String("error", err.Error()))
			return nil
		}

		for _, chunk := range matches {
			if seen[chunk.ChunkID] {
				continue
			}
			seen[chunk.ChunkID] = true
			chunk.RetrievalMethod = model.RetrievalMethodGraph
			chunks = append(chunks, chunk)
		}
	}

	if len(chunks) > topK {
		chunks = chunks[:topK]
	}

	return chunks
}

// extractKeywords tokenizes the query into lowercase whitespace-delimited
// words of length > 2. No stemming, no stop-word filtering.
func extractKeywords(query string) []string {
	var keywords []string
	for _, token := range strings.Fields(strings.ToLower(query)) {
		if len(token) > 2 {
			keywords = append(keywords, token)
		}
	}
	return keywords
}
