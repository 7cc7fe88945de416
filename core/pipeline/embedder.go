package pipeline

import (
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/hybridqa/helper"
)

// EmbeddingModelName is the sentence transformer used for chunk and query
// embeddings, matching the knowledge base's embedding dimension.
const EmbeddingModelName = "sentence-transformers/all-MiniLM-L6-v2"

// EmbeddingDimension is the output dimension of EmbeddingModelName.
const EmbeddingDimension = 384

// Embedder wraps a hugot feature extraction pipeline. The session is owned
// by the embedder and released via Close.
type Embedder struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
}

// NewEmbedder creates an embedder using the all-MiniLM-L6-v2 sentence
// transformer, downloading the model on first use.
func NewEmbedder() (*Embedder, error) {
	modelPath, err := helper.PrepareModel(EmbeddingModelName, "")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return &Embedder{
		session:  session,
		pipeline: sentencePipeline,
	}, nil
}

// Embed generates the embedding for a single text.
func (e *Embedder) Embed(text string) ([]float32, error) {
	result, err := e.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding generated")
	}

	return result.Embeddings[0], nil
}

// Close releases the hugot session.
func (e *Embedder) Close() error {
	return e.session.Destroy()
}
