package pipeline

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/hybridqa/helper"
	"github.com/siherrmann/hybridqa/model"
)

// NERModelName is the token classification model used for entity extraction.
// Detects PER, ORG, LOC and MISC entities.
const NERModelName = "KnightsAnalytics/distilbert-NER"

// EntityExtractor wraps a hugot token classification pipeline. The session
// is owned by the extractor and released via Close.
type EntityExtractor struct {
	session  *hugot.Session
	pipeline *pipelines.TokenClassificationPipeline
}

// NewEntityExtractor creates an entity extractor using distilbert-NER,
// downloading the model on first use.
func NewEntityExtractor() (*EntityExtractor, error) {
	modelPath, err := helper.PrepareModel(NERModelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}), // Ignore non-entity tokens
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return &EntityExtractor{
		session:  session,
		pipeline: nerPipeline,
	}, nil
}

// Extract runs NER on the text and returns the raw entity mentions.
// The mention text is the exact extracted span; merging by name happens in
// the graph store.
func (e *EntityExtractor) Extract(text string) ([]model.EntityMention, error) {
	result, err := e.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to run NER: %w", err)
	}

	if len(result.Entities) == 0 {
		return nil, nil
	}

	var mentions []model.EntityMention
	for _, entity := range result.Entities[0] {
		name := strings.TrimSpace(entity.Word)
		if name == "" {
			continue
		}

		mentions = append(mentions, model.EntityMention{
			Text:  name,
			Label: normalizeEntityLabel(entity.Entity),
		})
	}

	return mentions, nil
}

// Close releases the hugot session.
func (e *EntityExtractor) Close() error {
	return e.session.Destroy()
}

// normalizeEntityLabel removes BIO tagging prefixes (B- for beginning, I-
// for inside) from NER labels.
func normalizeEntityLabel(label string) string {
	if strings.HasPrefix(label, "B-") {
		return label[2:]
	}
	if strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}
