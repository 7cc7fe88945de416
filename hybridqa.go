// Package hybridqa answers questions over scanned documents by combining
// a flat vector index with a Postgres property graph. PDFs are OCRed to
// per-page text files, chunked deterministically, embedded into the index
// and upserted into the graph, where entity mentions link chunks across
// documents. Retrieval merges both stores; the answer is generated and
// validated by a language model.
package hybridqa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/siherrmann/hybridqa/core/answer"
	"github.com/siherrmann/hybridqa/core/pipeline"
	"github.com/siherrmann/hybridqa/core/retrieval"
	"github.com/siherrmann/hybridqa/core/vectorindex"
	"github.com/siherrmann/hybridqa/database"
	"github.com/siherrmann/hybridqa/helper"
	"github.com/siherrmann/hybridqa/llm"
	"github.com/siherrmann/hybridqa/model"
	"github.com/siherrmann/hybridqa/ocr"
)

// progressInterval is the chunk count between progress log lines during
// ingestion.
const progressInterval = 50

// AgentConfig holds the file system and index configuration of an agent.
type AgentConfig struct {
	// OCRRoot is the directory holding one subdirectory of page text
	// files per document.
	OCRRoot string
	// IndexPath is the path stem of the vector index artifacts.
	IndexPath string
	// EmbeddingDim is the dimension of the chunk embeddings.
	EmbeddingDim int
	// DatabaseVectorSearch switches the vector branch of retrieval from
	// the flat file index to the pgvector-backed chunk store.
	DatabaseVectorSearch bool
	// ForceSQLReload reloads the SQL functions even if they exist.
	ForceSQLReload bool
}

// NewAgentConfigFromEnv reads the agent configuration from the environment
// (OCR_ROOT, INDEX_PATH, EMBEDDING_DIM), falling back to defaults.
func NewAgentConfigFromEnv() (*AgentConfig, error) {
	config := &AgentConfig{
		OCRRoot:      os.Getenv("OCR_ROOT"),
		IndexPath:    os.Getenv("INDEX_PATH"),
		EmbeddingDim: pipeline.EmbeddingDimension,
	}
	if config.OCRRoot == "" {
		config.OCRRoot = "ocr_chunks"
	}
	if config.IndexPath == "" {
		config.IndexPath = "vector_index"
	}
	if dim := os.Getenv("EMBEDDING_DIM"); dim != "" {
		parsed, err := strconv.Atoi(dim)
		if err != nil || parsed <= 0 {
			return nil, helper.NewError("read agent configuration", fmt.Errorf("invalid EMBEDDING_DIM %q: %w", dim, helper.ErrConfiguration))
		}
		config.EmbeddingDim = parsed
	}

	return config, nil
}

// Agent is the facade over ingestion, retrieval and answering. All
// collaborators are injected at construction; UseDefaultPipeline attaches
// the local inference models for installations that want them.
type Agent struct {
	config    *AgentConfig
	logger    *slog.Logger
	db        *helper.Database
	documents database.DocumentsDBHandlerFunctions
	chunks    database.ChunksDBHandlerFunctions
	entities  database.EntitiesDBHandlerFunctions

	pipeline  *pipeline.Pipeline
	index     *vectorindex.FlatIndex
	ocrEngine ocr.Engine
	generator answer.Generator
	stream    io.Writer

	// Owned inference sessions when UseDefaultPipeline was called.
	embedder  *pipeline.Embedder
	extractor *pipeline.EntityExtractor
}

// NewAgent connects to Postgres using the environment configuration,
// initializes the graph store handlers and loads the vector index from
// disk if its artifacts exist. The language model client is created when
// GROQ_API_KEY is set; without it only ingestion operations work.
func NewAgent(config *AgentConfig, logger *slog.Logger) (*Agent, error) {
	if config == nil {
		return nil, helper.NewError("create agent", fmt.Errorf("config is nil: %w", helper.ErrConfiguration))
	}
	if logger == nil {
		logger = slog.Default()
	}

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return nil, helper.NewError("create agent", err)
	}
	db := helper.NewDatabase("hybridqa", dbConfig, logger)

	documentsDbHandler, err := database.NewDocumentsDBHandler(db, config.ForceSQLReload)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}
	chunksDbHandler, err := database.NewChunksDBHandler(db, config.EmbeddingDim, config.ForceSQLReload)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}
	entitiesDbHandler, err := database.NewEntitiesDBHandler(db, config.ForceSQLReload)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	index, err := loadOrCreateIndex(config)
	if err != nil {
		return nil, err
	}
	logger.Info("Vector index ready", slog.Int("chunks", index.Count()))

	agent := &Agent{
		config:    config,
		logger:    logger,
		db:        db,
		documents: documentsDbHandler,
		chunks:    chunksDbHandler,
		entities:  entitiesDbHandler,
		pipeline:  pipeline.NewPipeline(nil, nil),
		index:     index,
		ocrEngine: ocr.NewTesseractEngine(),
	}

	llmConfig, err := llm.NewConfigFromEnv()
	if err != nil {
		logger.Warn("Language model not configured, answering disabled", slog.String("error", err.Error()))
		return agent, nil
	}
	client, err := llm.NewClient(llmConfig)
	if err != nil {
		return nil, helper.NewError("create llm client", err)
	}
	agent.generator = client

	return agent, nil
}

// loadOrCreateIndex restores the vector index from its artifacts, or
// creates an empty one when no artifacts exist. A persisted index whose
// dimension differs from the configured one is a stale artifact and fails
// here instead of at query time.
func loadOrCreateIndex(config *AgentConfig) (*vectorindex.FlatIndex, error) {
	index, err := vectorindex.Load(config.IndexPath)
	if errors.Is(err, helper.ErrNotFound) {
		index, err = vectorindex.NewFlatIndex(config.EmbeddingDim)
	}
	if err != nil {
		return nil, helper.NewError("load vector index", err)
	}

	if index.Dimension() != config.EmbeddingDim {
		return nil, helper.NewError("load vector index", fmt.Errorf("index artifact %s has dimension %d, configured dimension is %d: %w", config.IndexPath, index.Dimension(), config.EmbeddingDim, helper.ErrConfiguration))
	}

	return index, nil
}

// NewAgentWithStores creates an agent over already constructed
// collaborators, without touching the environment. Used by embedders of the
// library and by tests.
func NewAgentWithStores(
	config *AgentConfig,
	logger *slog.Logger,
	documents database.DocumentsDBHandlerFunctions,
	chunks database.ChunksDBHandlerFunctions,
	entities database.EntitiesDBHandlerFunctions,
	index *vectorindex.FlatIndex,
) *Agent {
	if logger == nil {
		logger = slog.Default()
	}

	return &Agent{
		config:    config,
		logger:    logger,
		documents: documents,
		chunks:    chunks,
		entities:  entities,
		pipeline:  pipeline.NewPipeline(nil, nil),
		index:     index,
		ocrEngine: ocr.NewTesseractEngine(),
	}
}

// UseDefaultPipeline attaches the local inference models: the
// all-MiniLM-L6-v2 embedder and the distilbert NER extractor. Models are
// downloaded on first use; the sessions are released by Close.
func (a *Agent) UseDefaultPipeline() error {
	embedder, err := pipeline.NewEmbedder()
	if err != nil {
		return helper.NewError("create embedder", err)
	}

	extractor, err := pipeline.NewEntityExtractor()
	if err != nil {
		closeErr := embedder.Close()
		if closeErr != nil {
			return helper.NewError("create entity extractor", errors.Join(err, closeErr))
		}
		return helper.NewError("create entity extractor", err)
	}

	a.embedder = embedder
	a.extractor = extractor
	a.pipeline.Embedder = embedder.Embed
	a.pipeline.SetEntityExtractor(extractor.Extract)

	return nil
}

// SetEmbedder sets the embedding function used for chunks and queries.
func (a *Agent) SetEmbedder(embed pipeline.EmbedFunc) {
	a.pipeline.Embedder = embed
}

// SetEntityExtractor sets the entity extraction function used during graph
// enrichment.
func (a *Agent) SetEntityExtractor(extract pipeline.EntityExtractFunc) {
	a.pipeline.SetEntityExtractor(extract)
}

// SetOCREngine replaces the default tesseract engine.
func (a *Agent) SetOCREngine(engine ocr.Engine) {
	a.ocrEngine = engine
}

// SetGenerator replaces the language model client.
func (a *Agent) SetGenerator(generator answer.Generator) {
	a.generator = generator
}

// SetStreamWriter echoes language model deltas to w during AnswerQuery.
func (a *Agent) SetStreamWriter(w io.Writer) {
	a.stream = w
}

// ChunkAllDocuments chunks every page of every document under the OCR root
// with the given method, in sorted document and page order, so a re-run
// over unchanged inputs produces an identical chunk ID sequence. An unknown
// method fails before any chunk is produced.
func (a *Agent) ChunkAllDocuments(method string, chunkSize int) ([]*model.Chunk, error) {
	chunker, err := pipeline.ChunkerForMethod(method, chunkSize)
	if err != nil {
		return nil, helper.NewError("select chunking method", err)
	}
	chunkPipeline := pipeline.NewPipeline(chunker, a.pipeline.Embedder)

	docIDs, err := ocr.ListDocuments(a.config.OCRRoot)
	if err != nil {
		return nil, helper.NewError("list documents", err)
	}

	var allChunks []*model.Chunk
	for _, docID := range docIDs {
		pageFiles, err := ocr.ListPageFiles(filepath.Join(a.config.OCRRoot, docID))
		if err != nil {
			return nil, helper.NewError("list page files", err)
		}

		for _, pageFile := range pageFiles {
			text, err := ocr.ReadPageText(pageFile.Path)
			if err != nil {
				return nil, helper.NewError("read page text", err)
			}

			chunks, err := chunkPipeline.ChunkPage(docID, pageFile.Page, pageFile.Seq, text)
			if err != nil {
				return nil, helper.NewError("chunk page", err)
			}
			allChunks = append(allChunks, chunks...)
		}
	}

	a.logger.Info("Chunked knowledge base",
		slog.Int("documents", len(docIDs)),
		slog.Int("chunks", len(allChunks)),
		slog.String("method", method),
	)

	return allChunks, nil
}

// RebuildVectorIndex embeds the given chunks into a fresh index and saves
// its paired artifacts, replacing the previous index. Nil chunks rebuilds
// from every chunk in the graph store. Deliberately proportional to the
// total chunk count.
func (a *Agent) RebuildVectorIndex(ctx context.Context, chunks []*model.Chunk) error {
	if a.pipeline.Embedder == nil {
		return helper.NewError("rebuild vector index", fmt.Errorf("no embedder configured: %w", helper.ErrConfiguration))
	}

	if chunks == nil {
		var err error
		chunks, err = a.chunks.SelectAllChunks()
		if err != nil {
			return helper.NewError("read chunks", err)
		}
	}

	index, err := vectorindex.NewFlatIndex(a.config.EmbeddingDim)
	if err != nil {
		return helper.NewError("create vector index", err)
	}

	for i, chunk := range chunks {
		err := ctx.Err()
		if err != nil {
			return helper.NewError("rebuild vector index", err)
		}

		embedding, err := a.pipeline.Embedder(chunk.Text)
		if err != nil {
			return helper.NewError("embed chunk", err)
		}
		chunk.Embedding = embedding

		err = index.Add(embedding, chunk)
		if err != nil {
			return helper.NewError("index chunk", err)
		}

		if (i+1)%progressInterval == 0 {
			a.logger.Info("Embedding chunks", slog.Int("done", i+1), slog.Int("total", len(chunks)))
		}
	}

	err = index.Save(a.config.IndexPath)
	if err != nil {
		return helper.NewError("save vector index", err)
	}
	a.index = index

	a.logger.Info("Rebuilt vector index", slog.Int("chunks", index.Count()))

	return nil
}

// AppendToVectorIndex embeds only the given chunks and appends them to the
// existing index, then saves it. Cheaper than a full rebuild, but stale
// entries for re-chunked documents are not removed; callers accepting that
// trade-off use this, everyone else rebuilds.
func (a *Agent) AppendToVectorIndex(ctx context.Context, newChunks []*model.Chunk) error {
	if a.pipeline.Embedder == nil {
		return helper.NewError("append to vector index", fmt.Errorf("no embedder configured: %w", helper.ErrConfiguration))
	}

	for i, chunk := range newChunks {
		err := ctx.Err()
		if err != nil {
			return helper.NewError("append to vector index", err)
		}

		embedding, err := a.pipeline.Embedder(chunk.Text)
		if err != nil {
			return helper.NewError("embed chunk", err)
		}
		chunk.Embedding = embedding

		err = a.index.Add(embedding, chunk)
		if err != nil {
			return helper.NewError("index chunk", err)
		}

		if (i+1)%progressInterval == 0 {
			a.logger.Info("Embedding chunks", slog.Int("done", i+1), slog.Int("total", len(newChunks)))
		}
	}

	err := a.index.Save(a.config.IndexPath)
	if err != nil {
		return helper.NewError("save vector index", err)
	}

	a.logger.Info("Appended to vector index", slog.Int("added", len(newChunks)), slog.Int("chunks", a.index.Count()))

	return nil
}

// BuildGraphFromChunks upserts the chunks and their owning documents into
// the graph store. Documents are written first so every chunk upsert finds
// its document. With clearExisting the whole graph is wiped first; only
// full-rebuild ingestion does that.
func (a *Agent) BuildGraphFromChunks(ctx context.Context, chunks []*model.Chunk, clearExisting bool) error {
	if clearExisting {
		err := a.entities.ClearGraph()
		if err != nil {
			return helper.NewError("clear graph", err)
		}
	}

	seenDocs := make(map[string]bool)
	for _, chunk := range chunks {
		if seenDocs[chunk.DocID] {
			continue
		}
		seenDocs[chunk.DocID] = true

		err := a.documents.UpsertDocument(model.NewDocument(chunk.DocID))
		if err != nil {
			return helper.NewError("upsert document", err)
		}
	}

	for i, chunk := range chunks {
		err := ctx.Err()
		if err != nil {
			return helper.NewError("build graph", err)
		}

		err = a.chunks.UpsertChunk(chunk)
		if err != nil {
			return helper.NewError("upsert chunk", err)
		}

		if (i+1)%progressInterval == 0 {
			a.logger.Info("Upserting chunks", slog.Int("done", i+1), slog.Int("total", len(chunks)))
		}
	}

	a.logger.Info("Built knowledge graph", slog.Int("documents", len(seenDocs)), slog.Int("chunks", len(chunks)))

	return nil
}

// EnrichGraphWithEntities extracts entity mentions from the chunk texts and
// merges them into the graph: entities by exact name, mention edges with
// merge semantics so re-enrichment never duplicates. Nil chunks enriches
// every chunk in the graph store.
func (a *Agent) EnrichGraphWithEntities(ctx context.Context, chunks []*model.Chunk) error {
	if a.pipeline.EntityExtractor == nil {
		return helper.NewError("enrich graph", fmt.Errorf("no entity extractor configured: %w", helper.ErrConfiguration))
	}

	if chunks == nil {
		var err error
		chunks, err = a.chunks.SelectAllChunks()
		if err != nil {
			return helper.NewError("read chunks", err)
		}
	}

	mentionCount := 0
	for i, chunk := range chunks {
		err := ctx.Err()
		if err != nil {
			return helper.NewError("enrich graph", err)
		}

		mentions, err := a.pipeline.EntityExtractor(chunk.Text)
		if err != nil {
			return helper.NewError("extract entities", err)
		}

		for _, mention := range mentions {
			err := a.entities.UpsertEntity(&model.Entity{Name: mention.Text, Label: mention.Label})
			if err != nil {
				return helper.NewError("upsert entity", err)
			}

			created, err := a.entities.UpsertMention(chunk.ChunkID, mention.Text)
			if err != nil {
				return helper.NewError("upsert mention", err)
			}
			if !created {
				a.logger.Warn("Mention endpoint missing", slog.String("chunk", chunk.ChunkID), slog.String("entity", mention.Text))
				continue
			}
			mentionCount++
		}

		if (i+1)%progressInterval == 0 {
			a.logger.Info("Extracting entities", slog.Int("done", i+1), slog.Int("total", len(chunks)))
		}
	}

	a.logger.Info("Enriched knowledge graph", slog.Int("chunks", len(chunks)), slog.Int("mentions", mentionCount))

	return nil
}

// AnswerQuery retrieves context for the query from both stores, generates
// an answer, validates it with the guardrail pass and returns the assembled
// result. A topK of zero or less uses the default.
func (a *Agent) AnswerQuery(ctx context.Context, query string, topK int) (*model.AnswerResult, error) {
	if a.pipeline.Embedder == nil {
		return nil, helper.NewError("answer query", fmt.Errorf("no embedder configured: %w", helper.ErrConfiguration))
	}
	if a.generator == nil {
		return nil, helper.NewError("answer query", fmt.Errorf("no language model configured: %w", helper.ErrConfiguration))
	}

	var vectors retrieval.VectorSearcher = a.index
	if a.config.DatabaseVectorSearch {
		vectors = retrieval.VectorSearchFunc(a.chunks.SelectChunksBySimilarity)
	}

	var graph retrieval.GraphSearcher
	if a.entities != nil {
		graph = a.entities
	}

	engine := retrieval.NewEngine(vectors, graph, retrieval.EmbedFunc(a.pipeline.Embedder), a.logger)
	orchestrator := answer.NewOrchestrator(engine, a.generator, a.logger)
	orchestrator.SetStreamWriter(a.stream)

	return orchestrator.AnswerQuery(ctx, query, topK)
}

// UpdateKnowledgeBase ingests one new PDF incrementally: OCR, re-chunk the
// whole OCR root, full vector rebuild, graph upsert without clearing, and
// re-enrichment over all stored chunks.
func (a *Agent) UpdateKnowledgeBase(ctx context.Context, pdfPath string, method string) error {
	a.logger.Info("Updating knowledge base", slog.String("pdf", pdfPath))

	_, err := ocr.ProcessPDF(ctx, a.ocrEngine, a.config.OCRRoot, pdfPath)
	if err != nil {
		return helper.NewError("ocr pdf", err)
	}

	chunks, err := a.ChunkAllDocuments(method, 0)
	if err != nil {
		return err
	}

	err = a.RebuildVectorIndex(ctx, chunks)
	if err != nil {
		return err
	}

	err = a.BuildGraphFromChunks(ctx, chunks, false)
	if err != nil {
		return err
	}

	err = a.EnrichGraphWithEntities(ctx, nil)
	if err != nil {
		return err
	}

	a.logger.Info("Knowledge base updated", slog.String("pdf", pdfPath))

	return nil
}

// IngestAll runs the full ingestion pipeline over a folder of PDFs: OCR
// everything, chunk, rebuild the vector index, rebuild the graph from
// scratch and enrich it with entities.
func (a *Agent) IngestAll(ctx context.Context, pdfFolder string, method string) error {
	a.logger.Info("Starting ingestion pipeline", slog.String("folder", pdfFolder))

	documentDirs, err := ocr.ProcessFolder(ctx, a.ocrEngine, a.config.OCRRoot, pdfFolder)
	if err != nil {
		return helper.NewError("ocr pdf folder", err)
	}
	if len(documentDirs) == 0 {
		return helper.NewError("ocr pdf folder", fmt.Errorf("no pdf files found in %s", pdfFolder))
	}

	chunks, err := a.ChunkAllDocuments(method, 0)
	if err != nil {
		return err
	}

	err = a.RebuildVectorIndex(ctx, chunks)
	if err != nil {
		return err
	}

	err = a.BuildGraphFromChunks(ctx, chunks, true)
	if err != nil {
		return err
	}

	err = a.EnrichGraphWithEntities(ctx, nil)
	if err != nil {
		return err
	}

	a.logger.Info("Ingestion pipeline complete", slog.Int("documents", len(documentDirs)), slog.Int("chunks", len(chunks)))

	return nil
}

// Close releases the inference sessions and the database connection.
func (a *Agent) Close() error {
	var errs []error

	if a.embedder != nil {
		errs = append(errs, a.embedder.Close())
	}
	if a.extractor != nil {
		errs = append(errs, a.extractor.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}

	return errors.Join(errs...)
}
