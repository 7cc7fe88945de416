package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/siherrmann/hybridqa"
	"github.com/siherrmann/hybridqa/core/pipeline"
	"github.com/siherrmann/hybridqa/helper"
)

func main() {
	ingest := flag.Bool("ingest", false, "Run full ingestion pipeline (OCR → chunking → embeddings → graph → entities)")
	pdfFolder := flag.String("pdf-folder", "pdfs", "Folder containing PDFs to ingest")
	chunkMethod := flag.String("chunk-method", pipeline.ChunkMethodSentence, "Chunking method: sentence | paragraph | fixed_length")
	flag.Parse()

	// .env is optional, the environment may already be set.
	_ = godotenv.Load()

	logger := slog.New(helper.NewPrettyHandler(os.Stdout, helper.PrettyHandlerOptions{}))

	config, err := hybridqa.NewAgentConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	agent, err := hybridqa.NewAgent(config, logger)
	if err != nil {
		log.Fatalf("Failed to create agent: %v", err)
	}
	defer agent.Close()

	if err := agent.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	ctx := context.Background()

	if *ingest {
		fmt.Println("Starting document ingestion pipeline...")
		if err := agent.IngestAll(ctx, *pdfFolder, *chunkMethod); err != nil {
			log.Fatalf("Ingestion failed: %v", err)
		}
		fmt.Println("Ingestion pipeline completed successfully.")
	}

	fmt.Println("\nHybrid knowledge agent is ready to answer questions.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nAsk a question (or type 'exit'): ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.EqualFold(query, "exit") {
			break
		}

		result, err := agent.AnswerQuery(ctx, query, 0)
		if err != nil {
			fmt.Printf("Query failed: %v\n", err)
			continue
		}

		fmt.Println("\nFinal Answer:")
		fmt.Println(result.Answer)

		if !result.Empty {
			fmt.Println("\nChunks Used:")
			for _, chunk := range result.ChunksUsed {
				fmt.Printf("- %s - Page %d - Chunk %s\n", chunk.DocID, chunk.PageNumber, chunk.ChunkID)
			}

			fmt.Println("\nGuardrail Result:")
			fmt.Printf("%s (%s)\n", result.Guardrail, result.Verdict)
		}
	}
}
