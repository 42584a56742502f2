package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/domain"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/logging"
)

// PassageSink stores a document's embedded passages.
type PassageSink interface {
	AddDocument(name string, passages []domain.Passage) (string, error)
}

// Ingester splits documents into passages, embeds them, and stores the
// result in the passage index.
type Ingester struct {
	embedder     Embedder
	sink         PassageSink
	chunkSize    int
	chunkOverlap int
	log          *logging.Logger
}

// NewIngester creates an ingester with default chunking parameters.
func NewIngester(embedder Embedder, sink PassageSink, log *logging.Logger) *Ingester {
	return &Ingester{
		embedder:     embedder,
		sink:         sink,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		log:          log.Sub("ingest"),
	}
}

// IngestText splits, embeds, and stores one document. It returns the
// number of passages stored.
func (in *Ingester) IngestText(ctx context.Context, name, text string) (int, error) {
	chunks := Split(text, in.chunkSize, in.chunkOverlap)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %q has no content", name)
	}

	vectors, err := in.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embedding %q: %w", name, err)
	}

	passages := make([]domain.Passage, len(chunks))
	for i, chunk := range chunks {
		passages[i] = domain.Passage{Document: name, Content: chunk, Embedding: vectors[i]}
	}

	if _, err := in.sink.AddDocument(name, passages); err != nil {
		return 0, fmt.Errorf("storing %q: %w", name, err)
	}

	in.log.Info().Str("document", name).Int("passages", len(passages)).Msg("document ingested")
	return len(passages), nil
}

// IngestDir ingests every .txt and .md file directly under dir. It
// returns the total number of passages stored.
func (in *Ingester) IngestDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading %q: %w", dir, err)
	}

	total := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return total, fmt.Errorf("reading %q: %w", entry.Name(), err)
		}
		n, err := in.IngestText(ctx, entry.Name(), string(data))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// IngestSeed loads the built-in starter knowledge base.
func (in *Ingester) IngestSeed(ctx context.Context) (int, error) {
	total := 0
	for i, text := range seedPassages {
		n, err := in.IngestText(ctx, fmt.Sprintf("seed-%d", i+1), text)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
