package rag

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/domain"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/llm"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(io.Discard, "error", "json")
}

// stubEmbedder returns fixed vectors keyed by text prefix.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := s.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

type memorySource struct {
	passages []domain.Passage
}

func (m *memorySource) All() ([]domain.Passage, error) { return m.passages, nil }
func (m *memorySource) Count() (int, error)            { return len(m.passages), nil }

type memorySink struct {
	docs map[string][]domain.Passage
}

func (m *memorySink) AddDocument(name string, passages []domain.Passage) (string, error) {
	if m.docs == nil {
		m.docs = map[string][]domain.Passage{}
	}
	m.docs[name] = passages
	return name, nil
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	chunks := Split("um texto curto", 500, 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "um texto curto", chunks[0])
}

func TestSplitRespectsSizeAndOverlap(t *testing.T) {
	words := strings.Repeat("palavra ", 200)
	chunks := Split(words, 100, 20)
	require.Greater(t, len(chunks), 1)
	total := 0
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 100)
		total += len([]rune(c))
	}
	// Overlap means the chunks together exceed the original length.
	assert.Greater(t, total, len([]rune(strings.TrimSpace(words))))
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	text := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60)
	chunks := Split(text, 80, 10)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.NotContains(t, chunks[0], "b")
}

func TestSplitEmptyText(t *testing.T) {
	assert.Nil(t, Split("   ", 500, 100))
}

func TestHTTPEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-ada-002", req.Model)
		require.Len(t, req.Input, 2)

		// Respond out of order to exercise index mapping.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0.4, 0.5}},
				{"index": 0, "embedding": []float32{0.1, 0.2}},
			},
		})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "test-key", "text-embedding-ada-002", 0)
	vectors, err := e.Embed(context.Background(), []string{"primeiro", "segundo"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.InDelta(t, 0.1, vectors[0][0], 1e-6)
	assert.InDelta(t, 0.4, vectors[1][0], 1e-6)
}

func TestHTTPEmbedderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "bad", "m", 0)
	_, err := e.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewRetrieverFailsClosedOnEmptyIndex(t *testing.T) {
	_, err := NewRetriever(&stubEmbedder{}, &llm.MockClient{}, &memorySource{}, "gpt-3.5-turbo", 3, testLogger())
	assert.ErrorIs(t, err, ErrIndexEmpty)
}

func TestRetrieverQueryRanksBySimilarity(t *testing.T) {
	source := &memorySource{passages: []domain.Passage{
		{Document: "a", Content: "sobre preços", Embedding: []float32{1, 0, 0}},
		{Document: "b", Content: "sobre horários", Embedding: []float32{0, 1, 0}},
		{Document: "c", Content: "sobre devoluções", Embedding: []float32{0.9, 0.1, 0}},
	}}
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"qual o preço?": {1, 0, 0},
	}}
	var gotPrompt string
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			gotPrompt = req.Messages[0].Content
			assert.Contains(t, req.System, "trechos de contexto")
			return &llm.CompletionResponse{Content: "Os preços estão descritos na tabela."}, nil
		},
	}

	r, err := NewRetriever(embedder, client, source, "gpt-3.5-turbo", 2, testLogger())
	require.NoError(t, err)

	answer, err := r.Query(context.Background(), "qual o preço?")
	require.NoError(t, err)
	assert.Equal(t, "Os preços estão descritos na tabela.", answer.Text)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "sobre preços", answer.Sources[0].Content)
	assert.Equal(t, "sobre devoluções", answer.Sources[1].Content)
	assert.Contains(t, gotPrompt, "qual o preço?")
	assert.Contains(t, gotPrompt, "sobre preços")
	assert.NotContains(t, gotPrompt, "sobre horários")
}

func TestRetrieverQueryEmbedError(t *testing.T) {
	source := &memorySource{passages: []domain.Passage{{Content: "p", Embedding: []float32{1}}}}
	r, err := NewRetriever(&stubEmbedder{err: errors.New("api down")}, &llm.MockClient{}, source, "m", 3, testLogger())
	require.NoError(t, err)

	_, err = r.Query(context.Background(), "pergunta")
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.True(t, cosineSimilarity([]float32{1}, []float32{1, 2}) != cosineSimilarity([]float32{1}, []float32{1, 2})) // NaN
}

func TestIngestText(t *testing.T) {
	sink := &memorySink{}
	in := NewIngester(&stubEmbedder{}, sink, testLogger())

	n, err := in.IngestText(context.Background(), "faq.txt", strings.Repeat("conteúdo útil ", 100))
	require.NoError(t, err)
	assert.Greater(t, n, 1)

	passages := sink.docs["faq.txt"]
	require.Len(t, passages, n)
	assert.Equal(t, "faq.txt", passages[0].Document)
	assert.NotEmpty(t, passages[0].Embedding)
}

func TestIngestTextEmptyDocument(t *testing.T) {
	in := NewIngester(&stubEmbedder{}, &memorySink{}, testLogger())
	_, err := in.IngestText(context.Background(), "vazio.txt", "   ")
	assert.Error(t, err)
}

func TestIngestDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("primeiro documento"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("segundo documento"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.pdf"), []byte("ignorado"), 0o600))

	sink := &memorySink{}
	in := NewIngester(&stubEmbedder{}, sink, testLogger())

	total, err := in.IngestDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Contains(t, sink.docs, "a.txt")
	assert.Contains(t, sink.docs, "b.md")
	assert.NotContains(t, sink.docs, "c.pdf")
}

func TestIngestSeed(t *testing.T) {
	sink := &memorySink{}
	in := NewIngester(&stubEmbedder{}, sink, testLogger())

	total, err := in.IngestSeed(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, len(seedPassages))
	assert.Len(t, sink.docs, len(seedPassages))
}
