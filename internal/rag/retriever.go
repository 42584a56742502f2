package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/domain"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/llm"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/logging"
)

// ErrIndexEmpty means the passage index holds no passages, so retrieval
// cannot produce grounded answers.
var ErrIndexEmpty = errors.New("passage index is empty")

// synthesisPrompt instructs the model to answer only from the provided
// passages.
const synthesisPrompt = `Você é um assistente que responde perguntas usando apenas os trechos de contexto fornecidos.
Se os trechos não contiverem a informação necessária, diga que não encontrou informações sobre o assunto.
Responda em português, de forma clara e completa.`

// PassageSource lists the embedded passages available for retrieval.
type PassageSource interface {
	All() ([]domain.Passage, error)
	Count() (int, error)
}

// Retriever answers questions by finding the passages most similar to
// the question and asking the model to synthesize an answer from them.
type Retriever struct {
	embedder Embedder
	client   llm.Client
	source   PassageSource
	model    string
	topK     int
	log      *logging.Logger
}

// NewRetriever creates a retriever over the given passage source. It
// fails with ErrIndexEmpty when the index holds no passages, so callers
// can decide at startup whether to run without retrieval.
func NewRetriever(embedder Embedder, client llm.Client, source PassageSource, model string, topK int, log *logging.Logger) (*Retriever, error) {
	count, err := source.Count()
	if err != nil {
		return nil, fmt.Errorf("checking passage index: %w", err)
	}
	if count == 0 {
		return nil, ErrIndexEmpty
	}
	if topK <= 0 {
		topK = 3
	}
	r := &Retriever{
		embedder: embedder,
		client:   client,
		source:   source,
		model:    model,
		topK:     topK,
		log:      log.Sub("rag"),
	}
	r.log.Info().Int("passages", count).Int("topK", topK).Msg("retriever ready")
	return r, nil
}

// Query embeds the question, ranks passages by cosine similarity, and
// synthesizes an answer from the top matches.
func (r *Retriever) Query(ctx context.Context, question string) (*domain.Answer, error) {
	vectors, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for the question")
	}
	queryVec := vectors[0]

	passages, err := r.source.All()
	if err != nil {
		return nil, fmt.Errorf("loading passages: %w", err)
	}
	if len(passages) == 0 {
		return nil, ErrIndexEmpty
	}

	top := rankPassages(queryVec, passages, r.topK)
	if len(top) == 0 {
		return &domain.Answer{}, nil
	}

	resp, err := r.client.Complete(ctx, llm.CompletionRequest{
		Model:  r.model,
		System: synthesisPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildContext(top, question)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("synthesizing answer: %w", err)
	}

	r.log.Debug().Int("sources", len(top)).Msg("answer synthesized from passages")
	return &domain.Answer{Text: resp.Content, Sources: top}, nil
}

// buildContext formats the retrieved passages and the question into a
// single user message.
func buildContext(passages []domain.Passage, question string) string {
	var b strings.Builder
	b.WriteString("Contexto:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, p.Content)
	}
	b.WriteString("Pergunta: ")
	b.WriteString(question)
	return b.String()
}

type scoredPassage struct {
	passage domain.Passage
	score   float64
}

// rankPassages returns the k passages most similar to the query vector.
func rankPassages(query []float32, passages []domain.Passage, k int) []domain.Passage {
	scored := make([]scoredPassage, 0, len(passages))
	for _, p := range passages {
		s := cosineSimilarity(query, p.Embedding)
		if math.IsNaN(s) {
			continue
		}
		scored = append(scored, scoredPassage{passage: p, score: s})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if k > len(scored) {
		k = len(scored)
	}
	out := make([]domain.Passage, k)
	for i := 0; i < k; i++ {
		out[i] = scored[i].passage
	}
	return out
}

// cosineSimilarity returns NaN for mismatched or zero-length vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return math.NaN()
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
