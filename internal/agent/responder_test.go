package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/domain"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/llm"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/logging"
)

type stubRetriever struct {
	answer *domain.Answer
	err    error
	calls  int
}

func (s *stubRetriever) Query(ctx context.Context, question string) (*domain.Answer, error) {
	s.calls++
	return s.answer, s.err
}

func testLogger() *logging.Logger {
	return logging.New(io.Discard, "error", "json")
}

func groundedStub() *stubRetriever {
	return &stubRetriever{answer: &domain.Answer{
		Text:    strings.Repeat("resposta detalhada da base de conhecimento ", 3),
		Sources: []domain.Passage{{Content: "passage"}},
	}}
}

func newTestResponder(client llm.Client, retriever Retriever) (*Responder, TranscriptStore) {
	store := NewMemoryTranscriptStore()
	r := NewResponder(ResponderConfig{Model: "gpt-3.5-turbo"}, client, retriever, store, testLogger())
	return r, store
}

func TestRespondPrefersKnowledgeBase(t *testing.T) {
	retriever := groundedStub()
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			t.Fatal("completion should not run when the knowledge base answers")
			return nil, nil
		},
	}
	r, store := newTestResponder(client, retriever)

	reply := r.Respond(context.Background(), "5511999998888", "qual o horário?")
	assert.Equal(t, domain.SourceRetrieval, reply.Source)
	assert.Equal(t, retriever.answer.Text, reply.Text)

	// The exchange is recorded even though the conversation chain never ran.
	tr, err := store.GetOrCreate("5511999998888")
	require.NoError(t, err)
	turns, err := store.History(tr.ID, 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, domain.RoleUser, turns[0].Role)
	assert.Equal(t, "qual o horário?", turns[0].Content)
	assert.Equal(t, reply.Text, turns[1].Content)
}

func TestRespondFallsBackToConversation(t *testing.T) {
	cases := []struct {
		name      string
		retriever Retriever
	}{
		{"no retriever", nil},
		{"retriever error", &stubRetriever{err: errors.New("index offline")}},
		{"no sources", &stubRetriever{answer: &domain.Answer{Text: strings.Repeat("x", 80)}}},
		{"short answer", &stubRetriever{answer: &domain.Answer{
			Text: "curta", Sources: []domain.Passage{{Content: "p"}},
		}}},
		{"refusal phrase", &stubRetriever{answer: &domain.Answer{
			Text:    "Infelizmente NÃO ENCONTREI INFORMAÇÕES sobre isso no material disponível para consulta.",
			Sources: []domain.Passage{{Content: "p"}},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &llm.MockClient{
				CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
					return &llm.CompletionResponse{Content: "resposta conversacional"}, nil
				},
			}
			r, _ := newTestResponder(client, tc.retriever)

			reply := r.Respond(context.Background(), "user", "oi")
			assert.Equal(t, domain.SourceCompletion, reply.Source)
			assert.Equal(t, "resposta conversacional", reply.Text)
		})
	}
}

func TestRespondSendsHistoryWindow(t *testing.T) {
	var got llm.CompletionRequest
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			got = req
			return &llm.CompletionResponse{Content: "ok"}, nil
		},
	}
	store := NewMemoryTranscriptStore()
	r := NewResponder(ResponderConfig{Model: "gpt-3.5-turbo", MaxTurns: 2}, client, nil, store, testLogger())

	ctx := context.Background()
	r.Respond(ctx, "user", "primeira")
	r.Respond(ctx, "user", "segunda")
	r.Respond(ctx, "user", "terceira")

	// Window of 2 turns plus the new message.
	require.Len(t, got.Messages, 3)
	assert.Equal(t, llm.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "segunda", got.Messages[0].Content)
	assert.Equal(t, llm.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, "terceira", got.Messages[2].Content)
	assert.Contains(t, got.System, "assistente de IA")
}

func TestRespondApologyOnFailure(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, &llm.ProviderError{Provider: "openai", Message: "rate limited", Code: 429}
		},
	}
	r, store := newTestResponder(client, nil)

	reply := r.Respond(context.Background(), "user", "oi")
	assert.Equal(t, domain.SourceFallback, reply.Source)
	assert.Equal(t, apologyReply, reply.Text)

	// Failed exchanges are not recorded.
	tr, err := store.GetOrCreate("user")
	require.NoError(t, err)
	turns, err := store.History(tr.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestRespondStreamAccumulatesDeltas(t *testing.T) {
	client := &llm.MockClient{
		StreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
			ch := make(chan llm.StreamEvent, 3)
			ch <- llm.StreamEvent{Type: "delta", Content: "Olá"}
			ch <- llm.StreamEvent{Type: "delta", Content: ", tudo bem?"}
			ch <- llm.StreamEvent{Type: "done", Response: &llm.CompletionResponse{Content: "Olá, tudo bem?"}}
			close(ch)
			return ch, nil
		},
	}
	r, store := newTestResponder(client, nil)

	var events []llm.StreamEvent
	reply := r.RespondStream(context.Background(), "user", "oi", func(ev llm.StreamEvent) {
		events = append(events, ev)
	})

	assert.Equal(t, domain.SourceCompletion, reply.Source)
	assert.Equal(t, "Olá, tudo bem?", reply.Text)
	require.Len(t, events, 3)
	assert.Equal(t, "delta", events[0].Type)
	assert.Equal(t, "done", events[2].Type)

	tr, err := store.GetOrCreate("user")
	require.NoError(t, err)
	turns, err := store.History(tr.ID, 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "Olá, tudo bem?", turns[1].Content)
}

func TestRespondStreamGroundedAnswerIsSingleDelta(t *testing.T) {
	retriever := groundedStub()
	r, _ := newTestResponder(&llm.MockClient{}, retriever)

	var events []llm.StreamEvent
	reply := r.RespondStream(context.Background(), "user", "qual o horário?", func(ev llm.StreamEvent) {
		events = append(events, ev)
	})

	assert.Equal(t, domain.SourceRetrieval, reply.Source)
	require.Len(t, events, 2)
	assert.Equal(t, "delta", events[0].Type)
	assert.Equal(t, retriever.answer.Text, events[0].Content)
	assert.Equal(t, "done", events[1].Type)
}

func TestRespondStreamErrorYieldsApology(t *testing.T) {
	client := &llm.MockClient{
		StreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
			ch := make(chan llm.StreamEvent, 1)
			ch <- llm.StreamEvent{Type: "error", Error: "connection reset"}
			close(ch)
			return ch, nil
		},
	}
	r, _ := newTestResponder(client, nil)

	var events []llm.StreamEvent
	reply := r.RespondStream(context.Background(), "user", "oi", func(ev llm.StreamEvent) {
		events = append(events, ev)
	})

	assert.Equal(t, domain.SourceFallback, reply.Source)
	assert.Equal(t, apologyReply, reply.Text)
	require.NotEmpty(t, events)
	assert.Equal(t, apologyReply, events[0].Content)
}

func TestMemoryTranscriptStore(t *testing.T) {
	s := NewMemoryTranscriptStore()

	first, err := s.GetOrCreate("user")
	require.NoError(t, err)
	again, err := s.GetOrCreate("user")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	require.NoError(t, s.Append(first.ID, domain.Turn{Role: domain.RoleUser, Content: "a"}))
	require.NoError(t, s.Append(first.ID, domain.Turn{Role: domain.RoleAssistant, Content: "b"}))
	require.NoError(t, s.Append(first.ID, domain.Turn{Role: domain.RoleUser, Content: "c"}))

	turns, err := s.History(first.ID, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "b", turns[0].Content)

	err = s.Append("missing", domain.Turn{Role: domain.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, domain.ErrTranscriptNotFound)

	list, err := s.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
