package agent

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/domain"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/llm"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/logging"
)

// minGroundedAnswerLen is the minimum answer length, in characters, for a
// knowledge-base answer to be trusted over plain conversation.
const minGroundedAnswerLen = 50

// refusalPhrases mark knowledge-base answers that admit they found nothing.
var refusalPhrases = []string{
	"não encontrei informações",
	"não consigo responder",
}

// Retriever answers questions from the knowledge base.
type Retriever interface {
	Query(ctx context.Context, question string) (*domain.Answer, error)
}

// ResponderConfig configures reply generation.
type ResponderConfig struct {
	Model       string
	MaxTokens   int
	Temperature *float64

	// MaxTurns bounds how much history is sent to the model.
	// 0 sends the full transcript.
	MaxTurns int
}

// Responder turns an inbound message into a reply. It consults the
// knowledge base first and falls back to plain conversation, so a
// caller always gets a sendable reply even when every backend fails.
type Responder struct {
	cfg       ResponderConfig
	client    llm.Client
	retriever Retriever // nil when the knowledge base is unavailable
	store     TranscriptStore
	log       *logging.Logger
}

// NewResponder creates a responder. retriever may be nil to disable
// knowledge-base lookups.
func NewResponder(cfg ResponderConfig, client llm.Client, retriever Retriever, store TranscriptStore, log *logging.Logger) *Responder {
	return &Responder{
		cfg:       cfg,
		client:    client,
		retriever: retriever,
		store:     store,
		log:       log.Sub("agent"),
	}
}

// Respond generates a reply for the user's message. It never returns an
// error: any failure yields the apology reply with source "fallback".
func (r *Responder) Respond(ctx context.Context, userID, text string) domain.Reply {
	transcript, err := r.store.GetOrCreate(userID)
	if err != nil {
		r.log.Error().Err(err).Str("user", userID).Msg("transcript lookup failed")
		return domain.Reply{Text: apologyReply, Source: domain.SourceFallback}
	}

	if answer := r.consultKnowledgeBase(ctx, userID, text); answer != "" {
		r.record(transcript.ID, text, answer)
		return domain.Reply{Text: answer, Source: domain.SourceRetrieval}
	}

	messages, err := r.conversationWindow(transcript.ID, text)
	if err != nil {
		r.log.Error().Err(err).Str("user", userID).Msg("history load failed")
		return domain.Reply{Text: apologyReply, Source: domain.SourceFallback}
	}

	resp, err := r.client.Complete(ctx, llm.CompletionRequest{
		Model:       r.cfg.Model,
		System:      personaPrompt,
		Messages:    messages,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		r.log.Error().Err(err).Str("user", userID).Msg("completion failed")
		return domain.Reply{Text: apologyReply, Source: domain.SourceFallback}
	}

	r.record(transcript.ID, text, resp.Content)
	return domain.Reply{Text: resp.Content, Source: domain.SourceCompletion}
}

// RespondStream behaves like Respond but reports progress through cb.
// Knowledge-base answers arrive as a single delta; conversational
// replies are streamed token by token. A "done" event always carries
// the final text.
func (r *Responder) RespondStream(ctx context.Context, userID, text string, cb func(llm.StreamEvent)) domain.Reply {
	transcript, err := r.store.GetOrCreate(userID)
	if err != nil {
		r.log.Error().Err(err).Str("user", userID).Msg("transcript lookup failed")
		return r.fallback(cb)
	}

	if answer := r.consultKnowledgeBase(ctx, userID, text); answer != "" {
		r.record(transcript.ID, text, answer)
		cb(llm.StreamEvent{Type: "delta", Content: answer})
		cb(llm.StreamEvent{Type: "done", Response: &llm.CompletionResponse{Content: answer}})
		return domain.Reply{Text: answer, Source: domain.SourceRetrieval}
	}

	messages, err := r.conversationWindow(transcript.ID, text)
	if err != nil {
		r.log.Error().Err(err).Str("user", userID).Msg("history load failed")
		return r.fallback(cb)
	}

	events, err := r.client.Stream(ctx, llm.CompletionRequest{
		Model:       r.cfg.Model,
		System:      personaPrompt,
		Messages:    messages,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		r.log.Error().Err(err).Str("user", userID).Msg("stream start failed")
		return r.fallback(cb)
	}

	var full strings.Builder
	for ev := range events {
		switch ev.Type {
		case "delta":
			full.WriteString(ev.Content)
			cb(ev)
		case "error":
			r.log.Error().Str("user", userID).Str("error", ev.Error).Msg("stream failed")
			return r.fallback(cb)
		case "done":
			if ev.Response != nil && ev.Response.Content != "" {
				full.Reset()
				full.WriteString(ev.Response.Content)
			}
			cb(ev)
		}
	}

	r.record(transcript.ID, text, full.String())
	return domain.Reply{Text: full.String(), Source: domain.SourceCompletion}
}

// consultKnowledgeBase returns a grounded answer, or "" when retrieval
// is disabled, fails, or produces nothing worth sending.
func (r *Responder) consultKnowledgeBase(ctx context.Context, userID, text string) string {
	if r.retriever == nil {
		return ""
	}
	answer, err := r.retriever.Query(ctx, text)
	if err != nil {
		r.log.Warn().Err(err).Str("user", userID).Msg("knowledge base query failed, using plain conversation")
		return ""
	}
	if !groundedAnswer(answer) {
		r.log.Debug().Str("user", userID).Msg("knowledge base answer not useful for this message")
		return ""
	}
	r.log.Info().Str("user", userID).Int("sources", len(answer.Sources)).Msg("reply grounded in knowledge base")
	return answer.Text
}

// groundedAnswer reports whether a knowledge-base answer is substantial
// enough to send: at least one source, a non-trivial length, and no
// refusal phrasing.
func groundedAnswer(a *domain.Answer) bool {
	if a == nil || len(a.Sources) == 0 {
		return false
	}
	if utf8.RuneCountInString(a.Text) <= minGroundedAnswerLen {
		return false
	}
	lower := strings.ToLower(a.Text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}

// conversationWindow builds the message list for a completion: the
// bounded history followed by the new user message.
func (r *Responder) conversationWindow(transcriptID, text string) ([]llm.Message, error) {
	history, err := r.store.History(transcriptID, r.cfg.MaxTurns)
	if err != nil {
		return nil, err
	}
	messages := make([]llm.Message, 0, len(history)+1)
	for _, turn := range history {
		role := llm.RoleUser
		if turn.Role == domain.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: text})
	return messages, nil
}

// record appends the exchange to the transcript. Recording failures are
// logged but do not fail the reply.
func (r *Responder) record(transcriptID, userText, assistantText string) {
	if err := r.store.Append(transcriptID, domain.Turn{Role: domain.RoleUser, Content: userText}); err != nil {
		r.log.Error().Err(err).Msg("recording user turn failed")
		return
	}
	if err := r.store.Append(transcriptID, domain.Turn{Role: domain.RoleAssistant, Content: assistantText}); err != nil {
		r.log.Error().Err(err).Msg("recording assistant turn failed")
	}
}

func (r *Responder) fallback(cb func(llm.StreamEvent)) domain.Reply {
	cb(llm.StreamEvent{Type: "delta", Content: apologyReply})
	cb(llm.StreamEvent{Type: "done", Response: &llm.CompletionResponse{Content: apologyReply}})
	return domain.Reply{Text: apologyReply, Source: domain.SourceFallback}
}
