package relay

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/domain"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/logging"
)

type stubResponder struct {
	mu      sync.Mutex
	replies map[string]string
	calls   []string
	panics  bool
}

func (s *stubResponder) Respond(ctx context.Context, userID, text string) domain.Reply {
	s.mu.Lock()
	s.calls = append(s.calls, userID)
	s.mu.Unlock()
	if s.panics {
		panic("responder exploded")
	}
	if reply, ok := s.replies[userID]; ok {
		return domain.Reply{Text: reply, Source: domain.SourceCompletion}
	}
	return domain.Reply{Text: "resposta para " + text, Source: domain.SourceCompletion}
}

type stubSender struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (s *stubSender) SendText(ctx context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = map[string]string{}
	}
	s.sent[to] = text
	return s.err
}

func testLogger() *logging.Logger {
	return logging.New(io.Discard, "error", "json")
}

func event(jid, text string) domain.Event {
	e := domain.Event{MessageType: domain.MessageTypeConversation, PushName: "Teste"}
	e.Message.Conversation = text
	e.Key.RemoteJID = jid
	return e
}

func TestProcessDeliversReply(t *testing.T) {
	responder := &stubResponder{}
	sender := &stubSender{}
	r := New(responder, sender, testLogger())

	r.Process(context.Background(), event("5511999998888@s.whatsapp.net", "oi"))

	require.Len(t, responder.calls, 1)
	assert.Equal(t, "5511999998888", responder.calls[0])
	assert.Equal(t, "resposta para oi", sender.sent["5511999998888@s.whatsapp.net"])
}

func TestProcessRecoverFromPanic(t *testing.T) {
	r := New(&stubResponder{panics: true}, &stubSender{}, testLogger())

	assert.NotPanics(t, func() {
		r.Process(context.Background(), event("123@s.whatsapp.net", "oi"))
	})
}

func TestProcessSendFailureIsSwallowed(t *testing.T) {
	sender := &stubSender{err: errors.New("gateway down")}
	r := New(&stubResponder{}, sender, testLogger())

	assert.NotPanics(t, func() {
		r.Process(context.Background(), event("123@s.whatsapp.net", "oi"))
	})
}

func TestDispatchIsConcurrentAndIsolated(t *testing.T) {
	responder := &stubResponder{replies: map[string]string{
		"111": "resposta do primeiro",
		"222": "resposta do segundo",
	}}
	sender := &stubSender{}
	r := New(responder, sender, testLogger())

	r.Dispatch(event("111@s.whatsapp.net", "oi"))
	r.Dispatch(event("222@s.whatsapp.net", "olá"))

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.sent) == 2
	}, 2*time.Second, 10*time.Millisecond)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, "resposta do primeiro", sender.sent["111@s.whatsapp.net"])
	assert.Equal(t, "resposta do segundo", sender.sent["222@s.whatsapp.net"])
}
