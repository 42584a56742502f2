// Package relay processes inbound WhatsApp events in the background,
// generating a reply and delivering it through the messaging gateway.
package relay

import (
	"context"
	"time"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/domain"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/logging"
)

// processTimeout bounds one full reply cycle, generation plus delivery.
const processTimeout = 2 * time.Minute

// Responder generates a reply for an inbound message.
type Responder interface {
	Respond(ctx context.Context, userID, text string) domain.Reply
}

// Sender delivers a text message to a WhatsApp recipient.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// Relay runs the reply pipeline for webhook events.
type Relay struct {
	responder Responder
	sender    Sender
	log       *logging.Logger
}

// New creates a relay.
func New(responder Responder, sender Sender, log *logging.Logger) *Relay {
	return &Relay{
		responder: responder,
		sender:    sender,
		log:       log.Sub("relay"),
	}
}

// Dispatch processes the event on a new goroutine so the webhook
// handler can acknowledge immediately.
func (r *Relay) Dispatch(event domain.Event) {
	go r.Process(context.Background(), event)
}

// Process generates and delivers a reply for one event. Failures are
// logged, never propagated; there is no caller to report them to.
func (r *Relay) Process(ctx context.Context, event domain.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Any("panic", rec).Str("jid", event.Key.RemoteJID).Msg("reply pipeline panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	userID := domain.UserID(event.Key.RemoteJID)
	text := event.Body()

	start := time.Now()
	r.log.Info().
		Str("user", userID).
		Str("name", event.SenderName()).
		Int("chars", len(text)).
		Msg("processing inbound message")

	reply := r.responder.Respond(ctx, userID, text)

	if err := r.sender.SendText(ctx, event.Key.RemoteJID, reply.Text); err != nil {
		r.log.Error().Err(err).Str("user", userID).Msg("reply delivery failed")
		return
	}

	r.log.Info().
		Str("user", userID).
		Str("source", string(reply.Source)).
		Dur("elapsed", time.Since(start)).
		Msg("reply delivered")
}
