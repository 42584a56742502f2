package domain

// Webhook message types recognized for AI processing.
const (
	MessageTypeConversation = "conversation"
	MessageTypeText         = "textMessage"
)

// Event is an inbound webhook payload from the MEGA API gateway.
// Transient: parsed per request and discarded after dispatch.
type Event struct {
	MessageType string       `json:"messageType"`
	Message     EventMessage `json:"message"`
	Key         EventKey     `json:"key"`
	PushName    string       `json:"pushName"`
}

// EventMessage carries the message body. The gateway uses "conversation"
// for plain chats and "text" for the textMessage variant.
type EventMessage struct {
	Conversation string `json:"conversation,omitempty"`
	Text         string `json:"text,omitempty"`
}

// EventKey identifies the message sender.
type EventKey struct {
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
}

// Body returns the message text for the event's declared type, or ""
// when the event is not a recognized text message.
func (e Event) Body() string {
	switch e.MessageType {
	case MessageTypeConversation:
		return e.Message.Conversation
	case MessageTypeText:
		return e.Message.Text
	default:
		return ""
	}
}

// IsProcessable reports whether the event is a plain user-to-bot text
// message: recognized type, non-empty body, a sender JID, and not an echo
// of the bot's own output.
func (e Event) IsProcessable() bool {
	return e.Body() != "" && e.Key.RemoteJID != "" && !e.Key.FromMe
}

// SenderName returns the display name, defaulting when the gateway
// omitted it.
func (e Event) SenderName() string {
	if e.PushName == "" {
		return "Usuário"
	}
	return e.PushName
}
