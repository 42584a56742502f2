package domain

import "time"

// Role constants for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single recorded exchange entry in a transcript.
// Turns are immutable once recorded.
type Turn struct {
	Role      string    `json:"role"` // "user" | "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is the ordered turn history for one user.
type Transcript struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Turns     []Turn    `json:"turns,omitempty"`
}

// ReplySource identifies which path produced a reply.
type ReplySource string

const (
	SourceRetrieval  ReplySource = "rag"      // answered from the passage index
	SourceCompletion ReplySource = "llm"      // answered by the conversation chain
	SourceFallback   ReplySource = "fallback" // static apology after a failure
)

// Reply is the outcome of generating a response to one inbound message.
type Reply struct {
	Text   string      `json:"text"`
	Source ReplySource `json:"source"`
}
