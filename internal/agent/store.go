// Package agent generates replies for inbound messages, combining
// knowledge-base retrieval with conversational completion.
package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/domain"
)

// TranscriptStore manages per-user conversation transcripts.
type TranscriptStore interface {
	// GetOrCreate finds the transcript for a user or creates a new one.
	GetOrCreate(userID string) (*domain.Transcript, error)

	// Append adds a turn at the end of a transcript.
	Append(transcriptID string, turn domain.Turn) error

	// History returns the most recent limit turns in chronological
	// order. A limit of 0 means the full transcript.
	History(transcriptID string, limit int) ([]domain.Turn, error)

	// List returns all transcripts, most recently active first.
	List() ([]domain.Transcript, error)
}

// MemoryTranscriptStore is an in-memory TranscriptStore implementation.
type MemoryTranscriptStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Transcript
	byUser map[string]string // user id → transcript id
}

// NewMemoryTranscriptStore creates an in-memory transcript store.
func NewMemoryTranscriptStore() *MemoryTranscriptStore {
	return &MemoryTranscriptStore{
		byID:   make(map[string]*domain.Transcript),
		byUser: make(map[string]string),
	}
}

func (s *MemoryTranscriptStore) GetOrCreate(userID string) (*domain.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byUser[userID]; ok {
		if t, ok := s.byID[id]; ok {
			return t, nil
		}
	}

	now := time.Now().UTC()
	t := &domain.Transcript{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byID[t.ID] = t
	s.byUser[userID] = t.ID
	return t, nil
}

func (s *MemoryTranscriptStore) Append(transcriptID string, turn domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[transcriptID]
	if !ok {
		return domain.ErrTranscriptNotFound
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	t.Turns = append(t.Turns, turn)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryTranscriptStore) History(transcriptID string, limit int) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[transcriptID]
	if !ok {
		return nil, domain.ErrTranscriptNotFound
	}
	turns := t.Turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryTranscriptStore) List() ([]domain.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transcript, 0, len(s.byID))
	for _, t := range s.byID {
		out = append(out, *t)
	}
	return out, nil
}
