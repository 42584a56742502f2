package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/domain"
)

// TranscriptStore persists conversation transcripts in SQLite.
// Writes for the same user are serialized by a per-user lock so a
// burst of messages from one contact cannot interleave turn order.
type TranscriptStore struct {
	db    *DB
	locks *userLocks
}

// NewTranscriptStore creates a transcript store backed by db.
func NewTranscriptStore(db *DB) *TranscriptStore {
	return &TranscriptStore{db: db, locks: newUserLocks()}
}

// GetOrCreate returns the transcript for userID, creating it if absent.
func (s *TranscriptStore) GetOrCreate(userID string) (*domain.Transcript, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	t, err := s.byUserID(userID)
	if err == nil {
		return t, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("looking up transcript for %s: %w", userID, err)
	}

	now := time.Now().UTC()
	t = &domain.Transcript{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.sql.Exec(
		"INSERT INTO transcripts (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)",
		t.ID, t.UserID, t.CreatedAt.Format(time.RFC3339Nano), t.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcript for %s: %w", userID, err)
	}
	return t, nil
}

// Append records a turn at the end of the transcript.
func (s *TranscriptStore) Append(transcriptID string, turn domain.Turn) error {
	unlock := s.locks.lock(transcriptID)
	defer unlock()

	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	tx, err := s.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}

	_, err = tx.Exec(
		"INSERT INTO turns (transcript_id, role, content, timestamp) VALUES (?, ?, ?, ?)",
		transcriptID, turn.Role, turn.Content, turn.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("inserting turn: %w", err)
	}

	_, err = tx.Exec(
		"UPDATE transcripts SET updated_at = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339Nano), transcriptID,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("touching transcript: %w", err)
	}

	return tx.Commit()
}

// History returns the most recent limit turns of the transcript in
// chronological order. A limit of 0 returns the full transcript.
func (s *TranscriptStore) History(transcriptID string, limit int) ([]domain.Turn, error) {
	query := "SELECT role, content, timestamp FROM turns WHERE transcript_id = ? ORDER BY id ASC"
	args := []any{transcriptID}
	if limit > 0 {
		query = `SELECT role, content, timestamp FROM (
			SELECT id, role, content, timestamp FROM turns WHERE transcript_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`
		args = append(args, limit)
	}

	rows, err := s.db.sql.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var role, content, ts string
		if err := rows.Scan(&role, &content, &ts); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing turn timestamp: %w", err)
		}
		turns = append(turns, domain.Turn{Role: role, Content: content, Timestamp: t})
	}
	return turns, rows.Err()
}

// List returns all transcripts ordered by last activity, newest first.
func (s *TranscriptStore) List() ([]domain.Transcript, error) {
	rows, err := s.db.sql.Query(
		"SELECT id, user_id, created_at, updated_at FROM transcripts ORDER BY updated_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("listing transcripts: %w", err)
	}
	defer rows.Close()

	var out []domain.Transcript
	for rows.Next() {
		var t domain.Transcript
		var created, updated string
		if err := rows.Scan(&t.ID, &t.UserID, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning transcript: %w", err)
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TranscriptStore) byUserID(userID string) (*domain.Transcript, error) {
	var t domain.Transcript
	var created, updated string
	err := s.db.sql.QueryRow(
		"SELECT id, user_id, created_at, updated_at FROM transcripts WHERE user_id = ?",
		userID,
	).Scan(&t.ID, &t.UserID, &created, &updated)
	if err != nil {
		return nil, err
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &t, nil
}
