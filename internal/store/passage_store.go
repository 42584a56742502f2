package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/domain"
)

// PassageStore persists ingested documents and their embedded passages.
type PassageStore struct {
	db *DB
}

// NewPassageStore creates a passage store backed by db.
func NewPassageStore(db *DB) *PassageStore {
	return &PassageStore{db: db}
}

// AddDocument stores a document and its passages in one transaction.
// Passages are stored in order with their embedding vectors.
func (s *PassageStore) AddDocument(name string, passages []domain.Passage) (string, error) {
	tx, err := s.db.sql.Begin()
	if err != nil {
		return "", fmt.Errorf("begin add document: %w", err)
	}

	docID := uuid.NewString()
	_, err = tx.Exec(
		"INSERT INTO documents (id, name, created_at) VALUES (?, ?, ?)",
		docID, name, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		tx.Rollback()
		return "", fmt.Errorf("inserting document: %w", err)
	}

	for i, p := range passages {
		_, err = tx.Exec(
			"INSERT INTO passages (id, document_id, content, position, embedding) VALUES (?, ?, ?, ?, ?)",
			uuid.NewString(), docID, p.Content, i, encodeVector(p.Embedding),
		)
		if err != nil {
			tx.Rollback()
			return "", fmt.Errorf("inserting passage %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit add document: %w", err)
	}
	return docID, nil
}

// All returns every stored passage with its embedding.
func (s *PassageStore) All() ([]domain.Passage, error) {
	rows, err := s.db.sql.Query(
		"SELECT p.content, p.embedding, d.name FROM passages p JOIN documents d ON d.id = p.document_id ORDER BY d.created_at, p.position",
	)
	if err != nil {
		return nil, fmt.Errorf("querying passages: %w", err)
	}
	defer rows.Close()

	var out []domain.Passage
	for rows.Next() {
		var p domain.Passage
		var blob []byte
		if err := rows.Scan(&p.Content, &blob, &p.Document); err != nil {
			return nil, fmt.Errorf("scanning passage: %w", err)
		}
		if p.Embedding, err = decodeVector(blob); err != nil {
			return nil, fmt.Errorf("decoding embedding: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the number of stored passages.
func (s *PassageStore) Count() (int, error) {
	var n int
	if err := s.db.sql.QueryRow("SELECT COUNT(*) FROM passages").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return n, nil
}

// Reset removes every document and passage. Used before reseeding the
// index from scratch.
func (s *PassageStore) Reset() error {
	if _, err := s.db.sql.Exec("DELETE FROM documents"); err != nil {
		return fmt.Errorf("resetting index: %w", err)
	}
	return nil
}

// Documents lists stored documents, newest first.
func (s *PassageStore) Documents() ([]domain.Document, error) {
	rows, err := s.db.sql.Query(
		`SELECT d.id, d.name, d.created_at, COUNT(p.id)
		 FROM documents d LEFT JOIN passages p ON p.document_id = d.id
		 GROUP BY d.id ORDER BY d.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		var d domain.Document
		var created string
		if err := rows.Scan(&d.ID, &d.Name, &created, &d.PassageCount); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if d.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// encodeVector packs a float32 vector as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("malformed embedding blob of %d bytes", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}
