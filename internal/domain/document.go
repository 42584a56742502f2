package domain

import "time"

// Document is an ingested knowledge-base source.
type Document struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	PassageCount int       `json:"passageCount"`
}

// Passage is one embedded chunk of a document.
type Passage struct {
	Document  string    `json:"document"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
}

// Answer is a knowledge-base answer with the passages that grounded it.
type Answer struct {
	Text    string    `json:"text"`
	Sources []Passage `json:"sources"`
}
