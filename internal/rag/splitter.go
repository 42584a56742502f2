package rag

import "strings"

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

// separators are tried in order when looking for a split point, from
// paragraph breaks down to single characters.
var separators = []string{"\n\n", "\n", " ", ""}

// Split breaks text into chunks of at most size characters with the
// given overlap between consecutive chunks. It prefers splitting at
// paragraph and word boundaries. size and overlap of 0 use defaults.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}

	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{string(runes)}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = splitPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// splitPoint finds the best boundary at or before limit, preferring
// larger separators.
func splitPoint(runes []rune, start, limit int) int {
	window := string(runes[start:limit])
	for _, sep := range separators {
		if sep == "" {
			return limit
		}
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return start + len([]rune(window[:idx])) + len([]rune(sep))
		}
	}
	return limit
}
