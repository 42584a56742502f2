package domain

import "errors"

// ErrTranscriptNotFound is returned when a transcript ID is unknown.
var ErrTranscriptNotFound = errors.New("transcript not found")
