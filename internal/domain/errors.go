package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery signals a search request with no text, entities, or filters.
	ErrEmptyQuery = errors.New("empty query")
	// ErrMissingRequiredField signals a record missing its identifier.
	ErrMissingRequiredField = errors.New("missing required field")
	// ErrTrialNotFound signals an unknown trial identifier.
	ErrTrialNotFound = errors.New("trial not found")
	// ErrInvalidRequest signals a malformed client request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrExtractionUnavailable signals an entity-extraction provider failure.
	// Recoverable: the orchestrator degrades to raw full-text search.
	ErrExtractionUnavailable = errors.New("entity extraction unavailable")
	// ErrSearchUnavailable signals a search-backend failure. Fatal to the request.
	ErrSearchUnavailable = errors.New("search backend unavailable")
	// ErrIndexWrite signals a failed index write for a single record.
	ErrIndexWrite = errors.New("index write failed")
)

// IndexWriteError wraps ErrIndexWrite with the record identifier and backend reason.
type IndexWriteError struct {
	NCTID  string
	Reason string
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrIndexWrite.Error(), e.NCTID, e.Reason)
}

func (e *IndexWriteError) Unwrap() error { return ErrIndexWrite }

// NewIndexWriteError creates a per-record index write error.
func NewIndexWriteError(nctID, reason string) error {
	return &IndexWriteError{NCTID: nctID, Reason: reason}
}
