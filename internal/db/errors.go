package db

import "errors"

// Sentinel errors for backend operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrDocNotFound = errors.New("db: document not found")
)

// Op constants name backend operations for error context.
const (
	OpSearch = "search"
	OpMLT    = "more_like_this"
	OpGetDoc = "get_doc"
	OpAggs   = "aggregations"
	OpBulk   = "bulk"
	OpPing   = "ping"
	OpGet    = "GET"
	OpSet    = "SET"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
