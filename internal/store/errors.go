package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when no document exists under the id.
var ErrNotFound = errors.New("document not found")

// StoreError wraps transport, permission and backend failures so callers can
// distinguish them from domain errors. Recoverable; surfaced for retry.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps a backend failure.
func NewStoreError(op, collection string, err error) error {
	return &StoreError{Op: op, Collection: collection, Err: err}
}

// DecodeError describes a document that could not be turned into a domain
// value. It is contained at the gateway: bad documents are dropped from
// result sets and logged, never fatal to the query or subscription.
type DecodeError struct {
	Collection string
	ID         string
	Missing    []string
}

func (e *DecodeError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("decode %s/%s: malformed document", e.Collection, e.ID)
	}
	return fmt.Sprintf("decode %s/%s: missing or invalid fields: %s",
		e.Collection, e.ID, strings.Join(e.Missing, ", "))
}
