package ingest

import (
	"errors"
	"fmt"
)

// ErrNoRows is wrapped by Error when no usable row remains.
var ErrNoRows = errors.New("no usable rows")

// MalformedRecordError identifies a provider row that failed schema or
// coordinate parsing.
type MalformedRecordError struct {
	Source string
	Line   int
	Field  string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s:%d: field %s: %v", e.Source, e.Line, e.Field, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// Error reports an ingestion that produced no table: the provider failed
// or returned zero usable rows.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ingesting %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
