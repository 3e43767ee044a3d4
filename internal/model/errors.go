package model

import "errors"

// Run-level errors. Any of these aborts the run; nothing is written.
var (
	// ErrSchemaMismatch is returned when snapshot files disagree in column count
	// or the first file lacks a required column.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrMalformedRow is returned for a snapshot row whose count or timestamp cannot be parsed.
	ErrMalformedRow = errors.New("malformed row")

	// ErrOutOfOrder is returned when a unit's rows are not chronological in ingestion order.
	ErrOutOfOrder = errors.New("observations out of chronological order")

	// ErrDuplicateKey is returned when a covariate or fill table repeats a location.
	ErrDuplicateKey = errors.New("duplicate location key")

	// ErrNoInput is returned when a stage receives nothing to work on.
	ErrNoInput = errors.New("no input")
)
