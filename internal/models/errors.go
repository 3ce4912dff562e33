package models

import "errors"

// Failure taxonomy. Callers classify with errors.Is; all wrapping is done
// with fmt.Errorf("...: %w", ...) so context survives classification.
var (
	// ErrValidation marks synchronously rejected input: bad URL, bad
	// schedule string, bad selector JSON. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrTransientFetch marks a network/render failure that exhausted the
	// configured retry budget.
	ErrTransientFetch = errors.New("fetch failed")

	// ErrPersistence marks a store write failure after rollback.
	ErrPersistence = errors.New("persistence failure")
)

// Store operation outcome signals, distinct from persistence failures.
var (
	// ErrNotFound: the id does not exist in the store.
	ErrNotFound = errors.New("not found")

	// ErrNoop: the operation affected nothing (e.g. an update carrying no
	// changed fields). Not a failure.
	ErrNoop = errors.New("no fields affected")

	// ErrConflict: the task is already running; re-entrant dispatch and
	// manual run-now triggers are rejected with this.
	ErrConflict = errors.New("task already running")

	// ErrBusy: every worker slot is occupied and the caller gave up
	// waiting for one. The run did not start.
	ErrBusy = errors.New("no worker available")
)
