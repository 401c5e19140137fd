package catalog

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNothingToAssign means every candidate was already linked or none matched.
	// It is a normal outcome, not a failure of the pipeline.
	ErrNothingToAssign = errors.New("nothing left to assign")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidCount    = errors.New("count must be at least 1")
)

// EmptyResultError is fatal to a run: a stage produced nothing to work with
type EmptyResultError struct {
	Stage string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%s produced no usable items", e.Stage)
}

// PersistenceError reports a write the store rejected as a whole
type PersistenceError struct {
	Op    string
	Count int
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s (%d rows): %v", e.Op, e.Count, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
