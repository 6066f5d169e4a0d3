package service

import (
	"errors"
	"fmt"
)

var (
	ErrItemNotFound = errors.New("work item not found")
	ErrUnitNotFound = errors.New("handling unit not found")

	// ErrAlreadyAssigned is returned by AssignItem when the item already has
	// a current assignment. Superseding it requires ForceReassign.
	ErrAlreadyAssigned = errors.New("work item already assigned")
)

// WorkloadError marks a failed open-count query. It is fatal for the current
// assignment attempt so that "no eligible unit" stays distinguishable from
// "could not determine eligibility".
type WorkloadError struct {
	Scope string // "unit" or "staff"
	ID    string
	Err   error
}

func (e *WorkloadError) Error() string {
	return fmt.Sprintf("workload query for %s %s: %v", e.Scope, e.ID, e.Err)
}

func (e *WorkloadError) Unwrap() error { return e.Err }
