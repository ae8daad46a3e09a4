package model

import (
	"fmt"

	"github.com/videogen/api/internal/apperr"
)

// ProjectStatus is the coarse lifecycle state of a project.
type ProjectStatus string

const (
	StatusDraft      ProjectStatus = "DRAFT"
	StatusProcessing ProjectStatus = "PROCESSING"
	StatusCompleted  ProjectStatus = "COMPLETED"
	StatusFailed     ProjectStatus = "FAILED"
)

var ValidStatuses = []ProjectStatus{
	StatusDraft, StatusProcessing, StatusCompleted, StatusFailed,
}

// transitions lists the forward moves out of each status. Writing the current
// status again is always allowed; moving back to DRAFT needs an explicit reset.
var transitions = map[ProjectStatus][]ProjectStatus{
	StatusDraft:      {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusProcessing, StatusFailed},
	StatusFailed:     {StatusProcessing, StatusCompleted},
}

func (s ProjectStatus) Valid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// CanTransition reports whether a status write from -> to is legal.
func CanTransition(from, to ProjectStatus, reset bool) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if to == StatusDraft {
		return reset
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns apperr.ErrInvalidTransition wrapped with context
// when the write is illegal.
func CheckTransition(from, to ProjectStatus, reset bool) error {
	if CanTransition(from, to, reset) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, from, to)
}
