// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"fmt"
)

// State tracks an artifact through the generation pipeline:
//
//	Planned -> Rendered -> Validated -> (Written | Skipped | Conflict)
//	                   \-> Failed
//
// Written, Skipped, Conflict and Failed are terminal.
type State string

const (
	StatePlanned   State = "planned"
	StateRendered  State = "rendered"
	StateValidated State = "validated"
	StateFailed    State = "failed"
	StateWritten   State = "written"
	StateSkipped   State = "skipped"
	StateConflict  State = "conflict"
)

// IsTerminal reports whether the state is final.
func IsTerminal(s State) bool {
	switch s {
	case StateWritten, StateSkipped, StateConflict, StateFailed:
		return true
	default:
		return false
	}
}

// Transition moves the staged artifact to next, erroring on any transition
// outside the allowed table. A disallowed transition indicates a pipeline
// bug, so callers surface it rather than ignore it.
func (s *Staged) Transition(next State) error {
	if !isAllowedTransition(s.State, next) {
		return fmt.Errorf("Disallowed state transition for %s: %s -> %s", s.Path, s.State, next)
	}
	s.State = next
	return nil
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case StatePlanned:
		return to == StateRendered || to == StateFailed
	case StateRendered:
		return to == StateValidated || to == StateFailed
	case StateValidated:
		return to == StateWritten || to == StateSkipped || to == StateConflict
	default:
		return false
	}
}
