// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package job

import (
	"github.com/sciencecloud/jobcore/pkg/types"
)

// State represents the lifecycle state of a job. Transitions between states
// are only allowed along the ValidTransitions table, and only the
// orchestrator may commit them.
type State string

// All lifecycle states of a job.
const (
	// StateValidated is the initial state assigned by job verification.
	StateValidated State = "VALIDATED"

	// StatePrepared means the backend has accepted the job and input data.
	StatePrepared State = "PREPARED"

	// StateScheduled means the job has been handed to the backend scheduler.
	StateScheduled State = "SCHEDULED"

	// StateRunning means the job is executing on the backend.
	StateRunning State = "RUNNING"

	// StateTransferSuccess means the job finished and result transfer is in
	// progress.
	StateTransferSuccess State = "TRANSFER_SUCCESS"

	// StateCanceling means a cancellation was requested and is in progress.
	StateCanceling State = "CANCELING"

	// StateSuccess is the terminal state of a successful job.
	StateSuccess State = "SUCCESS"

	// StateFailure is the terminal state of a failed job.
	StateFailure State = "FAILURE"
)

// ValidTransitions is the full transition table of the job state machine.
// Proposals not listed here are rejected with cerrors.ErrInvalidTransition.
// The terminal states have no successors; a proposal against a terminal job
// is accepted as a logged no-op to tolerate duplicate callbacks.
var ValidTransitions = map[State][]State{
	StateValidated:       {StatePrepared, StateCanceling, StateFailure},
	StatePrepared:        {StateScheduled, StateCanceling, StateFailure},
	StateScheduled:       {StateRunning, StateCanceling, StateFailure},
	StateRunning:         {StateTransferSuccess, StateSuccess, StateFailure, StateCanceling},
	StateTransferSuccess: {StateSuccess, StateFailure},
	StateCanceling:       {StateSuccess, StateFailure},
	StateSuccess:         {},
	StateFailure:         {},
}

// IsTerminal returns whether the state is final.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFailure
}

// IsValid returns whether the state is one of the known lifecycle states.
func (s State) IsValid() bool {
	_, ok := ValidTransitions[s]
	return ok
}

// CanTransition returns whether the state machine allows moving from the
// current state to the proposed one.
func (s State) CanTransition(to State) bool {
	for _, next := range ValidTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// StateChange is the ephemeral command proposing a state transition for a
// job. It is never persisted on its own; only its effect on the job is
// durable.
type StateChange struct {
	JobID    types.JobID
	NewState State
}
