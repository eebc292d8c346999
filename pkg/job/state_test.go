// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package job

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateIsValid(t *testing.T) {
	for state := range ValidTransitions {
		require.True(t, state.IsValid(), "state %s", state)
	}
	require.False(t, State("").IsValid())
	require.False(t, State("RUNNING ").IsValid())
	require.False(t, State("banana").IsValid())
}

func TestStateIsTerminal(t *testing.T) {
	require.True(t, StateSuccess.IsTerminal())
	require.True(t, StateFailure.IsTerminal())
	for _, state := range []State{
		StateValidated, StatePrepared, StateScheduled,
		StateRunning, StateTransferSuccess, StateCanceling,
	} {
		require.False(t, state.IsTerminal(), "state %s", state)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct {
		from, to State
	}{
		{StateValidated, StatePrepared},
		{StateValidated, StateCanceling},
		{StateValidated, StateFailure},
		{StatePrepared, StateScheduled},
		{StatePrepared, StateCanceling},
		{StatePrepared, StateFailure},
		{StateScheduled, StateRunning},
		{StateScheduled, StateCanceling},
		{StateScheduled, StateFailure},
		{StateRunning, StateTransferSuccess},
		{StateRunning, StateCanceling},
		{StateRunning, StateSuccess},
		{StateRunning, StateFailure},
		{StateTransferSuccess, StateSuccess},
		{StateTransferSuccess, StateFailure},
		{StateCanceling, StateSuccess},
		{StateCanceling, StateFailure},
	}
	for _, tc := range allowed {
		require.True(t, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct {
		from, to State
	}{
		{StateValidated, StateScheduled},
		{StateValidated, StateRunning},
		{StateValidated, StateSuccess},
		{StatePrepared, StateRunning},
		{StateScheduled, StateSuccess},
		{StateRunning, StateValidated},
		{StateCanceling, StateRunning},
		{StateSuccess, StateFailure},
		{StateSuccess, StateRunning},
		{StateFailure, StateSuccess},
		{StateFailure, StateCanceling},
	}
	for _, tc := range denied {
		require.False(t, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatesHaveNoSuccessors(t *testing.T) {
	require.Empty(t, ValidTransitions[StateSuccess])
	require.Empty(t, ValidTransitions[StateFailure])
}
