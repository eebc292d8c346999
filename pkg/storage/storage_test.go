// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeVersionEngine stands in for an engine whose Version check misbehaves.
// The embedded Storage stays nil; no other method is ever called.
type fakeVersionEngine struct {
	Storage
	version uint64
	err     error
}

func (e fakeVersionEngine) Version() (uint64, error) { return e.version, e.err }

func TestSetStorageRejectsBrokenEngines(t *testing.T) {
	require.Error(t, SetStorage(nil))

	err := SetStorage(fakeVersionEngine{err: errors.New("dial tcp: connection refused")})
	require.ErrorContains(t, err, "could not determine storage version")

	err = SetStorage(fakeVersionEngine{version: MinStorageVersion - 1})
	require.ErrorContains(t, err, "minimum storage version")

	require.NoError(t, SetStorage(fakeVersionEngine{version: MinStorageVersion}))
}
