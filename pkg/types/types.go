// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package types

// JobID uniquely identifies a job within the orchestrator. It is an opaque
// string assigned at verification time and never reused.
type JobID string

// Principal identifies an authenticated caller. A principal is either an end
// user (Username set, BackendName empty) or a compute backend calling back
// into the orchestrator (BackendName set).
type Principal struct {
	// Username is the name of the end user, if the caller is a user.
	Username string

	// BackendName is the name of the compute backend, if the caller is a
	// backend service.
	BackendName string
}

// IsBackend returns whether the principal is a compute backend rather than an
// end user.
func (p Principal) IsBackend() bool {
	return p.BackendName != ""
}

// UserPrincipal returns a Principal for the given end user.
func UserPrincipal(username string) Principal {
	return Principal{Username: username}
}

// BackendPrincipal returns a Principal for the given compute backend.
func BackendPrincipal(name string) Principal {
	return Principal{BackendName: name}
}
