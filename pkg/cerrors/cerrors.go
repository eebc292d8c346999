// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package cerrors

import (
	"fmt"
)

// ErrInvalidRequest indicates that a job submission was malformed, for
// example a bad job name or a wall time exceeding the policy ceiling.
type ErrInvalidRequest struct {
	Reason string
}

// Error returns the error string associated with the error
func (e *ErrInvalidRequest) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// ErrApplicationNotFound indicates that the application catalog has no entry
// for the requested name and version.
type ErrApplicationNotFound struct {
	Name    string
	Version string
}

// Error returns the error string associated with the error
func (e *ErrApplicationNotFound) Error() string {
	return fmt.Sprintf("application %s@%s not found", e.Name, e.Version)
}

// ErrUnsupportedMount indicates that a shared file system mount declares a
// backend that the target execution backend does not support.
type ErrUnsupportedMount struct {
	MountBackend string
	JobBackend   string
}

// Error returns the error string associated with the error
func (e *ErrUnsupportedMount) Error() string {
	return fmt.Sprintf("shared file system backend %q is not supported by compute backend %q", e.MountBackend, e.JobBackend)
}

// ErrUnknownBackend indicates that a backend name could not be resolved to a
// configured backend.
type ErrUnknownBackend struct {
	Name string
}

// Error returns the error string associated with the error
func (e *ErrUnknownBackend) Error() string {
	return fmt.Sprintf("unknown compute backend %q", e.Name)
}

// ErrInvalidTransition indicates that a proposed job state change is not
// allowed by the state machine.
type ErrInvalidTransition struct {
	From string
	To   string
}

// Error returns the error string associated with the error
func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s", e.From, e.To)
}

// ErrNotFound is returned both when a job does not exist and when the caller
// does not own it, so that ownership of other users' jobs is never confirmed.
type ErrNotFound struct {
	JobID string
}

// Error returns the error string associated with the error
func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("job %q not found", e.JobID)
}

// ErrUnauthorized indicates that the caller is neither the owner of the job
// nor the backend that owns it.
type ErrUnauthorized struct {
	JobID string
}

// Error returns the error string associated with the error
func (e *ErrUnauthorized) Error() string {
	return fmt.Sprintf("caller is not authorized to act on job %q", e.JobID)
}

// ErrOperationNotSupported indicates that a backend does not implement the
// requested operation. Backends return this instead of failing ambiguously,
// and transports surface it as a bad request.
type ErrOperationNotSupported struct {
	Backend   string
	Operation string
}

// Error returns the error string associated with the error
func (e *ErrOperationNotSupported) Error() string {
	return fmt.Sprintf("backend %q does not support operation %q", e.Backend, e.Operation)
}
