// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package backend

import (
	"context"

	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// FollowChunk is the incremental log data returned by a single follow call,
// together with the offsets a client should use for its next call.
type FollowChunk struct {
	Stdout string
	Stderr string

	NextStdoutOffset int
	NextStderrOffset int
}

// IsEmpty returns whether the chunk carries no new log data.
func (c FollowChunk) IsEmpty() bool {
	return c.Stdout == "" && c.Stderr == ""
}

// VNCParameters are the connection parameters of a job's VNC session as
// reported by the backend.
type VNCParameters struct {
	Path     string
	Password string
}

// WebParameters are the connection parameters of a job's web session as
// reported by the backend.
type WebParameters struct {
	Path string
}

// Handle exposes exactly the operations the orchestration core needs from a
// compute backend. A backend that does not support an operation returns
// cerrors.ErrOperationNotSupported instead of failing ambiguously.
type Handle interface {
	// Name returns the backend name the handle was registered under.
	Name() string

	// Prepare asks the backend to accept the job and stage its input data.
	// The orchestrator calls it after committing PREPARED; a successful
	// return allows the transition to SCHEDULED.
	Prepare(ctx context.Context, j *job.Job) error

	// Cancel asks the backend to stop the job. The job's terminal state is
	// still reported through the callback protocol.
	Cancel(ctx context.Context, j *job.Job) error

	// Cleanup releases any backend resources still held for the job. Called
	// after a terminal state has been committed; errors are logged, never
	// propagated.
	Cleanup(ctx context.Context, id types.JobID) error

	// FollowLogs returns stdout/stderr data starting at the given offsets,
	// bounded by the given maximum line counts.
	FollowLogs(ctx context.Context, id types.JobID, stdoutOffset, stdoutMaxLines, stderrOffset, stderrMaxLines int) (FollowChunk, error)

	// QueryVNCParameters returns the VNC connection parameters of a running
	// job.
	QueryVNCParameters(ctx context.Context, j *job.Job) (VNCParameters, error)

	// QueryWebParameters returns the web session parameters of a running
	// job.
	QueryWebParameters(ctx context.Context, j *job.Job) (WebParameters, error)

	// SupportedSharedFileSystemBackends lists the shared file system
	// implementations this backend can mount. An empty list means shared
	// file system mounts are rejected at verification time.
	SupportedSharedFileSystemBackends() []string
}
