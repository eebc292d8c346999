// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package stub provides an in-process compute backend. It does not execute
// anything: it records the calls it receives and serves canned log data.
// It backs development mode and the test suites of the orchestration core.
package stub

import (
	"context"
	"strings"
	"sync"

	"github.com/sciencecloud/jobcore/pkg/backend"
	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// Name defaults the plugin name.
const Name = "stub"

// Stub implements backend.Handle in-process.
type Stub struct {
	name string

	lock sync.Mutex

	prepared  map[types.JobID]*job.Job
	cancelled map[types.JobID]bool
	cleaned   map[types.JobID]bool

	stdout map[types.JobID][]string
	stderr map[types.JobID][]string

	vncParams map[types.JobID]backend.VNCParameters
	webParams map[types.JobID]backend.WebParameters

	sharedFSBackends []string

	// prepareErr, when set, makes Prepare fail. Used to exercise the
	// orchestrator's synchronous failure path.
	prepareErr error
}

// Opt is a function type to set parameters on the Stub object.
type Opt func(s *Stub)

// WithName overrides the backend name the stub registers under.
func WithName(name string) Opt {
	return func(s *Stub) { s.name = name }
}

// WithSharedFileSystemBackends sets the shared file system implementations
// the stub advertises support for.
func WithSharedFileSystemBackends(names ...string) Opt {
	return func(s *Stub) { s.sharedFSBackends = names }
}

// WithPrepareError makes every Prepare call fail with the given error.
func WithPrepareError(err error) Opt {
	return func(s *Stub) { s.prepareErr = err }
}

// New creates a Stub backend.
func New(opts ...Opt) *Stub {
	s := &Stub{
		name:      Name,
		prepared:  make(map[types.JobID]*job.Job),
		cancelled: make(map[types.JobID]bool),
		cleaned:   make(map[types.JobID]bool),
		stdout:    make(map[types.JobID][]string),
		stderr:    make(map[types.JobID][]string),
		vncParams: make(map[types.JobID]backend.VNCParameters),
		webParams: make(map[types.JobID]backend.WebParameters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the backend name.
func (s *Stub) Name() string {
	return s.name
}

// Prepare records the job as accepted by the backend.
func (s *Stub) Prepare(_ context.Context, j *job.Job) error {
	if s.prepareErr != nil {
		return s.prepareErr
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.prepared[j.ID] = j
	return nil
}

// Cancel records the cancellation request.
func (s *Stub) Cancel(_ context.Context, j *job.Job) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.cancelled[j.ID] = true
	return nil
}

// Cleanup records that resources for the job were released.
func (s *Stub) Cleanup(_ context.Context, id types.JobID) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.cleaned[id] = true
	return nil
}

// AppendStdout adds stdout lines that subsequent FollowLogs calls serve.
func (s *Stub) AppendStdout(id types.JobID, lines ...string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.stdout[id] = append(s.stdout[id], lines...)
}

// AppendStderr adds stderr lines that subsequent FollowLogs calls serve.
func (s *Stub) AppendStderr(id types.JobID, lines ...string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.stderr[id] = append(s.stderr[id], lines...)
}

func sliceLines(lines []string, offset, maxLines int) (string, int) {
	if offset >= len(lines) {
		return "", len(lines)
	}
	end := len(lines)
	if maxLines > 0 && offset+maxLines < end {
		end = offset + maxLines
	}
	chunk := lines[offset:end]
	text := strings.Join(chunk, "\n")
	if len(chunk) > 0 {
		text += "\n"
	}
	return text, end
}

// FollowLogs serves the recorded log lines incrementally by line offset.
func (s *Stub) FollowLogs(_ context.Context, id types.JobID, stdoutOffset, stdoutMaxLines, stderrOffset, stderrMaxLines int) (backend.FollowChunk, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var chunk backend.FollowChunk
	chunk.Stdout, chunk.NextStdoutOffset = sliceLines(s.stdout[id], stdoutOffset, stdoutMaxLines)
	chunk.Stderr, chunk.NextStderrOffset = sliceLines(s.stderr[id], stderrOffset, stderrMaxLines)
	return chunk, nil
}

// SetVNCParameters makes the stub report VNC support for the given job.
func (s *Stub) SetVNCParameters(id types.JobID, params backend.VNCParameters) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.vncParams[id] = params
}

// SetWebParameters makes the stub report web session support for the given
// job.
func (s *Stub) SetWebParameters(id types.JobID, params backend.WebParameters) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.webParams[id] = params
}

// QueryVNCParameters returns the recorded VNC parameters, or an unsupported
// error if none were set for the job.
func (s *Stub) QueryVNCParameters(_ context.Context, j *job.Job) (backend.VNCParameters, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	params, ok := s.vncParams[j.ID]
	if !ok {
		return backend.VNCParameters{}, &cerrors.ErrOperationNotSupported{Backend: s.name, Operation: "vnc"}
	}
	return params, nil
}

// QueryWebParameters returns the recorded web parameters, or an unsupported
// error if none were set for the job.
func (s *Stub) QueryWebParameters(_ context.Context, j *job.Job) (backend.WebParameters, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	params, ok := s.webParams[j.ID]
	if !ok {
		return backend.WebParameters{}, &cerrors.ErrOperationNotSupported{Backend: s.name, Operation: "web"}
	}
	return params, nil
}

// SupportedSharedFileSystemBackends lists the shared file system
// implementations the stub was configured with.
func (s *Stub) SupportedSharedFileSystemBackends() []string {
	return s.sharedFSBackends
}

// Prepared returns whether Prepare was called for the job.
func (s *Stub) Prepared(id types.JobID) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.prepared[id]
	return ok
}

// Cancelled returns whether Cancel was called for the job.
func (s *Stub) Cancelled(id types.JobID) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.cancelled[id]
}

// Cleaned returns whether Cleanup was called for the job.
func (s *Stub) Cleaned(id types.JobID) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.cleaned[id]
}
