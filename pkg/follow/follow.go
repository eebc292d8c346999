// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package follow

import (
	"context"
	"errors"
	"time"

	"github.com/sciencecloud/jobcore/pkg/backend"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/logging"
	"github.com/sciencecloud/jobcore/pkg/orchestrator"
	"github.com/sciencecloud/jobcore/pkg/types"
)

var log = logging.GetLogger("pkg/follow")

// DefaultMaxLines bounds how many log lines a single poll returns per
// stream when the client does not ask for a specific amount.
const DefaultMaxLines = 1000

// StreamsRequest is one poll of a job's output streams. Offsets are line
// offsets as returned by the previous poll; a fresh follow starts at zero.
type StreamsRequest struct {
	JobID types.JobID

	StdoutOffset   int
	StdoutMaxLines int
	StderrOffset   int
	StderrMaxLines int
}

// StreamsResponse carries the incremental output of one poll together with
// a snapshot of the job's lifecycle, so a client can render progress and
// detect completion from follow responses alone.
type StreamsResponse struct {
	JobID types.JobID
	Name  string

	Stdout string
	Stderr string

	NextStdoutOffset int
	NextStderrOffset int

	State       job.State
	Status      string
	FailedState *job.State

	// TimeLeft is the remaining wall time, present only once the job has
	// started.
	TimeLeft *time.Duration
}

// Service answers follow requests by delegating log retrieval to the backend
// owning the job. Jobs in a terminal state are still served: their logs stay
// available until the backend garbage-collects them.
type Service struct {
	orch     *orchestrator.Orchestrator
	registry *backend.Registry
}

// NewService creates a follow Service on top of the given orchestrator and
// backend registry.
func NewService(orch *orchestrator.Orchestrator, registry *backend.Registry) (*Service, error) {
	if orch == nil {
		return nil, errors.New("orchestrator cannot be nil")
	}
	if registry == nil {
		return nil, errors.New("backend registry cannot be nil")
	}
	return &Service{orch: orch, registry: registry}, nil
}

// FollowStreams serves one poll of a job's output streams to its owner. A
// job owned by somebody else is indistinguishable from a missing one.
func (s *Service) FollowStreams(ctx context.Context, caller types.Principal, req StreamsRequest) (*StreamsResponse, error) {
	j, err := s.orch.GetJob(ctx, caller, req.JobID)
	if err != nil {
		return nil, err
	}
	return s.poll(ctx, j, req)
}

// poll fetches one chunk of log data and assembles the response around the
// job snapshot. Backends without log data yet return an empty chunk, which
// is a valid response carrying only the lifecycle snapshot.
func (s *Service) poll(ctx context.Context, j *job.Job, req StreamsRequest) (*StreamsResponse, error) {
	handle, err := s.registry.Resolve(j.Backend)
	if err != nil {
		return nil, err
	}

	stdoutMax := req.StdoutMaxLines
	if stdoutMax <= 0 {
		stdoutMax = DefaultMaxLines
	}
	stderrMax := req.StderrMaxLines
	if stderrMax <= 0 {
		stderrMax = DefaultMaxLines
	}

	chunk, err := handle.FollowLogs(ctx, j.ID, req.StdoutOffset, stdoutMax, req.StderrOffset, stderrMax)
	if err != nil {
		return nil, err
	}

	resp := &StreamsResponse{
		JobID:            j.ID,
		Name:             j.Name,
		Stdout:           chunk.Stdout,
		Stderr:           chunk.Stderr,
		NextStdoutOffset: chunk.NextStdoutOffset,
		NextStderrOffset: chunk.NextStderrOffset,
		State:            j.CurrentState,
		Status:           j.Status,
		FailedState:      j.FailedState,
	}
	if left, ok := j.TimeLeft(); ok {
		resp.TimeLeft = &left
	}
	return resp, nil
}
