// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package follow

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// DefaultPollInterval is how often the push follower polls the backend for
// new log data on behalf of a subscribed client.
var DefaultPollInterval = 500 * time.Millisecond

// Sink receives pushed follow responses. Implementations wrap a concrete
// transport, e.g. a websocket connection; a Send error terminates the
// subscription.
type Sink interface {
	Send(ctx context.Context, resp *StreamsResponse) error
}

// Stream pushes a job's output to the sink until the job reaches a terminal
// state, the context is cancelled, or the sink reports an error. Polling is
// paced by a rate limiter so that an idle job does not busy-loop against the
// backend.
//
// The first response is sent immediately and unconditionally, so the client
// always learns the current lifecycle snapshot. After that, responses are
// pushed only when they carry new log data or a state change. When the job
// turns terminal one final response is flushed, including any log data
// produced between the last poll and completion.
func (s *Service) Stream(ctx context.Context, caller types.Principal, id types.JobID, sink Sink) error {
	limiter := rate.NewLimiter(rate.Every(DefaultPollInterval), 1)

	req := StreamsRequest{JobID: id}
	first := true
	var lastState job.State

	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		j, err := s.orch.GetJob(ctx, caller, id)
		if err != nil {
			return err
		}
		resp, err := s.poll(ctx, j, req)
		if err != nil {
			return err
		}

		hasData := resp.Stdout != "" || resp.Stderr != ""
		if first || hasData || resp.State != lastState {
			if err := sink.Send(ctx, resp); err != nil {
				log.Debugf("Job %s: follow subscriber went away: %v", id, err)
				return err
			}
			lastState = resp.State
			first = false
		}

		req.StdoutOffset = resp.NextStdoutOffset
		req.StderrOffset = resp.NextStderrOffset

		if resp.State.IsTerminal() {
			return nil
		}
	}
}
