// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package orchestrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// HandleProposedStateChange validates and applies a state change proposed by
// a backend callback or by the job's owner. Backends may propose any legal
// transition for jobs they own; end users may only propose CANCELING for
// their own jobs. A user-proposed cancellation additionally asks the owning
// backend to stop the job.
func (o *Orchestrator) HandleProposedStateChange(ctx context.Context, caller types.Principal, id types.JobID, proposed job.State, status string) error {
	if !proposed.IsValid() {
		return &cerrors.ErrInvalidRequest{Reason: fmt.Sprintf("unknown state %q", proposed)}
	}

	j, err := o.findJob(ctx, id)
	if err != nil {
		return err
	}

	if caller.IsBackend() {
		if _, err := o.registry.VerifyCaller(id, j.Backend, caller); err != nil {
			return err
		}
		_, _, err := o.transition(ctx, id, proposed, status)
		return err
	}

	// End users can only ever ask for cancellation, and only of jobs they
	// own. Any other proposal is masked the same as a missing job so that
	// job ids cannot be probed.
	if j.Owner != caller.Username {
		return &cerrors.ErrNotFound{JobID: string(id)}
	}
	if proposed != job.StateCanceling {
		return &cerrors.ErrInvalidRequest{Reason: "users may only cancel jobs"}
	}
	if status == "" {
		status = "Job is cancelled by the user"
	}
	j, applied, err := o.transition(ctx, id, job.StateCanceling, status)
	if err != nil || !applied {
		return err
	}
	handle, err := o.registry.Resolve(j.Backend)
	if err != nil {
		return err
	}
	if err := handle.Cancel(ctx, j); err != nil {
		log.Warningf("Job %s: backend did not accept the cancel request: %v", id, err)
	}
	return nil
}

// HandleJobComplete finalizes a job on behalf of its backend and emits the
// accounting event for it. The accounting event is emitted exactly once, on
// the callback that actually commits the terminal transition; retransmitted
// completion callbacks are accepted as no-ops.
func (o *Orchestrator) HandleJobComplete(ctx context.Context, caller types.Principal, id types.JobID, wallDuration time.Duration, success bool) error {
	j, err := o.findJob(ctx, id)
	if err != nil {
		return err
	}
	if _, err := o.registry.VerifyCaller(id, j.Backend, caller); err != nil {
		return err
	}

	final := job.StateFailure
	status := "Job did not complete successfully"
	if success {
		final = job.StateSuccess
		status = "Job completed successfully"
	}
	j, applied, err := o.transition(ctx, id, final, status)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	if wallDuration < 0 {
		wallDuration = 0
	}
	event := job.CompletedEvent{
		JobID:        j.ID,
		Owner:        j.Owner,
		Application:  j.Application.NameAndVersion(),
		WallDuration: wallDuration,
		Nodes:        j.Reservation.Nodes,
		Success:      success,
		EmitTime:     time.Now(),
	}
	if err := o.events.Emit(ctx, event); err != nil {
		// The job is already final; accounting must not undo that.
		log.Errorf("Job %s: could not emit accounting event: %v", id, err)
		return nil
	}
	metricAccountingEvents.Inc()
	return nil
}

// HandleAddStatus updates the free-form status line of a running job on
// behalf of its backend. Status updates against terminal jobs are dropped.
func (o *Orchestrator) HandleAddStatus(ctx context.Context, caller types.Principal, id types.JobID, status string) error {
	j, err := o.findJob(ctx, id)
	if err != nil {
		return err
	}
	if _, err := o.registry.VerifyCaller(id, j.Backend, caller); err != nil {
		return err
	}
	if j.CurrentState.IsTerminal() {
		log.Debugf("Job %s is already %s, dropping status update", id, j.CurrentState)
		return nil
	}
	return o.jsm.UpdateStatus(ctx, id, status)
}

// HandleIncomingFile accepts a result artifact submitted by the backend of a
// job and hands it to the configured artifact sink.
func (o *Orchestrator) HandleIncomingFile(ctx context.Context, caller types.Principal, id types.JobID, filePath string, length int64, data io.Reader) error {
	j, err := o.findJob(ctx, id)
	if err != nil {
		return err
	}
	if _, err := o.registry.VerifyCaller(id, j.Backend, caller); err != nil {
		return err
	}
	if o.sink == nil {
		return &cerrors.ErrOperationNotSupported{Backend: j.Backend, Operation: "submit file"}
	}
	if filePath == "" {
		return &cerrors.ErrInvalidRequest{Reason: "file path cannot be empty"}
	}
	return o.sink.Accept(ctx, j, filePath, length, data)
}

// LookupOwnJob returns a job to the backend that owns it. Jobs owned by a
// different backend are masked as not found.
func (o *Orchestrator) LookupOwnJob(ctx context.Context, caller types.Principal, id types.JobID) (*job.Job, error) {
	j, err := o.findJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := o.registry.VerifyCaller(id, j.Backend, caller); err != nil {
		return nil, &cerrors.ErrNotFound{JobID: string(id)}
	}
	return j, nil
}

// LookupOwnJobByURL resolves a job by its interactive-session identifier on
// behalf of the backend that owns it.
func (o *Orchestrator) LookupOwnJobByURL(ctx context.Context, caller types.Principal, urlID string) (*job.Job, error) {
	j, err := o.jsm.GetJobByURLID(ctx, urlID)
	if err != nil {
		return nil, err
	}
	if _, err := o.registry.VerifyCaller(j.ID, j.Backend, caller); err != nil {
		return nil, &cerrors.ErrNotFound{JobID: urlID}
	}
	return j, nil
}
