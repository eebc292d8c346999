// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package orchestrator

import (
	"context"

	"github.com/sciencecloud/jobcore/pkg/job"
)

// ReplayLostJobs inspects every non-terminal job found in storage at startup
// and resumes its lifecycle. Jobs stuck before dispatch are re-prepared;
// jobs stuck in CANCELING get a fresh cancel request; everything else is
// left to the backend's own callbacks. A failure to recover one job is
// logged and skipped so that a single bad record cannot block recovery of
// the rest.
func (o *Orchestrator) ReplayLostJobs(ctx context.Context) {
	jobs, err := o.jsm.ListActiveJobs(ctx)
	if err != nil {
		log.Errorf("Could not list outstanding jobs for replay: %v", err)
		return
	}
	if len(jobs) == 0 {
		return
	}
	log.Infof("Replaying %d outstanding jobs", len(jobs))

	for _, j := range jobs {
		if err := o.replayJob(ctx, j); err != nil {
			log.Warningf("Job %s: could not replay from state %s: %v", j.ID, j.CurrentState, err)
		}
	}
}

func (o *Orchestrator) replayJob(ctx context.Context, j *job.Job) error {
	switch j.CurrentState {
	case job.StateValidated:
		// Lost before preparation ever started; run the full prepare path.
		o.jobsWg.Add(1)
		go func() {
			defer o.jobsWg.Done()
			o.prepareJob(j)
		}()
		return nil

	case job.StatePrepared:
		// The backend accepted the prepare call but the scheduled mark was
		// lost. The backend call is idempotent on its side, so repeating it
		// is safe.
		handle, err := o.registry.Resolve(j.Backend)
		if err != nil {
			o.failJob(ctx, j.ID, "Backend disappeared while the job was being prepared")
			return nil
		}
		if err := handle.Prepare(ctx, j); err != nil {
			o.failJob(ctx, j.ID, "Backend refused to resume a prepared job")
			return nil
		}
		_, _, err = o.transition(ctx, j.ID, job.StateScheduled, "Job scheduled")
		return err

	case job.StateCanceling:
		handle, err := o.registry.Resolve(j.Backend)
		if err != nil {
			return err
		}
		return handle.Cancel(ctx, j)

	case job.StateScheduled, job.StateRunning, job.StateTransferSuccess:
		// Dispatched jobs are owned by their backend; the next callback
		// will move them forward.
		log.Debugf("Job %s: waiting on backend %q (state %s)", j.ID, j.Backend, j.CurrentState)
		return nil
	}
	return nil
}
