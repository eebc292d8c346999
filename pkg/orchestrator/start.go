// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package orchestrator

import (
	"context"
	"fmt"

	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/types"
	"github.com/sciencecloud/jobcore/pkg/verify"
)

// StartJob verifies and persists a job submission, then asynchronously asks
// the resolved backend to prepare it. It returns as soon as the VALIDATED
// job is durable; preparation continues in the background, and a preparation
// failure drives the job to FAILURE with a descriptive status.
func (o *Orchestrator) StartJob(ctx context.Context, d *job.Descriptor, submitter verify.Submitter) (types.JobID, error) {
	j, err := o.verifier.Verify(ctx, d, submitter)
	if err != nil {
		return "", err
	}
	if err := o.jsm.CreateJob(ctx, j); err != nil {
		return "", fmt.Errorf("could not persist job: %w", err)
	}
	metricJobsStarted.Inc()
	log.Infof("Job %s: accepted for %s on backend %q", j.ID, j.Application.NameAndVersion(), j.Backend)

	o.jobsWg.Add(1)
	go func() {
		defer o.jobsWg.Done()
		o.prepareJob(j)
	}()
	return j.ID, nil
}

// prepareJob drives a freshly validated job through PREPARED and SCHEDULED.
// It runs on the orchestration context, not the submission request context,
// so that a disconnecting client does not abort preparation.
func (o *Orchestrator) prepareJob(j *job.Job) {
	handle, err := o.registry.Resolve(j.Backend)
	if err != nil {
		o.failJob(o.ctx, j.ID, fmt.Sprintf("Could not resolve backend: %v", err))
		return
	}

	prepared, applied, err := o.transition(o.ctx, j.ID, job.StatePrepared, "Preparing job")
	if err != nil || !applied {
		if err != nil {
			o.failJob(o.ctx, j.ID, fmt.Sprintf("Preparation failed: %v", err))
		}
		return
	}

	// The backend RPC runs outside the per-job lock; only the state writes
	// themselves are critical sections.
	if err := handle.Prepare(o.ctx, prepared); err != nil {
		o.failJob(o.ctx, j.ID, fmt.Sprintf("Backend refused to prepare job: %v", err))
		return
	}

	if _, _, err := o.transition(o.ctx, j.ID, job.StateScheduled, "Job scheduled"); err != nil {
		log.Warningf("Job %s: could not mark as scheduled: %v", j.ID, err)
	}
}
