// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// JobStorageManager implements the JobStorage interface on top of the
// package-wide storage engine. Components hold a JobStorageManager rather
// than the engine itself.
type JobStorageManager struct {
}

// NewJobStorageManager creates a JobStorageManager object.
func NewJobStorageManager() JobStorageManager {
	return JobStorageManager{}
}

// CreateJob persists a new verified job into storage.
func (jsm JobStorageManager) CreateJob(ctx context.Context, j *job.Job) error {
	if err := storage.CreateJob(ctx, j); err != nil {
		return fmt.Errorf("could not store job: %w", err)
	}
	return nil
}

// GetJob fetches a job from storage based on job id.
func (jsm JobStorageManager) GetJob(ctx context.Context, id types.JobID) (*job.Job, error) {
	return storage.GetJob(ctx, id)
}

// GetJobByURLID fetches a job from storage based on its url identifier.
func (jsm JobStorageManager) GetJobByURLID(ctx context.Context, urlID string) (*job.Job, error) {
	return storage.GetJobByURLID(ctx, urlID)
}

// SwapState forwards the atomic state swap to the storage engine.
func (jsm JobStorageManager) SwapState(ctx context.Context, id types.JobID, from, to job.State, status string, failedState *job.State, startedAt *time.Time) error {
	return storage.SwapState(ctx, id, from, to, status, failedState, startedAt)
}

// UpdateStatus updates the free-text status of a job.
func (jsm JobStorageManager) UpdateStatus(ctx context.Context, id types.JobID, status string) error {
	if err := storage.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("could not update job status: %w", err)
	}
	return nil
}

// ListJobs returns the jobs owned by `owner` matching the query.
func (jsm JobStorageManager) ListJobs(ctx context.Context, owner string, query *JobQuery) ([]*job.Job, error) {
	jobs, err := storage.ListJobs(ctx, owner, query)
	if err != nil {
		return nil, fmt.Errorf("could not list jobs: %w", err)
	}
	return jobs, nil
}

// ListActiveJobs returns all jobs not in a terminal state.
func (jsm JobStorageManager) ListActiveJobs(ctx context.Context) ([]*job.Job, error) {
	jobs, err := storage.ListActiveJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list active jobs: %w", err)
	}
	return jobs, nil
}
