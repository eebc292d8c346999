// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package orchestrator

import (
	"context"

	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/storage"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// GetJob returns a job to its owner. A job owned by somebody else is
// indistinguishable from a missing one.
func (o *Orchestrator) GetJob(ctx context.Context, caller types.Principal, id types.JobID) (*job.Job, error) {
	j, err := o.findJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.Owner != caller.Username {
		return nil, &cerrors.ErrNotFound{JobID: string(id)}
	}
	return j, nil
}

// ListJobs returns the caller's jobs matching the query, newest first.
func (o *Orchestrator) ListJobs(ctx context.Context, caller types.Principal, queryFields ...storage.JobQueryField) ([]*job.Job, error) {
	query, err := storage.BuildJobQuery(queryFields...)
	if err != nil {
		return nil, &cerrors.ErrInvalidRequest{Reason: err.Error()}
	}
	return o.jsm.ListJobs(ctx, caller.Username, query)
}
