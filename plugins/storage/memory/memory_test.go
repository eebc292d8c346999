// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/storage"
	"github.com/sciencecloud/jobcore/pkg/types"
)

var ctx = context.Background()

func newJob(id types.JobID, owner string, createdAt time.Time) *job.Job {
	return &job.Job{
		ID:    id,
		Owner: owner,
		User:  owner,
		Application: job.Application{
			Name:    "blast",
			Version: "2.12.0",
		},
		Reservation:  job.Reservation{Nodes: 1, MaxTime: time.Hour},
		Backend:      "stub",
		URLID:        string(id),
		CurrentState: job.StateValidated,
		Status:       "Validated",
		CreatedAt:    createdAt,
		ModifiedAt:   createdAt,
	}
}

func TestCreateAndGetJob(t *testing.T) {
	m := New()
	j := newJob("job-1", "alice", time.Now())
	require.NoError(t, m.CreateJob(ctx, j))

	got, err := m.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, j.ID, got.ID)
	require.Equal(t, job.StateValidated, got.CurrentState)

	// the stored job must not alias the caller's copy
	got.Status = "mutated"
	again, err := m.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, "Validated", again.Status)
}

func TestCreateJobRejectsDuplicates(t *testing.T) {
	m := New()
	j := newJob("job-1", "alice", time.Now())
	require.NoError(t, m.CreateJob(ctx, j))
	require.Error(t, m.CreateJob(ctx, j))
}

func TestGetJobNotFound(t *testing.T) {
	m := New()
	_, err := m.GetJob(ctx, "missing")
	var notFound *cerrors.ErrNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestGetJobByURLID(t *testing.T) {
	m := New()
	require.NoError(t, m.CreateJob(ctx, newJob("job-1", "alice", time.Now())))

	got, err := m.GetJobByURLID(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, types.JobID("job-1"), got.ID)

	_, err = m.GetJobByURLID(ctx, "nope")
	var notFound *cerrors.ErrNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestSwapState(t *testing.T) {
	m := New()
	require.NoError(t, m.CreateJob(ctx, newJob("job-1", "alice", time.Now())))

	err := m.SwapState(ctx, "job-1", job.StateValidated, job.StatePrepared, "Preparing", nil, nil)
	require.NoError(t, err)

	got, err := m.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, job.StatePrepared, got.CurrentState)
	require.Equal(t, "Preparing", got.Status)
}

func TestSwapStateConflict(t *testing.T) {
	m := New()
	require.NoError(t, m.CreateJob(ctx, newJob("job-1", "alice", time.Now())))

	err := m.SwapState(ctx, "job-1", job.StatePrepared, job.StateScheduled, "", nil, nil)
	require.ErrorIs(t, err, storage.ErrStateConflict)

	got, err := m.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, job.StateValidated, got.CurrentState)
}

func TestSwapStateRecordsFailedStateAndStartedAt(t *testing.T) {
	m := New()
	require.NoError(t, m.CreateJob(ctx, newJob("job-1", "alice", time.Now())))
	require.NoError(t, m.SwapState(ctx, "job-1", job.StateValidated, job.StatePrepared, "", nil, nil))
	require.NoError(t, m.SwapState(ctx, "job-1", job.StatePrepared, job.StateScheduled, "", nil, nil))

	started := time.Now()
	require.NoError(t, m.SwapState(ctx, "job-1", job.StateScheduled, job.StateRunning, "Running", nil, &started))

	got, err := m.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got.StartedAt)
	require.True(t, got.StartedAt.Equal(started))

	// a second RUNNING-ish swap must not move StartedAt
	later := started.Add(time.Minute)
	failedFrom := job.StateRunning
	require.NoError(t, m.SwapState(ctx, "job-1", job.StateRunning, job.StateFailure, "Crashed", &failedFrom, &later))

	got, err = m.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, job.StateFailure, got.CurrentState)
	require.NotNil(t, got.FailedState)
	require.Equal(t, job.StateRunning, *got.FailedState)
	require.True(t, got.StartedAt.Equal(started))
}

func TestListJobs(t *testing.T) {
	m := New()
	base := time.Now()
	require.NoError(t, m.CreateJob(ctx, newJob("job-1", "alice", base.Add(-3*time.Hour))))
	require.NoError(t, m.CreateJob(ctx, newJob("job-2", "alice", base.Add(-2*time.Hour))))
	require.NoError(t, m.CreateJob(ctx, newJob("job-3", "bob", base.Add(-1*time.Hour))))

	jobs, err := m.ListJobs(ctx, "alice", nil)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	// newest first
	require.Equal(t, types.JobID("job-2"), jobs[0].ID)
	require.Equal(t, types.JobID("job-1"), jobs[1].ID)
}

func TestListJobsFilters(t *testing.T) {
	m := New()
	base := time.Now()
	j1 := newJob("job-1", "alice", base.Add(-3*time.Hour))
	j2 := newJob("job-2", "alice", base.Add(-2*time.Hour))
	j2.Application.Name = "bowtie"
	require.NoError(t, m.CreateJob(ctx, j1))
	require.NoError(t, m.CreateJob(ctx, j2))
	require.NoError(t, m.SwapState(ctx, "job-1", job.StateValidated, job.StatePrepared, "", nil, nil))

	jobs, err := m.ListJobs(ctx, "alice", &storage.JobQuery{Application: "bowtie"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, types.JobID("job-2"), jobs[0].ID)

	jobs, err = m.ListJobs(ctx, "alice", &storage.JobQuery{States: []job.State{job.StatePrepared}})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, types.JobID("job-1"), jobs[0].ID)

	jobs, err = m.ListJobs(ctx, "alice", &storage.JobQuery{CreatedAfter: base.Add(-150 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, types.JobID("job-2"), jobs[0].ID)
}

func TestListJobsPagination(t *testing.T) {
	m := New()
	base := time.Now()
	require.NoError(t, m.CreateJob(ctx, newJob("job-1", "alice", base.Add(-3*time.Hour))))
	require.NoError(t, m.CreateJob(ctx, newJob("job-2", "alice", base.Add(-2*time.Hour))))
	require.NoError(t, m.CreateJob(ctx, newJob("job-3", "alice", base.Add(-1*time.Hour))))

	jobs, err := m.ListJobs(ctx, "alice", &storage.JobQuery{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, types.JobID("job-2"), jobs[0].ID)

	jobs, err = m.ListJobs(ctx, "alice", &storage.JobQuery{Offset: 10})
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestListActiveJobs(t *testing.T) {
	m := New()
	base := time.Now()
	require.NoError(t, m.CreateJob(ctx, newJob("job-1", "alice", base.Add(-2*time.Hour))))
	require.NoError(t, m.CreateJob(ctx, newJob("job-2", "bob", base.Add(-1*time.Hour))))
	require.NoError(t, m.SwapState(ctx, "job-2", job.StateValidated, job.StateFailure, "", nil, nil))

	active, err := m.ListActiveJobs(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, types.JobID("job-1"), active[0].ID)
}

func TestJobEvents(t *testing.T) {
	m := New()
	ev := job.CompletedEvent{
		JobID:        "job-1",
		Owner:        "alice",
		Application:  "blast@2.12.0",
		WallDuration: 42 * time.Minute,
		Nodes:        2,
		Success:      true,
		EmitTime:     time.Now(),
	}
	require.NoError(t, m.StoreJobEvent(ctx, ev))

	events, err := m.GetJobEvents(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, ev.Application, events[0].Application)

	events, err = m.GetJobEvents(ctx, "job-2")
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestReset(t *testing.T) {
	m := New()
	require.NoError(t, m.CreateJob(ctx, newJob("job-1", "alice", time.Now())))
	require.NoError(t, m.StoreJobEvent(ctx, job.CompletedEvent{JobID: "job-1"}))
	require.NoError(t, m.Reset())

	_, err := m.GetJob(ctx, "job-1")
	require.Error(t, err)
	events, err := m.GetJobEvents(ctx, "job-1")
	require.NoError(t, err)
	require.Empty(t, events)
}
