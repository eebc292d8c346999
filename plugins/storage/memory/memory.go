// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/storage"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// Memory implements a storage engine which stores everything in memory. This
// storage engine is inefficient and should be used only for development and
// testing purposes.
type Memory struct {
	lock      sync.Mutex
	jobs      map[types.JobID]*job.Job
	jobEvents []job.CompletedEvent
}

// New creates a Memory storage engine.
func New() *Memory {
	return &Memory{
		jobs: make(map[types.JobID]*job.Job),
	}
}

// Version returns the version of the memory storage layer.
func (m *Memory) Version() (uint64, error) {
	return storage.MinStorageVersion, nil
}

// Reset restores a clean state, for use in between tests.
func (m *Memory) Reset() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.jobs = make(map[types.JobID]*job.Job)
	m.jobEvents = nil
	return nil
}

func copyJob(j *job.Job) *job.Job {
	clone := *j
	if j.FailedState != nil {
		failedState := *j.FailedState
		clone.FailedState = &failedState
	}
	if j.StartedAt != nil {
		startedAt := *j.StartedAt
		clone.StartedAt = &startedAt
	}
	return &clone
}

// CreateJob stores a new job.
func (m *Memory) CreateJob(_ context.Context, j *job.Job) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, ok := m.jobs[j.ID]; ok {
		return &cerrors.ErrInvalidRequest{Reason: "job " + string(j.ID) + " already exists"}
	}
	m.jobs[j.ID] = copyJob(j)
	return nil
}

// GetJob returns a job by id.
func (m *Memory) GetJob(_ context.Context, id types.JobID) (*job.Job, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, &cerrors.ErrNotFound{JobID: string(id)}
	}
	return copyJob(j), nil
}

// GetJobByURLID returns a job by its interactive-session url identifier.
func (m *Memory) GetJobByURLID(_ context.Context, urlID string) (*job.Job, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, j := range m.jobs {
		if j.URLID == urlID {
			return copyJob(j), nil
		}
	}
	return nil, &cerrors.ErrNotFound{JobID: urlID}
}

// SwapState applies a state transition if and only if the stored state still
// matches the expected one.
func (m *Memory) SwapState(_ context.Context, id types.JobID, from, to job.State, status string, failedState *job.State, startedAt *time.Time) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return &cerrors.ErrNotFound{JobID: string(id)}
	}
	if j.CurrentState != from {
		return storage.ErrStateConflict
	}
	j.CurrentState = to
	j.Status = status
	j.ModifiedAt = time.Now()
	if failedState != nil {
		fs := *failedState
		j.FailedState = &fs
	}
	if startedAt != nil && j.StartedAt == nil {
		st := *startedAt
		j.StartedAt = &st
	}
	return nil
}

// UpdateStatus updates the free-text status of a job without changing state.
func (m *Memory) UpdateStatus(_ context.Context, id types.JobID, status string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return &cerrors.ErrNotFound{JobID: string(id)}
	}
	j.Status = status
	j.ModifiedAt = time.Now()
	return nil
}

func jobStateMatch(queryStates []job.State, state job.State) bool {
	if len(queryStates) == 0 {
		return true
	}
	for _, candidate := range queryStates {
		if state == candidate {
			return true
		}
	}
	return false
}

func jobTimeMatch(after, before time.Time, createdAt time.Time) bool {
	if !after.IsZero() && createdAt.Before(after) {
		return false
	}
	if !before.IsZero() && createdAt.After(before) {
		return false
	}
	return true
}

// ListJobs returns the jobs of an owner matching the query, newest first.
func (m *Memory) ListJobs(_ context.Context, owner string, query *storage.JobQuery) ([]*job.Job, error) {
	if query == nil {
		query = &storage.JobQuery{}
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	var matching []*job.Job
	for _, j := range m.jobs {
		if j.Owner != owner {
			continue
		}
		if !jobStateMatch(query.States, j.CurrentState) {
			continue
		}
		if query.Application != "" && j.Application.Name != query.Application {
			continue
		}
		if query.Version != "" && j.Application.Version != query.Version {
			continue
		}
		if !jobTimeMatch(query.CreatedAfter, query.CreatedBefore, j.CreatedAt) {
			continue
		}
		matching = append(matching, copyJob(j))
	}
	sort.Slice(matching, func(i, k int) bool {
		return matching[i].CreatedAt.After(matching[k].CreatedAt)
	})

	if query.Offset > 0 {
		if query.Offset >= len(matching) {
			return nil, nil
		}
		matching = matching[query.Offset:]
	}
	if query.Limit > 0 && len(matching) > query.Limit {
		matching = matching[:query.Limit]
	}
	return matching, nil
}

// ListActiveJobs returns all jobs not in a terminal state.
func (m *Memory) ListActiveJobs(_ context.Context) ([]*job.Job, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	var active []*job.Job
	for _, j := range m.jobs {
		if !j.CurrentState.IsTerminal() {
			active = append(active, copyJob(j))
		}
	}
	sort.Slice(active, func(i, k int) bool {
		return active[i].CreatedAt.Before(active[k].CreatedAt)
	})
	return active, nil
}

// StoreJobEvent appends an accounting event.
func (m *Memory) StoreJobEvent(_ context.Context, ev job.CompletedEvent) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.jobEvents = append(m.jobEvents, ev)
	return nil
}

// GetJobEvents returns the accounting events recorded for a job.
func (m *Memory) GetJobEvents(_ context.Context, jobID types.JobID) ([]job.CompletedEvent, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	var matching []job.CompletedEvent
	for _, ev := range m.jobEvents {
		if ev.JobID == jobID {
			matching = append(matching, ev)
		}
	}
	return matching, nil
}
