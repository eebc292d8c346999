// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// storage is the storage engine used by the orchestrator. It can be
// overridden via the exported function SetStorage.
var storage Storage

// MinStorageVersion is the minimum engine version the core can work with.
const MinStorageVersion uint64 = 1

// ErrStateConflict is returned by SwapState when the stored state no longer
// matches the expected one. Callers re-read the job and retry the
// transition validation.
var ErrStateConflict = errors.New("stored job state does not match the expected state")

// Storage defines the interface that storage engines must implement.
type Storage interface {
	JobStorage
	EventStorage

	// Version returns the version of the storage being used
	Version() (uint64, error)
}

// JobStorage is the narrow interface through which the orchestration core
// touches durable job state. The backing store is an external collaborator;
// only this interface is part of the core.
type JobStorage interface {
	// CreateJob persists a freshly verified job.
	CreateJob(ctx context.Context, j *job.Job) error

	// GetJob fetches a job by id. Returns cerrors.ErrNotFound if the job
	// does not exist.
	GetJob(ctx context.Context, id types.JobID) (*job.Job, error)

	// GetJobByURLID fetches a job by its interactive-session url identifier.
	GetJobByURLID(ctx context.Context, urlID string) (*job.Job, error)

	// SwapState writes a state transition atomically: the write only
	// applies if the stored state still equals `from`, otherwise
	// ErrStateConflict is returned and nothing is mutated. The status,
	// failed state and start time are written together with the state and
	// the modification timestamp.
	SwapState(ctx context.Context, id types.JobID, from, to job.State, status string, failedState *job.State, startedAt *time.Time) error

	// UpdateStatus updates the free-text status of a job without touching
	// its state.
	UpdateStatus(ctx context.Context, id types.JobID, status string) error

	// ListJobs returns the jobs owned by `owner` matching the query,
	// newest first.
	ListJobs(ctx context.Context, owner string, query *JobQuery) ([]*job.Job, error)

	// ListActiveJobs returns all jobs that are not in a terminal state,
	// regardless of owner. Used by startup recovery.
	ListActiveJobs(ctx context.Context) ([]*job.Job, error)
}

// EventStorage persists job accounting events.
type EventStorage interface {
	StoreJobEvent(ctx context.Context, ev job.CompletedEvent) error
	GetJobEvents(ctx context.Context, jobID types.JobID) ([]job.CompletedEvent, error)
}

// ResettableStorage is implemented by storage engines that support reset
// operation. It is meant for integration tests.
type ResettableStorage interface {
	Storage
	Reset() error
}

// SetStorage sets the desired storage engine. Switching to a new storage
// engine implies garbage collecting the old one.
func SetStorage(storageEngine Storage) error {
	if storageEngine == nil {
		return fmt.Errorf("cannot configure a nil storage engine")
	}
	v, err := storageEngine.Version()
	if err != nil {
		return fmt.Errorf("could not determine storage version: %w", err)
	}
	if v < MinStorageVersion {
		return fmt.Errorf("could not configure storage of type %T (minimum storage version: %d, current storage version: %d)", storageEngine, MinStorageVersion, v)
	}
	storage = storageEngine
	return nil
}
