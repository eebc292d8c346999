// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sciencecloud/jobcore/pkg/backend"
	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/logging"
	"github.com/sciencecloud/jobcore/pkg/storage"
	"github.com/sciencecloud/jobcore/pkg/types"
	"github.com/sciencecloud/jobcore/pkg/verify"
)

var log = logging.GetLogger("pkg/orchestrator")

// swapRetryBudget is the number of times a state write is retried when the
// storage compare-and-swap reports a conflict. Each retry re-reads the job
// and re-validates the proposed transition against the fresh state.
const swapRetryBudget = 3

// ArtifactSink is the external collaborator receiving result files produced
// by backends during job execution.
type ArtifactSink interface {
	Accept(ctx context.Context, j *job.Job, filePath string, length int64, data io.Reader) error
}

// LifecycleObserver is notified after every committed state transition.
// Observers run outside the per-job lock and must not block.
type LifecycleObserver func(j *job.Job)

// Orchestrator is the state-machine authority of the job orchestration core.
// It accepts submissions, validates and persists proposed state transitions
// from backends and users, emits completion accounting events, and recovers
// outstanding jobs after a restart.
//
// All state mutations for a single job are serialized through a per-job
// lock, with the storage compare-and-swap as the final guard, so that
// concurrent callbacks can never commit an inconsistent ordering.
type Orchestrator struct {
	// ctx is the orchestration scope: background work (job preparation,
	// follow subscriptions) is attached to it and torn down with it.
	ctx context.Context

	registry *backend.Registry
	verifier *verify.Verifier

	jsm    storage.JobStorageManager
	events storage.JobEventEmitterFetcher
	sink   ArtifactSink

	jobLocksMu sync.Mutex
	jobLocks   map[types.JobID]*sync.Mutex

	observersMu sync.Mutex
	observers   []LifecycleObserver

	jobsWg sync.WaitGroup
}

// New initializes and returns a new Orchestrator. The given context is the
// orchestration scope created at process start; cancelling it stops all
// background work spawned by the orchestrator.
func New(ctx context.Context, registry *backend.Registry, verifier *verify.Verifier, sink ArtifactSink) (*Orchestrator, error) {
	if registry == nil {
		return nil, errors.New("backend registry cannot be nil")
	}
	if verifier == nil {
		return nil, errors.New("job verifier cannot be nil")
	}
	return &Orchestrator{
		ctx:      ctx,
		registry: registry,
		verifier: verifier,
		jsm:      storage.NewJobStorageManager(),
		events:   storage.NewJobEventEmitterFetcher(),
		sink:     sink,
		jobLocks: make(map[types.JobID]*sync.Mutex),
	}, nil
}

// RegisterLifecycleObserver adds an observer notified after every committed
// state transition.
func (o *Orchestrator) RegisterLifecycleObserver(observer LifecycleObserver) {
	o.observersMu.Lock()
	defer o.observersMu.Unlock()
	o.observers = append(o.observers, observer)
}

// Wait blocks until all background job work has finished. Meant to be called
// after the orchestration context has been cancelled.
func (o *Orchestrator) Wait() {
	o.jobsWg.Wait()
}

func (o *Orchestrator) notifyObservers(j *job.Job) {
	o.observersMu.Lock()
	observers := make([]LifecycleObserver, len(o.observers))
	copy(observers, o.observers)
	o.observersMu.Unlock()
	for _, observer := range observers {
		observer(j)
	}
}

// jobLock returns the mutex serializing state mutations of the given job.
func (o *Orchestrator) jobLock(id types.JobID) *sync.Mutex {
	o.jobLocksMu.Lock()
	defer o.jobLocksMu.Unlock()
	lock, ok := o.jobLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		o.jobLocks[id] = lock
	}
	return lock
}

// releaseJobLock drops the lock entry of a job that reached a terminal
// state; no further mutations can happen, so the entry only wastes memory.
func (o *Orchestrator) releaseJobLock(id types.JobID) {
	o.jobLocksMu.Lock()
	defer o.jobLocksMu.Unlock()
	delete(o.jobLocks, id)
}

// transition validates and commits a proposed state change. It returns the
// job as it looks after the call and whether the transition was applied: a
// proposal against a terminal job is accepted as a no-op with applied ==
// false rather than an error, to tolerate duplicate callbacks.
//
// The per-job lock is held only around the read-validate-write sequence; the
// storage compare-and-swap is the final guard and conflicting writes are
// retried with a fresh read up to swapRetryBudget times. Post-commit side
// effects, including the backend cleanup call, run after the lock has been
// released so a slow backend cannot block later callbacks for the same job.
func (o *Orchestrator) transition(ctx context.Context, id types.JobID, proposed job.State, status string) (*job.Job, bool, error) {
	j, applied, err := o.commitTransition(ctx, id, proposed, status)
	if err != nil || !applied {
		return j, applied, err
	}
	o.committed(j)
	return j, true, nil
}

func (o *Orchestrator) commitTransition(ctx context.Context, id types.JobID, proposed job.State, status string) (*job.Job, bool, error) {
	lock := o.jobLock(id)
	lock.Lock()
	defer lock.Unlock()

	for attempt := 0; attempt < swapRetryBudget; attempt++ {
		j, err := o.jsm.GetJob(ctx, id)
		if err != nil {
			return nil, false, err
		}

		if j.CurrentState.IsTerminal() {
			log.Infof("Job %s is already %s, ignoring proposed transition to %s", id, j.CurrentState, proposed)
			return j, false, nil
		}
		if !j.CurrentState.CanTransition(proposed) {
			metricInvalidTransitions.Inc()
			return j, false, &cerrors.ErrInvalidTransition{From: string(j.CurrentState), To: string(proposed)}
		}

		newStatus := status
		if newStatus == "" {
			newStatus = j.Status
		}
		var failedState *job.State
		if proposed == job.StateFailure && j.CurrentState != job.StateValidated {
			from := j.CurrentState
			failedState = &from
		}
		var startedAt *time.Time
		if proposed == job.StateRunning {
			now := time.Now()
			startedAt = &now
		}

		log.Debugf("Job %s: moving from %s to %s", id, j.CurrentState, proposed)
		err = o.jsm.SwapState(ctx, id, j.CurrentState, proposed, newStatus, failedState, startedAt)
		if err == nil {
			j.CurrentState = proposed
			j.Status = newStatus
			if failedState != nil {
				j.FailedState = failedState
			}
			if startedAt != nil && j.StartedAt == nil {
				j.StartedAt = startedAt
			}
			return j, true, nil
		}
		if errors.Is(err, storage.ErrStateConflict) {
			log.Debugf("Job %s: state moved underneath the swap, retrying (%d/%d)", id, attempt+1, swapRetryBudget)
			continue
		}
		return nil, false, err
	}
	return nil, false, fmt.Errorf("could not commit state transition for job %s after %d attempts", id, swapRetryBudget)
}

// committed runs the post-commit side effects of a state transition: ask the
// owning backend to release resources once the job is terminal, and notify
// lifecycle observers. It is called with the per-job lock already released,
// so the cleanup call never stalls other callbacks. Cleanup errors are
// logged, never propagated.
func (o *Orchestrator) committed(j *job.Job) {
	if j.CurrentState.IsTerminal() {
		metricJobsCompleted.WithLabelValues(string(j.CurrentState)).Inc()
		if handle, err := o.registry.Resolve(j.Backend); err != nil {
			log.Warningf("Job %s: could not resolve backend %q for cleanup: %v", j.ID, j.Backend, err)
		} else if err := handle.Cleanup(o.ctx, j.ID); err != nil {
			log.Infof("Job %s: backend cleanup failed: %v", j.ID, err)
		}
		o.releaseJobLock(j.ID)
	}
	o.notifyObservers(j)
}

// failJob drives a job to FAILURE with the given status, regardless of its
// current non-terminal state. Jobs already terminal are left alone; without
// this check a crash loop could ping-pong a job between failure paths.
func (o *Orchestrator) failJob(ctx context.Context, id types.JobID, status string) {
	_, _, err := o.transition(ctx, id, job.StateFailure, status)
	if err != nil {
		log.Warningf("Job %s: could not mark as failed: %v", id, err)
	}
}

// findJob fetches a job by id, mapping missing jobs to cerrors.ErrNotFound.
func (o *Orchestrator) findJob(ctx context.Context, id types.JobID) (*job.Job, error) {
	return o.jsm.GetJob(ctx, id)
}
