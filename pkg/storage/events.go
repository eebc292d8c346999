// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package storage

import (
	"context"
	"fmt"

	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// JobEventEmitter emits accounting events into storage.
type JobEventEmitter struct {
}

// JobEventFetcher retrieves accounting events from storage.
type JobEventFetcher struct {
}

// JobEventEmitterFetcher implements both emission and retrieval of
// accounting events.
type JobEventEmitterFetcher struct {
	JobEventEmitter
	JobEventFetcher
}

// Emit persists an accounting event into storage.
func (e JobEventEmitter) Emit(ctx context.Context, ev job.CompletedEvent) error {
	if err := storage.StoreJobEvent(ctx, ev); err != nil {
		return fmt.Errorf("could not store accounting event: %w", err)
	}
	return nil
}

// Fetch retrieves the accounting events recorded for a job.
func (f JobEventFetcher) Fetch(ctx context.Context, jobID types.JobID) ([]job.CompletedEvent, error) {
	events, err := storage.GetJobEvents(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("could not fetch accounting events: %w", err)
	}
	return events, nil
}

// NewJobEventEmitter creates a JobEventEmitter object.
func NewJobEventEmitter() JobEventEmitter {
	return JobEventEmitter{}
}

// NewJobEventEmitterFetcher creates a JobEventEmitterFetcher object.
func NewJobEventEmitterFetcher() JobEventEmitterFetcher {
	return JobEventEmitterFetcher{
		JobEventEmitter{},
		JobEventFetcher{},
	}
}
