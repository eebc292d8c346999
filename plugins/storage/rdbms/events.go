// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package rdbms

import (
	"context"
	"fmt"
	"time"

	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// StoreJobEvent persists an accounting event into the database.
func (r *RDBMS) StoreJobEvent(ctx context.Context, ev job.CompletedEvent) error {
	if err := r.init(); err != nil {
		return err
	}

	insertStatement := "insert into job_events (job_id, owner, application, wall_duration_ms, nodes, success, emit_time) values (?, ?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(
		ctx,
		insertStatement,
		ev.JobID, ev.Owner, ev.Application, ev.WallDuration.Milliseconds(), ev.Nodes, ev.Success, ev.EmitTime,
	)
	if err != nil {
		return fmt.Errorf("could not store accounting event in database: %w", err)
	}
	return nil
}

// GetJobEvents retrieves the accounting events recorded for a job.
func (r *RDBMS) GetJobEvents(ctx context.Context, jobID types.JobID) ([]job.CompletedEvent, error) {
	if err := r.init(); err != nil {
		return nil, err
	}

	selectStatement := "select job_id, owner, application, wall_duration_ms, nodes, success, emit_time from job_events where job_id = ? order by emit_time asc"
	log.Debugf("Executing query: %s", selectStatement)
	rows, err := r.db.QueryContext(ctx, selectStatement, jobID)
	if err != nil {
		return nil, fmt.Errorf("could not get accounting events for job %v: %w", jobID, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Warningf("could not close rows for accounting events: %v", err)
		}
	}()

	var events []job.CompletedEvent
	for rows.Next() {
		var (
			ev             job.CompletedEvent
			wallDurationMs int64
		)
		if err := rows.Scan(&ev.JobID, &ev.Owner, &ev.Application, &wallDurationMs, &ev.Nodes, &ev.Success, &ev.EmitTime); err != nil {
			return nil, fmt.Errorf("could not scan accounting event row: %w", err)
		}
		ev.WallDuration = time.Duration(wallDurationMs) * time.Millisecond
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate over accounting event rows: %w", err)
	}
	return events, nil
}
