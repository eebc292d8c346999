// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package rdbms

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/storage"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// jobDescriptorBlob is the JSON document stored in the `descriptor` column.
// It carries the nested submission-time facts that are never filtered on.
type jobDescriptorBlob struct {
	Application            job.Application
	Reservation            job.Reservation
	Mounts                 []job.Mount
	Peers                  []job.Peer
	SharedFileSystemMounts []job.SharedFileSystemMount
}

const jobColumns = "job_id, owner, user_name, project, name, app_name, app_version, backend, archive_collection, url_id, descriptor, current_state, status, failed_state, created_at, modified_at, started_at"

// CreateJob stores a new verified job in the database.
func (r *RDBMS) CreateJob(ctx context.Context, j *job.Job) error {
	if err := r.init(); err != nil {
		return err
	}

	blob, err := json.Marshal(jobDescriptorBlob{
		Application:            j.Application,
		Reservation:            j.Reservation,
		Mounts:                 j.Mounts,
		Peers:                  j.Peers,
		SharedFileSystemMounts: j.SharedFileSystemMounts,
	})
	if err != nil {
		return fmt.Errorf("could not serialize job descriptor: %w", err)
	}

	insertStatement := "insert into jobs (" + jobColumns + ") values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	_, err = r.db.ExecContext(
		ctx,
		insertStatement,
		j.ID, j.Owner, j.User, j.Project, j.Name,
		j.Application.Name, j.Application.Version, j.Backend, j.ArchiveCollection, j.URLID,
		blob, string(j.CurrentState), j.Status, nullableState(j.FailedState),
		j.CreatedAt, j.ModifiedAt, nullableTime(j.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("could not store job in database: %w", err)
	}
	return nil
}

func nullableState(s *job.State) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*s), Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func scanJob(rows *sql.Rows) (*job.Job, error) {
	var (
		j           job.Job
		blobJSON    []byte
		state       string
		failedState sql.NullString
		startedAt   sql.NullTime
	)
	if err := rows.Scan(
		&j.ID, &j.Owner, &j.User, &j.Project, &j.Name,
		&j.Application.Name, &j.Application.Version, &j.Backend, &j.ArchiveCollection, &j.URLID,
		&blobJSON, &state, &j.Status, &failedState,
		&j.CreatedAt, &j.ModifiedAt, &startedAt,
	); err != nil {
		return nil, fmt.Errorf("could not scan job row: %w", err)
	}

	var blob jobDescriptorBlob
	if err := json.Unmarshal(blobJSON, &blob); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job descriptor: %w", err)
	}
	j.Application = blob.Application
	j.Reservation = blob.Reservation
	j.Mounts = blob.Mounts
	j.Peers = blob.Peers
	j.SharedFileSystemMounts = blob.SharedFileSystemMounts

	j.CurrentState = job.State(state)
	if failedState.Valid {
		fs := job.State(failedState.String)
		j.FailedState = &fs
	}
	if startedAt.Valid {
		st := startedAt.Time
		j.StartedAt = &st
	}
	return &j, nil
}

func (r *RDBMS) getJobWhere(ctx context.Context, condition string, args ...interface{}) (*job.Job, error) {
	selectStatement := "select " + jobColumns + " from jobs where " + condition
	log.Debugf("Executing query: %s", selectStatement)
	rows, err := r.db.QueryContext(ctx, selectStatement, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query jobs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Warningf("could not close rows for job query: %v", err)
		}
	}()

	var found *job.Job
	for rows.Next() {
		if found != nil {
			// We have already found a matching job. If we find more than
			// one, then we have a problem.
			return nil, fmt.Errorf("multiple jobs found for condition %q", condition)
		}
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		found = j
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate over job rows: %w", err)
	}
	return found, nil
}

// GetJob retrieves a job from the database by id.
func (r *RDBMS) GetJob(ctx context.Context, id types.JobID) (*job.Job, error) {
	if err := r.init(); err != nil {
		return nil, err
	}
	j, err := r.getJobWhere(ctx, "job_id = ?", id)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, &cerrors.ErrNotFound{JobID: string(id)}
	}
	return j, nil
}

// GetJobByURLID retrieves a job from the database by its interactive-session
// url identifier.
func (r *RDBMS) GetJobByURLID(ctx context.Context, urlID string) (*job.Job, error) {
	if err := r.init(); err != nil {
		return nil, err
	}
	j, err := r.getJobWhere(ctx, "url_id = ?", urlID)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, &cerrors.ErrNotFound{JobID: urlID}
	}
	return j, nil
}

// SwapState applies a state transition with a compare-and-swap on the stored
// current state. The update only takes effect if the stored state still
// matches `from`; otherwise storage.ErrStateConflict is reported.
func (r *RDBMS) SwapState(ctx context.Context, id types.JobID, from, to job.State, status string, failedState *job.State, startedAt *time.Time) error {
	if err := r.init(); err != nil {
		return err
	}

	updateStatement := "update jobs set current_state = ?, status = ?, modified_at = ?, failed_state = coalesce(?, failed_state), started_at = coalesce(started_at, ?) where job_id = ? and current_state = ?"
	result, err := r.db.ExecContext(ctx, updateStatement, string(to), status, time.Now(), nullableState(failedState), nullableTime(startedAt), id, string(from))
	if err != nil {
		return fmt.Errorf("could not update job state in database: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not determine rows affected by state update: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// The swap did not apply: distinguish a missing job from a state
	// conflict.
	j, err := r.getJobWhere(ctx, "job_id = ?", id)
	if err != nil {
		return err
	}
	if j == nil {
		return &cerrors.ErrNotFound{JobID: string(id)}
	}
	return storage.ErrStateConflict
}

// UpdateStatus updates the free-text status of a job without changing its
// state.
func (r *RDBMS) UpdateStatus(ctx context.Context, id types.JobID, status string) error {
	if err := r.init(); err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, "update jobs set status = ?, modified_at = ? where job_id = ?", status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("could not update job status in database: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not determine rows affected by status update: %w", err)
	}
	if affected == 0 {
		return &cerrors.ErrNotFound{JobID: string(id)}
	}
	return nil
}

// buildListJobsStatement renders the job listing query. Kept separate from
// the execution so the SQL construction is testable without a database.
func buildListJobsStatement(owner string, query *storage.JobQuery) (string, []interface{}) {
	conditions := []string{"owner = ?"}
	args := []interface{}{owner}

	if len(query.States) > 0 {
		placeholders := make([]string, len(query.States))
		for i, state := range query.States {
			placeholders[i] = "?"
			args = append(args, string(state))
		}
		conditions = append(conditions, "current_state in ("+strings.Join(placeholders, ", ")+")")
	}
	if query.Application != "" {
		conditions = append(conditions, "app_name = ?")
		args = append(args, query.Application)
	}
	if query.Version != "" {
		conditions = append(conditions, "app_version = ?")
		args = append(args, query.Version)
	}
	if !query.CreatedAfter.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, query.CreatedAfter)
	}
	if !query.CreatedBefore.IsZero() {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, query.CreatedBefore)
	}

	statement := "select " + jobColumns + " from jobs where " + strings.Join(conditions, " and ") + " order by created_at desc"
	return statement + pagingClause(query.Limit, query.Offset), args
}

// pagingClause renders the limit/offset tail of a listing query. MySQL has
// no offset without a limit, so an offset-only query uses the "all remaining
// rows" limit value from the MySQL manual. This keeps paging behavior
// identical to the in-memory engine, which slices by offset alone.
func pagingClause(limit, offset int) string {
	if limit <= 0 && offset <= 0 {
		return ""
	}
	if limit <= 0 {
		return fmt.Sprintf(" limit 18446744073709551615 offset %d", offset)
	}
	clause := fmt.Sprintf(" limit %d", limit)
	if offset > 0 {
		clause += fmt.Sprintf(" offset %d", offset)
	}
	return clause
}

// ListJobs returns the jobs of an owner matching the query, newest first.
func (r *RDBMS) ListJobs(ctx context.Context, owner string, query *storage.JobQuery) ([]*job.Job, error) {
	if err := r.init(); err != nil {
		return nil, err
	}
	if query == nil {
		query = &storage.JobQuery{}
	}

	selectStatement, args := buildListJobsStatement(owner, query)
	log.Debugf("Executing query: %s", selectStatement)

	rows, err := r.db.QueryContext(ctx, selectStatement, args...)
	if err != nil {
		return nil, fmt.Errorf("could not list jobs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Warningf("could not close rows for job listing: %v", err)
		}
	}()

	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate over job rows: %w", err)
	}
	return jobs, nil
}

// ListActiveJobs returns all jobs not in a terminal state.
func (r *RDBMS) ListActiveJobs(ctx context.Context) ([]*job.Job, error) {
	if err := r.init(); err != nil {
		return nil, err
	}

	selectStatement := "select " + jobColumns + " from jobs where current_state not in (?, ?) order by created_at asc"
	rows, err := r.db.QueryContext(ctx, selectStatement, string(job.StateSuccess), string(job.StateFailure))
	if err != nil {
		return nil, fmt.Errorf("could not list active jobs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Warningf("could not close rows for active job listing: %v", err)
		}
	}()

	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate over job rows: %w", err)
	}
	return jobs, nil
}
