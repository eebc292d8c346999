// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package migration

import (
	"database/sql"

	"github.com/sciencecloud/jobcore/tools/migration"
)

// AddJobIndexesMigration adds the indexes backing the hot query paths: job
// listing by owner, active-job replay by state, public URL lookup, and
// accounting event retrieval per job.
type AddJobIndexesMigration struct {
}

// Desc returns the description of the migration task.
func (m AddJobIndexesMigration) Desc() string {
	return "add indexes for job listing, replay and URL lookup"
}

// Version returns the schema version this task migrates to.
func (m AddJobIndexesMigration) Version() uint {
	return 2
}

// Up returns the DDL adding the indexes.
func (m AddJobIndexesMigration) Up() string {
	return `
CREATE UNIQUE INDEX jobs_url_id ON jobs (url_id);
CREATE INDEX jobs_owner_created_at ON jobs (owner, created_at);
CREATE INDEX jobs_current_state ON jobs (current_state);
CREATE INDEX job_events_job_id ON job_events (job_id);
`
}

// Down returns the DDL removing the indexes.
func (m AddJobIndexesMigration) Down() string {
	return `
DROP INDEX job_events_job_id ON job_events;
DROP INDEX jobs_current_state ON jobs;
DROP INDEX jobs_owner_created_at ON jobs;
DROP INDEX jobs_url_id ON jobs;
`
}

// MigrateData implements the data migration for this task. Index creation
// moves no row data.
func (m AddJobIndexesMigration) MigrateData(db *sql.DB, terminate chan struct{}, progress chan *migration.Progress) error {
	return nil
}
