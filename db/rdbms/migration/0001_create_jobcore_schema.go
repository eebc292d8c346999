// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package migration contains the migration tasks of the jobcore database
// schema, one file per version.
package migration

import (
	"database/sql"

	"github.com/sciencecloud/jobcore/tools/migration"
)

// CreateSchemaMigration creates the initial jobcore schema: the jobs table
// holding the full lifecycle state of every job, and the job_events table
// holding the accounting events emitted at job completion.
type CreateSchemaMigration struct {
}

// Desc returns the description of the migration task.
func (m CreateSchemaMigration) Desc() string {
	return "create the jobs and job_events tables"
}

// Version returns the schema version this task migrates to.
func (m CreateSchemaMigration) Version() uint {
	return 1
}

// Up returns the DDL creating the initial schema.
func (m CreateSchemaMigration) Up() string {
	return `
CREATE TABLE jobs (
  job_id varchar(64) NOT NULL,
  owner varchar(64) NOT NULL,
  user_name varchar(64) NOT NULL,
  project varchar(64) NOT NULL DEFAULT '',
  name varchar(255) NOT NULL DEFAULT '',
  app_name varchar(255) NOT NULL,
  app_version varchar(64) NOT NULL,
  backend varchar(64) NOT NULL,
  archive_collection varchar(255) NOT NULL DEFAULT '',
  url_id varchar(64) NOT NULL,
  descriptor json,
  current_state varchar(32) NOT NULL,
  status text NOT NULL,
  failed_state varchar(32) DEFAULT NULL,
  created_at timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP,
  modified_at timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP,
  started_at timestamp NULL DEFAULT NULL,
  PRIMARY KEY (job_id)
);

CREATE TABLE job_events (
  event_id bigint NOT NULL AUTO_INCREMENT,
  job_id varchar(64) NOT NULL,
  owner varchar(64) NOT NULL,
  application varchar(320) NOT NULL,
  wall_duration_ms bigint NOT NULL,
  nodes int NOT NULL,
  success tinyint(1) NOT NULL,
  emit_time timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (event_id)
);
`
}

// Down returns the DDL dropping the initial schema.
func (m CreateSchemaMigration) Down() string {
	return `
DROP TABLE job_events;
DROP TABLE jobs;
`
}

// MigrateData implements the data migration for this task. The initial
// schema carries no pre-existing data.
func (m CreateSchemaMigration) MigrateData(db *sql.DB, terminate chan struct{}, progress chan *migration.Progress) error {
	return nil
}
