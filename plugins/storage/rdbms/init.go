// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package rdbms

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/sciencecloud/jobcore/pkg/logging"
	"github.com/sciencecloud/jobcore/pkg/storage"

	// this blank import registers the mysql driver
	_ "github.com/go-sql-driver/mysql"
)

var log = logging.GetLogger("plugin/storage/rdbms")

// RDBMS implements a storage engine which stores job and accounting state in
// a relational database via the database/sql package. With the current
// implementation, only MySQL is officially supported.
//
// It's not possible to use prepared statements. Not all MySQL connectors
// implementing database/sql support prepared statements, so the plugin
// cannot depend on them.
//
// Expected schema:
//
//	jobs(job_id varchar primary key, owner, user_name, project, name,
//	     app_name, app_version, backend, archive_collection, url_id,
//	     descriptor json, current_state, status, failed_state nullable,
//	     created_at, modified_at, started_at nullable)
//	job_events(event_id auto increment, job_id, owner, application,
//	     wall_duration_ms, nodes, success, emit_time)
type RDBMS struct {
	driverName string
	dbURI      string

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

// Opt is a function type to set parameters on the RDBMS object.
type Opt func(rdbms *RDBMS)

// DriverName allows using a mysql-compatible driver (e.g. a wrapper around
// mysql driver) instead of the default one.
func DriverName(name string) Opt {
	return func(rdbms *RDBMS) {
		rdbms.driverName = name
	}
}

// New creates a RDBMS storage engine object.
func New(dbURI string, opts ...Opt) *RDBMS {
	rdbms := &RDBMS{dbURI: dbURI, driverName: "mysql"}
	for _, opt := range opts {
		opt(rdbms)
	}
	return rdbms
}

func (r *RDBMS) init() error {
	r.initOnce.Do(func() {
		db, err := sql.Open(r.driverName, r.dbURI)
		if err != nil {
			r.initErr = fmt.Errorf("could not initialize database: %w", err)
			return
		}
		r.db = db
	})
	return r.initErr
}

// Version returns the version of the RDBMS storage layer.
func (r *RDBMS) Version() (uint64, error) {
	if err := r.init(); err != nil {
		return 0, err
	}
	return storage.MinStorageVersion, nil
}

// Reset restores a clean state in the database. It's meant to be used after
// integration tests. As it's a potentially dangerous operation, it's not
// part of the Storage interface.
func (r *RDBMS) Reset() error {
	if err := r.init(); err != nil {
		return err
	}
	if _, err := r.db.Exec("truncate jobs"); err != nil {
		return fmt.Errorf("could not truncate table jobs: %w", err)
	}
	if _, err := r.db.Exec("truncate job_events"); err != nil {
		return fmt.Errorf("could not truncate table job_events: %w", err)
	}
	return nil
}
