// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// The jobcore-migrate binary brings a jobcore MySQL database to the
// requested schema version, running the data migration of every step it
// passes through.
package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/gosuri/uiprogress"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	dbmigration "github.com/sciencecloud/jobcore/db/rdbms/migration"
	"github.com/sciencecloud/jobcore/pkg/logging"
	"github.com/sciencecloud/jobcore/tools/migration"
)

const defaultDBURI = "jobcore:jobcore@tcp(localhost:3306)/jobcore?parseTime=true"

var (
	flagDBURI = flag.String("dbURI", defaultDBURI, "Database URI")
	flagDST   = flag.Uint("to", 0, "Destination version of the schema")
)

func main() {
	flag.Parse()

	log := logging.GetLogger("tools/migration")
	log.Level = logrus.DebugLevel

	if *flagDST == 0 {
		log.Fatalf("destination version of the schema cannot be 0")
	}
	vDst := *flagDST

	tasks := migration.NewTasks()
	availableTasks := []migration.Task{
		dbmigration.CreateSchemaMigration{},
		dbmigration.AddJobIndexesMigration{},
	}
	for _, task := range availableTasks {
		if err := tasks.Register(task); err != nil {
			log.Fatalf("could not register %q migration task: %v", task.Desc(), err)
		}
	}

	db, err := sql.Open("mysql", *flagDBURI)
	if err != nil {
		log.Fatalf("could not open mysql URI %q: %v", *flagDBURI, err)
	}
	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		log.Fatalf("could not open mysql instance: %+v", err)
	}

	m, err := migrate.NewWithInstance("tasks", tasks, "mysql", driver)
	if err != nil {
		log.Fatalf("could not create migration instance: %+v", err)
	}

	currentVersion, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		log.Fatalf("could not get the current schema version: %+v", err)
	}
	if dirty {
		log.Fatalf("current version (v%d) has not completed migration correctly, this needs to be fixed manually", currentVersion)
	}
	if currentVersion >= vDst {
		log.Fatalf("current version (v%d) does not allow to migrate to v%d", currentVersion, vDst)
	}

	log.Infof("beginning schema migration from v%d to v%d", currentVersion, vDst)
	uiprogress.Start()

	for currentVersion < vDst {
		if err := m.Steps(1); err != nil {
			log.Fatalf("could not run migration to v%d: %+v", currentVersion+1, err)
		}
		currentVersion++

		t := tasks.GetTask(currentVersion)
		if t == nil {
			log.Warningf("task for v%d migration is not available", currentVersion)
			continue
		}

		terminateCh := make(chan struct{})
		progressCh := make(chan *migration.Progress)
		errCh := make(chan error)
		go func() {
			errCh <- t.MigrateData(db, terminateCh, progressCh)
		}()

		progress := uiprogress.New()
		bar := progress.AddBar(100)
		bar.AppendCompleted()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("Task: %s", t.Desc())
		})
		progress.Start()

		var errTask error
		for {
			select {
			case p := <-progressCh:
				if p.Total != 0 {
					bar.Set(int((float64(p.Completed) / float64(p.Total)) * 100))
				}
			case errTask = <-errCh:
				errCh = nil
			}
			if errTask != nil || errCh == nil {
				bar.Set(100)
				time.Sleep(500 * time.Millisecond)
				break
			}
		}
		if errTask != nil {
			log.Fatalf("task for v%d failed to run: %+v", currentVersion, errTask)
		}
		progress.Stop()

		log.Infof("migration to v%d completed", currentVersion)
	}

	log.Infof("all migrations have completed successfully")
}
