// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package migration holds the schema migration framework of the jobcore
// database. Migrations are registered in code, not shipped as loose SQL
// files, so that a deployed migration binary is always self-contained.
package migration

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"sort"

	"github.com/golang-migrate/migrate/v4/source"
)

// Progress reports how far a data migration has advanced.
type Progress struct {
	Completed uint64
	Total     uint64
}

// Task is a single migration step of the jobcore schema.
type Task interface {
	Desc() string
	Version() uint

	// Up and Down return the schema DDL for this step.
	Up() string
	Down() string

	// MigrateData moves existing row data after the schema change. Tasks
	// without data movement return immediately.
	MigrateData(db *sql.DB, terminate chan struct{}, progress chan *Progress) error
}

// Tasks implements source.Driver from golang-migrate on top of a list of
// registered migration tasks.
type Tasks struct {
	tasks    map[uint]Task
	versions []uint
}

// NewTasks returns an empty task registry.
func NewTasks() *Tasks {
	return &Tasks{tasks: make(map[uint]Task)}
}

// Register adds a migration task to the registry.
func (m *Tasks) Register(task Task) error {
	if _, present := m.tasks[task.Version()]; present {
		return fmt.Errorf("migration task %d is already registered", task.Version())
	}
	m.tasks[task.Version()] = task
	m.versions = append(m.versions, task.Version())
	sort.Slice(m.versions, func(i, j int) bool { return m.versions[i] < m.versions[j] })
	return nil
}

// GetTask returns the migration task registered for version, or nil.
func (m *Tasks) GetTask(version uint) Task {
	return m.tasks[version]
}

// Open is a no-op: all available migrations are pre-registered in code.
func (m *Tasks) Open(_ string) (source.Driver, error) {
	return m, nil
}

// Close is a no-op.
func (m *Tasks) Close() error {
	return nil
}

// First returns the lowest registered migration version.
func (m *Tasks) First() (uint, error) {
	if len(m.versions) == 0 {
		return 0, fmt.Errorf("no migrations registered")
	}
	return m.versions[0], nil
}

// Prev returns the version preceding the given one.
func (m *Tasks) Prev(version uint) (uint, error) {
	for index, v := range m.versions {
		if v == version {
			if index == 0 {
				return 0, fmt.Errorf("no previous version for v%d", v)
			}
			return m.versions[index-1], nil
		}
	}
	return 0, fmt.Errorf("version v%d not found", version)
}

// Next returns the version following the given one.
func (m *Tasks) Next(version uint) (uint, error) {
	for index, v := range m.versions {
		if v == version {
			if index == len(m.versions)-1 {
				return 0, fmt.Errorf("no next version for v%d", v)
			}
			return m.versions[index+1], nil
		}
	}
	return 0, fmt.Errorf("version v%d not found", version)
}

// ReadUp returns the up DDL for version.
func (m *Tasks) ReadUp(version uint) (io.ReadCloser, string, error) {
	t, ok := m.tasks[version]
	if !ok {
		return nil, "", fmt.Errorf("no migration registered for version v%d", version)
	}
	return io.NopCloser(bytes.NewReader([]byte(t.Up()))), t.Desc(), nil
}

// ReadDown returns the down DDL for version.
func (m *Tasks) ReadDown(version uint) (io.ReadCloser, string, error) {
	t, ok := m.tasks[version]
	if !ok {
		return nil, "", fmt.Errorf("no migration registered for version v%d", version)
	}
	return io.NopCloser(bytes.NewReader([]byte(t.Down()))), t.Desc(), nil
}
