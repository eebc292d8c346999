// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package storage

import (
	"fmt"
	"reflect"
	"time"

	"github.com/sciencecloud/jobcore/pkg/job"
)

// JobQueryField is a single typed filter of a job listing query.
type JobQueryField interface {
	queryFieldPointer(query *JobQuery) interface{}
}

// JobQueryFields is a set of field values to build a JobQuery from.
type JobQueryFields []JobQueryField

// JobQuery is the set of filters applied when listing recent jobs of an
// owner. The zero value matches everything.
type JobQuery struct {
	States        []job.State
	Application   string
	Version       string
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Offset        int
	Limit         int
}

type jobQueryFieldStates []job.State
type jobQueryFieldApplication string
type jobQueryFieldVersion string
type jobQueryFieldCreatedAfter time.Time
type jobQueryFieldCreatedBefore time.Time
type jobQueryFieldOffset int
type jobQueryFieldLimit int

// QueryJobStates filters jobs by lifecycle state.
func QueryJobStates(states ...job.State) JobQueryField { return jobQueryFieldStates(states) }
func (value jobQueryFieldStates) queryFieldPointer(query *JobQuery) interface{} {
	return &query.States
}

// QueryJobApplication filters jobs by application name.
func QueryJobApplication(name string) JobQueryField { return jobQueryFieldApplication(name) }
func (value jobQueryFieldApplication) queryFieldPointer(query *JobQuery) interface{} {
	return &query.Application
}

// QueryJobVersion filters jobs by application version.
func QueryJobVersion(version string) JobQueryField { return jobQueryFieldVersion(version) }
func (value jobQueryFieldVersion) queryFieldPointer(query *JobQuery) interface{} {
	return &query.Version
}

// QueryJobCreatedAfter keeps only jobs created at or after the given time.
func QueryJobCreatedAfter(t time.Time) JobQueryField { return jobQueryFieldCreatedAfter(t) }
func (value jobQueryFieldCreatedAfter) queryFieldPointer(query *JobQuery) interface{} {
	return &query.CreatedAfter
}

// QueryJobCreatedBefore keeps only jobs created at or before the given time.
func QueryJobCreatedBefore(t time.Time) JobQueryField { return jobQueryFieldCreatedBefore(t) }
func (value jobQueryFieldCreatedBefore) queryFieldPointer(query *JobQuery) interface{} {
	return &query.CreatedBefore
}

// QueryJobOffset skips the first `offset` matching jobs (pagination).
func QueryJobOffset(offset int) JobQueryField { return jobQueryFieldOffset(offset) }
func (value jobQueryFieldOffset) queryFieldPointer(query *JobQuery) interface{} {
	return &query.Offset
}

// QueryJobLimit bounds the number of returned jobs (pagination).
func QueryJobLimit(limit int) JobQueryField { return jobQueryFieldLimit(limit) }
func (value jobQueryFieldLimit) queryFieldPointer(query *JobQuery) interface{} {
	return &query.Limit
}

// BuildJobQuery compiles query fields into a JobQuery.
func BuildJobQuery(queryFields ...JobQueryField) (*JobQuery, error) {
	return JobQueryFields(queryFields).BuildQuery()
}

// BuildQuery compiles the fields into a JobQuery, rejecting duplicate or
// zero-valued fields.
func (queryFields JobQueryFields) BuildQuery() (*JobQuery, error) {
	query := &JobQuery{}
	for idx, queryField := range queryFields {
		if err := applyJobQueryField(queryField.queryFieldPointer(query), queryField); err != nil {
			return nil, fmt.Errorf("unable to apply field %d:%T(%v): %w", idx, queryField, queryField, err)
		}
	}
	return query, nil
}

// ErrJobQueryFieldIsAlreadySet is returned when the same query field is
// passed more than once.
type ErrJobQueryFieldIsAlreadySet struct {
	FieldValue interface{}
	QueryField JobQueryField
}

func (err ErrJobQueryFieldIsAlreadySet) Error() string {
	return fmt.Sprintf("field %T is set multiple times: cur_value:%v new_value:%v",
		err.QueryField, err.FieldValue, err.QueryField)
}

// ErrJobQueryFieldHasZeroValue is returned when a query field carries a zero
// value (this is unexpected and forbidden).
type ErrJobQueryFieldHasZeroValue struct {
	QueryField JobQueryField
}

func (err ErrJobQueryFieldHasZeroValue) Error() string {
	return fmt.Sprintf("field %T has a zero value", err.QueryField)
}

func applyJobQueryField(fieldPtr interface{}, queryField JobQueryField) error {
	if reflect.ValueOf(queryField).IsZero() {
		return ErrJobQueryFieldHasZeroValue{QueryField: queryField}
	}
	field := reflect.ValueOf(fieldPtr).Elem()
	if !reflect.ValueOf(field.Interface()).IsZero() {
		return ErrJobQueryFieldIsAlreadySet{FieldValue: field.Interface(), QueryField: queryField}
	}
	field.Set(reflect.ValueOf(queryField).Convert(field.Type()))
	return nil
}
