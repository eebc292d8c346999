// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sciencecloud/jobcore/pkg/job"
)

func TestBuildJobQuery(t *testing.T) {
	after := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	query, err := BuildJobQuery(
		QueryJobStates(job.StateRunning, job.StateScheduled),
		QueryJobApplication("blast"),
		QueryJobVersion("2.12.0"),
		QueryJobCreatedAfter(after),
		QueryJobOffset(10),
		QueryJobLimit(25),
	)
	require.NoError(t, err)
	require.Equal(t, []job.State{job.StateRunning, job.StateScheduled}, query.States)
	require.Equal(t, "blast", query.Application)
	require.Equal(t, "2.12.0", query.Version)
	require.Equal(t, after, query.CreatedAfter)
	require.Equal(t, 10, query.Offset)
	require.Equal(t, 25, query.Limit)
}

func TestBuildJobQueryEmpty(t *testing.T) {
	query, err := BuildJobQuery()
	require.NoError(t, err)
	require.Equal(t, &JobQuery{}, query)
}

func TestBuildJobQueryRejectsDuplicateFields(t *testing.T) {
	_, err := BuildJobQuery(
		QueryJobApplication("blast"),
		QueryJobApplication("bowtie"),
	)
	require.Error(t, err)
	require.ErrorAs(t, err, &ErrJobQueryFieldIsAlreadySet{})
}

func TestBuildJobQueryRejectsZeroValues(t *testing.T) {
	_, err := BuildJobQuery(QueryJobApplication(""))
	require.Error(t, err)
	require.ErrorAs(t, err, &ErrJobQueryFieldHasZeroValue{})

	_, err = BuildJobQuery(QueryJobLimit(0))
	require.Error(t, err)
	require.ErrorAs(t, err, &ErrJobQueryFieldHasZeroValue{})
}
