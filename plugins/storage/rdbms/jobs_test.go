// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package rdbms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/storage"
)

func TestBuildListJobsStatementConditions(t *testing.T) {
	stmt, args := buildListJobsStatement("alice", &storage.JobQuery{})
	require.Equal(t, "select "+jobColumns+" from jobs where owner = ? order by created_at desc", stmt)
	require.Equal(t, []interface{}{"alice"}, args)

	stmt, args = buildListJobsStatement("alice", &storage.JobQuery{
		States:      []job.State{job.StateRunning, job.StateScheduled},
		Application: "blast",
		Version:     "2.12.0",
	})
	require.Contains(t, stmt, "current_state in (?, ?)")
	require.Contains(t, stmt, "app_name = ?")
	require.Contains(t, stmt, "app_version = ?")
	require.Equal(t, []interface{}{"alice", "RUNNING", "SCHEDULED", "blast", "2.12.0"}, args)
}

func TestBuildListJobsStatementPaging(t *testing.T) {
	stmt, _ := buildListJobsStatement("alice", &storage.JobQuery{Limit: 10})
	require.True(t, strings.HasSuffix(stmt, " limit 10"), stmt)

	stmt, _ = buildListJobsStatement("alice", &storage.JobQuery{Limit: 10, Offset: 20})
	require.Contains(t, stmt, " limit 10 offset 20")

	// an offset without a limit must still page, matching the in-memory
	// engine's slicing; MySQL needs an explicit all-rows limit for that
	stmt, _ = buildListJobsStatement("alice", &storage.JobQuery{Offset: 5})
	require.Contains(t, stmt, " limit 18446744073709551615 offset 5")
}
