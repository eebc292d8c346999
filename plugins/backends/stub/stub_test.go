// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package stub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sciencecloud/jobcore/pkg/backend"
	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/job"
)

var ctx = context.Background()

func TestLifecycleRecording(t *testing.T) {
	s := New()
	j := &job.Job{ID: "job-1"}

	require.False(t, s.Prepared(j.ID))
	require.NoError(t, s.Prepare(ctx, j))
	require.True(t, s.Prepared(j.ID))

	require.NoError(t, s.Cancel(ctx, j))
	require.True(t, s.Cancelled(j.ID))

	require.NoError(t, s.Cleanup(ctx, j.ID))
	require.True(t, s.Cleaned(j.ID))
}

func TestPrepareError(t *testing.T) {
	boom := errors.New("no capacity")
	s := New(WithPrepareError(boom))

	err := s.Prepare(ctx, &job.Job{ID: "job-1"})
	require.ErrorIs(t, err, boom)
	require.False(t, s.Prepared("job-1"))
}

func TestFollowLogs(t *testing.T) {
	s := New()
	s.AppendStdout("job-1", "one", "two", "three")
	s.AppendStderr("job-1", "oops")

	chunk, err := s.FollowLogs(ctx, "job-1", 0, 2, 0, 10)
	require.NoError(t, err)
	require.Equal(t, "one\ntwo\n", chunk.Stdout)
	require.Equal(t, 2, chunk.NextStdoutOffset)
	require.Equal(t, "oops\n", chunk.Stderr)
	require.Equal(t, 1, chunk.NextStderrOffset)

	chunk, err = s.FollowLogs(ctx, "job-1", 2, 10, 1, 10)
	require.NoError(t, err)
	require.Equal(t, "three\n", chunk.Stdout)
	require.True(t, chunk.Stderr == "")

	// offsets beyond the recorded lines are a valid empty chunk
	chunk, err = s.FollowLogs(ctx, "job-1", 10, 10, 10, 10)
	require.NoError(t, err)
	require.True(t, chunk.IsEmpty())
}

func TestSessionParameters(t *testing.T) {
	s := New()
	j := &job.Job{ID: "job-1"}

	var notSupported *cerrors.ErrOperationNotSupported
	_, err := s.QueryVNCParameters(ctx, j)
	require.ErrorAs(t, err, &notSupported)
	_, err = s.QueryWebParameters(ctx, j)
	require.ErrorAs(t, err, &notSupported)

	s.SetVNCParameters(j.ID, backend.VNCParameters{Path: "/vnc", Password: "pw"})
	s.SetWebParameters(j.ID, backend.WebParameters{Path: "/web"})

	vnc, err := s.QueryVNCParameters(ctx, j)
	require.NoError(t, err)
	require.Equal(t, "/vnc", vnc.Path)
	web, err := s.QueryWebParameters(ctx, j)
	require.NoError(t, err)
	require.Equal(t, "/web", web.Path)
}

func TestOptions(t *testing.T) {
	s := New(WithName("fancy"), WithSharedFileSystemBackends("cephfs", "nfs"))
	require.Equal(t, "fancy", s.Name())
	require.Equal(t, []string{"cephfs", "nfs"}, s.SupportedSharedFileSystemBackends())
}
