// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package follow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/insomniacslk/xjson"
	"github.com/stretchr/testify/require"

	"github.com/sciencecloud/jobcore/pkg/backend"
	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/orchestrator"
	"github.com/sciencecloud/jobcore/pkg/storage"
	"github.com/sciencecloud/jobcore/pkg/types"
	"github.com/sciencecloud/jobcore/pkg/verify"
	"github.com/sciencecloud/jobcore/plugins/backends/stub"
	"github.com/sciencecloud/jobcore/plugins/storage/memory"
)

var (
	ctx     = context.Background()
	alice   = types.UserPrincipal("alice")
	bob     = types.UserPrincipal("bob")
	stubber = types.BackendPrincipal("stub")
)

type fixture struct {
	svc  *Service
	orch *orchestrator.Orchestrator
	stub *stub.Stub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	require.NoError(t, storage.SetStorage(memory.New()))

	registry := backend.NewRegistry([]backend.Descriptor{{Name: "stub", Trusted: true}}, false)
	st := stub.New()
	require.NoError(t, registry.Register(st))

	catalog, err := verify.NewStaticCatalog([]verify.CatalogEntry{
		{Name: "blast", Version: "2.12.0", Invocation: []string{"blastn"}},
	})
	require.NoError(t, err)
	verifier := verify.NewVerifier(catalog, registry, "stub")

	orchCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	orch, err := orchestrator.New(orchCtx, registry, verifier, nil)
	require.NoError(t, err)

	svc, err := NewService(orch, registry)
	require.NoError(t, err)

	return &fixture{svc: svc, orch: orch, stub: st}
}

// startRunningJob submits a job, waits for it to be scheduled and moves it
// to RUNNING through the backend callback path.
func startRunningJob(t *testing.T, f *fixture) types.JobID {
	t.Helper()
	d := &job.Descriptor{
		Application: "blast",
		Version:     "2.12.0",
		Nodes:       1,
		MaxTime:     xjson.Duration(time.Hour),
	}
	id, err := f.orch.StartJob(ctx, d, verify.Submitter{Owner: "alice"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		j, err := f.orch.GetJob(ctx, alice, id)
		return err == nil && j.CurrentState == job.StateScheduled
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, f.orch.HandleProposedStateChange(ctx, stubber, id, job.StateRunning, "Job is running"))
	return id
}

func TestFollowStreams(t *testing.T) {
	f := newFixture(t)
	id := startRunningJob(t, f)
	f.stub.AppendStdout(id, "aligning sequences", "writing matches")
	f.stub.AppendStderr(id, "low complexity region masked")

	resp, err := f.svc.FollowStreams(ctx, alice, StreamsRequest{JobID: id})
	require.NoError(t, err)
	require.Equal(t, id, resp.JobID)
	require.Equal(t, "aligning sequences\nwriting matches\n", resp.Stdout)
	require.Equal(t, "low complexity region masked\n", resp.Stderr)
	require.Equal(t, 2, resp.NextStdoutOffset)
	require.Equal(t, 1, resp.NextStderrOffset)
	require.Equal(t, job.StateRunning, resp.State)
	require.Equal(t, "Job is running", resp.Status)
	require.Nil(t, resp.FailedState)
	require.NotNil(t, resp.TimeLeft)
	require.Greater(t, *resp.TimeLeft, time.Duration(0))

	// a second poll from the returned offsets yields nothing new
	resp, err = f.svc.FollowStreams(ctx, alice, StreamsRequest{
		JobID:        id,
		StdoutOffset: resp.NextStdoutOffset,
		StderrOffset: resp.NextStderrOffset,
	})
	require.NoError(t, err)
	require.Empty(t, resp.Stdout)
	require.Empty(t, resp.Stderr)
}

func TestFollowStreamsHonorsMaxLines(t *testing.T) {
	f := newFixture(t)
	id := startRunningJob(t, f)
	f.stub.AppendStdout(id, "one", "two", "three")

	resp, err := f.svc.FollowStreams(ctx, alice, StreamsRequest{JobID: id, StdoutMaxLines: 2})
	require.NoError(t, err)
	require.Equal(t, "one\ntwo\n", resp.Stdout)
	require.Equal(t, 2, resp.NextStdoutOffset)

	resp, err = f.svc.FollowStreams(ctx, alice, StreamsRequest{JobID: id, StdoutOffset: 2, StdoutMaxLines: 2})
	require.NoError(t, err)
	require.Equal(t, "three\n", resp.Stdout)
	require.Equal(t, 3, resp.NextStdoutOffset)
}

func TestFollowStreamsMasksOwnership(t *testing.T) {
	f := newFixture(t)
	id := startRunningJob(t, f)

	var notFound *cerrors.ErrNotFound
	_, err := f.svc.FollowStreams(ctx, bob, StreamsRequest{JobID: id})
	require.ErrorAs(t, err, &notFound)
	_, err = f.svc.FollowStreams(ctx, alice, StreamsRequest{JobID: "missing"})
	require.ErrorAs(t, err, &notFound)
}

func TestFollowStreamsServesTerminalJobs(t *testing.T) {
	f := newFixture(t)
	id := startRunningJob(t, f)
	f.stub.AppendStderr(id, "segmentation fault")
	require.NoError(t, f.orch.HandleJobComplete(ctx, stubber, id, time.Minute, false))

	resp, err := f.svc.FollowStreams(ctx, alice, StreamsRequest{JobID: id})
	require.NoError(t, err)
	require.Equal(t, job.StateFailure, resp.State)
	require.NotNil(t, resp.FailedState)
	require.Equal(t, job.StateRunning, *resp.FailedState)
	require.Equal(t, "segmentation fault\n", resp.Stderr)
}

// chanSink collects pushed responses for inspection.
type chanSink struct {
	mu      sync.Mutex
	got     []*StreamsResponse
	sendErr error
}

func (s *chanSink) Send(_ context.Context, resp *StreamsResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.got = append(s.got, resp)
	return nil
}

func (s *chanSink) responses() []*StreamsResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*StreamsResponse, len(s.got))
	copy(out, s.got)
	return out
}

func withFastPolling(t *testing.T) {
	t.Helper()
	saved := DefaultPollInterval
	DefaultPollInterval = 5 * time.Millisecond
	t.Cleanup(func() { DefaultPollInterval = saved })
}

func TestStreamPushesUntilTerminal(t *testing.T) {
	withFastPolling(t)
	f := newFixture(t)
	id := startRunningJob(t, f)
	f.stub.AppendStdout(id, "starting up")

	sink := &chanSink{}
	done := make(chan error, 1)
	go func() { done <- f.svc.Stream(ctx, alice, id, sink) }()

	// wait for the initial snapshot and the first data push to land
	require.Eventually(t, func() bool {
		return len(sink.responses()) >= 1
	}, 2*time.Second, 5*time.Millisecond)

	f.stub.AppendStdout(id, "halfway there")
	require.Eventually(t, func() bool {
		var stdout string
		for _, r := range sink.responses() {
			stdout += r.Stdout
		}
		return stdout == "starting up\nhalfway there\n"
	}, 2*time.Second, 5*time.Millisecond)

	f.stub.AppendStdout(id, "all done")
	require.NoError(t, f.orch.HandleJobComplete(ctx, stubber, id, time.Minute, true))

	require.NoError(t, <-done)

	// the final flush carries both the terminal state and the last log data
	got := sink.responses()
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	require.Equal(t, job.StateSuccess, last.State)
	var stdout string
	for _, r := range got {
		stdout += r.Stdout
	}
	require.Equal(t, "starting up\nhalfway there\nall done\n", stdout)
}

func TestStreamStopsOnSinkError(t *testing.T) {
	withFastPolling(t)
	f := newFixture(t)
	id := startRunningJob(t, f)

	sinkErr := errors.New("subscriber gone")
	sink := &chanSink{sendErr: sinkErr}
	err := f.svc.Stream(ctx, alice, id, sink)
	require.ErrorIs(t, err, sinkErr)
}

func TestStreamStopsOnContextCancel(t *testing.T) {
	withFastPolling(t)
	f := newFixture(t)
	id := startRunningJob(t, f)

	streamCtx, cancel := context.WithCancel(context.Background())
	sink := &chanSink{}
	done := make(chan error, 1)
	go func() { done <- f.svc.Stream(streamCtx, alice, id, sink) }()

	require.Eventually(t, func() bool {
		return len(sink.responses()) >= 1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestStreamMasksOwnership(t *testing.T) {
	withFastPolling(t)
	f := newFixture(t)
	id := startRunningJob(t, f)

	var notFound *cerrors.ErrNotFound
	err := f.svc.Stream(ctx, bob, id, &chanSink{})
	require.ErrorAs(t, err, &notFound)
}
