// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package session

import (
	"context"
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
		{Name: "jupyter", Version: "7.0.0", Invocation: []string{"jupyter", "lab"}},
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

func startRunningJob(t *testing.T, f *fixture) types.JobID {
	t.Helper()
	d := &job.Descriptor{
		Application: "jupyter",
		Version:     "7.0.0",
		Nodes:       1,
		MaxTime:     xjson.Duration(time.Hour),
	}
	id, err := f.orch.StartJob(ctx, d, verify.Submitter{Owner: "alice"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		j, err := f.orch.GetJob(ctx, alice, id)
		return err == nil && j.CurrentState == job.StateScheduled
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, f.orch.HandleProposedStateChange(ctx, stubber, id, job.StateRunning, ""))
	return id
}

func TestQueryVNC(t *testing.T) {
	f := newFixture(t)
	id := startRunningJob(t, f)
	f.stub.SetVNCParameters(id, backend.VNCParameters{Path: "/vnc/7", Password: "hunter2"})

	v, err := f.svc.QueryVNC(ctx, alice, id)
	require.NoError(t, err)
	require.Equal(t, id, v.JobID)
	require.Equal(t, string(id), v.URLID)
	require.Equal(t, "/vnc/7", v.Path)
	require.Equal(t, "hunter2", v.Password)
}

func TestQueryVNCIsCached(t *testing.T) {
	f := newFixture(t)
	id := startRunningJob(t, f)
	f.stub.SetVNCParameters(id, backend.VNCParameters{Path: "/vnc/7", Password: "hunter2"})

	first, err := f.svc.QueryVNC(ctx, alice, id)
	require.NoError(t, err)

	// the backend changing its answer must not be visible while cached
	f.stub.SetVNCParameters(id, backend.VNCParameters{Path: "/vnc/8", Password: "other"})
	second, err := f.svc.QueryVNC(ctx, alice, id)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestQueryWeb(t *testing.T) {
	f := newFixture(t)
	id := startRunningJob(t, f)
	f.stub.SetWebParameters(id, backend.WebParameters{Path: "/app/lab"})

	w, err := f.svc.QueryWeb(ctx, alice, id)
	require.NoError(t, err)
	require.Equal(t, id, w.JobID)
	require.Equal(t, string(id), w.URLID)
	require.Equal(t, "/app/lab", w.Path)
}

func TestQueryRequiresRunningJob(t *testing.T) {
	f := newFixture(t)
	d := &job.Descriptor{
		Application: "jupyter",
		Version:     "7.0.0",
		Nodes:       1,
		MaxTime:     xjson.Duration(time.Hour),
	}
	id, err := f.orch.StartJob(ctx, d, verify.Submitter{Owner: "alice"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		j, err := f.orch.GetJob(ctx, alice, id)
		return err == nil && j.CurrentState == job.StateScheduled
	}, 2*time.Second, 10*time.Millisecond)

	var invalid *cerrors.ErrInvalidRequest
	_, err = f.svc.QueryVNC(ctx, alice, id)
	require.ErrorAs(t, err, &invalid)
	_, err = f.svc.QueryWeb(ctx, alice, id)
	require.ErrorAs(t, err, &invalid)
}

func TestQueryMasksOwnership(t *testing.T) {
	f := newFixture(t)
	id := startRunningJob(t, f)
	f.stub.SetVNCParameters(id, backend.VNCParameters{Path: "/vnc/7"})

	var notFound *cerrors.ErrNotFound
	_, err := f.svc.QueryVNC(ctx, bob, id)
	require.ErrorAs(t, err, &notFound)
	_, err = f.svc.QueryWeb(ctx, alice, "missing")
	require.ErrorAs(t, err, &notFound)
}

func TestQueryUnsupportedByBackend(t *testing.T) {
	f := newFixture(t)
	id := startRunningJob(t, f)

	var unsupported *cerrors.ErrOperationNotSupported
	_, err := f.svc.QueryVNC(ctx, alice, id)
	require.ErrorAs(t, err, &unsupported)
	_, err = f.svc.QueryWeb(ctx, alice, id)
	require.ErrorAs(t, err, &unsupported)
}

func TestSessionsEvictedOnCompletion(t *testing.T) {
	f := newFixture(t)
	id := startRunningJob(t, f)
	f.stub.SetVNCParameters(id, backend.VNCParameters{Path: "/vnc/7", Password: "hunter2"})
	f.stub.SetWebParameters(id, backend.WebParameters{Path: "/app/lab"})

	_, err := f.svc.QueryVNC(ctx, alice, id)
	require.NoError(t, err)
	_, err = f.svc.QueryWeb(ctx, alice, id)
	require.NoError(t, err)

	require.NoError(t, f.orch.HandleJobComplete(ctx, stubber, id, time.Minute, true))

	f.svc.mu.Lock()
	defer f.svc.mu.Unlock()
	require.Empty(t, f.svc.vnc)
	require.Empty(t, f.svc.web)
}
