// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package verify

import (
	"context"
	"testing"
	"time"

	"github.com/insomniacslk/xjson"
	"github.com/stretchr/testify/require"

	"github.com/sciencecloud/jobcore/pkg/backend"
	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/types"
)

var ctx = context.Background()

// fakeHandle implements backend.Handle for verification tests.
type fakeHandle struct {
	name          string
	sharedFSNames []string
}

func (f *fakeHandle) Name() string                                { return f.name }
func (f *fakeHandle) Prepare(context.Context, *job.Job) error     { return nil }
func (f *fakeHandle) Cancel(context.Context, *job.Job) error      { return nil }
func (f *fakeHandle) Cleanup(context.Context, types.JobID) error  { return nil }
func (f *fakeHandle) SupportedSharedFileSystemBackends() []string { return f.sharedFSNames }
func (f *fakeHandle) FollowLogs(_ context.Context, _ types.JobID, _, _, _, _ int) (backend.FollowChunk, error) {
	return backend.FollowChunk{}, nil
}
func (f *fakeHandle) QueryVNCParameters(context.Context, *job.Job) (backend.VNCParameters, error) {
	return backend.VNCParameters{}, nil
}
func (f *fakeHandle) QueryWebParameters(context.Context, *job.Job) (backend.WebParameters, error) {
	return backend.WebParameters{}, nil
}

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	registry := backend.NewRegistry([]backend.Descriptor{{Name: "slurm"}}, false)
	require.NoError(t, registry.Register(&fakeHandle{name: "slurm", sharedFSNames: []string{"cephfs"}}))

	catalog, err := NewStaticCatalog([]CatalogEntry{
		{Name: "blast", Version: "2.12.0", Invocation: []string{"blastn", "-db", "nt"}},
	})
	require.NoError(t, err)
	return NewVerifier(catalog, registry, "slurm")
}

func validDescriptor() *job.Descriptor {
	return &job.Descriptor{
		Application: "blast",
		Version:     "2.12.0",
		Parameters:  []string{"-query", "input.fasta"},
		Name:        "my run",
		Nodes:       2,
		MaxTime:     xjson.Duration(2 * time.Hour),
	}
}

func TestVerify(t *testing.T) {
	v := newTestVerifier(t)
	j, err := v.Verify(ctx, validDescriptor(), Submitter{Owner: "alice"})
	require.NoError(t, err)

	require.NotEmpty(t, j.ID)
	require.Equal(t, string(j.ID), j.URLID)
	require.Equal(t, "alice", j.Owner)
	require.Equal(t, "alice", j.User)
	require.Equal(t, "slurm", j.Backend)
	require.Equal(t, job.StateValidated, j.CurrentState)
	require.Equal(t, "blast", j.Application.Name)
	require.Equal(t, "blastn -db nt -query input.fasta", j.Application.Invocation)
	require.Equal(t, "blast", j.ArchiveCollection)
	require.Equal(t, 2*time.Hour, j.Reservation.MaxTime)
	require.Nil(t, j.StartedAt)
	require.Nil(t, j.FailedState)
}

func TestVerifyGeneratesUniqueIDs(t *testing.T) {
	v := newTestVerifier(t)
	j1, err := v.Verify(ctx, validDescriptor(), Submitter{Owner: "alice"})
	require.NoError(t, err)
	j2, err := v.Verify(ctx, validDescriptor(), Submitter{Owner: "alice"})
	require.NoError(t, err)
	require.NotEqual(t, j1.ID, j2.ID)
}

func TestVerifyQuotesInvocationParameters(t *testing.T) {
	v := newTestVerifier(t)
	d := validDescriptor()
	d.Parameters = []string{"-query", "my input.fasta"}
	j, err := v.Verify(ctx, d, Submitter{Owner: "alice"})
	require.NoError(t, err)
	require.Equal(t, "blastn -db nt -query 'my input.fasta'", j.Application.Invocation)
}

func TestVerifyRejectsInvalidDescriptor(t *testing.T) {
	v := newTestVerifier(t)
	d := validDescriptor()
	d.Application = ""
	_, err := v.Verify(ctx, d, Submitter{Owner: "alice"})
	var invalid *cerrors.ErrInvalidRequest
	require.ErrorAs(t, err, &invalid)
}

func TestVerifyRejectsExcessiveMaxTime(t *testing.T) {
	v := newTestVerifier(t)
	d := validDescriptor()
	d.MaxTime = xjson.Duration(JobMaxTime + time.Second)
	_, err := v.Verify(ctx, d, Submitter{Owner: "alice"})
	var invalid *cerrors.ErrInvalidRequest
	require.ErrorAs(t, err, &invalid)

	d.MaxTime = xjson.Duration(JobMaxTime)
	_, err = v.Verify(ctx, d, Submitter{Owner: "alice"})
	require.NoError(t, err)
}

func TestVerifyRejectsUnknownApplication(t *testing.T) {
	v := newTestVerifier(t)
	d := validDescriptor()
	d.Version = "9.9.9"
	_, err := v.Verify(ctx, d, Submitter{Owner: "alice"})
	var notFound *cerrors.ErrApplicationNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestVerifyRejectsUnknownBackend(t *testing.T) {
	v := newTestVerifier(t)
	d := validDescriptor()
	d.Backend = "k8s"
	_, err := v.Verify(ctx, d, Submitter{Owner: "alice"})
	var unknown *cerrors.ErrUnknownBackend
	require.ErrorAs(t, err, &unknown)
}

func TestVerifySharedFileSystemMounts(t *testing.T) {
	v := newTestVerifier(t)
	d := validDescriptor()
	d.SharedFileSystemMounts = []job.SharedFileSystemMount{
		{FileSystemID: "fs1", MountPath: "/shared", Backend: "cephfs"},
	}
	_, err := v.Verify(ctx, d, Submitter{Owner: "alice"})
	require.NoError(t, err)

	d.SharedFileSystemMounts[0].Backend = "nfs"
	_, err = v.Verify(ctx, d, Submitter{Owner: "alice"})
	var unsupported *cerrors.ErrUnsupportedMount
	require.ErrorAs(t, err, &unsupported)
}

func TestVerifyProjectProxySubmitter(t *testing.T) {
	v := newTestVerifier(t)
	j, err := v.Verify(ctx, validDescriptor(), Submitter{Owner: "project-x", User: "alice", Project: "project-x"})
	require.NoError(t, err)
	require.Equal(t, "project-x", j.Owner)
	require.Equal(t, "alice", j.User)
	require.Equal(t, "project-x", j.Project)
}

func TestStaticCatalog(t *testing.T) {
	catalog, err := NewStaticCatalog([]CatalogEntry{
		{Name: "blast", Version: "2.12.0", Invocation: []string{"blastn"}},
	})
	require.NoError(t, err)

	entry, err := catalog.Lookup(ctx, "BLAST", "2.12.0")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, "blast", entry.Name)

	entry, err = catalog.Lookup(ctx, "blast", "1.0.0")
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestStaticCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewStaticCatalog([]CatalogEntry{
		{Name: "blast", Version: "2.12.0", Invocation: []string{"blastn"}},
		{Name: "Blast", Version: "2.12.0", Invocation: []string{"blastn"}},
	})
	require.Error(t, err)
}
