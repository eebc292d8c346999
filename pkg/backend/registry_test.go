// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// fakeHandle is a minimal Handle for registry tests.
type fakeHandle struct {
	name string
}

func (f *fakeHandle) Name() string                                  { return f.name }
func (f *fakeHandle) Prepare(context.Context, *job.Job) error       { return nil }
func (f *fakeHandle) Cancel(context.Context, *job.Job) error        { return nil }
func (f *fakeHandle) Cleanup(context.Context, types.JobID) error    { return nil }
func (f *fakeHandle) SupportedSharedFileSystemBackends() []string   { return nil }
func (f *fakeHandle) FollowLogs(_ context.Context, _ types.JobID, _, _, _, _ int) (FollowChunk, error) {
	return FollowChunk{}, nil
}
func (f *fakeHandle) QueryVNCParameters(context.Context, *job.Job) (VNCParameters, error) {
	return VNCParameters{}, nil
}
func (f *fakeHandle) QueryWebParameters(context.Context, *job.Job) (WebParameters, error) {
	return WebParameters{}, nil
}

func TestRegisterAndResolve(t *testing.T) {
	r := NewRegistry([]Descriptor{{Name: "slurm"}}, false)
	require.NoError(t, r.Register(&fakeHandle{name: "slurm"}))

	handle, err := r.Resolve("slurm")
	require.NoError(t, err)
	require.Equal(t, "slurm", handle.Name())

	// resolution is case-insensitive
	handle, err = r.Resolve("SLURM")
	require.NoError(t, err)
	require.Equal(t, "slurm", handle.Name())
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry([]Descriptor{{Name: "slurm"}}, false)
	require.NoError(t, r.Register(&fakeHandle{name: "slurm"}))
	require.Error(t, r.Register(&fakeHandle{name: "slurm"}))
}

func TestResolveUnknownBackend(t *testing.T) {
	r := NewRegistry(nil, false)
	_, err := r.Resolve("slurm")
	var unknown *cerrors.ErrUnknownBackend
	require.ErrorAs(t, err, &unknown)
}

func TestResolveUnconfiguredBackend(t *testing.T) {
	r := NewRegistry(nil, false)
	require.NoError(t, r.Register(&fakeHandle{name: "slurm"}))

	// registered but not configured: rejected outside development mode
	_, err := r.Resolve("slurm")
	var unknown *cerrors.ErrUnknownBackend
	require.ErrorAs(t, err, &unknown)

	dev := NewRegistry(nil, true)
	require.NoError(t, dev.Register(&fakeHandle{name: "slurm"}))
	handle, err := dev.Resolve("slurm")
	require.NoError(t, err)
	require.Equal(t, "slurm", handle.Name())
}

func TestVerifyCaller(t *testing.T) {
	r := NewRegistry([]Descriptor{{Name: "slurm"}}, false)
	require.NoError(t, r.Register(&fakeHandle{name: "slurm"}))

	handle, err := r.VerifyCaller("job-1", "slurm", types.BackendPrincipal("slurm"))
	require.NoError(t, err)
	require.Equal(t, "slurm", handle.Name())

	// backend names compare case-insensitively
	_, err = r.VerifyCaller("job-1", "slurm", types.BackendPrincipal("Slurm"))
	require.NoError(t, err)

	var unauthorized *cerrors.ErrUnauthorized
	_, err = r.VerifyCaller("job-1", "slurm", types.BackendPrincipal("k8s"))
	require.ErrorAs(t, err, &unauthorized)

	_, err = r.VerifyCaller("job-1", "slurm", types.UserPrincipal("alice"))
	require.ErrorAs(t, err, &unauthorized)
}
