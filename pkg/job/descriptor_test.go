// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package job

import (
	"testing"
	"time"

	"github.com/insomniacslk/xjson"
	"github.com/stretchr/testify/require"
)

func validDescriptor() *Descriptor {
	return &Descriptor{
		Application: "blast",
		Version:     "2.12.0",
		Parameters:  []string{"-query", "input.fasta"},
		Name:        "my run",
		Nodes:       2,
		MaxTime:     xjson.Duration(2 * time.Hour),
	}
}

func TestDescriptorValidate(t *testing.T) {
	require.NoError(t, validDescriptor().Validate())
}

func TestDescriptorValidateRejectsMissingApplication(t *testing.T) {
	d := validDescriptor()
	d.Application = ""
	require.Error(t, d.Validate())

	d = validDescriptor()
	d.Version = ""
	require.Error(t, d.Validate())
}

func TestDescriptorValidateRejectsBadMaxTime(t *testing.T) {
	d := validDescriptor()
	d.MaxTime = 0
	require.Error(t, d.Validate())

	d.MaxTime = xjson.Duration(-time.Hour)
	require.Error(t, d.Validate())
}

func TestDescriptorValidateRejectsBadNames(t *testing.T) {
	for _, name := range []string{
		"foo/bar",
		"foo.bar",
		"foo\\bar",
		"foo\nbar",
	} {
		d := validDescriptor()
		d.Name = name
		require.Error(t, d.Validate(), "name %q", name)
	}

	d := validDescriptor()
	d.Name = "perfectly fine name"
	require.NoError(t, d.Validate())
}

func TestDescriptorValidateRequiresReservation(t *testing.T) {
	d := validDescriptor()
	d.Nodes = 0
	d.MachineType = ""
	require.Error(t, d.Validate())

	d.MachineType = "u1-standard-4"
	require.NoError(t, d.Validate())
}

func TestDescriptorValidateRejectsBadPeers(t *testing.T) {
	d := validDescriptor()
	d.Peers = []Peer{{Hostname: "db", JobID: ""}}
	require.Error(t, d.Validate())

	d.Peers = []Peer{{Hostname: "", JobID: "some-id"}}
	require.Error(t, d.Validate())

	d.Peers = []Peer{{Hostname: "db", JobID: "some-id"}}
	require.NoError(t, d.Validate())
}

func TestDescriptorValidateRejectsBadSharedMounts(t *testing.T) {
	d := validDescriptor()
	d.SharedFileSystemMounts = []SharedFileSystemMount{{FileSystemID: "fs1", MountPath: "/shared"}}
	require.Error(t, d.Validate())

	d.SharedFileSystemMounts[0].Backend = "cephfs"
	require.NoError(t, d.Validate())
}
