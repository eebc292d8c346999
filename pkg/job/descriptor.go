// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package job

import (
	"errors"
	"fmt"
	"strings"

	"github.com/insomniacslk/xjson"
)

// Descriptor models the deserialized version of the JSON text given as input
// to the job submission request. It is the raw, unverified form of a job;
// verification turns it into a Job.
type Descriptor struct {
	Application string
	Version     string

	// Parameters are the application parameters used to render the
	// invocation template.
	Parameters []string

	Name string

	Nodes        int
	TasksPerNode int
	MachineType  string
	MaxTime      xjson.Duration

	Backend string

	Mounts                 []Mount
	Peers                  []Peer
	SharedFileSystemMounts []SharedFileSystemMount

	// ArchiveCollection optionally overrides the destination collection for
	// result artifacts. Defaults to the application name.
	ArchiveCollection string
}

// invalidNameChars are the characters that may not appear in a job name.
// Path separators, dots and newlines would allow escaping the job's result
// directory or corrupting log output.
const invalidNameChars = "./\\\n"

// Validate performs sanity checks on the job descriptor.
func (d *Descriptor) Validate() error {
	if d.Application == "" {
		return errors.New("application name cannot be empty")
	}
	if d.Version == "" {
		return errors.New("application version cannot be empty")
	}
	if d.MaxTime <= 0 {
		return errors.New("maximum wall time must be positive")
	}
	if d.Nodes < 0 || d.TasksPerNode < 0 {
		return errors.New("node and task counts must be non-negative")
	}
	if d.Nodes == 0 && d.MachineType == "" {
		return errors.New("either a node count or a machine type must be requested")
	}
	if strings.ContainsAny(d.Name, invalidNameChars) {
		return fmt.Errorf("job name %q contains forbidden characters", d.Name)
	}
	for _, peer := range d.Peers {
		if peer.Hostname == "" || peer.JobID == "" {
			return errors.New("peers must declare both a hostname and a job id")
		}
	}
	for _, mount := range d.SharedFileSystemMounts {
		if mount.Backend == "" {
			return errors.New("shared file system mounts must declare a backend")
		}
	}
	return nil
}
