// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package job

import (
	"fmt"
	"time"

	"github.com/sciencecloud/jobcore/pkg/types"
)

// Application is the resolved, versioned snapshot of the application a job
// runs. It is copied into the job at verification time so that later catalog
// changes cannot affect a submitted job.
type Application struct {
	Name    string
	Version string

	// Invocation is the rendered invocation preview for this job, built from
	// the catalog's invocation template and the submitted parameters.
	Invocation string
}

// NameAndVersion returns the canonical name@version form of the application.
func (a Application) NameAndVersion() string {
	return fmt.Sprintf("%s@%s", a.Name, a.Version)
}

// Reservation describes the compute resources reserved for a job: either an
// explicit node/task layout or a named machine class, plus the maximum wall
// time.
type Reservation struct {
	Nodes        int
	TasksPerNode int

	// MachineType optionally names a machine reservation class instead of an
	// explicit node layout.
	MachineType string

	MaxTime time.Duration
}

// MachineReservation is a named class of compute resources that users can
// request instead of an explicit node layout.
type MachineReservation struct {
	Name     string
	Cores    int
	MemoryGB int
	GPUs     int
}

// Mount is a file system path made available inside the job.
type Mount struct {
	SourcePath      string
	DestinationPath string
	ReadOnly        bool
}

// Peer is a request for inter-job networking: the job identified by JobID
// becomes reachable under Hostname from inside this job.
type Peer struct {
	Hostname string
	JobID    types.JobID
}

// SharedFileSystemMount mounts a shared file system inside the job. The
// Backend field names the shared file system implementation, which the
// target compute backend must advertise support for.
type SharedFileSystemMount struct {
	FileSystemID string
	MountPath    string
	Backend      string
}

// Job is the aggregate root of the orchestration core. The identity and
// submission-time fields are write-once at creation; the lifecycle fields
// (CurrentState, Status, FailedState, ModifiedAt, StartedAt) are owned
// exclusively by the orchestrator.
type Job struct {
	ID types.JobID

	// Owner is the real principal that the job is billed to. User is the
	// acting principal, which differs from Owner only for project-proxy
	// execution.
	Owner   string
	User    string
	Project string

	Application Application
	Name        string
	Reservation Reservation

	Mounts                 []Mount
	Peers                  []Peer
	SharedFileSystemMounts []SharedFileSystemMount

	// Backend is the name of the compute backend that owns this job for its
	// entire lifetime.
	Backend string

	// ArchiveCollection is the destination collection for result artifacts.
	ArchiveCollection string

	// URLID is the identifier under which interactive sessions of this job
	// are exposed. It defaults to the job id.
	URLID string

	CurrentState State
	Status       string

	// FailedState records the state the job was in immediately before
	// entering FAILURE. It is nil unless CurrentState is FAILURE and the job
	// had previously left VALIDATED.
	FailedState *State

	CreatedAt  time.Time
	ModifiedAt time.Time

	// StartedAt is nil until the job enters RUNNING.
	StartedAt *time.Time
}

// TimeLeft returns the remaining wall time of a started job, or false if the
// job has not started yet.
func (j *Job) TimeLeft() (time.Duration, bool) {
	if j.StartedAt == nil {
		return 0, false
	}
	left := j.StartedAt.Add(j.Reservation.MaxTime).Sub(time.Now())
	if left < 0 {
		left = 0
	}
	return left, true
}

func (j *Job) String() string {
	return fmt.Sprintf("Job(%s, %s)", j.ID, j.Application.NameAndVersion())
}
