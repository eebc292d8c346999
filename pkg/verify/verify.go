// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"

	"github.com/sciencecloud/jobcore/pkg/backend"
	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// JobMaxTime is the hard ceiling on the wall time a single job may request.
const JobMaxTime = 200 * time.Hour

// CatalogEntry is the application description returned by the catalog: the
// invocation template is an argv prefix that job parameters are appended to.
type CatalogEntry struct {
	Name       string
	Version    string
	Invocation []string
}

// ApplicationCatalog is the external collaborator resolving application
// snapshots by name and version.
type ApplicationCatalog interface {
	Lookup(ctx context.Context, name, version string) (*CatalogEntry, error)
}

// Submitter identifies who a job is verified for. Owner is the real (billed)
// principal; User is the acting principal and differs from Owner only for
// project-proxy execution.
type Submitter struct {
	Owner   string
	User    string
	Project string
}

// Verifier turns a raw job descriptor into an immutable, fully resolved Job
// in state VALIDATED. It performs catalog resolution and validation only; no
// I/O against the execution backend happens here.
type Verifier struct {
	catalog        ApplicationCatalog
	registry       *backend.Registry
	defaultBackend string
}

// NewVerifier constructs a Verifier.
func NewVerifier(catalog ApplicationCatalog, registry *backend.Registry, defaultBackend string) *Verifier {
	return &Verifier{
		catalog:        catalog,
		registry:       registry,
		defaultBackend: defaultBackend,
	}
}

// ResolveBackend maps an optional requested backend name to the effective
// one.
func (v *Verifier) ResolveBackend(requested string) string {
	if requested == "" {
		return v.defaultBackend
	}
	return requested
}

// Verify validates and resolves a job descriptor and returns the verified
// job. The returned job is in state VALIDATED, has a freshly generated
// unique id, and carries a snapshot of the resolved application.
func (v *Verifier) Verify(ctx context.Context, d *job.Descriptor, submitter Submitter) (*job.Job, error) {
	if err := d.Validate(); err != nil {
		return nil, &cerrors.ErrInvalidRequest{Reason: err.Error()}
	}
	if time.Duration(d.MaxTime) > JobMaxTime {
		return nil, &cerrors.ErrInvalidRequest{Reason: fmt.Sprintf("maximum job time exceeded (%v > %v)", time.Duration(d.MaxTime), JobMaxTime)}
	}

	backendName := v.ResolveBackend(d.Backend)
	handle, err := v.registry.Resolve(backendName)
	if err != nil {
		return nil, err
	}

	entry, err := v.catalog.Lookup(ctx, d.Application, d.Version)
	if err != nil {
		return nil, fmt.Errorf("application catalog lookup failed: %w", err)
	}
	if entry == nil {
		return nil, &cerrors.ErrApplicationNotFound{Name: d.Application, Version: d.Version}
	}

	if err := verifySharedMounts(d.SharedFileSystemMounts, handle); err != nil {
		return nil, err
	}

	argv := append(append([]string{}, entry.Invocation...), d.Parameters...)

	id := types.JobID(uuid.New().String())
	now := time.Now()

	archiveCollection := d.ArchiveCollection
	if archiveCollection == "" {
		archiveCollection = entry.Name
	}
	user := submitter.User
	if user == "" {
		user = submitter.Owner
	}

	return &job.Job{
		ID:      id,
		Owner:   submitter.Owner,
		User:    user,
		Project: submitter.Project,
		Application: job.Application{
			Name:       entry.Name,
			Version:    entry.Version,
			Invocation: shellquote.Join(argv...),
		},
		Name: d.Name,
		Reservation: job.Reservation{
			Nodes:        d.Nodes,
			TasksPerNode: d.TasksPerNode,
			MachineType:  d.MachineType,
			MaxTime:      time.Duration(d.MaxTime),
		},
		Mounts:                 d.Mounts,
		Peers:                  d.Peers,
		SharedFileSystemMounts: d.SharedFileSystemMounts,
		Backend:                backendName,
		ArchiveCollection:      archiveCollection,
		URLID:                  string(id),
		CurrentState:           job.StateValidated,
		Status:                 "Validated",
		CreatedAt:              now,
		ModifiedAt:             now,
	}, nil
}

// verifySharedMounts checks every requested shared file system mount against
// the backends the handle advertises support for.
func verifySharedMounts(mounts []job.SharedFileSystemMount, handle backend.Handle) error {
	if len(mounts) == 0 {
		return nil
	}
	supported := make(map[string]struct{})
	for _, name := range handle.SupportedSharedFileSystemBackends() {
		supported[name] = struct{}{}
	}
	for _, mount := range mounts {
		if _, ok := supported[mount.Backend]; !ok {
			return &cerrors.ErrUnsupportedMount{MountBackend: mount.Backend, JobBackend: handle.Name()}
		}
	}
	return nil
}
