// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package backend

import (
	"strings"
	"sync"

	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/logging"
	"github.com/sciencecloud/jobcore/pkg/types"
)

var log = logging.GetLogger("pkg/backend")

// Descriptor describes a backend known from configuration. Descriptors are
// loaded at startup and never mutated afterwards.
type Descriptor struct {
	Name    string
	Trusted bool
}

// Registry resolves logical backend names to capability handles. Only
// configured backend names are trusted; in development mode unregistered
// names may be resolved as well, which is an explicit, logged opt-in.
type Registry struct {
	lock sync.RWMutex

	handles map[string]Handle

	// developmentMode relaxes the trust check so that any registered
	// backend can be resolved even without a configuration entry.
	developmentMode bool

	configured map[string]Descriptor
}

// NewRegistry constructs a registry trusting exactly the configured
// descriptors. With developmentMode set, handles registered without a
// matching descriptor resolve as well.
func NewRegistry(descriptors []Descriptor, developmentMode bool) *Registry {
	configured := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		configured[strings.ToLower(d.Name)] = d
	}
	if developmentMode {
		log.Warningf("Backend registry running in development mode: unconfigured backend names will be accepted")
	}
	return &Registry{
		handles:         make(map[string]Handle),
		configured:      configured,
		developmentMode: developmentMode,
	}
}

// Register adds a backend handle to the registry.
func (r *Registry) Register(handle Handle) error {
	name := strings.ToLower(handle.Name())

	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.handles[name]; ok {
		return &cerrors.ErrInvalidRequest{Reason: "backend " + name + " is already registered"}
	}

	log.Infof("Registering backend %q (%T)", name, handle)
	r.handles[name] = handle
	return nil
}

// Resolve returns the handle for a configured backend name. Unconfigured
// names fail with ErrUnknownBackend unless development mode is enabled, in
// which case the resolution is logged explicitly.
func (r *Registry) Resolve(name string) (Handle, error) {
	key := strings.ToLower(name)

	r.lock.RLock()
	defer r.lock.RUnlock()

	handle, ok := r.handles[key]
	if !ok {
		return nil, &cerrors.ErrUnknownBackend{Name: name}
	}
	if _, configured := r.configured[key]; !configured {
		if !r.developmentMode {
			return nil, &cerrors.ErrUnknownBackend{Name: name}
		}
		log.Warningf("Resolving unconfigured backend %q (development mode)", name)
	}
	return handle, nil
}

// VerifyCaller checks that the calling principal is the backend that owns
// the job and returns the handle. Used by the callback protocol: only the
// backend that owns a job may report on it.
func (r *Registry) VerifyCaller(jobID types.JobID, backendName string, caller types.Principal) (Handle, error) {
	handle, err := r.Resolve(backendName)
	if err != nil {
		return nil, err
	}
	if !caller.IsBackend() || !strings.EqualFold(caller.BackendName, backendName) {
		return nil, &cerrors.ErrUnauthorized{JobID: string(jobID)}
	}
	return handle, nil
}

// Names returns the configured backend names, for diagnostics.
func (r *Registry) Names() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	names := make([]string, 0, len(r.handles))
	for name := range r.handles {
		names = append(names, name)
	}
	return names
}
