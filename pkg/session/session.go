// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package session

import (
	"context"
	"errors"
	"sync"

	"github.com/sciencecloud/jobcore/pkg/backend"
	"github.com/sciencecloud/jobcore/pkg/cerrors"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/logging"
	"github.com/sciencecloud/jobcore/pkg/orchestrator"
	"github.com/sciencecloud/jobcore/pkg/types"
)

var log = logging.GetLogger("pkg/session")

// VNC is the end-user projection of a job's VNC session: everything a
// client needs to connect, and nothing about the backend's internals.
type VNC struct {
	JobID    types.JobID
	URLID    string
	Path     string
	Password string
}

// Web is the end-user projection of a job's interactive web session.
type Web struct {
	JobID types.JobID
	URLID string
	Path  string
}

// Service brokers interactive sessions between end users and backends.
// Session parameters are cached per job so that repeated queries (every
// browser reconnect issues one) do not hammer the backend; the cache entry
// is evicted as soon as the job leaves RUNNING.
type Service struct {
	orch     *orchestrator.Orchestrator
	registry *backend.Registry

	mu  sync.Mutex
	vnc map[types.JobID]*VNC
	web map[types.JobID]*Web
}

// NewService creates a session Service. It registers a lifecycle observer
// on the orchestrator to drop cached sessions of jobs that reached a
// terminal state.
func NewService(orch *orchestrator.Orchestrator, registry *backend.Registry) (*Service, error) {
	if orch == nil {
		return nil, errors.New("orchestrator cannot be nil")
	}
	if registry == nil {
		return nil, errors.New("backend registry cannot be nil")
	}
	s := &Service{
		orch:     orch,
		registry: registry,
		vnc:      make(map[types.JobID]*VNC),
		web:      make(map[types.JobID]*Web),
	}
	orch.RegisterLifecycleObserver(s.jobChanged)
	return s, nil
}

func (s *Service) jobChanged(j *job.Job) {
	if !j.CurrentState.IsTerminal() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vnc[j.ID]; ok {
		log.Debugf("Job %s: dropping cached VNC session", j.ID)
		delete(s.vnc, j.ID)
	}
	if _, ok := s.web[j.ID]; ok {
		log.Debugf("Job %s: dropping cached web session", j.ID)
		delete(s.web, j.ID)
	}
}

// QueryVNC returns the VNC session of a running job owned by the caller.
func (s *Service) QueryVNC(ctx context.Context, caller types.Principal, id types.JobID) (*VNC, error) {
	j, err := s.runningJob(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	cached, ok := s.vnc[id]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	handle, err := s.registry.Resolve(j.Backend)
	if err != nil {
		return nil, err
	}
	params, err := handle.QueryVNCParameters(ctx, j)
	if err != nil {
		return nil, err
	}
	v := &VNC{
		JobID:    j.ID,
		URLID:    j.URLID,
		Path:     params.Path,
		Password: params.Password,
	}
	s.mu.Lock()
	s.vnc[id] = v
	s.mu.Unlock()
	return v, nil
}

// QueryWeb returns the web session of a running job owned by the caller.
func (s *Service) QueryWeb(ctx context.Context, caller types.Principal, id types.JobID) (*Web, error) {
	j, err := s.runningJob(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	cached, ok := s.web[id]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	handle, err := s.registry.Resolve(j.Backend)
	if err != nil {
		return nil, err
	}
	params, err := handle.QueryWebParameters(ctx, j)
	if err != nil {
		return nil, err
	}
	w := &Web{
		JobID: j.ID,
		URLID: j.URLID,
		Path:  params.Path,
	}
	s.mu.Lock()
	s.web[id] = w
	s.mu.Unlock()
	return w, nil
}

// runningJob fetches a job with ownership masking and requires it to be
// RUNNING; interactive sessions only exist for running jobs.
func (s *Service) runningJob(ctx context.Context, caller types.Principal, id types.JobID) (*job.Job, error) {
	j, err := s.orch.GetJob(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if j.CurrentState != job.StateRunning {
		return nil, &cerrors.ErrInvalidRequest{Reason: "job is not running"}
	}
	return j, nil
}
