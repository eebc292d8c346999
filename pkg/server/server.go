// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sciencecloud/jobcore/pkg/api"
	"github.com/sciencecloud/jobcore/pkg/follow"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/logging"
	"github.com/sciencecloud/jobcore/pkg/orchestrator"
	"github.com/sciencecloud/jobcore/pkg/session"
)

var log = logging.GetLogger("pkg/server")

var shutdownTimeout = 60 * time.Second

// Server is the long-running core of the orchestration service. It owns the
// API event loop: every user operation and backend callback arriving through
// the API listener is routed here and dispatched to the orchestrator and the
// follow and session services.
type Server struct {
	config

	apiListener api.Listener
	orch        *orchestrator.Orchestrator
	followSvc   *follow.Service
	sessionSvc  *session.Service

	machineTypes []job.MachineReservation
}

// New initializes and returns a new Server with the given API listener and
// service collaborators.
func New(l api.Listener, orch *orchestrator.Orchestrator, followSvc *follow.Service, sessionSvc *session.Service, opts ...Option) (*Server, error) {
	if l == nil {
		return nil, errors.New("API listener cannot be nil")
	}
	if orch == nil {
		return nil, errors.New("orchestrator cannot be nil")
	}
	if followSvc == nil {
		return nil, errors.New("follow service cannot be nil")
	}
	if sessionSvc == nil {
		return nil, errors.New("session service cannot be nil")
	}
	cfg := getConfig(opts...)
	return &Server{
		config:       cfg,
		apiListener:  l,
		orch:         orch,
		followSvc:    followSvc,
		sessionSvc:   sessionSvc,
		machineTypes: cfg.machineTypes,
	}, nil
}

// Start replays outstanding jobs, then starts the API listener and responds
// to incoming events until the listener dies or a termination signal
// arrives. On shutdown it waits for background job work to settle.
func (s *Server) Start(ctx context.Context, sigs chan os.Signal) error {
	a, err := api.New(s.config.apiOptions...)
	if err != nil {
		return fmt.Errorf("cannot start server: %w", err)
	}

	// Jobs interrupted by the previous process generation are picked up
	// before new requests can race them.
	s.orch.ReplayLostJobs(ctx)

	apiCtx, apiCancel := context.WithCancel(ctx)
	defer apiCancel()
	errCh := make(chan error, 1)
	go func() {
		lErr := s.apiListener.Serve(apiCtx, a)
		log.Debugf("API listener shut down")
		errCh <- lErr
	}()

loop:
	for {
		select {
		case ev := <-a.Events:
			s.handleEvent(ev)
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("error reported by API listener: %v", err)
			}
			return errors.New("API listener terminated prematurely without errors")
		case sig := <-sigs:
			log.Infof("Interrupted by signal %q, shutting down", sig)
			apiCancel()
			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("API listener terminated with error: %v", err)
				}
				break loop
			case <-time.After(shutdownTimeout):
				return fmt.Errorf("API listener didn't shut down within %v, exiting", shutdownTimeout)
			}
		}
	}
	// Running jobs belong to their backends and survive a restart; only the
	// in-process background work needs to settle before exit.
	s.orch.Wait()
	return nil
}

func (s *Server) handleEvent(ev *api.Event) {
	// Artifact submissions stream a request body through the event; handling
	// them inline would stall every other API caller behind one upload.
	if ev.Type == api.EventTypeSubmitFile {
		go s.dispatchEvent(ev)
		return
	}
	s.dispatchEvent(ev)
}

func (s *Server) dispatchEvent(ev *api.Event) {
	var resp *api.EventResponse

	switch ev.Type {
	case api.EventTypeStart:
		resp = s.start(ev)
	case api.EventTypeGet:
		resp = s.get(ev)
	case api.EventTypeList:
		resp = s.list(ev)
	case api.EventTypeCancel:
		resp = s.cancel(ev)
	case api.EventTypeFollow:
		resp = s.followStreams(ev)
	case api.EventTypeQueryVNC:
		resp = s.queryVNC(ev)
	case api.EventTypeQueryWeb:
		resp = s.queryWeb(ev)
	case api.EventTypeMachineTypes:
		resp = s.listMachineTypes(ev)
	case api.EventTypeStateChange:
		resp = s.stateChange(ev)
	case api.EventTypeAddStatus:
		resp = s.addStatus(ev)
	case api.EventTypeCompleted:
		resp = s.completed(ev)
	case api.EventTypeSubmitFile:
		resp = s.submitFile(ev)
	case api.EventTypeLookup:
		resp = s.lookup(ev)
	case api.EventTypeLookupURL:
		resp = s.lookupURL(ev)
	default:
		resp = &api.EventResponse{
			Caller: ev.Msg.Caller(),
			Err:    fmt.Errorf("invalid event type: %v", ev.Type),
		}
	}

	// time to wait before giving up if the response is not received.
	sendEventTimeout := 3 * time.Second
	select {
	case ev.RespCh <- resp:
	case <-time.After(sendEventTimeout):
		log.Errorf("timed out after %v trying to send a response event", sendEventTimeout)
	}
}
