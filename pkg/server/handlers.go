// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package server

import (
	"github.com/sciencecloud/jobcore/pkg/api"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/storage"
	"github.com/sciencecloud/jobcore/pkg/verify"
)

func (s *Server) start(ev *api.Event) *api.EventResponse {
	msg := ev.Msg.(api.EventStartMsg)
	resp := &api.EventResponse{Caller: msg.Caller()}

	submitter := verify.Submitter{
		Owner:   msg.Caller().Username,
		User:    msg.Caller().Username,
		Project: msg.Project,
	}
	jobID, err := s.orch.StartJob(ev.Context, msg.Descriptor, submitter)
	if err != nil {
		resp.Err = err
		return resp
	}
	resp.JobID = jobID
	return resp
}

func (s *Server) get(ev *api.Event) *api.EventResponse {
	msg := ev.Msg.(api.EventGetMsg)
	resp := &api.EventResponse{Caller: msg.Caller(), JobID: msg.JobID}

	j, err := s.orch.GetJob(ev.Context, msg.Caller(), msg.JobID)
	if err != nil {
		resp.Err = err
		return resp
	}
	resp.Job = j
	return resp
}

func (s *Server) list(ev *api.Event) *api.EventResponse {
	msg := ev.Msg.(api.EventListMsg)
	resp := &api.EventResponse{Caller: msg.Caller()}

	jobs, err := s.orch.ListJobs(ev.Context, msg.Caller(), listQueryFields(msg.Query)...)
	if err != nil {
		resp.Err = err
		return resp
	}
	resp.Jobs = jobs
	return resp
}

// listQueryFields converts the client-facing list query into typed storage
// query fields, skipping unset filters.
func listQueryFields(query *api.ListQuery) []storage.JobQueryField {
	var fields []storage.JobQueryField
	if query == nil {
		return fields
	}
	if len(query.States) > 0 {
		fields = append(fields, storage.QueryJobStates(query.States...))
	}
	if query.Application != "" {
		fields = append(fields, storage.QueryJobApplication(query.Application))
	}
	if query.Version != "" {
		fields = append(fields, storage.QueryJobVersion(query.Version))
	}
	if !query.CreatedAfter.IsZero() {
		fields = append(fields, storage.QueryJobCreatedAfter(query.CreatedAfter))
	}
	if !query.CreatedBefore.IsZero() {
		fields = append(fields, storage.QueryJobCreatedBefore(query.CreatedBefore))
	}
	if query.Offset > 0 {
		fields = append(fields, storage.QueryJobOffset(query.Offset))
	}
	if query.Limit > 0 {
		fields = append(fields, storage.QueryJobLimit(query.Limit))
	}
	return fields
}

func (s *Server) cancel(ev *api.Event) *api.EventResponse {
	msg := ev.Msg.(api.EventCancelMsg)
	resp := &api.EventResponse{Caller: msg.Caller(), JobID: msg.JobID}
	resp.Err = s.orch.HandleProposedStateChange(ev.Context, msg.Caller(), msg.JobID, job.StateCanceling, "")
	return resp
}

func (s *Server) followStreams(ev *api.Event) *api.EventResponse {
	msg := ev.Msg.(api.EventFollowMsg)
	resp := &api.EventResponse{Caller: msg.Caller(), JobID: msg.Request.JobID}

	streams, err := s.followSvc.FollowStreams(ev.Context, msg.Caller(), msg.Request)
	if err != nil {
		resp.Err = err
		return resp
	}
	resp.Streams = streams
	return resp
}

func (s *Server) queryVNC(ev *api.Event) *api.EventResponse {
	msg := ev.Msg.(api.EventQueryVNCMsg)
	resp := &api.EventResponse{Caller: msg.Caller(), JobID: msg.JobID}

	vnc, err := s.sessionSvc.QueryVNC(ev.Context, msg.Caller(), msg.JobID)
	if err != nil {
		resp.Err = err
		return resp
	}
	resp.VNC = vnc
	return resp
}

func (s *Server) queryWeb(ev *api.Event) *api.EventResponse {
	msg := ev.Msg.(api.EventQueryWebMsg)
	resp := &api.EventResponse{Caller: msg.Caller(), JobID: msg.JobID}

	web, err := s.sessionSvc.QueryWeb(ev.Context, msg.Caller(), msg.JobID)
	if err != nil {
		resp.Err = err
		return resp
	}
	resp.Web = web
	return resp
}

func (s *Server) listMachineTypes(ev *api.Event) *api.EventResponse {
	msg := ev.Msg.(api.EventMachineTypesMsg)
	return &api.EventResponse{
		Caller:       msg.Caller(),
		MachineTypes: s.machineTypes,
	}
}

func (s *Server) stateChange(ev *api.Event) *api.EventResponse {
	msg := ev.Msg.(api.EventStateChangeMsg)
	resp := &api.EventResponse{Caller: msg.Caller(), JobID: msg.JobID}
	resp.Err = s.orch.HandleProposedStateChange(ev.Context, msg.Caller(), msg.JobID, msg.NewState, msg.Status)
	return resp
}

func (s *Server) addStatus(ev *api.Event) *api.EventResponse {
	msg := ev.Msg.(api.EventAddStatusMsg)
	resp := &api.EventResponse{Caller: msg.Caller(), JobID: msg.JobID}
	resp.Err = s.orch.HandleAddStatus(ev.Context, msg.Caller(), msg.JobID, msg.Status)
	return resp
}

func (s *Server) completed(ev *api.Event) *api.EventResponse {
	msg := ev.Msg.(api.EventCompletedMsg)
	resp := &api.EventResponse{Caller: msg.Caller(), JobID: msg.JobID}
	resp.Err = s.orch.HandleJobComplete(ev.Context, msg.Caller(), msg.JobID, msg.WallDuration, msg.Success)
	return resp
}

func (s *Server) submitFile(ev *api.Event) *api.EventResponse {
	msg := ev.Msg.(api.EventSubmitFileMsg)
	resp := &api.EventResponse{Caller: msg.Caller(), JobID: msg.JobID}
	resp.Err = s.orch.HandleIncomingFile(ev.Context, msg.Caller(), msg.JobID, msg.FilePath, msg.Length, msg.Data)
	return resp
}

func (s *Server) lookup(ev *api.Event) *api.EventResponse {
	msg := ev.Msg.(api.EventLookupMsg)
	resp := &api.EventResponse{Caller: msg.Caller(), JobID: msg.JobID}

	j, err := s.orch.LookupOwnJob(ev.Context, msg.Caller(), msg.JobID)
	if err != nil {
		resp.Err = err
		return resp
	}
	resp.Job = j
	return resp
}

func (s *Server) lookupURL(ev *api.Event) *api.EventResponse {
	msg := ev.Msg.(api.EventLookupURLMsg)
	resp := &api.EventResponse{Caller: msg.Caller()}

	j, err := s.orch.LookupOwnJobByURL(ev.Context, msg.Caller(), msg.URLID)
	if err != nil {
		resp.Err = err
		return resp
	}
	resp.JobID = j.ID
	resp.Job = j
	return resp
}
