// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sciencecloud/jobcore/pkg/follow"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// CurrentAPIVersion is the current version of the API that the clients must
// be able to speak in order to communicate with the server. Versioning
// starts at 1, while 0 is to be considered an error indicator.
const CurrentAPIVersion uint32 = 1

// DefaultEventTimeout is the default time to wait for sending or receiving
// an event on the events channel.
var DefaultEventTimeout = 3 * time.Second

// ServerIDFunc is used to return a custom server ID in api responses.
type ServerIDFunc func() string

// The API structure implements the communication between listeners and the
// orchestration server. Every user operation and backend callback becomes an
// Event on the Events channel, and the server routes the answer back through
// the event's response channel. This keeps the API transport-agnostic:
// listeners implement transports, the API defines the conversation.
type API struct {
	// Config is a set of knobs to change the behavior of API processing.
	Config Config
	// Events channel is used to route API events between listeners and the
	// server. It is not necessary to close it explicitly as it will be
	// garbage-collected when the API structure goes out of scope.
	Events chan *Event
	// serverID is used by ServerID() to return a custom server ID in API
	// responses.
	serverID string
}

// New returns an initialized instance of an API struct with the specified
// options applied.
func New(opts ...Option) (*API, error) {
	cfg := getConfig(opts...)
	serverID, err := obtainServerID(cfg.ServerIDFunc)
	if err != nil {
		return nil, fmt.Errorf("cannot create API instance: %w", err)
	}
	return &API{
		Config:   cfg,
		Events:   make(chan *Event),
		serverID: serverID,
	}, nil
}

func obtainServerID(serverIDFunc ServerIDFunc) (string, error) {
	serverID := "<unknown>"
	if serverIDFunc != nil {
		serverID = serverIDFunc()
	} else {
		if hn, err := os.Hostname(); err == nil {
			serverID = hn
		}
	}
	if serverID == "" {
		return "", errors.New("server ID cannot be empty")
	}
	return serverID, nil
}

// ServerID returns the Server ID to be used in responses. A custom server ID
// generation function can be passed to New().
func (a *API) ServerID() string {
	return a.serverID
}

// newResponse returns a new Response object with type and server ID set. The
// Data field has to be set by the caller.
func (a *API) newResponse(rtype ResponseType) Response {
	return Response{
		Type:     rtype,
		ServerID: a.ServerID(),
	}
}

// Version returns the version of the API. It's the client's responsibility
// to check whether it can talk the right API.
func (a *API) Version() Response {
	resp := a.newResponse(ResponseTypeVersion)
	resp.Data = ResponseDataVersion{
		Version: CurrentAPIVersion,
	}
	return resp
}

// SendEvent sends an Event object on the event channel, without waiting for
// a reply. If the send doesn't complete within the timeout, an error is
// returned.
func (a *API) SendEvent(ev *Event, timeout *time.Duration) error {
	if ev.Msg == nil {
		return errors.New("event message cannot be nil")
	}
	caller := ev.Msg.Caller()
	if caller.Username == "" && caller.BackendName == "" {
		return errors.New("caller cannot be empty")
	}
	to := a.Config.EventTimeout
	if timeout != nil {
		to = *timeout
	}
	select {
	case a.Events <- ev:
		return nil
	case <-time.After(to):
		return fmt.Errorf("sending event timed out after %v", to)
	}
}

// SendReceiveEvent sends an Event object on the event channel, and waits for
// a reply from the consumer. The timeout is used once for the send, and once
// for the receive, it's not a cumulative timeout.
func (a *API) SendReceiveEvent(ev *Event, timeout *time.Duration) (*EventResponse, error) {
	to := a.Config.EventTimeout
	if timeout != nil {
		to = *timeout
	}
	if err := a.SendEvent(ev, &to); err != nil {
		return nil, err
	}
	select {
	case resp := <-ev.RespCh:
		return resp, nil
	case <-time.After(to):
		return nil, fmt.Errorf("time out waiting for response after %v", to)
	}
}

func (a *API) newEvent(ctx context.Context, etype EventType, msg EventMsg) *Event {
	return &Event{
		Context: ctx,
		Type:    etype,
		Msg:     msg,
		RespCh:  make(chan *EventResponse, 1),
	}
}

// Start requests to create a new job as described by the job descriptor. It
// returns the unique job ID assigned at verification, which can be used for
// all further operations of the API.
func (a *API) Start(ctx context.Context, caller types.Principal, descriptor *job.Descriptor, project string) (Response, error) {
	resp := a.newResponse(ResponseTypeStart)
	ev := a.newEvent(ctx, EventTypeStart, EventStartMsg{
		caller:     caller,
		Descriptor: descriptor,
		Project:    project,
	})
	respEv, err := a.SendReceiveEvent(ev, nil)
	if err != nil {
		return resp, err
	}
	resp.Data = ResponseDataStart{JobID: respEv.JobID}
	resp.Err = respEv.Err
	return resp, nil
}

// Get returns a single job owned by the caller.
func (a *API) Get(ctx context.Context, caller types.Principal, jobID types.JobID) (Response, error) {
	resp := a.newResponse(ResponseTypeGet)
	ev := a.newEvent(ctx, EventTypeGet, EventGetMsg{caller: caller, JobID: jobID})
	respEv, err := a.SendReceiveEvent(ev, nil)
	if err != nil {
		return resp, err
	}
	resp.Data = ResponseDataGet{Job: respEv.Job}
	resp.Err = respEv.Err
	return resp, nil
}

// List returns the caller's jobs matching the given query, newest first.
func (a *API) List(ctx context.Context, caller types.Principal, query *ListQuery) (Response, error) {
	resp := a.newResponse(ResponseTypeList)
	ev := a.newEvent(ctx, EventTypeList, EventListMsg{caller: caller, Query: query})
	respEv, err := a.SendReceiveEvent(ev, nil)
	if err != nil {
		return resp, err
	}
	resp.Data = ResponseDataList{Jobs: respEv.Jobs}
	resp.Err = respEv.Err
	return resp, nil
}

// Cancel requests a job cancellation by the given job ID.
func (a *API) Cancel(ctx context.Context, caller types.Principal, jobID types.JobID) (Response, error) {
	resp := a.newResponse(ResponseTypeCancel)
	ev := a.newEvent(ctx, EventTypeCancel, EventCancelMsg{caller: caller, JobID: jobID})
	respEv, err := a.SendReceiveEvent(ev, nil)
	if err != nil {
		return resp, err
	}
	resp.Data = ResponseDataCancel{}
	resp.Err = respEv.Err
	return resp, nil
}

// Follow returns one poll's worth of output of the given job, starting at
// the offsets the client saw last.
func (a *API) Follow(ctx context.Context, caller types.Principal, request follow.StreamsRequest) (Response, error) {
	resp := a.newResponse(ResponseTypeFollow)
	ev := a.newEvent(ctx, EventTypeFollow, EventFollowMsg{caller: caller, Request: request})
	respEv, err := a.SendReceiveEvent(ev, nil)
	if err != nil {
		return resp, err
	}
	resp.Data = ResponseDataFollow{Streams: respEv.Streams}
	resp.Err = respEv.Err
	return resp, nil
}

// QueryVNC returns the VNC connection parameters of an interactive job.
func (a *API) QueryVNC(ctx context.Context, caller types.Principal, jobID types.JobID) (Response, error) {
	resp := a.newResponse(ResponseTypeQueryVNC)
	ev := a.newEvent(ctx, EventTypeQueryVNC, EventQueryVNCMsg{caller: caller, JobID: jobID})
	respEv, err := a.SendReceiveEvent(ev, nil)
	if err != nil {
		return resp, err
	}
	resp.Data = ResponseDataQueryVNC{VNC: respEv.VNC}
	resp.Err = respEv.Err
	return resp, nil
}

// QueryWeb returns the web session parameters of an interactive job.
func (a *API) QueryWeb(ctx context.Context, caller types.Principal, jobID types.JobID) (Response, error) {
	resp := a.newResponse(ResponseTypeQueryWeb)
	ev := a.newEvent(ctx, EventTypeQueryWeb, EventQueryWebMsg{caller: caller, JobID: jobID})
	respEv, err := a.SendReceiveEvent(ev, nil)
	if err != nil {
		return resp, err
	}
	resp.Data = ResponseDataQueryWeb{Web: respEv.Web}
	resp.Err = respEv.Err
	return resp, nil
}

// MachineTypes lists the machine reservation classes offered by the server.
func (a *API) MachineTypes(ctx context.Context, caller types.Principal) (Response, error) {
	resp := a.newResponse(ResponseTypeMachineTypes)
	ev := a.newEvent(ctx, EventTypeMachineTypes, EventMachineTypesMsg{caller: caller})
	respEv, err := a.SendReceiveEvent(ev, nil)
	if err != nil {
		return resp, err
	}
	resp.Data = ResponseDataMachineTypes{MachineTypes: respEv.MachineTypes}
	resp.Err = respEv.Err
	return resp, nil
}

// RequestStateChange proposes a lifecycle transition for a job. Backends use
// it to report progress of jobs they own; user cancellations arrive through
// Cancel instead.
func (a *API) RequestStateChange(ctx context.Context, caller types.Principal, jobID types.JobID, newState job.State, status string) (Response, error) {
	resp := a.newResponse(ResponseTypeStateChange)
	ev := a.newEvent(ctx, EventTypeStateChange, EventStateChangeMsg{
		caller:   caller,
		JobID:    jobID,
		NewState: newState,
		Status:   status,
	})
	respEv, err := a.SendReceiveEvent(ev, nil)
	if err != nil {
		return resp, err
	}
	resp.Data = ResponseDataStateChange{}
	resp.Err = respEv.Err
	return resp, nil
}

// AddStatus updates the free-form status line of a job on behalf of its
// backend.
func (a *API) AddStatus(ctx context.Context, caller types.Principal, jobID types.JobID, status string) (Response, error) {
	resp := a.newResponse(ResponseTypeAddStatus)
	ev := a.newEvent(ctx, EventTypeAddStatus, EventAddStatusMsg{caller: caller, JobID: jobID, Status: status})
	respEv, err := a.SendReceiveEvent(ev, nil)
	if err != nil {
		return resp, err
	}
	resp.Data = ResponseDataAddStatus{}
	resp.Err = respEv.Err
	return resp, nil
}

// Completed reports the final outcome of a job on behalf of its backend.
func (a *API) Completed(ctx context.Context, caller types.Principal, jobID types.JobID, wallDuration time.Duration, success bool) (Response, error) {
	resp := a.newResponse(ResponseTypeCompleted)
	ev := a.newEvent(ctx, EventTypeCompleted, EventCompletedMsg{
		caller:       caller,
		JobID:        jobID,
		WallDuration: wallDuration,
		Success:      success,
	})
	respEv, err := a.SendReceiveEvent(ev, nil)
	if err != nil {
		return resp, err
	}
	resp.Data = ResponseDataCompleted{}
	resp.Err = respEv.Err
	return resp, nil
}

// SubmitFile streams a result artifact of a job into the server. The Data
// reader is consumed by the server before the response is sent, so the
// listener must keep it readable until this call returns.
func (a *API) SubmitFile(ctx context.Context, caller types.Principal, jobID types.JobID, filePath string, length int64, data io.Reader) (Response, error) {
	resp := a.newResponse(ResponseTypeSubmitFile)
	ev := a.newEvent(ctx, EventTypeSubmitFile, EventSubmitFileMsg{
		caller:   caller,
		JobID:    jobID,
		FilePath: filePath,
		Length:   length,
		Data:     data,
	})
	respEv, err := a.SendReceiveEvent(ev, nil)
	if err != nil {
		return resp, err
	}
	resp.Data = ResponseDataSubmitFile{}
	resp.Err = respEv.Err
	return resp, nil
}

// Lookup returns a job to the backend that owns it.
func (a *API) Lookup(ctx context.Context, caller types.Principal, jobID types.JobID) (Response, error) {
	resp := a.newResponse(ResponseTypeLookup)
	ev := a.newEvent(ctx, EventTypeLookup, EventLookupMsg{caller: caller, JobID: jobID})
	respEv, err := a.SendReceiveEvent(ev, nil)
	if err != nil {
		return resp, err
	}
	resp.Data = ResponseDataLookup{Job: respEv.Job}
	resp.Err = respEv.Err
	return resp, nil
}

// LookupURL resolves a job by its interactive-session identifier on behalf
// of the backend that owns it.
func (a *API) LookupURL(ctx context.Context, caller types.Principal, urlID string) (Response, error) {
	resp := a.newResponse(ResponseTypeLookup)
	ev := a.newEvent(ctx, EventTypeLookupURL, EventLookupURLMsg{caller: caller, URLID: urlID})
	respEv, err := a.SendReceiveEvent(ev, nil)
	if err != nil {
		return resp, err
	}
	resp.Data = ResponseDataLookup{Job: respEv.Job}
	resp.Err = respEv.Err
	return resp, nil
}
