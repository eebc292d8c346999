// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package api

import (
	"context"
	"io"
	"time"

	"github.com/sciencecloud/jobcore/pkg/follow"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/session"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// EventType identifies an API event type.
type EventType uint16

func (e EventType) String() string {
	if name, ok := eventTypeNames[e]; ok {
		return name
	}
	return "unknown_event"
}

var eventTypeNames = map[EventType]string{
	EventTypeStart:        "event_type_start",
	EventTypeGet:          "event_type_get",
	EventTypeList:         "event_type_list",
	EventTypeCancel:       "event_type_cancel",
	EventTypeFollow:       "event_type_follow",
	EventTypeQueryVNC:     "event_type_query_vnc",
	EventTypeQueryWeb:     "event_type_query_web",
	EventTypeMachineTypes: "event_type_machine_types",
	EventTypeStateChange:  "event_type_state_change",
	EventTypeAddStatus:    "event_type_add_status",
	EventTypeCompleted:    "event_type_completed",
	EventTypeSubmitFile:   "event_type_submit_file",
	EventTypeLookup:       "event_type_lookup",
	EventTypeLookupURL:    "event_type_lookup_url",
	EventTypeError:        "event_type_error",
}

// list of existing API event types.
const (
	EventTypeStart EventType = iota
	EventTypeGet
	EventTypeList
	EventTypeCancel
	EventTypeFollow
	EventTypeQueryVNC
	EventTypeQueryWeb
	EventTypeMachineTypes
	EventTypeStateChange
	EventTypeAddStatus
	EventTypeCompleted
	EventTypeSubmitFile
	EventTypeLookup
	EventTypeLookupURL
	EventTypeError
)

// Event represents an event that the API can generate. This is used by the
// API listener to enable event handling.
type Event struct {
	Context context.Context
	Type    EventType
	Err     error
	Msg     EventMsg
	// RespCh is a channel where the server can send the responses back to
	// what generated the event. E.g. if a job is requested, the answer goes
	// back to the caller in an EventResponse via this channel.
	RespCh chan *EventResponse
}

// EventMsg defines various event messages for different event types.
// Error events have no associated message, the error information is set in
// the Err attribute.
type EventMsg interface {
	Caller() types.Principal
}

// EventStartMsg contains the arguments for an event of type Start.
type EventStartMsg struct {
	caller types.Principal

	Descriptor *job.Descriptor
	Project    string
}

// Caller returns the authenticated principal behind the API call.
func (e EventStartMsg) Caller() types.Principal { return e.caller }

// EventGetMsg contains the arguments for an event of type Get.
type EventGetMsg struct {
	caller types.Principal
	JobID  types.JobID
}

// Caller returns the authenticated principal behind the API call.
func (e EventGetMsg) Caller() types.Principal { return e.caller }

// EventListMsg contains the arguments for an event of type List.
type EventListMsg struct {
	caller types.Principal
	Query  *ListQuery
}

// Caller returns the authenticated principal behind the API call.
func (e EventListMsg) Caller() types.Principal { return e.caller }

// EventCancelMsg contains the arguments for an event of type Cancel.
type EventCancelMsg struct {
	caller types.Principal
	JobID  types.JobID
}

// Caller returns the authenticated principal behind the API call.
func (e EventCancelMsg) Caller() types.Principal { return e.caller }

// EventFollowMsg contains the arguments for an event of type Follow.
type EventFollowMsg struct {
	caller  types.Principal
	Request follow.StreamsRequest
}

// Caller returns the authenticated principal behind the API call.
func (e EventFollowMsg) Caller() types.Principal { return e.caller }

// EventQueryVNCMsg contains the arguments for an event of type QueryVNC.
type EventQueryVNCMsg struct {
	caller types.Principal
	JobID  types.JobID
}

// Caller returns the authenticated principal behind the API call.
func (e EventQueryVNCMsg) Caller() types.Principal { return e.caller }

// EventQueryWebMsg contains the arguments for an event of type QueryWeb.
type EventQueryWebMsg struct {
	caller types.Principal
	JobID  types.JobID
}

// Caller returns the authenticated principal behind the API call.
func (e EventQueryWebMsg) Caller() types.Principal { return e.caller }

// EventMachineTypesMsg contains the arguments for an event of type
// MachineTypes.
type EventMachineTypesMsg struct {
	caller types.Principal
}

// Caller returns the authenticated principal behind the API call.
func (e EventMachineTypesMsg) Caller() types.Principal { return e.caller }

// EventStateChangeMsg contains the arguments for an event of type
// StateChange. It is sent both by backends proposing lifecycle transitions
// and by users requesting cancellation.
type EventStateChangeMsg struct {
	caller types.Principal

	JobID    types.JobID
	NewState job.State
	Status   string
}

// Caller returns the authenticated principal behind the API call.
func (e EventStateChangeMsg) Caller() types.Principal { return e.caller }

// EventAddStatusMsg contains the arguments for an event of type AddStatus.
type EventAddStatusMsg struct {
	caller types.Principal

	JobID  types.JobID
	Status string
}

// Caller returns the authenticated principal behind the API call.
func (e EventAddStatusMsg) Caller() types.Principal { return e.caller }

// EventCompletedMsg contains the arguments for an event of type Completed.
type EventCompletedMsg struct {
	caller types.Principal

	JobID        types.JobID
	WallDuration time.Duration
	Success      bool
}

// Caller returns the authenticated principal behind the API call.
func (e EventCompletedMsg) Caller() types.Principal { return e.caller }

// EventSubmitFileMsg contains the arguments for an event of type SubmitFile.
type EventSubmitFileMsg struct {
	caller types.Principal

	JobID    types.JobID
	FilePath string
	Length   int64
	Data     io.Reader
}

// Caller returns the authenticated principal behind the API call.
func (e EventSubmitFileMsg) Caller() types.Principal { return e.caller }

// EventLookupMsg contains the arguments for an event of type Lookup.
type EventLookupMsg struct {
	caller types.Principal
	JobID  types.JobID
}

// Caller returns the authenticated principal behind the API call.
func (e EventLookupMsg) Caller() types.Principal { return e.caller }

// EventLookupURLMsg contains the arguments for an event of type LookupURL.
type EventLookupURLMsg struct {
	caller types.Principal
	URLID  string
}

// Caller returns the authenticated principal behind the API call.
func (e EventLookupURLMsg) Caller() types.Principal { return e.caller }

// ListQuery is the set of filters a client can pass when listing jobs. All
// fields are optional.
type ListQuery struct {
	States        []job.State
	Application   string
	Version       string
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Offset        int
	Limit         int
}

// EventResponse is a response to an EventMsg.
type EventResponse struct {
	Caller types.Principal
	JobID  types.JobID
	Err    error

	Job          *job.Job
	Jobs         []*job.Job
	Streams      *follow.StreamsResponse
	VNC          *session.VNC
	Web          *session.Web
	MachineTypes []job.MachineReservation
}
