// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package api

import (
	"github.com/sciencecloud/jobcore/pkg/follow"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/session"
	"github.com/sciencecloud/jobcore/pkg/types"
)

// ResponseType defines the type of a response.
type ResponseType int32

// The various response types used in the Response struct.
const (
	ResponseTypeStart ResponseType = iota
	ResponseTypeGet
	ResponseTypeList
	ResponseTypeCancel
	ResponseTypeFollow
	ResponseTypeQueryVNC
	ResponseTypeQueryWeb
	ResponseTypeMachineTypes
	ResponseTypeStateChange
	ResponseTypeAddStatus
	ResponseTypeCompleted
	ResponseTypeSubmitFile
	ResponseTypeLookup
	ResponseTypeVersion
)

// ResponseTypeToName maps response types to their names.
var ResponseTypeToName = map[ResponseType]string{
	ResponseTypeStart:        "ResponseTypeStart",
	ResponseTypeGet:          "ResponseTypeGet",
	ResponseTypeList:         "ResponseTypeList",
	ResponseTypeCancel:       "ResponseTypeCancel",
	ResponseTypeFollow:       "ResponseTypeFollow",
	ResponseTypeQueryVNC:     "ResponseTypeQueryVNC",
	ResponseTypeQueryWeb:     "ResponseTypeQueryWeb",
	ResponseTypeMachineTypes: "ResponseTypeMachineTypes",
	ResponseTypeStateChange:  "ResponseTypeStateChange",
	ResponseTypeAddStatus:    "ResponseTypeAddStatus",
	ResponseTypeCompleted:    "ResponseTypeCompleted",
	ResponseTypeSubmitFile:   "ResponseTypeSubmitFile",
	ResponseTypeLookup:       "ResponseTypeLookup",
	ResponseTypeVersion:      "ResponseTypeVersion",
}

// Response is the type returned to any API request.
type Response struct {
	ServerID string
	Type     ResponseType
	Data     ResponseData
	Err      error
}

// ResponseData is the interface type implemented by the various response
// types.
type ResponseData interface {
	Type() ResponseType
}

// ResponseDataStart is the response type for a Start request.
type ResponseDataStart struct {
	JobID types.JobID
}

// Type returns the response type.
func (r ResponseDataStart) Type() ResponseType { return ResponseTypeStart }

// ResponseDataGet is the response type for a Get request.
type ResponseDataGet struct {
	Job *job.Job
}

// Type returns the response type.
func (r ResponseDataGet) Type() ResponseType { return ResponseTypeGet }

// ResponseDataList is the response type for a List request.
type ResponseDataList struct {
	Jobs []*job.Job
}

// Type returns the response type.
func (r ResponseDataList) Type() ResponseType { return ResponseTypeList }

// ResponseDataCancel is the response type for a Cancel request.
type ResponseDataCancel struct {
}

// Type returns the response type.
func (r ResponseDataCancel) Type() ResponseType { return ResponseTypeCancel }

// ResponseDataFollow is the response type for a Follow request.
type ResponseDataFollow struct {
	Streams *follow.StreamsResponse
}

// Type returns the response type.
func (r ResponseDataFollow) Type() ResponseType { return ResponseTypeFollow }

// ResponseDataQueryVNC is the response type for a QueryVNC request.
type ResponseDataQueryVNC struct {
	VNC *session.VNC
}

// Type returns the response type.
func (r ResponseDataQueryVNC) Type() ResponseType { return ResponseTypeQueryVNC }

// ResponseDataQueryWeb is the response type for a QueryWeb request.
type ResponseDataQueryWeb struct {
	Web *session.Web
}

// Type returns the response type.
func (r ResponseDataQueryWeb) Type() ResponseType { return ResponseTypeQueryWeb }

// ResponseDataMachineTypes is the response type for a MachineTypes request.
type ResponseDataMachineTypes struct {
	MachineTypes []job.MachineReservation
}

// Type returns the response type.
func (r ResponseDataMachineTypes) Type() ResponseType { return ResponseTypeMachineTypes }

// ResponseDataStateChange is the response type for a StateChange request.
type ResponseDataStateChange struct {
}

// Type returns the response type.
func (r ResponseDataStateChange) Type() ResponseType { return ResponseTypeStateChange }

// ResponseDataAddStatus is the response type for an AddStatus request.
type ResponseDataAddStatus struct {
}

// Type returns the response type.
func (r ResponseDataAddStatus) Type() ResponseType { return ResponseTypeAddStatus }

// ResponseDataCompleted is the response type for a Completed request.
type ResponseDataCompleted struct {
}

// Type returns the response type.
func (r ResponseDataCompleted) Type() ResponseType { return ResponseTypeCompleted }

// ResponseDataSubmitFile is the response type for a SubmitFile request.
type ResponseDataSubmitFile struct {
}

// Type returns the response type.
func (r ResponseDataSubmitFile) Type() ResponseType { return ResponseTypeSubmitFile }

// ResponseDataLookup is the response type for Lookup and LookupURL requests.
type ResponseDataLookup struct {
	Job *job.Job
}

// Type returns the response type.
func (r ResponseDataLookup) Type() ResponseType { return ResponseTypeLookup }

// ResponseDataVersion is the response type for a Version request.
type ResponseDataVersion struct {
	Version uint32
}

// Type returns the response type.
func (r ResponseDataVersion) Type() ResponseType { return ResponseTypeVersion }
