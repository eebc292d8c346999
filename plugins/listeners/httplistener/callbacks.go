// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package httplistener

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sciencecloud/jobcore/pkg/types"
)

// stateChangeRequest is the body of a backend state-change callback.
type stateChangeRequest struct {
	JobID    types.JobID
	NewState string
	Status   string
}

func (h *apiHandler) stateChange(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireBackend(w, r)
	if !ok {
		return
	}
	var req stateChangeRequest
	if err := decodeBody(r, &req); err != nil {
		h.replyError(w, http.StatusBadRequest, "StateChange failed: %v", err)
		return
	}
	state, err := stateParam(req.NewState)
	if err != nil {
		h.replyError(w, http.StatusBadRequest, "StateChange failed: %v", err)
		return
	}
	resp, err := h.api.RequestStateChange(r.Context(), p, req.JobID, state, req.Status)
	h.replyAPI(w, resp, err)
}

// addStatusRequest is the body of a backend status-update callback.
type addStatusRequest struct {
	JobID  types.JobID
	Status string
}

func (h *apiHandler) addStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireBackend(w, r)
	if !ok {
		return
	}
	var req addStatusRequest
	if err := decodeBody(r, &req); err != nil {
		h.replyError(w, http.StatusBadRequest, "AddStatus failed: %v", err)
		return
	}
	resp, err := h.api.AddStatus(r.Context(), p, req.JobID, req.Status)
	h.replyAPI(w, resp, err)
}

// completedRequest is the body of a backend completion callback.
type completedRequest struct {
	JobID types.JobID

	// WallDurationMs is the consumed wall time in milliseconds.
	WallDurationMs int64

	Success bool
}

func (h *apiHandler) completed(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireBackend(w, r)
	if !ok {
		return
	}
	var req completedRequest
	if err := decodeBody(r, &req); err != nil {
		h.replyError(w, http.StatusBadRequest, "Completed failed: %v", err)
		return
	}
	wall := time.Duration(req.WallDurationMs) * time.Millisecond
	resp, err := h.api.Completed(r.Context(), p, req.JobID, wall, req.Success)
	h.replyAPI(w, resp, err)
}

func (h *apiHandler) submitFile(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireBackend(w, r)
	if !ok {
		return
	}
	filePath := r.URL.Query().Get("path")
	if filePath == "" {
		h.replyError(w, http.StatusBadRequest, "SubmitFile failed: missing path parameter")
		return
	}
	resp, err := h.api.SubmitFile(r.Context(), p, jobParam(r), filePath, r.ContentLength, r.Body)
	h.replyAPI(w, resp, err)
}

func (h *apiHandler) lookup(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireBackend(w, r)
	if !ok {
		return
	}
	resp, err := h.api.Lookup(r.Context(), p, jobParam(r))
	h.replyAPI(w, resp, err)
}

func (h *apiHandler) lookupURL(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireBackend(w, r)
	if !ok {
		return
	}
	resp, err := h.api.LookupURL(r.Context(), p, chi.URLParam(r, "urlID"))
	h.replyAPI(w, resp, err)
}
