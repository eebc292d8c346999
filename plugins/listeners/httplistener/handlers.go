// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package httplistener

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sciencecloud/jobcore/pkg/api"
	"github.com/sciencecloud/jobcore/pkg/follow"
	"github.com/sciencecloud/jobcore/pkg/job"
)

// startRequest is the body of a job submission.
type startRequest struct {
	Descriptor job.Descriptor
	Project    string
}

func (h *apiHandler) start(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		h.replyError(w, http.StatusBadRequest, "Start failed: %v", err)
		return
	}
	resp, err := h.api.Start(r.Context(), p, &req.Descriptor, req.Project)
	h.replyAPI(w, resp, err)
}

func (h *apiHandler) get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := h.api.Get(r.Context(), p, jobParam(r))
	h.replyAPI(w, resp, err)
}

func (h *apiHandler) list(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	query, err := listQueryFromURL(r)
	if err != nil {
		h.replyError(w, http.StatusBadRequest, "List failed: %v", err)
		return
	}
	resp, err := h.api.List(r.Context(), p, query)
	h.replyAPI(w, resp, err)
}

func listQueryFromURL(r *http.Request) (*api.ListQuery, error) {
	query := &api.ListQuery{}
	q := r.URL.Query()
	if statesStr := q.Get("states"); statesStr != "" {
		for _, raw := range strings.Split(statesStr, ",") {
			state, err := stateParam(raw)
			if err != nil {
				return nil, err
			}
			query.States = append(query.States, state)
		}
	}
	query.Application = q.Get("application")
	query.Version = q.Get("version")
	if v := q.Get("created_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		query.CreatedAfter = t
	}
	if v := q.Get("created_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		query.CreatedBefore = t
	}
	var err error
	if query.Offset, err = intParam(q.Get("offset")); err != nil {
		return nil, err
	}
	if query.Limit, err = intParam(q.Get("limit")); err != nil {
		return nil, err
	}
	return query, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (h *apiHandler) cancel(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := h.api.Cancel(r.Context(), p, jobParam(r))
	h.replyAPI(w, resp, err)
}

func (h *apiHandler) followPoll(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	req := follow.StreamsRequest{JobID: jobParam(r)}
	var err error
	if req.StdoutOffset, err = intParam(q.Get("stdout_offset")); err != nil {
		h.replyError(w, http.StatusBadRequest, "Follow failed: %v", err)
		return
	}
	if req.StderrOffset, err = intParam(q.Get("stderr_offset")); err != nil {
		h.replyError(w, http.StatusBadRequest, "Follow failed: %v", err)
		return
	}
	if req.StdoutMaxLines, err = intParam(q.Get("stdout_max_lines")); err != nil {
		h.replyError(w, http.StatusBadRequest, "Follow failed: %v", err)
		return
	}
	if req.StderrMaxLines, err = intParam(q.Get("stderr_max_lines")); err != nil {
		h.replyError(w, http.StatusBadRequest, "Follow failed: %v", err)
		return
	}
	resp, err := h.api.Follow(r.Context(), p, req)
	h.replyAPI(w, resp, err)
}

func (h *apiHandler) queryVNC(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := h.api.QueryVNC(r.Context(), p, jobParam(r))
	h.replyAPI(w, resp, err)
}

func (h *apiHandler) queryWeb(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := h.api.QueryWeb(r.Context(), p, jobParam(r))
	h.replyAPI(w, resp, err)
}

func (h *apiHandler) machineTypes(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := h.api.MachineTypes(r.Context(), p)
	h.replyAPI(w, resp, err)
}
