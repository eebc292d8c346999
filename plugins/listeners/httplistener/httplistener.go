// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package httplistener implements the api.Listener interface over HTTP with
// JSON bodies. It also exposes a websocket endpoint for pushed log
// following and a Prometheus metrics endpoint.
package httplistener

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sciencecloud/jobcore/pkg/api"
	"github.com/sciencecloud/jobcore/pkg/follow"
	"github.com/sciencecloud/jobcore/pkg/job"
	"github.com/sciencecloud/jobcore/pkg/logging"
	"github.com/sciencecloud/jobcore/pkg/types"
)

var log = logging.GetLogger("plugins/listeners/httplistener")

// Authentication of the service sits in front of this listener (gateway or
// sidecar); these headers carry the already-authenticated principal.
const (
	HeaderUser    = "X-Jobcore-User"
	HeaderBackend = "X-Jobcore-Backend"
)

// HTTPListener implements the api.Listener interface.
type HTTPListener struct {
	addr string

	// followSvc serves the pushed (websocket) follow path. The poll-based
	// follow goes through the API event loop like every other call.
	followSvc *follow.Service
}

// New returns an HTTPListener bound to the given address.
func New(addr string, followSvc *follow.Service) *HTTPListener {
	return &HTTPListener{addr: addr, followSvc: followSvc}
}

// HTTPAPIResponse is returned when an API method succeeds. It wraps the
// content of an api.Response and reworks some of its fields.
type HTTPAPIResponse struct {
	ServerID string
	// the original type is ResponseType. Here we want the mnemonic string
	// to return in the HTTP API response.
	Type  string
	Data  interface{}
	Error *string
}

// NewHTTPAPIResponse returns an HTTPAPIResponse from an api.Response object.
// In case of errors, some fields are set accordingly.
func NewHTTPAPIResponse(r *api.Response) *HTTPAPIResponse {
	rtype, ok := api.ResponseTypeToName[r.Type]
	if !ok {
		rtype = fmt.Sprintf("unknown (%d)", r.Type)
	}
	var errStr *string
	if r.Err != nil {
		e := r.Err.Error()
		errStr = &e
	}
	return &HTTPAPIResponse{
		ServerID: r.ServerID,
		Type:     rtype,
		Data:     r.Data,
		Error:    errStr,
	}
}

// HTTPAPIError is returned when an API method fails. It wraps the error
// message.
type HTTPAPIError struct {
	Msg string
}

type apiHandler struct {
	api       *api.API
	followSvc *follow.Service
}

// caller extracts the already-authenticated principal from the request
// headers. A request declaring both a user and a backend identity is
// rejected by requireUser/requireBackend downstream.
func caller(r *http.Request) types.Principal {
	if backendName := r.Header.Get(HeaderBackend); backendName != "" {
		return types.BackendPrincipal(backendName)
	}
	return types.UserPrincipal(r.Header.Get(HeaderUser))
}

func (h *apiHandler) reply(w http.ResponseWriter, status int, body interface{}) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(body); err != nil {
		log.Errorf("cannot marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buffer.Bytes()); err != nil {
		log.Debugf("Cannot write to client socket: %v", err)
	}
}

func (h *apiHandler) replyError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	h.reply(w, status, HTTPAPIError{Msg: fmt.Sprintf(format, args...)})
}

// replyAPI renders an api.Response, deriving the HTTP status from the error
// carried inside it.
func (h *apiHandler) replyAPI(w http.ResponseWriter, resp api.Response, err error) {
	if err != nil {
		h.replyError(w, http.StatusInternalServerError, "%v", err)
		return
	}
	h.reply(w, statusFromError(resp.Err), NewHTTPAPIResponse(&resp))
}

func (h *apiHandler) requireUser(w http.ResponseWriter, r *http.Request) (types.Principal, bool) {
	p := caller(r)
	if p.IsBackend() || p.Username == "" {
		h.replyError(w, http.StatusUnauthorized, "a user identity is required")
		return types.Principal{}, false
	}
	return p, true
}

func (h *apiHandler) requireBackend(w http.ResponseWriter, r *http.Request) (types.Principal, bool) {
	p := caller(r)
	if !p.IsBackend() {
		h.replyError(w, http.StatusUnauthorized, "a backend identity is required")
		return types.Principal{}, false
	}
	return p, true
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}

func (h *apiHandler) version(w http.ResponseWriter, r *http.Request) {
	resp := h.api.Version()
	h.reply(w, http.StatusOK, NewHTTPAPIResponse(&resp))
}

func (h *HTTPListener) router(a *api.API) chi.Router {
	h2 := &apiHandler{api: a, followSvc: h.followSvc}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/version", h2.version)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h2.start)
		r.Get("/", h2.list)
		r.Get("/machine-types", h2.machineTypes)
		r.Route("/{jobID}", func(r chi.Router) {
			r.Get("/", h2.get)
			r.Delete("/", h2.cancel)
			r.Get("/follow", h2.followPoll)
			r.Get("/follow/ws", h2.followWS)
			r.Get("/vnc", h2.queryVNC)
			r.Get("/web", h2.queryWeb)
		})
	})

	r.Route("/callbacks", func(r chi.Router) {
		r.Post("/state", h2.stateChange)
		r.Post("/status", h2.addStatus)
		r.Post("/completed", h2.completed)
		r.Post("/jobs/{jobID}/files", h2.submitFile)
		r.Get("/jobs/{jobID}", h2.lookup)
		r.Get("/url/{urlID}", h2.lookupURL)
	})

	return r
}

func listenWithCancellation(ctx context.Context, s *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()
	log.Infof("Started HTTP API listener on %s", s.Addr)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Debugf("Received server shut down request")
		return s.Close()
	}
}

// Serve implements the api.Listener.Serve interface method. It starts the
// HTTP API listener and blocks until the context is cancelled or the
// listener dies.
func (h *HTTPListener) Serve(ctx context.Context, a *api.API) error {
	if a == nil {
		return errors.New("API object is nil")
	}
	s := http.Server{
		Addr:    h.addr,
		Handler: h.router(a),
		// Follow websockets are long-lived; only bound the header read.
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := listenWithCancellation(ctx, &s); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP listener failed: %v", err)
	}
	return nil
}

// jobParam extracts the job id path parameter.
func jobParam(r *http.Request) types.JobID {
	return types.JobID(chi.URLParam(r, "jobID"))
}

// stateParam validates a client-provided state name.
func stateParam(raw string) (job.State, error) {
	s := job.State(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown state %q", raw)
	}
	return s, nil
}
