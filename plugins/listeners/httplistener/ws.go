// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package httplistener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/sciencecloud/jobcore/pkg/follow"
)

const (
	// wsSendBuffer bounds how many follow responses may queue for one
	// subscriber.
	wsSendBuffer = 64

	wsWriteTimeout = 5 * time.Second
)

var errSlowSubscriber = errors.New("subscriber cannot keep up with the log stream")

// wsSink adapts a websocket connection into a follow.Sink. Responses are
// queued on a bounded channel and written by a dedicated goroutine, so a
// stalled subscriber slows down only itself. A subscriber whose queue is
// full is disconnected right away: a response must never be dropped after a
// successful Send return, since the stream advances its offsets past it.
type wsSink struct {
	conn *websocket.Conn

	send chan []byte

	writerDone chan struct{}
	writerErr  error
}

func newWSSink(conn *websocket.Conn) *wsSink {
	s := &wsSink{
		conn:       conn,
		send:       make(chan []byte, wsSendBuffer),
		writerDone: make(chan struct{}),
	}
	return s
}

// run writes queued responses until the queue is closed or the connection
// dies. Run it in its own goroutine.
func (s *wsSink) run(ctx context.Context) {
	defer close(s.writerDone)
	for payload := range s.send {
		writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
		err := s.conn.Write(writeCtx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			s.writerErr = err
			return
		}
	}
}

// Send implements follow.Sink.
func (s *wsSink) Send(ctx context.Context, resp *follow.StreamsResponse) error {
	select {
	case <-s.writerDone:
		if s.writerErr != nil {
			return s.writerErr
		}
		return errors.New("subscriber connection closed")
	default:
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("cannot marshal follow response: %w", err)
	}
	select {
	case s.send <- payload:
		return nil
	default:
		log.Debugf("follow subscriber queue full (%d responses pending), disconnecting", wsSendBuffer)
		return errSlowSubscriber
	}
}

// close stops the writer and waits for it to drain.
func (s *wsSink) close() {
	close(s.send)
	<-s.writerDone
}

// followWS upgrades the request to a websocket and pushes the job's output
// to the client until the job completes or the client goes away.
func (h *apiHandler) followWS(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id := jobParam(r)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Debugf("websocket accept failed: %v", err)
		return
	}

	sink := newWSSink(conn)
	go sink.run(r.Context())

	err = h.followSvc.Stream(r.Context(), p, id, sink)
	sink.close()
	if err != nil {
		log.Debugf("Job %s: follow stream ended: %v", id, err)
		conn.Close(websocket.StatusInternalError, statusReason(err))
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// statusReason trims an error into a websocket close reason, which is
// limited to 125 bytes.
func statusReason(err error) string {
	reason := err.Error()
	if len(reason) > 120 {
		reason = reason[:120]
	}
	return reason
}
