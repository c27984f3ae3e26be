package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/matgreaves/console/spec"
)

// handleSSE handles GET /v1/deployments/{id}/events/stream.
//
// On connect it replays the deployment's events from the start (or from
// Last-Event-ID on reconnection), then follows new ones. The stream ends
// after the first event carrying a settled status, when the client goes
// away or when the server is closed.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	d, _, ok := s.getDeployment(tok, r.PathValue("id"))
	if !ok {
		writeFailure(w, notFound("deployment"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var fromSeq uint64
	if lastID := r.Header.Get("Last-Event-ID"); lastID != "" {
		if seq, err := strconv.ParseUint(lastID, 10, 64); err == nil {
			fromSeq = seq
		}
	}

	defer s.idle.hold()()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range d.events.Subscribe(ctx, fromSeq) {
		if err := writeSSEEvent(w, flusher, event); err != nil {
			return
		}
		if event.Status != "" && !upcoming(event.Status) {
			return
		}
	}
}

// writeSSEEvent formats and flushes a single SSE frame:
//
//	id: <seq>
//	event: <type>
//	data: <json>
//	(blank line)
func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event spec.DeploymentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n",
		event.Seq, event.Type, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
