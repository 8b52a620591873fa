package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"territoryd/services/session"
)

const sseHeartbeat = 30 * time.Second

// handleSessionEvents streams the session's live update channel over SSE.
// The first frame is a snapshot of current row state so a reconnecting client
// reconciles immediately; after that, frames arrive as mutations happen.
// Delivery is best-effort: a client too slow to drain its buffer loses frames
// rather than stalling the channel.
func (a *API) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	if a.live == nil {
		respondError(w, http.StatusFailedDependency, errors.New("live update channel not configured"))
		return
	}

	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid session id is required"))
		return
	}

	s, err := a.core.Get(r.Context(), id)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	events := make(chan session.Event, 16)
	unsubscribe, err := a.live.Subscribe(id, func(evt session.Event) {
		select {
		case events <- evt:
		default:
		}
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	snapshot := session.Event{
		Kind:      session.EventUpdated,
		SessionID: s.ID,
		Code:      s.Code,
		IsActive:  s.IsActive,
		MapNumber: s.MapNumber,
		ExpiresAt: s.ExpiresAt,
	}
	if !s.IsActive {
		snapshot.Kind = session.EventEnded
	}
	a.writeSSE(w, snapshot)
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case evt := <-events:
			a.writeSSE(w, evt)
			flusher.Flush()
		}
	}
}

func (a *API) writeSSE(w http.ResponseWriter, evt session.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		a.logger.Warn().Err(err).Msg("encode sse event")
		return
	}
	_, _ = fmt.Fprintf(w, "event: session\ndata: %s\n\n", data)
}
