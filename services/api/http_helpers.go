package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"territoryd/services/session"
)

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

// respondSessionError maps the session error set onto HTTP statuses, keeping
// the distinct join rejection reasons visible to clients for messaging.
func respondSessionError(w http.ResponseWriter, err error) {
	reason := ""
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, session.ErrInvalidCode):
		status, reason = http.StatusNotFound, "invalid_code"
	case errors.Is(err, session.ErrNotFound):
		status, reason = http.StatusNotFound, "not_found"
	case errors.Is(err, session.ErrSessionEnded):
		status, reason = http.StatusGone, "session_ended"
	case errors.Is(err, session.ErrSessionExpired):
		status, reason = http.StatusGone, "session_expired"
	case errors.Is(err, session.ErrCodeSpaceExhausted):
		status, reason = http.StatusServiceUnavailable, "code_space_exhausted"
	case errors.Is(err, session.ErrStorageUnavailable):
		status, reason = http.StatusServiceUnavailable, "storage_unavailable"
	}

	payload := map[string]any{"error": err.Error()}
	if reason != "" {
		payload["reason"] = reason
	}
	respondJSON(w, status, payload)
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}
