package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"territoryd/services/session"
)

func (a *API) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code   string    `json:"code"`
		UserID uuid.UUID `json:"user_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, errors.New("code is required"))
		return
	}
	if req.UserID == uuid.Nil {
		respondError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}

	result, err := a.resolver.ResolveAndJoin(r.Context(), req.Code, req.UserID)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"session":              result.Session,
		"participant_recorded": result.ParticipantRecorded,
	})
}

func (a *API) handleListJoinable(w http.ResponseWriter, r *http.Request) {
	congregationID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid congregation id is required"))
		return
	}

	sessions, err := a.resolver.ListJoinable(r.Context(), congregationID)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	if sessions == nil {
		sessions = []session.Session{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}
