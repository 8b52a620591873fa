package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (a *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CongregationID uuid.UUID `json:"congregation_id"`
		CreatedBy      uuid.UUID `json:"created_by"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.CongregationID == uuid.Nil {
		respondError(w, http.StatusBadRequest, errors.New("congregation_id is required"))
		return
	}
	if req.CreatedBy == uuid.Nil {
		respondError(w, http.StatusBadRequest, errors.New("created_by is required"))
		return
	}

	created, err := a.core.CreateSession(r.Context(), req.CongregationID, req.CreatedBy)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"session": created})
}

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
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

	respondJSON(w, http.StatusOK, map[string]any{"session": s})
}

func (a *API) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid session id is required"))
		return
	}

	ended, err := a.core.EndSession(r.Context(), id)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"session": ended})
}

func (a *API) handleAssignMap(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid session id is required"))
		return
	}

	var req struct {
		MapNumber int `json:"map_number"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.MapNumber <= 0 {
		respondError(w, http.StatusBadRequest, errors.New("map_number must be positive"))
		return
	}

	updated, err := a.core.AssignMap(r.Context(), id, req.MapNumber)
	if err != nil {
		respondSessionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"session": updated})
}
