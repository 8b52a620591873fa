package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"territoryd/pkg/db"
	"territoryd/services/session"
)

const addressColumns = "id, session_id, block_number, address, latitude, longitude, created_by, created_at, updated_at"

func (a *API) handleCreateAddress(w http.ResponseWriter, r *http.Request) {
	if a.store.DB == nil {
		respondError(w, http.StatusFailedDependency, errors.New("database not configured"))
		return
	}

	sessionID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid session id is required"))
		return
	}

	var req struct {
		BlockNumber string    `json:"block_number"`
		Address     string    `json:"address"`
		Latitude    *float64  `json:"latitude"`
		Longitude   *float64  `json:"longitude"`
		CreatedBy   uuid.UUID `json:"created_by"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.Address = strings.TrimSpace(req.Address)
	if req.Address == "" {
		respondError(w, http.StatusBadRequest, errors.New("address is required"))
		return
	}
	if req.CreatedBy == uuid.Nil {
		respondError(w, http.StatusBadRequest, errors.New("created_by is required"))
		return
	}

	now := time.Now().UTC()

	// The joinable check runs inside the insert so a session ended or expired
	// between the client's last event and this request cannot slip a write in.
	query := fmt.Sprintf(`
        INSERT INTO addresses (id, session_id, block_number, address, latitude, longitude, created_by, created_at, updated_at)
        SELECT $1, $2, $3, $4, $5, $6, $7, $8, $8
        WHERE EXISTS (
            SELECT 1 FROM sessions WHERE id = $2 AND is_active AND expires_at > $8
        )
        RETURNING %s;
    `, addressColumns)

	var addr Address
	err = db.Get(r.Context(), a.store.DB, &addr, query,
		uuid.New(), sessionID, strings.TrimSpace(req.BlockNumber), req.Address,
		req.Latitude, req.Longitude, req.CreatedBy, now)
	if err != nil {
		if db.IsNoRows(err) {
			a.respondAddressGate(w, r, sessionID)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"address": addr})
}

// respondAddressGate explains why an address write was rejected: the session
// is gone, ended, or expired.
func (a *API) respondAddressGate(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	s, err := a.core.Get(r.Context(), sessionID)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	if !s.IsActive {
		respondSessionError(w, session.ErrSessionEnded)
		return
	}
	respondSessionError(w, session.ErrSessionExpired)
}

func (a *API) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	if a.store.DB == nil {
		respondError(w, http.StatusFailedDependency, errors.New("database not configured"))
		return
	}

	sessionID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid session id is required"))
		return
	}

	query := fmt.Sprintf(`
        SELECT %s FROM addresses
        WHERE session_id = $1
        ORDER BY created_at
    `, addressColumns)

	addrs := []Address{}
	if err := db.Select(r.Context(), a.store.DB, &addrs, query, sessionID); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"addresses": addrs})
}

func (a *API) handleGetAddress(w http.ResponseWriter, r *http.Request) {
	if a.store.DB == nil {
		respondError(w, http.StatusFailedDependency, errors.New("database not configured"))
		return
	}

	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid address id is required"))
		return
	}

	query := fmt.Sprintf(`SELECT %s FROM addresses WHERE id = $1`, addressColumns)

	var addr Address
	if err := db.Get(r.Context(), a.store.DB, &addr, query, id); err != nil {
		if db.IsNoRows(err) {
			respondError(w, http.StatusNotFound, fmt.Errorf("address %s not found", id))
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"address": addr})
}

func (a *API) handleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	if a.store.DB == nil {
		respondError(w, http.StatusFailedDependency, errors.New("database not configured"))
		return
	}

	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid address id is required"))
		return
	}

	var req struct {
		BlockNumber string   `json:"block_number"`
		Address     string   `json:"address"`
		Latitude    *float64 `json:"latitude"`
		Longitude   *float64 `json:"longitude"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.Address = strings.TrimSpace(req.Address)
	if req.Address == "" {
		respondError(w, http.StatusBadRequest, errors.New("address is required"))
		return
	}

	query := fmt.Sprintf(`
        UPDATE addresses
        SET block_number = $2, address = $3, latitude = $4, longitude = $5, updated_at = $6
        WHERE id = $1
        RETURNING %s;
    `, addressColumns)

	var addr Address
	err = db.Get(r.Context(), a.store.DB, &addr, query,
		id, strings.TrimSpace(req.BlockNumber), req.Address, req.Latitude, req.Longitude, time.Now().UTC())
	if err != nil {
		if db.IsNoRows(err) {
			respondError(w, http.StatusNotFound, fmt.Errorf("address %s not found", id))
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"address": addr})
}

func (a *API) handleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	if a.store.DB == nil {
		respondError(w, http.StatusFailedDependency, errors.New("database not configured"))
		return
	}

	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid address id is required"))
		return
	}

	tag, err := db.Exec(r.Context(), a.store.DB, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if tag.RowsAffected() == 0 {
		respondError(w, http.StatusNotFound, fmt.Errorf("address %s not found", id))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
