package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (a *API) handleRegisterCongregation(w http.ResponseWriter, r *http.Request) {
	if a.store.ORM == nil {
		respondError(w, http.StatusFailedDependency, errors.New("database not configured"))
		return
	}

	var req struct {
		Name         string         `json:"name"`
		ContactEmail string         `json:"contact_email"`
		Settings     map[string]any `json:"settings"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	if req.Name == "" || req.ContactEmail == "" {
		respondError(w, http.StatusBadRequest, errors.New("name and contact_email are required"))
		return
	}

	c := Congregation{
		ID:           uuid.New(),
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		Status:       congregationStatusPending,
		Settings:     req.Settings,
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.store.ORM.WithContext(ctx).Create(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondError(w, http.StatusConflict, fmt.Errorf("congregation %q already registered", req.Name))
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"congregation": c})
}

func (a *API) handleApproveCongregation(w http.ResponseWriter, r *http.Request) {
	if a.store.ORM == nil {
		respondError(w, http.StatusFailedDependency, errors.New("database not configured"))
		return
	}

	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid congregation id is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	now := time.Now().UTC()
	result := a.store.ORM.WithContext(ctx).Model(&Congregation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      congregationStatusApproved,
			"approved_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		respondError(w, http.StatusInternalServerError, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		respondError(w, http.StatusNotFound, fmt.Errorf("congregation %s not found", id))
		return
	}

	var c Congregation
	if err := a.store.ORM.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"congregation": c})
}

func (a *API) handleListCongregations(w http.ResponseWriter, r *http.Request) {
	if a.store.ORM == nil {
		respondError(w, http.StatusFailedDependency, errors.New("database not configured"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	q := a.store.ORM.WithContext(ctx).Order("created_at DESC")
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		q = q.Where("status = ?", status)
	}

	congregations := []Congregation{}
	if err := q.Find(&congregations).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"congregations": congregations})
}

func (a *API) handleListTerritoryMaps(w http.ResponseWriter, r *http.Request) {
	if a.store.ORM == nil {
		respondError(w, http.StatusFailedDependency, errors.New("database not configured"))
		return
	}

	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid congregation id is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	maps := []TerritoryMap{}
	err = a.store.ORM.WithContext(ctx).
		Where("congregation_id = ?", id).
		Order("map_number").
		Find(&maps).Error
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"maps": maps})
}
