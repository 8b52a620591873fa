package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"territoryd/pkg/db"
)

// Routes constructs the chi router containing all API endpoints.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	allowed := a.config.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))
	r.Use(httprate.Limit(100, time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if a.store.DB != nil {
			if err := db.Ping(req.Context(), a.store.DB); err != nil {
				respondError(w, http.StatusServiceUnavailable, err)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", a.handleCreateSession)
		r.Get("/sessions/{id}", a.handleGetSession)
		r.Post("/sessions/{id}/end", a.handleEndSession)
		r.Post("/sessions/{id}/map", a.handleAssignMap)
		r.Get("/sessions/{id}/events", a.handleSessionEvents)

		r.Post("/join", a.handleJoin)

		r.Post("/sessions/{id}/addresses", a.handleCreateAddress)
		r.Get("/sessions/{id}/addresses", a.handleListAddresses)
		r.Get("/addresses/{id}", a.handleGetAddress)
		r.Put("/addresses/{id}", a.handleUpdateAddress)
		r.Delete("/addresses/{id}", a.handleDeleteAddress)

		r.Post("/congregations", a.handleRegisterCongregation)
		r.Get("/congregations", a.handleListCongregations)
		r.Post("/congregations/{id}/approve", a.handleApproveCongregation)
		r.Get("/congregations/{id}/sessions", a.handleListJoinable)
		r.Get("/congregations/{id}/maps", a.handleListTerritoryMaps)

		r.Post("/sweep", a.handleSweep)
	})

	return r, nil
}
