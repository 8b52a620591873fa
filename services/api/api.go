package api

import (
	"errors"

	"github.com/rs/zerolog"

	"territoryd/services/session"
)

// Config controls runtime behaviour for the API handlers.
type Config struct {
	// OperatorToken guards the manual sweep trigger. The endpoint is
	// disabled when empty.
	OperatorToken string

	AllowedOrigins []string
}

// API wires the session coordination core, storage handles, and configuration
// for the HTTP handlers.
type API struct {
	store    *Store
	core     *session.Manager
	resolver *session.Resolver
	live     *session.Channel
	config   Config
	logger   zerolog.Logger
}

// New initialises the API layer. The live channel is optional; without it the
// SSE endpoint reports a missing dependency instead of streaming.
func New(store *Store, core *session.Manager, resolver *session.Resolver, live *session.Channel, cfg Config, logger zerolog.Logger) (*API, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if core == nil {
		return nil, errors.New("session manager is required")
	}
	if resolver == nil {
		return nil, errors.New("join resolver is required")
	}

	return &API{
		store:    store,
		core:     core,
		resolver: resolver,
		live:     live,
		config:   cfg,
		logger:   logger,
	}, nil
}
