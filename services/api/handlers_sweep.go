package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// handleSweep is the manual trigger for the expiry sweep, guarded by the
// operator token so it cannot be fired by field publishers.
func (a *API) handleSweep(w http.ResponseWriter, r *http.Request) {
	if a.config.OperatorToken == "" {
		respondError(w, http.StatusForbidden, errors.New("sweep trigger is disabled"))
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.config.OperatorToken)) != 1 {
		respondError(w, http.StatusUnauthorized, errors.New("invalid operator token"))
		return
	}

	ended, err := a.core.Sweep(r.Context())
	if err != nil {
		respondSessionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"ended": ended})
}
