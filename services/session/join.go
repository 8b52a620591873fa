package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ResolverConfig carries the dependencies for a Resolver.
type ResolverConfig struct {
	Store  Store
	Clock  Clock
	Logger zerolog.Logger
}

// Resolver turns a typed-in join code into session membership.
type Resolver struct {
	store  Store
	clock  Clock
	logger zerolog.Logger
}

// NewResolver validates the config and applies defaults.
func NewResolver(cfg *ResolverConfig) (*Resolver, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}

	r := &Resolver{store: cfg.Store, clock: cfg.Clock, logger: cfg.Logger}
	if r.clock == nil {
		r.clock = SystemClock{}
	}
	return r, nil
}

// JoinResult is what a successful join returns: enough of the session to
// render the session view, plus whether the participant row actually landed.
type JoinResult struct {
	Session             Session `json:"session"`
	ParticipantRecorded bool    `json:"participant_recorded"`
}

// ResolveAndJoin locates the session for a code and registers the user.
//
// Validation is ordered fail-fast: an unknown code is ErrInvalidCode, a found
// but deactivated session is ErrSessionEnded, and a still-active session past
// expiry is ErrSessionExpired. The participant insert is best-effort
// bookkeeping: its failure is logged and reported in the result but never
// blocks the user from proceeding into the session.
func (r *Resolver) ResolveAndJoin(ctx context.Context, code string, userID uuid.UUID) (JoinResult, error) {
	if code == "" {
		metricJoins.WithLabelValues("invalid_code").Inc()
		return JoinResult{}, ErrInvalidCode
	}
	if userID == uuid.Nil {
		return JoinResult{}, errors.New("user id is required")
	}

	s, err := r.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metricJoins.WithLabelValues("invalid_code").Inc()
			return JoinResult{}, ErrInvalidCode
		}
		return JoinResult{}, err
	}

	now := r.clock.Now()
	if !s.IsActive {
		metricJoins.WithLabelValues("ended").Inc()
		return JoinResult{}, ErrSessionEnded
	}
	if !now.Before(s.ExpiresAt) {
		metricJoins.WithLabelValues("expired").Inc()
		return JoinResult{}, ErrSessionExpired
	}

	result := JoinResult{Session: s, ParticipantRecorded: true}

	p := Participant{SessionID: s.ID, UserID: userID, JoinedAt: now}
	if err := r.store.UpsertParticipant(ctx, p); err != nil {
		metricParticipantRecordFailures.Inc()
		r.logger.Warn().Err(err).
			Str("session_id", s.ID.String()).
			Str("user_id", userID.String()).
			Msg("participant record failed; continuing join")
		result.ParticipantRecorded = false
	}

	metricJoins.WithLabelValues("ok").Inc()
	return result, nil
}

// ListJoinable returns the congregation's currently open sessions, newest
// first. A finite snapshot: freshness comes from re-querying, not the live
// channel.
func (r *Resolver) ListJoinable(ctx context.Context, congregationID uuid.UUID) ([]Session, error) {
	if congregationID == uuid.Nil {
		return nil, errors.New("congregation id is required")
	}
	return r.store.ListJoinable(ctx, congregationID, r.clock.Now())
}
