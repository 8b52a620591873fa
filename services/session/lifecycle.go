package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultLifetime bounds a session to one day of field activity.
	DefaultLifetime = 24 * time.Hour

	// DefaultCodeAttempts bounds collision retries during code generation.
	// Exhausting it means the code space is too small for current load.
	DefaultCodeAttempts = 5

	// sweepRowTimeout caps each per-row end during a sweep so one stuck row
	// cannot stall the cycle.
	sweepRowTimeout = 5 * time.Second
)

// ManagerConfig carries the dependencies and tunables for a Manager.
type ManagerConfig struct {
	Store Store

	// Bus receives change events after successful mutations. Optional; a nil
	// bus disables publishing (used by the one-shot sweep command).
	Bus EventBus

	// Clock defaults to the system clock.
	Clock Clock

	// Codes defaults to RandomCodeGenerator.
	Codes CodeGenerator

	// Lifetime defaults to DefaultLifetime.
	Lifetime time.Duration

	// CodeLength defaults to DefaultCodeLength.
	CodeLength int

	// CodeAttempts defaults to DefaultCodeAttempts.
	CodeAttempts int

	Logger zerolog.Logger
}

// Manager owns the session lifecycle: creation with a unique live join code,
// idempotent ending, map assignment, and the expiry sweep.
type Manager struct {
	store        Store
	bus          EventBus
	clock        Clock
	codes        CodeGenerator
	lifetime     time.Duration
	codeLength   int
	codeAttempts int
	logger       zerolog.Logger
}

// NewManager validates the config and applies defaults.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}

	m := &Manager{
		store:        cfg.Store,
		bus:          cfg.Bus,
		clock:        cfg.Clock,
		codes:        cfg.Codes,
		lifetime:     cfg.Lifetime,
		codeLength:   cfg.CodeLength,
		codeAttempts: cfg.CodeAttempts,
		logger:       cfg.Logger,
	}

	if m.clock == nil {
		m.clock = SystemClock{}
	}
	if m.codes == nil {
		m.codes = RandomCodeGenerator{}
	}
	if m.lifetime <= 0 {
		m.lifetime = DefaultLifetime
	}
	if m.codeLength == 0 {
		m.codeLength = DefaultCodeLength
	}
	if m.codeLength < MinCodeLength || m.codeLength > MaxCodeLength {
		return nil, fmt.Errorf("code length %d out of range [%d,%d]", m.codeLength, MinCodeLength, MaxCodeLength)
	}
	if m.codeAttempts <= 0 {
		m.codeAttempts = DefaultCodeAttempts
	}

	return m, nil
}

// CreateSession opens a new session for the congregation. The join code is
// checked for collisions against currently joinable sessions only; code reuse
// after expiry is an accepted tradeoff of the small code space.
func (m *Manager) CreateSession(ctx context.Context, congregationID, createdBy uuid.UUID) (Session, error) {
	if congregationID == uuid.Nil {
		return Session{}, errors.New("congregation id is required")
	}
	if createdBy == uuid.Nil {
		return Session{}, errors.New("creator id is required")
	}

	now := m.clock.Now()

	code, err := m.uniqueCode(ctx, now)
	if err != nil {
		return Session{}, err
	}

	s := Session{
		ID:             uuid.New(),
		Code:           code,
		CongregationID: congregationID,
		CreatedBy:      createdBy,
		IsActive:       true,
		CreatedAt:      now,
		ExpiresAt:      now.Add(m.lifetime),
	}

	if err := m.store.Insert(ctx, s); err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}

	metricSessionsCreated.Inc()
	m.publish(ctx, s, EventUpdated)

	return s, nil
}

func (m *Manager) uniqueCode(ctx context.Context, now time.Time) (string, error) {
	for attempt := 0; attempt < m.codeAttempts; attempt++ {
		code, err := m.codes.NewCode(m.codeLength)
		if err != nil {
			return "", err
		}

		inUse, err := m.store.CodeInUse(ctx, code, now)
		if err != nil {
			return "", fmt.Errorf("check code collision: %w", err)
		}
		if !inUse {
			return code, nil
		}
	}

	m.logger.Error().Int("attempts", m.codeAttempts).Int("length", m.codeLength).
		Msg("join code generation exhausted; code space too small for current load")
	return "", ErrCodeSpaceExhausted
}

// Get returns the session with the given id.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	return m.store.Get(ctx, id)
}

// EndSession deactivates the session. Idempotent: ending an already-ended
// session succeeds and reports the unchanged row.
func (m *Manager) EndSession(ctx context.Context, id uuid.UUID) (Session, error) {
	return m.endSession(ctx, id, "manual")
}

func (m *Manager) endSession(ctx context.Context, id uuid.UUID, cause string) (Session, error) {
	s, err := m.store.End(ctx, id)
	if err != nil {
		return Session{}, err
	}

	metricSessionsEnded.WithLabelValues(cause).Inc()
	m.publish(ctx, s, EventEnded)

	return s, nil
}

// AssignMap sets the session's territory map number. The column is technically
// overwritable; callers treat assignment as logically once.
func (m *Manager) AssignMap(ctx context.Context, id uuid.UUID, mapNumber int) (Session, error) {
	if mapNumber <= 0 {
		return Session{}, errors.New("map number must be positive")
	}

	s, err := m.store.SetMapNumber(ctx, id, mapNumber)
	if err != nil {
		return Session{}, err
	}

	m.publish(ctx, s, EventUpdated)
	return s, nil
}

// Sweep ends every active session past its expiry and returns how many rows it
// transitioned. Per-row failures are logged and counted without aborting the
// batch; only inability to query the candidate set is an error.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	now := m.clock.Now()

	ids, err := m.store.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	ended := 0
	for _, id := range ids {
		rowCtx, cancel := context.WithTimeout(ctx, sweepRowTimeout)
		_, err := m.endSession(rowCtx, id, "sweep")
		cancel()

		if err != nil {
			metricSweepFailures.Inc()
			m.logger.Error().Err(err).Str("session_id", id.String()).Msg("sweep: end session")
			continue
		}
		ended++
	}

	metricSweepRuns.Inc()
	if len(ids) > 0 {
		m.logger.Info().Int("candidates", len(ids)).Int("ended", ended).Msg("sweep completed")
	}

	return ended, nil
}

// publish pushes a change event onto the live channel. Best effort: a publish
// failure never fails the mutation that triggered it.
func (m *Manager) publish(ctx context.Context, s Session, kind string) {
	if m.bus == nil {
		return
	}

	evt := Event{
		Kind:      kind,
		SessionID: s.ID,
		Code:      s.Code,
		IsActive:  s.IsActive,
		MapNumber: s.MapNumber,
		ExpiresAt: s.ExpiresAt,
	}

	if err := m.bus.Publish(ctx, SubjectFor(s.ID), evt); err != nil {
		m.logger.Warn().Err(err).Str("session_id", s.ID.String()).Msg("publish session event")
	}
}
