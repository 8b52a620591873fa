package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"territoryd/pkg/db"
)

const sessionColumns = "id, code, congregation_id, created_by, map_number, is_active, created_at, expires_at"

// PostgresStore implements Store over a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wires a Store onto the provided pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &PostgresStore{pool: pool}, nil
}

func (ps *PostgresStore) Insert(ctx context.Context, s Session) error {
	query := `
        INSERT INTO sessions (id, code, congregation_id, created_by, map_number, is_active, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
    `

	_, err := db.Exec(ctx, ps.pool, query,
		s.ID, s.Code, s.CongregationID, s.CreatedBy, s.MapNumber, s.IsActive, s.CreatedAt, s.ExpiresAt)
	return classify(err)
}

func (ps *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)

	var s Session
	if err := db.Get(ctx, ps.pool, &s, query, id); err != nil {
		return Session{}, classify(err)
	}
	return s, nil
}

func (ps *PostgresStore) GetByCode(ctx context.Context, code string) (Session, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM sessions
        WHERE code = $1
        ORDER BY created_at DESC
        LIMIT 1
    `, sessionColumns)

	var s Session
	if err := db.Get(ctx, ps.pool, &s, query, code); err != nil {
		return Session{}, classify(err)
	}
	return s, nil
}

func (ps *PostgresStore) End(ctx context.Context, id uuid.UUID) (Session, error) {
	query := fmt.Sprintf(`
        UPDATE sessions
        SET is_active = FALSE
        WHERE id = $1
        RETURNING %s
    `, sessionColumns)

	var s Session
	if err := db.Get(ctx, ps.pool, &s, query, id); err != nil {
		return Session{}, classify(err)
	}
	return s, nil
}

func (ps *PostgresStore) SetMapNumber(ctx context.Context, id uuid.UUID, mapNumber int) (Session, error) {
	query := fmt.Sprintf(`
        UPDATE sessions
        SET map_number = $2
        WHERE id = $1
        RETURNING %s
    `, sessionColumns)

	var s Session
	if err := db.Get(ctx, ps.pool, &s, query, id, mapNumber); err != nil {
		return Session{}, classify(err)
	}
	return s, nil
}

func (ps *PostgresStore) ListJoinable(ctx context.Context, congregationID uuid.UUID, now time.Time) ([]Session, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM sessions
        WHERE congregation_id = $1 AND is_active AND expires_at > $2
        ORDER BY created_at DESC
    `, sessionColumns)

	var out []Session
	if err := db.Select(ctx, ps.pool, &out, query, congregationID, now); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (ps *PostgresStore) ListExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
        SELECT id FROM sessions
        WHERE is_active AND expires_at < $1
        ORDER BY expires_at
    `

	var ids []uuid.UUID
	if err := db.Select(ctx, ps.pool, &ids, query, now); err != nil {
		return nil, classify(err)
	}
	return ids, nil
}

func (ps *PostgresStore) CodeInUse(ctx context.Context, code string, now time.Time) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM sessions
            WHERE code = $1 AND is_active AND expires_at > $2
        )
    `

	var inUse bool
	if err := db.Get(ctx, ps.pool, &inUse, query, code, now); err != nil {
		return false, classify(err)
	}
	return inUse, nil
}

func (ps *PostgresStore) UpsertParticipant(ctx context.Context, p Participant) error {
	query := `
        INSERT INTO session_participants (session_id, user_id, joined_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (session_id, user_id) DO UPDATE SET joined_at = EXCLUDED.joined_at;
    `

	_, err := db.Exec(ctx, ps.pool, query, p.SessionID, p.UserID, p.JoinedAt)
	return classify(err)
}

// classify maps driver errors into the package error set. Missing rows become
// ErrNotFound; everything else is treated as the store being unavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
