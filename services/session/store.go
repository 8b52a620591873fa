package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists sessions and participant records. Implementations classify
// their backend's failures into the package error set: a missing row is
// ErrNotFound, anything infrastructural wraps ErrStorageUnavailable.
type Store interface {
	// Insert persists a new session row.
	Insert(ctx context.Context, s Session) error

	// Get returns the session with the given id.
	Get(ctx context.Context, id uuid.UUID) (Session, error)

	// GetByCode returns the most recently created session carrying the code.
	// Codes are only unique among joinable sessions, so after expiry the same
	// code may be reissued; newest-first resolution picks the live one.
	GetByCode(ctx context.Context, code string) (Session, error)

	// End flips is_active to false and returns the resulting row. Ending an
	// already-ended session is a no-op success.
	End(ctx context.Context, id uuid.UUID) (Session, error)

	// SetMapNumber assigns a territory map to the session and returns the
	// updated row. The update touches only the map_number column so it cannot
	// clobber a concurrent end.
	SetMapNumber(ctx context.Context, id uuid.UUID, mapNumber int) (Session, error)

	// ListJoinable returns the congregation's active, unexpired sessions,
	// newest first.
	ListJoinable(ctx context.Context, congregationID uuid.UUID, now time.Time) ([]Session, error)

	// ListExpired returns ids of sessions still active but past expiry.
	ListExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// CodeInUse reports whether any joinable session carries the code.
	CodeInUse(ctx context.Context, code string, now time.Time) (bool, error)

	// UpsertParticipant records a join, refreshing joined_at on rejoin.
	UpsertParticipant(ctx context.Context, p Participant) error
}
