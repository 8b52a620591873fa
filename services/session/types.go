package session

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Session is one time-boxed unit of coordinated field activity scoped to a
// congregation, joined by participants via a short numeric code.
type Session struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Code           string    `json:"code" db:"code"`
	CongregationID uuid.UUID `json:"congregation_id" db:"congregation_id"`
	CreatedBy      uuid.UUID `json:"created_by" db:"created_by"`
	MapNumber      *int      `json:"map_number,omitempty" db:"map_number"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
}

// Joinable reports whether the session accepts new participants at the given
// instant: it must be active and not past its expiry.
func (s Session) Joinable(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}

// Participant records that a user joined a session. Rows are upserted on
// (session_id, user_id); a rejoin refreshes JoinedAt rather than duplicating.
type Participant struct {
	SessionID uuid.UUID `json:"session_id" db:"session_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	JoinedAt  time.Time `json:"joined_at" db:"joined_at"`
}

// Event kinds carried on the live update channel.
const (
	EventUpdated = "updated"
	EventEnded   = "ended"
)

// Event is the payload pushed to subscribers when a session row changes.
// It mirrors the row state at publish time; clients may trust it or use it
// as a cue to re-fetch.
type Event struct {
	Kind      string    `json:"kind"`
	SessionID uuid.UUID `json:"session_id"`
	Code      string    `json:"code"`
	IsActive  bool      `json:"is_active"`
	MapNumber *int      `json:"map_number,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

const sessionSubjectPrefix = "territory.session.updated."

// SubjectFor returns the bus subject carrying change events for one session.
func SubjectFor(id uuid.UUID) string {
	return sessionSubjectPrefix + id.String()
}

// EventBus is the slice of the message bus the session service needs:
// fire-and-forget publish plus ephemeral per-subject subscriptions.
type EventBus interface {
	Publish(ctx context.Context, subject string, v any) error
	Subscribe(subject string, fn func(data []byte)) (io.Closer, error)
}

// Clock abstracts time.Now so expiry behaviour is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// CodeGenerator produces candidate join codes of a fixed digit length.
type CodeGenerator interface {
	NewCode(length int) (string, error)
}

func (s Session) String() string {
	return fmt.Sprintf("session %s (code %s, congregation %s)", s.ID, s.Code, s.CongregationID)
}
