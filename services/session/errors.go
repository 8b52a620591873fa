package session

// Error is the closed error set for session coordination. External store and
// bus failures are classified into one of these at the boundary so callers
// never see driver-specific error shapes.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

const (
	// ErrStorageUnavailable wraps any infrastructure failure talking to the
	// session store. Retryable by the caller.
	ErrStorageUnavailable Error = "session store unavailable"

	// ErrNotFound means the referenced session does not exist.
	ErrNotFound Error = "session not found"

	// ErrInvalidCode means no session carries the presented join code.
	ErrInvalidCode Error = "no session with that code"

	// ErrSessionEnded means the session was ended before the join attempt.
	ErrSessionEnded Error = "session has ended"

	// ErrSessionExpired means the session passed its expiry but has not been
	// swept yet. Kept distinct from ErrSessionEnded for user messaging.
	ErrSessionExpired Error = "session has expired"

	// ErrCodeSpaceExhausted means code generation kept colliding with live
	// codes. This is a capacity problem for the operator, not a user error.
	ErrCodeSpaceExhausted Error = "join code space exhausted"

	// ErrParticipantRecord marks a best-effort participant insert failure.
	// It never blocks the join flow.
	ErrParticipantRecord Error = "participant record failed"
)
