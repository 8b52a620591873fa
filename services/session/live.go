package session

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Channel fans session change events out to interested clients. It is a
// convenience layer over the bus: delivery is at-most-once and best-effort,
// with no replay after a disconnect. A client that reconnects must re-fetch
// current state itself.
type Channel struct {
	bus    EventBus
	logger zerolog.Logger
}

// NewChannel wires a live update channel onto the bus.
func NewChannel(bus EventBus, logger zerolog.Logger) (*Channel, error) {
	if bus == nil {
		return nil, errors.New("bus is required")
	}
	return &Channel{bus: bus, logger: logger}, nil
}

// Subscribe registers onChange for every change event on the given session.
// The returned unsubscribe func is idempotent and safe to call after the
// underlying connection has already closed.
func (c *Channel) Subscribe(sessionID uuid.UUID, onChange func(Event)) (func(), error) {
	if sessionID == uuid.Nil {
		return nil, errors.New("session id is required")
	}
	if onChange == nil {
		return nil, errors.New("onChange is required")
	}

	closer, err := c.bus.Subscribe(SubjectFor(sessionID), func(data []byte) {
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			c.logger.Warn().Err(err).Str("session_id", sessionID.String()).Msg("malformed session event")
			return
		}
		onChange(evt)
	})
	if err != nil {
		return nil, err
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			if err := closer.Close(); err != nil {
				c.logger.Warn().Err(err).Str("session_id", sessionID.String()).Msg("unsubscribe session events")
			}
		})
	}

	return unsubscribe, nil
}
