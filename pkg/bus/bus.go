package bus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	maxReconnects      = 30
	maxReconnectDelay  = 30 * time.Second
	baseReconnectDelay = 250 * time.Millisecond
)

// Bus wraps a core NATS connection for publishing and consuming session
// change notifications. Delivery is at-most-once: subscribers that are not
// connected when a message is published never see it.
type Bus struct {
	conn *nats.Conn
}

// Connect creates a Bus connected to the provided NATS endpoint. Reconnection
// uses bounded exponential backoff rather than retrying forever.
func Connect(url string, logger zerolog.Logger, opts ...nats.Option) (*Bus, error) {
	base := []nats.Option{
		nats.MaxReconnects(maxReconnects),
		nats.CustomReconnectDelay(ReconnectDelay),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Warn().Msg("nats connection closed")
		}),
	}

	nc, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	return &Bus{conn: nc}, nil
}

// ReconnectDelay returns the wait before reconnect attempt n, doubling from
// the base delay and capped at maxReconnectDelay.
func ReconnectDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := baseReconnectDelay
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxReconnectDelay {
			return maxReconnectDelay
		}
	}
	return d
}

// Close shuts down the underlying NATS connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// Publish encodes v as JSON and publishes it to the given subject.
func (b *Bus) Publish(ctx context.Context, subj string, v any) error {
	if b == nil {
		return errors.New("nil bus")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return b.conn.Publish(subj, data)
}

type subscription struct {
	sub    *nats.Subscription
	mu     sync.Mutex
	closed bool
}

func (s *subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.sub.IsValid() {
		return nil
	}
	return s.sub.Drain()
}

// Subscribe creates an ephemeral subscription on the given subject and invokes
// fn for each message. The returned closer is idempotent and safe to call
// after the connection has already closed.
func (b *Bus) Subscribe(subj string, fn func(data []byte)) (io.Closer, error) {
	if b == nil {
		return nil, errors.New("nil bus")
	}
	if fn == nil {
		return nil, errors.New("nil handler")
	}

	sub, err := b.conn.Subscribe(subj, func(msg *nats.Msg) {
		fn(msg.Data)
	})
	if err != nil {
		return nil, err
	}

	return &subscription{sub: sub}, nil
}
