package session

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store with per-operation failure injection, used
// by the package tests in place of Postgres.
type memStore struct {
	mu           sync.Mutex
	sessions     map[uuid.UUID]Session
	participants map[uuid.UUID]map[uuid.UUID]Participant

	insertErr      error
	codeCheckErr   error
	listExpiredErr error
	endErr         map[uuid.UUID]error
	participantErr error
}

func newMemStore() *memStore {
	return &memStore{
		sessions:     make(map[uuid.UUID]Session),
		participants: make(map[uuid.UUID]map[uuid.UUID]Participant),
		endErr:       make(map[uuid.UUID]error),
	}
}

func (m *memStore) Insert(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *memStore) GetByCode(_ context.Context, code string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found []Session
	for _, s := range m.sessions {
		if s.Code == code {
			found = append(found, s)
		}
	}
	if len(found) == 0 {
		return Session{}, ErrNotFound
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.After(found[j].CreatedAt) })
	return found[0], nil
}

func (m *memStore) End(_ context.Context, id uuid.UUID) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.endErr[id]; err != nil {
		return Session{}, err
	}
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	s.IsActive = false
	m.sessions[id] = s
	return s, nil
}

func (m *memStore) SetMapNumber(_ context.Context, id uuid.UUID, mapNumber int) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	n := mapNumber
	s.MapNumber = &n
	m.sessions[id] = s
	return s, nil
}

func (m *memStore) ListJoinable(_ context.Context, congregationID uuid.UUID, now time.Time) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Session
	for _, s := range m.sessions {
		if s.CongregationID == congregationID && s.Joinable(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ListExpired(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listExpiredErr != nil {
		return nil, m.listExpiredErr
	}

	var ids []uuid.UUID
	for _, s := range m.sessions {
		if s.IsActive && s.ExpiresAt.Before(now) {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

func (m *memStore) CodeInUse(_ context.Context, code string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codeCheckErr != nil {
		return false, m.codeCheckErr
	}

	for _, s := range m.sessions {
		if s.Code == code && s.Joinable(now) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpsertParticipant(_ context.Context, p Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.participantErr != nil {
		return m.participantErr
	}

	if m.participants[p.SessionID] == nil {
		m.participants[p.SessionID] = make(map[uuid.UUID]Participant)
	}
	m.participants[p.SessionID][p.UserID] = p
	return nil
}

func (m *memStore) participantCount(sessionID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participants[sessionID])
}

// fakeBus delivers published messages synchronously to in-process subscribers.
type fakeBus struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]func([]byte)
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[string]map[int]func([]byte))}
}

func (b *fakeBus) Publish(_ context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	b.mu.Lock()
	var fns []func([]byte)
	for _, fn := range b.subs[subject] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(data)
	}
	return nil
}

func (b *fakeBus) Subscribe(subject string, fn func(data []byte)) (io.Closer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[subject] == nil {
		b.subs[subject] = make(map[int]func([]byte))
	}
	id := b.next
	b.next++
	b.subs[subject][id] = fn

	return &fakeSub{bus: b, subject: subject, id: id}, nil
}

type fakeSub struct {
	bus     *fakeBus
	subject string
	id      int
}

func (s *fakeSub) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs[s.subject], s.id)
	return nil
}

// fixedClock is an adjustable Clock for expiry tests.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scriptedCodes returns a fixed sequence of codes, repeating the final one.
type scriptedCodes struct {
	mu    sync.Mutex
	codes []string
	i     int
}

func (g *scriptedCodes) NewCode(int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.i < len(g.codes)-1 {
		g.i++
		return g.codes[g.i-1], nil
	}
	return g.codes[len(g.codes)-1], nil
}
