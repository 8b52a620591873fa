package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"territoryd/services/session"
)

// stubStore is a minimal in-memory session.Store for handler tests.
type stubStore struct {
	mu           sync.Mutex
	sessions     map[uuid.UUID]session.Session
	participants map[uuid.UUID]map[uuid.UUID]session.Participant
}

func newStubStore() *stubStore {
	return &stubStore{
		sessions:     make(map[uuid.UUID]session.Session),
		participants: make(map[uuid.UUID]map[uuid.UUID]session.Participant),
	}
}

func (st *stubStore) Insert(_ context.Context, s session.Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
	return nil
}

func (st *stubStore) Get(_ context.Context, id uuid.UUID) (session.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

func (st *stubStore) GetByCode(_ context.Context, code string) (session.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	var found []session.Session
	for _, s := range st.sessions {
		if s.Code == code {
			found = append(found, s)
		}
	}
	if len(found) == 0 {
		return session.Session{}, session.ErrNotFound
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.After(found[j].CreatedAt) })
	return found[0], nil
}

func (st *stubStore) End(_ context.Context, id uuid.UUID) (session.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	s.IsActive = false
	st.sessions[id] = s
	return s, nil
}

func (st *stubStore) SetMapNumber(_ context.Context, id uuid.UUID, mapNumber int) (session.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	n := mapNumber
	s.MapNumber = &n
	st.sessions[id] = s
	return s, nil
}

func (st *stubStore) ListJoinable(_ context.Context, congregationID uuid.UUID, now time.Time) ([]session.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	var out []session.Session
	for _, s := range st.sessions {
		if s.CongregationID == congregationID && s.Joinable(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (st *stubStore) ListExpired(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	var ids []uuid.UUID
	for _, s := range st.sessions {
		if s.IsActive && s.ExpiresAt.Before(now) {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

func (st *stubStore) CodeInUse(_ context.Context, code string, now time.Time) (bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, s := range st.sessions {
		if s.Code == code && s.Joinable(now) {
			return true, nil
		}
	}
	return false, nil
}

func (st *stubStore) UpsertParticipant(_ context.Context, p session.Participant) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.participants[p.SessionID] == nil {
		st.participants[p.SessionID] = make(map[uuid.UUID]session.Participant)
	}
	st.participants[p.SessionID][p.UserID] = p
	return nil
}

type APITestSuite struct {
	suite.Suite
	stub    *stubStore
	handler http.Handler

	congregationID uuid.UUID
	userID         uuid.UUID
}

func (s *APITestSuite) SetupTest() {
	s.stub = newStubStore()

	manager, err := session.NewManager(&session.ManagerConfig{
		Store:  s.stub,
		Logger: zerolog.Nop(),
	})
	s.Require().NoError(err)

	resolver, err := session.NewResolver(&session.ResolverConfig{
		Store:  s.stub,
		Logger: zerolog.Nop(),
	})
	s.Require().NoError(err)

	a, err := New(&Store{}, manager, resolver, nil, Config{OperatorToken: "sweep-secret"}, zerolog.Nop())
	s.Require().NoError(err)

	handler, err := a.Routes()
	s.Require().NoError(err)
	s.handler = handler

	s.congregationID = uuid.New()
	s.userID = uuid.New()
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *APITestSuite) createSession() session.Session {
	rec := s.do(http.MethodPost, "/v1/sessions", map[string]any{
		"congregation_id": s.congregationID,
		"created_by":      s.userID,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	var resp struct {
		Session session.Session `json:"session"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Session
}

func (s *APITestSuite) TestCreateSession() {
	created := s.createSession()

	s.True(created.IsActive)
	s.Regexp(`^\d{5}$`, created.Code)
	s.WithinDuration(time.Now().Add(24*time.Hour), created.ExpiresAt, 5*time.Second)
}

func (s *APITestSuite) TestCreateSessionValidation() {
	rec := s.do(http.MethodPost, "/v1/sessions", map[string]any{
		"created_by": s.userID,
	})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APITestSuite) TestJoin() {
	created := s.createSession()

	rec := s.do(http.MethodPost, "/v1/join", map[string]any{
		"code":    created.Code,
		"user_id": uuid.New(),
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Session             session.Session `json:"session"`
		ParticipantRecorded bool            `json:"participant_recorded"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(created.ID, resp.Session.ID)
	s.True(resp.ParticipantRecorded)
}

func (s *APITestSuite) TestJoinUnknownCode() {
	rec := s.do(http.MethodPost, "/v1/join", map[string]any{
		"code":    "0000",
		"user_id": uuid.New(),
	})
	s.Require().Equal(http.StatusNotFound, rec.Code)

	var resp map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("invalid_code", resp["reason"])
}

func (s *APITestSuite) TestJoinEndedSessionReportsDistinctReason() {
	created := s.createSession()

	rec := s.do(http.MethodPost, fmt.Sprintf("/v1/sessions/%s/end", created.ID), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/v1/join", map[string]any{
		"code":    created.Code,
		"user_id": uuid.New(),
	})
	s.Require().Equal(http.StatusGone, rec.Code)

	var resp map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("session_ended", resp["reason"])
}

func (s *APITestSuite) TestEndSessionIsIdempotent() {
	created := s.createSession()
	path := fmt.Sprintf("/v1/sessions/%s/end", created.ID)

	s.Equal(http.StatusOK, s.do(http.MethodPost, path, nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodPost, path, nil).Code)
}

func (s *APITestSuite) TestEndUnknownSession() {
	rec := s.do(http.MethodPost, fmt.Sprintf("/v1/sessions/%s/end", uuid.New()), nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APITestSuite) TestAssignMap() {
	created := s.createSession()
	path := fmt.Sprintf("/v1/sessions/%s/map", created.ID)

	rec := s.do(http.MethodPost, path, map[string]any{"map_number": 14})
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Session session.Session `json:"session"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().NotNil(resp.Session.MapNumber)
	s.Equal(14, *resp.Session.MapNumber)

	rec = s.do(http.MethodPost, path, map[string]any{"map_number": 0})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APITestSuite) TestListJoinable() {
	first := s.createSession()
	second := s.createSession()

	rec := s.do(http.MethodGet, fmt.Sprintf("/v1/congregations/%s/sessions", s.congregationID), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Sessions []session.Session `json:"sessions"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Len(resp.Sessions, 2)

	ids := []uuid.UUID{resp.Sessions[0].ID, resp.Sessions[1].ID}
	s.Contains(ids, first.ID)
	s.Contains(ids, second.ID)
}

func (s *APITestSuite) TestSweepRequiresOperatorToken() {
	rec := s.do(http.MethodPost, "/v1/sweep", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *APITestSuite) TestSweepWithToken() {
	req := httptest.NewRequest(http.MethodPost, "/v1/sweep", nil)
	req.Header.Set("Authorization", "Bearer sweep-secret")

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp map[string]int
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(0, resp["ended"])
}

func (s *APITestSuite) TestAddressEndpointsReportMissingDatabase() {
	created := s.createSession()

	rec := s.do(http.MethodPost, fmt.Sprintf("/v1/sessions/%s/addresses", created.ID), map[string]any{
		"address":    "12 Elm St",
		"created_by": s.userID,
	})
	s.Equal(http.StatusFailedDependency, rec.Code)
}

func (s *APITestSuite) TestSessionEventsWithoutLiveChannel() {
	created := s.createSession()

	rec := s.do(http.MethodGet, fmt.Sprintf("/v1/sessions/%s/events", created.ID), nil)
	s.Equal(http.StatusFailedDependency, rec.Code)
}

func (s *APITestSuite) TestHealthz() {
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/healthz", nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/readyz", nil).Code)
}
