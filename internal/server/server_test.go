package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"skyrating/internal/domain"
	"skyrating/internal/orchestrator"
	"skyrating/internal/rating"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRatings struct {
	mock.Mock
}

func (m *MockRatings) RegisterUser(ctx context.Context, id, pilotname string) (*domain.User, error) {
	args := m.Called(ctx, id, pilotname)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *MockRatings) GetUser(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *MockRatings) UpdateForKill(ctx context.Context, kill *domain.Kill) (rating.KillResult, error) {
	args := m.Called(ctx, kill)
	return args.Get(0).(rating.KillResult), args.Error(1)
}

func (m *MockRatings) UpdateForDeath(ctx context.Context, death *domain.Death) (rating.Outcome, error) {
	args := m.Called(ctx, death)
	return args.Get(0).(rating.Outcome), args.Error(1)
}

func (m *MockRatings) RecordSession(ctx context.Context, action *domain.SessionAction) error {
	return m.Called(ctx, action).Error(0)
}

func (m *MockRatings) Multipliers() []domain.KillMetric {
	return m.Called().Get(0).([]domain.KillMetric)
}

type fileHistories struct {
	dir string
}

func (f fileHistories) Export(_ context.Context, u *domain.User) (string, error) {
	path := filepath.Join(f.dir, u.ID+".txt")
	return path, os.WriteFile(path, []byte("history of "+u.ID), 0o644)
}

type stubReplayer struct {
	calls chan struct{}
}

func (s stubReplayer) RunCycle(context.Context) (*orchestrator.CycleResult, error) {
	s.calls <- struct{}{}
	return &orchestrator.CycleResult{}, nil
}

func newTestServer(t *testing.T) (*RatingServer, *MockRatings, stubReplayer) {
	ratings := &MockRatings{}
	replayer := stubReplayer{calls: make(chan struct{}, 1)}
	return NewRatingServer(ratings, fileHistories{dir: t.TempDir()}, replayer, zerolog.Nop()), ratings, replayer
}

func do(t *testing.T, s *RatingServer, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

const killBody = `{"type":"kill","kill":{
	"killer":{"ownerId":"a","type":"FA-26B","team":"Allied"},
	"victim":{"ownerId":"b","type":"F-45A","team":"Enemy"},
	"weapon":"AIM-120"}}`

func TestIngestKill(t *testing.T) {
	s, ratings, _ := newTestServer(t)
	ratings.On("UpdateForKill", mock.Anything, mock.MatchedBy(func(k *domain.Kill) bool {
		return k.Killer.OwnerID == "a" && k.Weapon == domain.WeaponAIM120 && !k.Time.IsZero()
	})).Return(rating.KillResult{Outcome: rating.OutcomeCounted, KillerElo: 2010, VictimElo: 1990, EloSteal: 10}, nil)

	rec := do(t, s, http.MethodPost, "/v1/events", killBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp KillResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "counted", resp.Outcome)
	assert.Equal(t, 10.0, resp.EloSteal)
	assert.Equal(t, 2010.0, resp.KillerElo)
	ratings.AssertExpectations(t)
}

func TestIngestKillReportsReason(t *testing.T) {
	s, ratings, _ := newTestServer(t)
	ratings.On("UpdateForKill", mock.Anything, mock.Anything).
		Return(rating.KillResult{Outcome: rating.OutcomeDropped}, nil)

	rec := do(t, s, http.MethodPost, "/v1/events", killBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp KillResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "dropped", resp.Outcome)
	assert.Equal(t, domain.ErrDroppedCFIT.Error(), resp.Reason)
}

func TestIngestKillMissingUser(t *testing.T) {
	s, ratings, _ := newTestServer(t)
	ratings.On("UpdateForKill", mock.Anything, mock.Anything).
		Return(rating.KillResult{Outcome: rating.OutcomeIgnored}, domain.ErrMissingUser)

	rec := do(t, s, http.MethodPost, "/v1/events", killBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"ignored"`)
}

func TestIngestRejectsBadEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"type":`},
		{"no body", `{"type":"kill"}`},
		{"mismatched", `{"type":"death","kill":{}}`},
		{"two bodies", `{"type":"kill","kill":{},"death":{}}`},
		{"unknown type", `{"type":"spawn","session":{"userId":"a","kind":"login"}}`},
		{"unknown weapon", `{"type":"kill","kill":{"killer":{"ownerId":"a","type":"FA-26B","team":"Allied"},"victim":{"ownerId":"b","type":"FA-26B","team":"Enemy"},"weapon":"Laser"}}`},
		{"missing owner", `{"type":"death","death":{"victim":{"type":"FA-26B","team":"Enemy"}}}`},
		{"owner escapes dir", `{"type":"death","death":{"victim":{"ownerId":"../x","type":"FA-26B","team":"Enemy"}}}`},
		{"session user with slash", `{"type":"session","session":{"userId":"a/b","kind":"login"}}`},
		{"bad session kind", `{"type":"session","session":{"userId":"a","kind":"afk"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ratings, _ := newTestServer(t)
			rec := do(t, s, http.MethodPost, "/v1/events", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "invalid event payload")
			ratings.AssertNotCalled(t, "UpdateForKill", mock.Anything, mock.Anything)
		})
	}
}

func TestIngestDeathAndSession(t *testing.T) {
	s, ratings, _ := newTestServer(t)
	ratings.On("UpdateForDeath", mock.Anything, mock.Anything).Return(rating.OutcomeDuplicate, nil)
	ratings.On("RecordSession", mock.Anything, mock.Anything).Return(nil)

	rec := do(t, s, http.MethodPost, "/v1/events",
		`{"type":"death","death":{"victim":{"ownerId":"b","type":"T-55","team":"Enemy"},"killId":"k1"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"duplicate"`)

	rec = do(t, s, http.MethodPost, "/v1/events",
		`{"type":"session","session":{"userId":"a","kind":"logout","time":"2026-06-01T10:00:00Z"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"logout"`)
}

func TestIngestWithoutSeason(t *testing.T) {
	s, ratings, _ := newTestServer(t)
	ratings.On("RecordSession", mock.Anything, mock.Anything).Return(domain.ErrSeasonNotFound)

	rec := do(t, s, http.MethodPost, "/v1/events", `{"type":"session","session":{"userId":"a","kind":"login"}}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUserEndpoints(t *testing.T) {
	s, ratings, _ := newTestServer(t)
	rank := 2
	user := &domain.User{ID: "a", Pilotname: "Goose", Elo: 2100, MaxElo: 2150, Kills: 11, Rank: &rank}
	ratings.On("RegisterUser", mock.Anything, "a", "Goose").Return(user, nil)
	ratings.On("GetUser", mock.Anything, "a").Return(user, nil)
	ratings.On("GetUser", mock.Anything, "zz").Return(nil, domain.ErrMissingUser)

	rec := do(t, s, http.MethodPost, "/v1/users", `{"id":"a","pilotname":"Goose"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/users", `{"pilotname":"nobody"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/users", `{"id":"../../tmp/pwned","pilotname":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrInvalidUserID.Error())

	rec = do(t, s, http.MethodGet, "/v1/users/a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Goose", resp.Pilotname)
	require.NotNil(t, resp.Rank)
	assert.Equal(t, 2, *resp.Rank)

	rec = do(t, s, http.MethodGet, "/v1/users/zz", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/v1/users/a/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "history of a", rec.Body.String())
}

func TestMultipliersAndReplay(t *testing.T) {
	s, ratings, replayer := newTestServer(t)
	ratings.On("Multipliers").Return([]domain.KillMetric{{KillStr: rating.ReferenceKillStr, Count: 3, Precision: 1, Multiplier: 1}})

	rec := do(t, s, http.MethodGet, "/v1/multipliers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), rating.ReferenceKillStr)

	rec = do(t, s, http.MethodPost, "/v1/replay", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	select {
	case <-replayer.calls:
	case <-time.After(time.Second):
		t.Fatal("replay was not triggered")
	}

	rec = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDecodeEnvelopeDefaultsTime(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	env, err := DecodeEnvelope([]byte(killBody), now)
	require.NoError(t, err)
	assert.Equal(t, now, env.Kill.Time)
	assert.Equal(t, domain.AircraftF45A, env.Kill.Victim.Type)
}
