package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"skyrating/internal/domain"
	"skyrating/internal/orchestrator"
	"skyrating/internal/rating"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type Ratings interface {
	RegisterUser(ctx context.Context, id, pilotname string) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdateForKill(ctx context.Context, kill *domain.Kill) (rating.KillResult, error)
	UpdateForDeath(ctx context.Context, death *domain.Death) (rating.Outcome, error)
	RecordSession(ctx context.Context, action *domain.SessionAction) error
	Multipliers() []domain.KillMetric
}

type Histories interface {
	Export(ctx context.Context, u *domain.User) (string, error)
}

type Replayer interface {
	RunCycle(ctx context.Context) (*orchestrator.CycleResult, error)
}

type RatingServer struct {
	ratings   Ratings
	histories Histories
	replayer  Replayer
	logger    zerolog.Logger
}

func NewRatingServer(ratings Ratings, histories Histories, replayer Replayer, logger zerolog.Logger) *RatingServer {
	return &RatingServer{ratings: ratings, histories: histories, replayer: replayer, logger: logger}
}

func (s *RatingServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("POST /v1/events", s.ingest)
	mux.HandleFunc("POST /v1/users", s.registerUser)
	mux.HandleFunc("GET /v1/users/{id}", s.getUser)
	mux.HandleFunc("GET /v1/users/{id}/history", s.getHistory)
	mux.HandleFunc("GET /v1/multipliers", s.multipliers)
	mux.HandleFunc("POST /v1/replay", s.triggerReplay)
	return mux
}

type KillResponse struct {
	Outcome    string  `json:"outcome"`
	Reason     string  `json:"reason,omitempty"`
	KillerElo  float64 `json:"killerElo"`
	VictimElo  float64 `json:"victimElo"`
	EloSteal   float64 `json:"eloSteal"`
	KillStr    string  `json:"killStr,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty"`
	Banned     bool    `json:"banned,omitempty"`
}

type OutcomeResponse struct {
	Outcome string `json:"outcome"`
}

type UserResponse struct {
	ID        string  `json:"id"`
	Pilotname string  `json:"pilotname"`
	Elo       float64 `json:"elo"`
	MaxElo    float64 `json:"maxElo"`
	Kills     int     `json:"kills"`
	Deaths    int     `json:"deaths"`
	TeamKills int     `json:"teamKills"`
	Rank      *int    `json:"rank"`
	IsBanned  bool    `json:"isBanned"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Pilotname: u.Pilotname,
		Elo:       u.Elo,
		MaxElo:    u.MaxElo,
		Kills:     u.Kills,
		Deaths:    u.Deaths,
		TeamKills: u.TeamKills,
		Rank:      u.Rank,
		IsBanned:  u.IsBanned || u.IsBahaBanned,
	}
}

func (s *RatingServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *RatingServer) ingest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(r, w, http.StatusRequestEntityTooLarge, err)
		return
	}

	env, err := DecodeEnvelope(body, time.Now().UTC())
	if err != nil {
		s.writeError(r, w, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	switch env.Type {
	case EventTypeKill:
		res, err := s.ratings.UpdateForKill(ctx, env.Kill)
		resp := KillResponse{
			Outcome:    res.Outcome.String(),
			KillerElo:  res.KillerElo,
			VictimElo:  res.VictimElo,
			EloSteal:   res.EloSteal,
			KillStr:    res.KillStr,
			Multiplier: res.Multiplier,
			Banned:     res.Banned,
		}
		if reason := res.Outcome.Reason(); reason != nil {
			resp.Reason = reason.Error()
		}
		if err != nil {
			s.writeServiceError(r, w, err, resp)
			return
		}
		writeJSON(w, http.StatusOK, resp)

	case EventTypeDeath:
		outcome, err := s.ratings.UpdateForDeath(ctx, env.Death)
		if err != nil {
			s.writeServiceError(r, w, err, OutcomeResponse{Outcome: outcome.String()})
			return
		}
		writeJSON(w, http.StatusOK, OutcomeResponse{Outcome: outcome.String()})

	case EventTypeSession:
		if err := s.ratings.RecordSession(ctx, env.Session); err != nil {
			s.writeServiceError(r, w, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, OutcomeResponse{Outcome: string(env.Session.Kind)})
	}
}

type registerRequest struct {
	ID        string `json:"id"`
	Pilotname string `json:"pilotname"`
}

func (s *RatingServer) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(r, w, http.StatusBadRequest, errors.New("malformed json"))
		return
	}
	if err := domain.ValidateUserID(req.ID); err != nil {
		s.writeError(r, w, http.StatusBadRequest, err)
		return
	}

	user, err := s.ratings.RegisterUser(r.Context(), req.ID, req.Pilotname)
	if err != nil {
		s.writeServiceError(r, w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *RatingServer) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.ratings.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(r, w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *RatingServer) getHistory(w http.ResponseWriter, r *http.Request) {
	user, err := s.ratings.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(r, w, err, nil)
		return
	}

	path, err := s.histories.Export(r.Context(), user)
	if err != nil {
		s.writeError(r, w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	http.ServeFile(w, r, path)
}

func (s *RatingServer) multipliers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ratings.Multipliers())
}

// triggerReplay starts a cycle in the background; overlapping requests are skipped by the orchestrator.
func (s *RatingServer) triggerReplay(w http.ResponseWriter, r *http.Request) {
	logger := *s.log(r)
	go func() {
		if _, err := s.replayer.RunCycle(context.Background()); err != nil {
			logger.Error().Err(err).Msg("manual replay failed")
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *RatingServer) writeServiceError(r *http.Request, w http.ResponseWriter, err error, body any) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrMissingUser):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSeasonNotFound):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidEvent), errors.Is(err, domain.ErrInvalidUserID):
		status = http.StatusBadRequest
	}
	if body == nil {
		s.writeError(r, w, status, err)
		return
	}
	s.log(r).Warn().Err(err).Int("status", status).Msg("event not applied")
	writeJSON(w, status, body)
}

func (s *RatingServer) writeError(r *http.Request, w http.ResponseWriter, status int, err error) {
	s.log(r).Warn().Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// log prefers the request-scoped logger set by the request id middleware.
func (s *RatingServer) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
