package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/game-rounds-poc/internal/round-service/cache"
	"github.com/radieske/game-rounds-poc/internal/round-service/dto"
	"github.com/radieske/game-rounds-poc/internal/round-service/engine"
	"github.com/radieske/game-rounds-poc/internal/round-service/game"
	"github.com/radieske/game-rounds-poc/internal/round-service/policy"
	"github.com/radieske/game-rounds-poc/internal/round-service/repo"
	"github.com/radieske/game-rounds-poc/internal/round-service/ws"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 50
	historyTTL          = 10 * time.Second
)

// Server expõe a API pública de rodadas e a superfície de controle do
// operador. Estado de rodada vem dos engines em memória; histórico vem
// do Postgres com cache curto no Redis.
type Server struct {
	log           *zap.Logger
	wingo         *engine.DiscreteScheduler
	pair          *engine.DiscreteScheduler
	crash         *engine.CrashEngine
	repo          *repo.Postgres
	cache         *cache.Cache
	pol           *policy.Store
	hub           *ws.Hub
	operatorToken string
	crashMaxPoint float64
}

func NewServer(log *zap.Logger, wingo, pair *engine.DiscreteScheduler, crash *engine.CrashEngine,
	r *repo.Postgres, c *cache.Cache, pol *policy.Store, hub *ws.Hub,
	operatorToken string, crashMaxPoint float64) *Server {
	return &Server{
		log: log, wingo: wingo, pair: pair, crash: crash,
		repo: r, cache: c, pol: pol, hub: hub,
		operatorToken: operatorToken, crashMaxPoint: crashMaxPoint,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/bets", s.placeBet)
	r.Post("/v1/cashout", s.cashout)
	r.Get("/v1/rounds/{game}/state", s.roundState)
	r.Get("/v1/rounds/{game}/history", s.roundHistory)
	r.Get("/ws", s.hub.HandleWS)
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireOperator)
		r.Get("/policy/{game}", s.getPolicy)
		r.Post("/policy/{game}", s.updatePolicy)
		r.Post("/policy/{game}/override", s.setOverride)
		r.Get("/rounds/{game}/stakes", s.stakeSummary)
	})
	return r
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "X-User-ID required")
		return
	}
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	var resp *dto.PlaceBetResponse
	var err error
	switch game.Family(req.Game) {
	case game.FamilyWingo:
		resp, err = s.wingo.PlaceBet(r.Context(), userID, req.Selection, req.AmountCents)
	case game.FamilyLuckyPair:
		resp, err = s.pair.PlaceBet(r.Context(), userID, req.Selection, req.AmountCents)
	case game.FamilyCrash:
		resp, err = s.crash.PlaceBet(r.Context(), userID, req.AmountCents)
	default:
		writeError(w, http.StatusBadRequest, "unknown game")
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) cashout(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "X-User-ID required")
		return
	}
	var req dto.CashoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if game.Family(req.Game) != game.FamilyCrash {
		writeError(w, http.StatusBadRequest, "cashout only for crash")
		return
	}
	resp, err := s.crash.Cashout(r.Context(), userID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) roundState(w http.ResponseWriter, r *http.Request) {
	switch game.Family(chi.URLParam(r, "game")) {
	case game.FamilyWingo:
		writeJSON(w, http.StatusOK, s.wingo.State())
	case game.FamilyLuckyPair:
		writeJSON(w, http.StatusOK, s.pair.State())
	case game.FamilyCrash:
		writeJSON(w, http.StatusOK, s.crash.State())
	default:
		writeError(w, http.StatusNotFound, "unknown game")
	}
}

func (s *Server) roundHistory(w http.ResponseWriter, r *http.Request) {
	family, ok := familyParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown game")
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = clampHistoryLimit(n)
	}

	// só o tamanho default passa pelo cache
	if limit == defaultHistoryLimit {
		var cached []repo.RoundResult
		if ok, _ := s.cache.GetHistory(r.Context(), string(family), &cached); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	results, err := s.repo.RecentResults(r.Context(), family, limit)
	if err != nil {
		s.log.Error("history query", zap.String("game", string(family)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if results == nil {
		results = []repo.RoundResult{}
	}
	if limit == defaultHistoryLimit {
		_ = s.cache.SetHistory(r.Context(), string(family), results, historyTTL)
	}
	writeJSON(w, http.StatusOK, results)
}

// pedidos acima do teto são atendidos com o máximo, não rejeitados
func clampHistoryLimit(n int) int {
	if n > maxHistoryLimit {
		return maxHistoryLimit
	}
	return n
}

func familyParam(r *http.Request) (game.Family, bool) {
	f := game.Family(chi.URLParam(r, "game"))
	switch f {
	case game.FamilyWingo, game.FamilyLuckyPair, game.FamilyCrash:
		return f, true
	}
	return "", false
}

// statusFor traduz os erros de domínio para status HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrInvalidSelection), errors.Is(err, game.ErrInvalidStake):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, game.ErrWindowClosed), errors.Is(err, game.ErrRoundNotRunning),
		errors.Is(err, game.ErrFamilyDisabled):
		return http.StatusConflict
	case errors.Is(err, game.ErrNoPendingBet):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
