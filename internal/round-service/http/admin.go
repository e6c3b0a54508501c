package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/radieske/game-rounds-poc/internal/round-service/dto"
	"github.com/radieske/game-rounds-poc/internal/round-service/game"
	"github.com/radieske/game-rounds-poc/internal/round-service/outcome"
)

// requireOperator protege a superfície de controle com o token estático
// do operador (comparação em tempo constante).
func (s *Server) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Operator-Token")
		if s.operatorToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.operatorToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "operator token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getPolicy(w http.ResponseWriter, r *http.Request) {
	family, ok := familyParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown game")
		return
	}
	writeJSON(w, http.StatusOK, s.policyResponse(family))
}

func (s *Server) updatePolicy(w http.ResponseWriter, r *http.Request) {
	family, ok := familyParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown game")
		return
	}
	var req dto.PolicyUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := s.pol.Update(family, req.Mode, req.ProfitTarget, req.TargetMargin); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Enabled != nil {
		s.pol.SetEnabled(family, *req.Enabled)
	}
	writeJSON(w, http.StatusOK, s.policyResponse(family))
}

// setOverride registra o próximo resultado forçado da família. O valor é
// validado aqui contra o espaço de resultados; o consumo (uso único, só
// em MANUAL) acontece no engine.
func (s *Server) setOverride(w http.ResponseWriter, r *http.Request) {
	family, ok := familyParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown game")
		return
	}
	var req dto.OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if !s.validOverride(family, req.Value) {
		writeError(w, http.StatusBadRequest, "invalid override value")
		return
	}
	s.pol.SetOverride(family, req.Value)
	writeJSON(w, http.StatusOK, s.policyResponse(family))
}

func (s *Server) validOverride(family game.Family, value string) bool {
	switch family {
	case game.FamilyWingo:
		return outcome.ValidWingoOutcome(value)
	case game.FamilyLuckyPair:
		return outcome.ValidPairOutcome(value)
	case game.FamilyCrash:
		v, err := strconv.ParseFloat(value, 64)
		return err == nil && v > 1.0 && v <= s.crashMaxPoint
	}
	return false
}

// stakeSummary agrega o total apostado por candidato da rodada corrente
// (apoio à decisão do operador antes de um override).
func (s *Server) stakeSummary(w http.ResponseWriter, r *http.Request) {
	family, ok := familyParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown game")
		return
	}
	var period int64
	switch family {
	case game.FamilyWingo:
		period = s.wingo.CurrentPeriod()
	case game.FamilyLuckyPair:
		period = s.pair.CurrentPeriod()
	case game.FamilyCrash:
		period = s.crash.CurrentPeriod()
	}
	summary, err := s.repo.StakeSummary(r.Context(), family, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "summary unavailable")
		return
	}
	writeJSON(w, http.StatusOK, dto.StakeSummaryResponse{
		Game: string(family), Period: period, Summary: summary,
	})
}

func (s *Server) policyResponse(family game.Family) dto.PolicyResponse {
	p := s.pol.Snapshot(family)
	return dto.PolicyResponse{
		Game:         string(family),
		Mode:         p.Mode,
		ProfitTarget: p.ProfitTarget,
		TargetMargin: p.TargetMargin,
		Enabled:      p.Enabled,
		HasOverride:  p.Override != nil,
	}
}
