package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/game-rounds-poc/internal/round-service/game"
	"github.com/radieske/game-rounds-poc/internal/round-service/policy"
	"github.com/radieske/game-rounds-poc/internal/round-service/ws"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	pol := policy.NewStore(game.FamilyWingo, game.FamilyLuckyPair, game.FamilyCrash)
	hub := ws.NewHub(func(*http.Request) bool { return true })
	s := NewServer(zap.NewNop(), nil, nil, nil, nil, nil, pol, hub, "sekret", 100.0)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func doReq(t *testing.T, method, url, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestPlaceBetRequiresUserHeader(t *testing.T) {
	srv := newTestServer(t)
	resp := doReq(t, http.MethodPost, srv.URL+"/v1/bets", `{"game":"wingo"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPlaceBetUnknownGame(t *testing.T) {
	srv := newTestServer(t)
	resp := doReq(t, http.MethodPost, srv.URL+"/v1/bets",
		`{"game":"roulette","selection":"7","amount_cents":5000}`,
		map[string]string{"X-User-ID": "u1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCashoutOnlyForCrash(t *testing.T) {
	srv := newTestServer(t)
	resp := doReq(t, http.MethodPost, srv.URL+"/v1/cashout", `{"game":"wingo"}`,
		map[string]string{"X-User-ID": "u1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminRequiresToken(t *testing.T) {
	srv := newTestServer(t)

	resp := doReq(t, http.MethodGet, srv.URL+"/admin/policy/wingo", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doReq(t, http.MethodGet, srv.URL+"/admin/policy/wingo", "",
		map[string]string{"X-Operator-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doReq(t, http.MethodGet, srv.URL+"/admin/policy/wingo", "",
		map[string]string{"X-Operator-Token": "sekret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPolicyUpdateRejectsInvalid(t *testing.T) {
	srv := newTestServer(t)
	auth := map[string]string{"X-Operator-Token": "sekret"}

	resp := doReq(t, http.MethodPost, srv.URL+"/admin/policy/wingo",
		`{"mode":"YOLO","profit_target":"MINIMIZE_PAYOUT"}`, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doReq(t, http.MethodPost, srv.URL+"/admin/policy/wingo",
		`{"mode":"MANUAL","profit_target":"MINIMIZE_PAYOUT","target_margin":0.1}`, auth)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOverrideValidatedPerGame(t *testing.T) {
	srv := newTestServer(t)
	auth := map[string]string{"X-Operator-Token": "sekret"}

	// wingo: resultado é um número, nunca uma cor
	resp := doReq(t, http.MethodPost, srv.URL+"/admin/policy/wingo/override", `{"value":"Red"}`, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = doReq(t, http.MethodPost, srv.URL+"/admin/policy/wingo/override", `{"value":"7"}`, auth)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// lucky_pair: par de dígitos distintos
	resp = doReq(t, http.MethodPost, srv.URL+"/admin/policy/lucky_pair/override", `{"value":"4"}`, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = doReq(t, http.MethodPost, srv.URL+"/admin/policy/lucky_pair/override", `{"value":"3-8"}`, auth)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// crash: multiplicador dentro do intervalo
	resp = doReq(t, http.MethodPost, srv.URL+"/admin/policy/crash/override", `{"value":"0.5"}`, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = doReq(t, http.MethodPost, srv.URL+"/admin/policy/crash/override", `{"value":"250"}`, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = doReq(t, http.MethodPost, srv.URL+"/admin/policy/crash/override", `{"value":"3.5"}`, auth)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHistoryLimitParsing(t *testing.T) {
	srv := newTestServer(t)

	resp := doReq(t, http.MethodGet, srv.URL+"/v1/rounds/wingo/history?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doReq(t, http.MethodGet, srv.URL+"/v1/rounds/wingo/history?limit=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// acima do teto não é erro: o handler entrega a página máxima
	assert.Equal(t, maxHistoryLimit, clampHistoryLimit(500))
	assert.Equal(t, maxHistoryLimit, clampHistoryLimit(maxHistoryLimit+1))
	assert.Equal(t, 30, clampHistoryLimit(30))
	assert.Equal(t, maxHistoryLimit, clampHistoryLimit(maxHistoryLimit))
}

func TestUnknownGameIs404(t *testing.T) {
	srv := newTestServer(t)
	auth := map[string]string{"X-Operator-Token": "sekret"}
	resp := doReq(t, http.MethodGet, srv.URL+"/admin/policy/poker", "", auth)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
