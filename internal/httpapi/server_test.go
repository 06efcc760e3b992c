package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/storage/memory"
)

const (
	day = int64(86400)
	t0  = int64(1704067200)
)

// crossCandles has MA 5/20 golden crosses at bars 60 and 90 and a dead
// cross at bar 120.
func crossCandles() []domain.Candle {
	out := make([]domain.Candle, 200)
	for i := range out {
		price := 100.0
		switch {
		case i >= 120:
			price = 130
		case i >= 90:
			price = 140
		case i >= 60:
			price = 120
		}
		out[i] = domain.Candle{Time: t0 + int64(i)*day, Open: price, High: price, Low: price, Close: price, Volume: 1000}
	}
	return out
}

const scenarioBody = `{
	"scope": "watchlist",
	"symbols": ["BTC_KRW", "BTC_KRW"],
	"steps": [{
		"tf": "1d",
		"strategyCode": "MA_CROSS",
		"strategyParams": {"fast": 5, "slow": 20, "direction": "up"},
		"periodKey": "all",
		"exit": {"useOppositeSignal": true}
	}]
}`

type testEnv struct {
	srv    *httptest.Server
	hub    *Hub
	runs   *memory.ScenarioRunStore
	themes *memory.ThemeStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	candles := memory.NewCandleStore()
	require.NoError(t, candles.InsertBulk(ctx, "BTC_KRW", "1d", crossCandles()))

	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	watchlists := memory.NewWatchlistStore()
	require.NoError(t, watchlists.SetUniverse(ctx, []string{"BTC_KRW", "ETH_KRW", "XRP_KRW"}))
	themes := memory.NewThemeStore()

	runs := memory.NewScenarioRunStore()
	s := NewServer(Options{
		CandleStore: candles,
		Watchlists:  watchlists,
		ThemeStore:  themes,
		RunStore:    runs,
		Hub:         hub,
		Logger:      zerolog.Nop(),
		Now:         func() time.Time { return time.Unix(t0+300*day, 0).UTC() },
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, hub: hub, runs: runs, themes: themes}
}

func (e *testEnv) post(t *testing.T, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(e.srv.URL+"/api/backtest/run_scenario", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) put(t *testing.T, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, e.srv.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestRunScenario_PersistsAndReturnsResult(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.post(t, scenarioBody)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var res domain.ScenarioResult
	require.NoError(t, json.Unmarshal(data, &res))
	assert.True(t, res.OK)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"BTC_KRW"}, res.UsedSymbols)
	assert.Equal(t, []string{"base"}, res.ProfilesMeta)
	require.Len(t, res.Steps, 1)
	require.Len(t, res.Steps[0].Runs, 1)
	assert.Equal(t, 1, res.Summary.TotalTrades)

	trades, err := env.runs.GetTrades(context.Background(), res.RunID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.ExitReasonOppositeSignal, trades[0].Reason)

	resp, data = env.get(t, "/api/runs/"+res.RunID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run runResponse
	require.NoError(t, json.Unmarshal(data, &run))
	assert.Equal(t, res.RunID, run.RunID)
	assert.Equal(t, 1, run.TotalTrades)
	require.NotNil(t, run.Result)

	resp, data = env.get(t, "/api/runs/"+res.RunID+"/report")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "# Scenario Report "+res.RunID)

	resp, data = env.get(t, "/api/runs/"+res.RunID+"/report?format=csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 2)

	resp, data = env.get(t, "/api/runs?limit=10")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []runResponse
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Result)
}

func TestRunScenario_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"steps": [`},
		{"unknown chain mode", `{"chainMode": "serial", "steps": [{}]}`},
		{"negative limit", `{"limitTrades": -1}`},
		{"bad score key", `{"steps": [{"scoreKey": "sharpe"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := env.post(t, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var e errorResponse
			require.NoError(t, json.Unmarshal(data, &e))
			assert.False(t, e.OK)
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestGetRun_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/api/runs/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStrategies(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.get(t, "/api/strategies")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out strategiesResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Contains(t, out.Codes, domain.StrategyMACross)
	assert.NotEmpty(t, out.Catalog)
	assert.NotEmpty(t, out.Aliases)
	assert.Equal(t, "MA20_breakout", out.Defaults.Combo)
	assert.Equal(t, 200, out.Defaults.LimitTrades)
}

func TestHealthAndStatus(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))

	env.post(t, scenarioBody)

	resp, data = env.get(t, "/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st statusResponse
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, int64(0), st.RunsInFlight)
	require.NotNil(t, st.LastRun)
	assert.Equal(t, 1, st.LastRun.TotalTrades)

	resp, _ = env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProgressWebSocket(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws/progress"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, data := env.post(t, scenarioBody)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev ProgressEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.NotEmpty(t, ev.RunID)
	assert.Equal(t, "BTC_KRW", ev.Symbol)
	assert.Equal(t, 1, ev.Done)
	assert.Equal(t, 1, ev.Total)
}
