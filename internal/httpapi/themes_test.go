package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/storage/memory"
)

func decodeThemes(t *testing.T, data []byte) map[string][]string {
	t.Helper()
	var body themesBody
	require.NoError(t, json.Unmarshal(data, &body))
	return body.Themes
}

func TestThemes_PutThenGet(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.put(t, "/api/themes", `{"themes": {
		"BTC_KRW": ["store-of-value", " layer1 ", "layer1"],
		"ETH_KRW": ["layer1", "defi"]
	}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, []string{"store-of-value", "layer1"}, decodeThemes(t, data)["BTC_KRW"])

	// Whole universe; XRP_KRW is unmapped and omitted.
	resp, data = env.get(t, "/api/themes")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string][]string{
		"BTC_KRW": {"store-of-value", "layer1"},
		"ETH_KRW": {"layer1", "defi"},
	}, decodeThemes(t, data))

	resp, data = env.get(t, "/api/themes?symbols=ETH_KRW,XRP_KRW")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string][]string{"ETH_KRW": {"layer1", "defi"}}, decodeThemes(t, data))
}

func TestThemes_EmptyListUnmaps(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.themes.SetThemes(context.Background(), "BTC_KRW", []string{"layer1"}))

	resp, data := env.put(t, "/api/themes", `{"themes": {"BTC_KRW": []}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Empty(t, decodeThemes(t, data))

	got, err := env.themes.Themes(context.Background(), []string{"BTC_KRW"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestThemes_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"themes":`},
		{"empty", `{"themes": {}}`},
		{"blank symbol", `{"themes": {" ": ["defi"]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := env.put(t, "/api/themes", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestThemes_WithoutStore(t *testing.T) {
	s := NewServer(Options{
		CandleStore: memory.NewCandleStore(),
		Watchlists:  memory.NewWatchlistStore(),
		Logger:      zerolog.Nop(),
	})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/themes", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestThemes_FeedScenarioGrouping(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.put(t, "/api/themes", `{"themes": {"BTC_KRW": ["layer1"]}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := strings.Replace(scenarioBody, `"scope": "watchlist",`, `"scope": "watchlist", "groupBy": "theme",`, 1)
	resp, data := env.post(t, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var res domain.ScenarioResult
	require.NoError(t, json.Unmarshal(data, &res))
	groups := res.Groups[domain.GroupByTheme]
	require.Contains(t, groups, "layer1")
	assert.NotContains(t, groups, domain.ThemeUnclassified)
}
