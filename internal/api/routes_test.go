package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/trade-journal/internal/auth"
	"github.com/trogers1052/trade-journal/internal/cache"
	"github.com/trogers1052/trade-journal/internal/journal"
	"github.com/trogers1052/trade-journal/internal/models"
	"github.com/trogers1052/trade-journal/internal/observability"
	"github.com/trogers1052/trade-journal/internal/storage/memory"
)

const (
	testEmail    = "trader@example.com"
	testPassword = "s3cret"
)

type testServer struct {
	*httptest.Server
	token string
}

func newTestServer(t *testing.T, authRequired bool) *testServer {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	authenticator := auth.NewAuthenticator(store, auth.NewMemoryTokenStore(), time.Hour)
	require.NoError(t, authenticator.EnsureUser(ctx, testEmail, testPassword))

	handler := NewHandler(Deps{
		Journal:      journal.NewService(store),
		Events:       store,
		Premarkets:   store,
		Auth:         authenticator,
		Cache:        cache.NewMemoryCache(),
		Metrics:      observability.NewMetrics(prometheus.NewRegistry(), "journal"),
		AuthRequired: authRequired,
	})

	srv := httptest.NewServer(SetupRoutes(handler, zerolog.Nop()))
	t.Cleanup(srv.Close)

	ts := &testServer{Server: srv}
	ts.token = ts.login(t, testEmail, testPassword)
	return ts
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/v1/login", loginRequest{Email: email, Password: password}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	var body loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Token
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	return resp
}

// call performs an authenticated request and decodes the response into out
func (s *testServer) call(t *testing.T, method, path string, body, out interface{}) int {
	t.Helper()
	resp := s.do(t, method, path, body, s.token)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func assertDec(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s: want %s, got %s", field, want, got)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, true)

	resp := srv.do(t, http.MethodGet, "/health", nil, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	metrics := srv.do(t, http.MethodGet, "/metrics", nil, "")
	defer metrics.Body.Close()
	raw, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
	assert.Contains(t, string(raw), "journal_http_requests_total")
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthCheck_Unhealthy(t *testing.T) {
	handler := NewHandler(Deps{Health: failingPinger{}})
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unhealthy")
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t, true)

	t.Run("valid credentials return a token", func(t *testing.T) {
		assert.NotEmpty(t, srv.token)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		resp := srv.do(t, http.MethodPost, "/api/v1/login", loginRequest{Email: testEmail, Password: "nope"}, "")
		defer resp.Body.Close()

		var body loginResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid email or password", body.Message)
		assert.Empty(t, body.Token)
	})

	t.Run("unknown email is rejected", func(t *testing.T) {
		assert.Empty(t, srv.login(t, "someone@example.com", testPassword))
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		token := srv.login(t, testEmail, testPassword)
		require.NotEmpty(t, token)

		resp := srv.do(t, http.MethodPost, "/api/v1/logout", nil, token)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = srv.do(t, http.MethodPost, "/api/v1/strategies", journal.StrategyInput{Name: "x"}, token)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestMutatingRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, true)

	resp := srv.do(t, http.MethodPost, "/api/v1/strategies", journal.StrategyInput{Name: "Breakout"}, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	list := srv.do(t, http.MethodGet, "/api/v1/strategies", nil, "")
	defer list.Body.Close()
	assert.Equal(t, http.StatusOK, list.StatusCode, "reads stay open")

	preview := srv.do(t, http.MethodPost, "/api/v1/trades/preview",
		map[string]interface{}{"entry": 100, "exit": 110, "shares": 10}, "")
	defer preview.Body.Close()
	assert.Equal(t, http.StatusOK, preview.StatusCode)
}

func TestAuthDisabled(t *testing.T) {
	srv := newTestServer(t, false)

	resp := srv.do(t, http.MethodPost, "/api/v1/addstrategy", journal.StrategyInput{Name: "Breakout"}, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestStrategyAndTradeFlow(t *testing.T) {
	srv := newTestServer(t, true)

	var strategy models.Strategy
	require.Equal(t, http.StatusCreated, srv.call(t, http.MethodPost, "/api/v1/strategies",
		journal.StrategyInput{Name: "Breakout", EntryRules: []string{"volume spike"}}, &strategy))
	assert.Equal(t, "Breakout", strategy.Name)
	assert.Equal(t, 0, strategy.NumberOfTrades)

	// Prime the list caches so later reads prove invalidation
	var listed strategyList
	require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/api/v1/strategies", nil, &listed))
	require.Len(t, listed.Strategies, 1)
	var trades tradeList
	require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/api/v1/strategies/"+strategy.ID+"/trades", nil, &trades))
	assert.Empty(t, trades.Trades)

	var long models.Trade
	require.Equal(t, http.StatusCreated, srv.call(t, http.MethodPost, "/api/v1/strategies/"+strategy.ID+"/trades",
		map[string]interface{}{
			"name": "AAPL", "side": "Long", "entry": 100, "exit": 110, "stop_loss": 95,
			"shares": 10, "charges": 5, "entry_date": "2024-03-01", "exit_date": "2024-03-04",
			"entry_rules": []string{"volume spike"},
		}, &long))
	assertDec(t, "1000", long.Capital, "capital")
	assertDec(t, "95", long.NetPnl, "net_pnl")
	assertDec(t, "9.5", long.PercentPnl, "percent_pnl")
	assert.Equal(t, "3 days", long.Duration)

	var short models.Trade
	require.Equal(t, http.StatusCreated, srv.call(t, http.MethodPost, "/api/v1/strategy/"+strategy.ID+"/trades",
		map[string]interface{}{
			"name": "TSLA", "side": "Short", "entry": 50, "exit": 40, "shares": 5, "charges": 2,
			"entry_date": "2024-03-05",
		}, &short))
	assertDec(t, "48", short.NetPnl, "net_pnl")

	t.Run("list reflects new trades after invalidation", func(t *testing.T) {
		var listed strategyList
		require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/api/v1/strategies", nil, &listed))
		require.Len(t, listed.Strategies, 1)
		summary := listed.Strategies[0]
		assert.Equal(t, 2, summary.NumberOfTrades)
		assertDec(t, "71.5", summary.NetPnl, "net_pnl")
		assertDec(t, "100", summary.WinRate, "win_rate")
		assertDec(t, "95", summary.MaxWin, "max_win")
		assertDec(t, "48", summary.MaxLoss, "max_loss")

		var trades tradeList
		require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/api/v1/strategies/"+strategy.ID+"/trades", nil, &trades))
		assert.Len(t, trades.Trades, 2)
	})

	t.Run("trade rules outside the strategy are rejected", func(t *testing.T) {
		resp := srv.do(t, http.MethodPost, "/api/v1/strategies/"+strategy.ID+"/trades",
			map[string]interface{}{"entry": 10, "shares": 1, "entry_rules": []string{"gut feeling"}}, srv.token)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("partial update keeps omitted fields", func(t *testing.T) {
		var updated models.Trade
		require.Equal(t, http.StatusOK, srv.call(t, http.MethodPut, "/api/v1/trades/"+long.ID,
			map[string]interface{}{"charges": 15}, &updated))
		assertDec(t, "85", updated.NetPnl, "net_pnl")
		assert.Equal(t, "AAPL", updated.Name)
		assertDec(t, "110", updated.Exit.Decimal, "exit")

		var got models.Strategy
		require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/api/v1/strategies/"+strategy.ID, nil, &got))
		assertDec(t, "66.5", got.NetPnl, "net_pnl")
	})

	t.Run("date range report", func(t *testing.T) {
		var report journal.RangeReport
		require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet,
			"/api/v1/trades?startDate=2024-03-01&endDate=2024-03-02", nil, &report))
		require.Len(t, report.Trades, 1)
		assert.Equal(t, long.ID, report.Trades[0].ID)
		assert.Equal(t, 1, report.Summary.NumberOfTrades)

		resp := srv.do(t, http.MethodGet, "/api/v1/trades?endDate=2024-03-02", nil, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("delete trade updates the aggregate", func(t *testing.T) {
		require.Equal(t, http.StatusNoContent, srv.call(t, http.MethodDelete, "/api/v1/trades/"+long.ID, nil, nil))
		assert.Equal(t, http.StatusNotFound, srv.call(t, http.MethodGet, "/api/v1/trades/"+long.ID, nil, nil))

		var got models.Strategy
		require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/api/v1/strategies/"+strategy.ID, nil, &got))
		assert.Equal(t, 1, got.NumberOfTrades)
		assertDec(t, "48", got.NetPnl, "net_pnl")
	})

	t.Run("manual recompute", func(t *testing.T) {
		var got models.Strategy
		require.Equal(t, http.StatusOK, srv.call(t, http.MethodPost, "/api/v1/strategies/"+strategy.ID+"/recompute", nil, &got))
		assert.Equal(t, []string{short.ID}, got.Trades)
	})

	t.Run("delete strategy removes its trades", func(t *testing.T) {
		require.Equal(t, http.StatusNoContent, srv.call(t, http.MethodDelete, "/api/v1/strategies/"+strategy.ID, nil, nil))
		assert.Equal(t, http.StatusNotFound, srv.call(t, http.MethodGet, "/api/v1/trades/"+short.ID, nil, nil))
		assert.Equal(t, http.StatusNotFound, srv.call(t, http.MethodGet, "/api/v1/strategies/"+strategy.ID+"/trades", nil, nil))
	})
}

func TestErrorResponses(t *testing.T) {
	srv := newTestServer(t, true)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"missing strategy name", http.MethodPost, "/api/v1/strategies", `{"name":"  "}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/v1/strategies", `{"name":`, http.StatusBadRequest},
		{"unknown strategy", http.MethodGet, "/api/v1/strategies/does-not-exist", "", http.StatusNotFound},
		{"trade on unknown strategy", http.MethodPost, "/api/v1/strategies/does-not-exist/trades", `{"entry":1,"shares":1}`, http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/v1/nowhere", "", http.StatusNotFound},
		{"oversized strategy name", http.MethodPost, "/api/v1/strategies",
			`{"name":"` + strings.Repeat("x", journal.MaxNameLength+1) + `"}`, http.StatusBadRequest},
		{"oversized event name", http.MethodPost, "/api/v1/events",
			`{"name":"` + strings.Repeat("x", journal.MaxNameLength+1) + `","date":"2024-03-20"}`, http.StatusBadRequest},
		{"oversized premarket day", http.MethodPost, "/api/v1/premarkets",
			`{"day":"` + strings.Repeat("x", 17) + `","date":"2024-03-20"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+srv.token)

			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestPreviewTrade(t *testing.T) {
	srv := newTestServer(t, true)

	var preview map[string]interface{}
	require.Equal(t, http.StatusOK, srv.call(t, http.MethodPost, "/api/v1/trades/preview",
		map[string]interface{}{"side": "Long", "entry": 100, "exit": 110, "shares": 10, "charges": 5}, &preview))
	assert.EqualValues(t, 95, preview["net_pnl"])
	assert.EqualValues(t, 1000, preview["capital"])
}

func TestEvents(t *testing.T) {
	srv := newTestServer(t, true)

	assert.Equal(t, http.StatusBadRequest, srv.call(t, http.MethodPost, "/api/v1/events",
		map[string]string{"name": "FOMC"}, nil))

	var created models.Event
	require.Equal(t, http.StatusCreated, srv.call(t, http.MethodPost, "/api/v1/events",
		map[string]string{"name": "FOMC", "date": "2024-03-20"}, &created))
	assert.NotEmpty(t, created.ID)

	var list eventList
	require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/api/v1/events", nil, &list))
	require.Len(t, list.Events, 1)

	var updated models.Event
	require.Equal(t, http.StatusOK, srv.call(t, http.MethodPut, "/api/v1/events/"+created.ID,
		map[string]string{"name": "FOMC minutes"}, &updated))
	assert.Equal(t, "FOMC minutes", updated.Name)
	assert.Equal(t, "2024-03-20", updated.Date.Format(models.DateLayout))

	require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/api/v1/events", nil, &list))
	require.Len(t, list.Events, 1)
	assert.Equal(t, "FOMC minutes", list.Events[0].Name)

	require.Equal(t, http.StatusNoContent, srv.call(t, http.MethodDelete, "/api/v1/events/"+created.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, srv.call(t, http.MethodGet, "/api/v1/events/"+created.ID, nil, nil))

	require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/api/v1/events", nil, &list))
	assert.Empty(t, list.Events)
}

func TestPremarkets(t *testing.T) {
	srv := newTestServer(t, true)

	assert.Equal(t, http.StatusBadRequest, srv.call(t, http.MethodPost, "/api/v1/premarkets",
		map[string]string{"date": "2024-03-20"}, nil))

	var created models.Premarket
	require.Equal(t, http.StatusCreated, srv.call(t, http.MethodPost, "/api/v1/premarkets",
		map[string]string{"day": "Wednesday", "date": "2024-03-20", "expected_movement": "up", "note": "CPI"}, &created))

	var list premarketList
	require.Equal(t, http.StatusOK, srv.call(t, http.MethodGet, "/api/v1/premarkets", nil, &list))
	require.Len(t, list.Premarkets, 1)

	var updated models.Premarket
	require.Equal(t, http.StatusOK, srv.call(t, http.MethodPut, "/api/v1/premarkets/"+created.ID,
		map[string]string{"note": "CPI hot"}, &updated))
	assert.Equal(t, "CPI hot", updated.Note)
	assert.Equal(t, "Wednesday", updated.Day)

	require.Equal(t, http.StatusNoContent, srv.call(t, http.MethodDelete, "/api/v1/premarkets/"+created.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, srv.call(t, http.MethodGet, "/api/v1/premarkets/"+created.ID, nil, nil))
}
