package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeblocks/internal/chart"
	"tradeblocks/internal/domain"
	"tradeblocks/internal/pipeline"
	"tradeblocks/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	stores := pipeline.Stores{
		Trades:      memory.NewTradeStore(),
		DailyLog:    memory.NewDailyLogStore(),
		Aggregates:  memory.NewStrategyAggregateStore(),
		Simulations: memory.NewSimulationResultStore(),
		Equity:      memory.NewEquitySeriesStore(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(nil)
	go hub.Run(ctx)

	srv := NewServer(stores, hub).WithSimulationDefaults(domain.SimulationParameters{
		NumSimulations: 100,
		ResampleMethod: domain.ResampleTrades,
		TradesPerYear:  125,
		RandomSeed:     42,
	})
	return srv, srv.Router()
}

func do(r http.Handler, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func uploadFixture(t *testing.T, r http.Handler) string {
	t.Helper()
	tradeLog, _ := pipeline.SampleFixture(60, 3)
	w := do(r, http.MethodPost, "/api/v1/trades", tradeLog, "text/csv")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[LoadSummary](t, w).DatasetKey
}

func TestHealth(t *testing.T) {
	_, r := newTestServer(t)
	w := do(r, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestMetricsEndpoint(t *testing.T) {
	_, r := newTestServer(t)
	do(r, http.MethodGet, "/health", nil, "")

	w := do(r, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tradeblocks_api_requests_total")
}

func TestUploadTrades(t *testing.T) {
	_, r := newTestServer(t)
	tradeLog, _ := pipeline.SampleFixture(60, 3)

	w := do(r, http.MethodPost, "/api/v1/trades", tradeLog, "text/csv")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode[LoadSummary](t, w)
	assert.NotEmpty(t, summary.DatasetKey)
	assert.Equal(t, 60, summary.TotalRows)
	assert.Equal(t, 60, summary.Accepted)
	assert.Empty(t, summary.Rejections)
	assert.True(t, summary.Stored)

	// Same content, same key; nothing new stored.
	w = do(r, http.MethodPost, "/api/v1/trades", tradeLog, "text/csv")
	require.Equal(t, http.StatusOK, w.Code)
	again := decode[LoadSummary](t, w)
	assert.Equal(t, summary.DatasetKey, again.DatasetKey)
	assert.False(t, again.Stored)

	w = do(r, http.MethodGet, "/api/v1/datasets", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), summary.DatasetKey)
}

func TestUploadTrades_Multipart(t *testing.T) {
	_, r := newTestServer(t)
	tradeLog, _ := pipeline.SampleFixture(20, 5)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "trades.csv")
	require.NoError(t, err)
	_, err = part.Write(tradeLog)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := do(r, http.MethodPost, "/api/v1/trades", body.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 20, decode[LoadSummary](t, w).Accepted)
}

func TestUploadTrades_Errors(t *testing.T) {
	_, r := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		target string
		status int
		kind   string
	}{
		{"empty body", "", "/api/v1/trades", http.StatusBadRequest, domain.KindParseFailure},
		{"header only", "Date Opened,P/L,Funds at Close,Strategy\n", "/api/v1/trades", http.StatusUnprocessableEntity, domain.KindInsufficientData},
		{
			"strict with rejected row",
			"Date Opened,P/L,Funds at Close,Strategy\n2024-01-02,100,10100,IC\nnot-a-date,50,10150,IC\n",
			"/api/v1/trades?strict=true",
			http.StatusUnprocessableEntity,
			domain.KindRowRejected,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tt.target, []byte(tt.body), "text/csv")
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.kind, decode[ErrorResponse](t, w).Kind)
		})
	}
}

func TestUploadTrades_LenientKeepsValidRows(t *testing.T) {
	_, r := newTestServer(t)
	body := "Date Opened,P/L,Funds at Close,Strategy\n2024-01-02,100,10100,IC\nnot-a-date,50,10150,IC\n"

	w := do(r, http.MethodPost, "/api/v1/trades", []byte(body), "text/csv")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode[LoadSummary](t, w)
	assert.Equal(t, 1, summary.Accepted)
	require.Len(t, summary.Rejections, 1)
	assert.Equal(t, 2, summary.Rejections[0].Row)
}

func TestUploadTrades_TooLarge(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.WithMaxUpload(16).Router()
	tradeLog, _ := pipeline.SampleFixture(5, 1)

	w := do(r, http.MethodPost, "/api/v1/trades", tradeLog, "text/csv")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.KindParseFailure, decode[ErrorResponse](t, w).Kind)
}

func TestStatsAndChart(t *testing.T) {
	_, r := newTestServer(t)
	key := uploadFixture(t, r)

	w := do(r, http.MethodGet, "/api/v1/stats?dataset="+key, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := decode[domain.PortfolioStats](t, w)
	assert.Equal(t, 60, stats.TotalTrades)
	assert.Equal(t, domain.EquitySourceTrades, stats.EquitySource)
	assert.InDelta(t, pipeline.FixtureStartingCapital, stats.InitialCapital, 1e-6)

	w = do(r, http.MethodGet, "/api/v1/chart?dataset="+key, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	bundle := decode[chart.Bundle](t, w)
	assert.Len(t, bundle.TradeSequence, 60)
	assert.Len(t, bundle.Equity, 61) // seed point plus one per trade
	assert.NotEmpty(t, bundle.Monthly)
}

func TestStats_StrategyFilter(t *testing.T) {
	_, r := newTestServer(t)
	key := uploadFixture(t, r)

	w := do(r, http.MethodGet, "/api/v1/strategies?dataset="+key, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Strategies []domain.StrategyAggregate `json:"strategies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Strategies)

	first := resp.Strategies[0]
	w = do(r, http.MethodGet, "/api/v1/stats?dataset="+key+"&strategy="+urlEscape(first.Strategy), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, first.TotalTrades, decode[domain.PortfolioStats](t, w).TotalTrades)

	w = do(r, http.MethodGet, "/api/v1/stats?dataset="+key+"&strategy=Nope", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func urlEscape(s string) string {
	return strings.NewReplacer(" ", "%20", ",", "%2C").Replace(s)
}

func TestStats_Errors(t *testing.T) {
	_, r := newTestServer(t)

	w := do(r, http.MethodGet, "/api/v1/stats", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.KindInvalidParameters, decode[ErrorResponse](t, w).Kind)

	w = do(r, http.MethodGet, "/api/v1/stats?dataset=missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domain.KindInsufficientData, decode[ErrorResponse](t, w).Kind)
}

func TestDailyLogSwitchesEquitySource(t *testing.T) {
	_, r := newTestServer(t)
	tradeLog, dailyLog := pipeline.SampleFixture(40, 9)

	w := do(r, http.MethodPost, "/api/v1/trades", tradeLog, "text/csv")
	require.Equal(t, http.StatusOK, w.Code)
	key := decode[LoadSummary](t, w).DatasetKey

	w = do(r, http.MethodPost, "/api/v1/daily-log?dataset="+key, dailyLog, "text/csv")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 40, decode[LoadSummary](t, w).Accepted)

	w = do(r, http.MethodGet, "/api/v1/stats?dataset="+key, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.EquitySourceDailyLog, decode[domain.PortfolioStats](t, w).EquitySource)

	w = do(r, http.MethodPost, "/api/v1/daily-log?dataset=missing", dailyLog, "text/csv")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStrategies_ComputedOnce(t *testing.T) {
	srv, r := newTestServer(t)
	key := uploadFixture(t, r)

	first := do(r, http.MethodGet, "/api/v1/strategies?dataset="+key, nil, "")
	require.Equal(t, http.StatusOK, first.Code)

	stored, err := srv.stores.Aggregates.GetByDataset(context.Background(), key)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	second := do(r, http.MethodGet, "/api/v1/strategies?dataset="+key, nil, "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	w := do(r, http.MethodGet, "/api/v1/strategies?dataset=missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunSimulation(t *testing.T) {
	_, r := newTestServer(t)
	key := uploadFixture(t, r)

	w := do(r, http.MethodPost, "/api/v1/simulations?dataset="+key+"&paths=true", []byte(`{"randomSeed": 7}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		RunID      string                      `json:"runId"`
		Parameters domain.SimulationParameters `json:"parameters"`
		PathCount  int                         `json:"pathCount"`
		Statistics domain.SimulationStatistics `json:"statistics"`
		Paths      []domain.PathMetrics        `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, uint64(7), resp.Parameters.RandomSeed)
	assert.Equal(t, 100, resp.PathCount)
	assert.Len(t, resp.Paths, 100)
	assert.Equal(t, 60, resp.Parameters.SimulationLength)
	assert.InDelta(t, pipeline.FixtureStartingCapital, resp.Parameters.InitialCapital, 1e-6)

	// Stored and retrievable, without paths.
	w = do(r, http.MethodGet, "/api/v1/simulations/"+resp.RunID, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), `"paths"`)

	w = do(r, http.MethodGet, "/api/v1/simulations?dataset="+key, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), resp.RunID)

	// Same parameters, same run.
	w = do(r, http.MethodPost, "/api/v1/simulations?dataset="+key, []byte(`{"randomSeed": 7}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	var again struct {
		RunID      string                      `json:"runId"`
		Statistics domain.SimulationStatistics `json:"statistics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
	assert.Equal(t, resp.RunID, again.RunID)
	assert.Equal(t, resp.Statistics, again.Statistics)
}

func TestRunSimulation_Errors(t *testing.T) {
	_, r := newTestServer(t)
	key := uploadFixture(t, r)

	w := do(r, http.MethodPost, "/api/v1/simulations?dataset="+key, []byte(`{"numSimulations": -1}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.KindInvalidParameters, decode[ErrorResponse](t, w).Kind)

	for _, body := range []string{
		`{"simulationLength": -5, "initialCapital": -1000}`,
		`{"simulationLength": -5}`,
		`{"initialCapital": -1000}`,
	} {
		w = do(r, http.MethodPost, "/api/v1/simulations?dataset="+key, []byte(body), "application/json")
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, domain.KindInvalidParameters, decode[ErrorResponse](t, w).Kind, body)
	}

	w = do(r, http.MethodPost, "/api/v1/simulations?dataset="+key, []byte(`{"resampleMethod": "bogus"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/simulations?dataset="+key, []byte(`{not json`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/simulations/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEquity(t *testing.T) {
	srv, r := newTestServer(t)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := []*domain.EquityPoint{
		{Index: 0, Date: base, Equity: 1000, HighWaterMark: 1000},
		{Index: 1, Date: base.AddDate(0, 0, 1), Equity: 1010, HighWaterMark: 1010},
		{Index: 2, Date: base.AddDate(0, 0, 2), Equity: 990, HighWaterMark: 1010},
	}
	require.NoError(t, srv.stores.Equity.InsertBulk(context.Background(), "ds", domain.EquitySourceTrades, points))

	w := do(r, http.MethodGet, "/api/v1/equity?dataset=ds", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Points []domain.EquityPoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Points, 3)

	w = do(r, http.MethodGet, "/api/v1/equity?dataset=ds&from=2024-01-03", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Points, 2)

	w = do(r, http.MethodGet, "/api/v1/equity?dataset=ds&from=01/03/2024", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/equity?dataset=other", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProgressWebsocket(t *testing.T) {
	srv, r := newTestServer(t)
	ts := httptest.NewServer(r)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/progress", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.Hub().Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	tradeLog, _ := pipeline.SampleFixture(10, 1)
	resp, err := http.Post(ts.URL+"/api/v1/trades", "text/csv", bytes.NewReader(tradeLog))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var last ProgressEvent
	for last.Fraction < 1 {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(msg, &last))
		assert.Equal(t, EventParse, last.Type)
		assert.Equal(t, "trades", last.File)
	}
	assert.NotEmpty(t, last.DatasetKey)

	conn.Close()
	require.Eventually(t, func() bool { return srv.Hub().Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestProgressWebsocket_AfterHubStopped(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	r := gin.New()
	r.GET("/ws/progress", hub.ServeWS)
	ts := httptest.NewServer(r)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/progress", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Zero(t, hub.Subscribers())
}
