package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliffyan/go-biz-search/internal/config"
	"github.com/cliffyan/go-biz-search/internal/metrics"
	"github.com/cliffyan/go-biz-search/internal/search"
)

type fakeSearcher struct {
	query    string
	max      int
	deadline time.Duration
	rs       *search.ResultSet
	err      error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int, deadline time.Duration) (*search.ResultSet, error) {
	f.query, f.max, f.deadline = query, maxResults, deadline
	return f.rs, f.err
}

func (f *fakeSearcher) SearchBatch(ctx context.Context, queries []string, maxResults int, concurrency int) []search.BatchResult {
	return nil
}

func newTestServer(t *testing.T, s *fakeSearcher, deps ...func(*Deps)) *httptest.Server {
	t.Helper()
	d := Deps{Searcher: s, Engines: []string{"bing", "baidu"}}
	for _, fn := range deps {
		fn(&d)
	}
	srv := httptest.NewServer(New(config.Default(), d).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestSearch_Get(t *testing.T) {
	s := &fakeSearcher{rs: &search.ResultSet{Query: "上海 咖啡", Success: true, TotalResults: 0, Results: []search.ScoredResult{}}}
	srv := newTestServer(t, s)

	resp, err := http.Get(srv.URL + "/search?q=%E4%B8%8A%E6%B5%B7+%E5%92%96%E5%95%A1&limit=5&deadline=3s")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	var rs search.ResultSet
	decode(t, resp, &rs)
	assert.True(t, rs.Success)
	assert.Equal(t, "上海 咖啡", s.query)
	assert.Equal(t, 5, s.max)
	assert.Equal(t, 3*time.Second, s.deadline)
}

func TestSearch_Post(t *testing.T) {
	s := &fakeSearcher{rs: &search.ResultSet{Success: true}}
	srv := newTestServer(t, s)

	resp, err := http.Post(srv.URL+"/search", "application/json", strings.NewReader(`{"query":"coffee"}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "coffee", s.query)
	assert.Equal(t, 10, s.max)
	assert.Zero(t, s.deadline)
}

func TestSearch_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		s      *fakeSearcher
		status int
	}{
		{"invalid input", "/search?q=", &fakeSearcher{err: fmt.Errorf("%w: empty query", search.ErrInvalidInput)}, http.StatusBadRequest},
		{"bad limit", "/search?q=x&limit=abc", &fakeSearcher{}, http.StatusBadRequest},
		{"bad deadline", "/search?q=x&deadline=soon", &fakeSearcher{}, http.StatusBadRequest},
		{"all engines failed", "/search?q=x", &fakeSearcher{
			rs:  &search.ResultSet{Query: "x", Success: false, Error: "all engines failed"},
			err: fmt.Errorf("search: %w", search.ErrAllEnginesFailed),
		}, http.StatusOK},
		{"cancelled", "/search?q=x", &fakeSearcher{err: errors.New("cancelled")}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, tc.s)
			resp, err := http.Get(srv.URL + tc.path)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestMCP_InitializeCreatesSession(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{})

	resp, err := http.Post(srv.URL+"/mcp", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	require.NoError(t, err)

	sessionID := resp.Header.Get("mcp-session-id")
	assert.NotEmpty(t, sessionID)
	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "2.0", body["jsonrpc"])
	assert.Contains(t, body, "result")

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/mcp", nil)
	req.Header.Set("mcp-session-id", sessionID)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/mcp", nil)
	req.Header.Set("mcp-session-id", sessionID)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMCP_NotificationAndParseError(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{})

	resp, err := http.Post(srv.URL+"/mcp", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/mcp", "application/json", strings.NewReader(`{not json`))
	require.NoError(t, err)
	var body struct {
		Error struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	decode(t, resp, &body)
	assert.Equal(t, -32700, body.Error.Code)
}

func TestSSE_SendsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: endpoint\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "/messages?sessionId=")
}

func TestHealthAndSummary(t *testing.T) {
	rec := metrics.NewRecorder(10, 0.8)
	rec.Record(search.MetricsEvent{Success: true, ExecutionTime: time.Second})
	prom := metrics.NewPrometheus()
	srv := newTestServer(t, &fakeSearcher{}, func(d *Deps) {
		d.Summary = rec
		d.Metrics = prom.Handler()
	})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var health map[string]any
	decode(t, resp, &health)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, []any{"bing", "baidu"}, health["engines"])
	assert.Equal(t, metrics.StatusHealthy, health["search_status"])

	resp, err = http.Get(srv.URL + "/metrics/summary")
	require.NoError(t, err)
	var summary metrics.Summary
	decode(t, resp, &summary)
	assert.Equal(t, 1, summary.TotalSearches)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSummaryDisabled(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{})

	resp, err := http.Get(srv.URL + "/metrics/summary")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	cfg := config.Default()
	cfg.Server.CORS.Enabled = true
	cfg.Server.CORS.Origin = "https://app.example.com"
	srv := httptest.NewServer(New(cfg, Deps{Searcher: &fakeSearcher{}}).Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/mcp", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}
