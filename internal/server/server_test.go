package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tinyquery/internal/engine"
	"github.com/leapstack-labs/tinyquery/internal/testutil"
)

const catalogYAML = `tables:
  - name: table1
    columns:
      - {name: value, type: INTEGER}
      - {name: value2, type: INTEGER}
  - name: dataset.events
    columns:
      - {name: name, type: STRING}
views:
  - name: big_values
    query: SELECT value FROM table1 WHERE value > 3
`

func newTestServer(t *testing.T, maxJobs int) (*Server, *httptest.Server) {
	t.Helper()
	path := testutil.WriteFile(t, t.TempDir(), "catalog.yaml", catalogYAML)
	eng, err := engine.New(context.Background(), engine.Config{CatalogPath: path, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	srv := New(Config{Engine: eng, MaxJobs: maxJobs, Logger: testutil.NewTestLogger(t)})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postCompile(t *testing.T, ts *httptest.Server, query string) (*http.Response, Job) {
	t.Helper()
	body, err := json.Marshal(compileRequest{Query: query})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/v1/compile", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var job Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	return resp, job
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, 0)

	var body map[string]any
	status := getJSON(t, ts.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.InDelta(t, 3, body["entries"], 0)
}

func TestCompile(t *testing.T) {
	_, ts := newTestServer(t, 0)

	resp, job := postCompile(t, ts, "SELECT value, SUM(value2) AS total FROM table1 GROUP BY value")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "/v1/jobs/"+job.ID, resp.Header.Get("Location"))
	assert.Len(t, job.ID, 36)
	assert.Equal(t, StatusOK, job.Status)
	assert.Nil(t, job.Error)

	var planDoc struct {
		Scope struct {
			Columns []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"columns"`
		} `json:"scope"`
	}
	require.NoError(t, json.Unmarshal(job.Plan, &planDoc))
	require.Len(t, planDoc.Scope.Columns, 2)
	assert.Equal(t, "total", planDoc.Scope.Columns[1].Name)
	assert.Equal(t, "INTEGER", planDoc.Scope.Columns[1].Type)

	var fetched Job
	status := getJSON(t, ts.URL+"/v1/jobs/"+job.ID, &fetched)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, job.ID, fetched.ID)
	assert.JSONEq(t, string(job.Plan), string(fetched.Plan))
}

func TestCompile_Errors(t *testing.T) {
	_, ts := newTestServer(t, 0)

	tests := []struct {
		name  string
		query string
		kind  string
	}{
		{"unknown column", "SELECT missing FROM table1", "not found"},
		{"unknown table", "SELECT value FROM nope", "not found"},
		{"type error", `SELECT value + "a" FROM table1`, "type error"},
		{"parse error", "SELECT FROM", "parse error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, job := postCompile(t, ts, tt.query)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.Equal(t, StatusError, job.Status)
			require.NotNil(t, job.Error)
			assert.Equal(t, tt.kind, job.Error.Kind)
			assert.Empty(t, job.Plan)

			var fetched Job
			assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/jobs/"+job.ID, &fetched))
			assert.Equal(t, StatusError, fetched.Status)
		})
	}
}

func TestCompile_BadRequest(t *testing.T) {
	_, ts := newTestServer(t, 0)

	for _, body := range []string{"not json", `{"query": ""}`} {
		resp, err := http.Post(ts.URL+"/v1/compile", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	resp, err := http.Get(ts.URL + "/v1/compile")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestJob_NotFound(t *testing.T) {
	_, ts := newTestServer(t, 0)

	var body errorResponse
	status := getJSON(t, ts.URL+"/v1/jobs/does-not-exist", &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body.Error, "job not found")
}

func TestJobs_Eviction(t *testing.T) {
	srv, ts := newTestServer(t, 2)

	_, first := postCompile(t, ts, "SELECT 1")
	postCompile(t, ts, "SELECT 2")
	postCompile(t, ts, "SELECT 3")

	assert.Equal(t, 2, srv.jobs.len())
	_, ok := srv.jobs.get(first.ID)
	assert.False(t, ok, "oldest job is evicted")
}

func TestTables(t *testing.T) {
	_, ts := newTestServer(t, 0)

	var all []tableSummary
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/tables", &all))
	assert.Equal(t, []tableSummary{
		{Name: "big_values", Kind: "view"},
		{Name: "dataset.events", Kind: "table"},
		{Name: "table1", Kind: "table"},
	}, all)

	var ds []tableSummary
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/tables?dataset=dataset", &ds))
	assert.Equal(t, []tableSummary{{Name: "events", Kind: "table"}}, ds)

	var none []tableSummary
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/tables?dataset=other", &none))
	assert.Empty(t, none)
}

func TestTable(t *testing.T) {
	_, ts := newTestServer(t, 0)

	var table tableDetail
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/tables/dataset.events", &table))
	assert.Equal(t, "table", table.Kind)
	require.Len(t, table.Columns, 1)
	assert.Equal(t, "name", table.Columns[0].Name)

	var view tableDetail
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/tables/big_values", &view))
	assert.Equal(t, "view", view.Kind)
	assert.Equal(t, "SELECT value FROM table1 WHERE value > 3", view.Query)
	require.NotNil(t, view.Scope)
	require.Len(t, view.Scope.Columns, 1)
	assert.Equal(t, "value", view.Scope.Columns[0].Name)

	var missing errorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/v1/tables/nope", &missing))
}

func TestConcurrentCompiles(t *testing.T) {
	srv, ts := newTestServer(t, 0)

	errs := make(chan error, 20)
	for i := range 20 {
		go func() {
			body := fmt.Sprintf(`{"query": "SELECT value + %d AS v FROM table1"}`, i)
			resp, err := http.Post(ts.URL+"/v1/compile", "application/json", strings.NewReader(body))
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					err = fmt.Errorf("status %d", resp.StatusCode)
				}
			}
			errs <- err
		}()
	}
	for range 20 {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, 20, srv.jobs.len())
}

func TestServeListener_GracefulShutdown(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "catalog.yaml", catalogYAML)
	eng, err := engine.New(context.Background(), engine.Config{CatalogPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	logger, logs := testutil.NewCaptureLogger(slog.LevelInfo)
	srv := New(Config{Engine: eng, Watch: true, ShutdownTimeout: time.Second, Logger: logger})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()

	var body map[string]any
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		return json.NewDecoder(resp.Body).Decode(&body) == nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "ok", body["status"])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Contains(t, logs.String(), "starting compile server")
	assert.Contains(t, logs.String(), "path=/healthz")
}
