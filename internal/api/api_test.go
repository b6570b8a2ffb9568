package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-report-stream/internal/api/handler"
	"go-report-stream/internal/model"
	"go-report-stream/internal/pipeline"
	"go-report-stream/internal/registry"
	"go-report-stream/internal/store"
	"go-report-stream/internal/telemetry"
	"go-report-stream/pkg/router"
)

func testAPI(t *testing.T) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()

	db, err := store.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	events := telemetry.NewEvents(zerolog.Nop(), metrics, db)
	mgr := pipeline.NewManager(registry.New(), events, zerolog.Nop())

	r := router.New(zerolog.Nop())
	RegisterRoutes(r, &handler.Handlers{
		Manager:           mgr,
		Store:             db,
		Log:               zerolog.Nop(),
		DefaultChunkSize:  100,
		DefaultMaxDemand:  200,
		DefaultPartitions: 2,
	})

	sourcePath := filepath.Join(dir, "source.db")
	src, err := sql.Open("sqlite3", sourcePath)
	require.NoError(t, err)
	defer src.Close()
	_, err = src.Exec(`CREATE TABLE sales (id INTEGER PRIMARY KEY, region TEXT, amount REAL)`)
	require.NoError(t, err)
	regions := []string{"north", "south", "east", "west"}
	for i := 0; i < 500; i++ {
		_, err = src.Exec(`INSERT INTO sales (region, amount) VALUES (?, ?)`,
			regions[i%len(regions)], float64(i%50))
		require.NoError(t, err)
	}

	return r.Handler(), sourcePath
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var parsed map[string]interface{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	}
	return rec, parsed
}

func startRequest(sourcePath string) handler.StartPipelineRequest {
	return handler.StartPipelineRequest{
		Source: handler.SourceSpec{
			Driver: "sqlite3",
			DSN:    sourcePath,
			Query:  "SELECT id, region, amount FROM sales ORDER BY id",
		},
		ChunkSize:      100,
		PartitionCount: 2,
		Groups: []model.GroupDef{
			{Name: "by_region", Expr: "region", Level: 1},
		},
	}
}

func TestStartAndQueryPipeline(t *testing.T) {
	h, sourcePath := testAPI(t)

	rec, body := doJSON(t, h, http.MethodPost, "/api/v1/pipelines", startRequest(sourcePath))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id, _ := body["pipeline_id"].(string)
	require.NotEmpty(t, id)

	// The server drains the stream itself; wait for a stable snapshot.
	var snap map[string]interface{}
	require.Eventually(t, func() bool {
		rec, parsed := doJSON(t, h, http.MethodGet, "/api/v1/pipelines/"+id+"/snapshot", nil)
		if rec.Code != http.StatusOK {
			return false
		}
		snap = parsed
		stable, _ := parsed["stable"].(bool)
		return stable
	}, 10*time.Second, 10*time.Millisecond)

	assert.Equal(t, float64(500), snap["records_processed"])
	levels, _ := snap["levels"].([]interface{})
	require.Len(t, levels, 1)
	level := levels[0].(map[string]interface{})
	groups := level["groups"].([]interface{})
	assert.Len(t, groups, 4)

	rec, info := doJSON(t, h, http.MethodGet, "/api/v1/pipelines/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(model.StatusCompleted), info["status"])

	rec, list := doJSON(t, h, http.MethodGet, "/api/v1/pipelines?status=completed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), list["count"])

	rec, counts := doJSON(t, h, http.MethodGet, "/api/v1/pipelines/counts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), counts["completed"])

	rec, state := doJSON(t, h, http.MethodGet, "/api/v1/pipelines/"+id+"/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(500), state["records_processed"])

	rec, events := doJSON(t, h, http.MethodGet, "/api/v1/pipelines/"+id+"/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	count, _ := events["count"].(float64)
	assert.GreaterOrEqual(t, count, float64(1))
}

func TestStartValidationErrors(t *testing.T) {
	h, sourcePath := testAPI(t)

	rec, _ := doJSON(t, h, http.MethodPost, "/api/v1/pipelines",
		map[string]interface{}{"source": map[string]string{"driver": "sqlite3"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := startRequest(sourcePath)
	req.MaxEstimatedGroups = 10 // below the single-level estimate
	rec, _ = doJSON(t, h, http.MethodPost, "/api/v1/pipelines", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransitionErrors(t *testing.T) {
	h, _ := testAPI(t)

	rec, _ := doJSON(t, h, http.MethodGet, "/api/v1/pipelines/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, h, http.MethodPost, "/api/v1/pipelines/nope/pause", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, h, http.MethodPost, "/api/v1/pipelines/nope/stop", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStopCompletedPipelineIsNoOp(t *testing.T) {
	h, sourcePath := testAPI(t)

	_, body := doJSON(t, h, http.MethodPost, "/api/v1/pipelines", startRequest(sourcePath))
	id, _ := body["pipeline_id"].(string)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		_, info := doJSON(t, h, http.MethodGet, "/api/v1/pipelines/"+id, nil)
		return info["status"] == string(model.StatusCompleted)
	}, 10*time.Second, 10*time.Millisecond)

	for i := 0; i < 2; i++ {
		rec, stop := doJSON(t, h, http.MethodPost, "/api/v1/pipelines/"+id+"/stop", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, string(model.StatusCompleted), stop["status"])
	}

	// Pausing a terminal pipeline conflicts.
	rec, _ := doJSON(t, h, http.MethodPost, "/api/v1/pipelines/"+id+"/pause", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	h, _ := testAPI(t)

	rec, body := doJSON(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	h.ServeHTTP(mrec, req)
	assert.Equal(t, http.StatusOK, mrec.Code)
	assert.Contains(t, mrec.Body.String(), "go_goroutines")
}

func TestMisconfiguredSourceFailsPipeline(t *testing.T) {
	h, sourcePath := testAPI(t)

	req := startRequest(sourcePath)
	req.Source.Query = "SELECT * FROM missing_table"
	rec, body := doJSON(t, h, http.MethodPost, "/api/v1/pipelines", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id, _ := body["pipeline_id"].(string)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		_, info := doJSON(t, h, http.MethodGet, "/api/v1/pipelines/"+id, nil)
		return info["status"] == string(model.StatusFailed)
	}, 10*time.Second, 10*time.Millisecond)

	_, info := doJSON(t, h, http.MethodGet, "/api/v1/pipelines/"+id, nil)
	errMsg, _ := info["error"].(string)
	assert.Contains(t, errMsg, "missing_table")
}
