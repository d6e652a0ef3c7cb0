package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/aretw0/parley/internal/adapters/http"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/orchestrator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePipeline echoes the request back for inspection.
type fakePipeline struct {
	lastReq  domain.ToolCallRequest
	result   domain.ToolResult
	resetOK  bool
	resetIDs []string
}

func (f *fakePipeline) Handle(ctx context.Context, req domain.ToolCallRequest) domain.ToolResult {
	f.lastReq = req
	return f.result
}

func (f *fakePipeline) Stats() orchestrator.PipelineStats {
	return orchestrator.PipelineStats{}
}

func (f *fakePipeline) ResetExecution(identity string) bool {
	f.resetIDs = append(f.resetIDs, identity)
	return f.resetOK
}

func newTestServer(t *testing.T, pipeline httpadapter.Pipeline) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(httpadapter.NewHandler(pipeline, logging.NewNop(), prometheus.NewRegistry()))
	t.Cleanup(srv.Close)
	return srv
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, &fakePipeline{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, &fakePipeline{})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ExecuteIntent(t *testing.T) {
	pipeline := &fakePipeline{result: domain.ToolResult{Success: true, Message: "done"}}
	srv := newTestServer(t, pipeline)

	body := `{"tool_name":"create_appointment","call_id":"call_1","tool_args":{"title":"Consult"}}`
	resp, err := http.Post(srv.URL+"/api/execute-intent", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result domain.ToolResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Success)
	assert.Equal(t, "done", result.Message)

	assert.Equal(t, domain.ToolCreateAppointment, pipeline.lastReq.ToolName)
	assert.Equal(t, "call_1", pipeline.lastReq.CallID)
}

func TestServer_ExecuteIntent_BadEnvelope(t *testing.T) {
	srv := newTestServer(t, &fakePipeline{})

	for name, body := range map[string]string{
		"malformed json": `{broken`,
		"missing tool":   `{"tool_args":{}}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/execute-intent", "application/json", strings.NewReader(body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestServer_PipelineStats(t *testing.T) {
	srv := newTestServer(t, &fakePipeline{})

	resp, err := http.Get(srv.URL + "/api/debug/pipeline-stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestServer_ResetExecution(t *testing.T) {
	pipeline := &fakePipeline{resetOK: true}
	srv := newTestServer(t, pipeline)

	resp, err := http.Post(srv.URL+"/api/debug/executions/abc123/reset", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "abc123", body["identity"])
	assert.Equal(t, true, body["reset"])
	assert.Equal(t, []string{"abc123"}, pipeline.resetIDs)
}

func TestServer_ResetExecution_NotFound(t *testing.T) {
	srv := newTestServer(t, &fakePipeline{resetOK: false})

	resp, err := http.Post(srv.URL+"/api/debug/executions/abc123/reset", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakePipeline{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/execute-intent", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
