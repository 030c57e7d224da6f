package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordToolExecution(t *testing.T) {
	before := testutil.ToFloat64(getMetrics().toolExecutionTotal.WithLabelValues("list_dir", "error"))

	RecordToolExecution("list_dir", 5*time.Millisecond, false)
	RecordToolExecution("list_dir", 5*time.Millisecond, true)

	after := testutil.ToFloat64(getMetrics().toolExecutionTotal.WithLabelValues("list_dir", "error"))
	assert.Equal(t, before+1, after)
}

func TestRecordAgentRun(t *testing.T) {
	before := testutil.ToFloat64(getMetrics().agentFallbacksTotal)

	RecordAgentRun(time.Second, 11, true, true)
	RecordAgentRun(time.Second, 1, false, true)

	assert.Equal(t, before+1, testutil.ToFloat64(getMetrics().agentFallbacksTotal))
}

func TestRecordChannelMessage(t *testing.T) {
	RecordChannelMessage("telegram", "dropped")
	assert.GreaterOrEqual(t, testutil.ToFloat64(getMetrics().channelMessagesTotal.WithLabelValues("telegram", "dropped")), 1.0)
}

func TestMetricsHandler(t *testing.T) {
	RecordModelCall("openrouter", 200*time.Millisecond, true)
	SetActiveSessions(3)

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "redclaw_model_call_total")
	assert.Contains(t, body, "redclaw_sessions_stored 3")
}
