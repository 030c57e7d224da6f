package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "redclaw"

type moduleMetrics struct {
	activeSessions      prometheus.Gauge
	sessionLoadDuration prometheus.Histogram
	sessionSaveDuration prometheus.Histogram
	memoryAppendTotal   *prometheus.CounterVec

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec

	modelCallTotal    *prometheus.CounterVec
	modelCallDuration *prometheus.HistogramVec

	agentRunTotal       *prometheus.CounterVec
	agentRunDuration    prometheus.Histogram
	agentRoundTrips     prometheus.Histogram
	agentFallbacksTotal prometheus.Counter

	channelMessagesTotal *prometheus.CounterVec

	laneDepth        prometheus.Gauge
	laneWaitDuration prometheus.Histogram
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_stored",
				Help:      "Number of session files in the workspace.",
			}),
			sessionLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "session_load_duration_seconds",
				Help:      "Session load duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			}),
			sessionSaveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "session_save_duration_seconds",
				Help:      "Session save duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			}),
			memoryAppendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "daily_note_append_total",
				Help:      "Daily note appends by status.",
			}, []string{"status"}),
			toolExecutionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_execution_total",
				Help:      "Total tool executions by tool and status.",
			}, []string{"tool", "status"}),
			toolExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_execution_duration_seconds",
				Help:      "Tool execution duration in seconds by tool.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"tool"}),
			modelCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_call_total",
				Help:      "Chat completion calls by provider and outcome.",
			}, []string{"provider", "status"}),
			modelCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_call_duration_seconds",
				Help:      "Chat completion latency in seconds by provider.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 120},
			}, []string{"provider"}),
			agentRunTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_run_total",
				Help:      "Total agent runs by status.",
			}, []string{"status"}),
			agentRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "agent_run_duration_seconds",
				Help:      "Agent run duration in seconds.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			}),
			agentRoundTrips: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "agent_round_trips",
				Help:      "Model round-trips per agent run.",
				Buckets:   prometheus.LinearBuckets(1, 1, 12),
			}),
			agentFallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_forced_fallback_total",
				Help:      "Runs that hit the iteration cap and forced a text-only answer.",
			}),
			channelMessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "channel_messages_total",
				Help:      "Channel messages by channel and direction (received, sent, dropped).",
			}, []string{"channel", "direction"}),
			laneDepth: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_lane_depth",
				Help:      "Runs queued or executing across session lanes.",
			}),
			laneWaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "session_lane_wait_seconds",
				Help:      "Time a run waited for its session lane.",
				Buckets:   prometheus.DefBuckets,
			}),
		}

		prometheus.MustRegister(
			m.activeSessions,
			m.sessionLoadDuration,
			m.sessionSaveDuration,
			m.memoryAppendTotal,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.modelCallTotal,
			m.modelCallDuration,
			m.agentRunTotal,
			m.agentRunDuration,
			m.agentRoundTrips,
			m.agentFallbacksTotal,
			m.channelMessagesTotal,
			m.laneDepth,
			m.laneWaitDuration,
		)

		metricsInst = m
	})

	return metricsInst
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// MetricsHandler serves the default registry.
func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func SetActiveSessions(count int) {
	getMetrics().activeSessions.Set(float64(count))
}

func RecordSessionLoad(duration time.Duration) {
	getMetrics().sessionLoadDuration.Observe(duration.Seconds())
}

func RecordSessionSave(duration time.Duration) {
	getMetrics().sessionSaveDuration.Observe(duration.Seconds())
}

func RecordDailyNoteAppend(success bool) {
	getMetrics().memoryAppendTotal.WithLabelValues(status(success)).Inc()
}

func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	m.toolExecutionTotal.WithLabelValues(tool, status(success)).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func RecordModelCall(provider string, duration time.Duration, success bool) {
	m := getMetrics()
	m.modelCallTotal.WithLabelValues(provider, status(success)).Inc()
	m.modelCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordAgentRun records one finished run and the round-trips it took.
func RecordAgentRun(duration time.Duration, roundTrips int, forcedFallback, success bool) {
	m := getMetrics()
	m.agentRunTotal.WithLabelValues(status(success)).Inc()
	m.agentRunDuration.Observe(duration.Seconds())
	m.agentRoundTrips.Observe(float64(roundTrips))
	if forcedFallback {
		m.agentFallbacksTotal.Inc()
	}
}

// RecordChannelMessage counts a message on a channel; direction is one of
// received, sent or dropped.
func RecordChannelMessage(channel, direction string) {
	getMetrics().channelMessagesTotal.WithLabelValues(channel, direction).Inc()
}

// SetLaneDepth reports how many runs are waiting on or holding a session lane.
func SetLaneDepth(depth int) {
	getMetrics().laneDepth.Set(float64(depth))
}

func RecordLaneWait(duration time.Duration) {
	getMetrics().laneWaitDuration.Observe(duration.Seconds())
}
