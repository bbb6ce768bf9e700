package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObservePoll("aggregate", "ok", 20*time.Millisecond)
	m.ObservePoll("aggregate", "ok", 30*time.Millisecond)
	m.ObservePoll("aggregate", "timeout", 500*time.Millisecond)
	m.TickSkipped("aggregate")
	m.RecordRender("trace")
	m.SetNodesReachable(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls.WithLabelValues("aggregate", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("aggregate", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skippedTicks.WithLabelValues("aggregate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues("trace")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.nodesOnline))
	assert.Equal(t, 1, testutil.CollectAndCount(m.pollLatency))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObservePoll("x", "ok", time.Second)
		m.TickSkipped("x")
		m.RecordRender("cached")
		m.SetNodesReachable(1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.TickSkipped("ET1002")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `eclipse_poll_ticks_skipped_total{loop="ET1002"} 1`)
}
