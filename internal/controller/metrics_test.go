package controller

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestReconcileMetrics_NoPanic(t *testing.T) {
	m := NewReconcileMetrics("ns", "name", "ctrl")

	// These calls should not panic and will register/update metrics for the
	// given label set.
	m.ObserveDuration(0.5)
	m.ObserveDuration(1.0)
	m.IncrementError("Error")
}

func TestReconcileMetrics_Clear(t *testing.T) {
	m := NewReconcileMetrics("clear-ns", "clear-cluster", "ctrl")
	m.IncrementError("Transient")
	assert.Equal(t, 1.0, counterValue(t, reconcileErrorsTotal, "clear-ns", "clear-cluster", "ctrl", "Transient"))

	other := NewReconcileMetrics("clear-ns", "other-cluster", "ctrl")
	other.IncrementError("Transient")

	m.Clear()
	assert.Equal(t, 0.0, counterValue(t, reconcileErrorsTotal, "clear-ns", "clear-cluster", "ctrl", "Transient"))
	assert.Equal(t, 1.0, counterValue(t, reconcileErrorsTotal, "clear-ns", "other-cluster", "ctrl", "Transient"),
		"other clusters keep their series")
}

func TestTopicControllerMetrics(t *testing.T) {
	m := NewTopicControllerMetrics("metrics-ns", "metrics-cluster")

	m.RecordDrift("image")
	m.RecordDrift("image")
	m.RecordAction(ActionPatch)
	m.RecordBackoffExhausted("get_deployment")

	assert.Equal(t, 2.0, counterValue(t, topicControllerDriftTotal, "metrics-ns", "metrics-cluster", "image"))
	assert.Equal(t, 1.0, counterValue(t, topicControllerActionsTotal, "metrics-ns", "metrics-cluster", ActionPatch))
	assert.Equal(t, 1.0, counterValue(t, backoffExhaustedTotal, "metrics-ns", "metrics-cluster", "get_deployment"))

	m.Clear()
	assert.Equal(t, 0.0, counterValue(t, topicControllerDriftTotal, "metrics-ns", "metrics-cluster", "image"))
}
