package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Actions taken against a topic controller Deployment.
const (
	ActionCreate = "create"
	ActionPatch  = "patch"
	ActionDelete = "delete"
	ActionNone   = "none"
)

var (
	reconcileDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kafka_operator",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciliation loops in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"namespace", "name", "controller"},
	)

	reconcileErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafka_operator",
			Name:      "reconcile_errors_total",
			Help:      "Total number of reconciliation errors",
		},
		[]string{"namespace", "name", "controller", "reason"},
	)

	topicControllerDriftTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafka_operator",
			Name:      "topic_controller_drift_total",
			Help:      "Total number of fields found differing between desired and live topic controller Deployments",
		},
		[]string{"namespace", "name", "field"},
	)

	topicControllerActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafka_operator",
			Name:      "topic_controller_actions_total",
			Help:      "Total number of actions taken on topic controller Deployments",
		},
		[]string{"namespace", "name", "action"},
	)

	backoffExhaustedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafka_operator",
			Name:      "backoff_exhausted_total",
			Help:      "Total number of retry loops that gave up after their maximum number of attempts",
		},
		[]string{"namespace", "name", "operation"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		reconcileDurationHistogram,
		reconcileErrorsTotal,
		topicControllerDriftTotal,
		topicControllerActionsTotal,
		backoffExhaustedTotal,
	)
}

// ReconcileMetrics provides helpers to record reconcile-level metrics for a
// specific controller and cluster.
type ReconcileMetrics struct {
	namespace  string
	name       string
	controller string
}

// NewReconcileMetrics creates a new ReconcileMetrics instance.
func NewReconcileMetrics(namespace, name, controller string) *ReconcileMetrics {
	return &ReconcileMetrics{
		namespace:  namespace,
		name:       name,
		controller: controller,
	}
}

// ObserveDuration records the duration of a reconcile loop in seconds.
func (m *ReconcileMetrics) ObserveDuration(durationSeconds float64) {
	reconcileDurationHistogram.
		WithLabelValues(m.namespace, m.name, m.controller).
		Observe(durationSeconds)
}

// IncrementError increments the reconcile error counter with the given reason.
// Reason values should be low-cardinality strings (for example, "MalformedResource").
func (m *ReconcileMetrics) IncrementError(reason string) {
	reconcileErrorsTotal.
		WithLabelValues(m.namespace, m.name, m.controller, reason).
		Inc()
}

// Clear removes this controller's reconcile series for the cluster.
func (m *ReconcileMetrics) Clear() {
	labels := prometheus.Labels{"namespace": m.namespace, "name": m.name, "controller": m.controller}
	reconcileDurationHistogram.DeletePartialMatch(labels)
	reconcileErrorsTotal.DeletePartialMatch(labels)
}

// TopicControllerMetrics records what the reconciler found and did for one cluster.
type TopicControllerMetrics struct {
	namespace string
	name      string
}

// NewTopicControllerMetrics creates a new TopicControllerMetrics instance.
func NewTopicControllerMetrics(namespace, name string) *TopicControllerMetrics {
	return &TopicControllerMetrics{
		namespace: namespace,
		name:      name,
	}
}

// RecordDrift counts one differing field.
func (m *TopicControllerMetrics) RecordDrift(field string) {
	topicControllerDriftTotal.
		WithLabelValues(m.namespace, m.name, field).
		Inc()
}

// RecordAction counts one create, patch, delete or no-op pass.
func (m *TopicControllerMetrics) RecordAction(action string) {
	topicControllerActionsTotal.
		WithLabelValues(m.namespace, m.name, action).
		Inc()
}

// RecordBackoffExhausted counts a retry loop for operation that ran out of attempts.
func (m *TopicControllerMetrics) RecordBackoffExhausted(operation string) {
	backoffExhaustedTotal.
		WithLabelValues(m.namespace, m.name, operation).
		Inc()
}

// Clear removes the per-cluster series once the cluster is gone.
func (m *TopicControllerMetrics) Clear() {
	labels := prometheus.Labels{"namespace": m.namespace, "name": m.name}
	topicControllerDriftTotal.DeletePartialMatch(labels)
	topicControllerActionsTotal.DeletePartialMatch(labels)
	backoffExhaustedTotal.DeletePartialMatch(labels)
}
