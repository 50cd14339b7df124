package topiccontroller

import (
	"time"

	"golang.org/x/time/rate"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/controller"

	"github.com/dc-tec/kafka-cluster-operator/internal/constants"
	opcontroller "github.com/dc-tec/kafka-cluster-operator/internal/controller"
)

// SetupOptions tunes the controller registered by SetupWithManager.
type SetupOptions struct {
	// MaxConcurrentReconciles bounds how many clusters are reconciled in parallel.
	// A single cluster is never reconciled by two workers at once.
	MaxConcurrentReconciles int
}

// SetupWithManager registers the reconciler with mgr. It watches cluster ConfigMaps
// and the Deployments they own, so deleting or editing a topic controller Deployment
// triggers a pass for its cluster.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager, opts SetupOptions) error {
	if r.Recorder == nil {
		r.Recorder = mgr.GetEventRecorderFor(constants.ControllerNameTopicController)
	}
	if r.Scheme == nil {
		r.Scheme = mgr.GetScheme()
	}

	maxConcurrent := opts.MaxConcurrentReconciles
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return ctrl.NewControllerManagedBy(mgr).
		For(&corev1.ConfigMap{}, builder.WithPredicates(opcontroller.ClusterConfigMapPredicate())).
		Owns(&appsv1.Deployment{}, builder.WithPredicates(opcontroller.ResourceGenerationChangedPredicate())).
		WithOptions(controller.Options{
			MaxConcurrentReconciles: maxConcurrent,
			RateLimiter: workqueue.NewTypedMaxOfRateLimiter(
				workqueue.NewTypedItemExponentialFailureRateLimiter[ctrl.Request](1*time.Second, 60*time.Second),
				&workqueue.TypedBucketRateLimiter[ctrl.Request]{Limiter: rate.NewLimiter(rate.Limit(10), 100)},
			),
		}).
		Named(constants.ControllerNameTopicController).
		Complete(r)
}
