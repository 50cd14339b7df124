/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package topiccontroller reconciles the topic controller Deployment of every Kafka
// cluster declared through a cluster ConfigMap.
package topiccontroller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/dc-tec/kafka-cluster-operator/internal/backoff"
	"github.com/dc-tec/kafka-cluster-operator/internal/constants"
	opcontroller "github.com/dc-tec/kafka-cluster-operator/internal/controller"
	operatorerrors "github.com/dc-tec/kafka-cluster-operator/internal/errors"
	"github.com/dc-tec/kafka-cluster-operator/internal/kube"
	"github.com/dc-tec/kafka-cluster-operator/internal/logging"
	tcspec "github.com/dc-tec/kafka-cluster-operator/internal/topiccontroller"
)

const operationGetDeployment = "get_deployment"

// Reconciler keeps the topic controller Deployment of a cluster in line with the
// cluster ConfigMap's topic-controller-config document.
type Reconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder

	// LookupPolicy spaces retries of transient failures while reading the live
	// Deployment. The zero value uses LookupRetryBase and LookupRetryMax.
	LookupPolicy backoff.Policy
	// LookupMaxAttempts caps those retries. Zero uses LookupRetryMaxAttempts.
	LookupMaxAttempts int
}

// Reconcile runs one pass for the cluster ConfigMap named by req: resolve the desired
// Spec, observe the live Deployment, diff the two and create, patch or delete.
func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	startTime := time.Now()

	logger := log.FromContext(ctx).WithValues(
		"cluster_namespace", req.Namespace,
		"cluster_name", req.Name,
		"controller", constants.ControllerNameTopicController,
		"reconcile_id", time.Now().UnixNano(),
	)
	logger.V(1).Info("Reconciling topic controller")

	p := &pass{
		Reconciler: r,
		logger:     logger,
		metrics:    opcontroller.NewReconcileMetrics(req.Namespace, req.Name, constants.ControllerNameTopicController),
		tcMetrics:  opcontroller.NewTopicControllerMetrics(req.Namespace, req.Name),
		ops:        kube.NewOperations(r.Client, func() *appsv1.Deployment { return &appsv1.Deployment{} }),
		depKey:     types.NamespacedName{Namespace: req.Namespace, Name: tcspec.DeploymentName(req.Name)},
	}
	defer func() {
		if !p.forgotten {
			p.metrics.ObserveDuration(time.Since(startTime).Seconds())
		}
	}()

	cm := &corev1.ConfigMap{}
	if err := r.Get(ctx, req.NamespacedName, cm); err != nil {
		if apierrors.IsNotFound(err) {
			logger.Info("Cluster ConfigMap not found; assuming the cluster was deleted")
			return p.handleError(p.forgetCluster(ctx, "cluster ConfigMap was deleted"))
		}
		return p.handleError(fmt.Errorf("failed to get cluster ConfigMap %s: %w", req.NamespacedName, err))
	}
	p.cm = cm

	if !opcontroller.IsClusterConfigMap(cm) || !cm.DeletionTimestamp.IsZero() {
		logger.Info("ConfigMap no longer declares an active cluster; removing topic controller")
		return p.handleError(p.forgetCluster(ctx, "ConfigMap no longer declares an active cluster"))
	}

	desired, err := tcspec.FromConfigMap(cm)
	if err != nil {
		return p.handleError(err)
	}
	if desired == nil {
		logger.V(1).Info("Cluster does not configure a topic controller")
		err := p.ensureDeleted(ctx, fmt.Sprintf("data key %s was removed", constants.KeyTopicControllerConfig))
		if err == nil {
			p.tcMetrics.Clear()
		}
		return p.handleError(err)
	}

	current, err := p.lookupDeployment(ctx)
	if err != nil {
		return p.handleError(err)
	}

	diff, err := tcspec.DiffDeployment(*desired, current)
	if err != nil {
		return p.handleError(err)
	}

	switch {
	case diff == nil:
		err = p.create(ctx, *desired)
	case diff.Changed:
		err = p.patch(ctx, current, *desired, diff)
	default:
		logger.V(1).Info("Topic controller is up to date", "deployment", p.depKey.Name)
		p.tcMetrics.RecordAction(opcontroller.ActionNone)
	}
	if err != nil {
		return p.handleError(err)
	}

	// Safety net: periodically requeue to detect drift that produced no watch event.
	jitterNanos := time.Now().UnixNano() % int64(constants.RequeueSafetyNetJitter)
	requeueAfter := constants.RequeueSafetyNetBase + time.Duration(jitterNanos)
	logger.V(1).Info("Reconciliation complete; scheduling safety net requeue", "requeueAfter", requeueAfter)

	return ctrl.Result{RequeueAfter: requeueAfter}, nil
}

// pass carries the state of one reconciliation.
type pass struct {
	*Reconciler

	logger    logr.Logger
	metrics   *opcontroller.ReconcileMetrics
	tcMetrics *opcontroller.TopicControllerMetrics
	ops       *kube.Operations[*appsv1.Deployment]
	depKey    types.NamespacedName
	cm        *corev1.ConfigMap

	// forgotten is set once the cluster's metric series have been dropped.
	forgotten bool
}

// lookupDeployment reads the live Deployment, retrying transient failures with
// bounded exponential backoff. A missing Deployment yields nil.
func (p *pass) lookupDeployment(ctx context.Context) (*appsv1.Deployment, error) {
	state, err := backoff.New(p.lookupPolicy(), p.lookupMaxAttempts())
	if err != nil {
		return nil, err
	}

	var dep *appsv1.Deployment
	err = backoff.Retry(ctx, state, operatorerrors.IsTransient, func(ctx context.Context) error {
		var getErr error
		dep, getErr = p.ops.Get(ctx, p.depKey)
		if getErr != nil {
			p.logger.V(1).Info("Deployment lookup failed", "attempt", state.Attempt()+1, "error", getErr.Error())
		}
		return getErr
	})
	if err != nil {
		if operatorerrors.IsMaxAttemptsExceeded(err) {
			p.tcMetrics.RecordBackoffExhausted(operationGetDeployment)
		}
		return nil, err
	}
	return dep, nil
}

func (p *pass) lookupPolicy() backoff.Policy {
	if p.LookupPolicy.Base > 0 {
		return p.LookupPolicy
	}
	return backoff.Policy{Base: constants.LookupRetryBase, Max: constants.LookupRetryMax}
}

func (p *pass) lookupMaxAttempts() int {
	if p.LookupMaxAttempts > 0 {
		return p.LookupMaxAttempts
	}
	return constants.LookupRetryMaxAttempts
}

func (p *pass) create(ctx context.Context, desired tcspec.Spec) error {
	dep := tcspec.GenerateDeployment(desired)
	if err := controllerutil.SetControllerReference(p.cm, dep, p.Scheme); err != nil {
		return fmt.Errorf("failed to set owner reference on Deployment %s: %w", p.depKey, err)
	}
	if err := p.ops.Create(ctx, dep); err != nil {
		return err
	}

	p.logger.Info("Created topic controller", "deployment", p.depKey.Name, "image", desired.Image)
	logging.LogAuditEvent(p.logger, logging.AuditEventDeploymentCreated, map[string]string{
		"deployment": p.depKey.String(),
		"image":      desired.Image,
	})
	p.event(corev1.EventTypeNormal, constants.ReasonTopicControllerCreated, "Created Deployment %s", p.depKey.Name)
	p.tcMetrics.RecordAction(opcontroller.ActionCreate)
	return nil
}

func (p *pass) patch(ctx context.Context, current *appsv1.Deployment, desired tcspec.Spec, diff *tcspec.DiffResult) error {
	changed := make([]string, 0, len(diff.Changes))
	for _, c := range diff.Changes {
		p.logger.Info("Topic controller drift detected",
			"field", string(c.Field), "desired", c.Desired, "observed", c.Observed)
		p.tcMetrics.RecordDrift(string(c.Field))
		changed = append(changed, string(c.Field))
	}

	patched := tcspec.PatchDeployment(current, desired)
	if metav1.GetControllerOf(patched) == nil {
		if err := controllerutil.SetControllerReference(p.cm, patched, p.Scheme); err != nil {
			return fmt.Errorf("failed to set owner reference on Deployment %s: %w", p.depKey, err)
		}
	}
	if err := p.ops.Patch(ctx, current, patched); err != nil {
		return err
	}

	fields := strings.Join(changed, ",")
	p.logger.Info("Patched topic controller", "deployment", p.depKey.Name, "fields", fields)
	logging.LogAuditEvent(p.logger, logging.AuditEventDeploymentPatched, map[string]string{
		"deployment": p.depKey.String(),
		"fields":     fields,
	})
	p.event(corev1.EventTypeNormal, constants.ReasonTopicControllerPatched, "Patched Deployment %s: %s", p.depKey.Name, fields)
	p.tcMetrics.RecordAction(opcontroller.ActionPatch)
	return nil
}

// forgetCluster removes the Deployment of a cluster that no longer exists and then
// drops every metric series recorded for it.
func (p *pass) forgetCluster(ctx context.Context, reason string) error {
	if err := p.ensureDeleted(ctx, reason); err != nil {
		return err
	}
	p.tcMetrics.Clear()
	p.metrics.Clear()
	p.forgotten = true
	return nil
}

// ensureDeleted removes the topic controller Deployment if one exists. Deployments
// without the topic controller type label are left alone.
func (p *pass) ensureDeleted(ctx context.Context, reason string) error {
	current, err := p.lookupDeployment(ctx)
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}
	if current.Labels[constants.LabelStrimziType] != constants.LabelValueTypeTopicController {
		p.logger.Info("Deployment is not a topic controller; leaving it in place", "deployment", p.depKey.Name)
		return nil
	}

	if err := p.ops.Delete(ctx, p.depKey); err != nil {
		return err
	}

	p.logger.Info("Deleted topic controller", "deployment", p.depKey.Name, "reason", reason)
	logging.LogAuditEvent(p.logger, logging.AuditEventDeploymentDeleted, map[string]string{
		"deployment": p.depKey.String(),
		"reason":     reason,
	})
	p.event(corev1.EventTypeNormal, constants.ReasonTopicControllerDeleted, "Deleted Deployment %s: %s", p.depKey.Name, reason)
	p.tcMetrics.RecordAction(opcontroller.ActionDelete)
	return nil
}

// handleError turns the outcome of a pass into a result. A nil err finishes the pass
// without a requeue. Classified errors are absorbed into a timed requeue so that the
// workqueue's own failure backoff only applies to unexpected errors.
func (p *pass) handleError(err error) (ctrl.Result, error) {
	if err == nil {
		return ctrl.Result{}, nil
	}

	_, after := operatorerrors.ShouldRequeue(err)
	switch {
	case operatorerrors.IsConfigParse(err):
		p.logger.Error(err, "Invalid topic controller configuration; waiting for the ConfigMap to change")
		p.metrics.IncrementError(constants.ReasonInvalidConfig)
		p.event(corev1.EventTypeWarning, constants.ReasonInvalidConfig, "%s", err.Error())
		return ctrl.Result{}, nil

	case operatorerrors.IsMalformedResource(err):
		p.logger.Error(err, "Live topic controller Deployment is malformed; skipping this pass", "requeueAfter", after)
		p.metrics.IncrementError(constants.ReasonMalformedResource)
		p.event(corev1.EventTypeWarning, constants.ReasonMalformedResource, "%s", err.Error())
		return ctrl.Result{RequeueAfter: after}, nil

	case operatorerrors.IsMaxAttemptsExceeded(err):
		p.logger.Error(err, "Giving up on Deployment lookup for this pass", "requeueAfter", after)
		p.metrics.IncrementError(constants.ReasonLookupRetryFailure)
		p.event(corev1.EventTypeWarning, constants.ReasonLookupRetryFailure, "%s", err.Error())
		return ctrl.Result{RequeueAfter: after}, nil

	case operatorerrors.IsTransient(err):
		p.logger.Info("Transient error; requeueing", "requeueAfter", after, "error", err.Error())
		p.metrics.IncrementError("Transient")
		return ctrl.Result{RequeueAfter: after}, nil

	default:
		p.metrics.IncrementError("Error")
		return ctrl.Result{}, err
	}
}

// event records an event on the cluster ConfigMap, if there still is one.
func (p *pass) event(eventType, reason, messageFmt string, args ...interface{}) {
	if p.Recorder == nil || p.cm == nil {
		return
	}
	p.Recorder.Eventf(p.cm, eventType, reason, messageFmt, args...)
}
