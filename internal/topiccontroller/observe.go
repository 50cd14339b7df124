package topiccontroller

import (
	"fmt"
	"strconv"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/dc-tec/kafka-cluster-operator/internal/constants"
	operatorerrors "github.com/dc-tec/kafka-cluster-operator/internal/errors"
)

// ResolveFromDeployment reconstructs the Spec a live Deployment is running. It returns
// nil when dep is nil. Settings the Deployment does not carry take the same defaults
// ResolveFromConfig uses. A Deployment that is missing structure this package always
// generates fails with ErrMalformedResource.
func ResolveFromDeployment(namespace, cluster string, dep *appsv1.Deployment) (*ObservedSpec, error) {
	if dep == nil {
		return nil, nil
	}

	containers := dep.Spec.Template.Spec.Containers
	if len(containers) == 0 {
		return nil, malformed(dep, "pod template has no containers")
	}
	container := containers[0]
	if container.ReadinessProbe == nil {
		return nil, malformed(dep, fmt.Sprintf("container %q has no readiness probe", container.Name))
	}

	observed := DefaultSpec(namespace, cluster)
	if image := strings.TrimSpace(container.Image); image != "" {
		observed.Image = image
	}
	if dep.Spec.Replicas != nil {
		observed.Replicas = *dep.Spec.Replicas
	}
	observed.HealthCheck = HealthCheck{
		InitialDelaySeconds: container.ReadinessProbe.InitialDelaySeconds,
		TimeoutSeconds:      container.ReadinessProbe.TimeoutSeconds,
	}

	env := literalEnv(container.Env)
	if v, ok := env[constants.EnvConfigMapLabels]; ok {
		observed.ConfigMapLabels = v
	}
	if v, ok := env[constants.EnvKafkaBootstrapServers]; ok {
		observed.KafkaBootstrapServers = v
	}
	if v, ok := env[constants.EnvZookeeperConnect]; ok {
		observed.ZookeeperConnect = v
	}
	if v, ok := env[constants.EnvWatchedNamespace]; ok {
		observed.WatchedNamespace = v
	}
	if v, ok := env[constants.EnvFullReconciliationInterval]; ok {
		observed.ReconciliationIntervalMs = v
	}
	if v, ok := env[constants.EnvZookeeperSessionTimeout]; ok {
		observed.ZookeeperSessionTimeoutMs = v
	}
	if v, ok := env[constants.EnvTopicMetadataMaxAttempts]; ok {
		attempts, err := strconv.Atoi(v)
		if err != nil {
			return nil, malformed(dep, fmt.Sprintf("%s is not an integer: %q", constants.EnvTopicMetadataMaxAttempts, v))
		}
		observed.TopicMetadataMaxAttempts = attempts
	}

	return &observed, nil
}

// literalEnv collects the non-empty literal values of env, keyed by name. Entries
// sourced through valueFrom carry no value the Spec could compare and are skipped.
// A later duplicate wins, matching how the kubelet resolves duplicates.
func literalEnv(env []corev1.EnvVar) map[string]string {
	out := make(map[string]string, len(env))
	for _, e := range env {
		if e.ValueFrom != nil {
			continue
		}
		v := strings.TrimSpace(e.Value)
		if v == "" {
			delete(out, e.Name)
			continue
		}
		out[e.Name] = v
	}
	return out
}

func malformed(dep *appsv1.Deployment, reason string) error {
	return operatorerrors.WrapMalformedResource(fmt.Errorf("deployment %s/%s: %s", dep.Namespace, dep.Name, reason))
}
