package topiccontroller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/ptr"

	"github.com/dc-tec/kafka-cluster-operator/internal/constants"
)

func TestGenerateDeployment_Shape(t *testing.T) {
	spec := DefaultSpec("kafka", "my-cluster")
	dep := GenerateDeployment(spec)

	assert.Equal(t, "my-cluster-topic-controller", dep.Name)
	assert.Equal(t, "kafka", dep.Namespace)
	assert.Equal(t, appsv1.RecreateDeploymentStrategyType, dep.Spec.Strategy.Type)
	assert.Equal(t, ptr.To(DefaultReplicas), dep.Spec.Replicas)

	assert.Equal(t, "my-cluster", dep.Labels[constants.LabelStrimziCluster])
	assert.Equal(t, "topic", dep.Labels[constants.LabelStrimziType])
	for k, v := range dep.Spec.Selector.MatchLabels {
		assert.Equal(t, v, dep.Spec.Template.Labels[k], "selector label %s must match the pod template", k)
	}

	pod := dep.Spec.Template.Spec
	assert.Equal(t, constants.ServiceAccountClusterController, pod.ServiceAccountName)
	require.Len(t, pod.Containers, 1)

	c := pod.Containers[0]
	assert.Equal(t, constants.ContainerNameTopicController, c.Name)
	assert.Equal(t, constants.DefaultTopicControllerImage, c.Image)
	require.Len(t, c.Ports, 1)
	assert.Equal(t, constants.PortNameHealthCheck, c.Ports[0].Name)
	assert.Equal(t, int32(8080), c.Ports[0].ContainerPort)
	assert.Equal(t, corev1.ProtocolTCP, c.Ports[0].Protocol)

	require.NotNil(t, c.LivenessProbe)
	assert.Equal(t, "/healthy", c.LivenessProbe.HTTPGet.Path)
	require.NotNil(t, c.ReadinessProbe)
	assert.Equal(t, "/ready", c.ReadinessProbe.HTTPGet.Path)
	assert.Equal(t, DefaultHealthCheckDelaySeconds, c.ReadinessProbe.InitialDelaySeconds)
	assert.Equal(t, DefaultHealthCheckTimeoutSeconds, c.ReadinessProbe.TimeoutSeconds)

	names := make([]string, 0, len(c.Env))
	for _, e := range c.Env {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{
		constants.EnvConfigMapLabels,
		constants.EnvKafkaBootstrapServers,
		constants.EnvZookeeperConnect,
		constants.EnvWatchedNamespace,
		constants.EnvFullReconciliationInterval,
		constants.EnvZookeeperSessionTimeout,
		constants.EnvTopicMetadataMaxAttempts,
	}, names)
}

func TestPatchDeployment_ConvergesWithoutTouchingReplicas(t *testing.T) {
	old := DefaultSpec("kafka", "my-cluster")
	current := GenerateDeployment(old)
	current.Spec.Replicas = ptr.To(int32(2))
	current.Labels["team"] = "data"

	desired := old
	desired.Image = "strimzi/topic-controller:0.2"
	desired.TopicMetadataMaxAttempts = 3
	desired.HealthCheck = HealthCheck{InitialDelaySeconds: 20, TimeoutSeconds: 8}

	patched := PatchDeployment(current, desired)

	assert.Equal(t, constants.DefaultTopicControllerImage, current.Spec.Template.Spec.Containers[0].Image, "current must not be mutated")
	assert.Equal(t, ptr.To(int32(2)), patched.Spec.Replicas)
	assert.Equal(t, "data", patched.Labels["team"])

	result, err := DiffDeployment(desired, patched)
	require.NoError(t, err)
	assert.False(t, result.Changed, "patched deployment still differs: %v", result.ChangedFields)
}

func TestPatchDeployment_AddsMissingContainer(t *testing.T) {
	spec := DefaultSpec("kafka", "my-cluster")

	patched := PatchDeployment(bareDeployment(), spec)

	require.Len(t, patched.Spec.Template.Spec.Containers, 1)
	observed, err := ResolveFromDeployment("kafka", "my-cluster", patched)
	require.NoError(t, err)
	assert.True(t, spec.Equal(*observed))
}
