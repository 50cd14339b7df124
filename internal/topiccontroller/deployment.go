package topiccontroller

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/dc-tec/kafka-cluster-operator/internal/constants"
)

// Labels returns the labels carried by every topic controller resource of a cluster.
func Labels(cluster string) map[string]string {
	return map[string]string{
		constants.LabelAppName:        constants.LabelValueAppNameKafka,
		constants.LabelAppInstance:    cluster,
		constants.LabelAppManagedBy:   constants.LabelValueAppManagedByOperator,
		constants.LabelAppComponent:   constants.LabelValueComponentTopicController,
		constants.LabelStrimziCluster: cluster,
		constants.LabelStrimziType:    constants.LabelValueTypeTopicController,
	}
}

// SelectorLabels returns the immutable subset of Labels used as the pod selector.
func SelectorLabels(cluster string) map[string]string {
	return map[string]string{
		constants.LabelStrimziCluster: cluster,
		constants.LabelStrimziType:    constants.LabelValueTypeTopicController,
	}
}

// GenerateDeployment renders the Deployment that runs the topic controller described
// by spec. The result observes back as a Spec equal to spec.
func GenerateDeployment(spec Spec) *appsv1.Deployment {
	labels := Labels(spec.Cluster)

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{
			Kind:       "Deployment",
			APIVersion: "apps/v1",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      DeploymentName(spec.Cluster),
			Namespace: spec.Namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(spec.Replicas),
			Selector: &metav1.LabelSelector{
				MatchLabels: SelectorLabels(spec.Cluster),
			},
			// Two controllers must never act on the same topics at once.
			Strategy: appsv1.DeploymentStrategy{
				Type: appsv1.RecreateDeploymentStrategyType,
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: labels,
				},
				Spec: corev1.PodSpec{
					ServiceAccountName: constants.ServiceAccountClusterController,
					SecurityContext: &corev1.PodSecurityContext{
						RunAsNonRoot: ptr.To(true),
						SeccompProfile: &corev1.SeccompProfile{
							Type: corev1.SeccompProfileTypeRuntimeDefault,
						},
					},
					Containers: []corev1.Container{
						{
							Name:  constants.ContainerNameTopicController,
							Image: spec.Image,
							Ports: []corev1.ContainerPort{
								{
									Name:          constants.PortNameHealthCheck,
									ContainerPort: HealthCheckPort,
									Protocol:      corev1.ProtocolTCP,
								},
							},
							Env:            containerEnv(spec),
							LivenessProbe:  healthProbe(spec.HealthCheck, HealthCheckLivenessPath),
							ReadinessProbe: healthProbe(spec.HealthCheck, HealthCheckReadinessPath),
							SecurityContext: &corev1.SecurityContext{
								AllowPrivilegeEscalation: ptr.To(false),
								Capabilities: &corev1.Capabilities{
									Drop: []corev1.Capability{"ALL"},
								},
							},
						},
					},
				},
			},
		},
	}
}

// PatchDeployment returns a copy of current carrying the image, environment and probes
// of spec. Everything else, including the replica count, is left as found. If current
// has no topic controller container one is appended.
func PatchDeployment(current *appsv1.Deployment, spec Spec) *appsv1.Deployment {
	patched := current.DeepCopy()

	if patched.Labels == nil {
		patched.Labels = map[string]string{}
	}
	for k, v := range Labels(spec.Cluster) {
		patched.Labels[k] = v
	}

	podSpec := &patched.Spec.Template.Spec
	idx := containerIndex(podSpec.Containers)
	if idx < 0 {
		podSpec.Containers = append(podSpec.Containers, corev1.Container{Name: constants.ContainerNameTopicController})
		idx = len(podSpec.Containers) - 1
	}

	container := &podSpec.Containers[idx]
	container.Image = spec.Image
	container.Env = containerEnv(spec)
	container.LivenessProbe = healthProbe(spec.HealthCheck, HealthCheckLivenessPath)
	container.ReadinessProbe = healthProbe(spec.HealthCheck, HealthCheckReadinessPath)

	return patched
}

// containerIndex finds the topic controller container, falling back to the first one
// since that is the container ResolveFromDeployment observes.
func containerIndex(containers []corev1.Container) int {
	for i := range containers {
		if containers[i].Name == constants.ContainerNameTopicController {
			return i
		}
	}
	if len(containers) > 0 {
		return 0
	}
	return -1
}

func containerEnv(spec Spec) []corev1.EnvVar {
	vars := spec.envVars()
	env := make([]corev1.EnvVar, 0, len(vars))
	for _, v := range vars {
		env = append(env, corev1.EnvVar{Name: v.name, Value: v.value})
	}
	return env
}

func healthProbe(hc HealthCheck, path string) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path: path,
				Port: intstr.FromString(constants.PortNameHealthCheck),
			},
		},
		InitialDelaySeconds: hc.InitialDelaySeconds,
		TimeoutSeconds:      hc.TimeoutSeconds,
	}
}
