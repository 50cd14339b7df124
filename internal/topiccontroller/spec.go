// Package topiccontroller derives the desired and observed state of the topic
// controller Deployment that runs alongside a Kafka cluster, and diffs the two.
//
// Desired state comes from the cluster's configuration document, observed state
// from a live Deployment. Both directions fill missing values with the same default
// functions of (cluster, namespace), so a Deployment generated from a Spec and never
// touched afterwards always observes as equal to that Spec.
//
// Nothing in this package performs I/O.
package topiccontroller

import (
	"fmt"
	"strconv"

	"github.com/dc-tec/kafka-cluster-operator/internal/constants"
)

// Defaults for topic controller settings that do not depend on the cluster identity.
const (
	DefaultReplicas                  int32 = 1
	DefaultHealthCheckDelaySeconds   int32 = 10
	DefaultHealthCheckTimeoutSeconds int32 = 5
	DefaultReconciliationIntervalMs        = "900000"
	DefaultZookeeperSessionTimeoutMs       = "20000"
	DefaultTopicMetadataMaxAttempts        = 6

	HealthCheckPort             int32 = 8080
	HealthCheckLivenessPath           = "/healthy"
	HealthCheckReadinessPath          = "/ready"
	defaultZookeeperPort              = 2181
	defaultBootstrapServersPort       = 9092
)

// HealthCheck holds the probe timing used for both liveness and readiness probes.
type HealthCheck struct {
	InitialDelaySeconds int32
	TimeoutSeconds      int32
}

// Spec is the canonical description of a topic controller deployment.
//
// A Spec is a value: every resolver builds a new, fully populated one and nothing
// mutates it afterwards. Namespace and Cluster identify the owner and are not part
// of the comparison.
type Spec struct {
	Namespace string
	Cluster   string

	Image                     string
	Replicas                  int32
	WatchedNamespace          string
	ReconciliationIntervalMs  string
	ZookeeperSessionTimeoutMs string
	TopicMetadataMaxAttempts  int
	KafkaBootstrapServers     string
	ZookeeperConnect          string
	ConfigMapLabels           string
	HealthCheck               HealthCheck
}

// ObservedSpec is a Spec reconstructed from a live Deployment.
type ObservedSpec = Spec

// DefaultSpec returns the Spec used when nothing overrides any setting.
func DefaultSpec(namespace, cluster string) Spec {
	return Spec{
		Namespace:                 namespace,
		Cluster:                   cluster,
		Image:                     constants.DefaultTopicControllerImage,
		Replicas:                  DefaultReplicas,
		WatchedNamespace:          namespace,
		ReconciliationIntervalMs:  DefaultReconciliationIntervalMs,
		ZookeeperSessionTimeoutMs: DefaultZookeeperSessionTimeoutMs,
		TopicMetadataMaxAttempts:  DefaultTopicMetadataMaxAttempts,
		KafkaBootstrapServers:     DefaultBootstrapServers(cluster),
		ZookeeperConnect:          DefaultZookeeperConnect(cluster),
		ConfigMapLabels:           DefaultConfigMapLabels(cluster),
		HealthCheck: HealthCheck{
			InitialDelaySeconds: DefaultHealthCheckDelaySeconds,
			TimeoutSeconds:      DefaultHealthCheckTimeoutSeconds,
		},
	}
}

// Equal reports whether every setting of s and o is equal. Namespace and Cluster
// are ignored.
func (s Spec) Equal(o Spec) bool {
	return s.Image == o.Image &&
		s.Replicas == o.Replicas &&
		s.WatchedNamespace == o.WatchedNamespace &&
		s.ReconciliationIntervalMs == o.ReconciliationIntervalMs &&
		s.ZookeeperSessionTimeoutMs == o.ZookeeperSessionTimeoutMs &&
		s.TopicMetadataMaxAttempts == o.TopicMetadataMaxAttempts &&
		s.KafkaBootstrapServers == o.KafkaBootstrapServers &&
		s.ZookeeperConnect == o.ZookeeperConnect &&
		s.ConfigMapLabels == o.ConfigMapLabels &&
		s.HealthCheck == o.HealthCheck
}

// DeploymentName returns the name of the topic controller Deployment for a cluster.
func DeploymentName(cluster string) string {
	return cluster + constants.SuffixTopicController
}

// KafkaClusterName returns the name of the Kafka brokers' service.
func KafkaClusterName(cluster string) string {
	return cluster + constants.SuffixKafka
}

// ZookeeperClusterName returns the name of the ZooKeeper ensemble's service.
func ZookeeperClusterName(cluster string) string {
	return cluster + constants.SuffixZookeeper
}

// DefaultBootstrapServers returns <cluster>-kafka:9092.
func DefaultBootstrapServers(cluster string) string {
	return fmt.Sprintf("%s:%d", KafkaClusterName(cluster), defaultBootstrapServersPort)
}

// DefaultZookeeperConnect returns <cluster>-zookeeper:2181.
func DefaultZookeeperConnect(cluster string) string {
	return fmt.Sprintf("%s:%d", ZookeeperClusterName(cluster), defaultZookeeperPort)
}

// DefaultConfigMapLabels returns the selector for topic ConfigMaps of a cluster.
func DefaultConfigMapLabels(cluster string) string {
	return fmt.Sprintf("%s=%s,%s=%s",
		constants.LabelStrimziCluster, cluster,
		constants.LabelStrimziKind, constants.LabelValueKindTopic)
}

// envVars returns the key/value settings carried as container environment, in the
// order they are written to the Deployment.
func (s Spec) envVars() []envVar {
	return []envVar{
		{constants.EnvConfigMapLabels, s.ConfigMapLabels},
		{constants.EnvKafkaBootstrapServers, s.KafkaBootstrapServers},
		{constants.EnvZookeeperConnect, s.ZookeeperConnect},
		{constants.EnvWatchedNamespace, s.WatchedNamespace},
		{constants.EnvFullReconciliationInterval, s.ReconciliationIntervalMs},
		{constants.EnvZookeeperSessionTimeout, s.ZookeeperSessionTimeoutMs},
		{constants.EnvTopicMetadataMaxAttempts, strconv.Itoa(s.TopicMetadataMaxAttempts)},
	}
}

type envVar struct {
	name  string
	value string
}
