package constants

// Resource name suffixes used by the operator when creating per-cluster resources.
const (
	SuffixKafka           = "-kafka"
	SuffixZookeeper       = "-zookeeper"
	SuffixTopicController = "-topic-controller"
)

// Well-known container, port and account names.
const (
	ContainerNameTopicController = "topic-controller"

	PortNameHealthCheck = "healthcheck"

	// ServiceAccountClusterController is the account the topic controller pods run as.
	ServiceAccountClusterController = "strimzi-cluster-controller"
)

// ConfigMap data keys.
const (
	// KeyTopicControllerConfig holds the topic controller document in a cluster ConfigMap.
	KeyTopicControllerConfig = "topic-controller-config"
)

// Controller names registered with the manager.
const (
	ControllerNameTopicController = "topic-controller"
)

// FieldOwner is the field manager used for writes issued by the operator.
const FieldOwner = "kafka-cluster-operator"
