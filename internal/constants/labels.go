package constants

// Common Kubernetes label keys used by the operator.
const (
	LabelAppName      = "app.kubernetes.io/name"
	LabelAppInstance  = "app.kubernetes.io/instance"
	LabelAppManagedBy = "app.kubernetes.io/managed-by"
	LabelAppComponent = "app.kubernetes.io/component"

	LabelStrimziCluster = "strimzi.io/cluster"
	LabelStrimziKind    = "strimzi.io/kind"
	LabelStrimziType    = "strimzi.io/type"
)

// Common label values used by the operator.
const (
	LabelValueAppNameKafka             = "kafka"
	LabelValueAppManagedByOperator     = "kafka-cluster-operator"
	LabelValueComponentTopicController = "topic-controller"

	// LabelValueKindCluster marks the ConfigMap that declares a Kafka cluster.
	LabelValueKindCluster = "cluster"
	// LabelValueKindTopic is the kind of ConfigMaps the topic controller watches by default.
	LabelValueKindTopic = "topic"
	// LabelValueTypeTopicController is the type label placed on topic controller resources.
	LabelValueTypeTopicController = "topic"
)
