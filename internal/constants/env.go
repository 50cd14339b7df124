package constants

// Environment variable keys set on the topic controller container. The names are
// read back when observing a live Deployment, so they must stay stable.
const (
	EnvConfigMapLabels            = "CONFIGMAP_LABELS"
	EnvKafkaBootstrapServers      = "KAFKA_BOOTSTRAP_SERVERS"
	EnvZookeeperConnect           = "ZOOKEEPER_CONNECT"
	EnvWatchedNamespace           = "WATCHED_NAMESPACE"
	EnvFullReconciliationInterval = "FULL_RECONCILIATION_INTERVAL_MS"
	EnvZookeeperSessionTimeout    = "ZOOKEEPER_SESSION_TIMEOUT_MS"
	EnvTopicMetadataMaxAttempts   = "TOPIC_METADATA_MAX_ATTEMPTS"
)

// Environment variable keys read by the operator itself.
const (
	EnvPodNamespace = "POD_NAMESPACE"
)
