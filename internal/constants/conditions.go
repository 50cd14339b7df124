package constants

// Event reasons emitted on the cluster ConfigMap.
const (
	ReasonTopicControllerCreated = "TopicControllerCreated"
	ReasonTopicControllerPatched = "TopicControllerPatched"
	ReasonTopicControllerDeleted = "TopicControllerDeleted"

	ReasonInvalidConfig      = "InvalidConfig"
	ReasonMalformedResource  = "MalformedResource"
	ReasonLookupRetryFailure = "LookupRetriesExhausted"
)
