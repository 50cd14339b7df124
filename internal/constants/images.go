package constants

// DefaultTopicControllerImage is used when the cluster document does not name an image.
const DefaultTopicControllerImage = "strimzi/topic-controller:latest"
