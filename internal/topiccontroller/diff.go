package topiccontroller

import (
	"fmt"
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
)

// Field names a setting compared by Diff.
type Field string

// Fields compared by Diff, in the order they are reported.
const (
	FieldImage                     Field = "image"
	FieldKafkaBootstrapServers     Field = "kafkaBootstrapServers"
	FieldZookeeperConnect          Field = "zookeeperConnect"
	FieldWatchedNamespace          Field = "watchedNamespace"
	FieldReconciliationIntervalMs  Field = "reconciliationIntervalMs"
	FieldZookeeperSessionTimeoutMs Field = "zookeeperSessionTimeoutMs"
	FieldTopicMetadataMaxAttempts  Field = "topicMetadataMaxAttempts"
	FieldConfigMapLabels           Field = "configMapLabels"
	FieldHealthCheck               Field = "healthCheck"
)

// ComparedFields lists every Field Diff inspects. Replicas are absent: the replica
// count of a running controller may be changed out of band and is not drift.
var ComparedFields = []Field{
	FieldImage,
	FieldKafkaBootstrapServers,
	FieldZookeeperConnect,
	FieldWatchedNamespace,
	FieldReconciliationIntervalMs,
	FieldZookeeperSessionTimeoutMs,
	FieldTopicMetadataMaxAttempts,
	FieldConfigMapLabels,
	FieldHealthCheck,
}

// FieldChange records one differing field with both of its rendered values.
type FieldChange struct {
	Field    Field
	Desired  string
	Observed string
}

// DiffResult is the outcome of comparing a desired Spec with an observed one.
type DiffResult struct {
	// Changed is true when at least one compared field differs.
	Changed bool
	// ChangedFields holds the names of the differing fields in ComparedFields order.
	ChangedFields []Field
	// Changes carries the same fields together with their values.
	Changes []FieldChange
}

// Diff compares desired with observed. It returns nil when observed is nil, which
// callers treat as "the Deployment must be created". A non-nil result with Changed
// false means no action is needed.
func Diff(desired Spec, observed *ObservedSpec) *DiffResult {
	if observed == nil {
		return nil
	}

	result := &DiffResult{}
	for _, f := range ComparedFields {
		d, o := f.render(desired), f.render(*observed)
		if d == o {
			continue
		}
		result.ChangedFields = append(result.ChangedFields, f)
		result.Changes = append(result.Changes, FieldChange{Field: f, Desired: d, Observed: o})
	}
	result.Changed = len(result.ChangedFields) > 0
	return result
}

// DiffDeployment observes dep and diffs it against desired. A nil dep yields a nil
// result.
func DiffDeployment(desired Spec, dep *appsv1.Deployment) (*DiffResult, error) {
	observed, err := ResolveFromDeployment(desired.Namespace, desired.Cluster, dep)
	if err != nil {
		return nil, err
	}
	return Diff(desired, observed), nil
}

// Has reports whether f is among the changed fields.
func (r *DiffResult) Has(f Field) bool {
	if r == nil {
		return false
	}
	for _, c := range r.ChangedFields {
		if c == f {
			return true
		}
	}
	return false
}

func (f Field) render(s Spec) string {
	switch f {
	case FieldImage:
		return s.Image
	case FieldKafkaBootstrapServers:
		return s.KafkaBootstrapServers
	case FieldZookeeperConnect:
		return s.ZookeeperConnect
	case FieldWatchedNamespace:
		return s.WatchedNamespace
	case FieldReconciliationIntervalMs:
		return s.ReconciliationIntervalMs
	case FieldZookeeperSessionTimeoutMs:
		return s.ZookeeperSessionTimeoutMs
	case FieldTopicMetadataMaxAttempts:
		return strconv.Itoa(s.TopicMetadataMaxAttempts)
	case FieldConfigMapLabels:
		return s.ConfigMapLabels
	case FieldHealthCheck:
		return fmt.Sprintf("initialDelaySeconds=%d,timeoutSeconds=%d",
			s.HealthCheck.InitialDelaySeconds, s.HealthCheck.TimeoutSeconds)
	default:
		return ""
	}
}
