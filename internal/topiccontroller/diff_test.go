package topiccontroller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	operatorerrors "github.com/dc-tec/kafka-cluster-operator/internal/errors"
)

// mutations changes exactly one compared field of a Spec.
var mutations = map[Field]func(*Spec){
	FieldImage:                     func(s *Spec) { s.Image = "strimzi/topic-controller:9.9" },
	FieldKafkaBootstrapServers:     func(s *Spec) { s.KafkaBootstrapServers = "elsewhere:9092" },
	FieldZookeeperConnect:          func(s *Spec) { s.ZookeeperConnect = "elsewhere:2181" },
	FieldWatchedNamespace:          func(s *Spec) { s.WatchedNamespace = "other" },
	FieldReconciliationIntervalMs:  func(s *Spec) { s.ReconciliationIntervalMs = "1" },
	FieldZookeeperSessionTimeoutMs: func(s *Spec) { s.ZookeeperSessionTimeoutMs = "2" },
	FieldTopicMetadataMaxAttempts:  func(s *Spec) { s.TopicMetadataMaxAttempts = 99 },
	FieldConfigMapLabels:           func(s *Spec) { s.ConfigMapLabels = "app=other" },
	FieldHealthCheck:               func(s *Spec) { s.HealthCheck.TimeoutSeconds = 42 },
}

func TestDiff_NilObserved(t *testing.T) {
	assert.Nil(t, Diff(DefaultSpec("kafka", "my-cluster"), nil))
}

func TestDiff_Idempotent(t *testing.T) {
	s := DefaultSpec("kafka", "my-cluster")
	for _, mutate := range mutations {
		mutate(&s)
	}
	observed := s

	result := Diff(s, &observed)
	require.NotNil(t, result)
	assert.False(t, result.Changed)
	assert.Empty(t, result.ChangedFields)
	assert.Empty(t, result.Changes)
}

func TestDiff_ReportsEachFieldAlone(t *testing.T) {
	require.Len(t, mutations, len(ComparedFields), "every compared field needs a mutation")

	for _, field := range ComparedFields {
		t.Run(string(field), func(t *testing.T) {
			desired := DefaultSpec("kafka", "my-cluster")
			observed := desired
			mutations[field](&observed)

			result := Diff(desired, &observed)
			require.NotNil(t, result)
			assert.True(t, result.Changed)
			assert.Equal(t, []Field{field}, result.ChangedFields)
			assert.True(t, result.Has(field))
		})
	}
}

func TestDiff_Symmetric(t *testing.T) {
	a := DefaultSpec("kafka", "my-cluster")
	b := a
	mutations[FieldImage](&b)
	mutations[FieldWatchedNamespace](&b)
	mutations[FieldHealthCheck](&b)

	ab := Diff(a, &b)
	ba := Diff(b, &a)
	assert.Equal(t, ab.ChangedFields, ba.ChangedFields)
	for i := range ab.Changes {
		assert.Equal(t, ab.Changes[i].Desired, ba.Changes[i].Observed)
		assert.Equal(t, ab.Changes[i].Observed, ba.Changes[i].Desired)
	}
}

func TestDiff_ReportsAllChangesInOrder(t *testing.T) {
	desired := DefaultSpec("kafka", "my-cluster")
	observed := desired
	for _, mutate := range mutations {
		mutate(&observed)
	}

	result := Diff(desired, &observed)
	assert.Equal(t, ComparedFields, result.ChangedFields)
}

func TestDiff_ImageChange(t *testing.T) {
	desired := DefaultSpec("kafka", "my-cluster")
	desired.Image = "strimzi/topic-controller:0.2"
	observed := desired
	observed.Image = "strimzi/topic-controller:0.1"

	result := Diff(desired, &observed)
	require.NotNil(t, result)
	assert.True(t, result.Changed)
	assert.Equal(t, []Field{FieldImage}, result.ChangedFields)
	assert.Equal(t, []FieldChange{{
		Field:    FieldImage,
		Desired:  "strimzi/topic-controller:0.2",
		Observed: "strimzi/topic-controller:0.1",
	}}, result.Changes)
}

func TestDiff_IgnoresReplicas(t *testing.T) {
	desired := DefaultSpec("kafka", "my-cluster")
	observed := desired
	observed.Replicas = 4

	result := Diff(desired, &observed)
	assert.False(t, result.Changed)
	assert.False(t, desired.Equal(observed), "Equal still compares replicas")
}

func TestDiffDeployment(t *testing.T) {
	desired := DefaultSpec("kafka", "my-cluster")

	result, err := DiffDeployment(desired, nil)
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = DiffDeployment(desired, GenerateDeployment(desired))
	require.NoError(t, err)
	assert.False(t, result.Changed)

	updated := desired
	updated.ZookeeperSessionTimeoutMs = "30000"
	result, err = DiffDeployment(updated, GenerateDeployment(desired))
	require.NoError(t, err)
	assert.Equal(t, []Field{FieldZookeeperSessionTimeoutMs}, result.ChangedFields)

	_, err = DiffDeployment(desired, bareDeployment())
	assert.True(t, operatorerrors.IsMalformedResource(err))
}

func TestDiffResult_HasOnNil(t *testing.T) {
	var r *DiffResult
	assert.False(t, r.Has(FieldImage))
}
