package logging

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
)

func TestLogAuditEvent(t *testing.T) {
	data := &sinkData{}
	logger := logr.New(&capturingSink{data: data})

	fields := map[string]string{
		"deployment": "kafka/my-cluster-topic-controller",
		"fields":     "image,healthCheck",
	}

	LogAuditEvent(logger, AuditEventDeploymentPatched, fields)

	assert.Equal(t, "Operator audit event", data.msg)
	assert.Equal(t, []interface{}{
		"audit", "true",
		"event_type", AuditEventDeploymentPatched,
		"deployment", "kafka/my-cluster-topic-controller",
		"fields", "image,healthCheck",
	}, data.keysAndValues)
}

func TestLogAuditEvent_NoFields(t *testing.T) {
	data := &sinkData{}
	logger := logr.New(&capturingSink{data: data})

	LogAuditEvent(logger, AuditEventDeploymentDeleted, nil)

	assert.Equal(t, []interface{}{"audit", "true", "event_type", AuditEventDeploymentDeleted}, data.keysAndValues)
}

type sinkData struct {
	msg           string
	keysAndValues []interface{}
}

// capturingSink implements logr.LogSink
type capturingSink struct {
	data     *sinkData
	localKVs []interface{}
}

func (s *capturingSink) Init(info logr.RuntimeInfo) {}
func (s *capturingSink) Enabled(level int) bool     { return true }
func (s *capturingSink) Info(level int, msg string, keysAndValues ...interface{}) {
	s.data.msg = msg
	allKVs := append([]interface{}{}, s.localKVs...)
	allKVs = append(allKVs, keysAndValues...)
	s.data.keysAndValues = allKVs
}
func (s *capturingSink) Error(err error, msg string, keysAndValues ...interface{}) {
	s.data.msg = msg
	allKVs := append([]interface{}{}, s.localKVs...)
	allKVs = append(allKVs, keysAndValues...)
	s.data.keysAndValues = allKVs
}
func (s *capturingSink) WithValues(keysAndValues ...interface{}) logr.LogSink {
	return &capturingSink{
		data:     s.data,
		localKVs: append(append([]interface{}{}, s.localKVs...), keysAndValues...),
	}
}
func (s *capturingSink) WithName(name string) logr.LogSink {
	return s
}
