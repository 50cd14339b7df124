// Package logging holds structured logging helpers shared by controllers.
package logging

import (
	"sort"

	"github.com/go-logr/logr"
)

// Audit event types recorded for writes against topic controller Deployments.
const (
	AuditEventDeploymentCreated = "topic_controller_created"
	AuditEventDeploymentPatched = "topic_controller_patched"
	AuditEventDeploymentDeleted = "topic_controller_deleted"
)

// LogAuditEvent logs a structured audit event for an operator action.
// Audit events are tagged with "audit=true" so log pipelines can route them
// separately from debug output. Fields are emitted in key order.
func LogAuditEvent(logger logr.Logger, eventType string, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]interface{}, 0, 4+2*len(keys))
	kv = append(kv, "audit", "true", "event_type", eventType)
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	logger.WithValues(kv...).Info("Operator audit event")
}
