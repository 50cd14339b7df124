package topiccontroller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-containerregistry/pkg/name"
	"gopkg.in/yaml.v3"
	corev1 "k8s.io/api/core/v1"

	"github.com/dc-tec/kafka-cluster-operator/internal/constants"
	operatorerrors "github.com/dc-tec/kafka-cluster-operator/internal/errors"
)

// configDocument is the topic controller section of a cluster ConfigMap. Every key
// is optional. Bootstrap servers, ZooKeeper connect and the ConfigMap selector are
// derived from the cluster and cannot be set here.
type configDocument struct {
	Image                     *string        `json:"image,omitempty" yaml:"image,omitempty"`
	WatchedNamespace          *string        `json:"watchedNamespace,omitempty" yaml:"watchedNamespace,omitempty"`
	ReconciliationIntervalMs  *numericString `json:"reconciliationIntervalMs,omitempty" yaml:"reconciliationIntervalMs,omitempty"`
	ZookeeperSessionTimeoutMs *numericString `json:"zookeeperSessionTimeoutMs,omitempty" yaml:"zookeeperSessionTimeoutMs,omitempty"`
	TopicMetadataMaxAttempts  *attemptCount  `json:"topicMetadataMaxAttempts,omitempty" yaml:"topicMetadataMaxAttempts,omitempty"`
}

// numericString holds a string setting that may also be written as an unquoted
// number. The text is kept exactly as written; an unquoted number must be a plain
// decimal integer (no sign, fraction, exponent, radix prefix, separators or leading zero).
type numericString string

func (n *numericString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = numericString(s)
		return nil
	}
	if !isDecimalLiteral(string(data)) {
		return fmt.Errorf("expected a string or a plain integer, got %s", string(data))
	}
	*n = numericString(data)
	return nil
}

func (n *numericString) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a string or a plain integer", node.Line)
	}
	if isStringStyle(node) {
		*n = numericString(node.Value)
		return nil
	}
	if !isDecimalLiteral(node.Value) {
		return fmt.Errorf("line %d: expected a string or a plain integer, got %s", node.Line, node.Value)
	}
	*n = numericString(node.Value)
	return nil
}

// attemptCount is an integer setting. It must be written as an unquoted plain
// decimal integer.
type attemptCount int

func (a *attemptCount) UnmarshalJSON(data []byte) error {
	return a.set(string(bytes.TrimSpace(data)))
}

func (a *attemptCount) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode || isStringStyle(node) {
		return fmt.Errorf("line %d: expected a plain integer", node.Line)
	}
	return a.set(node.Value)
}

func (a *attemptCount) set(text string) error {
	if !isDecimalLiteral(text) {
		return fmt.Errorf("expected a plain integer, got %s", text)
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("integer %s out of range: %w", text, err)
	}
	*a = attemptCount(v)
	return nil
}

// isStringStyle reports whether a scalar was written quoted or as a block scalar.
// Plain scalars are subject to YAML's type resolution and get the integer check.
func isStringStyle(node *yaml.Node) bool {
	return node.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) != 0
}

// isDecimalLiteral reports whether text is "0" or a run of ASCII digits without a
// leading zero.
func isDecimalLiteral(text string) bool {
	if text == "" || (len(text) > 1 && text[0] == '0') {
		return false
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return false
		}
	}
	return true
}

// decodeDocument reads a JSON document with encoding/json so number literals reach
// the field decoders verbatim. Anything else is read as YAML.
func decodeDocument(document string) (configDocument, error) {
	var doc configDocument
	if json.Valid([]byte(document)) {
		err := json.Unmarshal([]byte(document), &doc)
		return doc, err
	}
	err := yaml.Unmarshal([]byte(document), &doc)
	return doc, err
}

var specValidator = newSpecValidator()

func newSpecValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("image_ref", isImageReference); err != nil {
		panic(fmt.Sprintf("registering image_ref validation: %v", err))
	}
	return v
}

func isImageReference(fl validator.FieldLevel) bool {
	_, err := name.ParseReference(fl.Field().String())
	return err == nil
}

// specRules mirrors the Spec settings that a configuration document can influence.
type specRules struct {
	Image                     string `validate:"required,image_ref"`
	WatchedNamespace          string `validate:"required"`
	ReconciliationIntervalMs  string `validate:"required,number"`
	ZookeeperSessionTimeoutMs string `validate:"required,number"`
	TopicMetadataMaxAttempts  int    `validate:"gt=0"`
}

// ResolveFromConfig builds the desired Spec from a JSON or YAML configuration
// document. Keys missing from the document take their defaults; empty or
// whitespace-only values count as missing. It fails with ErrConfigParse when the
// document is not well-formed or a value is invalid, never because a key is absent.
func ResolveFromConfig(namespace, cluster, document string) (Spec, error) {
	spec := DefaultSpec(namespace, cluster)

	doc, err := decodeDocument(document)
	if err != nil {
		return Spec{}, operatorerrors.WrapConfigParse(fmt.Errorf("cluster %s/%s: %w", namespace, cluster, err))
	}

	if v := normalize(doc.Image); v != "" {
		spec.Image = v
	}
	if v := normalize(doc.WatchedNamespace); v != "" {
		spec.WatchedNamespace = v
	}
	if v := normalize((*string)(doc.ReconciliationIntervalMs)); v != "" {
		spec.ReconciliationIntervalMs = v
	}
	if v := normalize((*string)(doc.ZookeeperSessionTimeoutMs)); v != "" {
		spec.ZookeeperSessionTimeoutMs = v
	}
	if doc.TopicMetadataMaxAttempts != nil {
		spec.TopicMetadataMaxAttempts = int(*doc.TopicMetadataMaxAttempts)
	}

	rules := specRules{
		Image:                     spec.Image,
		WatchedNamespace:          spec.WatchedNamespace,
		ReconciliationIntervalMs:  spec.ReconciliationIntervalMs,
		ZookeeperSessionTimeoutMs: spec.ZookeeperSessionTimeoutMs,
		TopicMetadataMaxAttempts:  spec.TopicMetadataMaxAttempts,
	}
	if err := specValidator.Struct(rules); err != nil {
		return Spec{}, operatorerrors.WrapConfigParse(fmt.Errorf("cluster %s/%s: %w", namespace, cluster, err))
	}

	return spec, nil
}

// FromConfigMap resolves the desired Spec from a cluster ConfigMap. It returns nil
// when the ConfigMap does not configure a topic controller.
func FromConfigMap(cm *corev1.ConfigMap) (*Spec, error) {
	if cm == nil {
		return nil, nil
	}
	document, ok := cm.Data[constants.KeyTopicControllerConfig]
	if !ok {
		return nil, nil
	}

	spec, err := ResolveFromConfig(cm.Namespace, cm.Name, document)
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

func normalize(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
