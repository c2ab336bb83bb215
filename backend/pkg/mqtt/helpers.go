package mqtt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var paramNameRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// validateTopicPattern validates an MQTT topic pattern with {param} placeholders.
// Valid patterns:
// - Parameters must be in {paramName} format (e.g., devices/{deviceID}/temperature)
// - Parameter names must start with a letter and contain only alphanumeric characters and underscores
// - Multi-level wildcards '#' are NOT supported for explicitness.
func validateTopicPattern(topic string) error {
	if topic == "" {
		return errors.New("topic cannot be empty")
	}

	if strings.HasPrefix(topic, "/") {
		return errors.New("leading slash is not allowed")
	}

	if strings.HasSuffix(topic, "/") {
		return errors.New("trailing slash is not allowed")
	}

	for segment := range strings.SplitSeq(topic, "/") {
		if segment == "" {
			return errors.New("empty segments are not allowed")
		}

		// Check for multi-level wildcard - not allowed
		if strings.Contains(segment, "#") {
			return errors.New("multi-level wildcard '#' is not supported - use explicit parameters {param} instead")
		}

		// Check for single-level wildcard - should use {param} instead
		if strings.Contains(segment, "+") {
			return errors.New("wildcard '+' is not supported - use parameter syntax {param} instead")
		}

		// Check for parameter syntax
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			paramName := segment[1 : len(segment)-1]
			if !paramNameRe.MatchString(paramName) {
				return fmt.Errorf("invalid parameter name '%s' - must start with a letter and contain only alphanumeric characters and underscores", paramName)
			}
		} else if strings.Contains(segment, "{") || strings.Contains(segment, "}") {
			return errors.New("invalid parameter syntax - use {paramName} format")
		}
	}

	return nil
}

// convertTopicToMQTT converts a parameterized topic (devices/{deviceID}/temperature)
// to an MQTT wildcard pattern (devices/+/temperature).
func convertTopicToMQTT(topic string) string {
	segments := strings.Split(topic, "/")
	for i, segment := range segments {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			segments[i] = "+"
		}
	}

	return strings.Join(segments, "/")
}

// validateQoS validates a QoS level.
func validateQoS(qos QoS) error {
	if qos != QoSAtMostOnce && qos != QoSAtLeastOnce && qos != QoSExactlyOnce {
		return errors.New("qos must be 0, 1, or 2")
	}

	return nil
}

// topicParamNames returns the {param} names of a validated topic pattern in order.
func topicParamNames(topic string) []string {
	var names []string
	for segment := range strings.SplitSeq(topic, "/") {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			names = append(names, segment[1:len(segment)-1])
		}
	}
	return names
}

// validateTopicParameters checks that every topic placeholder is documented and that
// nothing undocumented is described.
func validateTopicParameters(topic string, topicParams []TopicParameter) error {
	params := map[string]struct{}{}
	for _, name := range topicParamNames(topic) {
		params[name] = struct{}{}
	}

	documented := map[string]struct{}{}
	for _, paramSpec := range topicParams {
		if paramSpec.Name == "" {
			return fmt.Errorf("parameter name required for topic %s", topic)
		}

		if paramSpec.Description == "" {
			return fmt.Errorf("parameter Description required for topic %s", topic)
		}

		if _, exists := params[paramSpec.Name]; !exists {
			return fmt.Errorf("documented parameter %s not found in topic", paramSpec.Name)
		}

		documented[paramSpec.Name] = struct{}{}
	}

	for name := range params {
		if _, exists := documented[name]; !exists {
			return fmt.Errorf("topic parameter %s not documented", name)
		}
	}

	return nil
}

// TopicParams matches an actual topic against a pattern and returns the value of
// each {param}. ok is false when the topic does not match.
func TopicParams(pattern, topic string) (map[string]string, bool) {
	want := strings.Split(pattern, "/")
	got := strings.Split(topic, "/")
	if len(want) != len(got) {
		return nil, false
	}

	params := make(map[string]string)
	for i, segment := range want {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			if got[i] == "" {
				return nil, false
			}
			params[segment[1:len(segment)-1]] = got[i]
			continue
		}
		if segment != got[i] {
			return nil, false
		}
	}
	return params, true
}

// operationMeta is what publications and subscriptions have in common.
type operationMeta struct {
	id          string
	summary     string
	description string
	group       string
	params      []TopicParameter
	qos         QoS
}

func (s PublicationSpec) meta() operationMeta {
	return operationMeta{s.OperationID, s.Summary, s.Description, s.Group, s.TopicParameters, s.QoS}
}

func (s SubscriptionSpec) meta() operationMeta {
	return operationMeta{s.OperationID, s.Summary, s.Description, s.Group, s.TopicParameters, s.QoS}
}

func (m operationMeta) validate() error {
	switch {
	case m.id == "":
		return errors.New("operationID is required")
	case m.summary == "":
		return errors.New("summary is required")
	case m.description == "":
		return errors.New("description is required")
	case m.group == "":
		return errors.New("group is required")
	}
	return validateQoS(m.qos)
}

func (mb *MQTTBuilder) validatePublicationSpec(spec PublicationSpec) error {
	return spec.meta().validate()
}

func (mb *MQTTBuilder) validateSubscriptionSpec(spec SubscriptionSpec) error {
	if err := spec.meta().validate(); err != nil {
		return err
	}
	if spec.Handler == nil {
		return errors.New("handler is required")
	}
	return nil
}
