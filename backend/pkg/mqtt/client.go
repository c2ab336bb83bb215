package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"smart-led-controller/backend/pkg/utils"
)

// ErrNotConnected is returned when publishing while the broker is unreachable.
var ErrNotConnected = errors.New("not connected to MQTT broker")

const defaultPublishTimeout = 5 * time.Second

type MQTTClient struct {
	client  mqtt.Client
	builder *MQTTBuilder
}

// IsConnected reports whether the client currently holds a broker connection.
func (c *MQTTClient) IsConnected() bool {
	return c.builder.connected.Load() && c.client.IsConnectionOpen()
}

// Publish sends payload as JSON to actualTopic using the publication registered
// under operationID. It waits for the broker acknowledgement until ctx is done, or
// for a default timeout when ctx has no deadline.
func (c *MQTTClient) Publish(ctx context.Context, operationID string, actualTopic string, payload any) error {
	c.builder.mu.RLock()
	pub, ok := c.builder.publications[operationID]
	c.builder.mu.RUnlock()
	if !ok {
		return fmt.Errorf("publication not found for operationID %s", operationID)
	}

	if _, ok := TopicParams(pub.Topic, actualTopic); !ok {
		return fmt.Errorf("topic %s does not match publication %s (%s)", actualTopic, operationID, pub.Topic)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	bytes, err := utils.ToJSON(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	timeout := defaultPublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	token := c.client.Publish(actualTopic, byte(pub.QoS), pub.Retained, bytes)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("failed to publish to topic %s: %w", actualTopic, ctx.Err())
	case <-time.After(timeout):
		return fmt.Errorf("failed to publish to topic %s: timed out after %s", actualTopic, timeout)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", actualTopic, err)
	}

	return nil
}
