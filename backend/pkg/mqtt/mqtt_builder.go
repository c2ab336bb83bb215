package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"smart-led-controller/backend/pkg/utils"
)

const (
	connectWarnInterval = 30 * time.Second
	subscribeTimeout    = 10 * time.Second
	disconnectQuiesce   = 250 // ms
)

// MQTTBuilder provides a fluent API for registering MQTT publications and subscriptions.
type MQTTBuilder struct {
	client        mqtt.Client
	wrappedClient *MQTTClient
	l             *slog.Logger
	mu            sync.RWMutex
	operationIDs  map[string]struct{}
	publications  map[string]*PublicationSpec
	subscriptions map[string]*SubscriptionSpec
	connected     atomic.Bool

	runConnectOnce atomic.Bool
}

// MQTTClientOptions contains configuration for creating an MQTT client.
type MQTTClientOptions struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
}

// NewMQTTBuilder creates a new MQTT builder with the given broker configuration.
func NewMQTTBuilder(l *slog.Logger, opts MQTTClientOptions) (*MQTTBuilder, error) {
	l = l.With(slog.String("component", "mqtt-builder"))

	if opts.BrokerURL == "" {
		return nil, errors.New("broker URL is required")
	}

	if opts.ClientID == "" {
		return nil, errors.New("client ID is required")
	}

	mb := &MQTTBuilder{
		l:             l,
		operationIDs:  make(map[string]struct{}),
		publications:  make(map[string]*PublicationSpec),
		subscriptions: make(map[string]*SubscriptionSpec),
	}

	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(opts.BrokerURL)
	clientOpts.SetClientID(opts.ClientID)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}

	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	// Retry every 5 seconds, max interval 15 seconds
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetry(true)
	clientOpts.SetConnectTimeout(5 * time.Second)
	clientOpts.SetConnectRetryInterval(5 * time.Second)
	clientOpts.SetMaxReconnectInterval(15 * time.Second)
	clientOpts.SetKeepAlive(30 * time.Second)

	// Set connection callbacks
	clientOpts.SetOnConnectHandler(mb.onConnect)
	clientOpts.SetConnectionLostHandler(mb.onConnectionLost)
	clientOpts.SetReconnectingHandler(mb.onReconnecting)

	mb.client = mqtt.NewClient(clientOpts)
	mb.wrappedClient = &MQTTClient{
		client:  mb.client,
		builder: mb,
	}

	l.Info("MQTT builder created", slog.String("broker", opts.BrokerURL), slog.String("clientID", opts.ClientID))

	return mb, nil
}

// Client returns the underlying MQTT client.
func (mb *MQTTBuilder) Client() *MQTTClient {
	return mb.wrappedClient
}

// RegisterPublish registers a publication operation.
func (mb *MQTTBuilder) RegisterPublish(topic string, spec PublicationSpec) error {
	if err := mb.validatePublicationSpec(spec); err != nil {
		return fmt.Errorf("invalid publication spec: %w", err)
	}

	return mb.register("publication", topic, spec.meta(), func() {
		spec.Topic = topic
		spec.TopicMQTT = convertTopicToMQTT(topic)
		mb.publications[spec.OperationID] = &spec
	})
}

// RegisterSubscribe registers a subscription operation. Subscriptions are (re)made on
// every successful connect.
func (mb *MQTTBuilder) RegisterSubscribe(topic string, spec SubscriptionSpec) error {
	if err := mb.validateSubscriptionSpec(spec); err != nil {
		return fmt.Errorf("invalid subscription spec: %w", err)
	}

	return mb.register("subscription", topic, spec.meta(), func() {
		spec.Topic = topic
		spec.TopicMQTT = convertTopicToMQTT(topic)
		mb.subscriptions[spec.OperationID] = &spec
	})
}

// MustRegisterPublish is RegisterPublish that panics on error. Registration happens at
// startup, where a bad spec is a programming error.
func (mb *MQTTBuilder) MustRegisterPublish(topic string, spec PublicationSpec) {
	if err := mb.RegisterPublish(topic, spec); err != nil {
		panic(err)
	}
}

func (mb *MQTTBuilder) MustRegisterSubscribe(topic string, spec SubscriptionSpec) {
	if err := mb.RegisterSubscribe(topic, spec); err != nil {
		panic(err)
	}
}

// register checks the topic and the operationID, then runs add under the lock.
func (mb *MQTTBuilder) register(kind, topic string, meta operationMeta, add func()) error {
	if mb.runConnectOnce.Load() {
		return fmt.Errorf("cannot register %s after connecting to MQTT broker", kind)
	}

	if err := validateTopicPattern(topic); err != nil {
		return fmt.Errorf("invalid topic pattern: %w", err)
	}

	if err := validateTopicParameters(topic, meta.params); err != nil {
		return fmt.Errorf("invalid topic parameters in operationID %s: %w", meta.id, err)
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, exists := mb.operationIDs[meta.id]; exists {
		return fmt.Errorf("duplicate operationID: %s", meta.id)
	}
	mb.operationIDs[meta.id] = struct{}{}
	add()

	mb.l.Info("Registered MQTT "+kind,
		slog.String("operationID", meta.id),
		slog.String("topic", topic),
		slog.String("group", meta.group),
	)
	return nil
}

// Connect blocks until the first connection succeeds or ctx is done. The client keeps
// retrying in the background, and reconnects resubscribe through onConnect.
func (mb *MQTTBuilder) Connect(ctx context.Context) error {
	mb.runConnectOnce.Store(true)

	mb.l.Info("Connecting to MQTT broker...")
	token := mb.client.Connect()

	ticker := time.NewTicker(connectWarnInterval)
	defer ticker.Stop()

	for {
		select {
		case <-token.Done():
			if err := token.Error(); err != nil {
				return fmt.Errorf("failed to connect to MQTT broker: %w", err)
			}
			mb.l.Info("Connected to MQTT broker")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			mb.l.Warn("MQTT has not done an initial connection yet, still waiting...")
		}
	}
}

// Disconnect disconnects from the MQTT broker.
func (mb *MQTTBuilder) Disconnect() {
	mb.connected.Store(false)
	if !mb.client.IsConnected() {
		return
	}

	mb.client.Disconnect(disconnectQuiesce)
	mb.l.Info("Disconnected from MQTT broker")
}

// onConnect runs on every connect and reconnect. A subscription that fails is logged
// and retried on the next reconnect.
func (mb *MQTTBuilder) onConnect(client mqtt.Client) {
	mb.mu.RLock()
	subs := make([]*SubscriptionSpec, 0, len(mb.subscriptions))
	for _, spec := range mb.subscriptions {
		subs = append(subs, spec)
	}
	mb.mu.RUnlock()

	mb.connected.Store(true)
	mb.l.Info("Connected to MQTT broker, subscribing to topics", slog.Int("subscriptionCount", len(subs)))

	for _, spec := range subs {
		attrs := []any{slog.String("topic", spec.TopicMQTT), slog.String("operationID", spec.OperationID)}

		token := client.Subscribe(spec.TopicMQTT, byte(spec.QoS), spec.Handler)
		if !token.WaitTimeout(subscribeTimeout) {
			mb.l.Error("Timed out subscribing", attrs...)
			continue
		}
		if err := token.Error(); err != nil {
			mb.l.Error("Failed to subscribe", append(attrs, utils.ErrAttr(err))...)
			continue
		}

		mb.l.Info("Subscribed", attrs...)
	}
}

func (mb *MQTTBuilder) onConnectionLost(_ mqtt.Client, err error) {
	mb.connected.Store(false)
	mb.l.Warn("Connection to MQTT broker lost", utils.ErrAttr(err))
}

func (mb *MQTTBuilder) onReconnecting(_ mqtt.Client, opts *mqtt.ClientOptions) {
	mb.l.Info("Reconnecting to MQTT broker", slog.String("broker", opts.Servers[0].String()))
}
