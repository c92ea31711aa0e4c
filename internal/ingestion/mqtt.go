package ingestion

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MQTTChannel is the realtime feed adapter: one topic subscription at QoS 1
// over a broker-managed reconnecting connection. Backoff and retry live in
// the paho client; the coordinator only sees connect/disconnect transitions.
type MQTTChannel struct {
	brokerURL      string
	topic          string
	clientIDPrefix string
	connectTimeout time.Duration

	client mqtt.Client
}

func NewMQTTChannel(brokerURL, topic, clientIDPrefix string, connectTimeout time.Duration) *MQTTChannel {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	return &MQTTChannel{
		brokerURL:      brokerURL,
		topic:          topic,
		clientIDPrefix: clientIDPrefix,
		connectTimeout: connectTimeout,
	}
}

func (m *MQTTChannel) Connect(ctx context.Context, handlers ChannelHandlers) error {
	opts := mqtt.NewClientOptions().
		AddBroker(m.brokerURL).
		SetClientID(fmt.Sprintf("%s-%s", m.clientIDPrefix, uuid.NewString()[:8])).
		SetCleanSession(true).
		SetConnectTimeout(m.connectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(3 * time.Second)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		// Resubscribe on every (re)connect; clean sessions drop subscriptions.
		token := c.Subscribe(m.topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			if handlers.OnMessage != nil {
				handlers.OnMessage(msg.Payload())
			}
		})
		token.Wait()
		if err := token.Error(); err != nil {
			if handlers.OnDisconnect != nil {
				handlers.OnDisconnect(fmt.Errorf("subscribe failed: %w", err))
			}
			return
		}
		if handlers.OnConnect != nil {
			handlers.OnConnect()
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if handlers.OnDisconnect != nil {
			handlers.OnDisconnect(err)
		}
	})

	m.client = mqtt.NewClient(opts)

	token := m.client.Connect()
	if !token.WaitTimeout(m.connectTimeout) {
		return fmt.Errorf("mqtt connect timed out after %s", m.connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		m.Close()
		return err
	}
	return nil
}

// Close disconnects from the broker, waiting briefly for in-flight handler
// calls to finish. No callbacks fire after Close returns.
func (m *MQTTChannel) Close() {
	if m.client == nil {
		return
	}
	m.client.Disconnect(250)
}
