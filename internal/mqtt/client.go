package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Options configures a Client.
type Options struct {
	Broker   string
	Port     int
	ClientID string // generated when empty
}

// MessageHandler receives raw payloads for a subscribed topic.
type MessageHandler func(topic string, payload []byte)

// Client wraps a paho client with context-aware connect and JSON publishing.
type Client struct {
	client paho.Client
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool
	subs      map[string]MessageHandler

	stopCh   chan struct{}
	stopOnce sync.Once
}

// ClientID returns id, or a fresh pressure-forecast-<uuid> identifier when id is empty.
func ClientID(id string) string {
	if id != "" {
		return id
	}
	return "pressure-forecast-" + uuid.NewString()
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	c := &Client{
		logger: logger,
		subs:   make(map[string]MessageHandler),
		stopCh: make(chan struct{}),
	}

	po := paho.NewClientOptions()
	po.AddBroker(fmt.Sprintf("tcp://%s:%d", opts.Broker, opts.Port))
	po.SetClientID(ClientID(opts.ClientID))
	po.SetCleanSession(true)

	po.SetAutoReconnect(true)
	po.SetConnectRetry(true)
	po.SetConnectRetryInterval(5 * time.Second)
	po.SetMaxReconnectInterval(60 * time.Second)

	po.SetKeepAlive(30 * time.Second)
	po.SetPingTimeout(10 * time.Second)

	po.SetOnConnectHandler(func(pc paho.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", opts.Broker, "port", opts.Port)

		// Clean sessions drop subscriptions on reconnect.
		c.mu.RLock()
		subs := make(map[string]MessageHandler, len(c.subs))
		for t, h := range c.subs {
			subs[t] = h
		}
		c.mu.RUnlock()
		for topic, h := range subs {
			if err := c.subscribe(topic, h); err != nil {
				logger.Warn("mqtt resubscribe failed", "topic", topic, "error", err)
			}
		}
	})
	po.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = paho.NewClient(po)
	return c
}

// Connect dials the broker and blocks until connected, ctx is done, or the
// client is disconnected.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("mqtt client stopped")
	default:
	}

	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			// The on-connect handler runs asynchronously.
			c.setConnected(true)
			return nil
		}

		select {
		case <-ctx.Done():
			c.client.Disconnect(0)
			return ctx.Err()
		case <-c.stopCh:
			c.client.Disconnect(0)
			return fmt.Errorf("mqtt client stopped")
		default:
		}
	}
}

// Subscribe registers handler for topic at QoS 1. The subscription is
// restored after reconnects.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()

	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}
	return c.subscribe(topic, handler)
}

func (c *Client) subscribe(topic string, handler MessageHandler) error {
	const qos = byte(1)
	token := c.client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	c.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

// PublishJSON marshals v and publishes it at QoS 1.
func (c *Client) PublishJSON(topic string, retained bool, v any) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	token := c.client.Publish(topic, 1, retained, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect unsubscribes and closes the connection. Safe to call more than once.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.IsConnected() {
		c.mu.RLock()
		topics := make([]string, 0, len(c.subs))
		for t := range c.subs {
			topics = append(topics, t)
		}
		c.mu.RUnlock()
		if len(topics) > 0 {
			c.client.Unsubscribe(topics...).WaitTimeout(2 * time.Second)
		}
	}

	c.client.Disconnect(250)
	c.setConnected(false)
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
