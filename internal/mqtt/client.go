package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Conn is the subset of the broker connection the bridge needs.
type Conn interface {
	Subscribe(topic string, handler paho.MessageHandler) error
	Publish(topic string, payload []byte, retained bool) error
}

// Options configures a Client.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// WillTopic, when set, receives a retained WillPayload if the daemon
	// drops off the broker without disconnecting.
	WillTopic   string
	WillPayload []byte
	Logger      *slog.Logger
}

// Client wraps the Paho client. Subscriptions are remembered and restored
// after every reconnect, since the session is clean.
type Client struct {
	client paho.Client
	broker string
	log    *slog.Logger

	mu   sync.Mutex
	subs map[string]paho.MessageHandler
}

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// NewClient builds a client. It does not connect.
func NewClient(o Options) *Client {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	c := &Client{
		broker: o.Broker,
		log:    o.Logger,
		subs:   make(map[string]paho.MessageHandler),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.log.Warn("mqtt connection lost", "broker", o.Broker, "error", err)
		})
	if o.Username != "" {
		opts.SetUsername(o.Username).SetPassword(o.Password)
	}
	if o.WillTopic != "" {
		opts.SetBinaryWill(o.WillTopic, o.WillPayload, 1, true)
	}

	c.client = paho.NewClient(opts)
	return c
}

// onConnect restores subscriptions. It runs on Paho's goroutine and must
// not wait on tokens.
func (c *Client) onConnect(pc paho.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, handler := range c.subs {
		pc.Subscribe(topic, 1, handler)
	}
	c.log.Info("mqtt connected", "broker", c.broker, "subscriptions", len(c.subs))
}

// Broker returns the broker URL.
func (c *Client) Broker() string {
	return c.broker
}

// Connect waits up to connectTimeout for the first connection.
func (c *Client) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return &TimeoutError{Op: "connect"}
	}
	return token.Error()
}

// Subscribe subscribes at QoS 1 and keeps the subscription across
// reconnects.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()

	token := c.client.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(connectTimeout) {
		return &TimeoutError{Op: "subscribe", Topic: topic}
	}
	return token.Error()
}

// Publish sends payload at QoS 1.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return &TimeoutError{Op: "publish", Topic: topic}
	}
	return token.Error()
}

// Disconnect waits up to a second for in-flight work, then disconnects.
func (c *Client) Disconnect() {
	c.client.Disconnect(1000)
}

// IsConnected reports whether the client is currently connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// TimeoutError reports a broker operation that was not acknowledged in
// time. Topic is empty for connect.
type TimeoutError struct {
	Op    string
	Topic string
}

func (e *TimeoutError) Error() string {
	if e.Topic == "" {
		return fmt.Sprintf("mqtt %s timeout", e.Op)
	}
	return fmt.Sprintf("mqtt %s timeout: %s", e.Op, e.Topic)
}

// StartWithRetry makes one connection attempt and reports whether it
// succeeded. Paho keeps retrying in the background either way.
func (c *Client) StartWithRetry() bool {
	if err := c.Connect(); err != nil {
		c.log.Warn("mqtt connect failed", "broker", c.broker, "error", err)
		return false
	}
	return true
}
