// Package mqttclient provides a small wrapper around paho.mqtt.golang for
// publishing retained, at-least-once messages with automatic reconnection.
package mqttclient

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config is the required properties to connect to a broker.
type Config struct {
	Broker        string
	Port          int
	ClientID      string
	KeepAlive     time.Duration
	ReconnectWait time.Duration
}

// Client wraps a paho mqtt.Client with the reconnect-and-log behavior the
// result publisher needs.
type Client struct {
	inner mqtt.Client
	cfg   Config
}

// Open connects to the configured broker. The connection uses paho's own
// auto-reconnect; OnConnectionLost only logs, matching the teacher's pattern
// of never letting a transport hiccup kill the owning loop.
func Open(cfg Config, onLost func(error)) (*Client, error) {
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 60 * time.Second
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 5 * time.Second
	}
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetKeepAlive(cfg.KeepAlive).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(cfg.ReconnectWait).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			if onLost != nil {
				onLost(err)
			}
		})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(30*time.Second) || token.Error() != nil {
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("connecting to mqtt broker %s:%d: %w", cfg.Broker, cfg.Port, err)
		}
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s:%d", cfg.Broker, cfg.Port)
	}
	return &Client{inner: c, cfg: cfg}, nil
}

// PublishRetained publishes payload at QoS 1, retained, as §4.8/§6 require.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	token := c.inner.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// Close disconnects cleanly, waiting up to 250ms for in-flight work.
func (c *Client) Close() {
	c.inner.Disconnect(250)
}

// Topic renders the results topic template for a client/session pair,
// normalizing any trailing slash the template might carry.
func Topic(template string, clientID string, sessionID string) string {
	t := template
	for len(t) > 0 && t[len(t)-1] == '/' {
		t = t[:len(t)-1]
	}
	return fmt.Sprintf("%s/client/%s/session/%s/", topicBase(t), clientID, sessionID)
}

// topicBase strips a trailing "/client/{client_id}/session/{session_id}"
// suffix if the caller's template already included it, so Topic can be
// called with either a bare "results" root or the full template from §6.
func topicBase(t string) string {
	const suffix = "/client/{client_id}/session/{session_id}"
	if len(t) > len(suffix) && t[len(t)-len(suffix):] == suffix {
		return t[:len(t)-len(suffix)]
	}
	return t
}
