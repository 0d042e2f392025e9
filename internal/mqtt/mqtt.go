// Package mqtt publishes note events to an MQTT broker.
package mqtt

import (
	"context"
	"time"
)

// Client defines the operations the realtime processor needs from an MQTT
// connection.
type Client interface {
	// Connect attempts to connect to the broker. Repeated attempts within
	// the reconnect cooldown are rejected.
	Connect(ctx context.Context) error

	// Publish sends a message to the given topic.
	Publish(ctx context.Context, topic, payload string) error

	// IsConnected reports whether the client currently holds a broker
	// connection.
	IsConnected() bool

	// Disconnect closes the connection and stops any pending reconnect.
	Disconnect()
}

// Config holds the connection parameters for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Topic             string
	Retain            bool
	ReconnectCooldown time.Duration
	ReconnectDelay    time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		ReconnectCooldown: 5 * time.Second,
		ReconnectDelay:    1 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}
