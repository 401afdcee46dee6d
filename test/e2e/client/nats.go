package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/aos/events"
	"github.com/c360studio/aos/session"
	"github.com/c360studio/aos/storage"
	"github.com/c360studio/semstreams/natsclient"
)

// NATSClient seeds sessions into the service's KV bucket and reads the
// submission events it publishes.
type NATSClient struct {
	client   *natsclient.Client
	js       jetstream.JetStream
	sessions *storage.KVSessionStore
	closed   bool
	mu       sync.Mutex
}

// NewNATSClient connects to NATS and opens the service's session bucket and
// events stream. The service must have created the bucket.
func NewNATSClient(ctx context.Context, natsURL string) (*NATSClient, error) {
	client, err := natsclient.NewClient(natsURL,
		natsclient.WithName("aos-e2e"),
		natsclient.WithMaxReconnects(5),
		natsclient.WithReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("NATS connection timeout: %w", err)
	}

	js, err := client.JetStream()
	if err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("get JetStream context: %w", err)
	}

	sessions, err := storage.OpenKVSessionStore(ctx, js, nil)
	if err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	if err := events.EnsureStream(ctx, js); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}

	return &NATSClient{client: client, js: js, sessions: sessions}, nil
}

// Close closes the NATS client.
func (c *NATSClient) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	return c.client.Close(ctx)
}

// Put stores sess as the session of its user.
func (c *NATSClient) Put(ctx context.Context, sess *session.Session) error {
	return c.sessions.Put(ctx, sess)
}

// WaitForSubmitted returns the first submission event for caseID, waiting up
// to timeout for it to arrive.
func (c *NATSClient) WaitForSubmitted(ctx context.Context, caseID string, timeout time.Duration) (*events.Submitted, error) {
	cons, err := c.js.OrderedConsumer(ctx, events.StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{events.Submitted{CaseID: caseID}.Subject()},
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}

	msg, err := cons.Next(jetstream.FetchMaxWait(timeout))
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) {
			return nil, fmt.Errorf("no submission event for case %s within %s", caseID, timeout)
		}
		return nil, fmt.Errorf("fetch event: %w", err)
	}

	var e events.Submitted
	if err := json.Unmarshal(msg.Data(), &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &e, nil
}
