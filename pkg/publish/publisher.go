// Package publish pushes live snapshots to a NATS subject so venue
// dashboards away from the cabinet can follow games without polling.
package publish

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cfortin/slapshot/pkg/engine/types"
	"github.com/cfortin/slapshot/pkg/log"
	"github.com/nats-io/nats.go"
)

// DefaultSubject carries the per-tick status stream.
const DefaultSubject = "slapshot.status"

// reconnectWait spaces reconnect attempts. Reconnecting never gives
// up: a cabinet outliving a flaky venue network is the normal case.
const reconnectWait = 2 * time.Second

// Publisher sends snapshots over core NATS, at most once per
// broadcast. Delivery is best-effort: a failed publish is dropped and
// the next tick carries fresher state anyway.
type Publisher struct {
	conn    *nats.Conn
	subject string

	published atomic.Uint64
	failed    atomic.Uint64
}

type NewPublisherOptions struct {
	// URL of the NATS server, e.g. nats://localhost:4222.
	URL string
	// Subject overrides DefaultSubject when non-empty.
	Subject string
}

func NewPublisher(opts NewPublisherOptions) (*Publisher, error) {
	subject := opts.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(opts.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %v", opts.URL, err)
	}

	log.Info("Publishing status to subject %s on %s", subject, conn.ConnectedUrl())
	return &Publisher{conn: conn, subject: subject}, nil
}

// PublishStatus sends one snapshot to the status subject.
func (p *Publisher) PublishStatus(snapshot types.Snapshot) error {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %v", err)
	}
	if err := p.conn.Publish(p.subject, b); err != nil {
		p.failed.Add(1)
		return fmt.Errorf("failed to publish snapshot: %v", err)
	}
	p.published.Add(1)
	return nil
}

// Close flushes buffered publishes and closes the connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		log.Warn("Failed to drain NATS connection: %v", err)
		p.conn.Close()
	}
}

// PublisherStats reports publish outcomes for the stats endpoint.
type PublisherStats struct {
	Connected bool   `json:"connected"`
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
}

func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		Connected: p.conn.IsConnected(),
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
	}
}
