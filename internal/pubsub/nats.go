package pubsub

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATS is a Bus backed by a NATS server, for deployments running more
// than one roombox instance against the same database.
type NATS struct {
	conn *nats.Conn
}

func NewNATS(url string) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("roombox"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATS{conn: conn}, nil
}

func (n *NATS) Publish(_ context.Context, subject string, payload []byte) error {
	if err := n.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (n *NATS) Subscribe(subject string, fn Handler) (func(), error) {
	sub, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		fn(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (n *NATS) Close() error {
	return n.conn.Drain()
}
