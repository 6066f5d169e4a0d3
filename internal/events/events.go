// Package events publishes engine events for dashboards and other real-time
// observers. Delivery is best-effort.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

type NATSPublisher struct {
	Conn    *nats.Conn
	Subject string
}

// NewNATS connects to the given NATS URL. Subjects are published under
// subjectPrefix, e.g. "civicdesk.work_item.assigned".
func NewNATS(url, subjectPrefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("civicdesk-backend"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{Conn: nc, Subject: subjectPrefix}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, event string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Conn.Publish(p.Subject+"."+event, b)
}

func (p *NATSPublisher) Close() {
	_ = p.Conn.Drain()
}

// Noop stands in when no NATS URL is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
