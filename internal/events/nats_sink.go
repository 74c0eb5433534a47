package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

type natsPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSSink publishes events on a subject.
type NATSSink struct {
	conn    natsPublisher
	subject string
}

// NewNATSSink wraps a NATS connection.
func NewNATSSink(conn natsPublisher, subject string) *NATSSink {
	if conn == nil {
		panic("events: nats connection cannot be nil")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "landing.events"
	}
	return &NATSSink{conn: conn, subject: subject}
}

func (s *NATSSink) Emit(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}
	msg := nats.NewMsg(s.subject + "." + evt.Name)
	msg.Header.Set("Nats-Msg-Id", evt.ID)
	msg.Data = data
	if err := s.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("events: publish nats event: %w", err)
	}
	return nil
}
