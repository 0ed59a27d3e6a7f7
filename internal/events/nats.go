package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/mdsite/internal/eventstore"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/retry"
)

// DefaultSubject is the subject prefix used when none is configured.
const DefaultSubject = "mdsite.events"

const flushTimeout = 5 * time.Second

// Envelope is the JSON document published for each event.
type Envelope struct {
	RunID     string            `json:"run_id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewEnvelope copies event into its wire form.
func NewEnvelope(event eventstore.Event) Envelope {
	env := Envelope{
		RunID:     event.RunID(),
		Type:      event.Type(),
		Timestamp: event.Timestamp(),
		Metadata:  event.Metadata(),
	}
	if len(event.Payload()) > 0 {
		env.Payload = json.RawMessage(event.Payload())
	}
	return env
}

// Subject returns the subject an event of eventType is published on,
// e.g. "mdsite.events.RunStarted".
func Subject(prefix, eventType string) string {
	if prefix == "" {
		prefix = DefaultSubject
	}
	return prefix + "." + eventType
}

// NATSSink publishes events to NATS.
type NATSSink struct {
	conn    *nats.Conn
	subject string
	policy  retry.Policy
	logger  *slog.Logger
}

// NewNATSSink connects to url. Events go to "<subject>.<type>".
func NewNATSSink(url, subject string, logger *slog.Logger) (*NATSSink, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("mdsite"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("NATS event sink connected", slog.String("url", url), slog.String("subject", subject))
	return &NATSSink{conn: conn, subject: subject, policy: retry.DefaultPolicy(), logger: logger}, nil
}

func (s *NATSSink) Emit(ctx context.Context, event eventstore.Event) error {
	data, err := json.Marshal(NewEnvelope(event))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := Subject(s.subject, event.Type())
	err = s.policy.Do(ctx, func() error {
		if err := s.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
		flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
		defer cancel()
		if err := s.conn.FlushWithContext(flushCtx); err != nil {
			return fmt.Errorf("failed to flush event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Published event", logfields.Event(event.Type()), logfields.RunID(event.RunID()))
	return nil
}

// Close drains and closes the connection.
func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return err
	}
	return nil
}
