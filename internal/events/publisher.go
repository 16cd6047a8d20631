package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Discovery lifecycle subjects. Consumers (CRM sync, email follow-up) hang
// off these; nothing in this service depends on them being delivered.
const (
	SubjectSessionStarted   = "nextstage.discovery.session.started"
	SubjectSessionCompleted = "nextstage.discovery.session.completed"
	SubjectBriefGenerated   = "nextstage.discovery.brief.generated"
)

// SessionCompleted is the payload published when a discovery conversation
// reaches completion.
type SessionCompleted struct {
	SessionRef  string            `json:"session_ref"`
	Fields      map[string]string `json:"fields"`
	TurnCount   int               `json:"turn_count"`
	CompletedAt string            `json:"completed_at"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func Connect(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

func (p *Publisher) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

func (p *Publisher) Close() {
	p.conn.Close()
}
