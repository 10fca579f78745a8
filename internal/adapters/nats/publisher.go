package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
)

var _ ports.EventPublisher = (*Publisher)(nil)

const (
	// SearchStream stores completed search events.
	SearchStream = "HALFWAY_SEARCHES"
	// SubjectSearchCompleted is published once per rendered venue list.
	SubjectSearchCompleted = "halfway.search.completed"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and makes sure the search stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("halfway-api"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := searchStreamConfig()
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func searchStreamConfig() nats.StreamConfig {
	return nats.StreamConfig{
		Name:       SearchStream,
		Subjects:   []string{"halfway.search.>"},
		Retention:  nats.LimitsPolicy,
		MaxAge:     7 * 24 * time.Hour,
		Storage:    nats.FileStorage,
		Duplicates: 2 * time.Minute,
	}
}

// PublishSearch publishes a completed search. The record ID is the JetStream
// message ID, so a resend inside the duplicate window is dropped by the server.
func (p *Publisher) PublishSearch(ctx context.Context, rec *domain.SearchRecord) error {
	msg, err := searchMessage(rec)
	if err != nil {
		return err
	}
	_, err = p.js.PublishMsg(msg, nats.Context(ctx), nats.MsgId(rec.ID))
	return err
}

func searchMessage(rec *domain.SearchRecord) (*nats.Msg, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal search record: %w", err)
	}
	msg := nats.NewMsg(SubjectSearchCompleted)
	msg.Data = data
	msg.Header.Set("Halfway-Category", string(rec.Category))
	return msg, nil
}

// Connected reports whether the connection is currently up.
func (p *Publisher) Connected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
