package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const subjectPrefix = "arena.match"

// Publisher отдаёт события жизненного цикла матча внешним коллаборантам.
type Publisher interface {
	PublishMatchStarted(payload MatchStartedPayload) error
	PublishMatchSettled(payload MatchSettledPayload) error
	PublishMatchCanceled(payload MatchCanceledPayload) error
	Close()
}

type natsPublisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

func NewNATSPublisher(url string, logger *slog.Logger) (Publisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &natsPublisher{nc: nc, logger: logger}, nil
}

func (p *natsPublisher) PublishMatchStarted(payload MatchStartedPayload) error {
	return p.publish("started", payload)
}

func (p *natsPublisher) PublishMatchSettled(payload MatchSettledPayload) error {
	return p.publish("settled", payload)
}

func (p *natsPublisher) PublishMatchCanceled(payload MatchCanceledPayload) error {
	return p.publish("canceled", payload)
}

func (p *natsPublisher) publish(kind string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	subject := fmt.Sprintf("%s.%s", subjectPrefix, kind)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (p *natsPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("failed to drain NATS connection", slog.Any("error", err))
	}
}

// NoopPublisher используется, когда NATS_URL не задан.
type NoopPublisher struct{}

func (NoopPublisher) PublishMatchStarted(MatchStartedPayload) error   { return nil }
func (NoopPublisher) PublishMatchSettled(MatchSettledPayload) error   { return nil }
func (NoopPublisher) PublishMatchCanceled(MatchCanceledPayload) error { return nil }
func (NoopPublisher) Close()                                          {}
