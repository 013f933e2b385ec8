package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/codesnap-api/internal/dto"
)

// EventPublisher announces grading outcomes to other services.
type EventPublisher interface {
	PublishAttemptGraded(ctx context.Context, event dto.AttemptGradedEvent) error
}

type attemptEnvelope struct {
	Source string                 `json:"source"`
	Event  dto.AttemptGradedEvent `json:"event"`
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
	nodeID  string
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// NewNATSEventPublisher publishes events on subject. A nil connection disables publishing.
func NewNATSEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) EventPublisher {
	return &natsEventPublisher{
		conn:    conn,
		subject: subject,
		nodeID:  uuid.NewString(),
		tracer:  otel.Tracer("github.com/noah-isme/codesnap-api/internal/service/events"),
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) PublishAttemptGraded(ctx context.Context, event dto.AttemptGradedEvent) error {
	if p.conn == nil || p.subject == "" {
		return nil
	}

	_, span := p.tracer.Start(ctx, "events.attempt_graded", trace.WithAttributes(
		attribute.String("messaging.destination", p.subject),
		attribute.Int("attempt.id", int(event.AttemptID)),
	))
	defer span.End()

	payload, err := json.Marshal(attemptEnvelope{Source: p.nodeID, Event: event})
	if err != nil {
		return fmt.Errorf("encode attempt event: %w", err)
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		span.RecordError(err)
		return fmt.Errorf("publish attempt event: %w", err)
	}

	p.logger.Debug().Uint("attempt_id", event.AttemptID).Str("subject", p.subject).Msg("attempt event published")
	return nil
}
