package service

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/noah-isme/gema-gradebook/internal/dto"
	"github.com/noah-isme/gema-gradebook/internal/observability"
)

// GradeEventPublisher announces grading decisions to other services.
type GradeEventPublisher interface {
	PublishGraded(ctx context.Context, event dto.GradedEvent) error
}

type natsGradePublisher struct {
	conn    *nats.Conn
	subject string
}

type noopGradePublisher struct{}

// NewNATSGradePublisher publishes grade events on a NATS subject. Without a
// connection or subject the publisher discards events.
func NewNATSGradePublisher(conn *nats.Conn, subject string) GradeEventPublisher {
	if conn == nil || subject == "" {
		return noopGradePublisher{}
	}
	return &natsGradePublisher{conn: conn, subject: subject}
}

func (p *natsGradePublisher) PublishGraded(ctx context.Context, event dto.GradedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, event.ID)
	if correlationID := observability.CorrelationIDFrom(ctx); correlationID != "" {
		msg.Header.Set(observability.CorrelationHeader, correlationID)
	}
	return p.conn.PublishMsg(msg)
}

func (noopGradePublisher) PublishGraded(context.Context, dto.GradedEvent) error {
	return nil
}
