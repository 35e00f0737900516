package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Outbox queues emails on a watermill topic so callers never wait on SMTP.
// A Worker on the other side of the topic delivers them.
type Outbox struct {
	publisher message.Publisher
	topic     string
}

func NewOutbox(publisher message.Publisher, topic string) *Outbox {
	return &Outbox{publisher: publisher, topic: topic}
}

func (o *Outbox) SendVerificationEmail(ctx context.Context, toEmail, name, token string) error {
	return o.publish(ctx, Message{Kind: KindVerification, To: toEmail, Name: name, Token: token})
}

func (o *Outbox) SendPasswordResetEmail(ctx context.Context, toEmail, name, token string) error {
	return o.publish(ctx, Message{Kind: KindPasswordReset, To: toEmail, Name: name, Token: token})
}

func (o *Outbox) SendTutorApprovedEmail(ctx context.Context, toEmail, name string) error {
	return o.publish(ctx, Message{Kind: KindTutorApproved, To: toEmail, Name: name})
}

func (o *Outbox) SendTutorRejectedEmail(ctx context.Context, toEmail, name string) error {
	return o.publish(ctx, Message{Kind: KindTutorRejected, To: toEmail, Name: name})
}

func (o *Outbox) publish(ctx context.Context, m Message) error {
	if err := m.validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode email message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("kind", string(m.Kind))
	msg.SetContext(ctx)

	if err := o.publisher.Publish(o.topic, msg); err != nil {
		return fmt.Errorf("publish %s email: %w", m.Kind, err)
	}

	return nil
}
