package email

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/redmonkez12/tutorhub-identity/internal/logging"
)

// Sender delivers a single email
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Worker consumes the email topic and hands each message to a Sender.
// Delivery is best effort: failed or malformed messages are logged and acked.
type Worker struct {
	subscriber message.Subscriber
	topic      string
	sender     Sender
	logger     *logging.Logger
	done       chan struct{}
}

func NewWorker(subscriber message.Subscriber, topic string, sender Sender, logger *logging.Logger) *Worker {
	return &Worker{
		subscriber: subscriber,
		topic:      topic,
		sender:     sender,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start subscribes to the topic and processes messages until ctx is done
func (w *Worker) Start(ctx context.Context) error {
	messages, err := w.subscriber.Subscribe(ctx, w.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", w.topic, err)
	}

	go w.run(ctx, messages)
	return nil
}

// Done is closed once the worker has stopped
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) run(ctx context.Context, messages <-chan *message.Message) {
	defer close(w.done)

	w.logger.Info("email worker started", "topic", w.topic)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("email worker stopped")
			return
		case msg, ok := <-messages:
			if !ok {
				w.logger.Info("email worker stopped", "reason", "subscription closed")
				return
			}
			w.handle(ctx, msg)
			msg.Ack()
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg *message.Message) {
	m, err := decodeMessage(msg.Payload)
	if err != nil {
		w.logger.Error("dropping malformed email message", "message_id", msg.UUID, "error", err)
		return
	}

	if err := w.sender.Send(ctx, m); err != nil {
		w.logger.Error("failed to deliver email",
			"message_id", msg.UUID,
			"kind", m.Kind,
			"email", m.To,
			"error", err,
		)
	}
}
