package email

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/redmonkez12/tutorhub-identity/internal/config"
	"github.com/redmonkez12/tutorhub-identity/internal/logging"
)

const kafkaConsumerGroup = "tutorhub-identity-email"

// Transport is the publisher/subscriber pair carrying the email topic
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close shuts down both sides of the transport
func (t *Transport) Close() error {
	pubErr := t.Publisher.Close()
	subErr := t.Subscriber.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}

// NewTransport builds the email transport selected by cfg.Transport.
// gochannel keeps everything in process; kafka lets several API instances
// share one delivery worker pool.
func NewTransport(cfg config.EmailConfig, logger *logging.Logger) (*Transport, error) {
	wmLogger := watermill.NewSlogLogger(logger.Logger)

	switch cfg.Transport {
	case config.EmailTransportGoChannel:
		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
		return &Transport{Publisher: pubSub, Subscriber: pubSub}, nil

	case config.EmailTransportKafka:
		publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("create kafka publisher: %w", err)
		}

		subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
			Brokers:       cfg.KafkaBrokers,
			Unmarshaler:   kafka.DefaultMarshaler{},
			ConsumerGroup: kafkaConsumerGroup,
		}, wmLogger)
		if err != nil {
			publisher.Close()
			return nil, fmt.Errorf("create kafka subscriber: %w", err)
		}

		return &Transport{Publisher: publisher, Subscriber: subscriber}, nil

	default:
		return nil, fmt.Errorf("unsupported email transport %q", cfg.Transport)
	}
}
