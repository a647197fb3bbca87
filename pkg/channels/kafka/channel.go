// Package kafka builds the Watermill Kafka publisher and subscriber pair the event bus runs on.
package kafka

import (
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

var ErrNoBrokers = errors.New("no Kafka brokers configured")

// CreateChannel connects to brokers. Every service gets its own consumer group so each one
// sees the full event stream.
func CreateChannel(logger watermill.LoggerAdapter, brokers []string, serviceName string) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(brokers) == 0 || brokers[0] == "" {
		return nil, nil, ErrNoBrokers
	}

	subscriber, err := newSubscriber(logger, brokers, "cg-"+serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka subscriber: %w", err)
	}

	publisher, err := newPublisher(logger, brokers)
	if err != nil {
		_ = subscriber.Close()

		return nil, nil, fmt.Errorf("kafka publisher: %w", err)
	}

	return publisher, subscriber, nil
}

func newSubscriber(logger watermill.LoggerAdapter, brokers []string, group string) (*kafka.Subscriber, error) {
	config := kafka.DefaultSaramaSubscriberConfig()
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	return kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: config,
		ConsumerGroup:         group,
		OTELEnabled:           true,
	}, logger)
}

// newPublisher waits for every in-sync replica before a publish returns.
func newPublisher(logger watermill.LoggerAdapter, brokers []string) (*kafka.Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	return kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             kafka.NewWithPartitioningMarshaler(partitionKey),
		OverwriteSaramaConfig: config,
		OTELEnabled:           true,
	}, logger)
}
