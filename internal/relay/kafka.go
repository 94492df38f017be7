package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultKafkaTopic carries the envelopes of every workspace, keyed by
// workspace id.
const DefaultKafkaTopic = "canvas.workspace.events"

const kafkaPollTimeout = 200 * time.Millisecond

var _ Relay = (*Kafka)(nil)

// Kafka relays envelopes through a kafka topic. Every subscription uses its
// own consumer group so each one receives every envelope.
type Kafka struct {
	brokers  string
	topic    string
	producer *kafka.Producer
}

func NewKafka(brokers, topic string) (*Kafka, error) {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return &Kafka{brokers: brokers, topic: topic, producer: producer}, nil
}

func (k *Kafka) Publish(ctx context.Context, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	delivery := make(chan kafka.Event, 1)
	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(env.WorkspaceID),
		Value:          data,
	}, delivery)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-delivery:
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return m.TopicPartition.Error
		}
		return nil
	}
}

func (k *Kafka) Subscribe(ctx context.Context, workspaceID string) (<-chan *Envelope, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  k.brokers,
		"group.id":           "canvas-" + uuid.New().String(),
		"auto.offset.reset":  "latest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	if err := consumer.SubscribeTopics([]string{k.topic}, nil); err != nil {
		_ = consumer.Close()
		return nil, err
	}

	out := make(chan *Envelope, subscriptionBuffer)
	go func() {
		defer close(out)
		defer consumer.Close()

		for ctx.Err() == nil {
			msg, err := consumer.ReadMessage(kafkaPollTimeout)
			if err != nil {
				var kerr kafka.Error
				if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				logrus.Errorf("relay: kafka read: %v", err)
				continue
			}
			if string(msg.Key) != workspaceID {
				continue
			}

			env := &Envelope{}
			if err := json.Unmarshal(msg.Value, env); err != nil {
				logrus.Errorf("relay: dropping malformed envelope at offset %v: %v", msg.TopicPartition.Offset, err)
				continue
			}
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close flushes pending deliveries and closes the producer.
func (k *Kafka) Close() error {
	k.producer.Flush(int(5 * time.Second / time.Millisecond))
	k.producer.Close()
	return nil
}
