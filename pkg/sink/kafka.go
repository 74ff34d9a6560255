package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer used by Kafka.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes records as JSON messages keyed by source.
type Kafka struct {
	writer messageWriter
}

// NewKafka returns a sink writing to topic on brokers.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka sink requires at least one broker")
	}
	if topic == "" {
		return nil, errors.New("kafka sink requires a topic")
	}

	return &Kafka{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}, nil
}

// Write publishes rec. Records from the same source share a partition.
func (k *Kafka) Write(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrNilRecord
	}

	msg, err := kafkaMessage(rec)
	if err != nil {
		return err
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing event %d: %w", rec.Seq, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

func kafkaMessage(rec *Record) (kafka.Message, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding event %d: %w", rec.Seq, err)
	}

	msg := kafka.Message{
		Key:   []byte(rec.Source),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(rec.Type)},
			{Key: "event", Value: []byte(rec.Event.Event)},
		},
	}
	if rec.Event.ID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "id", Value: []byte(rec.Event.ID)})
	}
	return msg, nil
}
