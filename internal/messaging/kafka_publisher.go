package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tumortrace/classification-service/internal/models"
)

const StateChangedTopic = "classification.state.changed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes workflow transitions keyed by file id, so all events
// for one image land on the same partition in order.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        StateChangedTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
}

func NewKafkaPublisher(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event models.WorkflowStateChanged) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	key := event.FileID
	if key == "" {
		key = event.OrderID
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "state", Value: []byte(event.State)},
		},
	})
}
