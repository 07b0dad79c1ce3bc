package events

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaDeadLetterSink reenvía los mensajes agotados a un topic <origen>.dlq.
// La política de reproceso del DLQ es del transporte/operador, no de este
// servicio.
type KafkaDeadLetterSink struct {
	writer *kafka.Writer
	log    *zap.Logger
}

var _ DeadLetterSink = (*KafkaDeadLetterSink)(nil)

func NewKafkaDeadLetterSink(writer *kafka.Writer, log *zap.Logger) *KafkaDeadLetterSink {
	return &KafkaDeadLetterSink{writer: writer, log: log}
}

func (s *KafkaDeadLetterSink) Store(ctx context.Context, topic string, payload []byte, reason string) error {
	msg := kafka.Message{
		Topic: topic + ".dlq",
		Value: payload,
		Headers: []kafka.Header{
			{Key: "x-dead-letter-reason", Value: []byte(reason)},
			{Key: "x-origin-topic", Value: []byte(topic)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.log.Error("Error publicando en DLQ", zap.String("topic", topic), zap.Error(err))
		return err
	}
	return nil
}
