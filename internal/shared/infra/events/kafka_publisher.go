package events

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/segmentio/kafka-go"

	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
	sharedBus "github.com/davicafu/ordelab/internal/shared/infra/platform/bus"
)

// KafkaPublisher publica sobres de integración en Kafka. El writer es
// genérico: el topic viaja en cada mensaje.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(writer *kafka.Writer, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, evt sharedEvents.IntegrationEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	// La clave de partición del sobre (el id del agregado) como key: todos
	// los eventos del mismo pedido o producto conservan su orden relativo.
	// Sin clave, el ID del sobre al menos agrupa los reintentos del evento.
	key := evt.PartitionKey
	if key == "" {
		key = evt.ID.String()
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("Error publishing to Kafka",
			zap.String("topic", topic),
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
		return err
	}

	p.log.Debug("Event published successfully",
		zap.String("topic", topic),
		zap.String("event_type", evt.Type),
		zap.String("event_id", evt.ID.String()),
	)
	return nil
}

// Verificación estática
var _ sharedBus.EventPublisher = (*KafkaPublisher)(nil)
