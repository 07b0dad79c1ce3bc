package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedBus "github.com/davicafu/ordelab/internal/shared/infra/platform/bus"
)

// DeadLetterSink recibe los mensajes que agotaron sus reintentos o fallaron
// de forma permanente. Reprocesarlos es una operación manual, fuera del
// camino caliente.
type DeadLetterSink interface {
	Store(ctx context.Context, topic string, payload []byte, reason string) error
}

// ConsumerAdapter es el "oído" que escucha un topic de Kafka y entrega cada
// mensaje al despachador. Fallo transitorio → reintentos acotados con pausa;
// fallo permanente o reintentos agotados → dead-letter. El offset se
// confirma siempre tras resolver el mensaje, nunca antes.
type ConsumerAdapter struct {
	reader      *kafka.Reader
	dispatcher  *sharedBus.Dispatcher
	deadLetter  DeadLetterSink
	maxAttempts int
	retryDelay  time.Duration
	log         *zap.Logger
}

func NewConsumerAdapter(
	reader *kafka.Reader,
	dispatcher *sharedBus.Dispatcher,
	deadLetter DeadLetterSink,
	maxAttempts int,
	retryDelay time.Duration,
	log *zap.Logger,
) *ConsumerAdapter {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ConsumerAdapter{
		reader:      reader,
		dispatcher:  dispatcher,
		deadLetter:  deadLetter,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		log:         log,
	}
}

// Start inicia el bucle de consumo en una goroutine.
func (c *ConsumerAdapter) Start(ctx context.Context) {
	c.log.Info("🎧 Iniciando consumidor de Kafka...",
		zap.String("topic", c.reader.Config().Topic),
		zap.Strings("brokers", c.reader.Config().Brokers),
	)

	go func() {
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.log.Info("Consumidor de Kafka detenido.", zap.String("topic", c.reader.Config().Topic))
					return
				}
				c.log.Error("Error al leer mensaje de Kafka", zap.Error(err))
				continue
			}

			c.process(ctx, msg)

			if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				// Si el commit falla, Kafka redistribuirá el mensaje; los
				// handlers deduplican por ID, así que no hay efecto doble.
				c.log.Warn("⚠️ No se pudo confirmar el offset", zap.Error(err))
			}
		}
	}()
}

func (c *ConsumerAdapter) process(ctx context.Context, msg kafka.Message) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		res := c.dispatcher.Dispatch(ctx, msg.Value)
		switch res {
		case sharedBus.Ok:
			return
		case sharedBus.PermanentFailure:
			c.toDeadLetter(ctx, msg, "permanent_failure")
			return
		case sharedBus.TransientFailure:
			if attempt == c.maxAttempts {
				c.toDeadLetter(ctx, msg, "max_attempts_exhausted")
				return
			}
			c.log.Warn("⚠️ Fallo transitorio, reintentando",
				zap.String("topic", msg.Topic),
				zap.Int("attempt", attempt),
			)
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *ConsumerAdapter) toDeadLetter(ctx context.Context, msg kafka.Message, reason string) {
	if c.deadLetter == nil {
		c.log.Error("Mensaje descartado sin dead-letter configurado",
			zap.String("topic", msg.Topic),
			zap.String("reason", reason),
		)
		return
	}
	if err := c.deadLetter.Store(ctx, msg.Topic, msg.Value, reason); err != nil {
		c.log.Error("No se pudo almacenar en dead-letter", zap.Error(err))
		return
	}
	c.log.Warn("📮 Mensaje movido a dead-letter",
		zap.String("topic", msg.Topic),
		zap.String("reason", reason),
	)
}
