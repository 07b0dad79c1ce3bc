package events

import (
	"context"

	"go.uber.org/zap"

	sharedBus "github.com/davicafu/ordelab/internal/shared/infra/platform/bus"
)

// BackgroundConsumerChan bombea los mensajes de un canal del bus en memoria
// hacia el despachador. Equivalente local del ConsumerAdapter de Kafka; la
// semántica de reintentos acotados queda en manos del despachador, aquí un
// fallo transitorio simplemente se registra (el bus en memoria no
// redistribuye).
func BackgroundConsumerChan(ctx context.Context, ch <-chan []byte, dispatcher *sharedBus.Dispatcher, log *zap.Logger) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Info("Consumidor en memoria detenido")
				return
			case raw := <-ch:
				if res := dispatcher.Dispatch(ctx, raw); res != sharedBus.Ok {
					log.Warn("⚠️ Mensaje en memoria no procesado", zap.String("result", res.String()))
				}
			}
		}
	}()
}
