package relayer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/ordelab/internal/shared/domain"
	sharedEvents "github.com/davicafu/ordelab/internal/shared/events"
	sharedBus "github.com/davicafu/ordelab/internal/shared/infra/platform/bus"
)

// Worker drena el log de eventos de integración hacia el bus.
//
// Dos caminos de entrada:
//   - PublishForTransaction: lo invoca el servicio justo después del commit
//     de una transacción de negocio, para publicar sus entradas sin esperar
//     al siguiente barrido.
//   - Start: barrido periódico de recuperación sobre TODAS las entradas
//     NotPublished/PublishFailed; un crash entre commit y publicación no
//     pierde eventos, solo los retrasa.
//
// La publicación es efectivamente al-menos-una-vez: un fallo después de
// publicar y antes de MarkPublished produce un duplicado que los
// consumidores deduplican por el ID del sobre.
type Worker struct {
	repo          sharedDomain.EventLogRepository
	publisher     sharedBus.EventPublisher
	eventRegistry map[string]sharedEvents.EventMetadata
	interval      time.Duration
	limit         int
	sweeping      atomic.Bool
	log           *zap.Logger
}

func NewOutboxWorker(
	repo sharedDomain.EventLogRepository,
	publisher sharedBus.EventPublisher,
	registry map[string]sharedEvents.EventMetadata,
	interval time.Duration,
	limit int,
	log *zap.Logger,
) *Worker {
	return &Worker{
		repo:          repo,
		publisher:     publisher,
		eventRegistry: registry,
		interval:      interval,
		limit:         limit,
		log:           log,
	}
}

// Start inicia el bucle de barrido de recuperación.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.log.Info("🚀 Outbox relayer iniciado", zap.Duration("interval", w.interval))

		// Primer barrido inmediato: lo pendiente de antes del reinicio no
		// espera un tick entero.
		w.Sweep(ctx)

		for {
			select {
			case <-ctx.Done():
				w.log.Info("🛑 Outbox relayer detenido.")
				return
			case <-ticker.C:
				w.Sweep(ctx)
			}
		}
	}()
}

// PublishForTransaction publica las entradas NotPublished de una transacción
// ya comprometida, en orden de creación. Un fallo aquí no es fatal: el
// barrido de recuperación lo reintentará.
func (w *Worker) PublishForTransaction(ctx context.Context, transactionID uuid.UUID) {
	entries, err := w.repo.PendingByTransaction(ctx, transactionID)
	if err != nil {
		w.log.Warn("⚠️ Error al leer entradas pendientes de la transacción",
			zap.String("transaction_id", transactionID.String()),
			zap.Error(err),
		)
		return
	}
	w.publishEntries(ctx, entries)
}

// Sweep ejecuta un ciclo de recuperación. Un barrido que sigue en curso
// cuando toca el siguiente hace que este se salte, no que se apile.
func (w *Worker) Sweep(ctx context.Context) {
	if !w.sweeping.CompareAndSwap(false, true) {
		w.log.Debug("Barrido anterior aún en curso, tick saltado")
		return
	}
	defer w.sweeping.Store(false)

	entries, err := w.repo.PendingAll(ctx, w.limit)
	if err != nil {
		w.log.Warn("⚠️ Error al obtener eventos pendientes", zap.Error(err))
		return
	}
	if len(entries) > 0 {
		w.log.Info("📬 Eventos pendientes encontrados", zap.Int("count", len(entries)))
	}
	w.publishEntries(ctx, entries)
}

func (w *Worker) publishEntries(ctx context.Context, entries []sharedDomain.EventLogEntry) {
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		// El fallo de una entrada no bloquea a las siguientes.
		w.publishAndMark(ctx, entry)
	}
}

func (w *Worker) publishAndMark(ctx context.Context, entry sharedDomain.EventLogEntry) {
	metadata, ok := w.eventRegistry[entry.EventType]
	if !ok {
		w.log.Error("Tipo de evento desconocido en registro",
			zap.String("event_type", entry.EventType),
			zap.String("event_id", entry.EventID.String()),
		)
		return
	}

	if err := w.repo.MarkInProgress(ctx, entry.EventID); err != nil {
		if errors.Is(err, sharedDomain.ErrAlreadyClaimed) {
			// Otra réplica (o el flush solapado con el barrido) reclamó la
			// entrada primero; publicarla aquí sería un duplicado seguro.
			w.log.Debug("Entrada ya reclamada, saltada",
				zap.String("event_id", entry.EventID.String()),
			)
			return
		}
		w.log.Warn("⚠️ No se pudo marcar evento en progreso",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
		return
	}

	if err := w.publisher.Publish(ctx, metadata.Topic, entry.Envelope()); err != nil {
		w.log.Warn("⚠️ No se pudo publicar evento",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
		if err := w.repo.MarkFailed(ctx, entry.EventID); err != nil {
			w.log.Warn("⚠️ No se pudo marcar evento como fallido",
				zap.String("event_id", entry.EventID.String()),
				zap.Error(err),
			)
		}
		return
	}

	// Cero filas afectadas cuenta como éxito: otra réplica llegó antes.
	if err := w.repo.MarkPublished(ctx, entry.EventID); err != nil {
		w.log.Warn("⚠️ No se pudo marcar evento como publicado",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
		return
	}

	w.log.Info("✅ Evento publicado y marcado",
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
	)
}
