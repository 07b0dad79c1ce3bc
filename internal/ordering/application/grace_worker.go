package application

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/ordelab/internal/ordering/domain"
)

// GracePeriodWorker es el proceso periódico que empuja los pedidos por el
// tiempo: confirma el periodo de gracia de los submitted y re-verifica el
// stock de los awaiting_validation, avanzándolos o cancelándolos.
//
// Un tick que sigue en curso cuando vence el siguiente se salta, no se
// apila: dos ticks concurrentes procesarían los mismos pedidos dos veces.
type GracePeriodWorker struct {
	service     *OrderService
	orders      domain.OrderRepository
	stock       domain.StockConfirmer
	gracePeriod time.Duration
	interval    time.Duration
	batchSize   int
	clock       Clock
	ticking     atomic.Bool
	log         *zap.Logger
}

func NewGracePeriodWorker(
	service *OrderService,
	orders domain.OrderRepository,
	stock domain.StockConfirmer,
	gracePeriod time.Duration,
	interval time.Duration,
	batchSize int,
	clock Clock,
	log *zap.Logger,
) *GracePeriodWorker {
	return &GracePeriodWorker{
		service:     service,
		orders:      orders,
		stock:       stock,
		gracePeriod: gracePeriod,
		interval:    interval,
		batchSize:   batchSize,
		clock:       clock,
		log:         log,
	}
}

// Start inicia el bucle de ticks.
func (w *GracePeriodWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.log.Info("🚀 Grace-period worker iniciado",
			zap.Duration("grace_period", w.gracePeriod),
			zap.Duration("interval", w.interval),
		)

		for {
			select {
			case <-ctx.Done():
				w.log.Info("🛑 Grace-period worker detenido.")
				return
			case <-ticker.C:
				w.Tick(ctx)
			}
		}
	}()
}

// Tick ejecuta un ciclo completo. Exportado para poder dirigirlo desde los
// tests con un reloj simulado.
func (w *GracePeriodWorker) Tick(ctx context.Context) {
	if !w.ticking.CompareAndSwap(false, true) {
		w.log.Debug("Tick anterior aún en curso, saltado")
		return
	}
	defer w.ticking.Store(false)

	cutoff := w.clock().Add(-w.gracePeriod)

	w.confirmGracePeriods(ctx, cutoff)
	w.revalidateStock(ctx, cutoff)
}

// confirmGracePeriods pasa a awaiting_validation los pedidos submitted cuyo
// periodo de gracia expiró.
func (w *GracePeriodWorker) confirmGracePeriods(ctx context.Context, cutoff time.Time) {
	orders, err := w.orders.ListByStatusOlderThan(ctx, domain.OrderSubmitted, cutoff, w.batchSize)
	if err != nil {
		w.log.Warn("⚠️ Error consultando pedidos submitted", zap.Error(err))
		return
	}

	for _, o := range orders {
		if ctx.Err() != nil {
			return
		}
		// Cada pedido de forma independiente: el fallo de uno no bloquea
		// al resto del tick.
		if _, err := w.service.SetAwaitingValidation(ctx, o.ID); err != nil {
			w.log.Warn("⚠️ No se pudo confirmar el periodo de gracia",
				zap.String("order_id", o.ID.String()),
				zap.Error(err),
			)
			continue
		}
		w.log.Info("⏳ Periodo de gracia confirmado", zap.String("order_id", o.ID.String()))
	}
}

// revalidateStock re-verifica los pedidos awaiting_validation que llevan más
// de un periodo de gracia esperando y los avanza o cancela.
func (w *GracePeriodWorker) revalidateStock(ctx context.Context, cutoff time.Time) {
	orders, err := w.orders.ListByStatusOlderThan(ctx, domain.OrderAwaitingValidation, cutoff, w.batchSize)
	if err != nil {
		w.log.Warn("⚠️ Error consultando pedidos awaiting_validation", zap.Error(err))
		return
	}

	for _, o := range orders {
		if ctx.Err() != nil {
			return
		}

		ok, err := w.stock.Confirm(ctx, o)
		if err != nil {
			// Fallo técnico: el pedido sigue en awaiting_validation y el
			// siguiente tick lo reintenta.
			w.log.Warn("⚠️ Verificación de stock falló",
				zap.String("order_id", o.ID.String()),
				zap.Error(err),
			)
			continue
		}

		if ok {
			if _, err := w.service.ConfirmStock(ctx, o.ID); err != nil {
				w.log.Warn("⚠️ No se pudo confirmar stock",
					zap.String("order_id", o.ID.String()),
					zap.Error(err),
				)
				continue
			}
			w.log.Info("✅ Stock confirmado", zap.String("order_id", o.ID.String()))
		} else {
			if _, err := w.service.Cancel(ctx, o.ID, "stock rejected"); err != nil {
				w.log.Warn("⚠️ No se pudo cancelar el pedido",
					zap.String("order_id", o.ID.String()),
					zap.Error(err),
				)
				continue
			}
			w.log.Info("🛑 Pedido cancelado por falta de stock", zap.String("order_id", o.ID.String()))
		}
	}
}
