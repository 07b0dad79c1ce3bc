package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// StatusChange es una transición de estado de pedido, tal como se audita.
type StatusChange struct {
	EventID   uuid.UUID
	OrderID   uuid.UUID
	EventType string
	Status    string
	EventTime time.Time
}

// DailyStatusTrend agrega transiciones por día.
type DailyStatusTrend struct {
	Day            time.Time
	SubmittedCount uint64
	CancelledCount uint64
}

// StatusLogRepo audita cada cambio de estado de pedido en ClickHouse, para
// analítica fuera del camino transaccional.
type StatusLogRepo struct {
	db *sql.DB
}

// NewStatusLogRepo es el constructor.
func NewStatusLogRepo(addr string, dbName string) (*StatusLogRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &StatusLogRepo{db: conn}, nil
}

// LogBatch inserta un lote de transiciones. ClickHouse funciona mejor con
// inserciones en lotes que fila a fila.
func (r *StatusLogRepo) LogBatch(ctx context.Context, changes []StatusChange) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO order_status_log (event_id, order_id, event_type, status, event_time)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range changes {
		if _, err := stmt.ExecContext(ctx, c.EventID, c.OrderID, c.EventType, c.Status, c.EventTime); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for event %s: %w", c.EventID, err)
		}
	}

	return tx.Commit()
}

// GetDailyTrend devuelve pedidos creados y cancelados por día.
func (r *StatusLogRepo) GetDailyTrend(ctx context.Context, start, end time.Time) ([]DailyStatusTrend, error) {
	query := `
		SELECT
			toStartOfDay(event_time) AS day,
			countIf(status = 'submitted') AS submitted,
			countIf(status = 'cancelled') AS cancelled
		FROM order_status_log
		WHERE event_time BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day
	`
	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []DailyStatusTrend
	for rows.Next() {
		var trend DailyStatusTrend
		if err := rows.Scan(&trend.Day, &trend.SubmittedCount, &trend.CancelledCount); err != nil {
			return nil, err
		}
		trends = append(trends, trend)
	}
	return trends, rows.Err()
}

// InitSchema crea la tabla en ClickHouse si no existe. Particionada por mes
// y ordenada por los campos de consulta habituales.
func (r *StatusLogRepo) InitSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS order_status_log (
			event_id   UUID,
			order_id   UUID,
			event_type String,
			status     String,
			event_time DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(event_time)
		ORDER BY (order_id, event_time);
	`
	_, err := r.db.Exec(query)
	return err
}
