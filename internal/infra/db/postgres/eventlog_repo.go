package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/ordelab/internal/shared/domain"
	platformDB "github.com/davicafu/ordelab/internal/shared/infra/platform/db"
)

// EventLogRepoPostgres implementa sharedDomain.EventLogRepository sobre la
// tabla integration_event_log.
type EventLogRepoPostgres struct {
	db *sql.DB
}

func NewEventLogRepoPostgres(db *sql.DB) *EventLogRepoPostgres {
	return &EventLogRepoPostgres{db: db}
}

// InitSchema crea la tabla del log de eventos si no existe.
func (r *EventLogRepoPostgres) InitSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS integration_event_log (
			event_id UUID PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			partition_key TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			state TEXT NOT NULL,
			transaction_id UUID NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_event_log_tx ON integration_event_log (transaction_id);
		CREATE INDEX IF NOT EXISTS idx_event_log_state ON integration_event_log (state);
	`)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Save inserta la entrada usando la transacción abierta que viaja en el
// contexto. Sin transacción es un error: la entrada debe comprometerse junto
// a la escritura de negocio que la origina.
func (r *EventLogRepoPostgres) Save(ctx context.Context, entry sharedDomain.EventLogEntry) error {
	st, ok := platformDB.TxFrom(ctx)
	if !ok {
		return fmt.Errorf("event log save requires an open transaction in context")
	}

	_, err := st.Tx.ExecContext(ctx,
		`INSERT INTO integration_event_log (event_id, event_type, payload, partition_key, created_at, state, transaction_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.EventID, entry.EventType, []byte(entry.Payload), entry.PartitionKey,
		entry.CreatedAt, entry.State.String(), entry.TransactionID,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *EventLogRepoPostgres) PendingByTransaction(ctx context.Context, transactionID uuid.UUID) ([]sharedDomain.EventLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_id, event_type, payload, partition_key, created_at, state, transaction_id
		 FROM integration_event_log
		 WHERE transaction_id = $1 AND state = $2
		 ORDER BY created_at`,
		transactionID, sharedDomain.EventNotPublished.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *EventLogRepoPostgres) PendingAll(ctx context.Context, limit int) ([]sharedDomain.EventLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_id, event_type, payload, partition_key, created_at, state, transaction_id
		 FROM integration_event_log
		 WHERE state IN ($1, $2)
		 ORDER BY created_at
		 LIMIT $3`,
		sharedDomain.EventNotPublished.String(), sharedDomain.EventPublishFailed.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// MarkInProgress reclama la entrada con un UPDATE condicionado al estado: la
// réplica que afecta la fila gana, las demás reciben ErrAlreadyClaimed.
func (r *EventLogRepoPostgres) MarkInProgress(ctx context.Context, eventID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE integration_event_log SET state = $1
		 WHERE event_id = $2 AND state IN ($3, $4)`,
		sharedDomain.EventInProgress.String(), eventID,
		sharedDomain.EventNotPublished.String(), sharedDomain.EventPublishFailed.String(),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("claim event %s: %w", eventID, sharedDomain.ErrAlreadyClaimed)
	}
	return nil
}

func (r *EventLogRepoPostgres) MarkPublished(ctx context.Context, eventID uuid.UUID) error {
	return r.resolve(ctx, eventID, sharedDomain.EventPublished)
}

func (r *EventLogRepoPostgres) MarkFailed(ctx context.Context, eventID uuid.UUID) error {
	return r.resolve(ctx, eventID, sharedDomain.EventPublishFailed)
}

// resolve pasa una entrada InProgress a su estado final. Cero filas afectadas
// se trata como éxito: otra réplica resolvió la entrada antes.
func (r *EventLogRepoPostgres) resolve(ctx context.Context, eventID uuid.UUID, state sharedDomain.EventLogState) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE integration_event_log SET state = $1
		 WHERE event_id = $2 AND state = $3`,
		state.String(), eventID, sharedDomain.EventInProgress.String(),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]sharedDomain.EventLogEntry, error) {
	var entries []sharedDomain.EventLogEntry
	for rows.Next() {
		var entry sharedDomain.EventLogEntry
		var payload []byte
		var state string

		if err := rows.Scan(&entry.EventID, &entry.EventType, &payload, &entry.PartitionKey, &entry.CreatedAt, &state, &entry.TransactionID); err != nil {
			return nil, err
		}
		entry.Payload = payload
		entry.State = parseState(state)

		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func parseState(s string) sharedDomain.EventLogState {
	switch s {
	case "in_progress":
		return sharedDomain.EventInProgress
	case "published":
		return sharedDomain.EventPublished
	case "publish_failed":
		return sharedDomain.EventPublishFailed
	default:
		return sharedDomain.EventNotPublished
	}
}

// Verificación en tiempo de compilación.
var _ sharedDomain.EventLogRepository = (*EventLogRepoPostgres)(nil)
