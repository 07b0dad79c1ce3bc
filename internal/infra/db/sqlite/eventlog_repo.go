package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/ordelab/internal/shared/domain"
	platformDB "github.com/davicafu/ordelab/internal/shared/infra/platform/db"
)

// EventLogRepoSQLite implementa sharedDomain.EventLogRepository sobre SQLite,
// para despliegues locales sin Postgres.
type EventLogRepoSQLite struct {
	db *sql.DB
}

func NewEventLogRepoSQLite(db *sql.DB) *EventLogRepoSQLite {
	return &EventLogRepoSQLite{db: db}
}

// InitSchema crea la tabla del log de eventos si no existe. Los UUID se
// guardan como TEXT y las fechas en RFC3339.
func (r *EventLogRepoSQLite) InitSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS integration_event_log (
			event_id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			partition_key TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			state TEXT NOT NULL,
			transaction_id TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_event_log_tx ON integration_event_log (transaction_id);
		CREATE INDEX IF NOT EXISTS idx_event_log_state ON integration_event_log (state);
	`)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *EventLogRepoSQLite) Save(ctx context.Context, entry sharedDomain.EventLogEntry) error {
	st, ok := platformDB.TxFrom(ctx)
	if !ok {
		return fmt.Errorf("event log save requires an open transaction in context")
	}

	_, err := st.Tx.ExecContext(ctx,
		`INSERT INTO integration_event_log (event_id, event_type, payload, partition_key, created_at, state, transaction_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.EventID.String(), entry.EventType, string(entry.Payload), entry.PartitionKey,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		entry.State.String(), entry.TransactionID.String(),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *EventLogRepoSQLite) PendingByTransaction(ctx context.Context, transactionID uuid.UUID) ([]sharedDomain.EventLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_id, event_type, payload, partition_key, created_at, state, transaction_id
		 FROM integration_event_log
		 WHERE transaction_id = ? AND state = ?
		 ORDER BY created_at`,
		transactionID.String(), sharedDomain.EventNotPublished.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *EventLogRepoSQLite) PendingAll(ctx context.Context, limit int) ([]sharedDomain.EventLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_id, event_type, payload, partition_key, created_at, state, transaction_id
		 FROM integration_event_log
		 WHERE state IN (?, ?)
		 ORDER BY created_at
		 LIMIT ?`,
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
func (r *EventLogRepoSQLite) MarkInProgress(ctx context.Context, eventID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE integration_event_log SET state = ?
		 WHERE event_id = ? AND state IN (?, ?)`,
		sharedDomain.EventInProgress.String(), eventID.String(),
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

func (r *EventLogRepoSQLite) MarkPublished(ctx context.Context, eventID uuid.UUID) error {
	return r.resolve(ctx, eventID, sharedDomain.EventPublished)
}

func (r *EventLogRepoSQLite) MarkFailed(ctx context.Context, eventID uuid.UUID) error {
	return r.resolve(ctx, eventID, sharedDomain.EventPublishFailed)
}

// resolve pasa una entrada InProgress a su estado final. Cero filas afectadas
// se trata como éxito: otra réplica resolvió la entrada antes.
func (r *EventLogRepoSQLite) resolve(ctx context.Context, eventID uuid.UUID, state sharedDomain.EventLogState) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE integration_event_log SET state = ?
		 WHERE event_id = ? AND state = ?`,
		state.String(), eventID.String(), sharedDomain.EventInProgress.String(),
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
		var eventID, payload, createdAt, state, txID string

		if err := rows.Scan(&eventID, &entry.EventType, &payload, &entry.PartitionKey, &createdAt, &state, &txID); err != nil {
			return nil, err
		}

		parsedID, err := uuid.Parse(eventID)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID in event log row: %w", err)
		}
		parsedTx, err := uuid.Parse(txID)
		if err != nil {
			return nil, fmt.Errorf("invalid transaction UUID in event log row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp in event log row: %w", err)
		}

		entry.EventID = parsedID
		entry.Payload = []byte(payload)
		entry.CreatedAt = ts
		entry.State = parseState(state)
		entry.TransactionID = parsedTx

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
var _ sharedDomain.EventLogRepository = (*EventLogRepoSQLite)(nil)
