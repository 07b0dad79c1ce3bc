package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	orderingDomain "github.com/davicafu/ordelab/internal/ordering/domain"
	platformDB "github.com/davicafu/ordelab/internal/shared/infra/platform/db"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type OrderRepoPostgres struct {
	db *sql.DB
}

func NewOrderRepoPostgres(db *sql.DB) *OrderRepoPostgres {
	return &OrderRepoPostgres{db: db}
}

// execer permite ejecutar sobre la transacción del contexto si la hay, o
// sobre el pool en caso contrario.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *OrderRepoPostgres) conn(ctx context.Context) execer {
	if st, ok := platformDB.TxFrom(ctx); ok {
		return st.Tx
	}
	return r.db
}

// ------------------ CRUD ------------------

func (r *OrderRepoPostgres) Create(ctx context.Context, o *orderingDomain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	_, err = r.conn(ctx).ExecContext(ctx,
		`INSERT INTO orders (id, buyer_id, description, items, status, submitted_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.BuyerID, o.Description, items, string(o.Status), o.SubmittedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *OrderRepoPostgres) GetByID(ctx context.Context, id uuid.UUID) (*orderingDomain.Order, error) {
	row := r.conn(ctx).QueryRowContext(ctx,
		`SELECT id, buyer_id, description, items, status, submitted_at, updated_at
		 FROM orders WHERE id=$1`, id,
	)

	o, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, orderingDomain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return o, nil
}

func (r *OrderRepoPostgres) Update(ctx context.Context, o *orderingDomain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE orders SET buyer_id=$1, description=$2, items=$3, status=$4, updated_at=$5 WHERE id=$6`,
		o.BuyerID, o.Description, items, string(o.Status), o.UpdatedAt, o.ID,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return orderingDomain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepoPostgres) ListByStatusOlderThan(ctx context.Context, status orderingDomain.OrderStatus, cutoff time.Time, limit int) ([]*orderingDomain.Order, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT id, buyer_id, description, items, status, submitted_at, updated_at
		 FROM orders
		 WHERE status=$1 AND submitted_at < $2
		 ORDER BY submitted_at
		 LIMIT $3`,
		string(status), cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var orders []*orderingDomain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*orderingDomain.Order, error) {
	var o orderingDomain.Order
	var status string
	var items []byte
	if err := row.Scan(&o.ID, &o.BuyerID, &o.Description, &items, &status, &o.SubmittedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("invalid items in order row %s: %w", o.ID, err)
	}
	o.Status = orderingDomain.OrderStatus(status)
	return &o, nil
}

// ------------------ Inicialización ------------------

func InitOrderingSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		buyer_id UUID NOT NULL,
		description TEXT NOT NULL,
		items JSONB NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_orders_status_submitted ON orders (status, submitted_at)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS buyers (
		id UUID PRIMARY KEY,
		identity_guid TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		payment_methods JSONB NOT NULL
	)`)
	return err
}

// Verificación en tiempo de compilación.
var _ orderingDomain.OrderRepository = (*OrderRepoPostgres)(nil)
