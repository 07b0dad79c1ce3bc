package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	catalogDomain "github.com/davicafu/ordelab/internal/catalog/domain"
	platformDB "github.com/davicafu/ordelab/internal/shared/infra/platform/db"

	_ "modernc.org/sqlite"
)

// ProductRepoSQLite implementa catalogDomain.ProductRepository. El catálogo
// corre sobre SQLite: suficiente para un servicio de lectura intensiva con
// escrituras esporádicas.
type ProductRepoSQLite struct {
	db *sql.DB
}

func NewProductRepoSQLite(db *sql.DB) *ProductRepoSQLite {
	return &ProductRepoSQLite{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *ProductRepoSQLite) conn(ctx context.Context) execer {
	if st, ok := platformDB.TxFrom(ctx); ok {
		return st.Tx
	}
	return r.db
}

func (r *ProductRepoSQLite) Create(ctx context.Context, p *catalogDomain.Product) error {
	_, err := r.conn(ctx).ExecContext(ctx,
		`INSERT INTO products (id, name, price, available_stock, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.ID.String(), p.Name, p.Price, p.AvailableStock,
		p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *ProductRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*catalogDomain.Product, error) {
	row := r.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, price, available_stock, updated_at FROM products WHERE id=?`,
		id.String(),
	)

	var p catalogDomain.Product
	var idStr, updatedAt string
	if err := row.Scan(&idStr, &p.Name, &p.Price, &p.AvailableStock, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, catalogDomain.ErrProductNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	// El ID se guarda como TEXT, lo parseamos de vuelta.
	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in product row: %w", err)
	}
	p.ID = parsedID

	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp in product row: %w", err)
	}
	p.UpdatedAt = ts

	return &p, nil
}

func (r *ProductRepoSQLite) Update(ctx context.Context, p *catalogDomain.Product) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE products SET name=?, price=?, available_stock=?, updated_at=? WHERE id=?`,
		p.Name, p.Price, p.AvailableStock,
		p.UpdatedAt.UTC().Format(time.RFC3339Nano),
		p.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return catalogDomain.ErrProductNotFound
	}
	return nil
}

// ------------------ Inicialización ------------------

func InitCatalogSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price REAL NOT NULL,
		available_stock INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	return err
}

// Verificación en tiempo de compilación.
var _ catalogDomain.ProductRepository = (*ProductRepoSQLite)(nil)
