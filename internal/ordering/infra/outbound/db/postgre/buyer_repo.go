package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	orderingDomain "github.com/davicafu/ordelab/internal/ordering/domain"
	platformDB "github.com/davicafu/ordelab/internal/shared/infra/platform/db"
)

type BuyerRepoPostgres struct {
	db *sql.DB
}

func NewBuyerRepoPostgres(db *sql.DB) *BuyerRepoPostgres {
	return &BuyerRepoPostgres{db: db}
}

func (r *BuyerRepoPostgres) conn(ctx context.Context) execer {
	if st, ok := platformDB.TxFrom(ctx); ok {
		return st.Tx
	}
	return r.db
}

func (r *BuyerRepoPostgres) FindByIdentity(ctx context.Context, identityGUID string) (*orderingDomain.Buyer, error) {
	row := r.conn(ctx).QueryRowContext(ctx,
		`SELECT id, identity_guid, name, payment_methods FROM buyers WHERE identity_guid=$1`,
		identityGUID,
	)

	var b orderingDomain.Buyer
	var methods []byte
	if err := row.Scan(&b.ID, &b.IdentityGUID, &b.Name, &methods); err != nil {
		if err == sql.ErrNoRows {
			return nil, orderingDomain.ErrBuyerNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(methods, &b.PaymentMethods); err != nil {
		return nil, fmt.Errorf("invalid payment methods in buyer row %s: %w", b.ID, err)
	}
	return &b, nil
}

// Save inserta o actualiza el comprador; los métodos de pago viajan como
// JSONB dentro de la misma fila.
func (r *BuyerRepoPostgres) Save(ctx context.Context, b *orderingDomain.Buyer) error {
	methods, err := json.Marshal(b.PaymentMethods)
	if err != nil {
		return fmt.Errorf("failed to marshal payment methods: %w", err)
	}

	_, err = r.conn(ctx).ExecContext(ctx,
		`INSERT INTO buyers (id, identity_guid, name, payment_methods)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (identity_guid)
		 DO UPDATE SET name=EXCLUDED.name, payment_methods=EXCLUDED.payment_methods`,
		b.ID, b.IdentityGUID, b.Name, methods,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Verificación en tiempo de compilación.
var _ orderingDomain.BuyerRepository = (*BuyerRepoPostgres)(nil)
