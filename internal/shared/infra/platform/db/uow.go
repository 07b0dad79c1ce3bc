package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// SQLUnitOfWork ejecuta una función dentro de una transacción de
// database/sql. La transacción viaja en el contexto junto a su identificador
// lógico: los repositorios que participan la extraen con TxFrom en lugar de
// recibirla como parámetro.
//
// Vale para cualquier driver database/sql (pgx, modernc sqlite...).
type SQLUnitOfWork struct {
	db *sql.DB
}

func NewSQLUnitOfWork(db *sql.DB) *SQLUnitOfWork {
	return &SQLUnitOfWork{db: db}
}

// Do abre la transacción, ejecuta fn con el contexto enriquecido y hace
// commit. Cualquier error de fn deshace todo lo escrito, incluido el log de
// eventos de integración.
func (u *SQLUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, transactionID uuid.UUID) error) (uuid.UUID, error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin tx: %w", err)
	}

	transactionID := uuid.New()
	txCtx := WithTx(ctx, tx, transactionID)

	if err := fn(txCtx, transactionID); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return uuid.Nil, fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit tx: %w", err)
	}
	return transactionID, nil
}
