package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type txKey struct{}

// TxState agrupa la transacción SQL abierta y su identificador lógico.
// El id viaja hasta el log de eventos para poder hacer flush selectivo
// de lo escrito por esa transacción tras el commit.
type TxState struct {
	Tx *sql.Tx
	ID uuid.UUID
}

// WithTx devuelve un contexto que transporta la transacción abierta.
// Los repositorios extraen la transacción del contexto en lugar de
// recibirla como parámetro, para no filtrar database/sql a los puertos
// de dominio.
func WithTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) context.Context {
	return context.WithValue(ctx, txKey{}, &TxState{Tx: tx, ID: id})
}

// TxFrom recupera la transacción del contexto, si la hay.
func TxFrom(ctx context.Context) (*TxState, bool) {
	st, ok := ctx.Value(txKey{}).(*TxState)
	return st, ok
}
