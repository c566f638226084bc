package tx

import (
	"context"
	"database/sql"
)

type txKey struct{}

// WithTx carries an open transaction down to the stores. A store whose
// context holds a transaction runs its statements on it instead of the pool,
// which is how a mutation and its audit append commit as one unit.
func WithTx(ctx context.Context, sqlTx *sql.Tx) context.Context {
	if sqlTx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, sqlTx)
}

// From reports the transaction carried by ctx, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	sqlTx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return sqlTx, ok
}
