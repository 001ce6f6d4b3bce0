package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository calls.
// Repositories accept nil for the non-transactional path; the concrete type
// is infra-defined (pgx.Tx for Postgres).
type Tx interface{}

// TransactionManager executes a function inside one database transaction.
// The whole redemption state machine runs under a single WithTx call: any
// error from fn rolls everything back, so no partial batch or half-applied
// entitlement is ever visible.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
