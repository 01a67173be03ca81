package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via the Tx argument.
//
// Repositories accept a nil Tx for the non-transactional path and a concrete
// tx handle (pgx.Tx for Postgres) when composed inside WithTx. This keeps the
// use-case interfaces free of storage types while still letting the payment
// transition and the subscription extension commit atomically together.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
