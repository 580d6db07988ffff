// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver. Schema migrations are embedded and applied
// with goose. Every store can be rebound to a transaction with WithTx.
package postgres
