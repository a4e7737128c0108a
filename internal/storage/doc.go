// Package storage keeps the transaction history the validator compares new
// transactions against. SQLite is the default backend; Postgres is available
// for shared deployments.
package storage
