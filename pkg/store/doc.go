// Package store implements the entity store: one table per provisionable
// entity kind, each row carrying a status column that doubles as the task
// queue slot. The store is the single source of truth; handlers hold a
// transient copy of a row for the duration of one reconciliation pass only.
//
// The backing database is SQLite (modernc.org/sqlite) with WAL enabled.
// Schema migrations are embedded and applied through golang-migrate.
package store
