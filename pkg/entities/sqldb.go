package entities

import (
	"context"
	"fmt"

	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
)

// SQLDatabaseHandler converges a customer database on the SQL server.
type SQLDatabaseHandler struct {
	deps    Deps
	id      int64
	current status.Status

	row *store.SQLDatabase
}

// NewSQLDatabaseHandler creates the handler for one database row.
func NewSQLDatabaseHandler(deps Deps, id int64, current status.Status) *SQLDatabaseHandler {
	return &SQLDatabaseHandler{deps: deps, id: id, current: current}
}

// Load fetches the database with its domain joined in.
func (h *SQLDatabaseHandler) Load(ctx context.Context) error {
	row, err := h.deps.Store.GetSQLDatabase(ctx, h.id)
	if err != nil {
		return classifyLoad(err)
	}
	h.row = row
	return nil
}

// Add creates the database if it does not exist yet.
func (h *SQLDatabaseHandler) Add(ctx context.Context) error {
	if err := h.deps.SQLD.CreateDatabase(ctx, h.row.Name); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return nil
}

// Disable is a no-op: access control lives on the accounts, which are
// locked individually, and the data must survive a suspension.
func (h *SQLDatabaseHandler) Disable(ctx context.Context) error {
	h.deps.Log.WithEntity(string(store.KindSQLDatabase), h.id).
		Debug("database suspension is handled through its accounts")
	return nil
}

// Restore re-converges the database.
func (h *SQLDatabaseHandler) Restore(ctx context.Context) error {
	return h.Add(ctx)
}

// Delete drops the database and everything in it.
func (h *SQLDatabaseHandler) Delete(ctx context.Context) error {
	if err := h.deps.SQLD.DropDatabase(ctx, h.row.Name); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}
