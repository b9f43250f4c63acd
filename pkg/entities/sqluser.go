package entities

import (
	"context"
	"fmt"

	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
)

// SQLUserHandler converges a database account and its grant.
type SQLUserHandler struct {
	deps    Deps
	id      int64
	current status.Status

	row *store.SQLUser
}

// NewSQLUserHandler creates the handler for one SQL user row.
func NewSQLUserHandler(deps Deps, id int64, current status.Status) *SQLUserHandler {
	return &SQLUserHandler{deps: deps, id: id, current: current}
}

// Load fetches the user with its database and domain joined in.
func (h *SQLUserHandler) Load(ctx context.Context) error {
	row, err := h.deps.Store.GetSQLUser(ctx, h.id)
	if err != nil {
		return classifyLoad(err)
	}
	h.row = row
	return nil
}

// Add converges the account. On tochangepwd only the password rotates; the
// account and its grant are left untouched.
func (h *SQLUserHandler) Add(ctx context.Context) error {
	if h.current == status.ToChangePwd {
		if err := h.deps.SQLD.SetPassword(ctx, h.row.Username, h.row.Host, h.row.PasswordHash); err != nil {
			return fmt.Errorf("changepwd: %w", err)
		}
		return nil
	}

	if err := h.deps.SQLD.CreateUser(ctx, h.row.Username, h.row.Host, h.row.PasswordHash); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if err := h.deps.SQLD.Grant(ctx, h.row.Database.Name, h.row.Username, h.row.Host); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return nil
}

// Disable locks the account without dropping it.
func (h *SQLUserHandler) Disable(ctx context.Context) error {
	if err := h.deps.SQLD.LockUser(ctx, h.row.Username, h.row.Host); err != nil {
		return fmt.Errorf("disable: %w", err)
	}
	return nil
}

// Restore unlocks the account and re-asserts its grant.
func (h *SQLUserHandler) Restore(ctx context.Context) error {
	if err := h.deps.SQLD.UnlockUser(ctx, h.row.Username, h.row.Host); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if err := h.deps.SQLD.Grant(ctx, h.row.Database.Name, h.row.Username, h.row.Host); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}

// Delete drops the account.
func (h *SQLUserHandler) Delete(ctx context.Context) error {
	if err := h.deps.SQLD.DropUser(ctx, h.row.Username, h.row.Host); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}
