package entities

import (
	"context"
	"fmt"
	"os"

	"github.com/hostforge/hostforge/pkg/services"
	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
)

// FTPUserHandler converges a virtual FTP login.
type FTPUserHandler struct {
	deps    Deps
	id      int64
	current status.Status

	row  *store.FTPUser
	data dataCache
}

// NewFTPUserHandler creates the handler for one FTP user row.
func NewFTPUserHandler(deps Deps, id int64, current status.Status) *FTPUserHandler {
	return &FTPUserHandler{deps: deps, id: id, current: current, data: dataCache{}}
}

// Load fetches the user with its domain joined in.
func (h *FTPUserHandler) Load(ctx context.Context) error {
	row, err := h.deps.Store.GetFTPUser(ctx, h.id)
	if err != nil {
		return classifyLoad(err)
	}
	h.row = row
	return nil
}

func (h *FTPUserHandler) userData() services.Context {
	return h.data.get("user", func() services.Context {
		return services.Context{
			"username":      h.row.Username,
			"password_hash": h.row.PasswordHash,
			"home_dir":      h.row.HomeDir,
			"shell":         h.row.Shell,
		}
	})
}

// Add converges the user entry. The entry file carries the credential, so
// the tochangepwd fast path rewrites it without touching the home directory.
func (h *FTPUserHandler) Add(ctx context.Context) error {
	if h.current != status.ToChangePwd {
		if err := os.MkdirAll(h.row.HomeDir, 0o755); err != nil {
			return fmt.Errorf("add: failed to create home directory: %w", err)
		}
	}
	if err := h.deps.FTPD.AddUser(ctx, h.userData()); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return h.reload(ctx)
}

// Disable locks the entry; the home directory stays.
func (h *FTPUserHandler) Disable(ctx context.Context) error {
	if err := h.deps.FTPD.DisableUser(ctx, h.userData()); err != nil {
		return fmt.Errorf("disable: %w", err)
	}
	return h.reload(ctx)
}

// Restore rewrites the entry unlocked.
func (h *FTPUserHandler) Restore(ctx context.Context) error {
	if err := h.deps.FTPD.AddUser(ctx, h.userData()); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return h.reload(ctx)
}

// Delete removes the entry. The home directory lives inside the domain's
// web space and belongs to the web entities, so it stays.
func (h *FTPUserHandler) Delete(ctx context.Context) error {
	if err := h.deps.FTPD.DeleteUser(ctx, h.row.Username); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return h.reload(ctx)
}

func (h *FTPUserHandler) reload(ctx context.Context) error {
	if err := h.deps.FTPD.Reload(ctx); err != nil {
		return fmt.Errorf("reload ftpd: %w", err)
	}
	return nil
}
