package entities

import (
	"context"
	"fmt"

	"github.com/hostforge/hostforge/pkg/services"
	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
)

// MailAccountHandler converges a mailbox, forward, or catchall.
type MailAccountHandler struct {
	deps    Deps
	id      int64
	current status.Status

	row  *store.MailAccount
	data dataCache
}

// NewMailAccountHandler creates the handler for one mail account row.
func NewMailAccountHandler(deps Deps, id int64, current status.Status) *MailAccountHandler {
	return &MailAccountHandler{deps: deps, id: id, current: current, data: dataCache{}}
}

// Load fetches the account with its domain joined in.
func (h *MailAccountHandler) Load(ctx context.Context) error {
	row, err := h.deps.Store.GetMailAccount(ctx, h.id)
	if err != nil {
		return classifyLoad(err)
	}
	h.row = row
	return nil
}

func (h *MailAccountHandler) mailData() services.Context {
	return h.data.get("mail", func() services.Context {
		return services.Context{
			"address":         h.row.Address,
			"password_hash":   h.row.PasswordHash,
			"forward_targets": h.row.ForwardTargets,
			"mail_type":       h.row.MailType,
			"quota":           h.row.Quota,
		}
	})
}

// Add converges the account. On tochangepwd the artifacts are untouched and
// only the password table entry rotates.
func (h *MailAccountHandler) Add(ctx context.Context) error {
	if h.current == status.ToChangePwd {
		if err := h.deps.MTA.SetPassword(ctx, h.row.Address, h.row.PasswordHash); err != nil {
			return fmt.Errorf("changepwd: %w", err)
		}
		return h.reload(ctx)
	}

	switch h.row.MailType {
	case store.MailTypeNormal:
		if err := h.deps.MTA.AddMailbox(ctx, h.mailData()); err != nil {
			return fmt.Errorf("add: %w", err)
		}
	case store.MailTypeForward, store.MailTypeCatchall:
		if err := h.deps.MTA.AddForward(ctx, h.mailData()); err != nil {
			return fmt.Errorf("add: %w", err)
		}
	default:
		return fmt.Errorf("add: unknown mail type %q", h.row.MailType)
	}
	return h.reload(ctx)
}

// Disable withdraws delivery without touching mailbox contents or the
// password entry.
func (h *MailAccountHandler) Disable(ctx context.Context) error {
	if err := h.deps.MTA.DisableMail(ctx, h.row.Address); err != nil {
		return fmt.Errorf("disable: %w", err)
	}
	return h.reload(ctx)
}

// Restore re-converges the full account.
func (h *MailAccountHandler) Restore(ctx context.Context) error {
	// The fast path never applies to a restore.
	saved := h.current
	h.current = status.ToRestore
	defer func() { h.current = saved }()
	return h.Add(ctx)
}

// Delete removes every table entry and the mailbox storage.
func (h *MailAccountHandler) Delete(ctx context.Context) error {
	if err := h.deps.MTA.DeleteMail(ctx, h.row.Address); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return h.reload(ctx)
}

func (h *MailAccountHandler) reload(ctx context.Context) error {
	if err := h.deps.MTA.Reload(ctx); err != nil {
		return fmt.Errorf("reload mta: %w", err)
	}
	return nil
}
