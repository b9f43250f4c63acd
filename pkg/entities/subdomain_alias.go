package entities

import (
	"context"
	"fmt"
	"os"

	"github.com/hostforge/hostforge/pkg/services"
	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
)

// SubdomainAliasHandler converges a subdomain under a domain alias: a vhost
// plus an A record inside the alias zone.
type SubdomainAliasHandler struct {
	deps    Deps
	id      int64
	current status.Status

	row  *store.SubdomainAlias
	data dataCache
}

// NewSubdomainAliasHandler creates the handler for one subdomain alias row.
func NewSubdomainAliasHandler(deps Deps, id int64, current status.Status) *SubdomainAliasHandler {
	return &SubdomainAliasHandler{deps: deps, id: id, current: current, data: dataCache{}}
}

// Load fetches the row with its alias and root domain joined in.
func (h *SubdomainAliasHandler) Load(ctx context.Context) error {
	row, err := h.deps.Store.GetSubdomainAlias(ctx, h.id)
	if err != nil {
		return classifyLoad(err)
	}
	h.row = row
	return nil
}

func (h *SubdomainAliasHandler) fqdn() string {
	return h.row.Name + "." + h.row.Alias.Name
}

func (h *SubdomainAliasHandler) recordRef() string {
	return fmt.Sprintf("subdomain-alias-%d", h.id)
}

func (h *SubdomainAliasHandler) vhostData() services.Context {
	return h.data.get("vhost", func() services.Context {
		return services.Context{
			"name":          h.fqdn(),
			"ip_address":    h.row.Domain.IPAddress,
			"document_root": h.row.DocumentRoot,
			"forward_url":   h.row.ForwardURL,
			"php_enabled":   h.row.Domain.PHPEnabled,
			"cgi_enabled":   h.row.Domain.CGIEnabled,
		}
	})
}

func (h *SubdomainAliasHandler) recordData() services.Context {
	return h.data.get("record", func() services.Context {
		return services.Context{
			"owner_name":   h.row.Name,
			"ttl":          int64(3600),
			"record_class": "IN",
			"record_type":  "A",
			"record_data":  h.row.Domain.IPAddress,
		}
	})
}

// Add converges the vhost and the record in the alias zone.
func (h *SubdomainAliasHandler) Add(ctx context.Context) error {
	if h.row.ForwardURL == "" {
		if err := os.MkdirAll(h.row.DocumentRoot, 0o755); err != nil {
			return fmt.Errorf("add: failed to create document root: %w", err)
		}
	}
	if err := h.deps.HTTPD.AddVhost(ctx, h.vhostData()); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if err := h.deps.DNS.AddRecord(ctx, h.row.Alias.Name, h.recordRef(), h.recordData()); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if err := h.deps.HTTPD.Reload(ctx); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if err := h.deps.DNS.Reload(ctx); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return nil
}

// Disable swaps the vhost for the suspended page.
func (h *SubdomainAliasHandler) Disable(ctx context.Context) error {
	data := services.Context{
		"name":          h.fqdn(),
		"ip_address":    h.row.Domain.IPAddress,
		"disabled_root": suspendedRoot(h.deps.Cfg),
	}
	if err := h.deps.HTTPD.DisableVhost(ctx, data); err != nil {
		return fmt.Errorf("disable: %w", err)
	}
	if err := h.deps.HTTPD.Reload(ctx); err != nil {
		return fmt.Errorf("disable: %w", err)
	}
	return nil
}

// Restore re-converges the full artifact set.
func (h *SubdomainAliasHandler) Restore(ctx context.Context) error {
	return h.Add(ctx)
}

// Delete removes the vhost and record, keeping the mounted tree when a
// sibling still uses it.
func (h *SubdomainAliasHandler) Delete(ctx context.Context) error {
	if err := h.deps.HTTPD.DeleteVhost(ctx, h.fqdn()); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := h.deps.DNS.DeleteRecord(ctx, h.row.Alias.Name, h.recordRef()); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if h.row.ForwardURL == "" {
		shared, err := h.deps.Store.MountPointShared(ctx, h.row.Domain.ID, h.row.MountPoint, store.KindSubdomainAlias, h.id)
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		if shared {
			h.deps.Log.WithEntity(string(store.KindSubdomainAlias), h.id).
				Infof("mount point %s shared with a sibling, keeping files", h.row.MountPoint)
		} else if err := os.RemoveAll(h.row.DocumentRoot); err != nil {
			return fmt.Errorf("delete: failed to remove document root: %w", err)
		}
	}

	if err := h.deps.HTTPD.Reload(ctx); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := h.deps.DNS.Reload(ctx); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}
