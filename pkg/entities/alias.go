package entities

import (
	"context"
	"fmt"
	"os"

	"github.com/hostforge/hostforge/pkg/services"
	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
)

// DomainAliasHandler converges a domain alias. An alias is a full domain
// name of its own: it gets its own vhost, its own zone, and its own mail
// domain entry, but serves content from a mount point under the parent
// domain's web space.
type DomainAliasHandler struct {
	deps    Deps
	id      int64
	current status.Status

	row  *store.DomainAlias
	data dataCache
}

// NewDomainAliasHandler creates the handler for one alias row.
func NewDomainAliasHandler(deps Deps, id int64, current status.Status) *DomainAliasHandler {
	return &DomainAliasHandler{deps: deps, id: id, current: current, data: dataCache{}}
}

// Load fetches the alias with its parent domain joined in.
func (h *DomainAliasHandler) Load(ctx context.Context) error {
	row, err := h.deps.Store.GetDomainAlias(ctx, h.id)
	if err != nil {
		return classifyLoad(err)
	}
	h.row = row
	return nil
}

func (h *DomainAliasHandler) vhostData() services.Context {
	return h.data.get("vhost", func() services.Context {
		return services.Context{
			"name":          h.row.Name,
			"ip_address":    h.row.Domain.IPAddress,
			"document_root": h.row.DocumentRoot,
			"forward_url":   h.row.ForwardURL,
			"php_enabled":   h.row.Domain.PHPEnabled,
			"cgi_enabled":   h.row.Domain.CGIEnabled,
		}
	})
}

func (h *DomainAliasHandler) zoneData() services.Context {
	return h.data.get("zone", func() services.Context {
		cfg := h.deps.Cfg
		return services.Context{
			"name":         h.row.Name,
			"primary_ns":   cfg.Server.NameServers[0],
			"serial":       zoneSerial(h.row.Domain),
			"name_servers": cfg.Server.NameServers,
			"ip_address":   h.row.Domain.IPAddress,
		}
	})
}

// Add converges the alias vhost, zone, and mail domain entry.
func (h *DomainAliasHandler) Add(ctx context.Context) error {
	if h.row.ForwardURL == "" {
		if err := os.MkdirAll(h.row.DocumentRoot, 0o755); err != nil {
			return fmt.Errorf("add: failed to create document root: %w", err)
		}
	}
	if err := h.deps.HTTPD.AddVhost(ctx, h.vhostData()); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if err := h.deps.DNS.AddZone(ctx, h.zoneData()); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if err := h.deps.MTA.AddDomain(ctx, h.row.Name); err != nil {
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
func (h *DomainAliasHandler) Disable(ctx context.Context) error {
	data := services.Context{
		"name":          h.row.Name,
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
func (h *DomainAliasHandler) Restore(ctx context.Context) error {
	return h.Add(ctx)
}

// Delete removes the alias artifacts, keeping the mounted tree when a
// sibling still uses it.
func (h *DomainAliasHandler) Delete(ctx context.Context) error {
	if err := h.deps.MTA.DeleteDomain(ctx, h.row.Name); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := h.deps.DNS.DeleteZone(ctx, h.row.Name); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := h.deps.HTTPD.DeleteVhost(ctx, h.row.Name); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if h.row.ForwardURL == "" {
		shared, err := h.deps.Store.MountPointShared(ctx, h.row.DomainID, h.row.MountPoint, store.KindDomainAlias, h.id)
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		if shared {
			h.deps.Log.WithEntity(string(store.KindDomainAlias), h.id).
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
