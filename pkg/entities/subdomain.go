package entities

import (
	"context"
	"fmt"
	"os"

	"github.com/hostforge/hostforge/pkg/services"
	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
)

// SubdomainHandler converges a subdomain: its vhost, its A record in the
// parent zone, and its document root.
type SubdomainHandler struct {
	deps    Deps
	id      int64
	current status.Status

	row  *store.Subdomain
	data dataCache
}

// NewSubdomainHandler creates the handler for one subdomain row.
func NewSubdomainHandler(deps Deps, id int64, current status.Status) *SubdomainHandler {
	return &SubdomainHandler{deps: deps, id: id, current: current, data: dataCache{}}
}

// Load fetches the subdomain with its parent domain joined in.
func (h *SubdomainHandler) Load(ctx context.Context) error {
	row, err := h.deps.Store.GetSubdomain(ctx, h.id)
	if err != nil {
		return classifyLoad(err)
	}
	h.row = row
	return nil
}

func (h *SubdomainHandler) fqdn() string {
	return h.row.Name + "." + h.row.Domain.Name
}

func (h *SubdomainHandler) recordRef() string {
	return fmt.Sprintf("subdomain-%d", h.id)
}

func (h *SubdomainHandler) vhostData() services.Context {
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

func (h *SubdomainHandler) recordData() services.Context {
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

// Add converges the vhost, the zone record, and the document root. Forwards
// get no document root of their own.
func (h *SubdomainHandler) Add(ctx context.Context) error {
	if h.row.ForwardURL == "" {
		if err := os.MkdirAll(h.row.DocumentRoot, 0o755); err != nil {
			return fmt.Errorf("add: failed to create document root: %w", err)
		}
	}
	if err := h.deps.HTTPD.AddVhost(ctx, h.vhostData()); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if err := h.deps.DNS.AddRecord(ctx, h.row.Domain.Name, h.recordRef(), h.recordData()); err != nil {
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

// Disable swaps the vhost for the suspended page; the zone record stays.
func (h *SubdomainHandler) Disable(ctx context.Context) error {
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
func (h *SubdomainHandler) Restore(ctx context.Context) error {
	return h.Add(ctx)
}

// Delete removes the vhost and zone record, and tears down the document
// root unless a sibling still mounts the same path.
func (h *SubdomainHandler) Delete(ctx context.Context) error {
	if err := h.deps.HTTPD.DeleteVhost(ctx, h.fqdn()); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := h.deps.DNS.DeleteRecord(ctx, h.row.Domain.Name, h.recordRef()); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if h.row.ForwardURL == "" {
		shared, err := h.deps.Store.MountPointShared(ctx, h.row.DomainID, h.row.MountPoint, store.KindSubdomain, h.id)
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		if shared {
			h.deps.Log.WithEntity(string(store.KindSubdomain), h.id).
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
