package entities

import (
	"context"
	"fmt"
	"os"

	"github.com/hostforge/hostforge/pkg/services"
	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
)

// DomainHandler converges a root hosting domain: web root, vhost, DNS zone,
// and mail domain registration.
type DomainHandler struct {
	deps    Deps
	id      int64
	current status.Status

	row  *store.Domain
	data dataCache
}

// NewDomainHandler creates the handler for one domain row.
func NewDomainHandler(deps Deps, id int64, current status.Status) *DomainHandler {
	return &DomainHandler{deps: deps, id: id, current: current, data: dataCache{}}
}

// Load fetches the domain row.
func (h *DomainHandler) Load(ctx context.Context) error {
	row, err := h.deps.Store.GetDomain(ctx, h.id)
	if err != nil {
		return classifyLoad(err)
	}
	h.row = row
	return nil
}

func (h *DomainHandler) vhostData() services.Context {
	return h.data.get("vhost", func() services.Context {
		return services.Context{
			"name":          h.row.Name,
			"ip_address":    h.row.IPAddress,
			"document_root": h.row.DocumentRoot,
			"php_enabled":   h.row.PHPEnabled,
			"cgi_enabled":   h.row.CGIEnabled,
		}
	})
}

func (h *DomainHandler) zoneData() services.Context {
	return h.data.get("zone", func() services.Context {
		cfg := h.deps.Cfg
		return services.Context{
			"name":         h.row.Name,
			"primary_ns":   cfg.Server.NameServers[0],
			"serial":       zoneSerial(h.row),
			"name_servers": cfg.Server.NameServers,
			"ip_address":   h.row.IPAddress,
		}
	})
}

func (h *DomainHandler) disabledData() services.Context {
	return h.data.get("disabled", func() services.Context {
		return services.Context{
			"name":          h.row.Name,
			"ip_address":    h.row.IPAddress,
			"disabled_root": suspendedRoot(h.deps.Cfg),
		}
	})
}

// Add converges every artifact of the domain. Each step is idempotent, so a
// re-run after a partial failure completes the remainder.
func (h *DomainHandler) Add(ctx context.Context) error {
	if err := os.MkdirAll(h.row.DocumentRoot, 0o755); err != nil {
		return fmt.Errorf("add: failed to create web root: %w", err)
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
	return h.reloadWeb(ctx, true)
}

// Disable swaps the vhost for the suspended page. The zone and mail domain
// stay in place so the entity can be re-enabled without rebuilds.
func (h *DomainHandler) Disable(ctx context.Context) error {
	if err := h.deps.HTTPD.DisableVhost(ctx, h.disabledData()); err != nil {
		return fmt.Errorf("disable: %w", err)
	}
	return h.reloadWeb(ctx, false)
}

// Restore re-converges the full artifact set.
func (h *DomainHandler) Restore(ctx context.Context) error {
	return h.Add(ctx)
}

// Delete removes every artifact. The store row itself is removed by the
// processor after this returns nil.
func (h *DomainHandler) Delete(ctx context.Context) error {
	if err := h.deps.MTA.DeleteDomain(ctx, h.row.Name); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := h.deps.DNS.DeleteZone(ctx, h.row.Name); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := h.deps.HTTPD.DeleteVhost(ctx, h.row.Name); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := os.RemoveAll(h.row.DocumentRoot); err != nil {
		return fmt.Errorf("delete: failed to remove web root: %w", err)
	}
	return h.reloadWeb(ctx, true)
}

// reloadWeb reloads the web server and, when withDNS is set, the name
// server.
func (h *DomainHandler) reloadWeb(ctx context.Context, withDNS bool) error {
	if err := h.deps.HTTPD.Reload(ctx); err != nil {
		return fmt.Errorf("reload httpd: %w", err)
	}
	if withDNS {
		if err := h.deps.DNS.Reload(ctx); err != nil {
			return fmt.Errorf("reload dns: %w", err)
		}
	}
	return nil
}
