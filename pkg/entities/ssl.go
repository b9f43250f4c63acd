package entities

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hostforge/hostforge/pkg/services"
	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
)

// SSLCertHandler converges certificate material for a domain and rewrites
// the domain's vhost to serve it.
type SSLCertHandler struct {
	deps    Deps
	id      int64
	current status.Status

	row  *store.SSLCert
	data dataCache
}

// NewSSLCertHandler creates the handler for one certificate row.
func NewSSLCertHandler(deps Deps, id int64, current status.Status) *SSLCertHandler {
	return &SSLCertHandler{deps: deps, id: id, current: current, data: dataCache{}}
}

// Load fetches the certificate with its domain joined in.
func (h *SSLCertHandler) Load(ctx context.Context) error {
	row, err := h.deps.Store.GetSSLCert(ctx, h.id)
	if err != nil {
		return classifyLoad(err)
	}
	h.row = row
	return nil
}

func (h *SSLCertHandler) certPath() string {
	return filepath.Join(h.deps.Cfg.Paths.CertDir, h.row.CommonName+".crt")
}

func (h *SSLCertHandler) keyPath() string {
	return filepath.Join(h.deps.Cfg.Paths.CertDir, h.row.CommonName+".key")
}

func (h *SSLCertHandler) caPath() string {
	return filepath.Join(h.deps.Cfg.Paths.CertDir, h.row.CommonName+".ca")
}

// vhostData builds the domain vhost context, with or without the TLS block.
func (h *SSLCertHandler) vhostData(ssl bool) services.Context {
	action := "vhost"
	if ssl {
		action = "vhost-ssl"
	}
	return h.data.get(action, func() services.Context {
		d := h.row.Domain
		data := services.Context{
			"name":          d.Name,
			"ip_address":    d.IPAddress,
			"document_root": d.DocumentRoot,
			"php_enabled":   d.PHPEnabled,
			"cgi_enabled":   d.CGIEnabled,
		}
		if ssl {
			data["ssl_enabled"] = true
			data["ssl_cert_path"] = h.certPath()
			data["ssl_key_path"] = h.keyPath()
			if h.row.CABundle != "" {
				data["ssl_ca_path"] = h.caPath()
			}
		}
		return data
	})
}

// Add writes the certificate material and switches the vhost to TLS. The
// private key is never world-readable.
func (h *SSLCertHandler) Add(ctx context.Context) error {
	if err := services.WriteFileAtomic(h.certPath(), []byte(h.row.Certificate), 0o644); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if err := services.WriteFileAtomic(h.keyPath(), []byte(h.row.PrivateKey), 0o600); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if h.row.CABundle != "" {
		if err := services.WriteFileAtomic(h.caPath(), []byte(h.row.CABundle), 0o644); err != nil {
			return fmt.Errorf("add: %w", err)
		}
	} else if err := os.Remove(h.caPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("add: failed to remove stale ca bundle: %w", err)
	}

	if err := h.deps.HTTPD.AddVhost(ctx, h.vhostData(true)); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return h.reload(ctx)
}

// Disable switches the vhost back to plain HTTP, keeping the material on
// disk for re-enable.
func (h *SSLCertHandler) Disable(ctx context.Context) error {
	if err := h.deps.HTTPD.AddVhost(ctx, h.vhostData(false)); err != nil {
		return fmt.Errorf("disable: %w", err)
	}
	return h.reload(ctx)
}

// Restore re-converges the material and the TLS vhost.
func (h *SSLCertHandler) Restore(ctx context.Context) error {
	return h.Add(ctx)
}

// Delete removes the material and switches the vhost back to plain HTTP.
func (h *SSLCertHandler) Delete(ctx context.Context) error {
	for _, path := range []string{h.certPath(), h.keyPath(), h.caPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete: failed to remove %s: %w", path, err)
		}
	}
	if err := h.deps.HTTPD.AddVhost(ctx, h.vhostData(false)); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return h.reload(ctx)
}

func (h *SSLCertHandler) reload(ctx context.Context) error {
	if err := h.deps.HTTPD.Reload(ctx); err != nil {
		return fmt.Errorf("reload httpd: %w", err)
	}
	return nil
}
