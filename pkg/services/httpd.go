package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Publisher mirrors generated artifacts to secondary nodes. A nil Publisher
// means single-host operation.
type Publisher interface {
	PushFile(ctx context.Context, localPath string) error
	RemovePath(ctx context.Context, localPath string) error
}

// HTTPD manages web server vhost configuration.
type HTTPD interface {
	// AddVhost writes (or rewrites) the vhost config for the site named in
	// the context. Re-running with the same context converges to the same
	// file.
	AddVhost(ctx context.Context, data Context) error

	// DisableVhost replaces the site's vhost with the suspended-site page.
	DisableVhost(ctx context.Context, data Context) error

	// DeleteVhost removes the site's vhost config. Removing an absent vhost
	// is not an error.
	DeleteVhost(ctx context.Context, name string) error

	// Reload reloads the web server.
	Reload(ctx context.Context) error
}

// FileHTTPD writes one config file per vhost into a sites directory.
type FileHTTPD struct {
	ConfDir string
	Service string

	renderer  Renderer
	runner    ServiceRunner
	publisher Publisher
}

// NewFileHTTPD creates the vhost writer.
func NewFileHTTPD(confDir, service string, renderer Renderer, runner ServiceRunner, publisher Publisher) *FileHTTPD {
	return &FileHTTPD{
		ConfDir:   confDir,
		Service:   service,
		renderer:  renderer,
		runner:    runner,
		publisher: publisher,
	}
}

func (h *FileHTTPD) vhostPath(name string) string {
	return filepath.Join(h.ConfDir, name+".conf")
}

// AddVhost renders the vhost (or forward) template and replaces the site
// config atomically.
func (h *FileHTTPD) AddVhost(ctx context.Context, data Context) error {
	name := data.Str("name")
	if name == "" {
		return fmt.Errorf("vhost context is missing a name")
	}

	tmpl := "httpd_vhost.conf.tmpl"
	if data.Str("forward_url") != "" {
		tmpl = "httpd_forward.conf.tmpl"
	}

	rendered, err := h.renderer.Render(tmpl, data)
	if err != nil {
		return err
	}

	path := h.vhostPath(name)
	if err := WriteFileAtomic(path, rendered, 0o644); err != nil {
		return err
	}

	return h.publish(ctx, path)
}

// DisableVhost replaces the site config with the suspended-site vhost.
func (h *FileHTTPD) DisableVhost(ctx context.Context, data Context) error {
	name := data.Str("name")
	if name == "" {
		return fmt.Errorf("vhost context is missing a name")
	}

	rendered, err := h.renderer.Render("httpd_disabled.conf.tmpl", data)
	if err != nil {
		return err
	}

	path := h.vhostPath(name)
	if err := WriteFileAtomic(path, rendered, 0o644); err != nil {
		return err
	}

	return h.publish(ctx, path)
}

// DeleteVhost removes the site config.
func (h *FileHTTPD) DeleteVhost(ctx context.Context, name string) error {
	path := h.vhostPath(name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove vhost config: %w", err)
	}

	if h.publisher != nil {
		return h.publisher.RemovePath(ctx, path)
	}
	return nil
}

// Reload reloads the web server.
func (h *FileHTTPD) Reload(ctx context.Context) error {
	return h.runner.Reload(ctx, h.Service)
}

func (h *FileHTTPD) publish(ctx context.Context, path string) error {
	if h.publisher == nil {
		return nil
	}
	return h.publisher.PushFile(ctx, path)
}
