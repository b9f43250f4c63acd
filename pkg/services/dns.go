package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DNS manages authoritative zone files and their custom record includes.
type DNS interface {
	// AddZone writes (or rewrites) the zone file for the domain named in the
	// context and makes sure its custom include exists.
	AddZone(ctx context.Context, data Context) error

	// DeleteZone removes the zone file, its custom include, and all record
	// fragments. Removing an absent zone is not an error.
	DeleteZone(ctx context.Context, name string) error

	// AddRecord writes the record fragment identified by ref into the zone's
	// fragment directory and rebuilds the custom include. Refs are namespaced
	// by their owner, e.g. "record-12" or "subdomain-3".
	AddRecord(ctx context.Context, zone, ref string, data Context) error

	// DeleteRecord removes a record fragment and rebuilds the custom include.
	// Removing an absent fragment is not an error.
	DeleteRecord(ctx context.Context, zone, ref string) error

	// Reload reloads the name server.
	Reload(ctx context.Context) error
}

// FileDNS writes bind-style zone files. Each custom record lives in its own
// fragment file so that record adds and deletes converge regardless of how
// often they run; the fragments are concatenated into a single $INCLUDE file
// in ref order.
type FileDNS struct {
	ZoneDir string
	Service string

	renderer  Renderer
	runner    ServiceRunner
	publisher Publisher
}

// NewFileDNS creates the zone file writer.
func NewFileDNS(zoneDir, service string, renderer Renderer, runner ServiceRunner, publisher Publisher) *FileDNS {
	return &FileDNS{
		ZoneDir:   zoneDir,
		Service:   service,
		renderer:  renderer,
		runner:    runner,
		publisher: publisher,
	}
}

func (d *FileDNS) zonePath(name string) string    { return filepath.Join(d.ZoneDir, name+".db") }
func (d *FileDNS) includePath(name string) string { return filepath.Join(d.ZoneDir, name+".custom") }
func (d *FileDNS) fragmentDir(name string) string { return filepath.Join(d.ZoneDir, name+".d") }

func (d *FileDNS) fragmentPath(zone, ref string) string {
	return filepath.Join(d.fragmentDir(zone), ref+".rr")
}

// AddZone renders the zone file and seeds an empty custom include when none
// exists yet. Existing record fragments survive a zone rewrite.
func (d *FileDNS) AddZone(ctx context.Context, data Context) error {
	name := data.Str("name")
	if name == "" {
		return fmt.Errorf("zone context is missing a name")
	}

	if err := os.MkdirAll(d.fragmentDir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create zone fragment directory: %w", err)
	}

	include := d.includePath(name)
	if _, err := os.Stat(include); os.IsNotExist(err) {
		if err := WriteFileAtomic(include, nil, 0o644); err != nil {
			return err
		}
	} else if err != nil {
		return fmt.Errorf("failed to stat custom include: %w", err)
	}

	data["custom_include"] = include
	rendered, err := d.renderer.Render("dns_zone.db.tmpl", data)
	if err != nil {
		return err
	}

	path := d.zonePath(name)
	if err := WriteFileAtomic(path, rendered, 0o644); err != nil {
		return err
	}

	if d.publisher != nil {
		if err := d.publisher.PushFile(ctx, include); err != nil {
			return err
		}
		return d.publisher.PushFile(ctx, path)
	}
	return nil
}

// DeleteZone removes the zone file together with its include and fragments.
func (d *FileDNS) DeleteZone(ctx context.Context, name string) error {
	for _, path := range []string{d.zonePath(name), d.includePath(name)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove zone artifact: %w", err)
		}
		if d.publisher != nil {
			if err := d.publisher.RemovePath(ctx, path); err != nil {
				return err
			}
		}
	}

	if err := os.RemoveAll(d.fragmentDir(name)); err != nil {
		return fmt.Errorf("failed to remove zone fragments: %w", err)
	}
	if d.publisher != nil {
		return d.publisher.RemovePath(ctx, d.fragmentDir(name))
	}
	return nil
}

// AddRecord writes one record fragment and rebuilds the custom include.
func (d *FileDNS) AddRecord(ctx context.Context, zone, ref string, data Context) error {
	if err := os.MkdirAll(d.fragmentDir(zone), 0o755); err != nil {
		return fmt.Errorf("failed to create zone fragment directory: %w", err)
	}

	line := fmt.Sprintf("%s %d %s %s %s\n",
		data.Str("owner_name"), data["ttl"], data.Str("record_class"),
		data.Str("record_type"), data.Str("record_data"))
	if err := WriteFileAtomic(d.fragmentPath(zone, ref), []byte(line), 0o644); err != nil {
		return err
	}

	return d.rebuildInclude(ctx, zone)
}

// DeleteRecord removes one record fragment and rebuilds the custom include.
func (d *FileDNS) DeleteRecord(ctx context.Context, zone, ref string) error {
	if err := os.Remove(d.fragmentPath(zone, ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove record fragment: %w", err)
	}
	return d.rebuildInclude(ctx, zone)
}

// Reload reloads the name server.
func (d *FileDNS) Reload(ctx context.Context) error {
	return d.runner.Reload(ctx, d.Service)
}

func (d *FileDNS) rebuildInclude(ctx context.Context, zone string) error {
	entries, err := os.ReadDir(d.fragmentDir(zone))
	if err != nil {
		if os.IsNotExist(err) {
			entries = nil
		} else {
			return fmt.Errorf("failed to list zone fragments: %w", err)
		}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".rr") {
			names = append(names, e.Name())
		}
	}
	// Lexical order keeps the include byte-stable across rebuilds.
	sort.Strings(names)

	var buf strings.Builder
	for _, n := range names {
		body, err := os.ReadFile(filepath.Join(d.fragmentDir(zone), n))
		if err != nil {
			return fmt.Errorf("failed to read record fragment: %w", err)
		}
		buf.Write(body)
	}

	include := d.includePath(zone)
	if err := WriteFileAtomic(include, []byte(buf.String()), 0o644); err != nil {
		return err
	}
	if d.publisher != nil {
		return d.publisher.PushFile(ctx, include)
	}
	return nil
}
