package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingRunner struct {
	reloaded  []string
	restarted []string
}

func (r *recordingRunner) Reload(ctx context.Context, service string) error {
	r.reloaded = append(r.reloaded, service)
	return nil
}

func (r *recordingRunner) Restart(ctx context.Context, service string) error {
	r.restarted = append(r.restarted, service)
	return nil
}

func newTestRenderer(t *testing.T) Renderer {
	t.Helper()
	r, err := NewTemplateRenderer()
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}
	return r
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(body)
}

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.conf")

	if err := WriteFileAtomic(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0o644); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	if got := readFile(t, path); got != "second" {
		t.Errorf("expected replaced content, got %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("failed to list dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, found %d entries", len(entries))
	}
}

func TestHTTPDVhostLifecycle(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{}
	httpd := NewFileHTTPD(dir, "apache2", newTestRenderer(t), runner, nil)
	ctx := context.Background()

	data := Context{
		"name":          "example.com",
		"ip_address":    "192.0.2.10",
		"document_root": "/var/www/example.com",
		"php_enabled":   true,
		"cgi_enabled":   false,
	}
	if err := httpd.AddVhost(ctx, data); err != nil {
		t.Fatalf("AddVhost failed: %v", err)
	}

	vhost := filepath.Join(dir, "example.com.conf")
	body := readFile(t, vhost)
	if !strings.Contains(body, "ServerName example.com") {
		t.Errorf("vhost missing ServerName: %q", body)
	}
	if !strings.Contains(body, "DocumentRoot /var/www/example.com") {
		t.Errorf("vhost missing DocumentRoot: %q", body)
	}

	// Adding again converges to the same artifact.
	if err := httpd.AddVhost(ctx, data); err != nil {
		t.Fatalf("second AddVhost failed: %v", err)
	}
	if again := readFile(t, vhost); again != body {
		t.Errorf("repeated AddVhost changed the artifact")
	}

	if err := httpd.DisableVhost(ctx, Context{
		"name":          "example.com",
		"ip_address":    "192.0.2.10",
		"disabled_root": "/var/www/suspended",
	}); err != nil {
		t.Fatalf("DisableVhost failed: %v", err)
	}
	if body := readFile(t, vhost); !strings.Contains(body, "/var/www/suspended") {
		t.Errorf("disabled vhost does not point at suspended page: %q", body)
	}

	if err := httpd.DeleteVhost(ctx, "example.com"); err != nil {
		t.Fatalf("DeleteVhost failed: %v", err)
	}
	if _, err := os.Stat(vhost); !os.IsNotExist(err) {
		t.Errorf("expected vhost file removed, stat err = %v", err)
	}

	// Deleting an absent vhost is a no-op.
	if err := httpd.DeleteVhost(ctx, "example.com"); err != nil {
		t.Errorf("repeated DeleteVhost failed: %v", err)
	}

	if err := httpd.Reload(ctx); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if len(runner.reloaded) != 1 || runner.reloaded[0] != "apache2" {
		t.Errorf("expected one apache2 reload, got %v", runner.reloaded)
	}
}

func TestHTTPDForwardUsesRedirect(t *testing.T) {
	dir := t.TempDir()
	httpd := NewFileHTTPD(dir, "apache2", newTestRenderer(t), &recordingRunner{}, nil)

	err := httpd.AddVhost(context.Background(), Context{
		"name":        "old.example.com",
		"ip_address":  "192.0.2.10",
		"forward_url": "https://new.example.com/",
	})
	if err != nil {
		t.Fatalf("AddVhost failed: %v", err)
	}

	body := readFile(t, filepath.Join(dir, "old.example.com.conf"))
	if !strings.Contains(body, "Redirect permanent / https://new.example.com/") {
		t.Errorf("forward vhost missing redirect: %q", body)
	}
}

func TestDNSRecordFragments(t *testing.T) {
	dir := t.TempDir()
	dns := NewFileDNS(dir, "named", newTestRenderer(t), &recordingRunner{}, nil)
	ctx := context.Background()

	zone := Context{
		"name":         "example.com",
		"primary_ns":   "ns1.example.com",
		"serial":       "0000000042",
		"name_servers": []string{"ns1.example.com", "ns2.example.com"},
		"ip_address":   "192.0.2.10",
	}
	if err := dns.AddZone(ctx, zone); err != nil {
		t.Fatalf("AddZone failed: %v", err)
	}

	zoneFile := readFile(t, filepath.Join(dir, "example.com.db"))
	if !strings.Contains(zoneFile, "$ORIGIN example.com.") {
		t.Errorf("zone file missing origin: %q", zoneFile)
	}
	if !strings.Contains(zoneFile, "ns2.example.com.") {
		t.Errorf("zone file missing secondary NS: %q", zoneFile)
	}

	if err := dns.AddRecord(ctx, "example.com", "record-12", Context{
		"owner_name":   "api",
		"ttl":          300,
		"record_class": "IN",
		"record_type":  "A",
		"record_data":  "192.0.2.20",
	}); err != nil {
		t.Fatalf("AddRecord failed: %v", err)
	}
	if err := dns.AddRecord(ctx, "example.com", "record-03", Context{
		"owner_name":   "ftp",
		"ttl":          300,
		"record_class": "IN",
		"record_type":  "CNAME",
		"record_data":  "example.com.",
	}); err != nil {
		t.Fatalf("AddRecord failed: %v", err)
	}

	include := readFile(t, filepath.Join(dir, "example.com.custom"))
	ftpIdx := strings.Index(include, "ftp")
	apiIdx := strings.Index(include, "api")
	if ftpIdx < 0 || apiIdx < 0 || ftpIdx > apiIdx {
		t.Errorf("include not in ref order: %q", include)
	}

	// Rewriting the zone keeps the existing fragments.
	if err := dns.AddZone(ctx, zone); err != nil {
		t.Fatalf("second AddZone failed: %v", err)
	}
	if again := readFile(t, filepath.Join(dir, "example.com.custom")); again != include {
		t.Errorf("zone rewrite clobbered custom include")
	}

	if err := dns.DeleteRecord(ctx, "example.com", "record-12"); err != nil {
		t.Fatalf("DeleteRecord failed: %v", err)
	}
	include = readFile(t, filepath.Join(dir, "example.com.custom"))
	if strings.Contains(include, "api") {
		t.Errorf("deleted record still present in include: %q", include)
	}
	if !strings.Contains(include, "ftp") {
		t.Errorf("sibling record lost on delete: %q", include)
	}

	if err := dns.DeleteZone(ctx, "example.com"); err != nil {
		t.Fatalf("DeleteZone failed: %v", err)
	}
	for _, leftover := range []string{"example.com.db", "example.com.custom", "example.com.d"} {
		if _, err := os.Stat(filepath.Join(dir, leftover)); !os.IsNotExist(err) {
			t.Errorf("expected %s removed, stat err = %v", leftover, err)
		}
	}
}

func TestMTAMailboxLifecycle(t *testing.T) {
	confDir := t.TempDir()
	mailRoot := t.TempDir()
	mta := NewFileMTA(confDir, mailRoot, "postfix", &recordingRunner{}, nil)
	ctx := context.Background()

	if err := mta.AddDomain(ctx, "example.com"); err != nil {
		t.Fatalf("AddDomain failed: %v", err)
	}

	if err := mta.AddMailbox(ctx, Context{
		"address":       "alice@example.com",
		"password_hash": "$6$salt$hash",
	}); err != nil {
		t.Fatalf("AddMailbox failed: %v", err)
	}

	maildir := filepath.Join(mailRoot, "example.com", "alice")
	for _, sub := range []string{"cur", "new", "tmp"} {
		if _, err := os.Stat(filepath.Join(maildir, sub)); err != nil {
			t.Errorf("maildir %s missing: %v", sub, err)
		}
	}
	if body := readFile(t, filepath.Join(confDir, "passwd", "alice@example.com")); !strings.Contains(body, "$6$salt$hash") {
		t.Errorf("password entry missing hash: %q", body)
	}

	// Disable keeps the password entry and the mailbox contents.
	if err := mta.DisableMail(ctx, "alice@example.com"); err != nil {
		t.Fatalf("DisableMail failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(confDir, "mailboxes", "alice@example.com")); !os.IsNotExist(err) {
		t.Errorf("expected delivery entry removed on disable")
	}
	if _, err := os.Stat(filepath.Join(confDir, "passwd", "alice@example.com")); err != nil {
		t.Errorf("disable must not remove the password entry: %v", err)
	}
	if _, err := os.Stat(maildir); err != nil {
		t.Errorf("disable must not remove the maildir: %v", err)
	}

	if err := mta.DeleteMail(ctx, "alice@example.com"); err != nil {
		t.Fatalf("DeleteMail failed: %v", err)
	}
	if _, err := os.Stat(maildir); !os.IsNotExist(err) {
		t.Errorf("expected maildir removed on delete")
	}
	if _, err := os.Stat(filepath.Join(confDir, "passwd", "alice@example.com")); !os.IsNotExist(err) {
		t.Errorf("expected password entry removed on delete")
	}
}

func TestMTACatchallDeleteKeepsSiblingMail(t *testing.T) {
	confDir := t.TempDir()
	mailRoot := t.TempDir()
	mta := NewFileMTA(confDir, mailRoot, "postfix", &recordingRunner{}, nil)
	ctx := context.Background()

	if err := mta.AddMailbox(ctx, Context{
		"address":       "alice@example.com",
		"password_hash": "$6$salt$hash",
	}); err != nil {
		t.Fatalf("AddMailbox failed: %v", err)
	}
	if err := mta.AddForward(ctx, Context{
		"address":         "@example.com",
		"forward_targets": "postmaster@example.com",
	}); err != nil {
		t.Fatalf("AddForward failed: %v", err)
	}

	// A catchall owns no maildir; deleting it must not touch the domain's
	// mail directory.
	if err := mta.DeleteMail(ctx, "@example.com"); err != nil {
		t.Fatalf("DeleteMail failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(mailRoot, "example.com", "alice", "cur")); err != nil {
		t.Errorf("catchall delete removed a sibling maildir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(confDir, "aliases", "@example.com")); !os.IsNotExist(err) {
		t.Errorf("expected catchall alias entry removed, stat err = %v", err)
	}
}

func TestMTAForwardTargets(t *testing.T) {
	confDir := t.TempDir()
	mta := NewFileMTA(confDir, t.TempDir(), "postfix", &recordingRunner{}, nil)

	err := mta.AddForward(context.Background(), Context{
		"address":         "sales@example.com",
		"forward_targets": "a@other.test, b@other.test",
	})
	if err != nil {
		t.Fatalf("AddForward failed: %v", err)
	}

	body := readFile(t, filepath.Join(confDir, "aliases", "sales@example.com"))
	if body != "a@other.test\nb@other.test\n" {
		t.Errorf("unexpected alias entry: %q", body)
	}
}

func TestFTPDLockOnDisable(t *testing.T) {
	dir := t.TempDir()
	ftpd := NewFileFTPD(dir, "proftpd", 2001, 2001, newTestRenderer(t), &recordingRunner{}, nil)
	ctx := context.Background()

	data := Context{
		"username":      "ftp_example",
		"password_hash": "$6$salt$hash",
		"home_dir":      "/var/www/example.com",
		"shell":         "/bin/sh",
	}
	if err := ftpd.AddUser(ctx, data); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}

	entry := filepath.Join(dir, "users", "ftp_example")
	body := readFile(t, entry)
	if !strings.Contains(body, "ftp_example:$6$salt$hash:2001:2001") {
		t.Errorf("unexpected user entry: %q", body)
	}

	if err := ftpd.DisableUser(ctx, data); err != nil {
		t.Fatalf("DisableUser failed: %v", err)
	}
	body = readFile(t, entry)
	if !strings.Contains(body, ":!$6$salt$hash:") {
		t.Errorf("disabled entry not locked: %q", body)
	}
	if !strings.Contains(body, "/bin/false") {
		t.Errorf("disabled entry keeps a login shell: %q", body)
	}

	if err := ftpd.DeleteUser(ctx, "ftp_example"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := os.Stat(entry); !os.IsNotExist(err) {
		t.Errorf("expected user entry removed, stat err = %v", err)
	}
}
