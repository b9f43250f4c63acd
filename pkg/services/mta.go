package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MTA manages mail server lookup tables and mailbox storage.
type MTA interface {
	// AddDomain registers a mail domain in the relay domain table.
	AddDomain(ctx context.Context, domain string) error

	// DeleteDomain removes a mail domain from the relay domain table.
	DeleteDomain(ctx context.Context, domain string) error

	// AddMailbox provisions a Maildir plus the delivery and password table
	// entries for the address in the context.
	AddMailbox(ctx context.Context, data Context) error

	// AddForward writes the alias table entry for a forwarding address.
	AddForward(ctx context.Context, data Context) error

	// DisableMail removes the delivery and alias entries for an address while
	// keeping its password entry and mailbox contents.
	DisableMail(ctx context.Context, address string) error

	// DeleteMail removes every table entry for the address and deletes its
	// mailbox storage.
	DeleteMail(ctx context.Context, address string) error

	// SetPassword replaces the password table entry for an address.
	SetPassword(ctx context.Context, address, hash string) error

	// Reload reloads the mail server.
	Reload(ctx context.Context) error
}

// FileMTA keeps each lookup table as a directory with one file per entry.
// Entry-per-file means adds and deletes never rewrite neighbours, so a
// failed pass can re-run any verb without corrupting the tables.
type FileMTA struct {
	ConfDir  string
	MailRoot string
	Service  string

	runner    ServiceRunner
	publisher Publisher
}

// NewFileMTA creates the mail table writer.
func NewFileMTA(confDir, mailRoot, service string, runner ServiceRunner, publisher Publisher) *FileMTA {
	return &FileMTA{
		ConfDir:   confDir,
		MailRoot:  mailRoot,
		Service:   service,
		runner:    runner,
		publisher: publisher,
	}
}

func (m *FileMTA) domainPath(domain string) string {
	return filepath.Join(m.ConfDir, "domains", domain)
}

func (m *FileMTA) mailboxPath(address string) string {
	return filepath.Join(m.ConfDir, "mailboxes", address)
}

func (m *FileMTA) aliasPath(address string) string {
	return filepath.Join(m.ConfDir, "aliases", address)
}

func (m *FileMTA) passwdPath(address string) string {
	return filepath.Join(m.ConfDir, "passwd", address)
}

func (m *FileMTA) maildirPath(address string) (string, error) {
	local, domain, ok := strings.Cut(address, "@")
	if !ok {
		return "", fmt.Errorf("mail address %q has no domain part", address)
	}
	return filepath.Join(m.MailRoot, domain, local), nil
}

// AddDomain registers the domain in the relay table.
func (m *FileMTA) AddDomain(ctx context.Context, domain string) error {
	path := m.domainPath(domain)
	if err := WriteFileAtomic(path, []byte(domain+"\n"), 0o644); err != nil {
		return err
	}
	return m.publish(ctx, path)
}

// DeleteDomain removes the domain from the relay table.
func (m *FileMTA) DeleteDomain(ctx context.Context, domain string) error {
	return m.removeEntry(ctx, m.domainPath(domain))
}

// AddMailbox creates the Maildir and writes the delivery and password
// entries. The Maildir is only created, never truncated, so existing mail
// survives re-adds and restores.
func (m *FileMTA) AddMailbox(ctx context.Context, data Context) error {
	address := data.Str("address")
	if address == "" {
		return fmt.Errorf("mailbox context is missing an address")
	}

	maildir, err := m.maildirPath(address)
	if err != nil {
		return err
	}
	for _, sub := range []string{"cur", "new", "tmp"} {
		if err := os.MkdirAll(filepath.Join(maildir, sub), 0o700); err != nil {
			return fmt.Errorf("failed to create maildir: %w", err)
		}
	}

	entry := fmt.Sprintf("%s %s/\n", address, maildir)
	if err := WriteFileAtomic(m.mailboxPath(address), []byte(entry), 0o644); err != nil {
		return err
	}
	if err := m.publish(ctx, m.mailboxPath(address)); err != nil {
		return err
	}

	if hash := data.Str("password_hash"); hash != "" {
		if err := m.SetPassword(ctx, address, hash); err != nil {
			return err
		}
	}

	// A mailbox can also forward; catchalls are plain aliases for "@domain".
	if targets := data.Str("forward_targets"); targets != "" {
		return m.AddForward(ctx, data)
	}
	return m.removeEntry(ctx, m.aliasPath(address))
}

// AddForward writes the alias table entry, one target per line.
func (m *FileMTA) AddForward(ctx context.Context, data Context) error {
	address := data.Str("address")
	if address == "" {
		return fmt.Errorf("forward context is missing an address")
	}
	targets := data.Str("forward_targets")
	if targets == "" {
		return fmt.Errorf("forward %s has no targets", address)
	}

	var buf strings.Builder
	for _, t := range strings.Split(targets, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			buf.WriteString(t)
			buf.WriteString("\n")
		}
	}

	path := m.aliasPath(address)
	if err := WriteFileAtomic(path, []byte(buf.String()), 0o644); err != nil {
		return err
	}
	return m.publish(ctx, path)
}

// DisableMail stops delivery without destroying anything the address owns.
func (m *FileMTA) DisableMail(ctx context.Context, address string) error {
	if err := m.removeEntry(ctx, m.mailboxPath(address)); err != nil {
		return err
	}
	return m.removeEntry(ctx, m.aliasPath(address))
}

// DeleteMail removes all table entries and the mailbox storage.
func (m *FileMTA) DeleteMail(ctx context.Context, address string) error {
	for _, path := range []string{m.mailboxPath(address), m.aliasPath(address), m.passwdPath(address)} {
		if err := m.removeEntry(ctx, path); err != nil {
			return err
		}
	}

	// Catchalls have an empty local part; their maildir path would resolve
	// to the domain's whole mail directory. Forwards and catchalls own no
	// maildir, so there is nothing to remove.
	local, _, ok := strings.Cut(address, "@")
	if !ok {
		return fmt.Errorf("mail address %q has no domain part", address)
	}
	if local == "" {
		return nil
	}

	maildir, err := m.maildirPath(address)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(maildir); err != nil {
		return fmt.Errorf("failed to remove maildir: %w", err)
	}
	if m.publisher != nil {
		return m.publisher.RemovePath(ctx, maildir)
	}
	return nil
}

// SetPassword replaces the password table entry.
func (m *FileMTA) SetPassword(ctx context.Context, address, hash string) error {
	path := m.passwdPath(address)
	if err := WriteFileAtomic(path, []byte(address+":"+hash+"\n"), 0o640); err != nil {
		return err
	}
	return m.publish(ctx, path)
}

// Reload reloads the mail server so it picks up the rebuilt tables.
func (m *FileMTA) Reload(ctx context.Context) error {
	return m.runner.Reload(ctx, m.Service)
}

func (m *FileMTA) removeEntry(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove mail table entry: %w", err)
	}
	if m.publisher != nil {
		return m.publisher.RemovePath(ctx, path)
	}
	return nil
}

func (m *FileMTA) publish(ctx context.Context, path string) error {
	if m.publisher == nil {
		return nil
	}
	return m.publisher.PushFile(ctx, path)
}
