package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FTPD manages virtual FTP user entries.
type FTPD interface {
	// AddUser writes (or rewrites) the virtual user entry for the username
	// in the context. Password changes go through the same path.
	AddUser(ctx context.Context, data Context) error

	// DisableUser rewrites the entry with the password locked and the shell
	// set to a non-login shell. The entry itself survives.
	DisableUser(ctx context.Context, data Context) error

	// DeleteUser removes the virtual user entry. Removing an absent entry is
	// not an error.
	DeleteUser(ctx context.Context, username string) error

	// Reload reloads the FTP server.
	Reload(ctx context.Context) error
}

// FileFTPD writes one passwd-style entry file per virtual user.
type FileFTPD struct {
	ConfDir string
	Service string
	UID     int
	GID     int

	renderer  Renderer
	runner    ServiceRunner
	publisher Publisher
}

// NewFileFTPD creates the FTP user writer. uid and gid are the system
// account all virtual users map onto.
func NewFileFTPD(confDir, service string, uid, gid int, renderer Renderer, runner ServiceRunner, publisher Publisher) *FileFTPD {
	return &FileFTPD{
		ConfDir:   confDir,
		Service:   service,
		UID:       uid,
		GID:       gid,
		renderer:  renderer,
		runner:    runner,
		publisher: publisher,
	}
}

func (f *FileFTPD) userPath(username string) string {
	return filepath.Join(f.ConfDir, "users", username)
}

// AddUser renders the user entry with an active password.
func (f *FileFTPD) AddUser(ctx context.Context, data Context) error {
	return f.writeUser(ctx, data, false)
}

// DisableUser renders the user entry locked.
func (f *FileFTPD) DisableUser(ctx context.Context, data Context) error {
	return f.writeUser(ctx, data, true)
}

// DeleteUser removes the user entry.
func (f *FileFTPD) DeleteUser(ctx context.Context, username string) error {
	path := f.userPath(username)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove FTP user entry: %w", err)
	}
	if f.publisher != nil {
		return f.publisher.RemovePath(ctx, path)
	}
	return nil
}

// Reload reloads the FTP server.
func (f *FileFTPD) Reload(ctx context.Context) error {
	return f.runner.Reload(ctx, f.Service)
}

func (f *FileFTPD) writeUser(ctx context.Context, data Context, locked bool) error {
	username := data.Str("username")
	if username == "" {
		return fmt.Errorf("FTP user context is missing a username")
	}

	entry := Context{
		"username":      username,
		"password_hash": data.Str("password_hash"),
		"uid":           f.UID,
		"gid":           f.GID,
		"home_dir":      data.Str("home_dir"),
		"shell":         data.Str("shell"),
	}
	if locked {
		// A leading '!' locks the crypt hash, same convention as shadow(5).
		entry["password_hash"] = "!" + data.Str("password_hash")
		entry["shell"] = "/bin/false"
	}

	rendered, err := f.renderer.Render("ftpd_user.conf.tmpl", entry)
	if err != nil {
		return err
	}

	path := f.userPath(username)
	if err := WriteFileAtomic(path, rendered, 0o640); err != nil {
		return err
	}
	if f.publisher != nil {
		return f.publisher.PushFile(ctx, path)
	}
	return nil
}
