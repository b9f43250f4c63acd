package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// SQLD manages customer databases and database accounts on the SQL server.
type SQLD interface {
	// CreateDatabase creates the database if it does not exist yet.
	CreateDatabase(ctx context.Context, name string) error

	// DropDatabase drops the database. Dropping an absent database is not an
	// error.
	DropDatabase(ctx context.Context, name string) error

	// CreateUser creates the account if it does not exist yet and sets its
	// password to the given pre-computed hash.
	CreateUser(ctx context.Context, user, host, passwordHash string) error

	// DropUser drops the account. Dropping an absent account is not an error.
	DropUser(ctx context.Context, user, host string) error

	// Grant gives the account full privileges on the database.
	Grant(ctx context.Context, database, user, host string) error

	// SetPassword replaces the account's password hash.
	SetPassword(ctx context.Context, user, host, passwordHash string) error

	// LockUser blocks logins for the account without dropping it.
	LockUser(ctx context.Context, user, host string) error

	// UnlockUser allows logins for the account again.
	UnlockUser(ctx context.Context, user, host string) error

	// Close releases the admin connection.
	Close() error
}

// MySQLD drives a MySQL or MariaDB server over an administrative connection.
type MySQLD struct {
	db *sql.DB
}

// NewMySQLD opens the admin connection. The DSN must belong to an account
// with CREATE, DROP, and GRANT OPTION privileges.
func NewMySQLD(dsn string) (*MySQLD, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQL admin connection: %w", err)
	}
	db.SetMaxOpenConns(2)
	return &MySQLD{db: db}, nil
}

// Close releases the admin connection.
func (s *MySQLD) Close() error {
	return s.db.Close()
}

// CreateDatabase creates the database if it does not exist yet.
func (s *MySQLD) CreateDatabase(ctx context.Context, name string) error {
	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s CHARACTER SET utf8mb4", quoteIdent(name))
	return s.exec(ctx, stmt)
}

// DropDatabase drops the database.
func (s *MySQLD) DropDatabase(ctx context.Context, name string) error {
	return s.exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", quoteIdent(name)))
}

// CreateUser creates the account if missing and pins its password hash.
func (s *MySQLD) CreateUser(ctx context.Context, user, host, passwordHash string) error {
	stmt := fmt.Sprintf(
		"CREATE USER IF NOT EXISTS %s IDENTIFIED WITH mysql_native_password AS %s",
		quoteAccount(user, host), quoteString(passwordHash))
	if err := s.exec(ctx, stmt); err != nil {
		return err
	}
	// CREATE USER IF NOT EXISTS leaves an existing account's password alone,
	// so converge it explicitly.
	return s.SetPassword(ctx, user, host, passwordHash)
}

// DropUser drops the account.
func (s *MySQLD) DropUser(ctx context.Context, user, host string) error {
	if err := s.exec(ctx, fmt.Sprintf("DROP USER IF EXISTS %s", quoteAccount(user, host))); err != nil {
		return err
	}
	return s.exec(ctx, "FLUSH PRIVILEGES")
}

// Grant gives the account full privileges on the database.
func (s *MySQLD) Grant(ctx context.Context, database, user, host string) error {
	stmt := fmt.Sprintf("GRANT ALL PRIVILEGES ON %s.* TO %s",
		quoteIdent(database), quoteAccount(user, host))
	return s.exec(ctx, stmt)
}

// SetPassword replaces the account's password hash.
func (s *MySQLD) SetPassword(ctx context.Context, user, host, passwordHash string) error {
	stmt := fmt.Sprintf(
		"ALTER USER %s IDENTIFIED WITH mysql_native_password AS %s",
		quoteAccount(user, host), quoteString(passwordHash))
	return s.exec(ctx, stmt)
}

// LockUser blocks logins for the account.
func (s *MySQLD) LockUser(ctx context.Context, user, host string) error {
	return s.exec(ctx, fmt.Sprintf("ALTER USER %s ACCOUNT LOCK", quoteAccount(user, host)))
}

// UnlockUser allows logins for the account.
func (s *MySQLD) UnlockUser(ctx context.Context, user, host string) error {
	return s.exec(ctx, fmt.Sprintf("ALTER USER %s ACCOUNT UNLOCK", quoteAccount(user, host)))
}

func (s *MySQLD) exec(ctx context.Context, stmt string) error {
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("SQL admin statement failed: %w", err)
	}
	return nil
}

// quoteIdent backtick-quotes an identifier. Identifiers come from validated
// entity rows, quoting guards against the odd character, not injection.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func quoteString(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func quoteAccount(user, host string) string {
	return quoteString(user) + "@" + quoteString(host)
}
