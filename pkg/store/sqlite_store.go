package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/hostforge/hostforge/pkg/status"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string

	busyTimeout time.Duration
}

// Config holds SQLite store configuration.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	return &SQLiteStore{
		path:        cfg.Path,
		busyTimeout: cfg.BusyTimeout,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL&_txlock=immediate",
		s.path, s.busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Foreign keys are a connection-level setting
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// pendingPredicate builds the status IN (...) predicate and its arguments
// for the fixed set of pending keywords.
func pendingPredicate() (string, []interface{}) {
	placeholders := make([]string, len(status.Pending))
	args := make([]interface{}, len(status.Pending))
	for i, st := range status.Pending {
		placeholders[i] = "?"
		args[i] = string(st)
	}
	return "status IN (" + strings.Join(placeholders, ", ") + ")", args
}

// ListPending selects rows whose status is a pending keyword, ordered by
// primary key ascending.
func (s *SQLiteStore) ListPending(ctx context.Context, kind EntityKind) ([]PendingRow, error) {
	table := kind.Table()
	if table == "" {
		return nil, fmt.Errorf("unknown entity kind: %s", kind)
	}

	predicate, args := pendingPredicate()
	query := fmt.Sprintf("SELECT id, status FROM %s WHERE %s ORDER BY id ASC", table, predicate)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending %s rows: %w", kind, err)
	}
	defer rows.Close()

	pending := []PendingRow{}
	for rows.Next() {
		var row PendingRow
		if err := rows.Scan(&row.ID, &row.Status); err != nil {
			return nil, fmt.Errorf("failed to scan pending row: %w", err)
		}
		pending = append(pending, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending rows: %w", err)
	}

	return pending, nil
}

// ListErrored selects rows whose status is neither a pending keyword nor a
// stable state. Whatever is left in the column is a failure diagnostic.
func (s *SQLiteStore) ListErrored(ctx context.Context, kind EntityKind) ([]PendingRow, error) {
	table := kind.Table()
	if table == "" {
		return nil, fmt.Errorf("unknown entity kind: %s", kind)
	}

	predicate, args := pendingPredicate()
	query := fmt.Sprintf(
		"SELECT id, status FROM %s WHERE NOT (%s) AND status NOT IN (?, ?) ORDER BY id ASC",
		table, predicate)
	args = append(args, string(status.OK), string(status.Disabled))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list errored %s rows: %w", kind, err)
	}
	defer rows.Close()

	errored := []PendingRow{}
	for rows.Next() {
		var row PendingRow
		if err := rows.Scan(&row.ID, &row.Status); err != nil {
			return nil, fmt.Errorf("failed to scan errored row: %w", err)
		}
		errored = append(errored, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating errored rows: %w", err)
	}

	return errored, nil
}

// CommitStatus writes the decided status for a row in a single statement.
func (s *SQLiteStore) CommitStatus(ctx context.Context, kind EntityKind, id int64, st status.Status) error {
	table := kind.Table()
	if table == "" {
		return fmt.Errorf("unknown entity kind: %s", kind)
	}

	query := fmt.Sprintf("UPDATE %s SET status = ? WHERE id = ?", table)
	result, err := s.db.ExecContext(ctx, query, string(st), id)
	if err != nil {
		return fmt.Errorf("failed to commit status for %s %d: %w", kind, id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}

	return nil
}

// DeleteEntity removes a row. Only the processor calls this, after a
// successful delete handler run.
func (s *SQLiteStore) DeleteEntity(ctx context.Context, kind EntityKind, id int64) error {
	table := kind.Table()
	if table == "" {
		return fmt.Errorf("unknown entity kind: %s", kind)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", table)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}

	return nil
}

// PropagateChildStatus flips child rows of parentID to the given pending
// status. The WHERE status = 'ok' guard keeps rows that are mid-flight or
// marked todelete untouched.
func (s *SQLiteStore) PropagateChildStatus(ctx context.Context, child EntityKind, parentID int64, to status.Status) (int64, error) {
	table := child.Table()
	if table == "" {
		return 0, fmt.Errorf("unknown entity kind: %s", child)
	}
	parentCol := child.ParentColumn()
	if parentCol == "" {
		return 0, fmt.Errorf("entity kind %s has no parent", child)
	}

	query := fmt.Sprintf("UPDATE %s SET status = ? WHERE %s = ? AND status = ?", table, parentCol)
	result, err := s.db.ExecContext(ctx, query, string(to), parentID, string(status.OK))
	if err != nil {
		return 0, fmt.Errorf("failed to propagate status to %s rows: %w", child, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// MountPointShared reports whether a sibling web entity under the same
// domain uses the given mount point. Rows already marked todelete do not
// count: they are on their way out and must not keep the tree alive.
func (s *SQLiteStore) MountPointShared(ctx context.Context, domainID int64, mountPoint string, exclude EntityKind, excludeID int64) (bool, error) {
	type webTable struct {
		kind  EntityKind
		query string
	}

	tables := []webTable{
		{KindSubdomain, "SELECT COUNT(*) FROM subdomains WHERE domain_id = ? AND mount_point = ? AND status != ?"},
		{KindDomainAlias, "SELECT COUNT(*) FROM domain_aliases WHERE domain_id = ? AND mount_point = ? AND status != ?"},
		{KindSubdomainAlias, `SELECT COUNT(*) FROM subdomain_aliases sa
			JOIN domain_aliases da ON da.id = sa.alias_id
			WHERE da.domain_id = ? AND sa.mount_point = ? AND sa.status != ?`},
	}

	for _, t := range tables {
		query := t.query
		args := []interface{}{domainID, mountPoint, string(status.ToDelete)}
		if t.kind == exclude {
			query += " AND id != ?"
			if t.kind == KindSubdomainAlias {
				query = strings.Replace(query, "AND id != ?", "AND sa.id != ?", 1)
			}
			args = append(args, excludeID)
		}

		var count int
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
			return false, fmt.Errorf("failed to check mount point sharing: %w", err)
		}
		if count > 0 {
			return true, nil
		}
	}

	return false, nil
}

// CreateDomain inserts a domain row.
func (s *SQLiteStore) CreateDomain(ctx context.Context, d *Domain) error {
	query := `
		INSERT INTO domains (name, status, admin_id, ip_address, document_root,
			php_enabled, cgi_enabled, disk_limit, disk_usage, mail_limit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		d.Name, string(d.Status), d.AdminID, d.IPAddress, d.DocumentRoot,
		d.PHPEnabled, d.CGIEnabled, d.DiskLimit, d.DiskUsage, d.MailLimit,
	)
	if err != nil {
		return fmt.Errorf("failed to create domain: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get domain ID: %w", err)
	}
	d.ID = id
	return nil
}

// GetDomain retrieves a domain by ID.
func (s *SQLiteStore) GetDomain(ctx context.Context, id int64) (*Domain, error) {
	query := `
		SELECT id, name, status, admin_id, ip_address, document_root,
			php_enabled, cgi_enabled, disk_limit, disk_usage, mail_limit
		FROM domains WHERE id = ?
	`

	d := &Domain{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.Name, &d.Status, &d.AdminID, &d.IPAddress, &d.DocumentRoot,
		&d.PHPEnabled, &d.CGIEnabled, &d.DiskLimit, &d.DiskUsage, &d.MailLimit,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("domain %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}

	return d, nil
}

// CreateSubdomain inserts a subdomain row.
func (s *SQLiteStore) CreateSubdomain(ctx context.Context, sub *Subdomain) error {
	query := `
		INSERT INTO subdomains (domain_id, name, status, mount_point, document_root, forward_url)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		sub.DomainID, sub.Name, string(sub.Status), sub.MountPoint, sub.DocumentRoot, sub.ForwardURL,
	)
	if err != nil {
		return fmt.Errorf("failed to create subdomain: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get subdomain ID: %w", err)
	}
	sub.ID = id
	return nil
}

// GetSubdomain retrieves a subdomain with its parent domain joined in.
func (s *SQLiteStore) GetSubdomain(ctx context.Context, id int64) (*Subdomain, error) {
	query := `
		SELECT id, domain_id, name, status, mount_point, document_root, forward_url
		FROM subdomains WHERE id = ?
	`

	sub := &Subdomain{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.DomainID, &sub.Name, &sub.Status,
		&sub.MountPoint, &sub.DocumentRoot, &sub.ForwardURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subdomain %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subdomain: %w", err)
	}

	domain, err := s.GetDomain(ctx, sub.DomainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subdomain parent: %w", err)
	}
	sub.Domain = domain

	return sub, nil
}

// CreateDomainAlias inserts a domain alias row.
func (s *SQLiteStore) CreateDomainAlias(ctx context.Context, a *DomainAlias) error {
	query := `
		INSERT INTO domain_aliases (domain_id, name, status, mount_point, document_root, forward_url)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		a.DomainID, a.Name, string(a.Status), a.MountPoint, a.DocumentRoot, a.ForwardURL,
	)
	if err != nil {
		return fmt.Errorf("failed to create domain alias: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get domain alias ID: %w", err)
	}
	a.ID = id
	return nil
}

// GetDomainAlias retrieves a domain alias with its parent domain joined in.
func (s *SQLiteStore) GetDomainAlias(ctx context.Context, id int64) (*DomainAlias, error) {
	query := `
		SELECT id, domain_id, name, status, mount_point, document_root, forward_url
		FROM domain_aliases WHERE id = ?
	`

	a := &DomainAlias{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.DomainID, &a.Name, &a.Status,
		&a.MountPoint, &a.DocumentRoot, &a.ForwardURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("domain alias %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain alias: %w", err)
	}

	domain, err := s.GetDomain(ctx, a.DomainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load alias parent: %w", err)
	}
	a.Domain = domain

	return a, nil
}

// CreateSubdomainAlias inserts a subdomain alias row.
func (s *SQLiteStore) CreateSubdomainAlias(ctx context.Context, a *SubdomainAlias) error {
	query := `
		INSERT INTO subdomain_aliases (alias_id, name, status, mount_point, document_root, forward_url)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		a.AliasID, a.Name, string(a.Status), a.MountPoint, a.DocumentRoot, a.ForwardURL,
	)
	if err != nil {
		return fmt.Errorf("failed to create subdomain alias: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get subdomain alias ID: %w", err)
	}
	a.ID = id
	return nil
}

// GetSubdomainAlias retrieves a subdomain alias with its alias and root
// domain joined in.
func (s *SQLiteStore) GetSubdomainAlias(ctx context.Context, id int64) (*SubdomainAlias, error) {
	query := `
		SELECT id, alias_id, name, status, mount_point, document_root, forward_url
		FROM subdomain_aliases WHERE id = ?
	`

	a := &SubdomainAlias{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.AliasID, &a.Name, &a.Status,
		&a.MountPoint, &a.DocumentRoot, &a.ForwardURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subdomain alias %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subdomain alias: %w", err)
	}

	alias, err := s.GetDomainAlias(ctx, a.AliasID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subdomain alias parent: %w", err)
	}
	a.Alias = alias
	a.Domain = alias.Domain

	return a, nil
}

// CreateDNSRecord inserts a custom DNS record row.
func (s *SQLiteStore) CreateDNSRecord(ctx context.Context, r *DNSRecord) error {
	query := `
		INSERT INTO dns_records (domain_id, owner_name, record_type, record_class, record_data, ttl, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		r.DomainID, r.OwnerName, r.RecordType, r.RecordClass, r.RecordData, r.TTL, string(r.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to create dns record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get dns record ID: %w", err)
	}
	r.ID = id
	return nil
}

// GetDNSRecord retrieves a DNS record with its domain joined in.
func (s *SQLiteStore) GetDNSRecord(ctx context.Context, id int64) (*DNSRecord, error) {
	query := `
		SELECT id, domain_id, owner_name, record_type, record_class, record_data, ttl, status
		FROM dns_records WHERE id = ?
	`

	r := &DNSRecord{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.DomainID, &r.OwnerName, &r.RecordType,
		&r.RecordClass, &r.RecordData, &r.TTL, &r.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dns record %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dns record: %w", err)
	}

	domain, err := s.GetDomain(ctx, r.DomainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dns record parent: %w", err)
	}
	r.Domain = domain

	return r, nil
}

// CreateMailAccount inserts a mail account row.
func (s *SQLiteStore) CreateMailAccount(ctx context.Context, m *MailAccount) error {
	query := `
		INSERT INTO mail_accounts (domain_id, address, password_hash, forward_targets, mail_type, quota, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		m.DomainID, m.Address, m.PasswordHash, m.ForwardTargets, m.MailType, m.Quota, string(m.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get mail account ID: %w", err)
	}
	m.ID = id
	return nil
}

// GetMailAccount retrieves a mail account with its domain joined in.
func (s *SQLiteStore) GetMailAccount(ctx context.Context, id int64) (*MailAccount, error) {
	query := `
		SELECT id, domain_id, address, password_hash, forward_targets, mail_type, quota, status
		FROM mail_accounts WHERE id = ?
	`

	m := &MailAccount{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.DomainID, &m.Address, &m.PasswordHash,
		&m.ForwardTargets, &m.MailType, &m.Quota, &m.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mail account %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mail account: %w", err)
	}

	domain, err := s.GetDomain(ctx, m.DomainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mail account parent: %w", err)
	}
	m.Domain = domain

	return m, nil
}

// CreateFTPUser inserts an FTP user row.
func (s *SQLiteStore) CreateFTPUser(ctx context.Context, u *FTPUser) error {
	query := `
		INSERT INTO ftp_users (domain_id, username, password_hash, home_dir, shell, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		u.DomainID, u.Username, u.PasswordHash, u.HomeDir, u.Shell, string(u.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to create ftp user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get ftp user ID: %w", err)
	}
	u.ID = id
	return nil
}

// GetFTPUser retrieves an FTP user with its domain joined in.
func (s *SQLiteStore) GetFTPUser(ctx context.Context, id int64) (*FTPUser, error) {
	query := `
		SELECT id, domain_id, username, password_hash, home_dir, shell, status
		FROM ftp_users WHERE id = ?
	`

	u := &FTPUser{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.DomainID, &u.Username, &u.PasswordHash, &u.HomeDir, &u.Shell, &u.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ftp user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ftp user: %w", err)
	}

	domain, err := s.GetDomain(ctx, u.DomainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ftp user parent: %w", err)
	}
	u.Domain = domain

	return u, nil
}

// CreateSSLCert inserts an SSL certificate row.
func (s *SQLiteStore) CreateSSLCert(ctx context.Context, c *SSLCert) error {
	query := `
		INSERT INTO ssl_certs (domain_id, common_name, certificate, private_key, ca_bundle, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		c.DomainID, c.CommonName, c.Certificate, c.PrivateKey, c.CABundle, string(c.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to create ssl cert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get ssl cert ID: %w", err)
	}
	c.ID = id
	return nil
}

// GetSSLCert retrieves an SSL certificate with its domain joined in.
func (s *SQLiteStore) GetSSLCert(ctx context.Context, id int64) (*SSLCert, error) {
	query := `
		SELECT id, domain_id, common_name, certificate, private_key, ca_bundle, status
		FROM ssl_certs WHERE id = ?
	`

	c := &SSLCert{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.DomainID, &c.CommonName, &c.Certificate, &c.PrivateKey, &c.CABundle, &c.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ssl cert %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ssl cert: %w", err)
	}

	domain, err := s.GetDomain(ctx, c.DomainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ssl cert parent: %w", err)
	}
	c.Domain = domain

	return c, nil
}

// CreateSQLDatabase inserts a SQL database row.
func (s *SQLiteStore) CreateSQLDatabase(ctx context.Context, d *SQLDatabase) error {
	query := `
		INSERT INTO sql_databases (domain_id, name, status)
		VALUES (?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query, d.DomainID, d.Name, string(d.Status))
	if err != nil {
		return fmt.Errorf("failed to create sql database: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get sql database ID: %w", err)
	}
	d.ID = id
	return nil
}

// GetSQLDatabase retrieves a SQL database with its domain joined in.
func (s *SQLiteStore) GetSQLDatabase(ctx context.Context, id int64) (*SQLDatabase, error) {
	query := `
		SELECT id, domain_id, name, status
		FROM sql_databases WHERE id = ?
	`

	d := &SQLDatabase{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.DomainID, &d.Name, &d.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sql database %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sql database: %w", err)
	}

	domain, err := s.GetDomain(ctx, d.DomainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sql database parent: %w", err)
	}
	d.Domain = domain

	return d, nil
}

// CreateSQLUser inserts a SQL user row.
func (s *SQLiteStore) CreateSQLUser(ctx context.Context, u *SQLUser) error {
	query := `
		INSERT INTO sql_users (database_id, username, password_hash, host, status)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		u.DatabaseID, u.Username, u.PasswordHash, u.Host, string(u.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to create sql user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get sql user ID: %w", err)
	}
	u.ID = id
	return nil
}

// GetSQLUser retrieves a SQL user with its database and domain joined in.
func (s *SQLiteStore) GetSQLUser(ctx context.Context, id int64) (*SQLUser, error) {
	query := `
		SELECT id, database_id, username, password_hash, host, status
		FROM sql_users WHERE id = ?
	`

	u := &SQLUser{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.DatabaseID, &u.Username, &u.PasswordHash, &u.Host, &u.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sql user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sql user: %w", err)
	}

	db, err := s.GetSQLDatabase(ctx, u.DatabaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sql user parent: %w", err)
	}
	u.Database = db
	u.Domain = db.Domain

	return u, nil
}
