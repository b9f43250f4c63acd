package store

import (
	"context"
	"errors"

	"github.com/hostforge/hostforge/pkg/status"
)

// ErrNotFound is returned when a referenced entity row no longer exists.
// A row can vanish between discovery and load when an operator deletes it
// out-of-band; callers treat this as a skip, not a failure.
var ErrNotFound = errors.New("entity not found")

// Store defines the interface for the entity persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	HealthCheck(ctx context.Context) error

	// Queue operations. ListPending selects rows whose status is a pending
	// keyword, ordered by primary key ascending for determinism.
	ListPending(ctx context.Context, kind EntityKind) ([]PendingRow, error)

	// ListErrored selects rows whose status is diagnostic text, meaning a
	// previous verb failed and an operator has to intervene.
	ListErrored(ctx context.Context, kind EntityKind) ([]PendingRow, error)

	// CommitStatus writes the decided status for a row in one statement.
	CommitStatus(ctx context.Context, kind EntityKind, id int64, st status.Status) error

	// DeleteEntity removes a row after a successful delete handler run.
	DeleteEntity(ctx context.Context, kind EntityKind, id int64) error

	// PropagateChildStatus flips directly dependent child rows of parentID
	// to the given pending status. Only rows currently in the stable "ok"
	// state are touched; rows mid-flight or marked todelete are never
	// overwritten. Returns the number of rows flipped.
	PropagateChildStatus(ctx context.Context, child EntityKind, parentID int64, to status.Status) (int64, error)

	// MountPointShared reports whether any sibling web entity under the same
	// domain uses the given mount point, excluding the named row itself.
	MountPointShared(ctx context.Context, domainID int64, mountPoint string, exclude EntityKind, excludeID int64) (bool, error)

	// Typed accessors. Get* populate joined parent context and return
	// ErrNotFound (wrapped) when the row is gone.
	CreateDomain(ctx context.Context, d *Domain) error
	GetDomain(ctx context.Context, id int64) (*Domain, error)

	CreateSubdomain(ctx context.Context, s *Subdomain) error
	GetSubdomain(ctx context.Context, id int64) (*Subdomain, error)

	CreateDomainAlias(ctx context.Context, a *DomainAlias) error
	GetDomainAlias(ctx context.Context, id int64) (*DomainAlias, error)

	CreateSubdomainAlias(ctx context.Context, a *SubdomainAlias) error
	GetSubdomainAlias(ctx context.Context, id int64) (*SubdomainAlias, error)

	CreateDNSRecord(ctx context.Context, r *DNSRecord) error
	GetDNSRecord(ctx context.Context, id int64) (*DNSRecord, error)

	CreateMailAccount(ctx context.Context, m *MailAccount) error
	GetMailAccount(ctx context.Context, id int64) (*MailAccount, error)

	CreateFTPUser(ctx context.Context, u *FTPUser) error
	GetFTPUser(ctx context.Context, id int64) (*FTPUser, error)

	CreateSSLCert(ctx context.Context, c *SSLCert) error
	GetSSLCert(ctx context.Context, id int64) (*SSLCert, error)

	CreateSQLDatabase(ctx context.Context, d *SQLDatabase) error
	GetSQLDatabase(ctx context.Context, id int64) (*SQLDatabase, error)

	CreateSQLUser(ctx context.Context, u *SQLUser) error
	GetSQLUser(ctx context.Context, id int64) (*SQLUser, error)
}
