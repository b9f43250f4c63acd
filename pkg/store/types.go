package store

import (
	"github.com/hostforge/hostforge/pkg/status"
)

// EntityKind identifies one provisionable entity table.
type EntityKind string

const (
	KindDomain         EntityKind = "domain"
	KindSubdomain      EntityKind = "subdomain"
	KindDomainAlias    EntityKind = "domain_alias"
	KindSubdomainAlias EntityKind = "subdomain_alias"
	KindDNSRecord      EntityKind = "dns_record"
	KindMailAccount    EntityKind = "mail_account"
	KindFTPUser        EntityKind = "ftp_user"
	KindSSLCert        EntityKind = "ssl_cert"
	KindSQLDatabase    EntityKind = "sql_database"
	KindSQLUser        EntityKind = "sql_user"
)

// Kinds lists every entity kind. Processing order is owned by the engine.
var Kinds = []EntityKind{
	KindDomain, KindSubdomain, KindDomainAlias, KindSubdomainAlias,
	KindDNSRecord, KindMailAccount, KindFTPUser, KindSSLCert,
	KindSQLDatabase, KindSQLUser,
}

// Table returns the table name backing the kind.
func (k EntityKind) Table() string {
	switch k {
	case KindDomain:
		return "domains"
	case KindSubdomain:
		return "subdomains"
	case KindDomainAlias:
		return "domain_aliases"
	case KindSubdomainAlias:
		return "subdomain_aliases"
	case KindDNSRecord:
		return "dns_records"
	case KindMailAccount:
		return "mail_accounts"
	case KindFTPUser:
		return "ftp_users"
	case KindSSLCert:
		return "ssl_certs"
	case KindSQLDatabase:
		return "sql_databases"
	case KindSQLUser:
		return "sql_users"
	default:
		return ""
	}
}

// ParentColumn returns the foreign-key column pointing at the kind's owning
// entity, or "" for root kinds. Cascade propagation filters on this column.
func (k EntityKind) ParentColumn() string {
	switch k {
	case KindDomain:
		return ""
	case KindSubdomainAlias:
		return "alias_id"
	case KindSQLUser:
		return "database_id"
	default:
		return "domain_id"
	}
}

// PendingRow is one queue entry discovered at pass start.
type PendingRow struct {
	ID     int64
	Status status.Status
}

// Domain is a root hosting domain.
type Domain struct {
	ID           int64
	Name         string
	Status       status.Status
	AdminID      int64
	IPAddress    string
	DocumentRoot string
	PHPEnabled   bool
	CGIEnabled   bool
	DiskLimit    int64
	DiskUsage    int64
	MailLimit    int64
}

// DomainAlias is an alternative name for a domain, optionally forwarding.
type DomainAlias struct {
	ID           int64
	DomainID     int64
	Name         string
	Status       status.Status
	MountPoint   string
	DocumentRoot string
	ForwardURL   string

	// Domain is the joined parent row, populated by Get.
	Domain *Domain
}

// Subdomain is a child name under a domain with its own document root.
type Subdomain struct {
	ID           int64
	DomainID     int64
	Name         string
	Status       status.Status
	MountPoint   string
	DocumentRoot string
	ForwardURL   string

	Domain *Domain
}

// SubdomainAlias is a child name under a domain alias.
type SubdomainAlias struct {
	ID           int64
	AliasID      int64
	Name         string
	Status       status.Status
	MountPoint   string
	DocumentRoot string
	ForwardURL   string

	// Alias and Domain are the joined ancestor rows, populated by Get.
	Alias  *DomainAlias
	Domain *Domain
}

// Mail account types.
const (
	MailTypeNormal   = "normal"
	MailTypeForward  = "forward"
	MailTypeCatchall = "catchall"
)

// MailAccount is a mailbox, forward, or catchall under a domain.
type MailAccount struct {
	ID             int64
	DomainID       int64
	Address        string
	PasswordHash   string
	ForwardTargets string
	MailType       string
	Quota          int64
	Status         status.Status

	Domain *Domain
}

// FTPUser is an FTP login scoped to a directory under a domain.
type FTPUser struct {
	ID           int64
	DomainID     int64
	Username     string
	PasswordHash string
	HomeDir      string
	Shell        string
	Status       status.Status

	Domain *Domain
}

// SSLCert is certificate material attached to a domain.
type SSLCert struct {
	ID          int64
	DomainID    int64
	CommonName  string
	Certificate string
	PrivateKey  string
	CABundle    string
	Status      status.Status

	Domain *Domain
}

// DNSRecord is a custom record inside a domain's zone.
type DNSRecord struct {
	ID          int64
	DomainID    int64
	OwnerName   string
	RecordType  string
	RecordClass string
	RecordData  string
	TTL         int64
	Status      status.Status

	Domain *Domain
}

// SQLDatabase is a database provisioned for a domain.
type SQLDatabase struct {
	ID       int64
	DomainID int64
	Name     string
	Status   status.Status

	Domain *Domain
}

// SQLUser is a grantee on a provisioned database.
type SQLUser struct {
	ID           int64
	DatabaseID   int64
	Username     string
	PasswordHash string
	Host         string
	Status       status.Status

	// Database and Domain are the joined ancestor rows, populated by Get.
	Database *SQLDatabase
	Domain   *Domain
}
