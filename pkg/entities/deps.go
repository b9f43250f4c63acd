package entities

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hostforge/hostforge/pkg/config"
	"github.com/hostforge/hostforge/pkg/engine"
	"github.com/hostforge/hostforge/pkg/services"
	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
	"github.com/hostforge/hostforge/pkg/telemetry"
)

// Deps bundles the store and collaborators every handler draws on. One Deps
// value is built at wiring time and shared by all handler instances.
type Deps struct {
	Store store.Store
	HTTPD services.HTTPD
	DNS   services.DNS
	MTA   services.MTA
	FTPD  services.FTPD
	SQLD  services.SQLD
	Cfg   *config.Config
	Log   *telemetry.Logger
}

// Register binds every entity kind to its handler factory.
func Register(reg *engine.Registry, deps Deps) error {
	factories := map[store.EntityKind]engine.Factory{
		store.KindDomain: func(id int64, current status.Status) engine.Handler {
			return NewDomainHandler(deps, id, current)
		},
		store.KindSubdomain: func(id int64, current status.Status) engine.Handler {
			return NewSubdomainHandler(deps, id, current)
		},
		store.KindDomainAlias: func(id int64, current status.Status) engine.Handler {
			return NewDomainAliasHandler(deps, id, current)
		},
		store.KindSubdomainAlias: func(id int64, current status.Status) engine.Handler {
			return NewSubdomainAliasHandler(deps, id, current)
		},
		store.KindDNSRecord: func(id int64, current status.Status) engine.Handler {
			return NewDNSRecordHandler(deps, id, current)
		},
		store.KindMailAccount: func(id int64, current status.Status) engine.Handler {
			return NewMailAccountHandler(deps, id, current)
		},
		store.KindFTPUser: func(id int64, current status.Status) engine.Handler {
			return NewFTPUserHandler(deps, id, current)
		},
		store.KindSSLCert: func(id int64, current status.Status) engine.Handler {
			return NewSSLCertHandler(deps, id, current)
		},
		store.KindSQLDatabase: func(id int64, current status.Status) engine.Handler {
			return NewSQLDatabaseHandler(deps, id, current)
		},
		store.KindSQLUser: func(id int64, current status.Status) engine.Handler {
			return NewSQLUserHandler(deps, id, current)
		},
	}

	for kind, factory := range factories {
		if err := reg.Register(kind, factory); err != nil {
			return err
		}
	}
	return nil
}

// dataCache memoizes per-action artifact contexts for one handler instance.
type dataCache map[string]services.Context

func (c dataCache) get(action string, build func() services.Context) services.Context {
	if d, ok := c[action]; ok {
		return d
	}
	d := build()
	c[action] = d
	return d
}

// classifyLoad converts a store read error into the handler contract: a
// vanished row is a skip, anything else is a failure.
func classifyLoad(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return engine.NewNotFoundError("load", err)
	}
	return fmt.Errorf("load: %w", err)
}

// zoneSerial derives a zone serial from the domain row. Deriving instead of
// timestamping keeps repeated converges byte-identical.
func zoneSerial(d *store.Domain) string {
	return fmt.Sprintf("%010d", d.ID)
}

// suspendedRoot is the document root served for disabled web entities.
func suspendedRoot(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.WebRoot, "suspended")
}
