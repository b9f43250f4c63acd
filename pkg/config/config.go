// Package config loads and validates the runtime configuration for the
// hostforge backend. The configuration is a single YAML document; the loaded
// Config is passed explicitly into the processor and every handler
// dependency. There is no ambient global configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration object.
type Config struct {
	// Store configures the entity store database.
	Store StoreConfig `yaml:"store"`

	// Server describes the host this backend provisions.
	Server ServerConfig `yaml:"server"`

	// Paths configures filesystem locations for generated artifacts.
	Paths PathsConfig `yaml:"paths"`

	// Services configures the system services driven by the handlers.
	Services ServicesConfig `yaml:"services"`

	// SQL configures the customer SQL server admin connection.
	SQL SQLConfig `yaml:"sql"`

	// Daemon configures the long-running trigger mode.
	Daemon DaemonConfig `yaml:"daemon"`

	// Remotes lists secondary nodes rendered artifacts are published to.
	// Empty means single-host operation.
	Remotes []RemoteNode `yaml:"remotes"`

	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures OpenTelemetry span export.
	Tracing TracingConfig `yaml:"tracing"`
}

// StoreConfig configures the SQLite entity store.
type StoreConfig struct {
	// Path is the database file path, or ":memory:" for tests.
	Path string `yaml:"path" validate:"required"`

	// BusyTimeout bounds how long a writer waits on a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// ServerConfig describes the provisioned host.
type ServerConfig struct {
	// Hostname is the canonical hostname used in generated configs.
	Hostname string `yaml:"hostname" validate:"required,hostname"`

	// IPAddress is the address vhosts and zone records resolve to.
	IPAddress string `yaml:"ip_address" validate:"required,ip"`

	// NameServers are the NS names written into generated zones.
	NameServers []string `yaml:"name_servers" validate:"min=1,dive,hostname"`
}

// PathsConfig configures artifact locations. Every writer in pkg/services
// replaces files atomically inside these roots.
type PathsConfig struct {
	WebRoot    string `yaml:"web_root" validate:"required"`
	HTTPDConf  string `yaml:"httpd_conf" validate:"required"`
	ZoneDir    string `yaml:"zone_dir" validate:"required"`
	MTAConf    string `yaml:"mta_conf" validate:"required"`
	FTPDConf   string `yaml:"ftpd_conf" validate:"required"`
	CertDir    string `yaml:"cert_dir" validate:"required"`
	MailRoot   string `yaml:"mail_root" validate:"required"`
	LockFile   string `yaml:"lock_file" validate:"required"`
	TriggerDir string `yaml:"trigger_dir" validate:"required"`
}

// ServicesConfig names the system services reloaded after convergence.
type ServicesConfig struct {
	HTTPD string `yaml:"httpd"`
	Named string `yaml:"named"`
	MTA   string `yaml:"mta"`
	FTPD  string `yaml:"ftpd"`

	// ReloadTimeout bounds every service reload invocation.
	ReloadTimeout time.Duration `yaml:"reload_timeout"`

	// FTPUID and FTPGID are the system account all virtual FTP users map to.
	FTPUID int `yaml:"ftp_uid" validate:"min=1"`
	FTPGID int `yaml:"ftp_gid" validate:"min=1"`
}

// SQLConfig configures the customer SQL server.
type SQLConfig struct {
	// AdminDSN is the DSN of the administrative account used to create and
	// drop customer databases and accounts.
	AdminDSN string `yaml:"admin_dsn" validate:"required"`
}

// DaemonConfig configures daemon mode.
type DaemonConfig struct {
	// Interval is the periodic pass interval; zero disables periodic passes.
	Interval time.Duration `yaml:"interval"`

	// TriggerFile is the filename inside Paths.TriggerDir whose creation or
	// modification wakes the processor.
	TriggerFile string `yaml:"trigger_file"`
}

// RemoteNode describes a secondary server receiving published artifacts.
type RemoteNode struct {
	Host    string `yaml:"host" validate:"required,hostname|ip"`
	Port    int    `yaml:"port" validate:"min=1,max=65535"`
	User    string `yaml:"user" validate:"required"`
	KeyFile string `yaml:"key_file" validate:"required"`

	// Root is the remote directory artifacts are uploaded under.
	Root string `yaml:"root" validate:"required"`

	// KnownHostsFile verifies the node's host key. Empty means the calling
	// user's ~/.ssh/known_hosts.
	KnownHostsFile string `yaml:"known_hosts_file"`

	// InsecureHostKey disables host key verification. Testing only.
	InsecureHostKey bool `yaml:"insecure_host_key"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level" validate:"oneof=trace debug info warn error"`

	// Format selects console or json output.
	Format string `yaml:"format" validate:"oneof=console json"`

	// Output is stdout, stderr, or a file path.
	Output string `yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
	Namespace     string `yaml:"namespace"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter" validate:"omitempty,oneof=stdout none"`
	SamplingRate float64 `yaml:"sampling_rate" validate:"min=0,max=1"`
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path:        "/var/lib/hostforge/hostforge.db",
			BusyTimeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Hostname:    "panel.localdomain",
			IPAddress:   "127.0.0.1",
			NameServers: []string{"ns1.panel.localdomain", "ns2.panel.localdomain"},
		},
		Paths: PathsConfig{
			WebRoot:    "/var/www/virtual",
			HTTPDConf:  "/etc/hostforge/httpd/sites",
			ZoneDir:    "/etc/hostforge/bind/zones",
			MTAConf:    "/etc/hostforge/postfix",
			FTPDConf:   "/etc/hostforge/proftpd",
			CertDir:    "/etc/hostforge/certs",
			MailRoot:   "/var/mail/virtual",
			LockFile:   "/run/hostforge/pass.lock",
			TriggerDir: "/var/spool/hostforge",
		},
		Services: ServicesConfig{
			HTTPD:         "apache2",
			Named:         "named",
			MTA:           "postfix",
			FTPD:          "proftpd",
			ReloadTimeout: 30 * time.Second,
			FTPUID:        2001,
			FTPGID:        2001,
		},
		SQL: SQLConfig{
			AdminDSN: "hostforge:hostforge@tcp(127.0.0.1:3306)/",
		},
		Daemon: DaemonConfig{
			Interval:    5 * time.Minute,
			TriggerFile: "process",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled:       true,
			ListenAddress: ":9415",
			Namespace:     "hostforge",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			SamplingRate: 1.0,
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Store.BusyTimeout < 0 {
		return fmt.Errorf("store busy_timeout must not be negative")
	}
	if c.Services.ReloadTimeout <= 0 {
		return fmt.Errorf("services reload_timeout must be positive")
	}

	return nil
}
