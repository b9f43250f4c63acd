package commands

import (
	"context"
	"fmt"

	"github.com/hostforge/hostforge/pkg/config"
	"github.com/hostforge/hostforge/pkg/engine"
	"github.com/hostforge/hostforge/pkg/entities"
	"github.com/hostforge/hostforge/pkg/remote"
	"github.com/hostforge/hostforge/pkg/services"
	"github.com/hostforge/hostforge/pkg/store"
	"github.com/hostforge/hostforge/pkg/telemetry"
)

// app bundles the wired backend shared by the reconciliation commands.
type app struct {
	cfg       *config.Config
	log       *telemetry.Logger
	metrics   *telemetry.Metrics
	tracer    *telemetry.Tracer
	store     *store.SQLiteStore
	sqld      services.SQLD
	processor *engine.Processor
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func newTelemetry(cfg *config.Config, version string) (*telemetry.Logger, *telemetry.Metrics, *telemetry.Tracer, error) {
	log, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{
		Enabled:       cfg.Metrics.Enabled,
		ListenAddress: cfg.Metrics.ListenAddress,
		Namespace:     cfg.Metrics.Namespace,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	tracer, err := telemetry.NewTracer(telemetry.TracingConfig{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		SamplingRate: cfg.Tracing.SamplingRate,
	}, "hostforge", version)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	return log, metrics, tracer, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(store.Config{
		Path:        cfg.Store.Path,
		BusyTimeout: cfg.Store.BusyTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// buildApp wires the full backend: store, artifact writers, remote
// publishing, handlers, and the pass processor.
func buildApp(ctx context.Context, version string) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, metrics, tracer, err := newTelemetry(cfg, version)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	renderer, err := services.NewTemplateRenderer()
	if err != nil {
		st.Close()
		return nil, err
	}
	runner := services.NewSystemctlRunner(cfg.Services.ReloadTimeout)

	var publisher services.Publisher
	if len(cfg.Remotes) > 0 {
		nodes := make([]*remote.Node, 0, len(cfg.Remotes))
		for _, rc := range cfg.Remotes {
			nodes = append(nodes, remote.NewNode(remote.NodeConfig{
				Host:            rc.Host,
				Port:            rc.Port,
				User:            rc.User,
				KeyFile:         rc.KeyFile,
				Root:            rc.Root,
				KnownHostsFile:  rc.KnownHostsFile,
				InsecureHostKey: rc.InsecureHostKey,
			}, log))
		}
		publisher = remote.NewFanout(nodes, log)
	}

	sqld, err := services.NewMySQLD(cfg.SQL.AdminDSN)
	if err != nil {
		st.Close()
		return nil, err
	}

	deps := entities.Deps{
		Store: st,
		HTTPD: services.NewFileHTTPD(cfg.Paths.HTTPDConf, cfg.Services.HTTPD, renderer, runner, publisher),
		DNS:   services.NewFileDNS(cfg.Paths.ZoneDir, cfg.Services.Named, renderer, runner, publisher),
		MTA:   services.NewFileMTA(cfg.Paths.MTAConf, cfg.Paths.MailRoot, cfg.Services.MTA, runner, publisher),
		FTPD:  services.NewFileFTPD(cfg.Paths.FTPDConf, cfg.Services.FTPD, cfg.Services.FTPUID, cfg.Services.FTPGID, renderer, runner, publisher),
		SQLD:  sqld,
		Cfg:   cfg,
		Log:   log,
	}

	registry := engine.NewRegistry()
	if err := entities.Register(registry, deps); err != nil {
		sqld.Close()
		st.Close()
		return nil, err
	}

	driver := engine.NewDriver(engine.NewHooks(), log, metrics, tracer)
	cascader := engine.NewCascader(st, engine.DefaultCascades, log)
	lock := engine.NewLock(cfg.Paths.LockFile)
	processor := engine.NewProcessor(st, registry, driver, cascader, lock, log, metrics, tracer)

	return &app{
		cfg:       cfg,
		log:       log,
		metrics:   metrics,
		tracer:    tracer,
		store:     st,
		sqld:      sqld,
		processor: processor,
	}, nil
}

// Close releases every held resource. Safe to call once.
func (a *app) Close(ctx context.Context) {
	if err := a.sqld.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close SQL admin connection")
	}
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close store")
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.log.WithError(err).Warn("failed to shut down tracer")
	}
}
