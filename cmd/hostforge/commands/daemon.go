package commands

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/hostforge/hostforge/pkg/engine"
)

func newDaemonCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run reconciliation passes continuously",
		Long: `Run as a long-lived daemon.

A pass runs immediately on startup, then whenever the panel touches the
trigger file, and on a periodic interval as a safety net. The Prometheus
endpoint is served for the lifetime of the process.`,
		Example: `  hostforge daemon --config /etc/hostforge/hostforge.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, version)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			log := a.log.NewComponentLogger("daemon")

			if a.cfg.Metrics.Enabled {
				go func() {
					if err := a.metrics.Serve(); err != nil {
						log.WithError(err).Error("metrics endpoint failed")
					}
				}()
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()
			if err := watcher.Add(a.cfg.Paths.TriggerDir); err != nil {
				return err
			}
			triggerPath := filepath.Join(a.cfg.Paths.TriggerDir, a.cfg.Daemon.TriggerFile)

			var tick <-chan time.Time
			if a.cfg.Daemon.Interval > 0 {
				ticker := time.NewTicker(a.cfg.Daemon.Interval)
				defer ticker.Stop()
				tick = ticker.C
			}

			runPass := func(reason string) error {
				_, err := a.processor.Run(ctx)
				if err == nil {
					return nil
				}
				if errors.Is(err, engine.ErrLockHeld) {
					return nil
				}
				// Infrastructure failures in daemon mode are logged and
				// retried on the next trigger; only a dead context ends the
				// loop.
				log.WithError(err).WithField("reason", reason).Error("pass failed")
				return ctx.Err()
			}

			log.Info("daemon started")
			if err := runPass("startup"); err != nil {
				return err
			}

			for {
				select {
				case <-ctx.Done():
					log.Info("daemon stopping")
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Name != triggerPath {
						continue
					}
					if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
						continue
					}
					log.Debug("trigger file touched")
					if err := runPass("trigger"); err != nil {
						return err
					}

				case werr, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.WithError(werr).Warn("trigger watch error")

				case <-tick:
					if err := runPass("interval"); err != nil {
						return err
					}
				}
			}
		},
	}
}
