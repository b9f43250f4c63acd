package services

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// ServiceRunner controls system services. Every invocation is bounded by a
// timeout so a hung service manager cannot stall a whole pass.
type ServiceRunner interface {
	Reload(ctx context.Context, service string) error
	Restart(ctx context.Context, service string) error
}

// SystemctlRunner drives services through systemctl.
type SystemctlRunner struct {
	// Timeout bounds each systemctl invocation.
	Timeout time.Duration
}

// NewSystemctlRunner creates a runner with the given per-call timeout.
func NewSystemctlRunner(timeout time.Duration) *SystemctlRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SystemctlRunner{Timeout: timeout}
}

// Reload reloads the service configuration.
func (r *SystemctlRunner) Reload(ctx context.Context, service string) error {
	return r.run(ctx, "reload-or-restart", service)
}

// Restart restarts the service.
func (r *SystemctlRunner) Restart(ctx context.Context, service string) error {
	return r.run(ctx, "restart", service)
}

func (r *SystemctlRunner) run(ctx context.Context, action, service string) error {
	if service == "" {
		return fmt.Errorf("service name is required")
	}

	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "systemctl", action, service)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("systemctl %s %s failed: %w (stderr: %s)", action, service, err, stderr.String())
	}

	return nil
}
