package remote

import (
	"context"
	"fmt"

	"github.com/hostforge/hostforge/pkg/telemetry"
)

// target is the per-node surface the fan-out drives. Node satisfies it.
type target interface {
	PushFile(ctx context.Context, localPath string) error
	RemovePath(ctx context.Context, localPath string) error
}

// Fanout publishes every artifact to all configured nodes. It tries every
// node even after a failure so a single dead secondary does not starve the
// rest, and reports the first error.
type Fanout struct {
	nodes []target
	log   *telemetry.Logger
}

// NewFanout builds a publisher over the given nodes.
func NewFanout(nodes []*Node, log *telemetry.Logger) *Fanout {
	targets := make([]target, len(nodes))
	for i, n := range nodes {
		targets[i] = n
	}
	return &Fanout{nodes: targets, log: log}
}

// PushFile mirrors the file to every node.
func (f *Fanout) PushFile(ctx context.Context, localPath string) error {
	return f.each(ctx, "push", localPath, func(n target) error {
		return n.PushFile(ctx, localPath)
	})
}

// RemovePath removes the path from every node.
func (f *Fanout) RemovePath(ctx context.Context, localPath string) error {
	return f.each(ctx, "remove", localPath, func(n target) error {
		return n.RemovePath(ctx, localPath)
	})
}

func (f *Fanout) each(ctx context.Context, op, path string, fn func(target) error) error {
	var firstErr error
	for _, n := range f.nodes {
		if err := fn(n); err != nil {
			f.log.WithError(err).WithField("path", path).Errorf("failed to %s artifact on secondary node", op)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s %s: %w", op, path, err)
			}
		}
	}
	return firstErr
}
