package engine

import (
	"context"
	"fmt"

	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
)

// Handler is the per-entity strategy the driver runs. One handler instance
// serves exactly one row for exactly one pass; handlers never cache state
// across passes.
type Handler interface {
	// Load fetches the row and its joined parent context. A vanished row is
	// reported as a not-found classified error and skipped.
	Load(ctx context.Context) error

	// Add creates or re-converges every external artifact of the entity.
	// Add must be idempotent: running it twice leaves the same artifacts.
	Add(ctx context.Context) error

	// Disable suspends the entity's visible service without destroying its
	// stored configuration.
	Disable(ctx context.Context) error

	// Restore recovers the entity, converging artifacts back to the stored
	// desired state.
	Restore(ctx context.Context) error

	// Delete removes every external artifact. The store row is removed by
	// the processor only after Delete succeeds.
	Delete(ctx context.Context) error
}

// Factory builds a handler for one row. The current status is passed so
// handlers can take the credential-rotation fast path on tochangepwd.
type Factory func(id int64, current status.Status) Handler

// Registry is the closed dispatch table from entity kind to handler factory.
// Registration happens once at wiring time; lookups never use reflection.
type Registry struct {
	factories map[store.EntityKind]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[store.EntityKind]Factory)}
}

// Register binds a kind to its handler factory. Registering a kind twice is
// a wiring bug and fails loudly.
func (r *Registry) Register(kind store.EntityKind, factory Factory) error {
	if _, dup := r.factories[kind]; dup {
		return fmt.Errorf("handler for kind %s already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

// Handler builds the handler for one row. An unregistered kind is a wiring
// bug, classified as infrastructure so the pass aborts instead of marking
// rows with a misleading diagnostic.
func (r *Registry) Handler(kind store.EntityKind, id int64, current status.Status) (Handler, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, NewInfrastructureError("dispatch", fmt.Errorf("no handler registered for kind %s", kind))
	}
	return factory(id, current), nil
}

// Kinds returns the registered kinds, for wiring sanity checks.
func (r *Registry) Kinds() []store.EntityKind {
	kinds := make([]store.EntityKind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	return kinds
}
