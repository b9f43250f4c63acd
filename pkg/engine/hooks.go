package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
)

// ErrSkipVerb is returned by a before hook to short-circuit the verb as a
// success: the handler never runs and the entity moves to its success status
// as if the verb had completed.
var ErrSkipVerb = errors.New("skip verb")

// Event describes the entity operation a hook fires around.
type Event struct {
	Kind store.EntityKind
	ID   int64
	Verb status.Verb
}

// HookFunc is a before or after callback. A before hook returning an error
// short-circuits the verb: ErrSkipVerb skips it as a success, any other
// error marks the entity with the hook's diagnostic. After hooks run on both
// the success and the failure path.
type HookFunc func(ctx context.Context, ev Event) error

// Hooks holds the registered before and after callbacks per verb.
type Hooks struct {
	before map[status.Verb][]HookFunc
	after  map[status.Verb][]HookFunc
}

// NewHooks creates an empty hook registry.
func NewHooks() *Hooks {
	return &Hooks{
		before: make(map[status.Verb][]HookFunc),
		after:  make(map[status.Verb][]HookFunc),
	}
}

// Before registers a callback that runs before every instance of the verb.
func (h *Hooks) Before(verb status.Verb, fn HookFunc) {
	h.before[verb] = append(h.before[verb], fn)
}

// After registers a callback that runs after every instance of the verb,
// succeeded or failed.
func (h *Hooks) After(verb status.Verb, fn HookFunc) {
	h.after[verb] = append(h.after[verb], fn)
}

// runBefore runs the before callbacks in registration order, stopping at the
// first error. ErrSkipVerb passes through unwrapped so the driver can detect
// it.
func (h *Hooks) runBefore(ctx context.Context, ev Event) error {
	for i, fn := range h.before[ev.Verb] {
		if err := fn(ctx, ev); err != nil {
			if errors.Is(err, ErrSkipVerb) {
				return err
			}
			return fmt.Errorf("before hook %d for %s: %w", i, ev.Verb, err)
		}
	}
	return nil
}

// runAfter runs the after callbacks in registration order, stopping at the
// first error.
func (h *Hooks) runAfter(ctx context.Context, ev Event) error {
	for i, fn := range h.after[ev.Verb] {
		if err := fn(ctx, ev); err != nil {
			return fmt.Errorf("after hook %d for %s: %w", i, ev.Verb, err)
		}
	}
	return nil
}
