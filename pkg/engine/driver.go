package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
	"github.com/hostforge/hostforge/pkg/telemetry"
)

// Outcome is the decided result of running one entity through its verb. The
// driver always produces one, even when the handler panics: a row is never
// left in its pending keyword after being picked up.
type Outcome struct {
	// Status is the value to commit when Remove is false.
	Status status.Status

	// Remove indicates the row must be deleted instead of updated. Only a
	// successful delete verb sets it.
	Remove bool

	// Skipped indicates the row vanished before it could be loaded; nothing
	// is committed.
	Skipped bool

	// Err is nil on success and carries the failure otherwise. When set,
	// Status holds the diagnostic text derived from it.
	Err error
}

// failure builds the error outcome: the row's status column receives the
// diagnostic text so an operator can read what went wrong in place. Text
// that would read back as a status keyword, or no text at all, is prefixed
// so a failed row can never silently re-queue or go blank.
func failure(err error) Outcome {
	text := strings.TrimSpace(err.Error())
	if text == "" {
		text = "error: unspecified failure"
	} else if st := status.Status(text); st.IsPending() || st.IsStable() {
		text = "error: " + text
	}
	return Outcome{Status: status.Status(text), Err: err}
}

// Driver runs a single entity through its pending verb: before hooks, the
// handler method, after hooks, all fenced by a panic recovery.
type Driver struct {
	hooks   *Hooks
	log     *telemetry.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
}

// NewDriver creates the verb driver.
func NewDriver(hooks *Hooks, log *telemetry.Logger, metrics *telemetry.Metrics, tracer *telemetry.Tracer) *Driver {
	if hooks == nil {
		hooks = NewHooks()
	}
	return &Driver{hooks: hooks, log: log, metrics: metrics, tracer: tracer}
}

// Run drives one row through its verb and returns the decided outcome.
func (d *Driver) Run(ctx context.Context, kind store.EntityKind, row store.PendingRow, h Handler) (out Outcome) {
	verb, err := row.Status.VerbFor()
	if err != nil {
		// ListPending only selects pending keywords, so this is a wiring bug.
		return failure(fmt.Errorf("cannot dispatch: %v", err))
	}

	log := d.log.WithEntity(string(kind), row.ID).WithField("verb", string(verb))
	started := time.Now()

	ctx, span := d.tracer.StartEntitySpan(ctx, string(kind), row.ID, string(verb))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("handler panic: %v", r)
			log.WithError(err).Error("handler panicked, entity marked errored")
			telemetry.RecordError(span, err)
			out = failure(err)
		}
		d.metrics.EntityDuration(string(kind), string(verb), time.Since(started))
	}()

	if err := h.Load(ctx); err != nil {
		if IsNotFound(err) {
			log.Debug("row vanished before load, skipping")
			telemetry.RecordSuccess(span)
			return Outcome{Skipped: true}
		}
		log.WithError(err).Error("failed to load entity")
		telemetry.RecordError(span, err)
		return failure(err)
	}

	ev := Event{Kind: kind, ID: row.ID, Verb: verb}
	skipVerb := false
	if err := d.hooks.runBefore(ctx, ev); err != nil {
		if !errors.Is(err, ErrSkipVerb) {
			log.WithError(err).Error("before hook rejected entity")
			telemetry.RecordError(span, err)
			return failure(err)
		}
		log.Debug("before hook skipped the verb")
		skipVerb = true
	}

	var verbErr error
	if !skipVerb {
		switch verb {
		case status.VerbAdd:
			verbErr = h.Add(ctx)
		case status.VerbDisable:
			verbErr = h.Disable(ctx)
		case status.VerbRestore:
			verbErr = h.Restore(ctx)
		case status.VerbDelete:
			verbErr = h.Delete(ctx)
		}
	}

	// After hooks observe failures too. A hook error never masks the verb's
	// own diagnostic.
	afterErr := d.hooks.runAfter(ctx, ev)

	if verbErr != nil {
		log.WithError(verbErr).Error("handler verb failed")
		telemetry.RecordError(span, verbErr)
		return failure(verbErr)
	}
	if afterErr != nil {
		log.WithError(afterErr).Error("after hook failed")
		telemetry.RecordError(span, afterErr)
		return failure(afterErr)
	}

	telemetry.RecordSuccess(span)

	if row.Status.RemovesRow() {
		log.Info("entity deleted")
		return Outcome{Remove: true}
	}

	target, err := row.Status.SuccessTarget()
	if err != nil {
		return failure(err)
	}
	log.Infof("entity converged to %s", target)
	return Outcome{Status: target}
}
