package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
	"github.com/hostforge/hostforge/pkg/telemetry"
)

// ProcessingOrder is the fixed dependency order of a pass. Parents come
// before the entities that need their context: a subdomain handler must see
// its domain already converged within the same pass.
var ProcessingOrder = []store.EntityKind{
	store.KindDomain,
	store.KindSubdomain,
	store.KindDomainAlias,
	store.KindSubdomainAlias,
	store.KindDNSRecord,
	store.KindMailAccount,
	store.KindFTPUser,
	store.KindSSLCert,
	store.KindSQLDatabase,
	store.KindSQLUser,
}

// KindSummary counts the outcomes for one entity kind within a pass.
type KindSummary struct {
	Processed int
	Succeeded int
	Failed    int
	Removed   int
	Skipped   int
}

// Summary is the result of one reconciliation pass.
type Summary struct {
	PassID    string
	StartedAt time.Time
	Duration  time.Duration
	PerKind   map[store.EntityKind]KindSummary
	Cascaded  int64
}

// Processed returns the total number of rows the pass handled.
func (s *Summary) Processed() int {
	total := 0
	for _, ks := range s.PerKind {
		total += ks.Processed
	}
	return total
}

// Failed returns the total number of rows that ended in error status.
func (s *Summary) Failed() int {
	total := 0
	for _, ks := range s.PerKind {
		total += ks.Failed
	}
	return total
}

// Processor runs reconciliation passes: snapshot the pending rows of every
// kind, then drive each row through its handler in dependency order, with
// per-entity error isolation.
type Processor struct {
	store    store.Store
	registry *Registry
	driver   *Driver
	cascader *Cascader
	lock     *Lock

	log     *telemetry.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
}

// NewProcessor wires a processor. The registry must cover every kind in
// ProcessingOrder; missing kinds surface as infrastructure errors at run
// time.
func NewProcessor(
	st store.Store,
	registry *Registry,
	driver *Driver,
	cascader *Cascader,
	lock *Lock,
	log *telemetry.Logger,
	metrics *telemetry.Metrics,
	tracer *telemetry.Tracer,
) *Processor {
	return &Processor{
		store:    st,
		registry: registry,
		driver:   driver,
		cascader: cascader,
		lock:     lock,
		log:      log.NewComponentLogger("processor"),
		metrics:  metrics,
		tracer:   tracer,
	}
}

// Run executes one pass. It returns ErrLockHeld (wrapped) when another pass
// owns the lock; any other error is infrastructure-level and the caller
// should exit non-zero. Entity-level failures never surface here: they are
// written into the rows and counted in the summary.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	if err := p.lock.Acquire(); err != nil {
		if errors.Is(err, ErrLockHeld) {
			p.metrics.LockContention()
			p.log.Info("lock held by another pass, nothing to do")
			return nil, err
		}
		return nil, err
	}
	defer func() {
		if err := p.lock.Release(); err != nil {
			p.log.WithError(err).Warn("failed to release pass lock")
		}
	}()

	passID := uuid.NewString()
	summary := &Summary{
		PassID:    passID,
		StartedAt: time.Now(),
		PerKind:   make(map[store.EntityKind]KindSummary),
	}

	log := p.log.WithPassID(passID)
	log.Info("pass started")
	p.metrics.PassStarted()

	ctx, span := p.tracer.StartPassSpan(ctx, passID)
	defer span.End()

	// Snapshot first: rows flipped mid-pass (cascades, panel writes) wait
	// for the next pass.
	snapshot := make(map[store.EntityKind][]store.PendingRow, len(ProcessingOrder))
	for _, kind := range ProcessingOrder {
		rows, err := p.store.ListPending(ctx, kind)
		if err != nil {
			telemetry.RecordError(span, err)
			p.metrics.PassCompleted("error", time.Since(summary.StartedAt))
			return nil, NewInfrastructureError("snapshot", err)
		}
		snapshot[kind] = rows
		p.metrics.SetQueueDepth(string(kind), len(rows))
	}

	for _, kind := range ProcessingOrder {
		for _, row := range snapshot[kind] {
			if err := ctx.Err(); err != nil {
				telemetry.RecordError(span, err)
				p.metrics.PassCompleted("error", time.Since(summary.StartedAt))
				return nil, NewInfrastructureError("pass", err)
			}

			if err := p.processRow(ctx, kind, row, summary); err != nil {
				telemetry.RecordError(span, err)
				p.metrics.PassCompleted("error", time.Since(summary.StartedAt))
				return nil, err
			}
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	telemetry.RecordSuccess(span)
	p.metrics.PassCompleted("ok", summary.Duration)

	log.WithField("processed", summary.Processed()).
		WithField("failed", summary.Failed()).
		WithField("duration", summary.Duration.String()).
		Info("pass completed")

	return summary, nil
}

// processRow drives one row and commits its outcome. Only infrastructure
// failures return an error.
func (p *Processor) processRow(ctx context.Context, kind store.EntityKind, row store.PendingRow, summary *Summary) error {
	ks := summary.PerKind[kind]
	ks.Processed++

	handler, err := p.registry.Handler(kind, row.ID, row.Status)
	if err != nil {
		return err
	}

	outcome := p.driver.Run(ctx, kind, row, handler)

	switch {
	case outcome.Skipped:
		ks.Skipped++
		p.metrics.EntityProcessed(string(kind), "skipped")

	case outcome.Remove:
		if err := p.store.DeleteEntity(ctx, kind, row.ID); err != nil {
			return NewInfrastructureError("commit", err)
		}
		ks.Removed++
		p.metrics.EntityProcessed(string(kind), "ok")

	default:
		if err := p.store.CommitStatus(ctx, kind, row.ID, outcome.Status); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Row deleted out-of-band after we processed it. Count the
				// work, nothing left to write.
				ks.Skipped++
				p.metrics.EntityProcessed(string(kind), "skipped")
				break
			}
			return NewInfrastructureError("commit", err)
		}
		if outcome.Err != nil {
			ks.Failed++
			p.metrics.EntityProcessed(string(kind), "error")
		} else {
			ks.Succeeded++
			p.metrics.EntityProcessed(string(kind), "ok")
		}
	}

	// Cascades fire only on success.
	if outcome.Err == nil && !outcome.Skipped {
		if verb, err := row.Status.VerbFor(); err == nil && verb != status.VerbDelete {
			flipped, err := p.cascader.Apply(ctx, kind, row.ID, verb)
			if err != nil {
				return err
			}
			summary.Cascaded += flipped
		}
	}

	summary.PerKind[kind] = ks
	return nil
}
