package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
)

// passFixture bundles a processor over an in-memory store with scriptable
// handlers per kind.
type passFixture struct {
	store     *store.SQLiteStore
	registry  *Registry
	processor *Processor

	// processed records (kind, id) in the order rows were driven.
	processed []string

	// failIDs marks rows whose verb should fail.
	failIDs map[int64]error
}

func newPassFixture(t *testing.T) *passFixture {
	t.Helper()

	s, err := store.NewSQLiteStore(store.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	f := &passFixture{
		store:    s,
		registry: NewRegistry(),
		failIDs:  make(map[int64]error),
	}

	for _, kind := range ProcessingOrder {
		kind := kind
		err := f.registry.Register(kind, func(id int64, current status.Status) Handler {
			return &scriptedHandler{
				add:     f.verbFunc(kind, id),
				disable: f.verbFunc(kind, id),
				restore: f.verbFunc(kind, id),
				remove:  f.verbFunc(kind, id),
			}
		})
		if err != nil {
			t.Fatalf("failed to register %s handler: %v", kind, err)
		}
	}

	log, metrics, tracer := testTelemetry(t)
	driver := NewDriver(NewHooks(), log, metrics, tracer)
	cascader := NewCascader(s, DefaultCascades, log)
	lock := NewLock(filepath.Join(t.TempDir(), "pass.lock"))
	f.processor = NewProcessor(s, f.registry, driver, cascader, lock, log, metrics, tracer)

	return f
}

func (f *passFixture) verbFunc(kind store.EntityKind, id int64) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		f.processed = append(f.processed, fmt.Sprintf("%s/%d", kind, id))
		if err, ok := f.failIDs[id]; ok {
			return err
		}
		return nil
	}
}

func (f *passFixture) domainStatus(t *testing.T, id int64) status.Status {
	t.Helper()
	d, err := f.store.GetDomain(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to read domain %d: %v", id, err)
	}
	return d.Status
}

func createDomain(t *testing.T, s *store.SQLiteStore, name string, st status.Status) *store.Domain {
	t.Helper()
	d := &store.Domain{
		Name:         name,
		Status:       st,
		IPAddress:    "192.0.2.1",
		DocumentRoot: "/var/www/virtual/" + name,
	}
	if err := s.CreateDomain(context.Background(), d); err != nil {
		t.Fatalf("failed to create domain: %v", err)
	}
	return d
}

// TestPassIsolation is the D/A/M scenario: the failing entity gets its
// diagnostic, the siblings converge, and the pass itself succeeds.
func TestPassIsolation(t *testing.T) {
	f := newPassFixture(t)
	ctx := context.Background()

	d := createDomain(t, f.store, "d.example", status.ToAdd)
	a := createDomain(t, f.store, "a.example", status.ToAdd)
	m := createDomain(t, f.store, "m.example", status.ToAdd)
	f.failIDs[a.ID] = errors.New("vhost write failed")

	summary, err := f.processor.Run(ctx)
	if err != nil {
		t.Fatalf("pass must not fail on entity errors: %v", err)
	}

	if got := f.domainStatus(t, d.ID); got != status.OK {
		t.Errorf("domain D status = %q, want ok", got)
	}
	if got := f.domainStatus(t, m.ID); got != status.OK {
		t.Errorf("domain M status = %q, want ok", got)
	}
	if got := f.domainStatus(t, a.ID); !got.IsError() {
		t.Errorf("domain A status = %q, want diagnostic text", got)
	}

	ks := summary.PerKind[store.KindDomain]
	if ks.Succeeded != 2 || ks.Failed != 1 {
		t.Errorf("summary = %+v, want 2 succeeded and 1 failed", ks)
	}
}

// TestErroredRowsStayPut verifies an error diagnostic is sticky: the next
// pass does not pick the row up again.
func TestErroredRowsStayPut(t *testing.T) {
	f := newPassFixture(t)
	ctx := context.Background()

	d := createDomain(t, f.store, "broken.example", status.ToAdd)
	f.failIDs[d.ID] = errors.New("zone rebuild failed")

	if _, err := f.processor.Run(ctx); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	diagnostic := f.domainStatus(t, d.ID)
	if !diagnostic.IsError() {
		t.Fatalf("expected diagnostic, got %q", diagnostic)
	}

	f.processed = nil
	if _, err := f.processor.Run(ctx); err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if len(f.processed) != 0 {
		t.Errorf("errored row was re-processed: %v", f.processed)
	}
	if got := f.domainStatus(t, d.ID); got != diagnostic {
		t.Errorf("diagnostic changed across passes: %q -> %q", diagnostic, got)
	}
}

// TestDeleteFinality verifies todelete removes the row only after a
// successful delete, and a failed delete keeps it with a diagnostic.
func TestDeleteFinality(t *testing.T) {
	f := newPassFixture(t)
	ctx := context.Background()

	gone := createDomain(t, f.store, "gone.example", status.ToDelete)
	stuck := createDomain(t, f.store, "stuck.example", status.ToDelete)
	f.failIDs[stuck.ID] = errors.New("artifact removal failed")

	if _, err := f.processor.Run(ctx); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	if _, err := f.store.GetDomain(ctx, gone.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected deleted row to be gone, got %v", err)
	}
	if got := f.domainStatus(t, stuck.ID); !got.IsError() {
		t.Errorf("failed delete must keep the row with a diagnostic, got %q", got)
	}
}

// TestDependencyOrdering verifies parents are driven before children and
// the child handler sees the parent's post-add state.
func TestDependencyOrdering(t *testing.T) {
	f := newPassFixture(t)
	ctx := context.Background()

	d := createDomain(t, f.store, "example.com", status.ToAdd)
	sub := &store.Subdomain{DomainID: d.ID, Name: "api", Status: status.ToAdd, MountPoint: "/api"}
	if err := f.store.CreateSubdomain(ctx, sub); err != nil {
		t.Fatalf("failed to create subdomain: %v", err)
	}

	// Replace the subdomain handler's verb to check the parent state.
	var parentStatusAtChildAdd status.Status
	base := f.verbFunc(store.KindSubdomain, sub.ID)
	f.registry.factories[store.KindSubdomain] = func(id int64, current status.Status) Handler {
		return &scriptedHandler{add: func(ctx context.Context) error {
			parent, err := f.store.GetDomain(ctx, d.ID)
			if err != nil {
				return err
			}
			parentStatusAtChildAdd = parent.Status
			return base(ctx)
		}}
	}

	if _, err := f.processor.Run(ctx); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	domainKey := fmt.Sprintf("%s/%d", store.KindDomain, d.ID)
	subKey := fmt.Sprintf("%s/%d", store.KindSubdomain, sub.ID)
	domainIdx, subIdx := -1, -1
	for i, key := range f.processed {
		switch key {
		case domainKey:
			domainIdx = i
		case subKey:
			subIdx = i
		}
	}
	if domainIdx == -1 || subIdx == -1 || domainIdx > subIdx {
		t.Errorf("expected domain before subdomain, got %v", f.processed)
	}
	if parentStatusAtChildAdd != status.OK {
		t.Errorf("child saw parent status %q, want ok", parentStatusAtChildAdd)
	}
}

// TestCascadeDeferredToNextPass verifies a successful domain disable flips
// ok children to todisable but does not process them in the same pass.
func TestCascadeDeferredToNextPass(t *testing.T) {
	f := newPassFixture(t)
	ctx := context.Background()

	d := createDomain(t, f.store, "example.com", status.ToDisable)
	mail := &store.MailAccount{
		DomainID: d.ID,
		Address:  "alice@example.com",
		MailType: store.MailTypeNormal,
		Status:   status.OK,
	}
	if err := f.store.CreateMailAccount(ctx, mail); err != nil {
		t.Fatalf("failed to create mail account: %v", err)
	}
	doomed := &store.MailAccount{
		DomainID: d.ID,
		Address:  "bob@example.com",
		MailType: store.MailTypeNormal,
		Status:   status.ToDelete,
	}
	if err := f.store.CreateSQLDatabase(ctx, &store.SQLDatabase{DomainID: d.ID, Name: "appdb", Status: status.OK}); err != nil {
		t.Fatalf("failed to create sql database: %v", err)
	}
	if err := f.store.CreateMailAccount(ctx, doomed); err != nil {
		t.Fatalf("failed to create doomed mail account: %v", err)
	}
	// The doomed row is pending and will be processed this pass; what the
	// cascade must never do is overwrite a todelete that the snapshot missed.
	f.failIDs[doomed.ID] = errors.New("mailbox teardown failed")

	summary, err := f.processor.Run(ctx)
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	if got := f.domainStatus(t, d.ID); got != status.Disabled {
		t.Fatalf("domain status = %q, want disabled", got)
	}

	got, err := f.store.GetMailAccount(ctx, mail.ID)
	if err != nil {
		t.Fatalf("failed to read mail account: %v", err)
	}
	if got.Status != status.ToDisable {
		t.Errorf("cascade did not flip ok child, status = %q", got.Status)
	}
	if summary.Cascaded == 0 {
		t.Errorf("summary reports no cascaded rows")
	}

	// Flipped child waits for the next pass: only domain and the doomed
	// mailbox (pending at snapshot) were driven.
	for _, key := range f.processed {
		if key == fmt.Sprintf("%s/%d", store.KindMailAccount, mail.ID) {
			t.Errorf("cascaded child processed in the same pass: %v", f.processed)
		}
	}
}

// TestConcurrentPassesExcluded verifies a second processor sharing the lock
// path reports ErrLockHeld and touches nothing.
func TestConcurrentPassesExcluded(t *testing.T) {
	f := newPassFixture(t)
	ctx := context.Background()

	createDomain(t, f.store, "example.com", status.ToAdd)

	lock := NewLock(f.processor.lock.Path())
	if err := lock.Acquire(); err != nil {
		t.Fatalf("failed to pre-acquire lock: %v", err)
	}
	defer lock.Release()

	summary, err := f.processor.Run(ctx)
	if !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	if summary != nil {
		t.Errorf("expected nil summary when lock is held")
	}
	if len(f.processed) != 0 {
		t.Errorf("entities processed despite held lock: %v", f.processed)
	}
}

// TestPassReleasesLock verifies the next pass can run after a completed one.
func TestPassReleasesLock(t *testing.T) {
	f := newPassFixture(t)
	ctx := context.Background()

	if _, err := f.processor.Run(ctx); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	if _, err := f.processor.Run(ctx); err != nil {
		t.Fatalf("second pass failed to acquire released lock: %v", err)
	}
}
