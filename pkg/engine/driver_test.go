package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
	"github.com/hostforge/hostforge/pkg/telemetry"
)

// scriptedHandler runs the configured functions, or succeeds when nil.
type scriptedHandler struct {
	load    func(ctx context.Context) error
	add     func(ctx context.Context) error
	disable func(ctx context.Context) error
	restore func(ctx context.Context) error
	remove  func(ctx context.Context) error
}

func (h *scriptedHandler) Load(ctx context.Context) error    { return run(h.load, ctx) }
func (h *scriptedHandler) Add(ctx context.Context) error     { return run(h.add, ctx) }
func (h *scriptedHandler) Disable(ctx context.Context) error { return run(h.disable, ctx) }
func (h *scriptedHandler) Restore(ctx context.Context) error { return run(h.restore, ctx) }
func (h *scriptedHandler) Delete(ctx context.Context) error  { return run(h.remove, ctx) }

func run(fn func(ctx context.Context) error, ctx context.Context) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func testTelemetry(t *testing.T) (*telemetry.Logger, *telemetry.Metrics, *telemetry.Tracer) {
	t.Helper()

	log, err := telemetry.NewLogger(telemetry.LoggingConfig{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	tracer, err := telemetry.NewTracer(telemetry.TracingConfig{Enabled: false}, "hostforge-test", "0.0.0")
	if err != nil {
		t.Fatalf("failed to create tracer: %v", err)
	}
	return log, metrics, tracer
}

func newTestDriver(t *testing.T, hooks *Hooks) *Driver {
	t.Helper()
	log, metrics, tracer := testTelemetry(t)
	return NewDriver(hooks, log, metrics, tracer)
}

func TestDriverStatusRoundTrip(t *testing.T) {
	driver := newTestDriver(t, nil)
	ctx := context.Background()

	cases := []struct {
		pending status.Status
		want    status.Status
		remove  bool
	}{
		{status.ToAdd, status.OK, false},
		{status.ToChange, status.OK, false},
		{status.ToChangePwd, status.OK, false},
		{status.ToEnable, status.OK, false},
		{status.ToRestore, status.OK, false},
		{status.ToDisable, status.Disabled, false},
		{status.ToDelete, "", true},
	}

	for _, tc := range cases {
		row := store.PendingRow{ID: 1, Status: tc.pending}
		out := driver.Run(ctx, store.KindDomain, row, &scriptedHandler{})
		if out.Err != nil {
			t.Errorf("%s: unexpected error: %v", tc.pending, out.Err)
		}
		if out.Remove != tc.remove {
			t.Errorf("%s: remove = %v, want %v", tc.pending, out.Remove, tc.remove)
		}
		if !tc.remove && out.Status != tc.want {
			t.Errorf("%s: status = %q, want %q", tc.pending, out.Status, tc.want)
		}
	}
}

func TestDriverFailureWritesDiagnostic(t *testing.T) {
	driver := newTestDriver(t, nil)
	boom := errors.New("vhost write failed: disk full")

	h := &scriptedHandler{add: func(ctx context.Context) error { return boom }}
	out := driver.Run(context.Background(), store.KindDomain, store.PendingRow{ID: 7, Status: status.ToAdd}, h)

	if out.Err == nil {
		t.Fatal("expected error outcome")
	}
	if out.Remove {
		t.Error("failed verb must never remove the row")
	}
	if !out.Status.IsError() {
		t.Errorf("diagnostic %q classified as %v, want error text", out.Status, out.Status)
	}
	if out.Status != status.Status(boom.Error()) {
		t.Errorf("status = %q, want the diagnostic text", out.Status)
	}
}

func TestDriverContainsPanic(t *testing.T) {
	driver := newTestDriver(t, nil)

	h := &scriptedHandler{add: func(ctx context.Context) error { panic("nil dereference in handler") }}
	out := driver.Run(context.Background(), store.KindMailAccount, store.PendingRow{ID: 3, Status: status.ToAdd}, h)

	if out.Err == nil {
		t.Fatal("expected panic to become an error outcome")
	}
	if !out.Status.IsError() {
		t.Errorf("panic outcome not classified as error: %q", out.Status)
	}
}

func TestDriverSkipsVanishedRow(t *testing.T) {
	driver := newTestDriver(t, nil)

	h := &scriptedHandler{load: func(ctx context.Context) error {
		return NewNotFoundError("load", store.ErrNotFound)
	}}
	out := driver.Run(context.Background(), store.KindFTPUser, store.PendingRow{ID: 9, Status: status.ToDelete}, h)

	if !out.Skipped {
		t.Fatalf("expected skip, got %+v", out)
	}
	if out.Err != nil {
		t.Errorf("skip must not carry an error, got %v", out.Err)
	}
}

func TestDriverBeforeHookShortCircuits(t *testing.T) {
	hooks := NewHooks()
	hooks.Before(status.VerbDelete, func(ctx context.Context, ev Event) error {
		return errors.New("backup has not completed")
	})
	driver := newTestDriver(t, hooks)

	ran := false
	h := &scriptedHandler{remove: func(ctx context.Context) error {
		ran = true
		return nil
	}}
	out := driver.Run(context.Background(), store.KindDomain, store.PendingRow{ID: 4, Status: status.ToDelete}, h)

	if ran {
		t.Error("handler ran despite failing before hook")
	}
	if out.Err == nil || out.Remove {
		t.Errorf("expected error outcome without removal, got %+v", out)
	}
}

func TestDriverBeforeHookSkipsVerbAsSuccess(t *testing.T) {
	hooks := NewHooks()
	hooks.Before(status.VerbDisable, func(ctx context.Context, ev Event) error {
		return ErrSkipVerb
	})
	driver := newTestDriver(t, hooks)

	ran := false
	h := &scriptedHandler{disable: func(ctx context.Context) error {
		ran = true
		return nil
	}}
	out := driver.Run(context.Background(), store.KindDomain, store.PendingRow{ID: 6, Status: status.ToDisable}, h)

	if ran {
		t.Error("handler ran despite skip signal")
	}
	if out.Err != nil {
		t.Fatalf("skip must produce a success outcome, got %v", out.Err)
	}
	if out.Status != status.Disabled {
		t.Errorf("status = %q, want %q", out.Status, status.Disabled)
	}
}

func TestDriverAfterHookRunsOnFailure(t *testing.T) {
	afterRan := false
	hooks := NewHooks()
	hooks.After(status.VerbAdd, func(ctx context.Context, ev Event) error {
		afterRan = true
		return nil
	})
	driver := newTestDriver(t, hooks)

	boom := errors.New("zone write failed")
	h := &scriptedHandler{add: func(ctx context.Context) error { return boom }}
	out := driver.Run(context.Background(), store.KindDomain, store.PendingRow{ID: 8, Status: status.ToAdd}, h)

	if !afterRan {
		t.Error("after hook did not run on the failure path")
	}
	if out.Err == nil || out.Status != status.Status(boom.Error()) {
		t.Errorf("verb diagnostic lost, got %+v", out)
	}
}

func TestDriverDiagnosticNeverReadsAsKeyword(t *testing.T) {
	driver := newTestDriver(t, nil)
	ctx := context.Background()

	for _, text := range []string{"todelete", "ok", ""} {
		boom := errors.New(text)
		h := &scriptedHandler{add: func(ctx context.Context) error { return boom }}
		out := driver.Run(ctx, store.KindDomain, store.PendingRow{ID: 2, Status: status.ToAdd}, h)

		if out.Err == nil {
			t.Fatalf("%q: expected error outcome", text)
		}
		if out.Status == "" {
			t.Errorf("%q: diagnostic must never be blank", text)
		}
		if !out.Status.IsError() {
			t.Errorf("%q: diagnostic %q reads back as a status keyword", text, out.Status)
		}
	}
}

func TestDriverAfterHookFailureMarksError(t *testing.T) {
	hooks := NewHooks()
	hooks.After(status.VerbAdd, func(ctx context.Context, ev Event) error {
		return errors.New("notification dispatch failed")
	})
	driver := newTestDriver(t, hooks)

	out := driver.Run(context.Background(), store.KindDomain, store.PendingRow{ID: 5, Status: status.ToAdd}, &scriptedHandler{})
	if out.Err == nil {
		t.Fatal("expected after-hook failure to surface in the outcome")
	}
	if !out.Status.IsError() {
		t.Errorf("after-hook failure not written as diagnostic: %q", out.Status)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	factory := func(id int64, current status.Status) Handler { return &scriptedHandler{} }

	if err := reg.Register(store.KindDomain, factory); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := reg.Register(store.KindDomain, factory); err == nil {
		t.Error("expected duplicate registration to fail")
	}

	if _, err := reg.Handler(store.KindMailAccount, 1, status.ToAdd); !IsInfrastructure(err) {
		t.Errorf("unregistered kind should be an infrastructure error, got %v", err)
	}
}
