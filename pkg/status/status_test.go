package status

import "testing"

// TestPendingClassification verifies that exactly the pending keywords are
// selected for processing.
func TestPendingClassification(t *testing.T) {
	for _, s := range Pending {
		if !s.IsPending() {
			t.Errorf("status %q should be pending", s)
		}
		if s.IsStable() {
			t.Errorf("status %q should not be stable", s)
		}
		if s.IsError() {
			t.Errorf("status %q should not be an error", s)
		}
	}

	for _, s := range []Status{OK, Disabled} {
		if s.IsPending() {
			t.Errorf("status %q should not be pending", s)
		}
		if !s.IsStable() {
			t.Errorf("status %q should be stable", s)
		}
	}
}

// TestErrorTextIsSticky verifies that free-form diagnostic text is treated as
// an error state, never selected for processing.
func TestErrorTextIsSticky(t *testing.T) {
	diags := []Status{
		"failed to write vhost config: permission denied",
		"zone reload exited with status 1",
		"", // blank is not a recognized keyword either
	}
	for _, s := range diags {
		if s.IsPending() {
			t.Errorf("diagnostic %q must not be selected for processing", s)
		}
		if s.IsStable() {
			t.Errorf("diagnostic %q must not count as stable", s)
		}
		if !s.IsError() {
			t.Errorf("diagnostic %q should classify as error", s)
		}
	}
}

// TestVerbMapping verifies the pending keyword to handler verb mapping.
func TestVerbMapping(t *testing.T) {
	cases := map[Status]Verb{
		ToAdd:       VerbAdd,
		ToChange:    VerbAdd,
		ToChangePwd: VerbAdd,
		ToEnable:    VerbAdd,
		ToDisable:   VerbDisable,
		ToRestore:   VerbRestore,
		ToDelete:    VerbDelete,
	}
	for s, want := range cases {
		got, err := s.VerbFor()
		if err != nil {
			t.Fatalf("VerbFor(%q) returned error: %v", s, err)
		}
		if got != want {
			t.Errorf("VerbFor(%q) = %q, want %q", s, got, want)
		}
	}

	if _, err := Status("ok").VerbFor(); err == nil {
		t.Error("VerbFor on a stable status should fail")
	}
}

// TestSuccessTargets verifies the documented terminal status per transition.
func TestSuccessTargets(t *testing.T) {
	cases := map[Status]Status{
		ToAdd:       OK,
		ToChange:    OK,
		ToChangePwd: OK,
		ToEnable:    OK,
		ToRestore:   OK,
		ToDisable:   Disabled,
	}
	for s, want := range cases {
		got, err := s.SuccessTarget()
		if err != nil {
			t.Fatalf("SuccessTarget(%q) returned error: %v", s, err)
		}
		if got != want {
			t.Errorf("SuccessTarget(%q) = %q, want %q", s, got, want)
		}
	}

	if _, err := ToDelete.SuccessTarget(); err == nil {
		t.Error("SuccessTarget on todelete should fail; the row is removed")
	}
	if !ToDelete.RemovesRow() {
		t.Error("todelete must remove the row on success")
	}
}
