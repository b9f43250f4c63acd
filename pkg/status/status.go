// Package status defines the shared status vocabulary used by every
// provisionable entity. A row's status column is the sole queue marker: a
// pending keyword means outstanding work, a stable keyword means the entity
// is converged, and any other value is the human-readable diagnostic text
// left behind by a failed reconciliation.
package status

import "fmt"

// Status is the value of an entity row's status column.
type Status string

const (
	// ToAdd indicates the entity must be created or fully re-converged.
	ToAdd Status = "toadd"

	// ToChange indicates the entity's attributes changed and its external
	// artifacts must be regenerated.
	ToChange Status = "tochange"

	// ToChangePwd indicates the only pending change is credential rotation.
	ToChangePwd Status = "tochangepwd"

	// ToEnable indicates a disabled entity must be brought back into service.
	ToEnable Status = "toenable"

	// ToDisable indicates the entity must be suspended without destroying
	// its stored configuration.
	ToDisable Status = "todisable"

	// ToRestore indicates the entity must be recovered from a previous state.
	ToRestore Status = "torestore"

	// ToDelete indicates all external artifacts must be removed; the row is
	// deleted only after the handler reports success.
	ToDelete Status = "todelete"

	// OK indicates the entity is converged and in service.
	OK Status = "ok"

	// Disabled indicates the entity is converged but suspended.
	Disabled Status = "disabled"
)

// Verb is the handler operation a pending status maps to.
type Verb string

const (
	VerbAdd     Verb = "add"
	VerbDisable Verb = "disable"
	VerbRestore Verb = "restore"
	VerbDelete  Verb = "delete"
)

// Pending lists every status keyword that marks a row for processing, in no
// particular order. Row selection matches against exactly this set.
var Pending = []Status{
	ToAdd, ToChange, ToChangePwd, ToEnable, ToDisable, ToRestore, ToDelete,
}

// IsPending returns true if the status marks the row for processing.
func (s Status) IsPending() bool {
	switch s {
	case ToAdd, ToChange, ToChangePwd, ToEnable, ToDisable, ToRestore, ToDelete:
		return true
	default:
		return false
	}
}

// IsStable returns true if the status is a terminal keyword. Stable rows are
// never selected and are the only rows cascade propagation may touch.
func (s Status) IsStable() bool {
	return s == OK || s == Disabled
}

// IsError returns true if the status is neither pending nor stable, i.e. it
// carries diagnostic text from a failed run. Error rows stay put until an
// operator re-queues them.
func (s Status) IsError() bool {
	return !s.IsPending() && !s.IsStable()
}

// VerbFor returns the handler operation for a pending status.
func (s Status) VerbFor() (Verb, error) {
	switch s {
	case ToAdd, ToChange, ToChangePwd, ToEnable:
		return VerbAdd, nil
	case ToDisable:
		return VerbDisable, nil
	case ToRestore:
		return VerbRestore, nil
	case ToDelete:
		return VerbDelete, nil
	default:
		return "", fmt.Errorf("status %q is not a pending keyword", s)
	}
}

// SuccessTarget returns the status a row ends in when the pending verb
// succeeds. A successful delete has no target: the row is removed instead.
func (s Status) SuccessTarget() (Status, error) {
	switch s {
	case ToAdd, ToChange, ToChangePwd, ToEnable, ToRestore:
		return OK, nil
	case ToDisable:
		return Disabled, nil
	case ToDelete:
		return "", fmt.Errorf("status %q removes the row on success", s)
	default:
		return "", fmt.Errorf("status %q is not a pending keyword", s)
	}
}

// RemovesRow returns true if a successful run of the pending verb deletes
// the row from the store.
func (s Status) RemovesRow() bool {
	return s == ToDelete
}
