package engine

import (
	"context"

	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
	"github.com/hostforge/hostforge/pkg/telemetry"
)

// CascadeRule declares that a successful parent verb flips directly
// dependent child rows to a pending status. Propagation only ever touches
// children in the stable ok state; rows mid-flight or already marked
// todelete are never overwritten.
type CascadeRule struct {
	Parent store.EntityKind
	Verb   status.Verb
	Child  store.EntityKind
	To     status.Status
}

// DefaultCascades is the full dependency table. An IP or attribute change on
// a domain invalidates its DNS records; disabling a domain suspends the
// services riding on it.
var DefaultCascades = []CascadeRule{
	{Parent: store.KindDomain, Verb: status.VerbAdd, Child: store.KindDNSRecord, To: status.ToChange},
	{Parent: store.KindDomain, Verb: status.VerbDisable, Child: store.KindSubdomain, To: status.ToDisable},
	{Parent: store.KindDomain, Verb: status.VerbDisable, Child: store.KindMailAccount, To: status.ToDisable},
	{Parent: store.KindDomain, Verb: status.VerbDisable, Child: store.KindFTPUser, To: status.ToDisable},
	{Parent: store.KindDomain, Verb: status.VerbRestore, Child: store.KindSubdomain, To: status.ToEnable},
	{Parent: store.KindDomain, Verb: status.VerbRestore, Child: store.KindMailAccount, To: status.ToEnable},
	{Parent: store.KindDomain, Verb: status.VerbRestore, Child: store.KindFTPUser, To: status.ToEnable},
}

// Cascader applies the declared rules after successful parent verbs.
type Cascader struct {
	store store.Store
	rules []CascadeRule
	log   *telemetry.Logger
}

// NewCascader builds a cascader over the given rule table.
func NewCascader(st store.Store, rules []CascadeRule, log *telemetry.Logger) *Cascader {
	return &Cascader{store: st, rules: rules, log: log}
}

// Apply flips the children declared for this parent kind and verb. It
// returns the total number of rows flipped; flipped rows are picked up on
// the next pass, never the current one.
func (c *Cascader) Apply(ctx context.Context, parent store.EntityKind, parentID int64, verb status.Verb) (int64, error) {
	var total int64
	for _, rule := range c.rules {
		if rule.Parent != parent || rule.Verb != verb {
			continue
		}

		flipped, err := c.store.PropagateChildStatus(ctx, rule.Child, parentID, rule.To)
		if err != nil {
			return total, NewInfrastructureError("cascade", err)
		}
		if flipped > 0 {
			c.log.WithEntity(string(parent), parentID).
				Debugf("cascade flipped %d %s rows to %s", flipped, rule.Child, rule.To)
		}
		total += flipped
	}
	return total, nil
}
