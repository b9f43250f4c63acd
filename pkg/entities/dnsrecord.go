package entities

import (
	"context"
	"fmt"

	"github.com/hostforge/hostforge/pkg/services"
	"github.com/hostforge/hostforge/pkg/status"
	"github.com/hostforge/hostforge/pkg/store"
)

// DNSRecordHandler converges one custom record fragment inside its domain's
// zone.
type DNSRecordHandler struct {
	deps    Deps
	id      int64
	current status.Status

	row  *store.DNSRecord
	data dataCache
}

// NewDNSRecordHandler creates the handler for one record row.
func NewDNSRecordHandler(deps Deps, id int64, current status.Status) *DNSRecordHandler {
	return &DNSRecordHandler{deps: deps, id: id, current: current, data: dataCache{}}
}

// Load fetches the record with its domain joined in.
func (h *DNSRecordHandler) Load(ctx context.Context) error {
	row, err := h.deps.Store.GetDNSRecord(ctx, h.id)
	if err != nil {
		return classifyLoad(err)
	}
	h.row = row
	return nil
}

func (h *DNSRecordHandler) recordRef() string {
	return fmt.Sprintf("record-%d", h.id)
}

func (h *DNSRecordHandler) recordData() services.Context {
	return h.data.get("record", func() services.Context {
		return services.Context{
			"owner_name":   h.row.OwnerName,
			"ttl":          h.row.TTL,
			"record_class": h.row.RecordClass,
			"record_type":  h.row.RecordType,
			"record_data":  h.row.RecordData,
		}
	})
}

// Add writes the record fragment and reloads the name server.
func (h *DNSRecordHandler) Add(ctx context.Context) error {
	if err := h.deps.DNS.AddRecord(ctx, h.row.Domain.Name, h.recordRef(), h.recordData()); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if err := h.deps.DNS.Reload(ctx); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return nil
}

// Disable withdraws the record from the zone; the row keeps its data so a
// later enable re-publishes it.
func (h *DNSRecordHandler) Disable(ctx context.Context) error {
	if err := h.deps.DNS.DeleteRecord(ctx, h.row.Domain.Name, h.recordRef()); err != nil {
		return fmt.Errorf("disable: %w", err)
	}
	if err := h.deps.DNS.Reload(ctx); err != nil {
		return fmt.Errorf("disable: %w", err)
	}
	return nil
}

// Restore re-publishes the record.
func (h *DNSRecordHandler) Restore(ctx context.Context) error {
	return h.Add(ctx)
}

// Delete removes the record fragment.
func (h *DNSRecordHandler) Delete(ctx context.Context) error {
	if err := h.deps.DNS.DeleteRecord(ctx, h.row.Domain.Name, h.recordRef()); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := h.deps.DNS.Reload(ctx); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}
