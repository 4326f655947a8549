package incident

import (
	"context"
	"sort"

	"github.com/securebank/sentinel/internal/logging"
)

// AuditRecorder matches the audit trail's append operation.
type AuditRecorder interface {
	Record(ctx context.Context, level, action, detail, sessionRef string)
}

// Failover wraps a live ticketing backend with the simulator so an upstream
// outage never leaves an escalated session without an incident record. The
// simulated record is functionally identical apart from its Simulated flag.
type Failover struct {
	primary  Client
	fallback Client
	audit    AuditRecorder
}

// NewFailover creates a client that degrades to fallback when primary
// fails. audit may be nil.
func NewFailover(primary, fallback Client, audit AuditRecorder) *Failover {
	return &Failover{primary: primary, fallback: fallback, audit: audit}
}

// Create files the incident upstream; if that fails after retries, the
// failure is audited and a simulated incident is filed instead.
func (f *Failover) Create(ctx context.Context, draft Draft) (Incident, error) {
	inc, err := f.primary.Create(ctx, draft)
	if err == nil {
		return inc, nil
	}

	logging.L(ctx).Error("ticketing upstream failed, filing simulated incident",
		"error", err,
		"session_id", draft.SessionID,
	)
	f.record(ctx, "error", "incident_failover",
		"ticketing upstream unreachable: "+err.Error(), draft.SessionID)

	return f.fallback.Create(ctx, draft)
}

// Get looks the incident up in the primary mirror first, then the fallback.
func (f *Failover) Get(ctx context.Context, id string) (Incident, error) {
	inc, err := f.primary.Get(ctx, id)
	if err == nil {
		return inc, nil
	}
	return f.fallback.Get(ctx, id)
}

// Update patches wherever the incident was filed.
func (f *Failover) Update(ctx context.Context, id string, patch Patch) (Incident, error) {
	if _, err := f.primary.Get(ctx, id); err == nil {
		return f.primary.Update(ctx, id, patch)
	}
	return f.fallback.Update(ctx, id, patch)
}

// List merges both backends, newest first.
func (f *Failover) List(ctx context.Context) ([]Incident, error) {
	live, err := f.primary.List(ctx)
	if err != nil {
		live = nil
	}
	simulated, err := f.fallback.List(ctx)
	if err != nil {
		simulated = nil
	}

	out := make([]Incident, 0, len(live)+len(simulated))
	out = append(out, live...)
	out = append(out, simulated...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *Failover) record(ctx context.Context, level, action, detail, sessionRef string) {
	if f.audit == nil {
		return
	}
	f.audit.Record(ctx, level, action, detail, sessionRef)
}
