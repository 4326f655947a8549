package incident

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/securebank/sentinel/internal/logging"
	"github.com/securebank/sentinel/internal/metrics"
)

// Simulator files incidents locally with the same shape a real
// case-management backend would return. Used whenever ServiceNow
// credentials are absent.
type Simulator struct {
	counter atomic.Int64
	records *store
	now     func() time.Time
}

// NewSimulator creates an empty simulated incident backend.
func NewSimulator() *Simulator {
	return &Simulator{records: newStore(), now: time.Now}
}

// Create files a simulated incident. Never fails.
func (s *Simulator) Create(ctx context.Context, draft Draft) (Incident, error) {
	n := s.counter.Add(1)
	number := fmt.Sprintf("INC%05d", n)
	now := s.now()

	inc := Incident{
		ID:               number,
		Number:           number,
		Priority:         PriorityHigh,
		State:            StateNew,
		Category:         Category,
		Subcategory:      Subcategory,
		ShortDescription: draft.ShortDescription,
		Description:      draft.Description,
		AssignmentGroup:  AssignmentGroup,
		SessionID:        draft.SessionID,
		RiskScore:        draft.RiskScore,
		RiskLevel:        draft.RiskLevel,
		CreatedAt:        now,
		SLADue:           now.Add(SLAWindow),
		Simulated:        true,
	}

	s.records.add(inc)
	metrics.IncidentsCreated.WithLabelValues("simulated").Inc()
	logging.L(ctx).Info("simulated incident created",
		"incident", number,
		"risk_score", draft.RiskScore,
	)
	return inc, nil
}

// Get returns a filed incident by id.
func (s *Simulator) Get(_ context.Context, id string) (Incident, error) {
	inc, ok := s.records.get(id)
	if !ok {
		return Incident{}, ErrNotFound
	}
	return inc, nil
}

// Update applies a patch to a filed incident.
func (s *Simulator) Update(ctx context.Context, id string, patch Patch) (Incident, error) {
	inc, ok := s.records.update(id, patch)
	if !ok {
		return Incident{}, ErrNotFound
	}
	logging.L(ctx).Info("simulated incident updated",
		"incident", inc.Number,
		"state", inc.State,
	)
	return inc, nil
}

// List returns all filed incidents, newest first.
func (s *Simulator) List(_ context.Context) ([]Incident, error) {
	return s.records.list(), nil
}
