// Package incident files and tracks fraud incidents. A live ServiceNow
// table-API client is used when credentials are configured; otherwise a
// local simulator produces equivalent records so the escalation path works
// end to end in every environment.
package incident

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when an incident id is unknown.
var ErrNotFound = errors.New("incident not found")

// Defaults applied to every fraud incident this service files.
const (
	PriorityHigh    = "High"
	StateNew        = "New"
	Category        = "Financial Fraud"
	Subcategory     = "Suspicious Transaction"
	AssignmentGroup = "Fraud Investigation Team"

	// SLAWindow is the investigation deadline attached to each incident.
	SLAWindow = 2 * time.Hour
)

// Incident is one filed fraud case.
type Incident struct {
	ID               string    `json:"id"`
	Number           string    `json:"number"`
	Priority         string    `json:"priority"`
	State            string    `json:"state"`
	Category         string    `json:"category"`
	Subcategory      string    `json:"subcategory"`
	ShortDescription string    `json:"shortDescription"`
	Description      string    `json:"description"`
	AssignmentGroup  string    `json:"assignmentGroup"`
	SessionID        string    `json:"sessionId"`
	RiskScore        int       `json:"riskScore"`
	RiskLevel        string    `json:"riskLevel"`
	CreatedAt        time.Time `json:"createdAt"`
	SLADue           time.Time `json:"slaDue"`
	Simulated        bool      `json:"simulated"`
	WorkNotes        []string  `json:"workNotes,omitempty"`
}

// Draft is the caller-supplied portion of a new incident.
type Draft struct {
	SessionID        string
	ShortDescription string
	Description      string
	RiskScore        int
	RiskLevel        string
}

// Patch is the mutable portion of a filed incident. Empty fields are
// left unchanged.
type Patch struct {
	State    string
	WorkNote string
}

// Client files incidents and serves them back for the operations API.
type Client interface {
	Create(ctx context.Context, draft Draft) (Incident, error)
	Get(ctx context.Context, id string) (Incident, error)
	Update(ctx context.Context, id string, patch Patch) (Incident, error)
	List(ctx context.Context) ([]Incident, error)
}

// store keeps every incident this process filed, newest first on List.
// Both the simulator and the live client record through it so the
// operations API works identically in either mode.
type store struct {
	mu   sync.RWMutex
	byID map[string]Incident
	all  []Incident
}

func newStore() *store {
	return &store{byID: make(map[string]Incident)}
}

func (s *store) add(inc Incident) {
	s.mu.Lock()
	s.byID[inc.ID] = inc
	s.all = append(s.all, inc)
	s.mu.Unlock()
}

func (s *store) update(id string, patch Patch) (Incident, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inc, ok := s.byID[id]
	if !ok {
		return Incident{}, false
	}
	if patch.State != "" {
		inc.State = patch.State
	}
	if patch.WorkNote != "" {
		inc.WorkNotes = append(inc.WorkNotes, patch.WorkNote)
	}
	s.byID[id] = inc
	for i := range s.all {
		if s.all[i].ID == id {
			s.all[i] = inc
			break
		}
	}
	return inc, true
}

func (s *store) get(id string) (Incident, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.byID[id]
	return inc, ok
}

func (s *store) list() []Incident {
	s.mu.RLock()
	out := make([]Incident, len(s.all))
	copy(out, s.all)
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
