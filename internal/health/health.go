// Package health aggregates readiness probes for the engine's backing
// services (database, audit trail) behind one registry that the health
// endpoints report from.
package health

import (
	"context"
	"sync"
)

// Status is one subsystem's verdict as surfaced on the health endpoint.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker probes a single subsystem. Implementations must honor the
// context deadline; a hung probe stalls the whole report.
type Checker func(ctx context.Context) Status

// Registry runs its checkers in registration order, so the report
// always lists subsystems in the order the server wired them.
type Registry struct {
	mu       sync.RWMutex
	checkers []namedChecker
}

type namedChecker struct {
	name  string
	check Checker
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a checker under a stable subsystem name.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, namedChecker{name: name, check: check})
	r.mu.Unlock()
}

// CheckAll probes every subsystem. The aggregate is unhealthy as soon as
// any one probe is; individual results are returned alongside so the
// endpoint can say which one.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	checkers := make([]namedChecker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	healthy = true
	statuses = make([]Status, len(checkers))

	for i, nc := range checkers {
		statuses[i] = nc.check(ctx)
		if !statuses[i].Healthy {
			healthy = false
		}
	}

	return healthy, statuses
}
