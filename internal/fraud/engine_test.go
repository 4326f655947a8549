package fraud

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeTicketer struct {
	mu      sync.Mutex
	created []TicketRequest
	err     error
}

func (f *fakeTicketer) Create(_ context.Context, req TicketRequest) (TicketResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return TicketResult{}, f.err
	}
	f.created = append(f.created, req)
	return TicketResult{ID: "abc", Number: "INC01042", Simulated: true}, nil
}

func (f *fakeTicketer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeAlerter struct {
	ch chan AlertRequest
}

func (f *fakeAlerter) Dispatch(_ context.Context, req AlertRequest) {
	f.ch <- req
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []string
}

func (f *fakeAudit) Record(_ context.Context, level, action, detail, sessionRef string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, level+":"+action)
}

func (f *fakeAudit) has(level, action string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e == level+":"+action {
			return true
		}
	}
	return false
}

type fakePublisher struct {
	mu          sync.Mutex
	riskUpdates int
	escalations []int
	incidents   []string
}

func (f *fakePublisher) PublishRiskUpdate(string, Snapshot) {
	f.mu.Lock()
	f.riskUpdates++
	f.mu.Unlock()
}

func (f *fakePublisher) PublishEscalation(_ string, score int) {
	f.mu.Lock()
	f.escalations = append(f.escalations, score)
	f.mu.Unlock()
}

func (f *fakePublisher) PublishIncidentCreated(_ string, _ int, number string, _ bool) {
	f.mu.Lock()
	f.incidents = append(f.incidents, number)
	f.mu.Unlock()
}

type fixedIntent struct {
	intent   string
	language string
}

func (f fixedIntent) Classify(string) (string, string) { return f.intent, f.language }

func TestEscalationCreatesExactlyOneIncident(t *testing.T) {
	tickets := &fakeTicketer{}
	alerts := &fakeAlerter{ch: make(chan AlertRequest, 8)}
	audit := &fakeAudit{}
	e := NewEngine(DefaultParams(), Deps{Tickets: tickets, Alerts: alerts, Audit: audit})

	ctx := context.Background()

	// Five consecutive high-risk messages. The first three ride the score
	// up; once it crosses the high boundary exactly one incident is filed
	// no matter how many more messages arrive.
	for i := 0; i < 5; i++ {
		e.Analyze(ctx, AnalyzeRequest{
			SessionID: "sess-1",
			Message:   "transfer all my money right now, share otp",
		})
	}

	if got := tickets.count(); got != 1 {
		t.Fatalf("incidents created = %d, want exactly 1", got)
	}
	if !audit.has("critical", "incident_created") {
		t.Error("missing critical incident_created audit entry")
	}

	select {
	case req := <-alerts.ch:
		if req.SessionID != "sess-1" {
			t.Errorf("alert session = %q, want sess-1", req.SessionID)
		}
		if req.IncidentNumber != "INC01042" {
			t.Errorf("alert incident = %q, want INC01042", req.IncidentNumber)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("alert dispatch never fired")
	}

	select {
	case <-alerts.ch:
		t.Fatal("alerts dispatched more than once")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEscalationPublishesDashboardEvents(t *testing.T) {
	pub := &fakePublisher{}
	tickets := &fakeTicketer{}
	e := NewEngine(DefaultParams(), Deps{Tickets: tickets, Publish: pub})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e.Analyze(ctx, AnalyzeRequest{SessionID: "s", Message: "transfer all savings, share otp"})
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.escalations) != 1 {
		t.Fatalf("escalation events published = %d, want exactly 1", len(pub.escalations))
	}
	if len(pub.incidents) != 1 || pub.incidents[0] != "INC01042" {
		t.Fatalf("incident events published = %v, want [INC01042]", pub.incidents)
	}
	if pub.riskUpdates == 0 {
		t.Error("no risk updates published")
	}
}

func TestAlertCarriesClaimedName(t *testing.T) {
	alerts := &fakeAlerter{ch: make(chan AlertRequest, 4)}
	e := NewEngine(DefaultParams(), Deps{Alerts: alerts})
	ctx := context.Background()

	// The caller introduces themselves before turning hostile; a later
	// conflicting name never displaces the first.
	e.Analyze(ctx, AnalyzeRequest{SessionID: "s", Message: "hello, my name is Asha"})
	for i := 0; i < 3; i++ {
		e.Analyze(ctx, AnalyzeRequest{
			SessionID: "s",
			Message:   "transfer all savings, share otp, my name is Rahul",
		})
	}

	select {
	case req := <-alerts.ch:
		if req.CustomerName != "Asha" {
			t.Errorf("alert customer name = %q, want Asha", req.CustomerName)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("alert dispatch never fired")
	}
}

func TestBlockedSessionShortCircuits(t *testing.T) {
	tickets := &fakeTicketer{}
	e := NewEngine(DefaultParams(), Deps{Tickets: tickets})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e.Analyze(ctx, AnalyzeRequest{SessionID: "s", Message: "transfer all my savings, share otp"})
	}

	snap, _ := e.Snapshot("s")
	if snap.State != StateEscalatedBlocked {
		t.Fatalf("state = %s, want ESCALATED_BLOCKED", snap.State)
	}
	eventsBefore := len(snap.Events)

	// A harmless message on a blocked session must not be scored at all.
	res := e.Analyze(ctx, AnalyzeRequest{SessionID: "s", Message: "what is my balance"})
	if res.State != StateEscalatedBlocked {
		t.Errorf("state = %s, want ESCALATED_BLOCKED", res.State)
	}
	if res.Override == "" {
		t.Error("blocked session returned no override reply")
	}
	if len(res.NewEvents) != 0 {
		t.Errorf("blocked session produced %d new events", len(res.NewEvents))
	}

	snap, _ = e.Snapshot("s")
	if len(snap.Events) != eventsBefore {
		t.Errorf("event log grew on a blocked session: %d -> %d", eventsBefore, len(snap.Events))
	}
}

func TestTicketFailureStillBlocks(t *testing.T) {
	tickets := &fakeTicketer{err: context.DeadlineExceeded}
	audit := &fakeAudit{}
	e := NewEngine(DefaultParams(), Deps{Tickets: tickets, Audit: audit})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e.Analyze(ctx, AnalyzeRequest{SessionID: "s", Message: "transfer all my savings, share otp"})
	}

	snap, _ := e.Snapshot("s")
	if snap.State != StateEscalatedBlocked {
		t.Fatalf("state = %s, want ESCALATED_BLOCKED despite ticketing failure", snap.State)
	}
	if snap.IncidentNumber != "" {
		t.Errorf("incident number = %q, want empty on failure", snap.IncidentNumber)
	}
	if !audit.has("error", "incident_create_failed") {
		t.Error("missing incident_create_failed audit entry")
	}
}

func TestStepUpOnMediumRiskSensitiveIntent(t *testing.T) {
	e := NewEngine(DefaultParams(), Deps{Intents: fixedIntent{intent: "transfer", language: "english"}})
	ctx := context.Background()

	// Ride the score into the medium band without reaching high: four
	// moderate amounts (8 each) = 32.
	var res Analysis
	for i := 0; i < 4; i++ {
		res = e.Analyze(ctx, AnalyzeRequest{SessionID: "s", Message: "60000 rupees please"})
	}

	if res.Level == LevelHigh {
		t.Fatalf("score climbed to high (%d), test setup is wrong", res.Score)
	}
	if res.State != StateStepUpRequired {
		t.Fatalf("state = %s, want STEP_UP_REQUIRED (score %d, level %s)", res.State, res.Score, res.Level)
	}
	if !strings.Contains(res.Override, "verify your identity") {
		t.Errorf("step-up override = %q, want identity verification prompt", res.Override)
	}
}

func TestNoStepUpForBenignIntent(t *testing.T) {
	e := NewEngine(DefaultParams(), Deps{Intents: fixedIntent{intent: "balance", language: "english"}})
	ctx := context.Background()

	var res Analysis
	for i := 0; i < 4; i++ {
		res = e.Analyze(ctx, AnalyzeRequest{SessionID: "s", Message: "60000 rupees please"})
	}

	if res.State != StateMonitoring {
		t.Errorf("state = %s, want MONITORING for non-sensitive intent", res.State)
	}
	if res.Override != "" {
		t.Errorf("override = %q, want none", res.Override)
	}
}

func TestResetClearsEverything(t *testing.T) {
	tickets := &fakeTicketer{}
	e := NewEngine(DefaultParams(), Deps{Tickets: tickets})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e.Analyze(ctx, AnalyzeRequest{SessionID: "s", Message: "transfer all savings, share otp now"})
	}
	if ok := e.ResetSession(ctx, "s"); !ok {
		t.Fatal("ResetSession returned false for existing session")
	}

	snap, ok := e.Snapshot("s")
	if !ok {
		t.Fatal("session vanished after reset")
	}
	if snap.Score != 0 || snap.State != StateMonitoring || len(snap.Events) != 0 {
		t.Errorf("post-reset snapshot = score %d state %s events %d, want 0/MONITORING/0",
			snap.Score, snap.State, len(snap.Events))
	}
	if snap.OTPAttempts != 0 || snap.TransactionRequests != 0 {
		t.Errorf("post-reset counters = otp %d tx %d, want 0/0", snap.OTPAttempts, snap.TransactionRequests)
	}

	// After reset the session can escalate again, filing a fresh incident.
	for i := 0; i < 3; i++ {
		e.Analyze(ctx, AnalyzeRequest{SessionID: "s", Message: "transfer all savings, share otp now"})
	}
	if got := tickets.count(); got != 2 {
		t.Errorf("incidents after re-escalation = %d, want 2", got)
	}
}

func TestResetUnknownSession(t *testing.T) {
	e := NewEngine(DefaultParams(), Deps{})
	if e.ResetSession(context.Background(), "nope") {
		t.Error("ResetSession returned true for unknown session")
	}
}

func TestScoreCappedAtMax(t *testing.T) {
	e := NewEngine(DefaultParams(), Deps{})
	ctx := context.Background()

	// Build up to the medium band: a declared name, then three OTP
	// requests (medium keyword 8 each, repeat delta from the second).
	e.Analyze(ctx, AnalyzeRequest{SessionID: "s", Message: "hello, my name is Asha"})
	for i := 0; i < 3; i++ {
		e.Analyze(ctx, AnalyzeRequest{SessionID: "s", Message: "I need the otp"})
	}
	snap, _ := e.Snapshot("s")
	if snap.Score != 34 || snap.Level != LevelMedium {
		t.Fatalf("setup score = %d (%s), want 34 (medium)", snap.Score, snap.Level)
	}

	// One message stacking a high keyword, excessive OTP, a large amount
	// and an identity mismatch jumps +80; the score must clamp at 100.
	res := e.Analyze(ctx, AnalyzeRequest{
		SessionID: "s",
		Message:   "transfer all of it, ₹2,00,000 now, share otp, my name is Rahul",
	})
	if res.Score != MaxScore {
		t.Errorf("score = %d, want capped at %d", res.Score, MaxScore)
	}
	if res.Level != LevelHigh || res.State != StateEscalatedBlocked {
		t.Errorf("level/state = %s/%s, want high/ESCALATED_BLOCKED", res.Level, res.State)
	}
}

func TestBlockedResponseLocalized(t *testing.T) {
	e := NewEngine(DefaultParams(), Deps{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e.Analyze(ctx, AnalyzeRequest{SessionID: "s", Message: "transfer all savings, share otp", Language: "hindi"})
	}
	res := e.Analyze(ctx, AnalyzeRequest{SessionID: "s", Message: "hello", Language: "hindi"})
	if res.Override != BlockedResponse("hindi") {
		t.Errorf("blocked override not localized to hindi")
	}
}

func TestConcurrentSessionsIndependent(t *testing.T) {
	e := NewEngine(DefaultParams(), Deps{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			for j := 0; j < 5; j++ {
				e.Analyze(ctx, AnalyzeRequest{SessionID: id, Message: "send money now"})
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		id := string(rune('a' + i))
		snap, ok := e.Snapshot(id)
		if !ok {
			t.Fatalf("session %s missing", id)
		}
		if snap.Score != 40 {
			t.Errorf("session %s score = %d, want 40", id, snap.Score)
		}
	}
}
