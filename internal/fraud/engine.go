package fraud

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/securebank/sentinel/internal/logging"
	"github.com/securebank/sentinel/internal/metrics"
	"github.com/securebank/sentinel/internal/traces"
)

// sensitiveIntents are the conversation intents that trigger step-up
// verification at medium risk. Low-stakes intents (balance checks, branch
// lookup) never interrupt the conversation.
var sensitiveIntents = map[string]bool{
	"transfer":   true,
	"otp":        true,
	"card_block": true,
}

// IsSensitiveIntent reports whether the intent can move money or
// credentials.
func IsSensitiveIntent(intent string) bool {
	return sensitiveIntents[intent]
}

// Ticketer files an incident with the case-management system.
type Ticketer interface {
	Create(ctx context.Context, req TicketRequest) (TicketResult, error)
}

// TicketRequest carries everything the ticketing backend needs to open a
// fraud case.
type TicketRequest struct {
	SessionID string
	Score     int
	Level     Level
	Narrative string
	Events    []RiskEvent
}

// TicketResult identifies the created incident.
type TicketResult struct {
	ID        string
	Number    string
	SLADue    time.Time
	Simulated bool
}

// Alerter fans a fraud alert out to the configured notification channels.
type Alerter interface {
	Dispatch(ctx context.Context, req AlertRequest)
}

// AlertRequest describes one escalation worth of notifications.
// CustomerName is the first name the caller claimed in conversation, empty
// when none was given.
type AlertRequest struct {
	SessionID      string
	Score          int
	Level          Level
	Language       string
	IncidentNumber string
	CustomerName   string
}

// AuditRecorder appends one entry to the tamper-evident audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, level, action, detail, sessionRef string)
}

// IntentClassifier maps a raw message onto a banking intent and language.
type IntentClassifier interface {
	Classify(text string) (intent, language string)
}

// Publisher pushes live session events to connected dashboards.
type Publisher interface {
	PublishRiskUpdate(sessionID string, snapshot Snapshot)
	PublishEscalation(sessionID string, score int)
	PublishIncidentCreated(sessionID string, score int, incidentNumber string, simulated bool)
}

// session is the per-conversation risk state. All fields are guarded by mu;
// the engine's own lock only protects the session map.
type session struct {
	mu sync.Mutex

	id        string
	score     int
	state     ControlState
	events    []RiskEvent
	createdAt time.Time
	lastSeen  time.Time

	otpAttempts         int
	transactionRequests int
	emotionStreak       int
	namesClaimed        map[string]bool
	customerName        string

	incidentCreated bool
	incidentNumber  string
}

func newSession(id string) *session {
	now := time.Now()
	return &session{
		id:           id,
		state:        StateMonitoring,
		createdAt:    now,
		lastSeen:     now,
		namesClaimed: make(map[string]bool),
	}
}

// Snapshot is a point-in-time copy of a session's risk state, safe to hand
// to callers and dashboards.
type Snapshot struct {
	SessionID           string       `json:"sessionId"`
	Score               int          `json:"score"`
	Level               Level        `json:"level"`
	State               ControlState `json:"state"`
	Events              []RiskEvent  `json:"events"`
	OTPAttempts         int          `json:"otpAttempts"`
	TransactionRequests int          `json:"transactionRequests"`
	IncidentNumber      string       `json:"incidentNumber,omitempty"`
	CreatedAt           time.Time    `json:"createdAt"`
	LastSeen            time.Time    `json:"lastSeen"`
}

// AnalyzeRequest is one inbound conversation turn.
type AnalyzeRequest struct {
	SessionID string
	Message   string
	Emotion   Emotion
	Language  string
}

// Analysis is the risk verdict for a single message. When Override is
// non-empty the assistant's reply must be replaced with it.
type Analysis struct {
	SessionID string       `json:"sessionId"`
	Score     int          `json:"score"`
	Level     Level        `json:"level"`
	State     ControlState `json:"state"`
	NewEvents []RiskEvent  `json:"newEvents"`
	Intent    string       `json:"intent,omitempty"`
	Language  string       `json:"language"`
	Override  string       `json:"override,omitempty"`
	Incident  string       `json:"incident,omitempty"`
}

// Deps are the engine's outbound collaborators. Any of them may be nil, in
// which case that side effect is skipped.
type Deps struct {
	Tickets Ticketer
	Alerts  Alerter
	Audit   AuditRecorder
	Intents IntentClassifier
	Publish Publisher

	// TicketTimeout bounds the synchronous incident-creation call made on
	// the escalation path. Zero means 10s.
	TicketTimeout time.Duration
}

// Engine owns all session risk state and drives the escalation state
// machine. Safe for concurrent use; turns within one session are
// serialized, turns across sessions are not.
type Engine struct {
	params    Params
	extractor *Extractor
	deps      Deps

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewEngine creates a risk engine with the given scoring params.
func NewEngine(params Params, deps Deps) *Engine {
	if deps.TicketTimeout <= 0 {
		deps.TicketTimeout = 10 * time.Second
	}
	return &Engine{
		params:    params,
		extractor: NewExtractor(params),
		deps:      deps,
		sessions:  make(map[string]*session),
	}
}

func (e *Engine) getSession(id string) *session {
	e.mu.RLock()
	s, ok := e.sessions[id]
	e.mu.RUnlock()
	if ok {
		return s
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok = e.sessions[id]; ok {
		return s
	}
	s = newSession(id)
	e.sessions[id] = s
	return s
}

// Analyze scores one conversation turn and applies the escalation state
// machine. A blocked session short-circuits: no extraction runs and the
// blocked reply is returned until the session is reset.
func (e *Engine) Analyze(ctx context.Context, req AnalyzeRequest) Analysis {
	ctx = logging.WithSessionID(ctx, req.SessionID)
	ctx, span := traces.StartSpan(ctx, "fraud.analyze", traces.SessionID(req.SessionID))
	defer span.End()

	s := e.getSession(req.SessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = time.Now()

	intent := ""
	language := req.Language
	if e.deps.Intents != nil {
		detectedIntent, detectedLang := e.deps.Intents.Classify(req.Message)
		intent = detectedIntent
		if language == "" {
			language = detectedLang
		}
	}
	if language == "" {
		language = "english"
	}

	if s.state == StateEscalatedBlocked {
		e.record(ctx, "warn", "blocked_message_rejected",
			"Message received on escalated session", req.SessionID)
		return Analysis{
			SessionID: req.SessionID,
			Score:     s.score,
			Level:     e.params.LevelFor(s.score),
			State:     s.state,
			Language:  language,
			Override:  BlockedResponse(language),
			Incident:  s.incidentNumber,
		}
	}

	events := e.extractor.Extract(s, req.Message, req.Emotion)
	for _, ev := range events {
		s.score += ev.ScoreDelta
		metrics.RiskEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	}
	if s.score > MaxScore {
		s.score = MaxScore
	}
	s.events = append(s.events, events...)

	level := e.params.LevelFor(s.score)
	metrics.MessagesAnalyzed.WithLabelValues(string(level)).Inc()
	span.SetAttributes(traces.RiskScore(s.score), traces.RiskLevel(string(level)))

	if len(events) > 0 {
		auditLevel := "info"
		if level == LevelHigh {
			auditLevel = "error"
		} else if level == LevelMedium {
			auditLevel = "warn"
		}
		e.record(ctx, auditLevel, "risk_score_updated",
			fmt.Sprintf("Score %d (%s), %d new events", s.score, level, len(events)),
			req.SessionID)
	}

	result := Analysis{
		SessionID: req.SessionID,
		Score:     s.score,
		Level:     level,
		State:     s.state,
		NewEvents: events,
		Intent:    intent,
		Language:  language,
	}

	switch {
	case level == LevelHigh:
		e.escalate(ctx, s, level, language)
		result.State = s.state
		result.Incident = s.incidentNumber
		result.Override = BlockedResponse(language)

	case level == LevelMedium && IsSensitiveIntent(intent):
		if s.state != StateStepUpRequired {
			s.state = StateStepUpRequired
			e.record(ctx, "warn", "step_up_required",
				fmt.Sprintf("Medium risk with sensitive intent %q", intent), req.SessionID)
		}
		result.State = s.state
		result.Override = StepUpResponse(language)

	case s.state == StateStepUpRequired && IsSensitiveIntent(intent):
		// Verification pending: sensitive operations stay gated even if
		// the score has not moved.
		result.Override = StepUpResponse(language)
	}

	if e.deps.Publish != nil {
		e.deps.Publish.PublishRiskUpdate(req.SessionID, snapshotLocked(s, e.params))
	}

	logging.L(ctx).Info("message analyzed",
		"score", s.score,
		"level", level,
		"state", s.state,
		"new_events", len(events),
		"intent", intent,
	)

	return result
}

// escalate moves the session to ESCALATED_BLOCKED and, exactly once per
// session, opens an incident and fans out alerts. Ticketing failures are
// audited but never delay or undo the block; alert delivery happens off the
// reply path entirely.
func (e *Engine) escalate(ctx context.Context, s *session, level Level, language string) {
	if s.state != StateEscalatedBlocked {
		s.state = StateEscalatedBlocked
		metrics.EscalationsTotal.Inc()
		e.record(ctx, "critical", "session_escalated",
			fmt.Sprintf("Score %d reached high risk, session blocked", s.score), s.id)
		if e.deps.Publish != nil {
			e.deps.Publish.PublishEscalation(s.id, s.score)
		}
	}

	if s.incidentCreated {
		return
	}
	s.incidentCreated = true

	if e.deps.Tickets != nil {
		tctx, cancel := context.WithTimeout(ctx, e.deps.TicketTimeout)
		defer cancel()

		ticket, err := e.deps.Tickets.Create(tctx, TicketRequest{
			SessionID: s.id,
			Score:     s.score,
			Level:     level,
			Narrative: buildNarrative(s),
			Events:    s.events,
		})
		if err != nil {
			logging.L(ctx).Error("incident creation failed", "error", err)
			e.record(ctx, "error", "incident_create_failed", err.Error(), s.id)
		} else {
			s.incidentNumber = ticket.Number
			e.record(ctx, "critical", "incident_created",
				fmt.Sprintf("Incident %s filed (simulated=%t)", ticket.Number, ticket.Simulated), s.id)
			if e.deps.Publish != nil {
				e.deps.Publish.PublishIncidentCreated(s.id, s.score, ticket.Number, ticket.Simulated)
			}
		}
	}

	if e.deps.Alerts != nil {
		req := AlertRequest{
			SessionID:      s.id,
			Score:          s.score,
			Level:          level,
			Language:       language,
			IncidentNumber: s.incidentNumber,
			CustomerName:   s.customerName,
		}
		// Detach from the request context so a client disconnect cannot
		// cancel in-flight notifications.
		go e.deps.Alerts.Dispatch(context.WithoutCancel(ctx), req)
	}
}

// buildNarrative renders the session's event log into the prose summary a
// fraud investigator reads first. Caller holds the session lock.
func buildNarrative(s *session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Conversational fraud controls escalated session %s at score %d.\n", s.id, s.score)
	fmt.Fprintf(&b, "OTP attempts: %d, transaction requests: %d.\n", s.otpAttempts, s.transactionRequests)
	b.WriteString("Detected signals:\n")
	for _, ev := range s.events {
		fmt.Fprintf(&b, "- [%s] %s (%s, +%d)\n",
			ev.Timestamp.Format(time.RFC3339), ev.Kind, ev.Detail, ev.ScoreDelta)
	}
	return b.String()
}

// ResetSession clears a session's risk state after out-of-band
// verification, returning it to MONITORING with a zero score. Reports
// whether the session existed.
func (e *Engine) ResetSession(ctx context.Context, id string) bool {
	e.mu.RLock()
	s, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return false
	}

	s.mu.Lock()
	s.score = 0
	s.state = StateMonitoring
	s.events = nil
	s.otpAttempts = 0
	s.transactionRequests = 0
	s.emotionStreak = 0
	s.namesClaimed = make(map[string]bool)
	s.customerName = ""
	s.incidentCreated = false
	s.incidentNumber = ""
	s.mu.Unlock()

	e.record(logging.WithSessionID(ctx, id), "info", "session_reset",
		"Risk state cleared after verification", id)
	return true
}

// Snapshot returns a copy of the session's current risk state.
func (e *Engine) Snapshot(id string) (Snapshot, bool) {
	e.mu.RLock()
	s, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotLocked(s, e.params), true
}

func snapshotLocked(s *session, params Params) Snapshot {
	events := make([]RiskEvent, len(s.events))
	copy(events, s.events)
	return Snapshot{
		SessionID:           s.id,
		Score:               s.score,
		Level:               params.LevelFor(s.score),
		State:               s.state,
		Events:              events,
		OTPAttempts:         s.otpAttempts,
		TransactionRequests: s.transactionRequests,
		IncidentNumber:      s.incidentNumber,
		CreatedAt:           s.createdAt,
		LastSeen:            s.lastSeen,
	}
}

func (e *Engine) record(ctx context.Context, level, action, detail, sessionRef string) {
	if e.deps.Audit == nil {
		return
	}
	e.deps.Audit.Record(ctx, level, action, detail, sessionRef)
}
