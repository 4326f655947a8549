package server

import (
	"context"
	"fmt"

	"github.com/securebank/sentinel/internal/alert"
	"github.com/securebank/sentinel/internal/fraud"
	"github.com/securebank/sentinel/internal/incident"
	"github.com/securebank/sentinel/internal/realtime"
)

// ticketerAdapter bridges the risk engine's ticketing port to the incident
// client.
type ticketerAdapter struct {
	incidents incident.Client
}

var _ fraud.Ticketer = (*ticketerAdapter)(nil)

func (a *ticketerAdapter) Create(ctx context.Context, req fraud.TicketRequest) (fraud.TicketResult, error) {
	inc, err := a.incidents.Create(ctx, incident.Draft{
		SessionID:        req.SessionID,
		ShortDescription: fmt.Sprintf("Fraud risk detected during banking session (score %d/100)", req.Score),
		Description:      req.Narrative,
		RiskScore:        req.Score,
		RiskLevel:        string(req.Level),
	})
	if err != nil {
		return fraud.TicketResult{}, err
	}
	return fraud.TicketResult{
		ID:        inc.ID,
		Number:    inc.Number,
		SLADue:    inc.SLADue,
		Simulated: inc.Simulated,
	}, nil
}

// alerterAdapter bridges the risk engine's alerting port to the dispatcher.
type alerterAdapter struct {
	dispatcher *alert.Dispatcher
}

var _ fraud.Alerter = (*alerterAdapter)(nil)

func (a *alerterAdapter) Dispatch(ctx context.Context, req fraud.AlertRequest) {
	a.dispatcher.Dispatch(ctx, alert.Request{
		SessionID:      req.SessionID,
		Score:          req.Score,
		Language:       req.Language,
		IncidentNumber: req.IncidentNumber,
		CustomerName:   req.CustomerName,
	})
}

// hubPublisher pushes engine events onto the dashboard stream.
type hubPublisher struct {
	hub *realtime.Hub
}

var _ fraud.Publisher = (*hubPublisher)(nil)

func (p *hubPublisher) PublishRiskUpdate(sessionID string, snapshot fraud.Snapshot) {
	p.hub.BroadcastRiskUpdate(sessionID, snapshot.Score, snapshot)
}

func (p *hubPublisher) PublishEscalation(sessionID string, score int) {
	p.hub.BroadcastEscalation(sessionID, score, map[string]any{
		"state": string(fraud.StateEscalatedBlocked),
	})
}

func (p *hubPublisher) PublishIncidentCreated(sessionID string, score int, incidentNumber string, simulated bool) {
	p.hub.BroadcastIncidentCreated(sessionID, score, map[string]any{
		"incidentNumber": incidentNumber,
		"simulated":      simulated,
	})
}
