// Package alert fans fraud notifications out over SMS, WhatsApp and voice.
// Channels are dispatched concurrently with per-channel retry; one slow or
// failing channel never holds up the others, and delivery failures are
// recorded rather than propagated.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/securebank/sentinel/internal/logging"
	"github.com/securebank/sentinel/internal/metrics"
	"github.com/securebank/sentinel/internal/retry"
	"github.com/securebank/sentinel/internal/traces"
)

// Channel identifies one notification transport.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelVoice    Channel = "voice"
)

// Sender delivers one message on one transport. ProviderRef is the
// upstream message/call identifier.
type Sender interface {
	SendSMS(ctx context.Context, to, body string) (providerRef string, err error)
	SendWhatsApp(ctx context.Context, to, body string) (providerRef string, err error)
	Call(ctx context.Context, to, body, language string) (providerRef string, err error)
	Simulated() bool
}

// Request is one escalation worth of notifications.
type Request struct {
	SessionID      string
	Score          int
	Language       string
	IncidentNumber string
	CustomerName   string
}

// Outcome records how one channel's delivery went.
type Outcome struct {
	Channel     Channel   `json:"channel"`
	Delivered   bool      `json:"delivered"`
	Attempts    int       `json:"attempts"`
	ProviderRef string    `json:"providerRef,omitempty"`
	Simulated   bool      `json:"simulated"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// AuditRecorder matches the audit trail's append operation.
type AuditRecorder interface {
	Record(ctx context.Context, level, action, detail, sessionRef string)
}

// Config tunes the dispatcher.
type Config struct {
	// Destination is the E.164 number alerts go to. Empty disables
	// dispatch entirely.
	Destination string

	// VoiceThreshold is the minimum risk score that warrants a voice
	// call on top of text channels.
	VoiceThreshold int

	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// Observer is notified of every settled channel outcome, e.g. to stream
// deliveries to dashboards.
type Observer func(sessionID string, o Outcome)

// Dispatcher sends one escalation's alerts across all channels.
type Dispatcher struct {
	cfg      Config
	sender   Sender
	audit    AuditRecorder
	observer Observer

	mu       sync.Mutex
	outcomes []Outcome
}

// NewDispatcher wires a dispatcher to a transport. audit may be nil.
func NewDispatcher(cfg Config, sender Sender, audit AuditRecorder) *Dispatcher {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.VoiceThreshold <= 0 {
		cfg.VoiceThreshold = 61
	}
	return &Dispatcher{cfg: cfg, sender: sender, audit: audit}
}

// SetObserver registers a delivery-outcome callback. Call before the
// dispatcher starts receiving traffic.
func (d *Dispatcher) SetObserver(fn Observer) {
	d.observer = fn
}

// Dispatch sends the alert on every applicable channel concurrently and
// blocks until all channels settle. With no destination configured it
// records a single skip entry and returns immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) []Outcome {
	ctx = logging.WithSessionID(ctx, req.SessionID)
	ctx, span := traces.StartSpan(ctx, "alert.dispatch", traces.SessionID(req.SessionID))
	defer span.End()

	if d.cfg.Destination == "" {
		d.record(ctx, "warn", "alert_skipped",
			"No alert destination configured", req.SessionID)
		return nil
	}

	msgs := RenderMessages(req.Language, req.CustomerName, req.Score, req.IncidentNumber)

	type delivery struct {
		channel Channel
		send    func(context.Context) (string, error)
	}
	deliveries := []delivery{
		{ChannelSMS, func(ctx context.Context) (string, error) {
			return d.sender.SendSMS(ctx, d.cfg.Destination, msgs.SMS)
		}},
		{ChannelWhatsApp, func(ctx context.Context) (string, error) {
			return d.sender.SendWhatsApp(ctx, d.cfg.Destination, msgs.WhatsApp)
		}},
	}
	if req.Score >= d.cfg.VoiceThreshold {
		deliveries = append(deliveries, delivery{ChannelVoice, func(ctx context.Context) (string, error) {
			return d.sender.Call(ctx, d.cfg.Destination, msgs.Voice, req.Language)
		}})
	}

	outcomes := make([]Outcome, len(deliveries))
	var wg sync.WaitGroup
	for i, dl := range deliveries {
		wg.Add(1)
		go func(i int, dl delivery) {
			defer wg.Done()
			outcomes[i] = d.deliver(ctx, dl.channel, req.SessionID, dl.send)
		}(i, dl)
	}
	wg.Wait()

	d.mu.Lock()
	d.outcomes = append(d.outcomes, outcomes...)
	if len(d.outcomes) > 500 {
		d.outcomes = d.outcomes[len(d.outcomes)-500:]
	}
	d.mu.Unlock()

	if d.observer != nil {
		for _, o := range outcomes {
			d.observer(req.SessionID, o)
		}
	}

	return outcomes
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, sessionID string,
	send func(context.Context) (string, error)) Outcome {

	ctx, span := traces.StartSpan(ctx, "alert.deliver", traces.Channel(string(ch)))
	defer span.End()

	var ref string
	attempts, err := retry.Attempts(ctx, d.cfg.RetryAttempts, d.cfg.RetryBaseDelay, func() error {
		var sendErr error
		ref, sendErr = send(ctx)
		return sendErr
	})

	out := Outcome{
		Channel:     ch,
		Delivered:   err == nil,
		Attempts:    attempts,
		ProviderRef: ref,
		Simulated:   d.sender.Simulated(),
		Timestamp:   time.Now(),
	}

	if err != nil {
		out.Error = err.Error()
		metrics.AlertDeliveries.WithLabelValues(string(ch), "failed").Inc()
		logging.L(ctx).Error("alert delivery failed",
			"channel", ch, "attempts", attempts, "error", err)
		d.record(ctx, "error", "alert_delivery_failed",
			string(ch)+": "+err.Error(), sessionID)
		return out
	}

	metrics.AlertDeliveries.WithLabelValues(string(ch), "delivered").Inc()
	logging.L(ctx).Info("alert delivered",
		"channel", ch, "attempts", attempts, "provider_ref", ref, "simulated", out.Simulated)
	d.record(ctx, "warn", "alert_sent", string(ch)+" alert delivered", sessionID)
	return out
}

// Log returns the most recent delivery outcomes, newest last, optionally
// filtered to one channel.
func (d *Dispatcher) Log(channel Channel, limit int) []Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Outcome
	for _, o := range d.outcomes {
		if channel == "" || o.Channel == channel {
			out = append(out, o)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (d *Dispatcher) record(ctx context.Context, level, action, detail, sessionRef string) {
	if d.audit == nil {
		return
	}
	d.audit.Record(ctx, level, action, detail, sessionRef)
}
