package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/securebank/sentinel/internal/circuitbreaker"
	"github.com/securebank/sentinel/internal/retry"
)

// Twilio sends SMS, WhatsApp and voice alerts through the Twilio REST API.
type Twilio struct {
	accountSID     string
	authToken      string
	fromNumber     string
	whatsappNumber string

	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
}

// TwilioConfig configures the live sender.
type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	FromNumber     string
	WhatsAppNumber string

	// BaseURL overrides the Twilio API endpoint in tests.
	BaseURL string
	Timeout time.Duration
}

// NewTwilio creates a live Twilio sender.
func NewTwilio(cfg TwilioConfig) *Twilio {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	whatsapp := cfg.WhatsAppNumber
	if whatsapp == "" {
		whatsapp = cfg.FromNumber
	}
	return &Twilio{
		accountSID:     cfg.AccountSID,
		authToken:      cfg.AuthToken,
		fromNumber:     cfg.FromNumber,
		whatsappNumber: whatsapp,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		breaker:        circuitbreaker.New(5, 30*time.Second),
	}
}

func (t *Twilio) Simulated() bool { return false }

// SendSMS sends a plain SMS.
func (t *Twilio) SendSMS(ctx context.Context, to, body string) (string, error) {
	return t.message(ctx, "twilio_sms", url.Values{
		"To":   {to},
		"From": {t.fromNumber},
		"Body": {body},
	})
}

// SendWhatsApp sends a WhatsApp message through the Twilio sandbox or a
// registered sender number.
func (t *Twilio) SendWhatsApp(ctx context.Context, to, body string) (string, error) {
	return t.message(ctx, "twilio_whatsapp", url.Values{
		"To":   {"whatsapp:" + to},
		"From": {"whatsapp:" + t.whatsappNumber},
		"Body": {body},
	})
}

var voiceByLanguage = map[string]struct{ voice, lang string }{
	"english": {"Polly.Aditi", "en-IN"},
	"hindi":   {"Polly.Aditi", "hi-IN"},
	"marathi": {"Polly.Aditi", "mr-IN"},
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;",
)

// Call places an automated voice call reading the alert text.
func (t *Twilio) Call(ctx context.Context, to, body, language string) (string, error) {
	vc, ok := voiceByLanguage[language]
	if !ok {
		vc = voiceByLanguage["english"]
	}
	twiml := fmt.Sprintf(
		`<Response><Say voice=%q language=%q>%s</Say></Response>`,
		vc.voice, vc.lang, xmlEscaper.Replace(body),
	)

	return t.post(ctx, "twilio_voice", "/Calls.json", url.Values{
		"To":    {to},
		"From":  {t.fromNumber},
		"Twiml": {twiml},
	})
}

func (t *Twilio) message(ctx context.Context, breakerKey string, form url.Values) (string, error) {
	return t.post(ctx, breakerKey, "/Messages.json", form)
}

type twilioResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (t *Twilio) post(ctx context.Context, breakerKey, endpoint string, form url.Values) (string, error) {
	if !t.breaker.Allow(breakerKey) {
		return "", retry.Permanent(fmt.Errorf("%s circuit open", breakerKey))
	}

	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s%s", t.baseURL, t.accountSID, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", retry.Permanent(err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.breaker.RecordFailure(breakerKey)
		return "", fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		t.breaker.RecordFailure(breakerKey)
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("twilio returned %d: %s", resp.StatusCode, msg)
		if resp.StatusCode < 500 {
			return "", retry.Permanent(err)
		}
		return "", err
	}
	t.breaker.RecordSuccess(breakerKey)

	var tr twilioResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode twilio response: %w", err)
	}
	return tr.SID, nil
}

// SimulatedSender logs alert deliveries without any upstream provider.
// Used whenever Twilio credentials are absent so the escalation path is
// exercised end to end in development.
type SimulatedSender struct {
	counter atomic.Int64
}

// NewSimulatedSender creates a sender that always succeeds.
func NewSimulatedSender() *SimulatedSender {
	return &SimulatedSender{}
}

func (s *SimulatedSender) Simulated() bool { return true }

func (s *SimulatedSender) ref(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, s.counter.Add(1))
}

func (s *SimulatedSender) SendSMS(_ context.Context, _, _ string) (string, error) {
	return s.ref("SIM_SMS"), nil
}

func (s *SimulatedSender) SendWhatsApp(_ context.Context, _, _ string) (string, error) {
	return s.ref("SIM_WA"), nil
}

func (s *SimulatedSender) Call(_ context.Context, _, _, _ string) (string, error) {
	return s.ref("SIM_CALL"), nil
}
