package incident

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/securebank/sentinel/internal/circuitbreaker"
	"github.com/securebank/sentinel/internal/logging"
	"github.com/securebank/sentinel/internal/metrics"
	"github.com/securebank/sentinel/internal/retry"
	"github.com/securebank/sentinel/internal/traces"
)

const breakerKey = "servicenow"

// ErrCircuitOpen is returned without touching the network while the
// ServiceNow circuit is open.
var ErrCircuitOpen = errors.New("servicenow circuit open")

// ServiceNow files incidents through the ServiceNow table API. Created
// incidents are mirrored locally so Get and List never round-trip to the
// upstream.
type ServiceNow struct {
	baseURL  string
	username string
	password string

	httpClient *http.Client
	breaker    *circuitbreaker.Breaker

	retryAttempts  int
	retryBaseDelay time.Duration

	records *store
}

// ServiceNowConfig configures the live client.
type ServiceNowConfig struct {
	// Instance is the instance name ("dev12345") or a full base URL.
	Instance string
	Username string
	Password string

	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// NewServiceNow creates a live table-API client.
func NewServiceNow(cfg ServiceNowConfig) *ServiceNow {
	base := cfg.Instance
	if !strings.HasPrefix(base, "http") {
		base = fmt.Sprintf("https://%s.service-now.com", base)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}

	return &ServiceNow{
		baseURL:        strings.TrimRight(base, "/"),
		username:       cfg.Username,
		password:       cfg.Password,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		breaker:        circuitbreaker.New(5, 30*time.Second),
		retryAttempts:  cfg.RetryAttempts,
		retryBaseDelay: cfg.RetryBaseDelay,
		records:        newStore(),
	}
}

type snCreateRequest struct {
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Subcategory      string `json:"subcategory"`
	Urgency          string `json:"urgency"`
	Impact           string `json:"impact"`
	AssignmentGroup  string `json:"assignment_group"`
}

type snCreateResponse struct {
	Result struct {
		SysID  string `json:"sys_id"`
		Number string `json:"number"`
	} `json:"result"`
}

// Create files an incident upstream with retries. Client-side (4xx)
// rejections are not retried; repeated failures trip the circuit so a
// ServiceNow outage cannot stall the escalation path.
func (c *ServiceNow) Create(ctx context.Context, draft Draft) (Incident, error) {
	ctx, span := traces.StartSpan(ctx, "incident.create", traces.SessionID(draft.SessionID))
	defer span.End()

	if !c.breaker.Allow(breakerKey) {
		return Incident{}, ErrCircuitOpen
	}

	body, err := json.Marshal(snCreateRequest{
		ShortDescription: draft.ShortDescription,
		Description:      draft.Description,
		Category:         Category,
		Subcategory:      Subcategory,
		Urgency:          "1",
		Impact:           "2",
		AssignmentGroup:  AssignmentGroup,
	})
	if err != nil {
		return Incident{}, fmt.Errorf("marshal incident: %w", err)
	}

	var created snCreateResponse
	err = retry.Do(ctx, c.retryAttempts, c.retryBaseDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/api/now/table/incident", bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.SetBasicAuth(c.username, c.password)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("servicenow request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			err := fmt.Errorf("servicenow returned %d: %s", resp.StatusCode, msg)
			if resp.StatusCode < 500 {
				return retry.Permanent(err)
			}
			return err
		}

		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return fmt.Errorf("decode servicenow response: %w", err)
		}
		return nil
	})
	if err != nil {
		c.breaker.RecordFailure(breakerKey)
		return Incident{}, err
	}
	c.breaker.RecordSuccess(breakerKey)

	now := time.Now()
	inc := Incident{
		ID:               created.Result.SysID,
		Number:           created.Result.Number,
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
	}
	c.records.add(inc)
	span.SetAttributes(traces.IncidentID(inc.Number))
	metrics.IncidentsCreated.WithLabelValues("live").Inc()
	logging.L(ctx).Info("servicenow incident created",
		"incident", inc.Number,
		"sys_id", inc.ID,
	)
	return inc, nil
}

// Get returns an incident this process filed.
func (c *ServiceNow) Get(_ context.Context, id string) (Incident, error) {
	inc, ok := c.records.get(id)
	if !ok {
		return Incident{}, ErrNotFound
	}
	return inc, nil
}

type snUpdateRequest struct {
	State     string `json:"state,omitempty"`
	WorkNotes string `json:"work_notes,omitempty"`
}

// Update patches an incident upstream and mirrors the change locally.
// Same retry and breaker policy as Create.
func (c *ServiceNow) Update(ctx context.Context, id string, patch Patch) (Incident, error) {
	if _, ok := c.records.get(id); !ok {
		return Incident{}, ErrNotFound
	}
	if !c.breaker.Allow(breakerKey) {
		return Incident{}, ErrCircuitOpen
	}

	body, err := json.Marshal(snUpdateRequest{
		State:     patch.State,
		WorkNotes: patch.WorkNote,
	})
	if err != nil {
		return Incident{}, fmt.Errorf("marshal incident patch: %w", err)
	}

	err = retry.Do(ctx, c.retryAttempts, c.retryBaseDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
			c.baseURL+"/api/now/table/incident/"+id, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.SetBasicAuth(c.username, c.password)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("servicenow request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			err := fmt.Errorf("servicenow returned %d: %s", resp.StatusCode, msg)
			if resp.StatusCode < 500 {
				return retry.Permanent(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		c.breaker.RecordFailure(breakerKey)
		return Incident{}, err
	}
	c.breaker.RecordSuccess(breakerKey)

	inc, _ := c.records.update(id, patch)
	logging.L(ctx).Info("servicenow incident updated",
		"incident", inc.Number,
		"state", inc.State,
	)
	return inc, nil
}

// List returns all incidents this process filed, newest first.
func (c *ServiceNow) List(_ context.Context) ([]Incident, error) {
	return c.records.list(), nil
}
