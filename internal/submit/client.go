// Package submit posts canonical batches to the system of record's update
// endpoints and decodes the response envelope into an update summary or a
// structured rejection.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/stellarhealth/feedload/internal/model"
)

// Config carries the endpoint coordinates and the retry envelope. Each
// submission runs its own backoff schedule, capped by MaxRetryElapsed so a
// run issuing thousands of submissions is never starved by one pathological
// endpoint.
type Config struct {
	BaseURL   string
	APIKey    string
	DataSetID int64

	RequestTimeout  time.Duration
	MaxRetryElapsed time.Duration
}

func (c Config) requestTimeout() time.Duration {
	if c.RequestTimeout > 0 {
		return c.RequestTimeout
	}
	return 5 * time.Minute
}

func (c Config) maxRetryElapsed() time.Duration {
	if c.MaxRetryElapsed > 0 {
		return c.MaxRetryElapsed
	}
	return 15 * time.Minute
}

// RejectionError is an application-level rejection: the endpoint answered
// success=false with a list of error strings. Never retried.
type RejectionError struct {
	Errors []string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("update rejected: %d errors: %v", len(e.Errors), e.Errors)
}

type updateRequest struct {
	JSONData  string `json:"json_data"`
	Commit    bool   `json:"commit"`
	DataSetID int64  `json:"data_set_id"`
	APIKey    string `json:"api_key"`
}

type rosterRequest struct {
	AllMemberNumbers []string `json:"all_member_numbers"`
	Commit           bool     `json:"commit"`
	APIKey           string   `json:"api_key"`
}

type envelope struct {
	Success       bool            `json:"success"`
	Errors        []string        `json:"errors"`
	UpdateSummary json.RawMessage `json:"update_summary"`
}

// Client submits batches over HTTP. A circuit breaker sits in front of the
// endpoint so a run does not keep hammering a host that is down.
type Client struct {
	cfg     Config
	httpc   *http.Client
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewClient builds a Client for one endpoint.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	c := &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.requestTimeout()},
		log:   log.With().Str("component", "submit").Logger(),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "update-endpoint",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			// A rejection is the endpoint working as intended.
			if err == nil {
				return true
			}
			var rej *RejectionError
			return errors.As(err, &rej)
		},
	})
	return c
}

// UpdatePatients submits a patient batch to the patient update endpoint.
// commit=false asks the endpoint to validate without persisting.
func (c *Client) UpdatePatients(ctx context.Context, patients []*model.Patient, commit bool) (*model.PatientUpdateSummary, error) {
	var summary model.PatientUpdateSummary
	if err := c.update(ctx, "patient", patients, commit, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// UpdatePCORPatients submits a patient batch to the PCOR update endpoint,
// which additionally reconciles suspected conditions, adherence statuses
// and PCOR values attached to the records.
func (c *Client) UpdatePCORPatients(ctx context.Context, patients []*model.Patient, commit bool) (*model.PCORUpdateSummary, error) {
	var summary model.PCORUpdateSummary
	if err := c.update(ctx, "pcor_patient", patients, commit, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// UpdateADTEvents submits an ADT event batch.
func (c *Client) UpdateADTEvents(ctx context.Context, events []*model.ADTEvent, commit bool) (*model.ADTUpdateSummary, error) {
	var summary model.ADTUpdateSummary
	if err := c.update(ctx, "adt_event", events, commit, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// UpdateAppointments submits an external-appointment batch.
func (c *Client) UpdateAppointments(ctx context.Context, appts []*model.ExternalAppointment, commit bool) (*model.AppointmentUpdateSummary, error) {
	var summary model.AppointmentUpdateSummary
	if err := c.update(ctx, "external_appointment", appts, commit, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// UpdateRoster submits the full member-number roster for a plan. The
// endpoint diffs it against its own state and orphans the members that are
// gone; an empty roster is refused here rather than sent, because the
// endpoint would read it as "everyone left".
func (c *Client) UpdateRoster(ctx context.Context, memberNumbers []string, commit bool) (*model.RosterUpdateSummary, error) {
	if len(memberNumbers) == 0 {
		return nil, fmt.Errorf("refusing to submit an empty roster")
	}
	body, err := json.Marshal(rosterRequest{
		AllMemberNumbers: memberNumbers,
		Commit:           commit,
		APIKey:           c.cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding roster request: %w", err)
	}
	raw, err := c.post(ctx, c.cfg.BaseURL+"/api/patient/roster_update", body)
	if err != nil {
		return nil, err
	}
	var summary model.RosterUpdateSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("decoding roster update summary: %w", err)
	}
	return &summary, nil
}

func (c *Client) update(ctx context.Context, resource string, batch any, commit bool, summary any) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encoding %s batch: %w", resource, err)
	}
	body, err := json.Marshal(updateRequest{
		JSONData:  string(data),
		Commit:    commit,
		DataSetID: c.cfg.DataSetID,
		APIKey:    c.cfg.APIKey,
	})
	if err != nil {
		return fmt.Errorf("encoding %s update request: %w", resource, err)
	}

	c.log.Info().
		Str("resource", resource).
		Bool("commit", commit).
		Int("bytes", len(body)).
		Msg("submitting batch")

	raw, err := c.post(ctx, c.cfg.BaseURL+"/api/"+resource+"/update", body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, summary); err != nil {
		return fmt.Errorf("decoding %s update summary: %w", resource, err)
	}
	return nil
}

// post runs one POST through the breaker with randomized exponential
// backoff. Only transport failures and rate limiting are retried; an
// application rejection or any other non-2xx status is permanent.
func (c *Client) post(ctx context.Context, url string, body []byte) (json.RawMessage, error) {
	operation := func() (json.RawMessage, error) {
		result, err := c.breaker.Execute(func() (any, error) {
			return c.doPost(ctx, url, body)
		})
		if err != nil {
			return nil, err
		}
		return result.(json.RawMessage), nil
	}
	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(c.cfg.maxRetryElapsed()),
	)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) doPost(ctx context.Context, url string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Connection-level failure, retriable.
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		if after := retryAfter(resp); after > 0 {
			return nil, backoff.RetryAfter(int(after / time.Second))
		}
		return nil, fmt.Errorf("rate limited: %s", resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, backoff.Permanent(fmt.Errorf("update endpoint returned %s", resp.Status))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decoding response envelope: %w", err))
	}
	if !env.Success {
		return nil, backoff.Permanent(&RejectionError{Errors: env.Errors})
	}
	return env.UpdateSummary, nil
}

func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
