package submit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/stellarhealth/feedload/internal/model"
)

func testClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:         baseURL,
		APIKey:          "test-key",
		DataSetID:       42,
		RequestTimeout:  5 * time.Second,
		MaxRetryElapsed: 10 * time.Second,
	}, zerolog.Nop())
}

func TestUpdatePatients(t *testing.T) {
	var got updateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/patient/update" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"update_summary": {"num_valid_patients": 3, "num_new_patients": 1}
		}`))
	}))
	defer srv.Close()

	patients := []*model.Patient{{MemberNumber: "M1", PlanID: 7}}
	summary, err := testClient(srv.URL).UpdatePatients(context.Background(), patients, true)
	if err != nil {
		t.Fatalf("UpdatePatients: %v", err)
	}
	if summary.NumValidPatients != 3 || summary.NumNewPatients != 1 {
		t.Errorf("summary = %+v", summary)
	}

	if !got.Commit || got.DataSetID != 42 || got.APIKey != "test-key" {
		t.Errorf("request envelope = %+v", got)
	}
	var sent []*model.Patient
	if err := json.Unmarshal([]byte(got.JSONData), &sent); err != nil {
		t.Fatalf("json_data is not a patient batch: %v", err)
	}
	if len(sent) != 1 || sent[0].MemberNumber != "M1" {
		t.Errorf("json_data batch = %+v", sent)
	}
}

func TestUpdatePatients_RejectionNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"success": false, "errors": ["plan 7 unknown"]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).UpdatePatients(context.Background(), nil, false)
	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("err = %v, want RejectionError", err)
	}
	if len(rej.Errors) != 1 || rej.Errors[0] != "plan 7 unknown" {
		t.Errorf("rejection errors = %v", rej.Errors)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("endpoint called %d times, rejections must not be retried", n)
	}
}

func TestUpdatePatients_ServerErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).UpdatePatients(context.Background(), nil, false); err == nil {
		t.Fatal("500 response did not error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("endpoint called %d times, want 1", n)
	}
}

func TestUpdatePatients_RateLimitRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"success": true, "update_summary": {"num_valid_patients": 1}}`))
	}))
	defer srv.Close()

	summary, err := testClient(srv.URL).UpdatePatients(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("UpdatePatients: %v", err)
	}
	if summary.NumValidPatients != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("endpoint called %d times, want 2", n)
	}
}

func TestUpdateADTEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/adt_event/update" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"success": true, "update_summary": {"num_valid_events": 2, "num_new_events": 2}}`))
	}))
	defer srv.Close()

	summary, err := testClient(srv.URL).UpdateADTEvents(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("UpdateADTEvents: %v", err)
	}
	if summary.NumValidEvents != 2 || summary.NumNewEvents != 2 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestUpdatePCORPatients(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pcor_patient/update" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"success": true,
			"update_summary": {
				"num_valid_patients": 2,
				"num_created_suspected_medical_conditions": 1
			}
		}`))
	}))
	defer srv.Close()

	summary, err := testClient(srv.URL).UpdatePCORPatients(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("UpdatePCORPatients: %v", err)
	}
	if summary.NumValidPatients != 2 || summary.NumCreatedSuspectedMedicalConditions != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestUpdateRoster(t *testing.T) {
	var got rosterRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/patient/roster_update" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{
			"success": true,
			"update_summary": {"orphaned_member_numbers": ["M2"], "orphaned_count": 1}
		}`))
	}))
	defer srv.Close()

	summary, err := testClient(srv.URL).UpdateRoster(context.Background(), []string{"M1", "M3"}, true)
	if err != nil {
		t.Fatalf("UpdateRoster: %v", err)
	}
	if summary.OrphanedCount != 1 || len(summary.OrphanedMemberNumbers) != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(got.AllMemberNumbers) != 2 || !got.Commit || got.APIKey != "test-key" {
		t.Errorf("request = %+v", got)
	}
}

func TestUpdateRoster_RefusesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty roster reached the endpoint")
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).UpdateRoster(context.Background(), nil, true); err == nil {
		t.Fatal("empty roster accepted")
	}
}

func TestUpdatePatients_BadEnvelopeNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`<html>very much not json</html>`))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).UpdatePatients(context.Background(), nil, false); err == nil {
		t.Fatal("undecodable envelope did not error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("endpoint called %d times, want 1", n)
	}
}
