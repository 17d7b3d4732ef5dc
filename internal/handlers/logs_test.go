package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"grid_supervisor/internal/models"
	"grid_supervisor/internal/service"
)

func TestLogsHandler_ListAndValidation(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	events := []models.GridEvent{
		{EventID: "e1", OccurredAt: now, Kind: models.EventSequence, Message: "[SEQ] Closing main breaker..."},
		{EventID: "e2", OccurredAt: now.Add(time.Second), Kind: models.EventTrip, Message: "[TRIP] RoCoF"},
	}
	logs := &mockEventLog{resp: events}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 99}, EventLog: logs})

	if w := doRequest(r, http.MethodGet, "/api/v1/logs?from=notatime", "valid", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'from', got %d", w.Code)
	}

	q := "/api/v1/logs?from=" + now.Format(time.RFC3339) + "&to=" + now.Add(2*time.Second).Format(time.RFC3339) + "&kind=trip"
	w := doRequest(r, http.MethodGet, q, "valid", "")
	if w.Code != http.StatusOK {
		t.Fatalf("logs status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int                `json:"count"`
		Events []models.GridEvent `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if logs.lastKind != "trip" {
		t.Fatalf("kind should be passed through for service normalization, got %q", logs.lastKind)
	}
	if !logs.lastFrom.Equal(now) {
		t.Fatalf("from = %v", logs.lastFrom)
	}
}

func TestLogsHandler_DateOnlyToCoversDay(t *testing.T) {
	logs := &mockEventLog{}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: logs})

	w := doRequest(r, http.MethodGet, "/api/v1/logs?to=2025-08-31", "valid", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	want := time.Date(2025, 8, 31, 23, 59, 59, 999999999, time.UTC)
	if !logs.lastTo.Equal(want) {
		t.Fatalf("to = %v, want %v", logs.lastTo, want)
	}
}

func TestLogsHandler_ServiceErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrInvalidTimeRange, http.StatusBadRequest},
		{fmt.Errorf("%w: %q", service.ErrUnknownEventKind, "START"), http.StatusBadRequest},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		logs := &mockEventLog{err: tc.err}
		r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: logs})
		if w := doRequest(r, http.MethodGet, "/api/v1/logs", "valid", ""); w.Code != tc.want {
			t.Fatalf("%v: status=%d want %d", tc.err, w.Code, tc.want)
		}
	}
}

func TestTelemetryHandler(t *testing.T) {
	tel := &mockTelemetry{resp: []models.TelemetrySample{
		{Status: models.StatusStable, Online: 7},
	}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, Telemetry: tel})

	w := doRequest(r, http.MethodGet, "/api/v1/telemetry?from=2025-01-01&limit=50", "valid", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count   int                      `json:"count"`
		Samples []models.TelemetrySample `json:"samples"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 1 || out.Samples[0].Online != 7 {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}
	if tel.last.Limit != 50 || !tel.last.From.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("filter = %+v", tel.last)
	}

	for _, bad := range []string{"limit=0", "limit=x", "to=yesterday"} {
		if w := doRequest(r, http.MethodGet, "/api/v1/telemetry?"+bad, "valid", ""); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", bad, w.Code)
		}
	}
	if tel.called != 1 {
		t.Fatalf("service called %d times", tel.called)
	}
}
