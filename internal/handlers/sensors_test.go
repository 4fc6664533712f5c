package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"air_monitor/internal/models"
	"air_monitor/internal/service"
)

func TestSensorsHandler_GetState(t *testing.T) {
	mon := &mockMonitoring{state: models.DashboardState{
		Temperature: models.Float(72),
		Statuses:    models.Statuses{models.KindTemperature: models.StatusGood},
		Stale:       true,
	}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, Monitoring: mon})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensors/state", nil)
	req.Header.Set("Authorization", "Bearer valid")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["temperature"] != 72.0 || out["stale"] != true {
		t.Fatalf("unexpected body: %v", out)
	}
	if out["humidity"] != nil || out["notification"] != nil {
		t.Fatalf("absent values should be null: %v", out)
	}
	statuses, _ := out["statuses"].(map[string]any)
	if statuses["Temperature"] != "good" {
		t.Fatalf("unexpected statuses: %v", out["statuses"])
	}
}

func TestSensorsHandler_GetStateError(t *testing.T) {
	mon := &mockMonitoring{err: errors.New("boom")}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, Monitoring: mon})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensors/state", nil)
	req.Header.Set("Authorization", "Bearer valid")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestSensorsHandler_RequiresAuth(t *testing.T) {
	r := newTestRouter(&service.Service{Authorization: &mockAuth{}, Monitoring: &mockMonitoring{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sensors/state", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestSensorsHandler_Dismiss(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		svcErr error
		wantID string
		want   int
	}{
		{name: "no body dismisses pending", body: "", want: http.StatusOK},
		{name: "matching id", body: `{"id":"n1"}`, wantID: "n1", want: http.StatusOK},
		{name: "replaced notification", body: `{"id":"old"}`, svcErr: service.ErrNotificationMismatch, wantID: "old", want: http.StatusConflict},
		{name: "malformed body", body: `{"id":`, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mon := &mockMonitoring{dismissErr: tc.svcErr}
			r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, Monitoring: mon})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sensors/notification/dismiss", bytes.NewBufferString(tc.body))
			req.Header.Set("Authorization", "Bearer valid")
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Fatalf("status=%d; want %d (body=%s)", w.Code, tc.want, w.Body.String())
			}
			if tc.want != http.StatusBadRequest && mon.lastDismissID != tc.wantID {
				t.Fatalf("Dismiss got id %q; want %q", mon.lastDismissID, tc.wantID)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(&service.Service{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("airmon_snapshots_total")) {
		t.Fatalf("metrics status=%d", w.Code)
	}
}
