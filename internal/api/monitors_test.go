package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mirrorhua/watchdog/internal/storage"
)

func TestCreateMonitorEndpoint(t *testing.T) {
	srv, store := testServer(t)

	// Inactive on purpose so the scheduler does not start probing the
	// placeholder URL.
	body := `{"name":"api","type":"http","active":false,"interval":60,"settings":{"url":"https://example.com"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/monitors", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created storage.Monitor
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("expected assigned ID")
	}
	if _, err := store.GetMonitor(context.Background(), created.ID); err != nil {
		t.Fatal("monitor not persisted")
	}
}

func TestCreateMonitorValidation(t *testing.T) {
	srv, _ := testServer(t)
	cases := []string{
		`{"type":"http","interval":60}`,                    // no name
		`{"name":"x","type":"carrier-pigeon","interval":60}`, // bad type
		`{"name":"x","type":"http","interval":0}`,          // bad interval
		`{"name":"x","type":"http","interval":60,"retries":2,"retry_interval":0}`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/monitors", strings.NewReader(body))
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestPauseResumeEndpoints(t *testing.T) {
	srv, store := testServer(t)
	// Resume starts a real probe task, so point the monitor at a local
	// server.
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer target.Close()

	m := &storage.Monitor{
		Name:     "api",
		Type:     storage.TypeHTTP,
		Active:   true,
		Interval: 60,
		Settings: json.RawMessage(`{"url":"` + target.URL + `"}`),
	}
	if err := store.CreateMonitor(context.Background(), m); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/monitors/"+m.ID+"/pause", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("pause: expected 200, got %d", w.Code)
	}
	got, _ := store.GetMonitor(context.Background(), m.ID)
	if got.Active {
		t.Fatal("monitor still active after pause")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/monitors/"+m.ID+"/resume", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("resume: expected 200, got %d", w.Code)
	}
	got, _ = store.GetMonitor(context.Background(), m.ID)
	if !got.Active {
		t.Fatal("monitor inactive after resume")
	}
}

func TestGetMonitorNotFound(t *testing.T) {
	srv, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/monitors/missing", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
