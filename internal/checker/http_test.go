package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mirrorhua/watchdog/internal/storage"
)

func httpMonitor(t *testing.T, settings any) *storage.Monitor {
	t.Helper()
	raw, err := json.Marshal(settings)
	if err != nil {
		t.Fatal(err)
	}
	return &storage.Monitor{
		ID:       "m1",
		Name:     "test",
		Type:     storage.TypeHTTP,
		Interval: 60,
		Timeout:  5,
		Settings: raw,
	}
}

func TestHTTPCheckerUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := &HTTPChecker{CertExpiryDays: 14}
	m := httpMonitor(t, map[string]any{"url": srv.URL})

	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusUp {
		t.Fatalf("expected up, got %d: %s", res.Status, res.Message)
	}
	if res.Message != "HTTP 200" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if res.Ping == nil {
		t.Fatal("expected ping measurement")
	}
}

func TestHTTPCheckerStatusOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &HTTPChecker{}
	m := httpMonitor(t, map[string]any{"url": srv.URL})

	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusDown {
		t.Fatal("expected down for 500")
	}
	if !strings.Contains(res.Message, "状态码 500") {
		t.Fatalf("unexpected message: %q", res.Message)
	}
}

func TestHTTPCheckerCustomRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := &HTTPChecker{}
	m := httpMonitor(t, map[string]any{"url": srv.URL, "statusCodes": "400-499"})

	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusUp {
		t.Fatalf("404 should be accepted by 400-499, got %s", res.Message)
	}
}

func TestHTTPCheckerMethodAndBody(t *testing.T) {
	var gotMethod, gotBody, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		gotHeader = r.Header.Get("X-Token")
	}))
	defer srv.Close()

	c := &HTTPChecker{}
	m := httpMonitor(t, map[string]any{
		"url":            srv.URL,
		"httpMethod":     "POST",
		"requestBody":    `{"ping":1}`,
		"requestHeaders": map[string]string{"X-Token": "abc"},
	})

	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusUp {
		t.Fatalf("expected up, got %s", res.Message)
	}
	if gotMethod != "POST" || gotBody != `{"ping":1}` || gotHeader != "abc" {
		t.Fatalf("request not built from settings: %s %q %q", gotMethod, gotBody, gotHeader)
	}
}

func TestHTTPCheckerRedirectsDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	c := &HTTPChecker{}
	zero := 0
	m := httpMonitor(t, storage.HTTPSettings{URL: srv.URL, StatusCodes: "302", MaxRedirects: &zero})

	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusUp {
		t.Fatalf("redirect should not be followed, got %s", res.Message)
	}
}

func TestHTTPCheckerConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := &HTTPChecker{}
	m := httpMonitor(t, map[string]any{"url": url})

	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusDown {
		t.Fatal("expected down for refused connection")
	}
	if !strings.Contains(res.Message, "CONNECTION_REFUSED") {
		t.Fatalf("unexpected message: %q", res.Message)
	}
}

func TestHTTPCheckerInvalidConfig(t *testing.T) {
	c := &HTTPChecker{}
	cases := []struct {
		name     string
		settings map[string]any
	}{
		{"missing url", map[string]any{}},
		{"bad method", map[string]any{"url": "http://example.com", "httpMethod": "TRACE"}},
		{"connect timeout range", map[string]any{"url": "http://example.com", "connectTimeout": 301}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := c.Check(context.Background(), httpMonitor(t, tc.settings))
			if err != nil {
				t.Fatal(err)
			}
			if res.Status != storage.StatusDown || !strings.HasPrefix(res.Message, "配置无效: ") {
				t.Fatalf("expected config error, got %d %q", res.Status, res.Message)
			}
		})
	}
}

func TestAcceptStatus(t *testing.T) {
	cases := []struct {
		code    int
		spec    string
		want    bool
		wantErr bool
	}{
		{200, "", true, false},
		{299, "", true, false},
		{300, "", false, false},
		{404, "404", true, false},
		{404, "200", false, false},
		{250, "200-299", true, false},
		{300, "200-299", false, false},
		{200, "299-200", false, true},
		{200, "abc", false, true},
	}
	for _, tc := range cases {
		ok, bad := acceptStatus(tc.code, tc.spec)
		if tc.wantErr {
			if bad == nil {
				t.Errorf("acceptStatus(%d, %q): expected config error", tc.code, tc.spec)
			}
			continue
		}
		if bad != nil {
			t.Errorf("acceptStatus(%d, %q): unexpected error %q", tc.code, tc.spec, bad.Message)
			continue
		}
		if ok != tc.want {
			t.Errorf("acceptStatus(%d, %q) = %v, want %v", tc.code, tc.spec, ok, tc.want)
		}
	}
}

func TestKeywordChecker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "service is healthy and running")
	}))
	defer srv.Close()

	c := &KeywordChecker{}

	m := httpMonitor(t, map[string]any{"url": srv.URL, "keyword": "offline, healthy"})
	m.Type = storage.TypeKeyword
	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusUp {
		t.Fatalf("expected up, got %s", res.Message)
	}
	if res.Message != "关键字命中: healthy" {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	m = httpMonitor(t, map[string]any{"url": srv.URL, "keyword": "maintenance"})
	m.Type = storage.TypeKeyword
	res, err = c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusDown {
		t.Fatal("expected down when keyword absent")
	}
	if !strings.Contains(res.Message, "未找到任何关键字") {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	m = httpMonitor(t, map[string]any{"url": srv.URL})
	m.Type = storage.TypeKeyword
	res, _ = c.Check(context.Background(), m)
	if !strings.HasPrefix(res.Message, "配置无效: ") {
		t.Fatalf("expected config error without keyword, got %q", res.Message)
	}
}

func TestSplitKeywords(t *testing.T) {
	got := splitKeywords(" a, b ,, c ")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if splitKeywords("  ,") != nil {
		t.Fatal("expected nil for blank input")
	}
}
