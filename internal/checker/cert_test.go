package checker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mirrorhua/watchdog/internal/storage"
)

func certMonitor(t *testing.T, settings any) *storage.Monitor {
	t.Helper()
	raw, err := json.Marshal(settings)
	if err != nil {
		t.Fatal(err)
	}
	return &storage.Monitor{
		ID:       "m1",
		Name:     "test",
		Type:     storage.TypeCert,
		Interval: 60,
		Timeout:  5,
		Settings: raw,
	}
}

func TestCertCheckerUp(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := &CertChecker{}
	m := certMonitor(t, map[string]any{"url": srv.URL, "ignoreTls": true})

	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusUp {
		t.Fatalf("expected up, got %d: %s", res.Status, res.Message)
	}
	if !strings.Contains(res.Message, "证书有效") {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if res.Details == nil || res.Details["not_after"] == "" {
		t.Fatal("expected certificate details")
	}
}

func TestCertCheckerFollowsRedirects(t *testing.T) {
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer plain.Close()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, plain.URL, http.StatusFound)
	}))
	defer srv.Close()

	c := &CertChecker{}

	// Following the chain lands on a plain http host, which has no
	// certificate to judge.
	m := certMonitor(t, map[string]any{"url": srv.URL, "ignoreTls": true})
	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusDown || !strings.Contains(res.Message, "重定向到非 https 地址") {
		t.Fatalf("expected down on plain-http redirect target, got %d %q", res.Status, res.Message)
	}

	// maxRedirects 0 stays on the first host and judges its certificate.
	zero := 0
	m = certMonitor(t, storage.CertSettings{URL: srv.URL, IgnoreTLS: true, MaxRedirects: &zero})
	res, err = c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusUp {
		t.Fatalf("redirect should not be followed, got %s", res.Message)
	}
}

func TestCertCheckerRejectsPlainURL(t *testing.T) {
	c := &CertChecker{}
	m := certMonitor(t, map[string]any{"url": "http://example.com"})

	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusDown || !strings.HasPrefix(res.Message, "配置无效: ") {
		t.Fatalf("expected config error, got %d %q", res.Status, res.Message)
	}
}
