package notifier

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

func TestSignDingTalk(t *testing.T) {
	const secret = "s"
	const ts = int64(1700000000000)

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d\n%s", ts, secret)
	wantSign := url.QueryEscape(base64.StdEncoding.EncodeToString(mac.Sum(nil)))

	got := signDingTalk(secret, ts)
	want := fmt.Sprintf("timestamp=%d&sign=%s", ts, wantSign)
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDingTalkSenderSigned(t *testing.T) {
	var gotQuery url.Values
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"errcode":0,"errmsg":"ok"}`)
	}))
	defer srv.Close()

	settings, _ := json.Marshal(DingTalkSettings{
		WebhookURL: srv.URL + "/robot/send?access_token=tk",
		Secret:     "s3cr3t",
	})
	ch := &storage.NotificationChannel{Type: storage.ChannelDingTalk, Settings: settings}
	data := &NotificationData{
		MonitorName: "api",
		Status:      storage.StatusDown,
		Time:        time.Now(),
		Message:     "连接超时 (TIMEOUT)",
	}

	s := &DingTalkSender{}
	if err := s.Send(context.Background(), ch, data); err != nil {
		t.Fatal(err)
	}

	if gotQuery.Get("access_token") != "tk" {
		t.Fatal("original query lost")
	}
	if gotQuery.Get("timestamp") == "" || gotQuery.Get("sign") == "" {
		t.Fatalf("missing signature params: %v", gotQuery)
	}
	if gotBody["msgtype"] != "markdown" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	md, _ := gotBody["markdown"].(map[string]any)
	text, _ := md["text"].(string)
	if !strings.Contains(text, "连接超时") {
		t.Fatalf("message missing from markdown: %q", text)
	}
}

func TestDingTalkSenderErrcodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errcode":310000,"errmsg":"sign not match"}`)
	}))
	defer srv.Close()

	settings, _ := json.Marshal(DingTalkSettings{WebhookURL: srv.URL + "?access_token=tk"})
	ch := &storage.NotificationChannel{Type: storage.ChannelDingTalk, Settings: settings}
	data := &NotificationData{MonitorName: "api", Status: storage.StatusDown, Time: time.Now()}

	s := &DingTalkSender{}
	err := s.Send(context.Background(), ch, data)
	if err == nil {
		t.Fatal("expected error for non-zero errcode")
	}
	if !strings.Contains(err.Error(), "310000") {
		t.Fatalf("unexpected error: %v", err)
	}
}
