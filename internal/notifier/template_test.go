package notifier

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]string{
		"monitorName": "api",
		"status":      "down",
	}
	got := Substitute("{monitorName} is {status}, {unknown} stays", vars, false)
	want := "api is down, {unknown} stays"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// Substituted output with JSON escaping must stay parseable no matter what
// the message contains.
func TestSubstituteJSONEscaping(t *testing.T) {
	messages := []string{
		`plain`,
		"multi\nline\r\n",
		`quotes "inside" and back\slash`,
		"tabs\tand\tmore",
		`全角字符与 "引号"`,
	}
	tmpl := `{"name":"{monitorName}","msg":"{message}"}`
	for _, msg := range messages {
		out := Substitute(tmpl, map[string]string{"monitorName": "m", "message": msg}, true)
		var parsed struct {
			Name string `json:"name"`
			Msg  string `json:"msg"`
		}
		if err := json.Unmarshal([]byte(out), &parsed); err != nil {
			t.Fatalf("output not valid JSON for %q: %v\n%s", msg, err, out)
		}
		if parsed.Msg != msg {
			t.Fatalf("message mangled: got %q, want %q", parsed.Msg, msg)
		}
	}
}

func TestTemplateVars(t *testing.T) {
	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.Local)
	data := &NotificationData{
		MonitorName: "api",
		MonitorType: storage.TypeHTTP,
		Status:      storage.StatusDown,
		Time:        at,
		Message:     "连接超时 (TIMEOUT)",
		Failure: &FailureInfo{
			Count:            3,
			FirstFailureTime: at.Add(-10 * time.Minute),
			LastFailureTime:  at,
			DurationMinutes:  10,
		},
	}

	vars := data.TemplateVars()
	if vars["status"] != "down" || vars["statusText"] != "故障" || vars["statusCode"] != "0" {
		t.Fatalf("status vars wrong: %v", vars)
	}
	if vars["time"] != "2025-05-01 09:30:00" {
		t.Fatalf("time var wrong: %q", vars["time"])
	}
	if vars["failureCount"] != "3" || vars["failureDuration"] != "10" {
		t.Fatalf("failure vars wrong: %v", vars)
	}

	data.Failure = nil
	data.Status = storage.StatusUp
	vars = data.TemplateVars()
	if _, ok := vars["failureCount"]; ok {
		t.Fatal("failure vars must be absent without aggregation")
	}
	if vars["statusText"] != "正常" || vars["statusCode"] != "1" {
		t.Fatalf("up vars wrong: %v", vars)
	}
}
