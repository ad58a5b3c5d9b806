package checker

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

func testStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "watchdog-checker-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	store, err := storage.NewSQLiteStore(tmpFile.Name(), 2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func pushMonitor(t *testing.T, store *storage.SQLiteStore, pushInterval int) *storage.Monitor {
	t.Helper()
	m := &storage.Monitor{
		Name:     "push",
		Type:     storage.TypePush,
		Active:   true,
		Interval: 60,
		Settings: json.RawMessage(`{"token":"tok1","pushInterval":` + jsonInt(pushInterval) + `}`),
	}
	if err := store.CreateMonitor(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	return m
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func heartbeatAt(t *testing.T, store *storage.SQLiteStore, monitorID, rowID string, at time.Time) {
	t.Helper()
	rec := &storage.MonitorStatus{
		ID:        rowID,
		MonitorID: monitorID,
		Status:    storage.StatusUp,
		Details:   json.RawMessage(`{"source":"push"}`),
		Timestamp: at,
	}
	if err := store.InsertStatus(context.Background(), rec, "OK"); err != nil {
		t.Fatal(err)
	}
}

func TestPushCheckerNoHeartbeat(t *testing.T) {
	store := testStore(t)
	m := pushMonitor(t, store, 60)

	c := &PushChecker{Store: store, Tolerance: 1.5}
	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusPending {
		t.Fatalf("expected pending, got %d %q", res.Status, res.Message)
	}
	if res.Message != "尚未收到心跳" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
}

func TestPushCheckerFresh(t *testing.T) {
	store := testStore(t)
	m := pushMonitor(t, store, 60)
	heartbeatAt(t, store, m.ID, "hb1aaaa", time.Now().Add(-30*time.Second))

	c := &PushChecker{Store: store, Tolerance: 1.5}
	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusUp {
		t.Fatalf("heartbeat within window must be up, got %q", res.Message)
	}
}

func TestPushCheckerStale(t *testing.T) {
	store := testStore(t)
	m := pushMonitor(t, store, 60)
	// 1.5 * 60s = 90s window; two minutes is stale.
	heartbeatAt(t, store, m.ID, "hb2aaaa", time.Now().Add(-2*time.Minute))

	c := &PushChecker{Store: store, Tolerance: 1.5}
	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusDown {
		t.Fatalf("stale heartbeat must be down, got %q", res.Message)
	}
	if !strings.Contains(res.Message, "未收到心跳") {
		t.Fatalf("unexpected message: %q", res.Message)
	}
}

// The push checker's own up rows carry no source marker, so they must
// never refresh the heartbeat window.
func TestPushCheckerIgnoresOwnRows(t *testing.T) {
	store := testStore(t)
	m := pushMonitor(t, store, 60)
	heartbeatAt(t, store, m.ID, "hb3aaaa", time.Now().Add(-2*time.Minute))

	probe := &storage.MonitorStatus{
		ID:        "pr1aaaa",
		MonitorID: m.ID,
		Status:    storage.StatusUp,
		Timestamp: time.Now(),
	}
	if err := store.InsertStatus(context.Background(), probe, "心跳正常"); err != nil {
		t.Fatal(err)
	}

	c := &PushChecker{Store: store, Tolerance: 1.5}
	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != storage.StatusDown {
		t.Fatalf("probe row refreshed the window: %q", res.Message)
	}
}

func TestPushCheckerInvalidConfig(t *testing.T) {
	store := testStore(t)
	c := &PushChecker{Store: store}

	m := &storage.Monitor{ID: "x", Type: storage.TypePush, Settings: json.RawMessage(`{"pushInterval":60}`)}
	res, err := c.Check(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(res.Message, "配置无效: ") {
		t.Fatalf("expected config error for missing token, got %q", res.Message)
	}

	m = &storage.Monitor{ID: "x", Type: storage.TypePush, Settings: json.RawMessage(`{"token":"t","pushInterval":0}`)}
	res, _ = c.Check(context.Background(), m)
	if !strings.HasPrefix(res.Message, "配置无效: ") {
		t.Fatalf("expected config error for zero interval, got %q", res.Message)
	}
}
