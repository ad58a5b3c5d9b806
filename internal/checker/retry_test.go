package checker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mirrorhua/watchdog/internal/storage"
)

// scriptedChecker returns its results in order, repeating the last one.
type scriptedChecker struct {
	results []*Result
	errs    []error
	calls   int
}

func (c *scriptedChecker) Type() string { return "scripted" }

func (c *scriptedChecker) Check(ctx context.Context, m *storage.Monitor) (*Result, error) {
	i := c.calls
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	c.calls++
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	return c.results[i], err
}

func upResult(msg string) *Result   { return &Result{Status: storage.StatusUp, Message: msg} }
func downResult(msg string) *Result { return &Result{Status: storage.StatusDown, Message: msg} }

func retryMonitor(retries int) *storage.Monitor {
	return &storage.Monitor{
		ID:            "m1",
		Type:          "scripted",
		Retries:       retries,
		RetryInterval: 0, // keep the test fast
	}
}

func TestRunWithRetriesFirstAttemptUp(t *testing.T) {
	c := &scriptedChecker{results: []*Result{upResult("HTTP 200")}}
	res := RunWithRetries(context.Background(), c, retryMonitor(3))
	if res.Status != storage.StatusUp || res.Message != "HTTP 200" {
		t.Fatalf("unexpected result: %d %q", res.Status, res.Message)
	}
	if c.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", c.calls)
	}
}

func TestRunWithRetriesRecovers(t *testing.T) {
	c := &scriptedChecker{results: []*Result{
		downResult("连接超时 (TIMEOUT)"),
		upResult("HTTP 200"),
	}}
	res := RunWithRetries(context.Background(), c, retryMonitor(2))
	if res.Status != storage.StatusUp {
		t.Fatalf("expected up after retry, got %q", res.Message)
	}
	if res.Message != "重试成功 (1/2): HTTP 200" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if c.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", c.calls)
	}
}

func TestRunWithRetriesExhausted(t *testing.T) {
	c := &scriptedChecker{results: []*Result{downResult("连接被拒绝 (CONNECTION_REFUSED)")}}
	res := RunWithRetries(context.Background(), c, retryMonitor(3))
	if res.Status != storage.StatusDown {
		t.Fatal("expected down after exhausted retries")
	}
	if res.Message != "重试3次后仍然失败: 连接被拒绝 (CONNECTION_REFUSED)" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if c.calls != 4 {
		t.Fatalf("expected 1 + 3 attempts, got %d", c.calls)
	}
}

func TestRunWithRetriesNoRetriesConfigured(t *testing.T) {
	c := &scriptedChecker{results: []*Result{downResult("boom")}}
	res := RunWithRetries(context.Background(), c, retryMonitor(0))
	if res.Message != "boom" || c.calls != 1 {
		t.Fatalf("retries must not run when disabled: %q calls=%d", res.Message, c.calls)
	}
}

func TestRunOnceFoldsCheckerError(t *testing.T) {
	c := &scriptedChecker{
		results: []*Result{nil},
		errs:    []error{errors.New("store unavailable")},
	}
	res := RunOnce(context.Background(), c, retryMonitor(0))
	if res.Status != storage.StatusDown {
		t.Fatal("expected down for checker error")
	}
	if !strings.HasPrefix(res.Message, "检查执行出错: ") {
		t.Fatalf("unexpected message: %q", res.Message)
	}
}

func TestRunOnceUpsideDown(t *testing.T) {
	m := retryMonitor(0)
	m.UpsideDown = true

	c := &scriptedChecker{results: []*Result{upResult("HTTP 200")}}
	res := RunOnce(context.Background(), c, m)
	if res.Status != storage.StatusDown {
		t.Fatal("upside-down must flip up to down")
	}
	if res.Message != "[inverted] HTTP 200" {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	c = &scriptedChecker{results: []*Result{downResult("连接超时 (TIMEOUT)")}}
	res = RunOnce(context.Background(), c, m)
	if res.Status != storage.StatusUp {
		t.Fatal("upside-down must flip down to up")
	}
}

func TestRunOnceUpsideDownKeepsPending(t *testing.T) {
	m := retryMonitor(0)
	m.UpsideDown = true

	c := &scriptedChecker{results: []*Result{{Status: storage.StatusPending, Message: "尚未收到心跳"}}}
	res := RunOnce(context.Background(), c, m)
	if res.Status != storage.StatusPending {
		t.Fatal("pending must not be flipped")
	}
	if res.Message != "尚未收到心跳" {
		t.Fatalf("pending message must be untouched: %q", res.Message)
	}
}
