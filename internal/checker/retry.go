package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

// RunOnce performs a single probe and applies the monitor's upside-down
// flag to the outcome. A checker error is folded into a down Result so the
// caller always gets exactly one Result per attempt.
func RunOnce(ctx context.Context, c Checker, m *storage.Monitor) *Result {
	res, err := c.Check(ctx, m)
	if err != nil {
		res = down("检查执行出错: %v", err)
	}

	if m.UpsideDown && res.Status != storage.StatusPending {
		if res.Status == storage.StatusUp {
			res.Status = storage.StatusDown
		} else {
			res.Status = storage.StatusUp
		}
		res.Message = "[inverted] " + res.Message
	}
	return res
}

// RunWithRetries drives the retry policy: when a probe reports down and the
// monitor allows retries, it re-probes up to m.Retries times, pausing
// m.RetryInterval seconds between attempts.
//
// A success during retry returns up with a 重试成功 (k/N) prefix; when every
// retry fails, the first down result is returned with its message rewritten
// to 重试N次后仍然失败. Retries live only here; checkers never loop themselves,
// so the policy applies exactly once.
func RunWithRetries(ctx context.Context, c Checker, m *storage.Monitor) *Result {
	first := RunOnce(ctx, c, m)
	if first.Status != storage.StatusDown || m.Retries <= 0 {
		return first
	}

	pause := time.Duration(m.RetryInterval) * time.Second
	for attempt := 1; attempt <= m.Retries; attempt++ {
		if !sleepCtx(ctx, pause) {
			break
		}
		res := RunOnce(ctx, c, m)
		if res.Status == storage.StatusUp {
			res.Message = fmt.Sprintf("重试成功 (%d/%d): %s", attempt, m.Retries, res.Message)
			return res
		}
	}

	first.Message = fmt.Sprintf("重试%d次后仍然失败: %s", m.Retries, first.Message)
	return first
}

// sleepCtx waits for d or until the context is done; it reports whether the
// full pause elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
