package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

// PushChecker does no outbound I/O. External agents advance the monitor's
// heartbeat by calling the push ingestion endpoint, which writes an up
// history row; this checker only judges whether the most recent heartbeat
// is still fresh.
type PushChecker struct {
	Store storage.Store
	// Tolerance multiplies pushInterval when judging freshness.
	Tolerance float64
}

func (c *PushChecker) Type() string { return storage.TypePush }

func (c *PushChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var settings storage.PushSettings
	if len(monitor.Settings) > 0 {
		if err := json.Unmarshal(monitor.Settings, &settings); err != nil {
			return invalidConfig("无法解析监控配置: %v", err), nil
		}
	}
	if settings.Token == "" {
		return invalidConfig("缺少 token"), nil
	}
	if settings.PushInterval < 1 {
		return invalidConfig("pushInterval %d 必须大于 0", settings.PushInterval), nil
	}

	tolerance := c.Tolerance
	if tolerance <= 0 {
		tolerance = 1.5
	}
	window := time.Duration(float64(settings.PushInterval)*tolerance) * time.Second

	// Freshness comes from the newest row the push endpoint wrote, never
	// from lastCheckAt: the recorder advances lastCheckAt on every probe,
	// including this checker's own rows, which would make a stale monitor
	// look forever fresh.
	hb, err := c.Store.LatestHeartbeat(ctx, monitor.ID)
	if err != nil {
		return nil, fmt.Errorf("load last heartbeat: %w", err)
	}
	if hb == nil {
		return &Result{Status: storage.StatusPending, Message: "尚未收到心跳"}, nil
	}

	age := time.Since(hb.Timestamp)
	if age > window {
		return down("未收到心跳: 最近一次于 %s 之前", age.Round(time.Second)), nil
	}

	return &Result{
		Status:  storage.StatusUp,
		Message: fmt.Sprintf("心跳正常: %s 之前", age.Round(time.Second)),
		Ping:    hb.Ping,
	}, nil
}
