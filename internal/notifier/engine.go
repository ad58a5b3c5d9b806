package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

// lastNotice remembers when a notification was last emitted for a monitor
// and what status it announced.
type lastNotice struct {
	at     time.Time
	status storage.Status
}

// Engine decides whether a recorded probe result becomes a notification
// and composes the message. Emission state is process-local and lost on
// restart; after a restart the first transition re-alerts.
type Engine struct {
	store      storage.Store
	dispatcher *Dispatcher
	logger     *slog.Logger

	mu           sync.Mutex
	lastNotified map[string]lastNotice

	now func() time.Time
}

func NewEngine(store storage.Store, dispatcher *Dispatcher, logger *slog.Logger) *Engine {
	return &Engine{
		store:        store,
		dispatcher:   dispatcher,
		logger:       logger,
		lastNotified: make(map[string]lastNotice),
		now:          time.Now,
	}
}

// Evaluate runs after the probe's history row has been committed, so every
// history read below already sees it. prev is the monitor's status before
// this probe, nil on the first evaluation.
func (e *Engine) Evaluate(ctx context.Context, monitorID string, status storage.Status, message string, prev *storage.Status) {
	if status == storage.StatusPending {
		return
	}

	m, err := e.store.GetMonitor(ctx, monitorID)
	if err != nil {
		e.logger.Error("notification: load monitor", "monitor_id", monitorID, "error", err)
		return
	}
	channels, err := e.store.ListMonitorChannels(ctx, monitorID)
	if err != nil {
		e.logger.Error("notification: load channels", "monitor_id", monitorID, "error", err)
		return
	}
	if len(channels) == 0 {
		return
	}

	recent, err := e.store.ListRecentStatus(ctx, monitorID, 2)
	if err != nil {
		e.logger.Error("notification: load history", "monitor_id", monitorID, "error", err)
		return
	}
	isNew := len(recent) <= 1

	realPrev := prev
	if realPrev == nil && !isNew && len(recent) >= 2 {
		s := recent[1].Status
		realPrev = &s
	}

	// A repeated UP is never worth a notification. A repeated DOWN still
	// falls through to the resend gate below, which decides whether the
	// outage is due for a reminder.
	if status == storage.StatusUp && prev != nil && realPrev != nil && *realPrev == status {
		return
	}
	if isNew && status == storage.StatusUp {
		return
	}

	now := e.now()
	data := &NotificationData{
		MonitorID:   m.ID,
		MonitorName: m.Name,
		MonitorType: m.Type,
		Status:      status,
		Time:        now,
		Address:     addressOf(m),
	}

	e.mu.Lock()
	last, notified := e.lastNotified[monitorID]
	e.mu.Unlock()

	switch {
	case status == storage.StatusDown:
		if notified && last.status == storage.StatusDown {
			if m.ResendInterval <= 0 {
				return
			}
			n, err := e.store.CountStatusSince(ctx, monitorID, storage.StatusDown, last.at)
			if err != nil {
				e.logger.Error("notification: count downs", "monitor_id", monitorID, "error", err)
				return
			}
			if n < m.ResendInterval {
				return
			}
		}
		failure, err := e.aggregateFailure(ctx, monitorID, now)
		if err != nil {
			e.logger.Error("notification: aggregate failures", "monitor_id", monitorID, "error", err)
			return
		}
		data.Failure = failure
		message = fmt.Sprintf("连续失败 %d 次，首次失败于 %s，持续 %d 分钟\n%s",
			failure.Count, failure.FirstFailureTime.Format(timeLayout), failure.DurationMinutes, message)

	case status == storage.StatusUp && realPrev != nil && *realPrev == storage.StatusDown && !isNew:
		var minutes int64
		if notified && last.status == storage.StatusDown {
			minutes = wholeMinutes(now.Sub(last.at))
		}
		message = fmt.Sprintf("监控已恢复正常。故障持续了约 %d 分钟。\n%s", minutes, message)
	}

	if data.Address != "" {
		message = fmt.Sprintf("监控地址: %s\n%s", data.Address, message)
	}
	data.Message = message

	e.mu.Lock()
	e.lastNotified[monitorID] = lastNotice{at: now, status: status}
	e.mu.Unlock()

	e.dispatcher.Dispatch(ctx, channels, data)
}

// aggregateFailure summarizes the DOWN streak since the last UP row. With
// no UP row ever, the streak starts at epoch zero and covers all history.
func (e *Engine) aggregateFailure(ctx context.Context, monitorID string, now time.Time) (*FailureInfo, error) {
	start := time.Unix(0, 0)
	lastUp, err := e.store.LatestStatusByValue(ctx, monitorID, storage.StatusUp)
	if err != nil {
		return nil, err
	}
	if lastUp != nil {
		start = lastUp.Timestamp
	}

	count, err := e.store.CountStatusSince(ctx, monitorID, storage.StatusDown, start)
	if err != nil {
		return nil, err
	}
	first, err := e.store.FirstStatusAfter(ctx, monitorID, storage.StatusDown, start)
	if err != nil {
		return nil, err
	}

	firstTime := now
	if first != nil {
		firstTime = first.Timestamp
	}
	return &FailureInfo{
		Count:            count,
		FirstFailureTime: firstTime,
		LastFailureTime:  now,
		DurationMinutes:  wholeMinutes(now.Sub(firstTime)),
	}, nil
}

func wholeMinutes(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d / time.Minute)
}

// addressOf derives the probed address from the monitor's settings: url
// when present, otherwise hostname with an optional port.
func addressOf(m *storage.Monitor) string {
	if len(m.Settings) == 0 {
		return ""
	}
	var cfg struct {
		URL      string `json:"url"`
		Hostname string `json:"hostname"`
		Port     int    `json:"port"`
	}
	if err := json.Unmarshal(m.Settings, &cfg); err != nil {
		return ""
	}
	if cfg.URL != "" {
		return cfg.URL
	}
	if cfg.Hostname == "" {
		return ""
	}
	if cfg.Port > 0 {
		return fmt.Sprintf("%s:%d", cfg.Hostname, cfg.Port)
	}
	return cfg.Hostname
}
