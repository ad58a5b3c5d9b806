package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mirrorhua/watchdog/internal/shortid"
	"github.com/mirrorhua/watchdog/internal/storage"
)

// pendingMessage is stored for push monitors that have not received a
// heartbeat yet.
const pendingMessage = "等待中"

// Recorder persists one history row per probe attempt and keeps the
// monitor's last-known fields in sync.
type Recorder struct {
	store  storage.Store
	ids    *shortid.Generator
	logger *slog.Logger
}

func NewRecorder(store storage.Store, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		ids:    shortid.New(),
		logger: logger,
	}
}

// Record writes the history row and updates last-known state atomically.
// The row's message is compacted: nil for up rows of non-push monitors,
// 等待中 for pending; the monitor's last_message always keeps the original.
func (r *Recorder) Record(ctx context.Context, monitorID, monitorType string, status storage.Status, message string, ping *int64, details map[string]any) (*storage.MonitorStatus, error) {
	now := time.Now()

	var detailsJSON json.RawMessage
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("marshal details: %w", err)
		}
		detailsJSON = b
	}

	rec := &storage.MonitorStatus{
		ID:        r.ids.Next(now),
		MonitorID: monitorID,
		Status:    status,
		Message:   compactMessage(status, monitorType, message),
		Ping:      ping,
		Details:   detailsJSON,
		Timestamp: now,
	}

	if err := r.store.InsertStatus(ctx, rec, message); err != nil {
		r.logger.Error("record status", "monitor_id", monitorID, "error", err)
		return nil, err
	}
	return rec, nil
}

// compactMessage omits redundant text for up rows to shrink the history
// footprint. Push monitors keep their messages so heartbeat context
// survives.
func compactMessage(status storage.Status, monitorType, message string) *string {
	if status == storage.StatusPending {
		msg := pendingMessage
		return &msg
	}
	if status == storage.StatusUp && monitorType != storage.TypePush {
		return nil
	}
	msg := strings.TrimRight(message, " \t\r\n")
	return &msg
}
