package notifier

import (
	"strconv"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

const timeLayout = "2006-01-02 15:04:05"

// FailureInfo aggregates a continuous failure streak for DOWN
// notifications.
type FailureInfo struct {
	Count            int
	FirstFailureTime time.Time
	LastFailureTime  time.Time
	// DurationMinutes is whole minutes, rounded down.
	DurationMinutes int64
}

// NotificationData is the rendered payload handed to channel senders. The
// engine fills it once per emitted notification; senders only format it.
type NotificationData struct {
	MonitorID   string
	MonitorName string
	MonitorType string
	Status      storage.Status
	Time        time.Time
	// Message is the fully composed body, address and aggregation lines
	// included.
	Message string
	// Address is the probed url or host:port, empty when the monitor type
	// has neither.
	Address string
	// Failure is set only on aggregated DOWN notifications.
	Failure *FailureInfo
}

func (d *NotificationData) StatusText() string {
	return d.Status.Text()
}

func statusWord(s storage.Status) string {
	switch s {
	case storage.StatusUp:
		return "up"
	case storage.StatusDown:
		return "down"
	default:
		return "pending"
	}
}

// TemplateVars exposes the fields available to {field} placeholders in
// channel templates. Failure fields appear only on aggregated DOWN
// notifications.
func (d *NotificationData) TemplateVars() map[string]string {
	vars := map[string]string{
		"monitorName": d.MonitorName,
		"monitorType": d.MonitorType,
		"status":      statusWord(d.Status),
		"statusText":  d.Status.Text(),
		"statusCode":  strconv.Itoa(int(d.Status)),
		"time":        d.Time.Format(timeLayout),
		"message":     d.Message,
	}
	if d.Failure != nil {
		vars["failureCount"] = strconv.Itoa(d.Failure.Count)
		vars["firstFailureTime"] = d.Failure.FirstFailureTime.Format(timeLayout)
		vars["lastFailureTime"] = d.Failure.LastFailureTime.Format(timeLayout)
		vars["failureDuration"] = strconv.FormatInt(d.Failure.DurationMinutes, 10)
	}
	return vars
}
