package storage

import (
	"context"
	"time"
)

// Store defines the repository interface the engine consumes.
type Store interface {
	// Monitors
	CreateMonitor(ctx context.Context, m *Monitor) error
	GetMonitor(ctx context.Context, id string) (*Monitor, error)
	ListMonitors(ctx context.Context) ([]*Monitor, error)
	ListActiveMonitors(ctx context.Context) ([]*Monitor, error)
	UpdateMonitor(ctx context.Context, m *Monitor) error
	DeleteMonitor(ctx context.Context, id string) error
	SetMonitorActive(ctx context.Context, id string, active bool) error
	GetMonitorByPushToken(ctx context.Context, token string) (*Monitor, error)

	// Status history. InsertStatus writes the history row and updates the
	// monitor's last-known fields in a single transaction; lastMessage is
	// the original un-compacted message.
	InsertStatus(ctx context.Context, rec *MonitorStatus, lastMessage string) error
	ListRecentStatus(ctx context.Context, monitorID string, limit int) ([]*MonitorStatus, error)
	CountStatusSince(ctx context.Context, monitorID string, status Status, after time.Time) (int, error)
	LatestStatusByValue(ctx context.Context, monitorID string, status Status) (*MonitorStatus, error)
	LatestHeartbeat(ctx context.Context, monitorID string) (*MonitorStatus, error)
	FirstStatusAfter(ctx context.Context, monitorID string, status Status, after time.Time) (*MonitorStatus, error)
	PurgeStatusBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Notification channels
	CreateChannel(ctx context.Context, ch *NotificationChannel) error
	GetChannel(ctx context.Context, id string) (*NotificationChannel, error)
	ListChannels(ctx context.Context) ([]*NotificationChannel, error)
	UpdateChannel(ctx context.Context, ch *NotificationChannel) error
	DeleteChannel(ctx context.Context, id string) error

	// Bindings. ListMonitorChannels resolves enabled bindings to their
	// channels; disabled bindings are excluded.
	SetMonitorChannels(ctx context.Context, monitorID string, channelIDs []string) error
	ListMonitorChannels(ctx context.Context, monitorID string) ([]*NotificationChannel, error)
	ListDefaultChannelIDs(ctx context.Context) ([]string, error)

	// Monitor groups
	CreateGroup(ctx context.Context, g *MonitorGroup) error
	GetGroup(ctx context.Context, id string) (*MonitorGroup, error)
	ListGroups(ctx context.Context) ([]*MonitorGroup, error)
	UpdateGroup(ctx context.Context, g *MonitorGroup) error
	DeleteGroup(ctx context.Context, id string) error

	// Status pages
	CreateStatusPage(ctx context.Context, sp *StatusPage) error
	GetStatusPageBySlug(ctx context.Context, slug string) (*StatusPage, error)
	ListStatusPages(ctx context.Context) ([]*StatusPage, error)
	UpdateStatusPage(ctx context.Context, sp *StatusPage) error
	DeleteStatusPage(ctx context.Context, id string) error
	SetStatusPageMonitors(ctx context.Context, pageID string, monitors []StatusPageMonitor) error
	ListStatusPageMonitors(ctx context.Context, pageID string) ([]StatusPageMonitor, error)

	// Analytics
	UptimePercent(ctx context.Context, monitorID string, from, to time.Time) (float64, error)

	// Lifecycle
	Close() error
}
