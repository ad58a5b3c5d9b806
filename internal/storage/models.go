package storage

import (
	"encoding/json"
	"time"
)

// Status is the outcome of a probe. The engine itself only produces up or
// down; pending is reserved for push monitors that have not received a
// heartbeat yet.
type Status int

const (
	StatusDown    Status = 0
	StatusUp      Status = 1
	StatusPending Status = 2
)

// Text returns the Chinese status label used in notifications.
func (s Status) Text() string {
	switch s {
	case StatusUp:
		return "正常"
	case StatusDown:
		return "故障"
	default:
		return "等待"
	}
}

// Monitor types.
const (
	TypeHTTP    = "http"
	TypeCert    = "https-cert"
	TypeKeyword = "keyword"
	TypePort    = "port"
	TypeMySQL   = "mysql"
	TypeRedis   = "redis"
	TypeICMP    = "icmp"
	TypePush    = "push"
)

// Notification channel types. The tags match the original wire format.
const (
	ChannelEmail    = "邮件"
	ChannelWebhook  = "Webhook"
	ChannelWeChat   = "微信推送"
	ChannelDingTalk = "钉钉推送"
	ChannelWeCom    = "企业微信推送"
)

// Monitor represents a probe target.
type Monitor struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Active         bool            `json:"active"`
	Interval       int             `json:"interval"`        // seconds between checks
	Timeout        int             `json:"timeout"`         // seconds, 0 uses the default
	Retries        int             `json:"retries"`
	RetryInterval  int             `json:"retry_interval"`  // seconds between retry attempts
	ResendInterval int             `json:"resend_interval"` // consecutive failures between repeat alerts, 0 disables
	UpsideDown     bool            `json:"upside_down"`
	Settings       json.RawMessage `json:"settings,omitempty"`
	GroupID        *string         `json:"group_id,omitempty"`
	Description    string          `json:"description,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Last-known state, updated atomically with each history insert.
	LastCheckAt *time.Time `json:"last_check_at,omitempty"`
	LastStatus  *Status    `json:"last_status,omitempty"`
	LastMessage string     `json:"last_message,omitempty"`
	LastPing    *int64     `json:"last_ping,omitempty"`
}

// HTTPSettings holds configuration for http monitors.
type HTTPSettings struct {
	URL              string            `json:"url"`
	Method           string            `json:"httpMethod,omitempty"`
	StatusCodes      string            `json:"statusCodes,omitempty"` // "200" or "200-299"
	Body             string            `json:"requestBody,omitempty"`
	Headers          map[string]string `json:"requestHeaders,omitempty"`
	IgnoreTLS        bool              `json:"ignoreTls,omitempty"`
	MaxRedirects     *int              `json:"maxRedirects,omitempty"`
	ConnectTimeout   int               `json:"connectTimeout,omitempty"` // seconds, 1-300
	NotifyCertExpiry bool              `json:"notifyCertExpiry,omitempty"`
}

// KeywordSettings extends HTTPSettings with a comma-separated keyword list.
type KeywordSettings struct {
	HTTPSettings
	Keyword string `json:"keyword"`
}

// CertSettings holds configuration for https-cert monitors.
type CertSettings struct {
	URL            string `json:"url"`
	IgnoreTLS      bool   `json:"ignoreTls,omitempty"`
	MaxRedirects   *int   `json:"maxRedirects,omitempty"`
	ConnectTimeout int    `json:"connectTimeout,omitempty"`
}

// PortSettings holds configuration for port monitors.
type PortSettings struct {
	Hostname string `json:"hostname"`
	Port     int    `json:"port"`
}

// DatabaseSettings holds configuration for mysql and redis monitors.
type DatabaseSettings struct {
	Hostname string `json:"hostname"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Database string `json:"database,omitempty"`
	Query    string `json:"query,omitempty"`
}

// ICMPSettings holds configuration for icmp monitors.
type ICMPSettings struct {
	Hostname        string  `json:"hostname"`
	PacketCount     int     `json:"packetCount,omitempty"`     // default 4
	MaxPacketLoss   float64 `json:"maxPacketLoss,omitempty"`   // percent, default 0
	MaxResponseTime int64   `json:"maxResponseTime,omitempty"` // ms, 0 disables
}

// PushSettings holds configuration for push monitors.
type PushSettings struct {
	Token        string `json:"token"`
	PushInterval int    `json:"pushInterval"` // seconds
}

// MonitorStatus is one immutable history row, written for every probe
// attempt. Message is nil when status is up and the monitor is not a push
// monitor.
type MonitorStatus struct {
	ID        string          `json:"id"`
	MonitorID string          `json:"monitor_id"`
	Status    Status          `json:"status"`
	Message   *string         `json:"message,omitempty"`
	Ping      *int64          `json:"ping,omitempty"` // milliseconds
	Details   json.RawMessage `json:"details,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NotificationChannel configures one alert delivery target.
type NotificationChannel struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Enabled   bool            `json:"enabled"`
	Settings  json.RawMessage `json:"settings"`
	IsDefault bool            `json:"is_default"` // bound to newly created monitors
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NotificationBinding links a monitor to a channel. Disabled bindings are
// skipped by the notification engine.
type NotificationBinding struct {
	MonitorID string `json:"monitor_id"`
	ChannelID string `json:"channel_id"`
	Enabled   bool   `json:"enabled"`
}

// MonitorGroup is a display grouping. Deleting a group detaches its
// monitors instead of cascading.
type MonitorGroup struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Color        string `json:"color,omitempty"`
	DisplayOrder int    `json:"display_order"`
}

// StatusPage is a public read-only view over a set of monitors.
type StatusPage struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// StatusPageMonitor is a membership row; deleting either side removes it.
type StatusPageMonitor struct {
	PageID      string `json:"page_id"`
	MonitorID   string `json:"monitor_id"`
	DisplayName string `json:"display_name,omitempty"`
	SortOrder   int    `json:"sort_order"`
}
