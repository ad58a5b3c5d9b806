package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

type WebhookSettings struct {
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers"`
	ContentType  string            `json:"contentType"`
	BodyTemplate string            `json:"bodyTemplate"`
}

// webhookPayload is the default body when no bodyTemplate is configured.
type webhookPayload struct {
	Event     string              `json:"event"`
	Timestamp string              `json:"timestamp"`
	Monitor   webhookMonitor      `json:"monitor"`
	Failure   *webhookFailureInfo `json:"failure_info"`
}

type webhookMonitor struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	StatusCode int     `json:"status_code"`
	Time       string  `json:"time"`
	Message    string  `json:"message"`
	Address    *string `json:"address"`
}

type webhookFailureInfo struct {
	Count            int    `json:"count"`
	FirstFailureTime string `json:"first_failure_time"`
	LastFailureTime  string `json:"last_failure_time"`
	DurationMinutes  int64  `json:"duration_minutes"`
}

type WebhookSender struct{}

func (s *WebhookSender) Type() string { return storage.ChannelWebhook }

func (s *WebhookSender) Send(ctx context.Context, channel *storage.NotificationChannel, data *NotificationData) error {
	var cfg WebhookSettings
	if err := json.Unmarshal(channel.Settings, &cfg); err != nil {
		return fmt.Errorf("parse webhook settings: %w", err)
	}
	if cfg.URL == "" {
		return fmt.Errorf("webhook channel requires url")
	}

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodPost
	}
	contentType := cfg.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	var body string
	if cfg.BodyTemplate != "" {
		isJSON := strings.Contains(strings.ToLower(contentType), "json")
		body = Substitute(cfg.BodyTemplate, data.TemplateVars(), isJSON)
	} else {
		raw, err := json.Marshal(defaultPayload(data))
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = string(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	for name, value := range cfg.Headers {
		req.Header.Set(name, value)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

func defaultPayload(data *NotificationData) *webhookPayload {
	var addr *string
	if data.Address != "" {
		addr = &data.Address
	}
	p := &webhookPayload{
		Event:     "status_change",
		Timestamp: data.Time.Format(time.RFC3339),
		Monitor: webhookMonitor{
			Name:       data.MonitorName,
			Type:       data.MonitorType,
			Status:     data.StatusText(),
			StatusCode: int(data.Status),
			Time:       data.Time.Format(timeLayout),
			Message:    data.Message,
			Address:    addr,
		},
	}
	if data.Failure != nil {
		p.Failure = &webhookFailureInfo{
			Count:            data.Failure.Count,
			FirstFailureTime: data.Failure.FirstFailureTime.Format(timeLayout),
			LastFailureTime:  data.Failure.LastFailureTime.Format(timeLayout),
			DurationMinutes:  data.Failure.DurationMinutes,
		}
	}
	return p
}
