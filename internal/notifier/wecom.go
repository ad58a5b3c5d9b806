package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mirrorhua/watchdog/internal/storage"
)

type WeComSettings struct {
	WebhookURL string `json:"webhookUrl"`
}

// WeComSender posts a markdown message to a WeCom group robot. Same
// errcode contract as DingTalk, no signing.
type WeComSender struct{}

func (s *WeComSender) Type() string { return storage.ChannelWeCom }

func (s *WeComSender) Send(ctx context.Context, channel *storage.NotificationChannel, data *NotificationData) error {
	var cfg WeComSettings
	if err := json.Unmarshal(channel.Settings, &cfg); err != nil {
		return fmt.Errorf("parse wecom settings: %w", err)
	}
	if cfg.WebhookURL == "" {
		return fmt.Errorf("wecom channel requires webhookUrl")
	}

	title := fmt.Sprintf("Monitor - %s 状态%s", data.MonitorName, data.StatusText())
	payload := map[string]any{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"content": markdownBody(title, data),
		},
	}
	return postJSON(ctx, cfg.WebhookURL, payload, true)
}
