package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mirrorhua/watchdog/internal/storage"
)

type WeChatSettings struct {
	PushURL         string `json:"pushUrl"`
	TitleTemplate   string `json:"titleTemplate"`
	ContentTemplate string `json:"contentTemplate"`
}

// WeChatSender posts {title, content} JSON to a personal push gateway
// such as Server 酱 or PushPlus.
type WeChatSender struct{}

func (s *WeChatSender) Type() string { return storage.ChannelWeChat }

func (s *WeChatSender) Send(ctx context.Context, channel *storage.NotificationChannel, data *NotificationData) error {
	var cfg WeChatSettings
	if err := json.Unmarshal(channel.Settings, &cfg); err != nil {
		return fmt.Errorf("parse wechat settings: %w", err)
	}
	if cfg.PushURL == "" {
		return fmt.Errorf("wechat channel requires pushUrl")
	}

	vars := data.TemplateVars()
	title := fmt.Sprintf("Monitor - %s 状态%s", data.MonitorName, data.StatusText())
	if cfg.TitleTemplate != "" {
		title = Substitute(cfg.TitleTemplate, vars, false)
	}
	content := data.Message
	if cfg.ContentTemplate != "" {
		content = Substitute(cfg.ContentTemplate, vars, false)
	}

	payload := map[string]string{"title": title, "content": content}
	return postJSON(ctx, cfg.PushURL, payload, false)
}
