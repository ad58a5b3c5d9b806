package notifier

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mirrorhua/watchdog/internal/storage"
)

type DingTalkSettings struct {
	WebhookURL string `json:"webhookUrl"`
	Secret     string `json:"secret"`
}

// DingTalkSender posts a markdown message to a DingTalk group robot.
// Signed requests append &timestamp=<ms>&sign=<sig> per the robot
// security docs.
type DingTalkSender struct{}

func (s *DingTalkSender) Type() string { return storage.ChannelDingTalk }

func (s *DingTalkSender) Send(ctx context.Context, channel *storage.NotificationChannel, data *NotificationData) error {
	var cfg DingTalkSettings
	if err := json.Unmarshal(channel.Settings, &cfg); err != nil {
		return fmt.Errorf("parse dingtalk settings: %w", err)
	}
	if cfg.WebhookURL == "" {
		return fmt.Errorf("dingtalk channel requires webhookUrl")
	}

	target := cfg.WebhookURL
	if cfg.Secret != "" {
		target += "&" + signDingTalk(cfg.Secret, data.Time.UnixMilli())
	}

	title := fmt.Sprintf("Monitor - %s 状态%s", data.MonitorName, data.StatusText())
	payload := map[string]any{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": title,
			"text":  markdownBody(title, data),
		},
	}
	return postJSON(ctx, target, payload, true)
}

// signDingTalk returns the "timestamp=<ts>&sign=<sig>" query fragment for
// a robot with a signing secret: sign = base64(HMAC_SHA256(secret,
// "<ts>\n<secret>")), url-encoded.
func signDingTalk(secret string, tsMillis int64) string {
	stringToSign := fmt.Sprintf("%d\n%s", tsMillis, secret)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(stringToSign))
	sign := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("timestamp=%d&sign=%s", tsMillis, url.QueryEscape(sign))
}

func markdownBody(title string, data *NotificationData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", title)
	fmt.Fprintf(&b, "- 状态: %s\n", data.StatusText())
	fmt.Fprintf(&b, "- 时间: %s\n", data.Time.Format(timeLayout))
	for _, line := range strings.Split(data.Message, "\n") {
		if line != "" {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	return b.String()
}
