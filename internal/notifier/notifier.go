package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

// httpClient serves every outbound dispatcher call. 10 second cap, no
// retries.
var httpClient = &http.Client{Timeout: 10 * time.Second}

// Sender delivers one notification through a single channel type.
type Sender interface {
	// Type returns the channel type string this sender handles.
	Type() string
	// Send performs exactly one delivery attempt.
	Send(ctx context.Context, channel *storage.NotificationChannel, data *NotificationData) error
}

// Dispatcher routes notifications to the senders registered per channel
// type.
type Dispatcher struct {
	mu      sync.RWMutex
	senders map[string]Sender
	logger  *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		senders: make(map[string]Sender),
		logger:  logger,
	}
	d.Register(&EmailSender{})
	d.Register(&WebhookSender{})
	d.Register(&WeChatSender{})
	d.Register(&DingTalkSender{})
	d.Register(&WeComSender{})
	return d
}

func (d *Dispatcher) Register(s Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.senders[s.Type()] = s
}

func (d *Dispatcher) sender(typ string) (Sender, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.senders[typ]
	if !ok {
		return nil, fmt.Errorf("no sender for channel type: %s", typ)
	}
	return s, nil
}

// Dispatch sends data through every enabled channel in parallel and waits
// for all attempts to finish. A failing channel never cancels its
// siblings; each error is logged with the channel name.
func (d *Dispatcher) Dispatch(ctx context.Context, channels []*storage.NotificationChannel, data *NotificationData) {
	var wg sync.WaitGroup
	for _, ch := range channels {
		if !ch.Enabled {
			continue
		}
		wg.Add(1)
		go func(ch *storage.NotificationChannel) {
			defer wg.Done()
			if err := d.send(ctx, ch, data); err != nil {
				d.logger.Error("notification dispatch failed",
					"channel", ch.Name, "type", ch.Type, "error", err)
			} else {
				d.logger.Info("notification sent",
					"channel", ch.Name, "type", ch.Type, "monitor", data.MonitorName)
			}
		}(ch)
	}
	wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, ch *storage.NotificationChannel, data *NotificationData) error {
	s, err := d.sender(ch.Type)
	if err != nil {
		return err
	}
	return s.Send(ctx, ch, data)
}

// TestChannel dispatches a canned payload through an ephemeral channel and
// returns the delivery outcome synchronously.
func (d *Dispatcher) TestChannel(ctx context.Context, chType string, config json.RawMessage) error {
	ch := &storage.NotificationChannel{
		Name:     "测试通知",
		Type:     chType,
		Enabled:  true,
		Settings: config,
	}
	data := &NotificationData{
		MonitorName: "测试监控",
		MonitorType: storage.TypeHTTP,
		Status:      storage.StatusUp,
		Time:        time.Now(),
		Message:     "这是一条测试通知，您的通知渠道工作正常。",
	}
	return d.send(ctx, ch, data)
}

// postJSON sends body to url and enforces the shared success contract:
// HTTP 2xx, and errcode == 0 when the response body carries one.
func postJSON(ctx context.Context, url string, body any, checkErrcode bool) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody)
	}
	if checkErrcode {
		var apiResp struct {
			ErrCode *int64 `json:"errcode"`
			ErrMsg  string `json:"errmsg"`
		}
		if err := json.Unmarshal(respBody, &apiResp); err == nil &&
			apiResp.ErrCode != nil && *apiResp.ErrCode != 0 {
			return fmt.Errorf("api error %d: %s", *apiResp.ErrCode, apiResp.ErrMsg)
		}
	}
	return nil
}
