package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

// PortChecker attempts a plain TCP connection.
type PortChecker struct{}

func (c *PortChecker) Type() string { return storage.TypePort }

func (c *PortChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var settings storage.PortSettings
	if len(monitor.Settings) > 0 {
		if err := json.Unmarshal(monitor.Settings, &settings); err != nil {
			return invalidConfig("无法解析监控配置: %v", err), nil
		}
	}

	if settings.Hostname == "" {
		return invalidConfig("缺少 hostname"), nil
	}
	if settings.Port < 1 || settings.Port > 65535 {
		return invalidConfig("端口号 %d 不是有效的端口值", settings.Port), nil
	}

	addr := net.JoinHostPort(settings.Hostname, fmt.Sprintf("%d", settings.Port))
	dialer := net.Dialer{Timeout: timeoutOf(monitor)}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return classifyNetErr(err, pingMs(start)), nil
	}
	ping := pingMs(start)
	conn.Close()

	return &Result{
		Status:  storage.StatusUp,
		Message: fmt.Sprintf("TCP 连接成功 %s", addr),
		Ping:    ping,
	}, nil
}
