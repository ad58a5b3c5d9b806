package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mirrorhua/watchdog/internal/storage"
)

// RedisChecker opens a connection and runs either the configured command or
// a PING liveness check.
type RedisChecker struct{}

func (c *RedisChecker) Type() string { return storage.TypeRedis }

func (c *RedisChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var settings storage.DatabaseSettings
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

	db := 0
	if settings.Database != "" {
		n, err := strconv.Atoi(settings.Database)
		if err != nil {
			return invalidConfig("database %q 不是有效的库编号", settings.Database), nil
		}
		db = n
	}

	timeout := timeoutOf(monitor)
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(settings.Hostname, fmt.Sprintf("%d", settings.Port)),
		Username:     settings.Username,
		Password:     settings.Password,
		DB:           db,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	defer client.Close()

	start := time.Now()

	query := strings.TrimSpace(settings.Query)
	if query == "" {
		if err := client.Ping(ctx).Err(); err != nil {
			return classifyNetErr(err, pingMs(start)), nil
		}
	} else {
		args := make([]any, 0, 4)
		for _, f := range strings.Fields(query) {
			args = append(args, f)
		}
		if err := client.Do(ctx, args...).Err(); err != nil {
			r := down("命令执行失败: %v", err)
			r.Ping = pingMs(start)
			return r, nil
		}
	}

	return &Result{
		Status:  storage.StatusUp,
		Message: "Redis 连接正常",
		Ping:    pingMs(start),
	}, nil
}
