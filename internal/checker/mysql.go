package checker

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/mirrorhua/watchdog/internal/storage"
)

// MySQLChecker opens a connection and runs either the configured query or a
// SELECT 1 liveness check.
type MySQLChecker struct{}

func (c *MySQLChecker) Type() string { return storage.TypeMySQL }

func (c *MySQLChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
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

	timeout := timeoutOf(monitor)
	cfg := mysql.NewConfig()
	cfg.User = settings.Username
	cfg.Passwd = settings.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(settings.Hostname, fmt.Sprintf("%d", settings.Port))
	cfg.DBName = settings.Database
	cfg.Timeout = timeout
	cfg.ReadTimeout = timeout
	cfg.WriteTimeout = timeout

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return down("打开连接失败: %v", err), nil
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	start := time.Now()
	if err := db.PingContext(ctx); err != nil {
		return classifyNetErr(err, pingMs(start)), nil
	}

	query := strings.TrimSpace(settings.Query)
	if query == "" {
		query = "SELECT 1"
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		r := down("查询失败: %v", err)
		r.Ping = pingMs(start)
		return r, nil
	}
	rows.Close()

	return &Result{
		Status:  storage.StatusUp,
		Message: "MySQL 连接正常",
		Ping:    pingMs(start),
	}, nil
}
