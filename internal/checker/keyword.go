package checker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mirrorhua/watchdog/internal/storage"
)

// KeywordChecker performs the HTTP request and then looks for any of the
// configured keywords in the response body. Matching is case-sensitive.
type KeywordChecker struct{}

func (c *KeywordChecker) Type() string { return storage.TypeKeyword }

func (c *KeywordChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var settings storage.KeywordSettings
	if len(monitor.Settings) > 0 {
		if err := json.Unmarshal(monitor.Settings, &settings); err != nil {
			return invalidConfig("无法解析监控配置: %v", err), nil
		}
	}

	keywords := splitKeywords(settings.Keyword)
	if len(keywords) == 0 {
		return invalidConfig("缺少 keyword"), nil
	}

	out, bad := fetchHTTP(ctx, &settings.HTTPSettings, timeoutOf(monitor), true)
	if bad != nil {
		return bad, nil
	}

	ok, bad := acceptStatus(out.statusCode, settings.StatusCodes)
	if bad != nil {
		bad.Ping = out.ping
		return bad, nil
	}
	if !ok {
		r := down("状态码 %d 不在允许范围 %s", out.statusCode, statusCodesOrDefault(settings.StatusCodes))
		r.Ping = out.ping
		return r, nil
	}

	for _, kw := range keywords {
		if strings.Contains(out.body, kw) {
			return &Result{
				Status:  storage.StatusUp,
				Message: "关键字命中: " + kw,
				Ping:    out.ping,
			}, nil
		}
	}

	r := down("未找到任何关键字: %s", strings.Join(keywords, ", "))
	r.Ping = out.ping
	return r, nil
}

// splitKeywords splits on ASCII commas and drops empty entries.
func splitKeywords(s string) []string {
	var out []string
	for _, kw := range strings.Split(s, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
