package checker

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

// CertChecker follows the redirect chain up to maxRedirects and judges the
// leaf certificate of the final connection's validity window. Chain
// verification applies unless ignoreTls is set.
type CertChecker struct{}

func (c *CertChecker) Type() string { return storage.TypeCert }

func (c *CertChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var settings storage.CertSettings
	if len(monitor.Settings) > 0 {
		if err := json.Unmarshal(monitor.Settings, &settings); err != nil {
			return invalidConfig("无法解析监控配置: %v", err), nil
		}
	}

	if !strings.HasPrefix(settings.URL, "https://") {
		return invalidConfig("url 必须以 https:// 开头"), nil
	}

	timeout := timeoutOf(monitor)
	if settings.ConnectTimeout > 0 {
		if settings.ConnectTimeout < 1 || settings.ConnectTimeout > 300 {
			return invalidConfig("connectTimeout %d 超出 1-300 秒范围", settings.ConnectTimeout), nil
		}
		timeout = time.Duration(settings.ConnectTimeout) * time.Second
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, settings.URL, nil)
	if err != nil {
		return invalidConfig("无效的 url: %v", err), nil
	}

	client := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: timeout,
			}).DialContext,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: settings.IgnoreTLS,
			},
			DisableKeepAlives: true,
		},
		Timeout:       timeout,
		CheckRedirect: redirectPolicy(settings.MaxRedirects),
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return classifyNetErr(err, pingMs(start)), nil
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyRead))
	resp.Body.Close()
	ping := pingMs(start)

	if resp.TLS == nil {
		r := down("重定向到非 https 地址: %s", resp.Request.URL)
		r.Ping = ping
		return r, nil
	}
	if len(resp.TLS.PeerCertificates) == 0 {
		r := down("对端未提供证书")
		r.Ping = ping
		return r, nil
	}

	cert := resp.TLS.PeerCertificates[0]
	now := time.Now()

	if now.Before(cert.NotBefore) {
		r := down("证书尚未生效 (生效于 %s)", cert.NotBefore.Format("2006-01-02"))
		r.Ping = ping
		return r, nil
	}
	if now.After(cert.NotAfter) {
		r := down("证书已过期于 %s", cert.NotAfter.Format("2006-01-02"))
		r.Ping = ping
		return r, nil
	}

	daysLeft := int(cert.NotAfter.Sub(now).Hours() / 24)
	return &Result{
		Status:  storage.StatusUp,
		Message: fmt.Sprintf("证书有效，%d 天后到期 (%s)", daysLeft, cert.NotAfter.Format("2006-01-02")),
		Ping:    ping,
		Details: map[string]any{
			"issuer":    cert.Issuer.CommonName,
			"subject":   cert.Subject.CommonName,
			"not_after": cert.NotAfter.Format(time.RFC3339),
		},
	}, nil
}
