package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

const maxBodyRead = 1 << 20 // 1MB

var allowedMethods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true, http.MethodDelete: true,
	http.MethodHead: true, http.MethodOptions: true, http.MethodPatch: true,
}

// defaultMaxRedirects applies when maxRedirects is unset; 0 disables
// redirect following entirely.
const defaultMaxRedirects = 10

type HTTPChecker struct {
	// CertExpiryDays is the notifyCertExpiry threshold.
	CertExpiryDays int
}

func (c *HTTPChecker) Type() string { return storage.TypeHTTP }

func (c *HTTPChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var settings storage.HTTPSettings
	if len(monitor.Settings) > 0 {
		if err := json.Unmarshal(monitor.Settings, &settings); err != nil {
			return invalidConfig("无法解析监控配置: %v", err), nil
		}
	}

	out, bad := fetchHTTP(ctx, &settings, timeoutOf(monitor), false)
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

	if settings.NotifyCertExpiry && out.leafCert != nil {
		if bad := c.checkCertExpiry(out.leafCert); bad != nil {
			bad.Ping = out.ping
			return bad, nil
		}
	}

	return &Result{
		Status:  storage.StatusUp,
		Message: fmt.Sprintf("HTTP %d", out.statusCode),
		Ping:    out.ping,
	}, nil
}

func (c *HTTPChecker) checkCertExpiry(cert *x509.Certificate) *Result {
	now := time.Now()
	if now.After(cert.NotAfter) {
		return down("证书已过期于 %s", cert.NotAfter.Format("2006-01-02"))
	}
	daysLeft := int(cert.NotAfter.Sub(now).Hours() / 24)
	if daysLeft < c.CertExpiryDays {
		return down("证书即将过期: %d 天后 (%s)", daysLeft, cert.NotAfter.Format("2006-01-02"))
	}
	return nil
}

// httpOutcome is the successful transport-level outcome of an HTTP fetch;
// status code acceptance is judged by the caller.
type httpOutcome struct {
	statusCode int
	body       string
	ping       *int64
	leafCert   *x509.Certificate
}

// fetchHTTP performs the request described by settings. It returns either
// an outcome or a ready-made down Result for config and network failures.
func fetchHTTP(ctx context.Context, settings *storage.HTTPSettings, timeout time.Duration, readBody bool) (*httpOutcome, *Result) {
	if settings.URL == "" {
		return nil, invalidConfig("缺少 url")
	}

	method := strings.ToUpper(settings.Method)
	if method == "" {
		method = http.MethodGet
	}
	if !allowedMethods[method] {
		return nil, invalidConfig("不支持的请求方法 %s", settings.Method)
	}

	if settings.ConnectTimeout > 0 {
		if settings.ConnectTimeout < 1 || settings.ConnectTimeout > 300 {
			return nil, invalidConfig("connectTimeout %d 超出 1-300 秒范围", settings.ConnectTimeout)
		}
		timeout = time.Duration(settings.ConnectTimeout) * time.Second
	}

	var bodyReader io.Reader
	if settings.Body != "" {
		bodyReader = strings.NewReader(settings.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, settings.URL, bodyReader)
	if err != nil {
		return nil, invalidConfig("无效的请求: %v", err)
	}
	for k, v := range settings.Headers {
		req.Header.Set(k, v)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: settings.IgnoreTLS,
		},
		DisableKeepAlives: true,
	}

	client := &http.Client{
		Transport:     transport,
		Timeout:       timeout,
		CheckRedirect: redirectPolicy(settings.MaxRedirects),
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyNetErr(err, pingMs(start))
	}
	defer resp.Body.Close()

	out := &httpOutcome{statusCode: resp.StatusCode}
	if readBody {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
		out.body = string(bodyBytes)
	} else {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyRead))
	}
	out.ping = pingMs(start)

	if resp.TLS != nil && len(resp.TLS.PeerCertificates) > 0 {
		out.leafCert = resp.TLS.PeerCertificates[0]
	}
	return out, nil
}

// redirectPolicy builds the CheckRedirect hook for a maxRedirects setting.
// nil means the default cap; 0 or less stops on the first response.
func redirectPolicy(maxRedirects *int) func(*http.Request, []*http.Request) error {
	max := defaultMaxRedirects
	if maxRedirects != nil {
		max = *maxRedirects
	}
	if max <= 0 {
		return func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) > max {
			return fmt.Errorf("超过最大重定向次数 %d", max)
		}
		return nil
	}
}

// acceptStatus reports whether code falls in the accepted set: a single
// number ("200"), an inclusive range ("200-299"), or 2xx when empty.
func acceptStatus(code int, spec string) (bool, *Result) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return code >= 200 && code <= 299, nil
	}
	if lo, hi, found := strings.Cut(spec, "-"); found {
		min, err1 := strconv.Atoi(strings.TrimSpace(lo))
		max, err2 := strconv.Atoi(strings.TrimSpace(hi))
		if err1 != nil || err2 != nil || min > max {
			return false, invalidConfig("statusCodes %q 不是有效的状态码范围", spec)
		}
		return code >= min && code <= max, nil
	}
	want, err := strconv.Atoi(spec)
	if err != nil {
		return false, invalidConfig("statusCodes %q 不是有效的状态码", spec)
	}
	return code == want, nil
}

func statusCodesOrDefault(spec string) string {
	if strings.TrimSpace(spec) == "" {
		return "2xx"
	}
	return spec
}
