package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Network error kinds distinguished by the error taxonomy.
const (
	errRefused  = "CONNECTION_REFUSED"
	errTimeout  = "TIMEOUT"
	errNoHost   = "HOST_NOT_FOUND"
	errTLS      = "TLS_ERROR"
	errNetwork  = "NETWORK_ERROR"
)

// classifyNetErr maps a dial/request error to a down Result with a distinct
// message per failure kind.
func classifyNetErr(err error, ping *int64) *Result {
	r := down("%s", netErrMessage(err))
	r.Ping = ping
	return r
}

func netErrMessage(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Sprintf("主机不存在 (%s): %s", errNoHost, dnsErr.Name)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Sprintf("连接被拒绝 (%s)", errRefused)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("连接超时 (%s)", errTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("连接超时 (%s)", errTimeout)
	}
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostnameErr) {
		return fmt.Sprintf("证书校验失败 (%s): %v", errTLS, err)
	}
	return fmt.Sprintf("网络错误 (%s): %v", errNetwork, err)
}
