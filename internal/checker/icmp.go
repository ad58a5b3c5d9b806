package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/mirrorhua/watchdog/internal/storage"
)

// ICMPChecker sends a burst of echo requests and judges packet loss and
// mean response time against the configured thresholds.
type ICMPChecker struct{}

func (c *ICMPChecker) Type() string { return storage.TypeICMP }

func (c *ICMPChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var settings storage.ICMPSettings
	if len(monitor.Settings) > 0 {
		if err := json.Unmarshal(monitor.Settings, &settings); err != nil {
			return invalidConfig("无法解析监控配置: %v", err), nil
		}
	}

	if settings.Hostname == "" {
		return invalidConfig("缺少 hostname"), nil
	}
	count := settings.PacketCount
	if count <= 0 {
		count = 4
	}

	timeout := timeoutOf(monitor)

	// Try IPv4 first, then IPv6.
	dst, isIPv6 := resolveICMPTarget(ctx, settings.Hostname)
	if dst == nil {
		return down("主机不存在 (%s): %s", errNoHost, settings.Hostname), nil
	}

	conn, err := listenICMP(isIPv6)
	if err != nil {
		return down("ICMP 监听失败: %v", err), nil
	}
	defer conn.Close()

	perPacket := timeout / time.Duration(count)
	replies := 0
	var totalRTT time.Duration
	for seq := 1; seq <= count; seq++ {
		rtt, ok := echoOnce(conn, dst, isIPv6, seq, perPacket)
		if ok {
			replies++
			totalRTT += rtt
		}
	}

	if replies == 0 {
		return down("主机无响应: %d 个包全部丢失", count), nil
	}

	loss := float64(count-replies) * 100 / float64(count)
	meanMs := (totalRTT / time.Duration(replies)).Milliseconds()
	ping := meanMs

	if loss > settings.MaxPacketLoss {
		r := down("丢包率 %.0f%% 超过阈值 %.0f%%", loss, settings.MaxPacketLoss)
		r.Ping = &ping
		return r, nil
	}
	if settings.MaxResponseTime > 0 && meanMs > settings.MaxResponseTime {
		r := down("平均响应时间 %dms 超过阈值 %dms", meanMs, settings.MaxResponseTime)
		r.Ping = &ping
		return r, nil
	}

	return &Result{
		Status:  storage.StatusUp,
		Message: fmt.Sprintf("ping %s: 丢包率 %.0f%%，平均 %dms", dst, loss, meanMs),
		Ping:    &ping,
	}, nil
}

func echoOnce(conn *icmp.PacketConn, dst net.IP, isIPv6 bool, seq int, timeout time.Duration) (time.Duration, bool) {
	start := time.Now()
	if err := sendEchoRequest(conn, dst, isIPv6, seq); err != nil {
		return 0, false
	}
	if !readEchoReply(conn, isIPv6, timeout) {
		return 0, false
	}
	return time.Since(start), true
}

func resolveICMPTarget(ctx context.Context, target string) (net.IP, bool) {
	if addrs, err := net.DefaultResolver.LookupIP(ctx, "ip4", target); err == nil && len(addrs) > 0 {
		return addrs[0], false
	}
	if addrs, err := net.DefaultResolver.LookupIP(ctx, "ip6", target); err == nil && len(addrs) > 0 {
		return addrs[0], true
	}
	return nil, false
}

func listenICMP(isIPv6 bool) (*icmp.PacketConn, error) {
	if isIPv6 {
		conn, err := icmp.ListenPacket("ip6:ipv6-icmp", "::")
		if err != nil {
			conn, err = icmp.ListenPacket("udp6", "::")
		}
		return conn, err
	}
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		conn, err = icmp.ListenPacket("udp4", "0.0.0.0")
	}
	return conn, err
}

func sendEchoRequest(conn *icmp.PacketConn, dst net.IP, isIPv6 bool, seq int) error {
	var msgType icmp.Type
	if isIPv6 {
		msgType = ipv6.ICMPTypeEchoRequest
	} else {
		msgType = ipv4.ICMPTypeEcho
	}

	msg := icmp.Message{
		Type: msgType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  seq,
			Data: []byte("watchdog-ping"),
		},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return err
	}

	var dstAddr net.Addr
	switch conn.LocalAddr().Network() {
	case "udp4", "udp6":
		dstAddr = &net.UDPAddr{IP: dst}
	default:
		dstAddr = &net.IPAddr{IP: dst}
	}
	_, err = conn.WriteTo(wb, dstAddr)
	return err
}

func readEchoReply(conn *icmp.PacketConn, isIPv6 bool, timeout time.Duration) bool {
	conn.SetReadDeadline(time.Now().Add(timeout))
	rb := make([]byte, 1500)
	n, _, err := conn.ReadFrom(rb)
	if err != nil {
		return false
	}

	var proto int
	switch conn.LocalAddr().Network() {
	case "udp4":
		proto = 1
	case "udp6":
		proto = 58
	default:
		if isIPv6 {
			proto = 58
		} else {
			proto = 1
		}
	}

	rm, err := icmp.ParseMessage(proto, rb[:n])
	if err != nil {
		return false
	}
	return rm.Type == ipv4.ICMPTypeEchoReply || rm.Type == ipv6.ICMPTypeEchoReply
}
