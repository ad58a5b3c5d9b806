package notifier

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"html"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/mirrorhua/watchdog/internal/storage"
)

type EmailSettings struct {
	Email      string `json:"email"`
	SMTPServer string `json:"smtpServer"`
	SMTPPort   int    `json:"smtpPort"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// EmailSender delivers over SMTP. Port 465 means implicit TLS; any other
// port connects in plain text and upgrades via STARTTLS when the server
// offers it.
type EmailSender struct{}

func (s *EmailSender) Type() string { return storage.ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, channel *storage.NotificationChannel, data *NotificationData) error {
	var cfg EmailSettings
	if err := json.Unmarshal(channel.Settings, &cfg); err != nil {
		return fmt.Errorf("parse email settings: %w", err)
	}
	if cfg.Email == "" || cfg.SMTPServer == "" || cfg.SMTPPort == 0 {
		return fmt.Errorf("email channel requires email, smtpServer and smtpPort")
	}

	from := cfg.Username
	if !strings.Contains(from, "@") {
		from = "watchdog@" + cfg.SMTPServer
	}
	subject := fmt.Sprintf("Monitor - %s 状态%s", data.MonitorName, data.StatusText())
	msg := buildMail(from, cfg.Email, subject, emailBody(data))

	addr := net.JoinHostPort(cfg.SMTPServer, fmt.Sprintf("%d", cfg.SMTPPort))
	client, err := dialSMTP(ctx, addr, cfg.SMTPServer, cfg.SMTPPort == 465)
	if err != nil {
		return err
	}
	defer client.Close()

	if cfg.SMTPPort != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.SMTPServer}); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}
	if cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPServer)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(cfg.Email); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}

func dialSMTP(ctx context.Context, addr, serverName string, implicitTLS bool) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("smtp dial: %w", err)
	}
	if implicitTLS {
		conn = tls.Client(conn, &tls.Config{ServerName: serverName})
	}
	client, err := smtp.NewClient(conn, serverName)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp handshake: %w", err)
	}
	return client, nil
}

func buildMail(from, to, subject, htmlBody string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	// Non-ASCII subjects need RFC 2047 encoding or MTAs mangle them.
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return b.String()
}

func emailBody(data *NotificationData) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h3>%s</h3>", html.EscapeString(data.MonitorName))
	fmt.Fprintf(&b, "<p>状态: <strong>%s</strong></p>", data.StatusText())
	fmt.Fprintf(&b, "<p>时间: %s</p>", data.Time.Format(timeLayout))
	fmt.Fprintf(&b, "<p>%s</p>",
		strings.ReplaceAll(html.EscapeString(data.Message), "\n", "<br>"))
	b.WriteString("</body></html>")
	return b.String()
}
