package notifier

import (
	"strings"
	"testing"
)

func TestBuildMailEncodesSubject(t *testing.T) {
	msg := buildMail("from@example.com", "to@example.com", "Monitor - api 状态故障", "<html></html>")

	var subject string
	for _, line := range strings.Split(msg, "\r\n") {
		if strings.HasPrefix(line, "Subject: ") {
			subject = line
		}
	}
	if subject == "" {
		t.Fatalf("no subject header in %q", msg)
	}
	if !strings.Contains(subject, "=?UTF-8?q?") {
		t.Fatalf("subject not RFC 2047 encoded: %q", subject)
	}
	for _, r := range subject {
		if r > 127 {
			t.Fatalf("subject carries raw non-ASCII: %q", subject)
		}
	}
}

func TestBuildMailPlainSubjectStaysReadable(t *testing.T) {
	msg := buildMail("from@example.com", "to@example.com", "all clear", "<html></html>")
	if !strings.Contains(msg, "Subject: all clear\r\n") {
		t.Fatalf("ascii subject must pass through untouched: %q", msg)
	}
}
