package email

import (
	"strings"
	"testing"
	"time"
)

type captureSender struct {
	to, subject, html, text string
	err                     error
}

func (c *captureSender) Send(to, subject, htmlBody, textBody string) error {
	c.to, c.subject, c.html, c.text = to, subject, htmlBody, textBody
	return c.err
}

func TestSendVerification(t *testing.T) {
	cap := &captureSender{}
	svc := NewService(cap, "https://app.example.com")

	if err := svc.SendVerification("ana@example.com", "tok en+raro", 24*time.Hour); err != nil {
		t.Fatalf("SendVerification: %v", err)
	}
	if cap.to != "ana@example.com" {
		t.Errorf("to = %q", cap.to)
	}
	// el token va URL-escapado en el link
	want := "https://app.example.com/verify-email?token=tok+en%2Braro"
	if !strings.Contains(cap.html, want) {
		t.Errorf("html missing link %q:\n%s", want, cap.html)
	}
	if !strings.Contains(cap.text, want) {
		t.Errorf("text missing link %q", want)
	}
	if !strings.Contains(cap.html, "24 horas") {
		t.Error("html missing TTL")
	}
}

func TestSendPasswordReset(t *testing.T) {
	cap := &captureSender{}
	svc := NewService(cap, "https://app.example.com")

	if err := svc.SendPasswordReset("ana@example.com", "abc123", time.Hour); err != nil {
		t.Fatalf("SendPasswordReset: %v", err)
	}
	if !strings.Contains(cap.html, "https://app.example.com/reset-password?token=abc123") {
		t.Errorf("html missing reset link:\n%s", cap.html)
	}
	if cap.subject == "" {
		t.Error("empty subject")
	}
}

func TestHumanTTL(t *testing.T) {
	if got := humanTTL(90 * time.Minute); got != "1 horas" {
		t.Errorf("humanTTL(90m) = %q", got)
	}
	if got := humanTTL(15 * time.Minute); got != "15 minutos" {
		t.Errorf("humanTTL(15m) = %q", got)
	}
}
