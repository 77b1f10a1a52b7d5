package email

import (
	"fmt"
	"net/url"
	"time"
)

// Service arma y despacha los correos transaccionales con links hacia el
// frontend público.
type Service struct {
	sender  Sender
	baseURL string // ej. https://app.wayfarer.example
}

// NewService construye el Service. Un sender nil degrada a LogSender.
func NewService(sender Sender, baseURL string) *Service {
	if sender == nil {
		sender = LogSender{}
	}
	return &Service{sender: sender, baseURL: baseURL}
}

// SendVerification envía el correo de verificación de cuenta.
func (s *Service) SendVerification(to, token string, ttl time.Duration) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, url.QueryEscape(token))
	html, text, err := renderVerify(link, humanTTL(ttl))
	if err != nil {
		return err
	}
	return s.sender.Send(to, "Verificá tu cuenta de Wayfarer", html, text)
}

// SendPasswordReset envía el correo de reset de contraseña.
func (s *Service) SendPasswordReset(to, token string, ttl time.Duration) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, url.QueryEscape(token))
	html, text, err := renderReset(link, humanTTL(ttl))
	if err != nil {
		return err
	}
	return s.sender.Send(to, "Restablecé tu contraseña", html, text)
}

func humanTTL(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%d horas", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutos", int(d.Minutes()))
}
