package services

import (
	"bizcard/config"
	"bizcard/utils"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

// Sender отправляет письмо. Реализуется gomail.Dialer, в тестах подменяется.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService предоставляет методы для отправки email
type EmailService struct {
	sender  Sender
	from    string
	baseURL string
	log     *utils.Logger
}

// NewEmailService создает новый экземпляр EmailService. Пустой smtp.host отключает отправку.
func NewEmailService(cfg *config.Config, log *utils.Logger) *EmailService {
	s := &EmailService{
		from:    cfg.SMTP.From,
		baseURL: cfg.App.PublicBaseURL,
		log:     log,
	}
	if cfg.SMTP.Host != "" {
		s.sender = gomail.NewDialer(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Username,
			cfg.SMTP.Password,
		)
	}
	return s
}

// NewEmailServiceWithSender создает сервис с произвольным отправителем
func NewEmailServiceWithSender(sender Sender, from, baseURL string, log *utils.Logger) *EmailService {
	return &EmailService{sender: sender, from: from, baseURL: baseURL, log: log}
}

// Enabled сообщает, настроена ли отправка писем
func (s *EmailService) Enabled() bool {
	return s.sender != nil
}

// SendEmail отправляет email
func (s *EmailService) SendEmail(to, subject, body string) error {
	if s.sender == nil {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("ошибка отправки email: %w", err)
	}

	return nil
}

// SendWelcome отправляет приветственное письмо после регистрации
func (s *EmailService) SendWelcome(to, firstName string) error {
	subject := "Welcome to Bizcard"
	body := fmt.Sprintf(`
		<h2>Welcome, %s!</h2>
		<p>Your account is ready. Create your first business card at <a href="%s">%s</a>.</p>
		<p>The free plan includes one card. Upgrade any time to create more.</p>
	`, html.EscapeString(firstName), s.baseURL, s.baseURL)

	return s.SendEmail(to, subject, body)
}

// SendWelcomeAsync отправляет приветствие в фоне. Ошибка только логируется: регистрация от нее не зависит.
func (s *EmailService) SendWelcomeAsync(to, firstName string) {
	if s.sender == nil {
		return
	}
	go func() {
		if err := s.SendWelcome(to, firstName); err != nil {
			s.log.Warn("welcome email failed", "to", to, "error", err)
		}
	}()
}
