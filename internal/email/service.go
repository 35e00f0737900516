package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"

	"github.com/redmonkez12/tutorhub-identity/internal/logging"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service renders templated emails and delivers them over SMTP
type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	frontendURL  string
	logger       *logging.Logger
	sendMail     sendMailFunc
}

func NewService(smtpHost, smtpPort, smtpUser, smtpPassword, fromEmail, frontendURL string, logger *logging.Logger) *Service {
	return &Service{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		fromEmail:    fromEmail,
		frontendURL:  frontendURL,
		logger:       logger,
		sendMail:     smtp.SendMail,
	}
}

type content struct {
	subject string
	tmpl    *template.Template
	data    templateData
}

type templateData struct {
	Name string
	Link string
}

// Send renders m and delivers it. Without an SMTP host the email is only logged.
func (s *Service) Send(ctx context.Context, m Message) error {
	c, err := s.contentFor(m)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, c.data); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	if s.smtpHost == "" {
		s.logger.Warn("smtp not configured, email not delivered",
			"kind", m.Kind,
			"email", m.To,
		)
		return nil
	}

	if err := s.sendEmail(m.To, c.subject, buf.String()); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("email sent", "kind", m.Kind, "email", m.To)
	return nil
}

func (s *Service) contentFor(m Message) (*content, error) {
	data := templateData{Name: m.Name}

	switch m.Kind {
	case KindVerification:
		data.Link = s.link("/verify-email", m)
		return &content{subject: "Verify your email address", tmpl: verificationTmpl, data: data}, nil
	case KindPasswordReset:
		data.Link = s.link("/reset-password", m)
		return &content{subject: "Reset your password", tmpl: passwordResetTmpl, data: data}, nil
	case KindTutorApproved:
		data.Link = s.frontendURL + "/login"
		return &content{subject: "Your tutor account has been approved", tmpl: tutorApprovedTmpl, data: data}, nil
	case KindTutorRejected:
		return &content{subject: "Your tutor application", tmpl: tutorRejectedTmpl, data: data}, nil
	default:
		return nil, fmt.Errorf("unknown email kind %q", m.Kind)
	}
}

// link builds a frontend link carrying the token
func (s *Service) link(path string, m Message) string {
	q := url.Values{}
	q.Set("token", m.Token)
	return s.frontendURL + path + "?" + q.Encode()
}

func (s *Service) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return s.sendMail(addr, auth, s.fromEmail, []string{to}, msg)
}
