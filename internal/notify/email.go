package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"price-tracker/internal/model"
)

// EmailService sends alert emails over SMTP
type EmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       string
	currency string
}

var _ Channel = (*EmailService)(nil)

// NewEmailService creates a new email notification service
func NewEmailService(host string, port int, username, password, from, to, currency string) *EmailService {
	return &EmailService{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		currency: currency,
	}
}

func (e *EmailService) Name() string {
	return "email"
}

// Send emails a below-threshold alert to the configured recipient
func (e *EmailService) Send(ctx context.Context, alert model.Alert) error {
	subject := fmt.Sprintf("Price alert: %s is now %s%.2f", alert.ProductName, e.currency, alert.Price)
	return e.SendEmail(ctx, e.to, subject, e.buildAlertHTML(alert))
}

// SendEmail sends an email
func (e *EmailService) SendEmail(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("recipient email is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := e.buildMessage(to, subject, body)
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	// Try explicit STARTTLS first
	if err := e.sendWithTLS(addr, to, msg); err == nil {
		return nil
	}

	return smtp.SendMail(addr, smtp.PlainAuth("", e.username, e.password, e.host), e.username, []string{to}, []byte(msg))
}

// sendWithTLS upgrades the connection with STARTTLS before authenticating
func (e *EmailService) sendWithTLS(addr, to, msg string) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: e.host}); err != nil {
		return err
	}
	if err := client.Auth(smtp.PlainAuth("", e.username, e.password, e.host)); err != nil {
		return err
	}
	if err := client.Mail(e.username); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(wc, msg); err != nil {
		wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// buildMessage builds the email message
func (e *EmailService) buildMessage(to, subject, body string) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("From: %s\r\n", e.from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	return msg.String()
}

func (e *EmailService) buildAlertHTML(alert model.Alert) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif;">
	<h2>%s</h2>
	<p>The price dropped to <strong>%s%.2f</strong>, below your threshold of %s%.2f.</p>
	%s
	<p style="color: #999; font-size: 12px;">Checked at %s</p>
</body>
</html>`,
		html.EscapeString(alert.ProductName),
		e.currency, alert.Price,
		e.currency, alert.Threshold,
		buildButton(alert.URL),
		alert.Timestamp.Format(time.RFC1123),
	)
}

// buildButton builds the HTML for a call-to-action link
func buildButton(url string) string {
	if url == "" {
		return ""
	}
	return fmt.Sprintf(`<p><a href="%s">View product</a></p>`, html.EscapeString(url))
}
