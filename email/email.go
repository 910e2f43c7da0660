// Package email sends the transactional mails of the marketplace over SMTP.
package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

type Links struct {
	ActivationURL string
	RecoveryURL   string
}

type Email struct {
	from     string
	password string
	host     string
	port     int
	links    Links
}

func New(address string, password string, host string, port int, links Links) *Email {
	return &Email{
		from:     address,
		password: password,
		host:     host,
		port:     port,
		links:    links,
	}
}

func (e *Email) send(to string, subject string, body string) error {
	msg := strings.Join([]string{
		"From: " + e.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	auth := smtp.PlainAuth("", e.from, e.password, e.host)
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	if err := smtp.SendMail(addr, auth, e.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("sending %q mail to %s: %w", subject, to, err)
	}
	return nil
}

func (e *Email) SendOrderConfirmation(to string, orderNumber string, total int64) error {
	body := fmt.Sprintf(
		"Thank you for your purchase!\n\n"+
			"Order number: %s\n"+
			"Total: $%.2f\n\n"+
			"Your downloads and courses are available in your account.",
		orderNumber, float64(total)/100)

	return e.send(to, "Your order "+orderNumber, body)
}

func (e *Email) SendSubscriptionConfirmation(to string, planID string, amount int64, interval string) error {
	body := fmt.Sprintf(
		"Your subscription is active.\n\n"+
			"Plan: %s\n"+
			"Price: $%.2f / %s\n",
		planID, float64(amount)/100, interval)

	return e.send(to, "Subscription confirmed", body)
}

func (e *Email) SendActivationToken(to string, token string) error {
	body := fmt.Sprintf(
		"Welcome! Activate your account by visiting:\n\n%s?token=%s\n",
		e.links.ActivationURL, token)

	return e.send(to, "Activate your account", body)
}

func (e *Email) SendRecoveryToken(to string, token string) error {
	body := fmt.Sprintf(
		"A password reset was requested for your account. Visit:\n\n%s?token=%s\n\n"+
			"If you did not request it, ignore this mail.",
		e.links.RecoveryURL, token)

	return e.send(to, "Reset your password", body)
}
