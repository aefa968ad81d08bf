package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/ManuelReschke/OrderFox/app/models"
	"github.com/ManuelReschke/OrderFox/internal/pkg/env"
)

// SendMail sends an HTML email via the configured SMTP relay.
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = "no-reply@localhost"
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	return smtp.SendMail(addr, auth, sender, []string{to}, msg)
}

// SendOrderConfirmation mails a payment confirmation for a paid order.
func SendOrderConfirmation(to string, order *models.Order) error {
	subject := fmt.Sprintf("Your order %s is confirmed", order.PublicID)

	body := fmt.Sprintf(
		"<h1>Thank you for your order!</h1>"+
			"<p>Your payment for order <strong>%s</strong> was received.</p>"+
			"<p>Total: %.2f %s</p>",
		order.PublicID,
		float64(order.AmountCents)/100,
		order.Currency,
	)

	return SendMail(to, subject, body)
}
