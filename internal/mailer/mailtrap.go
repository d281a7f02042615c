package mailer

import (
	"errors"
	"fmt"
	"time"

	gomail "gopkg.in/mail.v2"
)

const (
	mailTrapHost = "live.smtp.mailtrap.io"
	mailTrapPort = 587
	mailTrapUser = "api"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type MailTrapClient struct {
	fromEmail string
	dialer    dialer
	backoff   time.Duration
}

func NewMailTrapClient(apiKey, fromEmail string) (MailTrapClient, error) {
	if apiKey == "" {
		return MailTrapClient{}, errors.New("api key is required")
	}
	if fromEmail == "" {
		return MailTrapClient{}, errors.New("from email is required")
	}

	return MailTrapClient{
		fromEmail: fromEmail,
		dialer:    gomail.NewDialer(mailTrapHost, mailTrapPort, mailTrapUser, apiKey),
		backoff:   time.Second,
	}, nil
}

// Send renders templateFile and delivers it, retrying with a linear backoff.
// It returns the number of attempts made.
func (m MailTrapClient) Send(templateFile, username, email string, data any) (int, error) {
	subject, body, err := render(templateFile, data)
	if err != nil {
		return 0, err
	}

	message := gomail.NewMessage()
	message.SetAddressHeader("From", m.fromEmail, FromName)
	message.SetAddressHeader("To", email, username)
	message.SetHeader("Subject", subject)
	message.SetBody("text/html", body)

	var retryErr error
	for i := 0; i < maxRetires; i++ {
		if retryErr = m.dialer.DialAndSend(message); retryErr == nil {
			return i + 1, nil
		}
		time.Sleep(m.backoff * time.Duration(i+1))
	}

	return maxRetires, fmt.Errorf("failed to send email after %d attempts, error: %v", maxRetires, retryErr)
}
