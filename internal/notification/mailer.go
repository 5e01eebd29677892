package notification

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/Nayan-Shrivastava/task-management-app/pkg/logger"
)

// Mailer sends account lifecycle emails. Sends are fire-and-forget: the
// caller's request never blocks on or fails from delivery.
type Mailer interface {
	SendWelcome(email, name string)
	SendCancellation(email, name string)
	Close()
}

type message struct {
	to      string
	toName  string
	subject string
	body    string
}

// SendGridMailer pushes messages through a buffered queue drained by a
// single worker goroutine. Delivery is at-most-once, best-effort: a full
// queue drops the message and a failed send is only logged.
type SendGridMailer struct {
	client *sendgrid.Client
	sender string
	queue  chan message
	done   chan struct{}
}

func NewSendGridMailer(apiKey, sender string) *SendGridMailer {
	m := &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		sender: sender,
		queue:  make(chan message, 64),
		done:   make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *SendGridMailer) SendWelcome(email, name string) {
	m.enqueue(message{
		to:      email,
		toName:  name,
		subject: "Thanks for joining in!",
		body:    fmt.Sprintf("Welcome to the our tasks app!, %s. Let us know how you get along with the app.", name),
	})
}

func (m *SendGridMailer) SendCancellation(email, name string) {
	m.enqueue(message{
		to:      email,
		toName:  name,
		subject: "Sorry to see you go!",
		body:    fmt.Sprintf("Goodbye, %s. I hope to see you back sometime soon.", name),
	})
}

// Close stops accepting messages and waits for the worker to drain what
// is already queued.
func (m *SendGridMailer) Close() {
	close(m.queue)
	<-m.done
}

func (m *SendGridMailer) enqueue(msg message) {
	select {
	case m.queue <- msg:
	default:
		logger.ErrorLogger.Error("Mail queue full, dropping message",
			zap.String("to", msg.to), zap.String("subject", msg.subject))
	}
}

func (m *SendGridMailer) run() {
	defer close(m.done)
	for msg := range m.queue {
		from := mail.NewEmail("Task Manager", m.sender)
		to := mail.NewEmail(msg.toName, msg.to)
		email := mail.NewSingleEmail(from, msg.subject, to, msg.body, msg.body)

		resp, err := m.client.Send(email)
		if err != nil {
			logger.ErrorLogger.Error("Failed to send email",
				zap.String("to", msg.to), zap.Error(err))
			continue
		}
		logger.AuditLogger.Info("Email sent",
			zap.String("to", msg.to),
			zap.String("subject", msg.subject),
			zap.Int("status_code", resp.StatusCode),
		)
	}
}

// NopMailer discards every message. Used in tests and when no API key is
// configured.
type NopMailer struct{}

func (NopMailer) SendWelcome(email, name string)      {}
func (NopMailer) SendCancellation(email, name string) {}
func (NopMailer) Close()                              {}
