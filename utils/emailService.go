package utils

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"prolific/logger"
)

// Mailer delivers one HTML email.
type Mailer interface {
	Send(ctx context.Context, toEmail, toName string, content EmailContent) error
}

type EmailContent struct {
	Subject string
	HTML    string
}

// SendGridMailer sends through the SendGrid v3 API.
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
	log    *logger.Logger
}

func NewSendGridMailer(apiKey, sender string, baseLog *logger.Logger) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("Prolific", sender),
		log:    baseLog.With("mailer", "sendgrid"),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, toEmail, toName string, content EmailContent) error {
	msg := mail.NewSingleEmail(m.from, content.Subject, mail.NewEmail(toName, toEmail), "", content.HTML)
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		m.log.Warn("Error sending email", "to", toEmail, "error", err)
		return err
	}
	if resp.StatusCode >= 300 {
		m.log.Warn("Email rejected", "to", toEmail, "status", resp.StatusCode, "body", resp.Body)
		return fmt.Errorf("sendgrid responded %d", resp.StatusCode)
	}
	m.log.Debug("Email sent", "to", toEmail, "subject", content.Subject)
	return nil
}

// LogMailer only logs; used when no SendGrid key is configured.
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(baseLog *logger.Logger) *LogMailer {
	return &LogMailer{log: baseLog.With("mailer", "log")}
}

func (m *LogMailer) Send(_ context.Context, toEmail, _ string, content EmailContent) error {
	m.log.Info("Email not sent, no mail provider configured", "to", toEmail, "subject", content.Subject)
	return nil
}

func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #3B2F8F; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #222222; line-height: 1.6; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>PROLIFIC</h1></div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">You can turn reminders off in the app settings.</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

func WelcomeEmail(name string) EmailContent {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Welcome to <strong>Prolific</strong>! Your first exercise is already unlocked.</p>
	`, name)
	return EmailContent{Subject: "Welcome to Prolific", HTML: getEmailTemplate("Welcome aboard!", body)}
}

func ReminderEmail(name string, dailyGoal int) EmailContent {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>You have not finished an exercise today. Your daily goal is <strong>%d</strong>.</p>
		<p>A few minutes is enough to keep your streak going.</p>
	`, name, dailyGoal)
	return EmailContent{Subject: "Time for today's exercise", HTML: getEmailTemplate("Keep it going", body)}
}
