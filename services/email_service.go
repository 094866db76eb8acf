package services

import (
	"context"
	"fmt"
	"html"
	"perfumery_server/lib"
	"perfumery_server/structs"
	"perfumery_server/structs/tables"
	"strings"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/resend/resend-go/v3"
	"github.com/wneessen/go-mail"
)

// backgroundSendTimeout caps mail and event work that outlives its request
const backgroundSendTimeout = 30 * time.Second

// detach keeps ctx values but drops its cancellation, bounded by
// backgroundSendTimeout instead.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), backgroundSendTimeout)
}

type EmailService struct {
	logger *gecho.Logger
	cfg    *structs.EmailConfig
	sender Sender
}

func NewEmailService(logger *gecho.Logger, cfg *structs.EmailConfig, sender Sender) *EmailService {
	return &EmailService{
		logger: logger,
		cfg:    cfg,
		sender: sender,
	}
}

// NewSender picks the delivery backend from config. Unknown or "none"
// providers log the message instead of sending it.
func NewSender(cfg *structs.EmailConfig, logger *gecho.Logger) Sender {
	switch strings.ToLower(cfg.Provider) {
	case "resend":
		return &ResendSender{client: resend.NewClient(cfg.ApiKey), from: cfg.From}
	case "smtp":
		return &SMTPSender{cfg: cfg}
	default:
		return &LogSender{logger: logger}
	}
}

func (es *EmailService) SendEmail(ctx context.Context, to []string, subject, body string) error {
	if err := es.sender.Send(ctx, to, subject, body); err != nil {
		es.logger.Error("Failed to send email", gecho.Field("error", err), gecho.Field("to", to))
		return err
	}
	return nil
}

// SendOrderConfirmationEmail mails the customer a summary of the order.
// address is the plaintext delivery address.
func (es *EmailService) SendOrderConfirmationEmail(ctx context.Context, order *tables.Order, address string) error {
	var items strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&items, "<li>%dx %s - %s</li>", item.Quantity, html.EscapeString(item.ProductName), lib.FormatCents(item.Total))
	}

	emailBody := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<style>
				body { font-family: Georgia, serif; line-height: 1.6; color: #333; }
				.container { max-width: 600px; margin: 0 auto; padding: 20px; }
				.header { background-color: #2b2036; color: white; padding: 20px; text-align: center; }
				.content { padding: 20px; background-color: #faf7f2; }
				.order-details { background-color: white; padding: 15px; margin: 15px 0; border-radius: 5px; }
				ul { list-style-type: none; padding: 0; }
				li { padding: 5px 0; border-bottom: 1px solid #eee; }
			</style>
		</head>
		<body>
			<div class="container">
				<div class="header">
					<h1>Thank you for your order!</h1>
				</div>
				<div class="content">
					<p>Dear %s,</p>
					<p>We have received your order. Below you will find the details.</p>

					<div class="order-details">
						<h3>Order Number: <strong>%s</strong></h3>
						<ul>%s</ul>
						<p>Subtotal: %s<br>Shipping: %s<br>Tax: %s</p>
						<p><strong>Total: %s</strong></p>

						<h4>Delivery Address:</h4>
						<p>%s</p>
					</div>

					<p>Questions? Contact us at %s</p>
				</div>
			</div>
		</body>
		</html>
	`, html.EscapeString(order.CustomerName), order.OrderNumber, items.String(),
		lib.FormatCents(order.Subtotal), lib.FormatCents(order.Shipping), lib.FormatCents(order.Tax),
		lib.FormatCents(order.TotalAmount), html.EscapeString(address), es.cfg.SupportEmail)

	subject := fmt.Sprintf("Order confirmation %s", order.OrderNumber)
	return es.SendEmail(ctx, []string{order.CustomerEmail}, subject, emailBody)
}

func (es *EmailService) SendWelcomeEmail(ctx context.Context, user *tables.User) error {
	emailBody := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<body style="font-family: Georgia, serif; color: #333;">
			<h2>Welcome, %s</h2>
			<p>Your account has been created. Happy browsing!</p>
			<p>Questions? Contact us at %s</p>
		</body>
		</html>
	`, html.EscapeString(user.FullName), es.cfg.SupportEmail)

	return es.SendEmail(ctx, []string{user.Email}, "Welcome to the perfumery", emailBody)
}

// ResendSender delivers mail through the Resend API
type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, to []string, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      to,
		Html:    body,
		Subject: subject,
	}
	_, err := s.client.Emails.SendWithContext(ctx, params)
	return err
}

// SMTPSender delivers mail through a plain SMTP relay
type SMTPSender struct {
	cfg *structs.EmailConfig
}

func (s *SMTPSender) Send(ctx context.Context, to []string, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return err
	}
	if err := msg.To(to...); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	client, err := mail.NewClient(s.cfg.SMTPHost,
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(s.cfg.SMTPUsername),
		mail.WithPassword(s.cfg.SMTPPassword),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// LogSender only logs outgoing mail, used when no provider is configured
type LogSender struct {
	logger *gecho.Logger
}

func (s *LogSender) Send(_ context.Context, to []string, subject, _ string) error {
	s.logger.Info("Email not sent, no provider configured", gecho.Field("to", to), gecho.Field("subject", subject))
	return nil
}
