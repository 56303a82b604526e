package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/mrz1836/postmark"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var ErrSendFailed = errors.New("failed to send email")

// Sender entrega uma mensagem já renderizada
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	From     string
	To       string
	Subject  string
	Tag      string
	HTMLBody string
}

type postmarkSender struct {
	client *postmark.Client
}

func NewPostmarkSender(serverToken string) Sender {
	return &postmarkSender{client: postmark.NewClient(serverToken, "")}
}

func (p *postmarkSender) Send(ctx context.Context, msg Message) error {
	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:       msg.From,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.HTMLBody,
		TrackOpens: true,
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

// Template data structures
type WelcomeEmailData struct {
	Name string
}

type EmailItem struct {
	Name     string
	Quantity int
	Subtotal decimal.Decimal
}

type SubscriptionStartedData struct {
	Name         string
	PlanName     string
	Price        decimal.Decimal
	NextDelivery time.Time
	Items        []EmailItem
}

type SubscriptionCancelledData struct {
	Name        string
	PlanName    string
	CancelledAt time.Time
}

type OrderConfirmedData struct {
	Name    string
	OrderID uint
	Items   []EmailItem
	Total   decimal.Decimal
}

type LowStockProduct struct {
	Name          string
	StockQuantity int
}

type LowStockReportData struct {
	Date      time.Time
	Threshold int
	Products  []LowStockProduct
}

type EmailService struct {
	sender    Sender
	from      string
	templates *template.Template
}

func NewEmailService(sender Sender, from string) (*EmailService, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %w", err)
	}

	return &EmailService{
		sender:    sender,
		from:      from,
		templates: templates,
	}, nil
}

func (s *EmailService) sendTemplateEmail(ctx context.Context, to, subject, tag, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}

	err := s.sender.Send(ctx, Message{
		From:     s.from,
		To:       to,
		Subject:  subject,
		Tag:      tag,
		HTMLBody: body.String(),
	})
	if err != nil {
		return err
	}

	log.Debug().Str("to", to).Str("template", templateName).Msg("Email sent")
	return nil
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, email, name string) error {
	return s.sendTemplateEmail(ctx, email, "Bem-vindo à Fruitbox! 🍓", "welcome", "welcome.html", WelcomeEmailData{Name: name})
}

func (s *EmailService) SendSubscriptionStartedEmail(ctx context.Context, email string, data SubscriptionStartedData) error {
	subject := fmt.Sprintf("Sua assinatura %s está ativa! 🍍", data.PlanName)
	return s.sendTemplateEmail(ctx, email, subject, "subscription-started", "subscription_started.html", data)
}

func (s *EmailService) SendSubscriptionCancelledEmail(ctx context.Context, email string, data SubscriptionCancelledData) error {
	return s.sendTemplateEmail(ctx, email, "Sua assinatura foi cancelada", "subscription-cancelled", "subscription_cancelled.html", data)
}

func (s *EmailService) SendOrderConfirmedEmail(ctx context.Context, email string, data OrderConfirmedData) error {
	subject := fmt.Sprintf("Pedido #%d confirmado 🍎", data.OrderID)
	return s.sendTemplateEmail(ctx, email, subject, "order-confirmed", "order_confirmed.html", data)
}

func (s *EmailService) SendLowStockReport(ctx context.Context, email string, data LowStockReportData) error {
	subject := fmt.Sprintf("Estoque baixo: %d produto(s)", len(data.Products))
	return s.sendTemplateEmail(ctx, email, subject, "low-stock", "low_stock_report.html", data)
}
