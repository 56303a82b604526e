// Package paymenttest oferece um gateway em memória para testes.
package paymenttest

import (
	"context"
	"fmt"
	"sync"

	"fruitbox_backend/pkg/payment"
)

// Gateway registra as chamadas e devolve respostas configuráveis
type Gateway struct {
	mu sync.Mutex

	Sessions map[string]*payment.Session
	Events   map[string]*payment.Event // por assinatura do webhook

	CreateSessionErr error
	GetSessionErr    error
	CancelErr        error
	PauseErr         error
	ResumeErr        error
	CustomerErr      error
	AttachErr        error

	CreatedSessions []payment.CheckoutParams
	GetCalls        []string
	CancelCalls     []string
	PauseCalls      []string
	ResumeCalls     []string
	Customers       []string
	Attached        map[string]string // payment method -> customer
}

func New() *Gateway {
	return &Gateway{
		Sessions: make(map[string]*payment.Session),
		Events:   make(map[string]*payment.Event),
		Attached: make(map[string]string),
	}
}

func (g *Gateway) AddSession(s *payment.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Sessions[s.ID] = s
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, params payment.CheckoutParams) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateSessionErr != nil {
		return nil, g.CreateSessionErr
	}
	g.CreatedSessions = append(g.CreatedSessions, params)
	id := fmt.Sprintf("cs_test_%d", len(g.CreatedSessions))
	return &payment.CheckoutSession{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (g *Gateway) GetCheckoutSession(ctx context.Context, sessionID string) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.GetCalls = append(g.GetCalls, sessionID)
	if g.GetSessionErr != nil {
		return nil, g.GetSessionErr
	}
	s, ok := g.Sessions[sessionID]
	if !ok {
		return nil, payment.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (g *Gateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.CancelCalls = append(g.CancelCalls, subscriptionID)
	return g.CancelErr
}

func (g *Gateway) PauseSubscription(ctx context.Context, subscriptionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.PauseCalls = append(g.PauseCalls, subscriptionID)
	return g.PauseErr
}

func (g *Gateway) ResumeSubscription(ctx context.Context, subscriptionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ResumeCalls = append(g.ResumeCalls, subscriptionID)
	return g.ResumeErr
}

func (g *Gateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CustomerErr != nil {
		return "", g.CustomerErr
	}
	g.Customers = append(g.Customers, email)
	return fmt.Sprintf("cus_test_%d", len(g.Customers)), nil
}

func (g *Gateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.AttachErr != nil {
		return g.AttachErr
	}
	g.Attached[paymentMethodID] = customerID
	return nil
}

func (g *Gateway) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ev, ok := g.Events[signature]
	if !ok {
		return nil, payment.ErrInvalidSignature
	}
	return ev, nil
}

// Calls devolve uma cópia do número de chamadas ao gateway de cancelamento
func (g *Gateway) CancelCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.CancelCalls)
}
