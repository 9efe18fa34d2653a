// Package payment simulates the M-Pesa, card and PayPal gateways behind a
// single Gateway interface. None of the gateways contact a real provider:
// each builds the payload it would send, waits an artificial delay and
// answers a fixed success. Swap a Gateway implementation to integrate a
// real provider without touching callers.
package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"elearnhub/pkg/domain"

	"github.com/shopspring/decimal"
)

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type MpesaDetails struct {
	PhoneNumber string `json:"phoneNumber"`
}

// CardDetails is only read for the last four digits and the brand; the
// full number is never kept.
type CardDetails struct {
	Number      string `json:"number"`
	ExpiryMonth int    `json:"expiryMonth"`
	ExpiryYear  int    `json:"expiryYear"`
	CVC         string `json:"cvc"`
	HolderName  string `json:"holderName"`
}

type PayPalDetails struct {
	ReturnURL string `json:"returnUrl,omitempty"`
	CancelURL string `json:"cancelUrl,omitempty"`
}

// Request is the normalised input every gateway accepts.
type Request struct {
	Amount   decimal.Decimal      `json:"amount"`
	Currency string               `json:"currency"`
	Method   domain.PaymentMethod `json:"method"`
	CourseID string               `json:"courseId"`
	UserID   string               `json:"userId"`
	Customer Customer             `json:"customer"`
	Mpesa    *MpesaDetails        `json:"mpesa,omitempty"`
	Card     *CardDetails         `json:"card,omitempty"`
	PayPal   *PayPalDetails       `json:"paypal,omitempty"`
}

// Response is the normalised gateway answer. GatewayResponse carries the
// method-shaped body the provider would have returned.
type Response struct {
	Success         bool                 `json:"success"`
	TransactionID   string               `json:"transactionId,omitempty"`
	Status          domain.PaymentStatus `json:"status"`
	Message         string               `json:"message"`
	GatewayResponse any                  `json:"gatewayResponse,omitempty"`
}

// Gateway is one payment provider.
type Gateway interface {
	Method() domain.PaymentMethod
	Charge(ctx context.Context, req Request) Response
	Verify(ctx context.Context, transactionID string) Response
}

// Failed builds a failed response.
func Failed(format string, args ...any) Response {
	return Response{Success: false, Status: domain.PaymentFailed, Message: fmt.Sprintf(format, args...)}
}

// Delays configures the artificial latency of each simulated gateway.
type Delays struct {
	Mpesa  time.Duration
	Card   time.Duration
	PayPal time.Duration
}

// DefaultDelays mirrors the latency the simulated gateways have always had.
func DefaultDelays() Delays {
	return Delays{Mpesa: 2 * time.Second, Card: 1500 * time.Millisecond, PayPal: time.Second}
}

// Processor dispatches requests to the gateway registered for the method.
type Processor struct {
	mu       sync.RWMutex
	gateways map[domain.PaymentMethod]Gateway
}

func NewProcessor(gateways ...Gateway) *Processor {
	p := &Processor{gateways: make(map[domain.PaymentMethod]Gateway)}
	for _, g := range gateways {
		p.Register(g)
	}
	return p
}

// NewSimulatedProcessor registers the three simulated gateways.
func NewSimulatedProcessor(delays Delays, settings domain.PaymentSettings) *Processor {
	return NewProcessor(
		NewMpesaGateway(settings.MpesaShortcode, delays.Mpesa),
		NewCardGateway(delays.Card),
		NewPayPalGateway(settings.PayPalClientID, delays.PayPal),
	)
}

// Register adds or replaces the gateway for its method.
func (p *Processor) Register(g Gateway) {
	if g == nil {
		return
	}
	p.mu.Lock()
	p.gateways[g.Method()] = g
	p.mu.Unlock()
}

func (p *Processor) gateway(method domain.PaymentMethod) (Gateway, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g, ok := p.gateways[method]
	return g, ok
}

// Supports reports whether a gateway is registered for the method.
func (p *Processor) Supports(method domain.PaymentMethod) bool {
	_, ok := p.gateway(method)
	return ok
}

// Process charges the request through its method's gateway. It never
// returns an error: unknown methods and cancellation come back as a
// failed Response.
func (p *Processor) Process(ctx context.Context, req Request) Response {
	g, ok := p.gateway(req.Method)
	if !ok {
		return Failed("unsupported payment method %q", req.Method)
	}
	if err := ctx.Err(); err != nil {
		return Failed("payment cancelled: %v", err)
	}
	return g.Charge(ctx, req)
}

// Verify reports the transaction's state. It is a stub: nothing is checked
// against a gateway, and every transaction id, for any method, comes back
// completed. Registered gateways answer for their own method so tests can
// script other outcomes.
func (p *Processor) Verify(ctx context.Context, transactionID string, method domain.PaymentMethod) Response {
	if g, ok := p.gateway(method); ok {
		return g.Verify(ctx, transactionID)
	}
	return verified(transactionID)
}

// simulateLatency waits d or until ctx is done.
func simulateLatency(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func transactionID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%d", prefix, now.UnixMilli())
}

func verified(transactionID string) Response {
	return Response{
		Success:       true,
		TransactionID: transactionID,
		Status:        domain.PaymentCompleted,
		Message:       "Transaction verified",
	}
}
