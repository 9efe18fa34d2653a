package payment

import (
	"context"
	"sync"

	"elearnhub/pkg/domain"
)

// MockGateway is a test double that answers scripted responses and
// records every call.
type MockGateway struct {
	MethodName     domain.PaymentMethod
	ChargeResponse Response
	VerifyResponse Response

	mu       sync.Mutex
	charges  []Request
	verifies []string
}

func (g *MockGateway) Method() domain.PaymentMethod { return g.MethodName }

func (g *MockGateway) Charge(ctx context.Context, req Request) Response {
	g.mu.Lock()
	g.charges = append(g.charges, req)
	g.mu.Unlock()
	return g.ChargeResponse
}

func (g *MockGateway) Verify(ctx context.Context, transactionID string) Response {
	g.mu.Lock()
	g.verifies = append(g.verifies, transactionID)
	g.mu.Unlock()
	resp := g.VerifyResponse
	if resp.TransactionID == "" {
		resp.TransactionID = transactionID
	}
	return resp
}

// Charges returns the requests seen so far.
func (g *MockGateway) Charges() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Request, len(g.charges))
	copy(out, g.charges)
	return out
}

// Verifications returns the transaction ids verified so far.
func (g *MockGateway) Verifications() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.verifies))
	copy(out, g.verifies)
	return out
}
