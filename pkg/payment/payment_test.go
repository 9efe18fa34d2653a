package payment

import (
	"context"
	"strings"
	"testing"
	"time"

	"elearnhub/pkg/domain"

	"github.com/shopspring/decimal"
)

func newTestProcessor() *Processor {
	return NewSimulatedProcessor(Delays{}, domain.PaymentSettings{MpesaShortcode: "600000", PayPalClientID: "client"})
}

func baseRequest(method domain.PaymentMethod) Request {
	return Request{
		Amount:   decimal.RequireFromString("49.99"),
		Currency: "usd",
		Method:   method,
		CourseID: "course-1",
		UserID:   "user-1",
		Customer: Customer{Name: "Amina", Email: "amina@example.com", Phone: "0712 345 678"},
	}
}

func TestProcessStatusIsDeterministicPerMethod(t *testing.T) {
	p := newTestProcessor()
	cases := []struct {
		method  domain.PaymentMethod
		status  domain.PaymentStatus
		prefix  string
		success bool
	}{
		{domain.MethodMpesa, domain.PaymentPending, "MPESA_", true},
		{domain.MethodCard, domain.PaymentCompleted, "CARD_", true},
		{domain.MethodPayPal, domain.PaymentPending, "PAYPAL_", true},
		{"unknown", domain.PaymentFailed, "", false},
	}
	for _, tc := range cases {
		for i := 0; i < 3; i++ {
			resp := p.Process(context.Background(), baseRequest(tc.method))
			if resp.Status != tc.status || resp.Success != tc.success {
				t.Fatalf("%s: got status=%q success=%v", tc.method, resp.Status, resp.Success)
			}
			if tc.prefix != "" && !strings.HasPrefix(resp.TransactionID, tc.prefix) {
				t.Fatalf("%s: unexpected transaction id %q", tc.method, resp.TransactionID)
			}
			if tc.prefix == "" && resp.TransactionID != "" {
				t.Fatalf("failed response must not carry a transaction id")
			}
		}
	}
}

func TestMpesaPayloadShape(t *testing.T) {
	resp := newTestProcessor().Process(context.Background(), baseRequest(domain.MethodMpesa))
	body, ok := resp.GatewayResponse.(STKPushResponse)
	if !ok {
		t.Fatalf("unexpected gateway response %T", resp.GatewayResponse)
	}
	if body.ResponseCode != "0" || body.Request.BusinessShortCode != "600000" {
		t.Fatalf("unexpected stk response: %+v", body)
	}
	if body.Request.PhoneNumber != "254712345678" {
		t.Fatalf("expected normalised msisdn, got %q", body.Request.PhoneNumber)
	}
	if body.Request.Amount != "50" {
		t.Fatalf("expected amount rounded up to whole shillings, got %q", body.Request.Amount)
	}
}

func TestCardPayloadKeepsOnlyLast4(t *testing.T) {
	req := baseRequest(domain.MethodCard)
	req.Card = &CardDetails{Number: "4242 4242 4242 4242", ExpiryMonth: 12, ExpiryYear: 2030, CVC: "123", HolderName: "Amina"}
	resp := newTestProcessor().Process(context.Background(), req)
	body, ok := resp.GatewayResponse.(CardChargeResult)
	if !ok {
		t.Fatalf("unexpected gateway response %T", resp.GatewayResponse)
	}
	if body.Charge.Last4 != "4242" || body.Charge.Brand != "visa" || body.Charge.Currency != "USD" {
		t.Fatalf("unexpected charge: %+v", body.Charge)
	}
	if body.Charge.Amount != "49.99" {
		t.Fatalf("unexpected amount: %q", body.Charge.Amount)
	}
}

func TestPayPalOrderHasApproveLink(t *testing.T) {
	resp := newTestProcessor().Process(context.Background(), baseRequest(domain.MethodPayPal))
	link := ApproveURL(resp)
	if !strings.Contains(link, "token="+resp.TransactionID) {
		t.Fatalf("unexpected approve link %q", link)
	}
	order := resp.GatewayResponse.(PayPalOrder)
	if order.Status != "PAYER_ACTION_REQUIRED" || order.Payer.Email != "amina@example.com" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if ApproveURL(Response{}) != "" {
		t.Fatalf("expected empty link for non-paypal response")
	}
}

func TestVerifyAlwaysCompletes(t *testing.T) {
	p := newTestProcessor()
	for _, method := range []domain.PaymentMethod{domain.MethodMpesa, domain.MethodCard, domain.MethodPayPal} {
		resp := p.Verify(context.Background(), "TX_1", method)
		if !resp.Success || resp.Status != domain.PaymentCompleted || resp.TransactionID != "TX_1" {
			t.Fatalf("%s: unexpected verify response %+v", method, resp)
		}
	}
	// the stub answers for methods it has no gateway for, and for any id
	if resp := p.Verify(context.Background(), "MPESA_1", "bitcoin"); !resp.Success || resp.Status != domain.PaymentCompleted || resp.TransactionID != "MPESA_1" {
		t.Fatalf("expected unknown method to verify as completed, got %+v", resp)
	}
	if resp := p.Verify(context.Background(), "", domain.MethodCard); !resp.Success || resp.Status != domain.PaymentCompleted {
		t.Fatalf("expected empty transaction id to verify as completed, got %+v", resp)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if resp := p.Verify(ctx, "TX_2", domain.MethodPayPal); resp.Status != domain.PaymentCompleted {
		t.Fatalf("verify must not depend on the context, got %+v", resp)
	}
}

func TestProcessHonoursCancellation(t *testing.T) {
	p := NewSimulatedProcessor(Delays{Mpesa: time.Minute}, domain.PaymentSettings{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	resp := p.Process(ctx, baseRequest(domain.MethodMpesa))
	if time.Since(start) > 5*time.Second {
		t.Fatalf("cancellation did not interrupt the delay")
	}
	if resp.Success || resp.Status != domain.PaymentFailed {
		t.Fatalf("expected failed response, got %+v", resp)
	}

	done, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	if resp := p.Process(done, baseRequest(domain.MethodCard)); resp.Status != domain.PaymentFailed {
		t.Fatalf("expected cancelled context to fail, got %+v", resp)
	}
}

func TestMockGatewayReachesFailedBranch(t *testing.T) {
	mock := &MockGateway{
		MethodName:     domain.MethodCard,
		ChargeResponse: Failed("card declined"),
		VerifyResponse: Response{Success: false, Status: domain.PaymentFailed, Message: "not found"},
	}
	p := NewProcessor(mock)
	resp := p.Process(context.Background(), baseRequest(domain.MethodCard))
	if resp.Success || resp.Status != domain.PaymentFailed || resp.Message != "card declined" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got := mock.Charges(); len(got) != 1 || got[0].CourseID != "course-1" {
		t.Fatalf("unexpected recorded charges: %+v", got)
	}
	verify := p.Verify(context.Background(), "CARD_1", domain.MethodCard)
	if verify.Status != domain.PaymentFailed || verify.TransactionID != "CARD_1" {
		t.Fatalf("unexpected verify %+v", verify)
	}
	if !p.Supports(domain.MethodCard) || p.Supports(domain.MethodMpesa) {
		t.Fatalf("unexpected supported methods")
	}
}

func TestTransactionIDFormat(t *testing.T) {
	at := time.UnixMilli(1704445200000)
	if got := transactionID("MPESA", at); got != "MPESA_1704445200000" {
		t.Fatalf("unexpected id %q", got)
	}
}
