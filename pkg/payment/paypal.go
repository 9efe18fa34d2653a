package payment

import (
	"context"
	"net/url"
	"strings"
	"time"

	"elearnhub/pkg/domain"
)

type PayPalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type PayPalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id"`
	Amount      PayPalAmount `json:"amount"`
}

type PayPalOrderRequest struct {
	Intent        string               `json:"intent"`
	PurchaseUnits []PayPalPurchaseUnit `json:"purchase_units"`
	ReturnURL     string               `json:"return_url,omitempty"`
	CancelURL     string               `json:"cancel_url,omitempty"`
}

type PayPalLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type PayPalPayer struct {
	Email string `json:"email_address"`
}

// PayPalOrder matches the create-order result PayPal returns.
type PayPalOrder struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []PayPalLink `json:"links"`
	Payer  PayPalPayer  `json:"payer"`
}

// PayPalGateway simulates order creation. The buyer still has to approve
// the order, so a charge only ever reaches pending.
type PayPalGateway struct {
	clientID string
	checkout string
	delay    time.Duration
	now      func() time.Time
}

func NewPayPalGateway(clientID string, delay time.Duration) *PayPalGateway {
	return &PayPalGateway{
		clientID: clientID,
		checkout: "https://www.sandbox.paypal.com/checkoutnow",
		delay:    delay,
		now:      time.Now,
	}
}

func (g *PayPalGateway) Method() domain.PaymentMethod { return domain.MethodPayPal }

func (g *PayPalGateway) Charge(ctx context.Context, req Request) Response {
	order := PayPalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []PayPalPurchaseUnit{{
			ReferenceID: req.CourseID,
			Amount: PayPalAmount{
				CurrencyCode: strings.ToUpper(req.Currency),
				Value:        req.Amount.StringFixed(2),
			},
		}},
	}
	if req.PayPal != nil {
		order.ReturnURL = req.PayPal.ReturnURL
		order.CancelURL = req.PayPal.CancelURL
	}
	if err := simulateLatency(ctx, g.delay); err != nil {
		return Failed("payment cancelled: %v", err)
	}
	txID := transactionID("PAYPAL", g.now())
	approve := g.checkout + "?token=" + url.QueryEscape(txID)
	return Response{
		Success:       true,
		TransactionID: txID,
		Status:        domain.PaymentPending,
		Message:       "Redirect the buyer to PayPal to approve the order",
		GatewayResponse: PayPalOrder{
			ID:     txID,
			Status: "PAYER_ACTION_REQUIRED",
			Links: []PayPalLink{
				{Rel: "self", Href: "https://api-m.sandbox.paypal.com/v2/checkout/orders/" + txID},
				{Rel: "payer-action", Href: approve},
			},
			Payer: PayPalPayer{Email: req.Customer.Email},
		},
	}
}

func (g *PayPalGateway) Verify(ctx context.Context, transactionID string) Response {
	return verified(transactionID)
}

// ApproveURL returns the payer-action link of a simulated order response.
func ApproveURL(resp Response) string {
	order, ok := resp.GatewayResponse.(PayPalOrder)
	if !ok {
		return ""
	}
	for _, link := range order.Links {
		if link.Rel == "payer-action" || link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}
