package payment

import (
	"context"
	"strings"
	"time"

	"elearnhub/pkg/domain"
)

type CardCharge struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Brand       string `json:"brand"`
	Last4       string `json:"last4"`
	HolderName  string `json:"holderName,omitempty"`
	Description string `json:"description"`
	Capture     bool   `json:"capture"`
}

type CardChargeResult struct {
	ID       string     `json:"id"`
	Status   string     `json:"status"`
	Captured bool       `json:"captured"`
	Charge   CardCharge `json:"charge"`
}

// CardGateway simulates a synchronous card capture.
type CardGateway struct {
	delay time.Duration
	now   func() time.Time
}

func NewCardGateway(delay time.Duration) *CardGateway {
	return &CardGateway{delay: delay, now: time.Now}
}

func (g *CardGateway) Method() domain.PaymentMethod { return domain.MethodCard }

func (g *CardGateway) Charge(ctx context.Context, req Request) Response {
	charge := CardCharge{
		Amount:      req.Amount.StringFixed(2),
		Currency:    strings.ToUpper(req.Currency),
		Description: "Course " + req.CourseID,
		Capture:     true,
	}
	if req.Card != nil {
		digits := onlyDigits(req.Card.Number)
		charge.Brand = cardBrand(digits)
		if len(digits) >= 4 {
			charge.Last4 = digits[len(digits)-4:]
		}
		charge.HolderName = req.Card.HolderName
	}
	if err := simulateLatency(ctx, g.delay); err != nil {
		return Failed("payment cancelled: %v", err)
	}
	txID := transactionID("CARD", g.now())
	return Response{
		Success:       true,
		TransactionID: txID,
		Status:        domain.PaymentCompleted,
		Message:       "Card payment captured",
		GatewayResponse: CardChargeResult{
			ID:       "ch_" + txID,
			Status:   "succeeded",
			Captured: true,
			Charge:   charge,
		},
	}
}

func (g *CardGateway) Verify(ctx context.Context, transactionID string) Response {
	return verified(transactionID)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cardBrand(digits string) string {
	switch {
	case strings.HasPrefix(digits, "4"):
		return "visa"
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return "amex"
	case len(digits) >= 2 && digits[0] == '5' && digits[1] >= '1' && digits[1] <= '5':
		return "mastercard"
	case strings.HasPrefix(digits, "2"):
		return "mastercard"
	default:
		return "unknown"
	}
}
