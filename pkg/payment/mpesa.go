package payment

import (
	"context"
	"strings"
	"time"

	"elearnhub/pkg/domain"
)

// STKPushRequest is the Lipa na M-Pesa Online payload.
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type STKPushResponse struct {
	MerchantRequestID   string         `json:"MerchantRequestID"`
	CheckoutRequestID   string         `json:"CheckoutRequestID"`
	ResponseCode        string         `json:"ResponseCode"`
	ResponseDescription string         `json:"ResponseDescription"`
	CustomerMessage     string         `json:"CustomerMessage"`
	Request             STKPushRequest `json:"request"`
}

// MpesaGateway simulates an STK push. The customer confirms on the phone,
// so a charge only ever reaches pending.
type MpesaGateway struct {
	shortcode string
	delay     time.Duration
	now       func() time.Time
}

func NewMpesaGateway(shortcode string, delay time.Duration) *MpesaGateway {
	if strings.TrimSpace(shortcode) == "" {
		shortcode = "174379"
	}
	return &MpesaGateway{shortcode: shortcode, delay: delay, now: time.Now}
}

func (g *MpesaGateway) Method() domain.PaymentMethod { return domain.MethodMpesa }

func (g *MpesaGateway) Charge(ctx context.Context, req Request) Response {
	phone := req.Customer.Phone
	if req.Mpesa != nil && req.Mpesa.PhoneNumber != "" {
		phone = req.Mpesa.PhoneNumber
	}
	payload := STKPushRequest{
		BusinessShortCode: g.shortcode,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount.Ceil().String(),
		PartyA:            normalizeMSISDN(phone),
		PartyB:            g.shortcode,
		PhoneNumber:       normalizeMSISDN(phone),
		AccountReference:  req.CourseID,
		TransactionDesc:   "Course purchase",
	}
	if err := simulateLatency(ctx, g.delay); err != nil {
		return Failed("payment cancelled: %v", err)
	}
	txID := transactionID("MPESA", g.now())
	return Response{
		Success:       true,
		TransactionID: txID,
		Status:        domain.PaymentPending,
		Message:       "STK push sent. Confirm the payment on your phone.",
		GatewayResponse: STKPushResponse{
			MerchantRequestID:   "MR_" + txID,
			CheckoutRequestID:   "ws_CO_" + txID,
			ResponseCode:        "0",
			ResponseDescription: "Success. Request accepted for processing",
			CustomerMessage:     "Success. Request accepted for processing",
			Request:             payload,
		},
	}
}

func (g *MpesaGateway) Verify(ctx context.Context, transactionID string) Response {
	return verified(transactionID)
}

// normalizeMSISDN turns local Kenyan numbers (07XXXXXXXX) into 2547XXXXXXXX.
func normalizeMSISDN(phone string) string {
	phone = strings.NewReplacer(" ", "", "-", "", "+", "").Replace(strings.TrimSpace(phone))
	if strings.HasPrefix(phone, "0") && len(phone) == 10 {
		return "254" + phone[1:]
	}
	return phone
}
