package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"elearnhub/internal/servicetoken"
	"elearnhub/pkg/domain"
)

// ErrSettlementRejected means the marketplace refused the outcome for good:
// the payment is gone or already settled differently. Retrying cannot help.
var ErrSettlementRejected = errors.New("settlement rejected")

type marketplaceClient struct {
	baseURL    string
	signer     *servicetoken.Signer
	httpClient *http.Client
}

// NewMarketplaceClient posts settlement outcomes to the marketplace internal
// API with a service token.
func NewMarketplaceClient(baseURL string, signer *servicetoken.Signer) Marketplace {
	return &marketplaceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		signer:     signer,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *marketplaceClient) Settle(ctx context.Context, paymentID, transactionID string, status domain.PaymentStatus) error {
	payload, err := json.Marshal(map[string]string{
		"transactionId": transactionID,
		"status":        string(status),
	})
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/internal/payments/%s/settle", c.baseURL, url.PathEscape(paymentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	token, err := c.signer.Sign(servicetoken.AudienceMarketplace)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 400 {
		return nil
	}
	var errResp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	msg := errResp.Error
	if msg == "" {
		msg = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusConflict, http.StatusBadRequest:
		return fmt.Errorf("%w: %s (%s)", ErrSettlementRejected, msg, errResp.Code)
	}
	return fmt.Errorf("marketplace error: %s", msg)
}
