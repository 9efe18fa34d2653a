package server

import (
	"net/http"

	"elearnhub/pkg/domain"
)

type settleRequest struct {
	TransactionID string               `json:"transactionId"`
	Status        domain.PaymentStatus `json:"status"`
}

// /internal/payments/{id}/settle, called by the settlement worker.
func (s *Server) handleInternalPayment(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/internal/payments/")
	if len(parts) != 2 || parts[1] != "settle" {
		notFound(w)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req settleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.app.Settle(r.Context(), parts[0], req.TransactionID, req.Status)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
