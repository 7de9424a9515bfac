package payment

import (
	"encoding/json"
	"net/http"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type refundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

type refundResponse struct {
	OrderID        string          `json:"order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	CrossReference string          `json:"cross_reference"`
	Message        string          `json:"message"`
}

// Refund refunds all or part of a paid order.
// Endpoint: POST /orders/{orderID}/refunds
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderID"]

	var req refundRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCardBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("Invalid refund body",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: string(domain.ErrorCodeValidation)})
		return
	}

	result, err := h.refund.Refund(r.Context(), orderID, req.Amount, req.Reason)
	if err != nil {
		h.logger.Warn("Refund rejected",
			zap.String("order_id", orderID),
			zap.String("amount", req.Amount.String()),
			zap.Error(err),
		)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, refundResponse{
		OrderID:        result.OrderID,
		Amount:         result.Amount,
		Currency:       result.Currency,
		CrossReference: result.CrossReference,
		Message:        result.Message,
	})
}
