package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxOrderBodyBytes = 64 * 1024

// createOrderRequest is posted by the storefront when the customer places
// an order. ID defaults to a random UUID.
type createOrderRequest struct {
	Billing  domain.BillingAddress `json:"billing"`
	ID       string                `json:"id" validate:"omitempty,max=64,printascii"`
	Currency string                `json:"currency" validate:"required,len=3,alpha"`
	Email    string                `json:"email" validate:"omitempty,email"`
	Phone    string                `json:"phone" validate:"omitempty,max=32"`
	Total    decimal.Decimal       `json:"total"`
}

type orderNoteResponse struct {
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
}

type orderResponse struct {
	*domain.Order
	Notes []orderNoteResponse `json:"notes"`
}

// CreateOrder registers a pending order the customer can then pay.
// Endpoint: POST /orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBodyBytes)).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: string(domain.ErrorCodeValidation)})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		msg := "invalid order"
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msg = "invalid order: " + strings.ToLower(verrs[0].Field()) + " failed on " + verrs[0].Tag()
		}
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: string(domain.ErrorCodeValidation)})
		return
	}
	if !req.Total.IsPositive() {
		h.writeError(w, domain.ErrInvalidAmount)
		return
	}

	order := &domain.Order{
		ID:       req.ID,
		Currency: strings.ToUpper(req.Currency),
		Email:    req.Email,
		Phone:    req.Phone,
		Billing:  req.Billing,
		Total:    req.Total,
		Status:   domain.OrderStatusPending,
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	if err := h.orders.Create(r.Context(), order); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("total", order.Total.StringFixed(2)),
		zap.String("currency", order.Currency),
	)

	created, err := h.orders.Get(r.Context(), order.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, orderResponse{Order: created, Notes: []orderNoteResponse{}})
}

// GetOrder returns an order with its notes.
// Endpoint: GET /orders/{orderID}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderID"]

	order, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	notes, err := h.orders.Notes(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := orderResponse{Order: order, Notes: make([]orderNoteResponse, 0, len(notes))}
	for _, n := range notes {
		resp.Notes = append(resp.Notes, orderNoteResponse{CreatedAt: n.CreatedAt, Text: n.Text})
	}
	h.writeJSON(w, http.StatusOK, resp)
}
