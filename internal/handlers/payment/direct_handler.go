package payment

import (
	"encoding/json"
	"net/http"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/common-repository/paymentsense-gateway/internal/services/checkout"
	pkgmiddleware "github.com/common-repository/paymentsense-gateway/pkg/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Card bodies are tiny; anything larger is not a checkout form
const maxCardBodyBytes = 16 * 1024

// directPaymentResponse tells the checkout page where to send the customer
type directPaymentResponse struct {
	Redirect string `json:"redirect"`
}

// DirectPayment charges the card posted by the checkout page.
// Endpoint: POST /checkout/direct/{orderID}
func (h *Handler) DirectPayment(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderID"]

	var card domain.CardDetails
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCardBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&card); err != nil {
		h.logger.Warn("Invalid direct payment body",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: string(domain.ErrorCodeValidation)})
		return
	}

	sessionID := h.session(w, r)
	customerIP := pkgmiddleware.ClientIP(r, h.opts.TrustProxy)

	redirect, err := h.direct.ProcessPayment(r.Context(), orderID, card, customerIP, sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, directPaymentResponse{Redirect: redirect.Location()})
}

// ThreeDSecureRedirect renders the form that forwards the customer to the
// card issuer's access control server.
// Endpoint: GET /checkout/direct/{orderID}/3ds
func (h *Handler) ThreeDSecureRedirect(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderID"]

	cookie, err := r.Cookie(h.opts.SessionCookie)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("3-D Secure redirect without a session", zap.String("order_id", orderID))
		h.redirectWithNotice(w, r, orderID)
		return
	}

	form, err := h.direct.ACSRedirect(r.Context(), cookie.Value, orderID)
	if err != nil {
		h.logger.Warn("No pending 3-D Secure challenge",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		h.redirectWithNotice(w, r, orderID)
		return
	}

	h.render(w, r, http.StatusOK, redirectPage, pageData{
		Title:       "3-D Secure authentication",
		Message:     "You are being redirected to your card issuer to authenticate the payment.",
		Action:      form.URL,
		SubmitLabel: "Continue",
		Fields: []paymentsense.Field{
			{Name: "PaReq", Value: form.PaReq},
			{Name: "MD", Value: form.MD},
			{Name: "TermUrl", Value: form.TermURL},
		},
	})
}

// DirectCallback receives the authentication result posted back by the
// access control server. Info actions are answered here as well.
// Endpoint: POST /callback/direct?order_id=...
func (h *Handler) DirectCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("Failed to parse 3-D Secure callback", zap.Error(err))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if action := r.Form.Get("action"); action != "" {
		h.serveInfo(w, r, action)
		return
	}

	orderID := r.Form.Get("order_id")
	if orderID == "" {
		h.renderMessage(w, r, http.StatusBadRequest, "Payment", "Order ID is empty.")
		return
	}

	redirect, err := h.direct.CompleteThreeDSecure(r.Context(), orderID, r.Form.Get("MD"), r.Form.Get("PaRes"))
	if err != nil {
		h.logger.Error("Failed to complete 3-D Secure authentication",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		h.renderMessage(w, r, statusForError(err), "Payment",
			checkout.PaymentFormMessage(orderID, err))
		return
	}

	http.Redirect(w, r, redirect.Location(), http.StatusFound)
}

// session returns the browser session ID, issuing a cookie when the
// browser has none yet
func (h *Handler) session(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(h.opts.SessionCookie); err == nil {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			return cookie.Value
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *Handler) redirectWithNotice(w http.ResponseWriter, r *http.Request, orderID string) {
	target := checkout.Redirect{
		URL:    h.opts.URLs.CheckoutPayment(orderID),
		Notice: "An unexpected error has occurred. Please contact Customer Support.",
	}
	http.Redirect(w, r, target.Location(), http.StatusFound)
}
