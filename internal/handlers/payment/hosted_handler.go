package payment

import (
	"net/http"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/common-repository/paymentsense-gateway/internal/services/checkout"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HostedForm renders the form that forwards the customer to the hosted
// payment page.
// Endpoint: GET /checkout/hosted/{orderID}
func (h *Handler) HostedForm(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderID"]

	form, err := h.hosted.PaymentForm(r.Context(), orderID)
	if err != nil {
		h.logger.Warn("Hosted payment form unavailable",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		status := http.StatusOK
		if domain.IsNotFoundError(err) {
			status = http.StatusNotFound
		}
		h.renderMessage(w, r, status, "Payment", checkout.PaymentFormMessage(orderID, err))
		return
	}

	h.render(w, r, http.StatusOK, redirectPage, pageData{
		Title:       form.Title,
		Message:     form.RedirectMessage,
		Action:      form.URL,
		SubmitLabel: form.SubmitLabel,
		Fields:      form.Fields,
	})
}

// HostedCallback receives the payment result from the hosted payment page,
// either through the customer's browser or server to server. Info actions
// are answered here as well.
// Endpoint: GET,POST /callback/hosted
func (h *Handler) HostedCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("Failed to parse hosted callback", zap.Error(err))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if action := r.Form.Get("action"); action != "" {
		h.serveInfo(w, r, action)
		return
	}

	resp := h.hosted.HandleCallback(r.Context(), r.Form.Get)
	h.writeCallbackResponse(w, r, resp)
}

func (h *Handler) writeCallbackResponse(w http.ResponseWriter, r *http.Request, resp *checkout.CallbackResponse) {
	switch {
	case resp.Redirect != nil:
		http.Redirect(w, r, resp.Redirect.Location(), http.StatusFound)
	case resp.Body != "":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(resp.Body))
	default:
		h.renderMessage(w, r, http.StatusOK, "Payment", resp.Message)
	}
}
