package payment

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/common-repository/paymentsense-gateway/internal/middleware"
	"github.com/common-repository/paymentsense-gateway/pkg/encoding"
	"go.uber.org/zap"
)

// errorResponse is the JSON body of a failed API request
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := encoding.MarshalJSON(v)
	if err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps err onto an HTTP status and a JSON error body
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	resp := errorResponse{Error: "internal error"}

	var de *domain.DomainError
	if errors.As(err, &de) {
		resp.Code = string(de.Code)
		if status != http.StatusInternalServerError {
			resp.Error = de.Message
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}
	h.writeJSON(w, status, resp)
}

func statusForError(err error) int {
	switch domain.GetErrorCode(err) {
	case domain.ErrorCodeNotFound:
		return http.StatusNotFound
	case domain.ErrorCodeValidation:
		return http.StatusBadRequest
	case domain.ErrorCodeDeclined:
		return http.StatusUnprocessableEntity
	case domain.ErrorCodeDuplicateTransaction, domain.ErrorCodeConflict:
		return http.StatusConflict
	case domain.ErrorCodeExpired:
		return http.StatusGone
	case domain.ErrorCodeTransport, domain.ErrorCodeProtocol:
		return http.StatusBadGateway
	case domain.ErrorCodeConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// render executes one of the page templates with the request's CSP nonce
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, tmpl *template.Template, data pageData) {
	data.Nonce = middleware.CSPNonce(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("Failed to render template",
			zap.String("template", tmpl.Name()),
			zap.Error(err),
		)
	}
}

func (h *Handler) renderMessage(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	h.render(w, r, status, messagePage, pageData{Title: title, Message: message})
}
