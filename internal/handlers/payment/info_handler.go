package payment

import (
	"net/http"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"go.uber.org/zap"
)

const (
	actionInfo           = "info"
	actionConnectionInfo = "connection_info"

	outputJSON = "json"
	outputText = "text"
)

var infoContentTypes = map[string]string{
	outputJSON: "application/json",
	outputText: "text/plain",
}

// Info reports the module and gateway diagnostics.
// Endpoint: GET /info?output=json|text&extended_info=true&connection_info=true
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	action := r.Form.Get("action")
	if action == "" {
		action = actionInfo
	}
	h.serveInfo(w, r, action)
}

func (h *Handler) serveInfo(w http.ResponseWriter, r *http.Request, action string) {
	if h.info == nil {
		http.Error(w, "info is not available", http.StatusNotFound)
		return
	}

	var (
		info paymentsense.Info
		err  error
	)
	switch action {
	case actionInfo:
		info, err = h.info.ModuleInfo(r.Context(),
			r.Form.Get("extended_info") == "true",
			r.Form.Get("connection_info") == "true",
		)
	case actionConnectionInfo:
		info, err = h.info.ConnectionInfo(r.Context())
	default:
		http.Error(w, "unsupported action", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("Failed to collect info",
			zap.String("action", action),
			zap.Error(err),
		)
		http.Error(w, "failed to collect info", http.StatusInternalServerError)
		return
	}

	output := r.Form.Get("output")
	if _, ok := infoContentTypes[output]; !ok {
		output = outputText
	}

	var body []byte
	if output == outputJSON {
		if body, err = info.MarshalJSON(); err != nil {
			h.logger.Error("Failed to encode info", zap.Error(err))
			http.Error(w, "failed to encode info", http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte(info.Text())
	}

	w.Header().Set("Cache-Control", "max-age=0, must-revalidate, no-cache, no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", infoContentTypes[output])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
