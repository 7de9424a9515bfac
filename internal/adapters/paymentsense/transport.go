package paymentsense

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/ports"
	"go.uber.org/zap"
)

// TransportCode classifies the outcome of a single HTTP exchange. The values
// follow the libcurl error numbers merchants quote to gateway support.
type TransportCode int

const (
	TransportOK                 TransportCode = 0
	TransportCouldntResolveHost TransportCode = 6
	TransportCouldntConnect     TransportCode = 7
	TransportTimedOut           TransportCode = 28
	TransportTLSError           TransportCode = 35
	TransportAborted            TransportCode = 42
	TransportOther              TransportCode = 56
)

func (c TransportCode) String() string {
	switch c {
	case TransportOK:
		return "ok"
	case TransportCouldntResolveHost:
		return "couldnt_resolve_host"
	case TransportCouldntConnect:
		return "couldnt_connect"
	case TransportTimedOut:
		return "operation_timed_out"
	case TransportTLSError:
		return "tls_error"
	case TransportAborted:
		return "aborted"
	default:
		return "other"
	}
}

// AbortedMessage is reported when outbound gateway traffic is disabled by configuration
const AbortedMessage = "Communication Aborted. The communication on port 4430 is disabled at the plugin configuration settings."

// Request is one outbound POST to the gateway or the hosted payment form
type Request struct {
	URL    string
	Body   string
	Header http.Header
	// Force sends the request even when port 4430 traffic is disabled
	Force bool
	// Label names the request in logs and metrics
	Label string
}

// SOAPRequest builds a forced-or-not SOAP request for a family
func SOAPRequest(family Family, endpoint, body string, force bool) *Request {
	h := make(http.Header)
	h.Set("SOAPAction", family.SOAPAction())
	h.Set("Content-Type", "text/xml; charset=utf-8")
	h.Set("Connection", "close")
	return &Request{URL: endpoint, Body: body, Header: h, Force: force, Label: string(family)}
}

// TransferInfo describes a completed exchange, for the diagnostics dump
type TransferInfo struct {
	URL         string
	HTTPCode    int
	ContentType string
	TotalTime   time.Duration
}

// Result is the outcome of one Send
type Result struct {
	Info       TransferInfo
	LocalTime  time.Time
	RemoteTime time.Time
	Body       string
	ErrMessage string
	Code       TransportCode
	// HasRemoteTime is false when the response carried no parsable Date header
	HasRemoteTime bool
	// Aborted requests never reached the network
	Aborted bool
}

// Transport sends a single request
type Transport interface {
	Send(ctx context.Context, req *Request) *Result
}

// HTTPTransport sends requests with an HTTP client and classifies failures
type HTTPTransport struct {
	client   ports.HTTPClient
	logger   *zap.Logger
	now      func() time.Time
	disabled bool
}

// NewHTTPTransport creates a transport. disabled blocks every non-forced request.
func NewHTTPTransport(client ports.HTTPClient, disabled bool, logger *zap.Logger) *HTTPTransport {
	return &HTTPTransport{
		client:   client,
		logger:   logger,
		now:      time.Now,
		disabled: disabled,
	}
}

// Disabled reports whether non-forced traffic is blocked
func (t *HTTPTransport) Disabled() bool {
	return t.disabled
}

// Send performs the POST. It never returns nil.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) *Result {
	if t.disabled && !req.Force {
		t.logger.Info("Gateway communication disabled, request aborted",
			zap.String("label", req.Label),
			zap.String("endpoint", req.URL),
		)
		return &Result{Code: TransportAborted, ErrMessage: AbortedMessage, Aborted: true}
	}

	start := t.now()
	res := &Result{Info: TransferInfo{URL: req.URL}}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, strings.NewReader(req.Body))
	if err != nil {
		res.Code = TransportOther
		res.ErrMessage = fmt.Sprintf("failed to create request: %v", err)
		res.LocalTime = t.now()
		return res
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Close = true

	resp, err := t.client.Do(httpReq)
	if err != nil {
		res.Code = classifyError(err)
		res.ErrMessage = err.Error()
		res.Info.TotalTime = t.now().Sub(start)
		res.LocalTime = t.now()
		t.logger.Warn("Gateway request failed",
			zap.String("label", req.Label),
			zap.String("endpoint", req.URL),
			zap.String("transport_code", res.Code.String()),
			zap.Error(err),
		)
		return res
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	res.Info.HTTPCode = resp.StatusCode
	res.Info.ContentType = resp.Header.Get("Content-Type")
	res.Info.TotalTime = t.now().Sub(start)
	res.LocalTime = t.now()
	if remote, perr := http.ParseTime(resp.Header.Get("Date")); perr == nil {
		res.RemoteTime = remote
		res.HasRemoteTime = true
	}
	if err != nil {
		res.Code = classifyError(err)
		res.ErrMessage = fmt.Sprintf("failed to read response: %v", err)
		return res
	}

	res.Code = TransportOK
	res.Body = string(body)

	t.logger.Debug("Gateway response received",
		zap.String("label", req.Label),
		zap.String("endpoint", req.URL),
		zap.Int("http_status", resp.StatusCode),
		zap.Duration("elapsed", res.Info.TotalTime),
		zap.Int("body_length", len(body)),
	)
	return res
}

func classifyError(err error) TransportCode {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return TransportTimedOut
		}
		return TransportCouldntResolveHost
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TransportTimedOut
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TransportTimedOut
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return TransportCouldntConnect
	}

	var recordErr tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &recordErr) || errors.As(err, &certErr) {
		return TransportTLSError
	}

	return TransportOther
}

// hostname returns the lowercased host of a URL, or "" when it cannot be parsed
func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
