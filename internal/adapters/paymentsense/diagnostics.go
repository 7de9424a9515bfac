package paymentsense

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"regexp"
	"strings"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/common-repository/paymentsense-gateway/pkg/observability"
	"github.com/common-repository/paymentsense-gateway/pkg/timeutil"
	"go.uber.org/zap"
)

// Method is the integration flavour being diagnosed. Hosted and direct word
// the port-closed warning and the settings verdicts differently.
type Method string

const (
	MethodHosted Method = "hosted"
	MethodDirect Method = "direct"
)

// MessageType groups diagnostic messages
type MessageType string

const (
	MessageTypeConnection MessageType = "connection"
	MessageTypeSettings   MessageType = "settings"
	MessageTypeSystemTime MessageType = "stime"
)

// Message classes, as rendered by the storefront admin area
const (
	ClassSuccess = "notice notice-success"
	ClassWarning = "notice notice-warning"
	ClassError   = "notice notice-error"
)

// Message is a diagnostic message. The zero value means "nothing to report".
type Message struct {
	Type  MessageType `json:"-"`
	Text  string      `json:"text"`
	Class string      `json:"class"`
}

// IsEmpty reports whether there is nothing to show
func (m Message) IsEmpty() bool {
	return m.Text == ""
}

// Info returns the message keyed by its type, or an empty document
func (m Message) Info() Info {
	if m.IsEmpty() {
		return Info{}
	}
	return Info{}.Add(string(m.Type), Info{}.Add("text", m.Text).Add("class", m.Class))
}

func newMessage(t MessageType, class, text string) Message {
	return Message{Type: t, Class: class, Text: text}
}

// Hosted payment form check results. The non-empty values are the substrings
// searched for in the form's error label.
type HPFResponse string

const (
	HPFOK           HPFResponse = "OK"
	HPFHashInvalid  HPFResponse = "HashDigest does not match"
	HPFMIDMissing   HPFResponse = "MerchantID is missing"
	HPFMIDNotExists HPFResponse = "Merchant doesn't exist"
	HPFNoResponse   HPFResponse = ""
)

// DefaultPaymentFormURL is the gateway hosted payment form
const DefaultPaymentFormURL = "https://mms.paymentsensegateway.com/Pages/PublicPages/PaymentForm.aspx"

// DefaultSystemTimeThreshold is the tolerated clock skew in seconds
const DefaultSystemTimeThreshold = 300

const (
	connectionInfoGGEP = "GetGatewayEntryPoints"
	connectionInfoHPF  = "HostedPaymentForm"
)

// ConnectionStatus reduces a probe attempt log to one transport code.
// OK and aborted attempts set the code; resolve, connect and timeout failures
// must agree across attempts. ok is false when they disagree or nothing
// conclusive happened.
func ConnectionStatus(ex *Exchange) (TransportCode, bool) {
	var (
		result TransportCode
		set    bool
	)
	for n, a := range ex.Attempts {
		switch a.Code {
		case TransportOK, TransportAborted:
			result, set = a.Code, true
		case TransportCouldntResolveHost, TransportTimedOut, TransportCouldntConnect:
			if n == 0 {
				result, set = a.Code, true
			} else if !set || result != a.Code {
				result, set = 0, false
			}
		}
	}
	return result, set
}

// ConnectionMessage words the connection status for the given method
func ConnectionMessage(ex *Exchange, method Method) Message {
	code, ok := ConnectionStatus(ex)
	if !ok {
		return newMessage(MessageTypeConnection, ClassError, fmt.Sprintf(
			"Warning: The Paymentsense plugin cannot connect to the Paymentsense gateway. Please contact support providing the information below: <pre>%s</pre>",
			AttemptLogInfo(ex).Text(),
		))
	}

	switch code {
	case TransportOK:
		return newMessage(MessageTypeConnection, ClassSuccess,
			"Connection to Paymentsense was successful.")
	case TransportAborted:
		return newMessage(MessageTypeConnection, ClassWarning,
			"FYI: The Paymentsense Hosted method is configured to run in safe mode. You can still take payments, but refunds will need to be done via the MMS.")
	case TransportCouldntResolveHost:
		return newMessage(MessageTypeConnection, ClassError,
			"Warning: The Paymentsense plugin cannot resolve any of the Paymentsense gateway entry points. Please check your DNS resolution or contact support.")
	default:
		if method == MethodHosted {
			return newMessage(MessageTypeConnection, ClassError,
				`Warning: Port 4430 seems to be closed on your server. Please open port 4430 or set the "Port 4430 is NOT open on my server" configuration setting to "Yes".`)
		}
		return newMessage(MessageTypeConnection, ClassError,
			"Warning: Port 4430 seems to be closed on your server. Paymentsense Direct can NOT be used in this case. Please use Paymentsense Hosted or open port 4430.")
	}
}

// AttemptLogInfo renders the attempt log as "Connection attempt N" entries
func AttemptLogInfo(ex *Exchange) Info {
	out := Info{}
	for _, a := range ex.Attempts {
		out = out.Add(fmt.Sprintf("Connection attempt %d", a.Number), attemptInfo(a, nil))
	}
	return out
}

func attemptInfo(a Attempt, extra Info) Info {
	info := Info{}
	if a.Info.URL != "" {
		info = info.
			Add("url", a.Info.URL).
			Add("http_code", a.Info.HTTPCode).
			Add("content_type", a.Info.ContentType).
			Add("total_time", a.Info.TotalTime.Seconds())
	}
	out := Info{}.
		Add("curl_errno", int(a.Code)).
		Add("curl_errmsg", a.ErrMessage).
		Add("response", a.Response).
		Add("info", info)
	return append(out, extra...)
}

// SystemTimeDiff returns local minus remote seconds for the first clock sample
func SystemTimeDiff(pairs []DateTimePair) (int64, bool) {
	if len(pairs) == 0 || !pairs[0].HasRemote {
		return 0, false
	}
	return pairs[0].Local.Unix() - pairs[0].Remote.Unix(), true
}

// SystemTimeStatus is "OK", "Out of sync with %+d seconds" or "Unknown"
func SystemTimeStatus(pairs []DateTimePair, threshold int64) string {
	diff, ok := SystemTimeDiff(pairs)
	if !ok {
		return "Unknown"
	}
	if abs(diff) <= threshold {
		return "OK"
	}
	return fmt.Sprintf("Out of sync with %+d seconds", diff)
}

// SystemTimeMessage reports a skew beyond the threshold, otherwise nothing
func SystemTimeMessage(pairs []DateTimePair, threshold int64) Message {
	diff, ok := SystemTimeDiff(pairs)
	if !ok || abs(diff) <= threshold {
		return Message{}
	}
	return newMessage(MessageTypeSystemTime, ClassError, fmt.Sprintf(
		"The system time is out of sync with the gateway with %+d seconds. Please check your system time.", diff))
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

var (
	hpfErrorLabelPattern = regexp.MustCompile(`(?si)<span.*lbErrorMessageLabel[^>]*>(.*?)</span>`)
	htmlTagPattern       = regexp.MustCompile(`(?s)<[^>]*>`)
)

// HPFErrorMessage extracts the text of the payment form error label
func HPFErrorMessage(html string) (string, bool) {
	m := hpfErrorLabelPattern.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	return htmlTagPattern.ReplaceAllString(m[1], ""), true
}

// ClassifyHPFResponse maps a payment form page onto a check result
func ClassifyHPFResponse(html string) (HPFResponse, string) {
	msg, found := HPFErrorMessage(html)
	if !found {
		return HPFOK, ""
	}
	for _, r := range []HPFResponse{HPFHashInvalid, HPFMIDMissing, HPFMIDNotExists} {
		if strings.Contains(msg, string(r)) {
			return r, msg
		}
	}
	return HPFNoResponse, msg
}

// HostedSettingsMessage combines the merchant ID format, the probe
// credential verdict and the payment form check for the hosted method
func HostedSettingsMessage(merchantIDValid bool, credentials *bool, hpf HPFResponse) Message {
	if !merchantIDValid {
		return invalidMerchantIDFormat()
	}
	switch hpf {
	case HPFOK:
		return newMessage(MessageTypeSettings, ClassSuccess,
			"Gateway MerchantID, Gateway Password, Gateway PreSharedKey and Gateway Hash Method are valid.")
	case HPFMIDMissing, HPFMIDNotExists:
		return newMessage(MessageTypeSettings, ClassError, "Gateway MerchantID is invalid.")
	case HPFHashInvalid:
		switch {
		case credentials == nil:
			return newMessage(MessageTypeSettings, ClassError,
				"Gateway Password, Gateway PreSharedKey or/and Gateway Hash Method are invalid.")
		case *credentials:
			return newMessage(MessageTypeSettings, ClassError,
				"Gateway PreSharedKey or/and Gateway Hash Method are invalid.")
		default:
			return newMessage(MessageTypeSettings, ClassError, "Gateway Password is invalid.")
		}
	default:
		switch {
		case credentials == nil:
			return cannotValidate()
		case *credentials:
			return newMessage(MessageTypeSettings, ClassWarning,
				"Gateway PreSharedKey and Gateway Hash Method cannot be validated at this time.")
		default:
			return newMessage(MessageTypeSettings, ClassError,
				"Gateway MerchantID or/and Gateway Password are invalid.")
		}
	}
}

// DirectSettingsMessage is the direct method's settings verdict. The payment
// form is only consulted when the probe did not prove the credentials.
func DirectSettingsMessage(merchantIDValid bool, credentials *bool, checkHPF func() HPFResponse) Message {
	if !merchantIDValid {
		return invalidMerchantIDFormat()
	}
	if credentials != nil && *credentials {
		return newMessage(MessageTypeSettings, ClassSuccess,
			"Gateway MerchantID and Gateway Password are valid.")
	}

	credentialsInvalid := credentials != nil && !*credentials
	switch checkHPF() {
	case HPFMIDMissing, HPFMIDNotExists:
		return newMessage(MessageTypeSettings, ClassError, "Gateway MerchantID is invalid.")
	case HPFHashInvalid:
		if credentialsInvalid {
			return newMessage(MessageTypeSettings, ClassError, "Gateway Password is invalid.")
		}
		return cannotValidate()
	case HPFNoResponse:
		if credentialsInvalid {
			return newMessage(MessageTypeSettings, ClassError,
				"Gateway MerchantID or/and Gateway Password are invalid.")
		}
		return cannotValidate()
	default:
		return Message{}
	}
}

func invalidMerchantIDFormat() Message {
	return newMessage(MessageTypeSettings, ClassError,
		"Gateway MerchantID is invalid. Please make sure the Gateway MerchantID matches the ABCDEF-1234567 format.")
}

func cannotValidate() Message {
	return newMessage(MessageTypeSettings, ClassWarning, "The gateway settings cannot be validated at this time.")
}

// DiagnosticsConfig holds what the diagnostics need beyond the orchestrator
type DiagnosticsConfig struct {
	Method              Method
	PaymentFormURL      string
	Currency            string
	UserAgent           string
	HostedOptions       HostedFormOptions
	SystemTimeThreshold int64
}

// HPFCheck is the outcome of posting the sample form to the payment form URL
type HPFCheck struct {
	Attempt Attempt
	Result  HPFResponse
	Message string
}

// Report is everything one diagnostic run found. A fresh report is built per run.
type Report struct {
	Probe            *ProbeResult
	HPF              *HPFCheck
	Connection       Message
	Settings         Message
	SystemTime       Message
	SystemTimeStatus string
	Method           Method
}

// Connectivity reports whether any entry point answered with a numeric status
func (r *Report) Connectivity() bool {
	return r.Probe != nil && r.Probe.Connectivity
}

// Messages merges the connection, settings and system time messages
func (r *Report) Messages() Info {
	return r.Connection.Info().Merge(r.Settings.Info()).Merge(r.SystemTime.Info())
}

// ConnectionInfo is the raw attempt dump of the probe and the form check
func (r *Report) ConnectionInfo() Info {
	out := Info{}
	if r.Probe != nil {
		out = out.Add(connectionInfoGGEP, AttemptLogInfo(r.Probe.Exchange))
	}
	if r.HPF != nil {
		out = out.Add(connectionInfoHPF, attemptInfo(r.HPF.Attempt, Info{}.Add("message", r.HPF.Message)))
	}
	return out
}

// Diagnostics runs the connectivity and settings checks
type Diagnostics struct {
	orchestrator *Orchestrator
	transport    Transport
	logger       *zap.Logger
	clock        timeutil.Clock
	intn         func(n int) int
	cfg          DiagnosticsConfig
}

// NewDiagnostics creates a diagnostics runner
func NewDiagnostics(orchestrator *Orchestrator, transport Transport, cfg DiagnosticsConfig, logger *zap.Logger) *Diagnostics {
	if cfg.PaymentFormURL == "" {
		cfg.PaymentFormURL = DefaultPaymentFormURL
	}
	if cfg.SystemTimeThreshold <= 0 {
		cfg.SystemTimeThreshold = DefaultSystemTimeThreshold
	}
	return &Diagnostics{
		orchestrator: orchestrator,
		transport:    transport,
		logger:       logger,
		clock:        timeutil.SystemClock{},
		intn:         rand.Intn,
		cfg:          cfg,
	}
}

// WithClock pins the clock used for the sample form timestamp
func (d *Diagnostics) WithClock(clock timeutil.Clock) *Diagnostics {
	d.clock = clock
	return d
}

// Run probes the gateway and works out the three diagnostic messages
func (d *Diagnostics) Run(ctx context.Context) (*Report, error) {
	probe, err := d.orchestrator.Probe(ctx)
	if err != nil {
		return nil, fmt.Errorf("gateway probe failed: %w", err)
	}

	report := &Report{Probe: probe, Method: d.cfg.Method}
	pairs := probe.Exchange.DateTimePairs()
	report.Connection = ConnectionMessage(probe.Exchange, d.cfg.Method)
	report.SystemTime = SystemTimeMessage(pairs, d.cfg.SystemTimeThreshold)
	report.SystemTimeStatus = SystemTimeStatus(pairs, d.cfg.SystemTimeThreshold)
	skew, skewKnown := SystemTimeDiff(pairs)
	observability.RecordProbe(probe.Connectivity, skew, skewKnown)

	creds := d.orchestrator.Credentials()
	verdict := CredentialsVerdict(probe.Exchange)
	checkHPF := func(method domain.HashMethod) func() HPFResponse {
		return func() HPFResponse {
			report.HPF = d.CheckGatewaySettings(ctx, method)
			return report.HPF.Result
		}
	}

	switch d.cfg.Method {
	case MethodDirect:
		report.Settings = DirectSettingsMessage(creds.IsMerchantIDFormatValid(), verdict, checkHPF(domain.HashMethodSHA1))
	default:
		if creds.IsMerchantIDFormatValid() {
			report.Settings = HostedSettingsMessage(true, verdict, checkHPF(creds.HashMethod)())
		} else {
			report.Settings = HostedSettingsMessage(false, verdict, HPFNoResponse)
		}
	}

	d.logger.Info("Gateway diagnostics completed",
		zap.String("method", string(d.cfg.Method)),
		zap.Bool("connectivity", report.Connectivity()),
		zap.String("connection_class", report.Connection.Class),
		zap.String("settings_class", report.Settings.Class),
		zap.String("system_time", report.SystemTimeStatus),
	)
	return report, nil
}

// CheckGatewaySettings posts a signed sample form to the hosted payment form
// and classifies the error label it renders
func (d *Diagnostics) CheckGatewaySettings(ctx context.Context, method domain.HashMethod) *HPFCheck {
	creds := d.orchestrator.Credentials()
	fields := SignHostedForm(creds, method,
		SampleHostedFields(d.cfg.Currency, d.cfg.HostedOptions, d.clock.Now(), d.intn))

	h := make(http.Header)
	h.Set("User-Agent", d.cfg.UserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-UK,en;q=0.5")
	h.Set("Accept-Encoding", "identity")
	h.Set("Connection", "close")
	h.Set("Content-Type", "application/x-www-form-urlencoded")

	res := d.transport.Send(ctx, &Request{
		URL:    d.cfg.PaymentFormURL,
		Body:   fields.Encode(),
		Header: h,
		Force:  true,
		Label:  connectionInfoHPF,
	})

	check := &HPFCheck{
		Result: HPFNoResponse,
		Attempt: Attempt{
			Number:     1,
			Endpoint:   d.cfg.PaymentFormURL,
			Code:       res.Code,
			ErrMessage: res.ErrMessage,
			Response:   res.Body,
			Info:       res.Info,
		},
	}
	if res.Code == TransportOK {
		check.Result, check.Message = ClassifyHPFResponse(res.Body)
	}

	d.logger.Debug("Hosted payment form check completed",
		zap.String("result", string(check.Result)),
		zap.String("transport_code", res.Code.String()),
	)
	return check
}
