package paymentsense

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/common-repository/paymentsense-gateway/pkg/observability"
	"go.uber.org/zap"
)

const (
	saleAttemptsPerEndpoint  = 3
	probeAttemptsPerEndpoint = 1

	// previousTransactionNotFound is the refund response worth retrying on
	// another attempt
	previousTransactionNotFound = "Couldn't find previous transaction"
)

// TransactionResult is the classified outcome of one transaction family call.
// It always carries the Exchange, also when an error is returned.
type TransactionResult struct {
	Exchange       *Exchange
	Response       *Response
	Challenge      *domain.ThreeDSecureChallenge
	Outcome        domain.Outcome
	StatusCode     string
	Message        string
	CrossReference string
	AuthCode       string
}

// ProbeResult is the outcome of a GetGatewayEntryPoints connectivity probe
type ProbeResult struct {
	Exchange *Exchange
	// Valid is true when an entry point returned a numeric status other than 30
	Valid bool
	// Connectivity is true once any attempt returned a numeric status
	Connectivity bool
	// CredentialsValid is nil when the responses did not settle the question
	CredentialsValid *bool
}

// Orchestrator drives the request/response cycle of each transaction family.
// It holds only immutable configuration; every call gets its own Exchange.
type Orchestrator struct {
	client *FailoverClient
	logger *zap.Logger
	creds  domain.GatewayCredentials
}

// NewOrchestrator creates an orchestrator for one merchant account
func NewOrchestrator(creds domain.GatewayCredentials, client *FailoverClient, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{client: client, logger: logger, creds: creds}
}

// Credentials returns the merchant credentials the orchestrator signs with
func (o *Orchestrator) Credentials() domain.GatewayCredentials {
	return o.creds
}

// Probe sends GetGatewayEntryPoints once to every entry point, ignoring the
// port 4430 switch, until one returns a numeric status other than 30
func (o *Orchestrator) Probe(ctx context.Context) (*ProbeResult, error) {
	envelope, err := BuildEnvelope(FamilyGetGatewayEntryPoints, EntryPointsFields(o.creds))
	if err != nil {
		return nil, err
	}

	result := &ProbeResult{}
	evaluate := func(resp *Response) bool {
		status, ok := resp.Status()
		if !ok {
			return false
		}
		result.Connectivity = true
		if status == domain.StatusFailed {
			if merchantCredentialsInvalid(resp.Message) {
				result.CredentialsValid = boolPtr(false)
			}
			return false
		}
		if status == domain.StatusSuccess {
			result.CredentialsValid = boolPtr(true)
		}
		return true
	}

	exec := o.client.Execute(ctx, FamilyGetGatewayEntryPoints, envelope,
		Policy{AttemptsPerEndpoint: probeAttemptsPerEndpoint, Force: true}, evaluate)
	result.Exchange = exec.Exchange
	result.Valid = exec.Final != nil

	o.logger.Info("Gateway probe completed",
		zap.Bool("valid", result.Valid),
		zap.Bool("connectivity", result.Connectivity),
		zap.Int("attempts", len(exec.Exchange.Attempts)),
	)
	return result, nil
}

// Sale sends a CardDetailsTransaction. A 3-D Secure challenge is returned
// with the incomplete outcome.
func (o *Orchestrator) Sale(ctx context.Context, fields *FieldSet) (*TransactionResult, error) {
	return o.run(ctx, FamilyCardDetailsTransaction, fields, isNumericStatus)
}

// Refund sends a CrossReferenceTransaction. A 30 reporting that the previous
// transaction cannot be found yet is retried.
func (o *Orchestrator) Refund(ctx context.Context, fields *FieldSet) (*TransactionResult, error) {
	evaluate := func(resp *Response) bool {
		status, ok := resp.Status()
		if !ok {
			return false
		}
		return !(status == domain.StatusFailed && resp.Message == previousTransactionNotFound)
	}
	return o.run(ctx, FamilyCrossReferenceTransaction, fields, evaluate)
}

// ThreeDSecureAuthenticate completes a sale that returned a challenge
func (o *Orchestrator) ThreeDSecureAuthenticate(ctx context.Context, crossReference, paRes string) (*TransactionResult, error) {
	return o.run(ctx, FamilyThreeDSecureAuthentication, ThreeDSecureFields(o.creds, crossReference, paRes), isNumericStatus)
}

func (o *Orchestrator) run(ctx context.Context, family Family, fields *FieldSet, evaluate Evaluator) (*TransactionResult, error) {
	if err := o.creds.Validate(); err != nil {
		return &TransactionResult{Exchange: &Exchange{}}, err
	}

	envelope, err := BuildEnvelope(family, fields)
	if err != nil {
		return &TransactionResult{Exchange: &Exchange{}}, err
	}

	exec := o.client.Execute(ctx, family, envelope,
		Policy{AttemptsPerEndpoint: saleAttemptsPerEndpoint}, evaluate)
	result := &TransactionResult{Exchange: exec.Exchange}

	resp := exec.Final
	if resp == nil {
		switch {
		case exec.LastResult != nil && exec.LastResult.Aborted:
			observability.RecordGatewayOutcome(string(family), "aborted")
			return result, domain.ErrTransportDisabled
		case exec.LastParsed == nil:
			observability.RecordGatewayOutcome(string(family), "transport_error")
			err := domain.ErrGatewayUnreachable
			if exec.LastResult != nil {
				err = err.WithDetail("transport_code", exec.LastResult.Code.String()).
					WithDetail("error", exec.LastResult.ErrMessage)
			}
			return result, err
		}
		resp = exec.LastParsed
		if _, numeric := resp.Status(); !numeric {
			result.Response = resp
			result.Outcome = domain.OutcomeUnsupported
			result.StatusCode = resp.StatusCode
			result.Message = resp.Message
			observability.RecordGatewayOutcome(string(family), string(result.Outcome))
			return result, domain.ErrUnsupportedStatus.WithDetail("status_code", resp.StatusCode)
		}
	}

	o.classify(family, resp, result)
	observability.RecordGatewayOutcome(string(family), string(result.Outcome))

	o.logger.Info("Gateway transaction completed",
		zap.String("family", string(family)),
		zap.String("status_code", result.StatusCode),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("attempts", len(exec.Exchange.Attempts)),
	)
	return result, nil
}

// classify maps a numeric response onto the outcome table
func (o *Orchestrator) classify(family Family, resp *Response, result *TransactionResult) {
	status, _ := resp.Status()

	result.Response = resp
	result.StatusCode = resp.StatusCode
	result.Message = resp.Message
	result.CrossReference = resp.CrossReference
	result.AuthCode = resp.AuthCode

	previous := ""
	if status == domain.StatusDuplicate && resp.HasPrevious {
		previous = resp.PreviousStatusCode
		result.Message = resp.PreviousMessage
	}

	result.Outcome = domain.ClassifyStatus(status, previous)
	if result.Outcome == domain.OutcomeIncomplete {
		if family == FamilyCardDetailsTransaction {
			result.Challenge = &domain.ThreeDSecureChallenge{
				PaREQ:          resp.PaREQ,
				CrossReference: resp.CrossReference,
				ACSURL:         resp.ACSURL,
			}
			return
		}
		result.Outcome = domain.OutcomeFailed
	}

	if result.Outcome == domain.OutcomeFailed {
		result.Message = appendDetail(result.Message, resp.Detail)
	}
}

// appendDetail extends a failure message with the Detail element when present
func appendDetail(message, detail string) string {
	if detail == "" || detail == "Detail Not Found" {
		return message
	}
	return strings.TrimSpace(message + " " + detail)
}

// isNumericStatus ends sales and 3-D Secure authentications on any numeric
// status, 30 included: a rejected card or 3-D Secure result is not retried
// against another entry point.
func isNumericStatus(resp *Response) bool {
	_, ok := resp.Status()
	return ok
}

func merchantCredentialsInvalid(msg string) bool {
	return strings.Contains(msg, "Input variable errors") ||
		strings.Contains(msg, "Invalid merchant details")
}

// CredentialsVerdict reads the probe attempt log the way the settings check
// does: the first 0 proves the credentials, the first 30 with a credentials
// message disproves them
func CredentialsVerdict(ex *Exchange) *bool {
	for _, a := range ex.Attempts {
		if a.Code != TransportOK {
			continue
		}
		status := ExtractElement(a.Response, "StatusCode", "[0-9]+")
		switch status {
		case strconv.Itoa(domain.StatusSuccess):
			return boolPtr(true)
		case strconv.Itoa(domain.StatusFailed):
			if merchantCredentialsInvalid(ExtractElement(a.Response, "Message", ".+")) {
				return boolPtr(false)
			}
		}
	}
	return nil
}

func boolPtr(b bool) *bool {
	return &b
}

// String renders the result for logs without card data
func (r *TransactionResult) String() string {
	return fmt.Sprintf("outcome=%s status=%s crossref=%s", r.Outcome, r.StatusCode, r.CrossReference)
}
