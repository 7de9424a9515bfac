package paymentsense

import (
	"context"
	"time"

	"github.com/common-repository/paymentsense-gateway/pkg/observability"
	"github.com/common-repository/paymentsense-gateway/pkg/resilience"
	"go.uber.org/zap"
)

// DefaultEntryPoints are the gateway entry points in failover order
var DefaultEntryPoints = []string{
	"https://gw1.paymentsensegateway.com:4430",
	"https://gw2.paymentsensegateway.com:4430",
	"https://gw3.paymentsensegateway.com:4430",
}

// Attempt is one entry of the connection attempt log
type Attempt struct {
	Info       TransferInfo
	Endpoint   string
	ErrMessage string
	Response   string
	Number     int
	Code       TransportCode
}

// DateTimePair is a local/remote clock sample taken from one entry point
type DateTimePair struct {
	Local     time.Time
	Remote    time.Time
	Host      string
	HasRemote bool
}

// Exchange accumulates the attempt log and clock samples of one
// orchestration call. It is never shared between calls.
type Exchange struct {
	Attempts []Attempt
	pairs    []DateTimePair
}

// DateTimePairs returns the clock samples, one per host, in first-seen order
func (e *Exchange) DateTimePairs() []DateTimePair {
	out := make([]DateTimePair, len(e.pairs))
	copy(out, e.pairs)
	return out
}

// Record appends an attempt and, unless the request was aborted before
// reaching the network, stores a clock sample for its host
func (e *Exchange) Record(endpoint string, res *Result) Attempt {
	a := Attempt{
		Number:     len(e.Attempts) + 1,
		Endpoint:   endpoint,
		Code:       res.Code,
		ErrMessage: res.ErrMessage,
		Response:   res.Body,
		Info:       res.Info,
	}
	e.Attempts = append(e.Attempts, a)

	if !res.Aborted {
		e.addPair(DateTimePair{
			Host:      hostname(endpoint),
			Local:     res.LocalTime,
			Remote:    res.RemoteTime,
			HasRemote: res.HasRemoteTime,
		})
	}
	return a
}

func (e *Exchange) addPair(p DateTimePair) {
	for i := range e.pairs {
		if e.pairs[i].Host == p.Host {
			e.pairs[i] = p
			return
		}
	}
	e.pairs = append(e.pairs, p)
}

// Policy bounds a failover loop
type Policy struct {
	AttemptsPerEndpoint int
	Force               bool
}

// Evaluator inspects a parsed response and reports whether it ends the loop
type Evaluator func(resp *Response) bool

// FailoverClient tries the entry points strictly in sequence
type FailoverClient struct {
	transport Transport
	backoff   resilience.BackoffStrategy
	logger    *zap.Logger
	endpoints []string
}

// NewFailoverClient creates a client over the given entry points. backoff may
// be nil for back-to-back attempts.
func NewFailoverClient(transport Transport, endpoints []string, backoff resilience.BackoffStrategy, logger *zap.Logger) *FailoverClient {
	eps := make([]string, len(endpoints))
	copy(eps, endpoints)
	return &FailoverClient{
		transport: transport,
		backoff:   backoff,
		logger:    logger,
		endpoints: eps,
	}
}

// Endpoints returns the configured entry points
func (c *FailoverClient) Endpoints() []string {
	out := make([]string, len(c.endpoints))
	copy(out, c.endpoints)
	return out
}

// ExecuteResult is what a failover loop produced
type ExecuteResult struct {
	Exchange *Exchange
	// Final is the response that ended the loop, nil on exhaustion
	Final *Response
	// LastParsed is the last response whose transport succeeded, final or not
	LastParsed *Response
	// LastResult is the transport result of the last attempt
	LastResult *Result
}

// Execute posts the envelope to endpoint[0] up to AttemptsPerEndpoint times,
// then endpoint[1], and so on, stopping at the first response evaluate accepts.
func (c *FailoverClient) Execute(ctx context.Context, family Family, envelope string, policy Policy, evaluate Evaluator) *ExecuteResult {
	out := &ExecuteResult{Exchange: &Exchange{}}
	attempts := policy.AttemptsPerEndpoint
	if attempts < 1 {
		attempts = 1
	}

	sent := 0
	for _, endpoint := range c.endpoints {
		for i := 0; i < attempts; i++ {
			if sent > 0 && !c.wait(ctx, sent-1) {
				return out
			}
			sent++

			start := time.Now()
			res := c.transport.Send(ctx, SOAPRequest(family, endpoint, envelope, policy.Force))
			out.Exchange.Record(endpoint, res)
			out.LastResult = res
			observability.RecordGatewayAttempt(string(family), hostname(endpoint), res.Code.String(), time.Since(start))

			if res.Aborted {
				// the port 4430 switch will not change between attempts
				return out
			}
			if res.Code != TransportOK {
				continue
			}

			parsed := ParseResponse(res.Body)
			out.LastParsed = parsed
			c.logger.Debug("Gateway attempt parsed",
				zap.String("family", string(family)),
				zap.String("endpoint", endpoint),
				zap.Int("attempt", sent),
				zap.String("status_code", parsed.StatusCode),
			)
			if evaluate(parsed) {
				out.Final = parsed
				return out
			}
		}
	}

	c.logger.Warn("Gateway attempts exhausted without a final response",
		zap.String("family", string(family)),
		zap.Int("attempts", sent),
	)
	return out
}

// wait sleeps for the configured inter-attempt delay. It returns false if the
// context ends first.
func (c *FailoverClient) wait(ctx context.Context, attempt int) bool {
	if c.backoff == nil {
		return ctx.Err() == nil
	}
	delay := c.backoff.NextDelay(attempt)
	if delay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}
