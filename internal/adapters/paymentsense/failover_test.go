package paymentsense

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/common-repository/paymentsense-gateway/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// scriptedTransport replays results in order and records every request
type scriptedTransport struct {
	mu       sync.Mutex
	results  []*Result
	requests []*Request
}

func (s *scriptedTransport) Send(_ context.Context, req *Request) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.results) == 0 {
		return &Result{Code: TransportCouldntConnect, ErrMessage: "connection refused", LocalTime: time.Now()}
	}
	res := s.results[0]
	s.results = s.results[1:]
	return res
}

func (s *scriptedTransport) urls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	for i, r := range s.requests {
		out[i] = r.URL
	}
	return out
}

func okResult(body string) *Result {
	return &Result{Code: TransportOK, Body: body, LocalTime: time.Now()}
}

func refused() *Result {
	return &Result{Code: TransportCouldntConnect, ErrMessage: "connection refused", LocalTime: time.Now()}
}

var testEndpoints = []string{
	"https://gw1.example.com:4430/",
	"https://gw2.example.com:4430/",
	"https://gw3.example.com:4430/",
}

func statusIn(codes ...string) Evaluator {
	return func(r *Response) bool {
		for _, c := range codes {
			if r.StatusCode == c {
				return true
			}
		}
		return false
	}
}

func TestFailoverClient_Execute(t *testing.T) {
	tests := []struct {
		name          string
		results       []*Result
		policy        Policy
		wantURLs      []string
		wantFinal     string
		wantAttempts  int
		wantLastParse string
	}{
		{
			name:         "first attempt final",
			results:      []*Result{okResult("<StatusCode>0</StatusCode>")},
			policy:       Policy{AttemptsPerEndpoint: 1},
			wantURLs:     testEndpoints[:1],
			wantFinal:    "0",
			wantAttempts: 1,
		},
		{
			name:          "transport failure moves to next entry point",
			results:       []*Result{refused(), okResult("<StatusCode>4</StatusCode>")},
			policy:        Policy{AttemptsPerEndpoint: 1},
			wantURLs:      testEndpoints[:2],
			wantFinal:     "4",
			wantAttempts:  2,
			wantLastParse: "4",
		},
		{
			name:          "non-final status retries same entry point first",
			results:       []*Result{okResult("<StatusCode>30</StatusCode>"), okResult("<StatusCode>0</StatusCode>")},
			policy:        Policy{AttemptsPerEndpoint: 2},
			wantURLs:      []string{testEndpoints[0], testEndpoints[0]},
			wantFinal:     "0",
			wantAttempts:  2,
			wantLastParse: "0",
		},
		{
			name:          "exhausted",
			results:       []*Result{okResult("<StatusCode>30</StatusCode>"), refused(), refused()},
			policy:        Policy{AttemptsPerEndpoint: 1},
			wantURLs:      testEndpoints,
			wantAttempts:  3,
			wantLastParse: "30",
		},
		{
			name:         "zero attempts treated as one",
			results:      []*Result{refused(), refused(), refused()},
			policy:       Policy{},
			wantURLs:     testEndpoints,
			wantAttempts: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &scriptedTransport{results: tt.results}
			c := NewFailoverClient(tr, testEndpoints, nil, zaptest.NewLogger(t))

			out := c.Execute(context.Background(), FamilyCardDetailsTransaction, "<envelope/>", tt.policy, statusIn("0", "4", "5"))

			assert.Equal(t, tt.wantURLs, tr.urls())
			require.Len(t, out.Exchange.Attempts, tt.wantAttempts)
			for i, a := range out.Exchange.Attempts {
				assert.Equal(t, i+1, a.Number)
			}
			if tt.wantFinal == "" {
				assert.Nil(t, out.Final)
			} else {
				require.NotNil(t, out.Final)
				assert.Equal(t, tt.wantFinal, out.Final.StatusCode)
			}
			if tt.wantLastParse != "" {
				require.NotNil(t, out.LastParsed)
				assert.Equal(t, tt.wantLastParse, out.LastParsed.StatusCode)
			}
			assert.NotNil(t, out.LastResult)
		})
	}
}

func TestFailoverClient_AbortStopsLoop(t *testing.T) {
	tr := &scriptedTransport{results: []*Result{{Code: TransportAborted, ErrMessage: AbortedMessage, Aborted: true}}}
	c := NewFailoverClient(tr, testEndpoints, nil, zaptest.NewLogger(t))

	out := c.Execute(context.Background(), FamilyGetGatewayEntryPoints, "", Policy{AttemptsPerEndpoint: 1}, statusIn("0"))

	assert.Len(t, tr.urls(), 1)
	assert.Nil(t, out.Final)
	assert.True(t, out.LastResult.Aborted)
	assert.Empty(t, out.Exchange.DateTimePairs(), "aborted attempts never sample the clock")
}

func TestFailoverClient_ForcePropagates(t *testing.T) {
	tr := &scriptedTransport{results: []*Result{okResult("<StatusCode>0</StatusCode>")}}
	c := NewFailoverClient(tr, testEndpoints, nil, zaptest.NewLogger(t))

	c.Execute(context.Background(), FamilyGetGatewayEntryPoints, "", Policy{AttemptsPerEndpoint: 1, Force: true}, statusIn("0"))

	require.Len(t, tr.requests, 1)
	assert.True(t, tr.requests[0].Force)
	assert.Equal(t, "https://www.thepaymentgateway.net/GetGatewayEntryPoints", tr.requests[0].Header.Get("SOAPAction"))
}

func TestFailoverClient_BackoffHonoursContext(t *testing.T) {
	tr := &scriptedTransport{results: []*Result{refused(), refused(), refused()}}
	c := NewFailoverClient(tr, testEndpoints, &resilience.FixedBackoff{Delay: time.Hour}, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan *ExecuteResult, 1)
	go func() {
		done <- c.Execute(ctx, FamilyGetGatewayEntryPoints, "", Policy{AttemptsPerEndpoint: 1}, statusIn("0"))
	}()

	select {
	case out := <-done:
		assert.Len(t, out.Exchange.Attempts, 1)
		assert.Nil(t, out.Final)
	case <-time.After(2 * time.Second):
		t.Fatal("Execute did not return when the context ended")
	}
}

func TestFailoverClient_Endpoints(t *testing.T) {
	eps := []string{"https://a.example.com"}
	c := NewFailoverClient(&scriptedTransport{}, eps, nil, zaptest.NewLogger(t))
	eps[0] = "changed"

	got := c.Endpoints()
	assert.Equal(t, []string{"https://a.example.com"}, got)
	got[0] = "changed"
	assert.Equal(t, "https://a.example.com", c.Endpoints()[0])
}

func TestExchange_DateTimePairs(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	var e Exchange
	e.Record("https://gw1.example.com:4430/", &Result{LocalTime: t1, RemoteTime: t1, HasRemoteTime: true})
	e.Record("https://gw2.example.com:4430/", &Result{LocalTime: t1})
	e.Record("https://GW1.example.com:4430/", &Result{LocalTime: t2, RemoteTime: t2, HasRemoteTime: true})
	e.Record("https://gw3.example.com:4430/", &Result{Aborted: true})

	pairs := e.DateTimePairs()
	require.Len(t, pairs, 2)
	assert.Equal(t, "gw1.example.com", pairs[0].Host)
	assert.Equal(t, t2, pairs[0].Local, "later sample replaces the earlier one for the same host")
	assert.Equal(t, "gw2.example.com", pairs[1].Host)
	assert.False(t, pairs[1].HasRemote)
	assert.Len(t, e.Attempts, 4)
}
