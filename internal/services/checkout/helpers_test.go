package checkout_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/memory"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/common-repository/paymentsense-gateway/internal/services/checkout"
	"github.com/common-repository/paymentsense-gateway/pkg/timeutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testCreds = domain.GatewayCredentials{
	MerchantID:   "ABCDEF-1234567",
	Password:     "gateway-password",
	PreSharedKey: "pre-shared-key",
	HashMethod:   domain.HashMethodSHA1,
}

var testEntryPoints = []string{
	"https://gw1.example.com:4430",
	"https://gw2.example.com:4430",
}

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// scriptedTransport answers each Send with the next queued body; an empty
// queue behaves like an unreachable host
type scriptedTransport struct {
	mu        sync.Mutex
	responses []string
	requests  []*paymentsense.Request
}

func (t *scriptedTransport) Send(ctx context.Context, req *paymentsense.Request) *paymentsense.Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.requests = append(t.requests, req)
	if len(t.responses) == 0 {
		return &paymentsense.Result{
			Code:       paymentsense.TransportCouldntConnect,
			ErrMessage: "connection refused",
			LocalTime:  testNow,
		}
	}
	body := t.responses[0]
	t.responses = t.responses[1:]
	return &paymentsense.Result{
		Code:          paymentsense.TransportOK,
		Body:          body,
		LocalTime:     testNow,
		RemoteTime:    testNow,
		HasRemoteTime: true,
	}
}

func (t *scriptedTransport) sent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

// gatewayResponse renders a minimal SOAP response for family
func gatewayResponse(family paymentsense.Family, status int, message, crossRef, extra string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <%[1]sResponse xmlns="https://www.thepaymentgateway.net/">
      <%[1]sResult AuthorisationAttempted="True">
        <StatusCode>%[2]d</StatusCode>
        <Message>%[3]s</Message>
      </%[1]sResult>
      <TransactionOutputData CrossReference="%[4]s">%[5]s</TransactionOutputData>
    </%[1]sResponse>
  </soap:Body>
</soap:Envelope>`, family, status, message, crossRef, extra)
}

type fixture struct {
	transport *scriptedTransport
	orders    *memory.OrderStore
	sessions  *memory.ChallengeStore
	gateway   *paymentsense.Orchestrator
	settings  checkout.Settings
}

func newFixture(t *testing.T, responses ...string) *fixture {
	t.Helper()

	logger := zap.NewNop()
	transport := &scriptedTransport{responses: responses}
	client := paymentsense.NewFailoverClient(transport, testEntryPoints, nil, logger)
	sessions := memory.NewChallengeStore(time.Minute)
	t.Cleanup(func() { _ = sessions.Close() })

	return &fixture{
		transport: transport,
		orders:    memory.NewOrderStore().WithClock(timeutil.FixedClock{T: testNow}),
		sessions:  sessions,
		gateway:   paymentsense.NewOrchestrator(testCreds, client, logger),
		settings: checkout.Settings{
			Hosted: paymentsense.HostedFormOptions{
				TransactionType:   domain.TransactionTypeSale,
				OrderPrefix:       "WC-",
				CallbackURL:       "https://pay.example.com/callback/hosted",
				ResultDelivery:    paymentsense.DeliveryPOST,
				Address1Mandatory: true,
				PostCodeMandatory: true,
			},
			URLs: checkout.URLs{
				PublicURL:        "https://pay.example.com",
				OrderReceivedURL: "https://shop.example.com/order-received/{order_id}",
				CheckoutURL:      "https://shop.example.com/checkout",
			},
			PaymentFormURL:       paymentsense.DefaultPaymentFormURL,
			OrderPrefix:          "WC-",
			Currency:             "GBP",
			PaymentMethodTimeout: 30 * time.Minute,
		},
	}
}

func (f *fixture) createOrder(t *testing.T, id string, status domain.OrderStatus) *domain.Order {
	t.Helper()
	order := &domain.Order{
		ID:       id,
		Currency: "GBP",
		Total:    decimal.RequireFromString("25.00"),
		Email:    "jane@example.com",
		Phone:    "07700900123",
		Status:   status,
		Billing: domain.BillingAddress{
			FirstName: "Jane",
			LastName:  "Doe",
			Address1:  "1 High Street",
			City:      "London",
			Postcode:  "SW1A 1AA",
			Country:   "GB",
		},
	}
	require.NoError(t, f.orders.Create(context.Background(), order))
	return order
}

func (f *fixture) order(t *testing.T, id string) *domain.Order {
	t.Helper()
	order, err := f.orders.Get(context.Background(), id)
	require.NoError(t, err)
	return order
}

func (f *fixture) notes(t *testing.T, id string) []string {
	t.Helper()
	notes, err := f.orders.Notes(context.Background(), id)
	require.NoError(t, err)
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Text)
	}
	return out
}

// signedCallback returns a getter over values with a valid HashDigest
func signedCallback(requestType paymentsense.RequestType, values map[string]string) func(string) string {
	get := func(key string) string { return values[key] }
	data := paymentsense.CallbackString(testCreds, requestType, get)
	values["HashDigest"] = paymentsense.Digest(data, testCreds.HashMethod, testCreds.PreSharedKey)
	return get
}
