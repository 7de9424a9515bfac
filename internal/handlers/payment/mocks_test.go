package payment

import (
	"context"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/common-repository/paymentsense-gateway/internal/services/checkout"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockHostedFlow struct {
	mock.Mock
}

func (m *mockHostedFlow) PaymentForm(ctx context.Context, orderID string) (*checkout.PaymentForm, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.PaymentForm), args.Error(1)
}

func (m *mockHostedFlow) HandleCallback(ctx context.Context, get func(string) string) *checkout.CallbackResponse {
	args := m.Called(ctx, get)
	return args.Get(0).(*checkout.CallbackResponse)
}

type mockDirectFlow struct {
	mock.Mock
}

func (m *mockDirectFlow) ProcessPayment(ctx context.Context, orderID string, card domain.CardDetails, customerIP, sessionID string) (*checkout.Redirect, error) {
	args := m.Called(ctx, orderID, card, customerIP, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Redirect), args.Error(1)
}

func (m *mockDirectFlow) ACSRedirect(ctx context.Context, sessionID, orderID string) (*checkout.ACSForm, error) {
	args := m.Called(ctx, sessionID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.ACSForm), args.Error(1)
}

func (m *mockDirectFlow) CompleteThreeDSecure(ctx context.Context, orderID, crossReference, paRes string) (*checkout.Redirect, error) {
	args := m.Called(ctx, orderID, crossReference, paRes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Redirect), args.Error(1)
}

type mockRefundFlow struct {
	mock.Mock
}

func (m *mockRefundFlow) Refund(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (*checkout.RefundResult, error) {
	args := m.Called(ctx, orderID, amount, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.RefundResult), args.Error(1)
}

type mockInfoFlow struct {
	mock.Mock
}

func (m *mockInfoFlow) ConnectionInfo(ctx context.Context) (paymentsense.Info, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(paymentsense.Info), args.Error(1)
}

func (m *mockInfoFlow) ModuleInfo(ctx context.Context, extended, withConnectionInfo bool) (paymentsense.Info, error) {
	args := m.Called(ctx, extended, withConnectionInfo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(paymentsense.Info), args.Error(1)
}
