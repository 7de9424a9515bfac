package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/ports"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/common-repository/paymentsense-gateway/pkg/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNoCrossReference is returned when an order was never paid through the gateway
var ErrNoCrossReference = domain.NewDomainError(domain.ErrorCodeValidation, "order has no gateway cross reference")

// RefundResult describes an accepted refund
type RefundResult struct {
	OrderID        string
	Amount         decimal.Decimal
	Currency       string
	CrossReference string
	Message        string
}

// RefundService refunds paid orders against their stored cross reference
type RefundService struct {
	gateway  Gateway
	orders   ports.OrderStore
	logger   *zap.Logger
	settings Settings
}

// NewRefundService creates the refund flow
func NewRefundService(gateway Gateway, orders ports.OrderStore, settings Settings, logger *zap.Logger) *RefundService {
	return &RefundService{
		gateway:  gateway,
		orders:   orders,
		logger:   logger,
		settings: settings,
	}
}

// Refund sends a refund of amount for the order. A declined refund returns an
// error matching domain.ErrTransactionDeclined whose message is shown to the
// merchant; an unknown gateway status matches domain.ErrUnsupportedStatus.
func (s *RefundService) Refund(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (*RefundResult, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !amount.IsPositive() || amount.GreaterThan(order.Refundable()) {
		return nil, domain.ErrInvalidAmount.
			WithDetail("amount", amount.StringFixed(2)).
			WithDetail("refundable", order.Refundable().StringFixed(2))
	}

	crossRef := order.GetMeta(domain.MetaCrossRef)
	if crossRef == "" {
		return nil, ErrNoCrossReference.WithDetail("order_id", orderID)
	}

	fields := paymentsense.RefundFields(s.gateway.Credentials(), orderID, amount, order.Currency, crossRef, s.settings.OrderPrefix, reason)
	result, err := s.gateway.Refund(ctx, fields)
	if err != nil && !errors.Is(err, domain.ErrUnsupportedStatus) {
		observability.RecordRefund("error", 0, order.Currency)
		s.logger.Error("Refund request failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("refund of order %s failed: %w", orderID, err)
	}

	if result.Outcome == domain.OutcomeUnsupported {
		observability.RecordRefund("unsupported", 0, order.Currency)
		s.logger.Warn("Unsupported refund status",
			zap.String("order_id", orderID),
			zap.String("status_code", result.StatusCode),
		)
		return nil, domain.WrapError(domain.ErrorCodeProtocol, msgRefundUnknownStatus+result.StatusCode+".", domain.ErrUnsupportedStatus)
	}

	if result.Outcome != domain.OutcomeSuccess {
		observability.RecordRefund("declined", 0, order.Currency)
		s.logger.Info("Refund declined",
			zap.String("order_id", orderID),
			zap.String("status_code", result.StatusCode),
		)
		return nil, domain.WrapError(domain.ErrorCodeDeclined, msgRefundDeclined+result.Message, domain.ErrTransactionDeclined)
	}

	note := fmt.Sprintf(msgRefundSuccess, amount.InexactFloat64(), order.Currency)
	if err := s.orders.AddRefund(ctx, orderID, amount, note); err != nil {
		return nil, fmt.Errorf("failed to record refund of order %s: %w", orderID, err)
	}
	observability.RecordRefund("success", domain.ToMinorUnits(amount), order.Currency)

	return &RefundResult{
		OrderID:        orderID,
		Amount:         amount,
		Currency:       order.Currency,
		CrossReference: result.CrossReference,
		Message:        result.Message,
	}, nil
}
