package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/ports"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/common-repository/paymentsense-gateway/pkg/observability"
	"github.com/common-repository/paymentsense-gateway/pkg/timeutil"
	"go.uber.org/zap"
)

// SERVER result delivery responses
const (
	serverStatusOK    = 0
	serverStatusError = 30

	serverMsgSuccess     = "Request processed successfully."
	serverMsgUnsupported = "Unknown or unsupported payment status."
	serverMsgException   = `An exception with message "%s" has been thrown while processing order #%s.`
)

// PaymentForm is the auto-submitting form that sends the customer to the
// hosted payment page
type PaymentForm struct {
	Title           string
	URL             string
	SubmitLabel     string
	RedirectMessage string
	Fields          []paymentsense.Field
}

// CallbackResponse is what a hosted callback answers with. Exactly one of
// the fields is set.
type CallbackResponse struct {
	// Body is the plain text answer to a SERVER notification
	Body string
	// Redirect sends the customer back to the storefront
	Redirect *Redirect
	// Message is shown to the customer as a page
	Message string
}

// HostedService runs the hosted payment form flow
type HostedService struct {
	orders   ports.OrderStore
	logger   *zap.Logger
	clock    timeutil.Clock
	creds    domain.GatewayCredentials
	settings Settings
}

// NewHostedService creates the hosted flow
func NewHostedService(orders ports.OrderStore, creds domain.GatewayCredentials, settings Settings, logger *zap.Logger) *HostedService {
	if settings.PaymentFormURL == "" {
		settings.PaymentFormURL = paymentsense.DefaultPaymentFormURL
	}
	return &HostedService{
		orders:   orders,
		logger:   logger,
		clock:    timeutil.SystemClock{},
		creds:    creds,
		settings: settings,
	}
}

// WithClock pins the clock used for timestamps and the expiry check
func (s *HostedService) WithClock(clock timeutil.Clock) *HostedService {
	s.clock = clock
	return s
}

// PaymentForm moves the order to pending and signs the hosted form for it
func (s *HostedService) PaymentForm(ctx context.Context, orderID string) (*PaymentForm, error) {
	if err := s.creds.ValidateForHostedForm(); err != nil {
		return nil, err
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !s.withinPaymentTimeframe(order) {
		s.logger.Info("Hosted payment form requested after the payment timeframe",
			zap.String("order_id", orderID),
			zap.Time("modified_at", order.ModifiedAt),
		)
		return nil, domain.ErrPaymentExpired.WithDetail("order_id", orderID)
	}

	if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusPending, msgPendingPayment); err != nil {
		return nil, fmt.Errorf("failed to set order pending: %w", err)
	}

	fields := paymentsense.SignHostedForm(s.creds, s.creds.HashMethod,
		paymentsense.HostedPaymentFields(order, s.settings.Hosted, now))

	return &PaymentForm{
		Title:           "Thank you - your order is now pending payment. You should be automatically redirected to Paymentsense to make payment.",
		URL:             s.settings.PaymentFormURL,
		SubmitLabel:     "Click here if you are not redirected within 10 seconds...",
		RedirectMessage: "We are now redirecting you to Paymentsense to complete your payment.",
		Fields:          fields.Fields(),
	}, nil
}

func (s *HostedService) withinPaymentTimeframe(order *domain.Order) bool {
	timeout := s.settings.PaymentMethodTimeout
	if timeout <= 0 {
		return true
	}
	return s.clock.Now().Sub(order.ModifiedAt) < timeout
}

// PaymentFormMessage is the page text shown when the form cannot be built
func PaymentFormMessage(orderID string, err error) string {
	switch {
	case errors.Is(err, domain.ErrPaymentExpired):
		return msgPaymentExpired
	case domain.IsConfigurationError(err):
		return msgNotConfigured
	default:
		return fmt.Sprintf(msgProcessingError, orderID, errorMessage(err))
	}
}

// HandleCallback processes a gateway callback for the configured result
// delivery method. get reads a request variable.
func (s *HostedService) HandleCallback(ctx context.Context, get func(string) string) *CallbackResponse {
	switch s.settings.Hosted.ResultDelivery {
	case paymentsense.DeliveryPOST:
		authenticated := paymentsense.VerifyCallback(s.creds, paymentsense.RequestNotification, get)
		return s.processPostResponse(ctx, get, authenticated)
	case paymentsense.DeliverySERVER:
		requestType := paymentsense.ClassifyServerRequest(get("StatusCode"))
		authenticated := paymentsense.VerifyCallback(s.creds, requestType, get)
		if requestType == paymentsense.RequestNotification {
			return s.processServerNotification(ctx, get, authenticated)
		}
		return s.processServerCustomerRedirect(ctx, get, authenticated)
	default:
		return &CallbackResponse{Message: msgUnsupportedMethod}
	}
}

// processPostResponse handles the POST delivery, where the customer's browser
// carries the result
func (s *HostedService) processPostResponse(ctx context.Context, get func(string) string, authenticated bool) *CallbackResponse {
	orderID := get("OrderID")
	if orderID == "" {
		return &CallbackResponse{Message: msgOrderIDEmpty}
	}

	status, customerMsg, err := s.processNotification(ctx, orderID, get, authenticated)
	observability.RecordCallback(paymentsense.DeliveryPOST, paymentsense.RequestNotification.String(), authenticated, status)
	if err != nil {
		s.logger.Error("Failed to process hosted callback",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return &CallbackResponse{Message: fmt.Sprintf(msgProcessingError, orderID, errorMessage(err))}
	}

	if status == PaymentStatusDuplicated {
		return &CallbackResponse{Redirect: &Redirect{
			URL:    s.settings.URLs.CheckoutPayment(orderID),
			Notice: customerMsg,
		}}
	}

	// The thank-you page reads ErrMessage to tell a failed payment apart
	if err := s.orders.SetMeta(ctx, orderID, domain.MetaErrMessage, customerMsg); err != nil {
		return &CallbackResponse{Message: fmt.Sprintf(msgProcessingError, orderID, errorMessage(err))}
	}
	return &CallbackResponse{Redirect: &Redirect{
		URL:    s.settings.URLs.OrderReceived(orderID),
		Notice: customerMsg,
	}}
}

// processServerNotification handles the server-to-server half of the SERVER
// delivery. The answer tells the gateway whether the result was accepted.
func (s *HostedService) processServerNotification(ctx context.Context, get func(string) string, authenticated bool) *CallbackResponse {
	orderID := get("OrderID")

	status, _, err := func() (string, string, error) {
		if orderID == "" {
			return "", "", errors.New(msgOrderIDEmpty)
		}
		status, customerMsg, err := s.processNotification(ctx, orderID, get, authenticated)
		if err != nil {
			return status, customerMsg, err
		}
		if err := s.orders.SetMeta(ctx, orderID, domain.MetaPaymentStatus, status); err != nil {
			return status, customerMsg, err
		}
		return status, customerMsg, s.orders.SetMeta(ctx, orderID, domain.MetaCustomerErrorMsg, customerMsg)
	}()
	observability.RecordCallback(paymentsense.DeliverySERVER, paymentsense.RequestNotification.String(), authenticated, status)

	if err != nil {
		s.logger.Error("Failed to process server notification",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return serverResponse(serverStatusError, fmt.Sprintf(serverMsgException, errorMessage(err), orderID))
	}
	if status == PaymentStatusUnsupported {
		return serverResponse(serverStatusError, serverMsgUnsupported)
	}
	return serverResponse(serverStatusOK, serverMsgSuccess)
}

// processServerCustomerRedirect sends the customer on using the result the
// notification stored
func (s *HostedService) processServerCustomerRedirect(ctx context.Context, get func(string) string, authenticated bool) *CallbackResponse {
	orderID := get("OrderID")
	if orderID == "" {
		return &CallbackResponse{Message: msgOrderIDEmpty}
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return &CallbackResponse{Message: fmt.Sprintf(msgProcessingError, orderID, errorMessage(err))}
	}

	status := order.GetMeta(domain.MetaPaymentStatus)
	observability.RecordCallback(paymentsense.DeliverySERVER, paymentsense.RequestCustomerRedirect.String(), authenticated, status)

	if status == PaymentStatusSuccess {
		return &CallbackResponse{Redirect: &Redirect{URL: s.settings.URLs.OrderReceived(orderID)}}
	}
	return &CallbackResponse{Redirect: &Redirect{
		URL:    s.settings.URLs.CheckoutPayment(orderID),
		Notice: order.GetMeta(domain.MetaCustomerErrorMsg),
	}}
}

// processNotification applies a payment result to the order and returns the
// payment status with the message for the customer. An order already in
// processing is left alone.
func (s *HostedService) processNotification(ctx context.Context, orderID string, get func(string) string, authenticated bool) (string, string, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return "", "", err
	}

	if order.IsPaid() {
		s.logger.Warn("Unexpected callback for a paid order", zap.String("order_id", orderID))
		if err := s.orders.AddNote(ctx, orderID, msgUnexpectedCallback); err != nil {
			return "", "", err
		}
		return PaymentStatusDuplicated, msgAlreadyPaid, nil
	}

	message := get("Message")
	crossRef := get("CrossReference")
	statusCode := get("StatusCode")

	authWarning := ""
	if !authenticated {
		authWarning = msgAuthWarning
		s.logger.Warn("Hosted callback failed hash digest verification",
			zap.String("order_id", orderID),
			zap.String("status_code", statusCode),
		)
	}

	if err := s.orders.SetMeta(ctx, orderID, domain.MetaCrossRef, crossRef); err != nil {
		return "", "", err
	}

	switch callbackOutcome(statusCode, get("PreviousStatusCode")) {
	case domain.OutcomeSuccess:
		if err := s.orders.PaymentComplete(ctx, orderID); err != nil {
			return "", "", err
		}
		if !authenticated {
			instructions := fmt.Sprintf(msgAuthInstructions, crossRef, message) + msgAuthConfirm
			if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusOnHold, authWarning); err != nil {
				return "", "", err
			}
			if err := s.orders.AddNote(ctx, orderID, instructions); err != nil {
				return "", "", err
			}
		} else if err := s.orders.AddNote(ctx, orderID, msgPaymentSuccess+message); err != nil {
			return "", "", err
		}
		return PaymentStatusSuccess, "", nil

	case domain.OutcomeFailed:
		if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusFailed, authWarning+msgPaymentFailed+message); err != nil {
			return "", "", err
		}
		return PaymentStatusFailed, msgPaymentFailed + message + ". " + msgCheckCardDetails, nil

	default:
		if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusFailed, msgUnsupportedStatus+statusCode+"."); err != nil {
			return "", "", err
		}
		return PaymentStatusUnsupported, msgUnknownStatus + statusCode + ".", nil
	}
}

func serverResponse(code int, message string) *CallbackResponse {
	return &CallbackResponse{Body: "StatusCode=" + strconv.Itoa(code) + "&Message=" + message}
}

func parseStatus(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
