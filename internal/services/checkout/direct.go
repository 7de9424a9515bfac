package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/ports"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrInvalidCard is returned for card details that cannot be sent
var ErrInvalidCard = domain.NewDomainError(domain.ErrorCodeValidation, "invalid card details")

// ACSForm is the auto-submitting form that sends the customer to the card
// issuer's access control server
type ACSForm struct {
	URL     string
	PaReq   string
	MD      string
	TermURL string
}

// DirectService runs the direct card payment flow including 3-D Secure
type DirectService struct {
	gateway    Gateway
	orders     ports.OrderStore
	challenges ports.ChallengeStore
	validate   *validator.Validate
	logger     *zap.Logger
	settings   Settings
}

// NewDirectService creates the direct flow
func NewDirectService(gateway Gateway, orders ports.OrderStore, challenges ports.ChallengeStore, settings Settings, logger *zap.Logger) *DirectService {
	return &DirectService{
		gateway:    gateway,
		orders:     orders,
		challenges: challenges,
		validate:   validator.New(),
		logger:     logger,
		settings:   settings,
	}
}

// ProcessPayment sends a sale for the order. The redirect leads to the
// thank-you page, the ACS page when a challenge is issued, or back to the
// payment page with a notice.
func (s *DirectService) ProcessPayment(ctx context.Context, orderID string, card domain.CardDetails, customerIP, sessionID string) (*Redirect, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.validate.Struct(card); err != nil {
		s.logger.Info("Rejected card details",
			zap.String("order_id", orderID),
			zap.Int("invalid_fields", countValidationErrors(err)),
		)
		return &Redirect{
			URL:    s.settings.URLs.CheckoutPayment(orderID),
			Notice: msgPaymentFailed + ErrInvalidCard.Message + ". " + msgCheckCardDetails,
		}, nil
	}

	if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusPending, msgPendingPayment); err != nil {
		return nil, err
	}

	creds := s.gateway.Credentials()
	fields := paymentsense.SaleFields(creds, order, card, s.settings.Hosted.TransactionType, s.settings.OrderPrefix, customerIP)

	result, err := s.gateway.Sale(ctx, fields)
	if err != nil && !errors.Is(err, domain.ErrUnsupportedStatus) {
		s.logger.Error("Direct sale failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusFailed, msgUnexpectedError+"Error message: "+errorMessage(err)); err != nil {
			return nil, err
		}
		return &Redirect{
			URL:    s.settings.URLs.CheckoutPayment(orderID),
			Notice: msgUnexpectedError + msgContactSupport,
		}, nil
	}

	switch result.Outcome {
	case domain.OutcomeIncomplete:
		if err := s.challenges.Put(ctx, sessionID, *result.Challenge); err != nil {
			return nil, err
		}
		return &Redirect{URL: s.settings.URLs.ThreeDSecure(orderID)}, nil

	case domain.OutcomeSuccess:
		if err := s.recordPayment(ctx, orderID, result, msgPaymentSuccess); err != nil {
			return nil, err
		}
		return &Redirect{URL: s.settings.URLs.OrderReceived(orderID)}, nil

	case domain.OutcomeUnsupported:
		return s.unsupportedStatus(ctx, orderID, result)

	default:
		if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusFailed, msgPaymentFailed+strings.ToLower(result.Message)); err != nil {
			return nil, err
		}
		return &Redirect{
			URL:    s.settings.URLs.CheckoutPayment(orderID),
			Notice: msgPaymentFailed + result.Message + " " + msgCheckCardDetails,
		}, nil
	}
}

// ACSRedirect returns the form posting the stored challenge to the ACS. The
// challenge is consumed.
func (s *DirectService) ACSRedirect(ctx context.Context, sessionID, orderID string) (*ACSForm, error) {
	challenge, err := s.challenges.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !challenge.IsComplete() {
		return nil, domain.ErrChallengeNotFound.WithDetail("session_id", sessionID)
	}
	if err := s.challenges.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to delete 3-D Secure challenge", zap.Error(err))
	}
	return &ACSForm{
		URL:     challenge.ACSURL,
		PaReq:   challenge.PaREQ,
		MD:      challenge.CrossReference,
		TermURL: s.settings.URLs.TermURL(orderID),
	}, nil
}

// CompleteThreeDSecure sends the ACS result to the gateway and settles the
// order. crossReference is the MD value the ACS echoes back.
func (s *DirectService) CompleteThreeDSecure(ctx context.Context, orderID, crossReference, paRes string) (*Redirect, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.IsPaid() {
		s.logger.Warn("Unexpected 3-D Secure callback for a paid order", zap.String("order_id", orderID))
		if err := s.orders.AddNote(ctx, orderID, msgUnexpectedCallback); err != nil {
			return nil, err
		}
		return &Redirect{URL: s.settings.URLs.CheckoutPayment(orderID), Notice: msgAlreadyPaid}, nil
	}

	result, err := s.gateway.ThreeDSecureAuthenticate(ctx, crossReference, paRes)
	if err != nil && !errors.Is(err, domain.ErrUnsupportedStatus) {
		s.logger.Error("3-D Secure authentication failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusFailed, msgUnexpectedError); err != nil {
			return nil, err
		}
		return &Redirect{URL: s.settings.URLs.CheckoutPayment(orderID), Notice: msgUnexpectedError}, nil
	}

	if result.Outcome == domain.OutcomeSuccess {
		if err := s.recordPayment(ctx, orderID, result, msgPayment3DSSuccess); err != nil {
			return nil, err
		}
		return &Redirect{URL: s.settings.URLs.OrderReceived(orderID)}, nil
	}
	if result.Outcome == domain.OutcomeUnsupported {
		return s.unsupportedStatus(ctx, orderID, result)
	}

	if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusFailed, msgPayment3DSFailed+result.Message); err != nil {
		return nil, err
	}
	return &Redirect{
		URL:    s.settings.URLs.CheckoutPayment(orderID),
		Notice: msgPaymentFailed + result.Message + " " + msgCheckCardDetails,
	}, nil
}

func (s *DirectService) recordPayment(ctx context.Context, orderID string, result *paymentsense.TransactionResult, note string) error {
	if err := s.orders.SetMeta(ctx, orderID, domain.MetaAuthCode, result.AuthCode); err != nil {
		return err
	}
	if err := s.orders.SetMeta(ctx, orderID, domain.MetaCrossRef, result.CrossReference); err != nil {
		return err
	}
	if err := s.orders.PaymentComplete(ctx, orderID); err != nil {
		return err
	}
	return s.orders.AddNote(ctx, orderID, note+result.Message)
}

// unsupportedStatus fails the order without blaming the card and keeps the
// raw gateway status for support
func (s *DirectService) unsupportedStatus(ctx context.Context, orderID string, result *paymentsense.TransactionResult) (*Redirect, error) {
	s.logger.Warn("Unsupported gateway status",
		zap.String("order_id", orderID),
		zap.String("status_code", result.StatusCode),
	)
	if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusFailed, msgUnsupportedStatus+result.StatusCode+"."); err != nil {
		return nil, err
	}
	return &Redirect{
		URL:    s.settings.URLs.CheckoutPayment(orderID),
		Notice: msgUnknownStatus + result.StatusCode + ".",
	}, nil
}

func countValidationErrors(err error) int {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return len(verrs)
	}
	return 1
}
