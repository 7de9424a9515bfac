// Package checkout composes the gateway engine with the order and session
// stores into the hosted, direct, refund and diagnostics flows.
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
)

// Gateway is the part of the transaction orchestrator the flows drive
type Gateway interface {
	Sale(ctx context.Context, fields *paymentsense.FieldSet) (*paymentsense.TransactionResult, error)
	Refund(ctx context.Context, fields *paymentsense.FieldSet) (*paymentsense.TransactionResult, error)
	ThreeDSecureAuthenticate(ctx context.Context, crossReference, paRes string) (*paymentsense.TransactionResult, error)
	Credentials() domain.GatewayCredentials
}

// Payment statuses stored in the PaymentStatus meta by the hosted flow
const (
	PaymentStatusSuccess     = "success"
	PaymentStatusFailed      = "failed"
	PaymentStatusDuplicated  = "duplicated"
	PaymentStatusUnsupported = "unsupported"
)

// Order notes and customer notices
const (
	msgPendingPayment      = "Pending payment"
	msgUnexpectedCallback  = `An unexpected callback notification has been received. This normally happens when the customer clicks on the "Back" button on their web browser or/and attempts to perform further payment transactions after a successful one is made.`
	msgAlreadyPaid         = "It seems you already have paid for this order. In case of doubts, please contact us."
	msgAuthWarning         = "WARNING: The authenticity of the status of this transaction cannot be confirmed automatically! Please check the status at the MMS. "
	msgAuthInstructions    = "Please log into your account at the MMS and check that transaction %s is processed with status SUCCESS and the message: %s. "
	msgAuthConfirm         = `Once the transaction status and authentication code are confirmed set the order status to "Processing" and process the order normally. `
	msgPaymentSuccess      = "Payment processed successfully. "
	msgPayment3DSSuccess   = "Payment (3DS) processed successfully. "
	msgPaymentFailed       = "Payment failed due to: "
	msgPayment3DSFailed    = "Payment (3DS) failed due to: "
	msgCheckCardDetails    = "Please check your card details and try again."
	msgUnsupportedStatus   = "Payment failed due to unknown or unsupported payment status. Payment Status: "
	msgUnknownStatus       = "An error occurred while processing your payment. Payment status is unknown. Please contact support. Payment Status: "
	msgUnexpectedError     = "An unexpected error has occurred. "
	msgContactSupport      = "Please contact Customer Support."
	msgOrderIDEmpty        = "Order ID is empty."
	msgUnsupportedMethod   = "Unsupported Result Delivery Method."
	msgProcessingError     = "An error occurred while processing order#%s. Error message: %s"
	msgNotConfigured       = "This module is not configured. Please configure gateway settings."
	msgPaymentExpired      = "Sorry, the allowed time for paying this order has expired."
	msgRefundDeclined      = "Refund was declined. "
	msgRefundUnknownStatus = "Refund status is unknown or unsupported. Please check the transaction at the MMS. Payment Status: "
	msgRefundSuccess       = "Refund for %.2f %s processed successfully."
)

// Settings are the merchant options the flows need beyond the credentials
type Settings struct {
	Hosted         paymentsense.HostedFormOptions
	URLs           URLs
	PaymentFormURL string
	OrderPrefix    string
	Currency       string
	// PaymentMethodTimeout limits how long after the last order change the
	// hosted form can be opened. Zero is unlimited.
	PaymentMethodTimeout time.Duration
}

// Redirect sends the customer to URL, optionally showing Notice as an error
type Redirect struct {
	URL    string
	Notice string
}

// errorMessage is the customer-facing text of an error
func errorMessage(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// callbackOutcome classifies a status code received in a callback. Only the
// codes a completed hosted payment can carry are supported.
func callbackOutcome(statusCode, previousStatusCode string) domain.Outcome {
	status, ok := parseStatus(statusCode)
	if !ok {
		return domain.OutcomeUnsupported
	}
	outcome := domain.ClassifyStatus(status, previousStatusCode)
	if outcome == domain.OutcomeIncomplete {
		return domain.OutcomeUnsupported
	}
	return outcome
}
