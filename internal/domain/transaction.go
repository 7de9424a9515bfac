package domain

import "strconv"

// Gateway status codes as returned in TransactionResult/StatusCode
const (
	StatusSuccess    = 0
	StatusIncomplete = 3  // 3-D Secure authentication required
	StatusReferred   = 4  // referred, treated as declined
	StatusDeclined   = 5
	StatusDuplicate  = 20 // see the PreviousTransactionResult element
	StatusFailed     = 30 // error, including input variable errors
)

// Outcome is the classification of a gateway response
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeFailed      Outcome = "failed"
	OutcomeIncomplete  Outcome = "incomplete"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeUnsupported Outcome = "unsupported"
)

// TransactionType is the gateway transaction type sent with a request
type TransactionType string

const (
	TransactionTypeSale    TransactionType = "SALE"
	TransactionTypePreAuth TransactionType = "PREAUTH"
	TransactionTypeRefund  TransactionType = "REFUND"
)

// IsValid reports whether t can be configured as the checkout transaction type
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeSale || t == TransactionTypePreAuth
}

// ClassifyStatus maps a numeric gateway status to an outcome. Duplicates are
// resolved by the previous status code: 0 means the original went through.
func ClassifyStatus(status int, previousStatus string) Outcome {
	switch status {
	case StatusSuccess:
		return OutcomeSuccess
	case StatusIncomplete:
		return OutcomeIncomplete
	case StatusReferred, StatusDeclined, StatusFailed:
		return OutcomeFailed
	case StatusDuplicate:
		if previousStatus == strconv.Itoa(StatusSuccess) {
			return OutcomeSuccess
		}
		return OutcomeFailed
	default:
		return OutcomeUnsupported
	}
}

// ThreeDSecureChallenge is kept in the customer session between the sale
// response and the ACS return
type ThreeDSecureChallenge struct {
	PaREQ          string `json:"pareq"`
	CrossReference string `json:"crossref"`
	ACSURL         string `json:"url"`
}

// IsComplete reports whether every parameter for the ACS redirect is present
func (c *ThreeDSecureChallenge) IsComplete() bool {
	return c != nil && c.PaREQ != "" && c.CrossReference != "" && c.ACSURL != ""
}

// CardDetails are the card fields collected by the direct checkout form.
// They are never persisted or logged.
type CardDetails struct {
	Name        string `json:"card_name" validate:"required,max=100"`
	Number      string `json:"card_number" validate:"required,numeric,min=12,max=19"`
	ExpiryMonth string `json:"expiry_month" validate:"required,numeric,len=2"`
	ExpiryYear  string `json:"expiry_year" validate:"required,numeric,len=2"`
	CV2         string `json:"cv2" validate:"required,numeric,min=3,max=4"`
	IssueNumber string `json:"issue_number" validate:"omitempty,numeric,max=3"`
}
