package paymentsense

import (
	"strconv"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultRefundReason is used when a refund is requested without a reason
const DefaultRefundReason = "Refund"

// EntryPointsFields builds the GetGatewayEntryPoints request
func EntryPointsFields(creds domain.GatewayCredentials) *FieldSet {
	return NewFieldSet().
		Set("MerchantID", creds.MerchantID).
		Set("Password", creds.Password)
}

// SaleFields builds the CardDetailsTransaction request. Every value passes the
// gateway character filter with '&' replaced, then the length limits.
// The billing postcode is keyed "Postcode" and so is not length-limited.
func SaleFields(
	creds domain.GatewayCredentials,
	order *domain.Order,
	card domain.CardDetails,
	transactionType domain.TransactionType,
	orderPrefix string,
	customerIP string,
) *FieldSet {
	b := order.Billing
	fields := NewFieldSet().
		Set("MerchantID", creds.MerchantID).
		Set("Password", creds.Password).
		Set("Amount", strconv.FormatInt(order.TotalMinorUnits(), 10)).
		Set("CurrencyCode", CurrencyNumericCode(order.Currency)).
		Set("TransactionType", string(transactionType)).
		Set("OrderID", order.ID).
		Set("OrderDescription", orderPrefix+order.ID).
		Set("CardName", card.Name).
		Set("CardNumber", card.Number).
		Set("ExpMonth", card.ExpiryMonth).
		Set("ExpYear", card.ExpiryYear).
		Set("CV2", card.CV2).
		Set("IssueNumber", card.IssueNumber).
		Set("Address1", b.Address1).
		Set("Address2", b.Address2).
		Set("Address3", "").
		Set("Address4", "").
		Set("City", b.City).
		Set("State", b.State).
		Set("Postcode", b.Postcode).
		Set("CountryCode", CountryNumericCode(b.Country)).
		Set("EmailAddress", order.Email).
		Set("PhoneNumber", order.Phone).
		Set("IPAddress", customerIP)

	fields.Apply(func(_, v string) string { return FilterUnsupportedChars(v, true) })
	return ApplyLengthRestrictions(fields)
}

// RefundFields builds the CrossReferenceTransaction request. Values are sent unfiltered.
func RefundFields(
	creds domain.GatewayCredentials,
	orderID string,
	amount decimal.Decimal,
	currency string,
	crossReference string,
	orderPrefix string,
	reason string,
) *FieldSet {
	if reason == "" {
		reason = DefaultRefundReason
	}
	return NewFieldSet().
		Set("MerchantID", creds.MerchantID).
		Set("Password", creds.Password).
		Set("Amount", strconv.FormatInt(domain.ToMinorUnits(amount), 10)).
		Set("CurrencyCode", CurrencyNumericCode(currency)).
		Set("TransactionType", string(domain.TransactionTypeRefund)).
		Set("CrossReference", crossReference).
		Set("OrderID", orderID).
		Set("OrderDescription", orderPrefix+orderID+": "+reason)
}

// ThreeDSecureFields builds the ThreeDSecureAuthentication request
func ThreeDSecureFields(creds domain.GatewayCredentials, crossReference, paRes string) *FieldSet {
	return NewFieldSet().
		Set("MerchantID", creds.MerchantID).
		Set("Password", creds.Password).
		Set("CrossReference", crossReference).
		Set("PaRES", paRes)
}
