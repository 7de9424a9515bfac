package paymentsense

import (
	"fmt"
	"strconv"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
)

// TransactionDateTimeLayout is the timestamp layout of the hosted form
const TransactionDateTimeLayout = "2006-01-02 15:04:05 -07:00"

// Result delivery methods of the hosted payment form
const (
	DeliveryPOST   = "POST"
	DeliverySERVER = "SERVER"
)

// HostedFormOptions are the merchant settings that shape the hosted form
type HostedFormOptions struct {
	TransactionType      domain.TransactionType
	OrderPrefix          string
	CallbackURL          string
	ResultDelivery       string
	EmailAddressEditable bool
	PhoneNumberEditable  bool
	Address1Mandatory    bool
	CityMandatory        bool
	PostCodeMandatory    bool
	StateMandatory       bool
	CountryMandatory     bool
}

// HostedPaymentFields builds the hosted form fields for an order
func HostedPaymentFields(order *domain.Order, opts HostedFormOptions, now time.Time) *FieldSet {
	serverResultURL := ""
	if opts.ResultDelivery == DeliverySERVER {
		serverResultURL = opts.CallbackURL
	}

	b := order.Billing
	return NewFieldSet().
		Set("Amount", strconv.FormatInt(order.TotalMinorUnits(), 10)).
		Set("CurrencyCode", CurrencyNumericCode(order.Currency)).
		Set("OrderID", order.ID).
		Set("TransactionType", string(opts.TransactionType)).
		Set("TransactionDateTime", now.Format(TransactionDateTimeLayout)).
		Set("CallbackURL", opts.CallbackURL).
		Set("OrderDescription", opts.OrderPrefix+order.ID).
		Set("CustomerName", b.FullName()).
		Set("Address1", b.Address1).
		Set("Address2", b.Address2).
		Set("Address3", "").
		Set("Address4", "").
		Set("City", b.City).
		Set("State", b.State).
		Set("PostCode", b.Postcode).
		Set("CountryCode", CountryNumericCode(b.Country)).
		Set("EmailAddress", order.Email).
		Set("PhoneNumber", order.Phone).
		Set("EmailAddressEditable", strconv.FormatBool(opts.EmailAddressEditable)).
		Set("PhoneNumberEditable", strconv.FormatBool(opts.PhoneNumberEditable)).
		Set("CV2Mandatory", "true").
		Set("Address1Mandatory", strconv.FormatBool(opts.Address1Mandatory)).
		Set("CityMandatory", strconv.FormatBool(opts.CityMandatory)).
		Set("PostCodeMandatory", strconv.FormatBool(opts.PostCodeMandatory)).
		Set("StateMandatory", strconv.FormatBool(opts.StateMandatory)).
		Set("CountryMandatory", strconv.FormatBool(opts.CountryMandatory)).
		Set("ResultDeliveryMethod", opts.ResultDelivery).
		Set("ServerResultURL", serverResultURL).
		Set("PaymentFormDisplaysResult", "false")
}

// SampleHostedFields builds a throwaway hosted form used to validate the
// pre-shared key and hash method without an order. intn picks the order
// number and must be safe for concurrent use when shared.
func SampleHostedFields(currency string, opts HostedFormOptions, now time.Time, intn func(n int) int) *FieldSet {
	return NewFieldSet().
		Set("Amount", "100").
		Set("CurrencyCode", CurrencyNumericCode(currency)).
		Set("OrderID", fmt.Sprintf("TEST-%d", 1000000+intn(9000000))).
		Set("TransactionType", string(opts.TransactionType)).
		Set("TransactionDateTime", now.Format(TransactionDateTimeLayout)).
		Set("CallbackURL", opts.CallbackURL).
		Set("OrderDescription", "").
		Set("CustomerName", "").
		Set("Address1", "").
		Set("Address2", "").
		Set("Address3", "").
		Set("Address4", "").
		Set("City", "").
		Set("State", "").
		Set("PostCode", "").
		Set("CountryCode", "").
		Set("EmailAddress", "").
		Set("PhoneNumber", "").
		Set("EmailAddressEditable", "true").
		Set("PhoneNumberEditable", "true").
		Set("CV2Mandatory", "true").
		Set("Address1Mandatory", "false").
		Set("CityMandatory", "false").
		Set("PostCodeMandatory", "false").
		Set("StateMandatory", "false").
		Set("CountryMandatory", "false").
		Set("ResultDeliveryMethod", DeliveryPOST).
		Set("ServerResultURL", "").
		Set("PaymentFormDisplaysResult", "false")
}

// SignHostedForm filters and truncates the fields, then prepends HashDigest
// and MerchantID. The digest covers MerchantID, Password and every field in order.
func SignHostedForm(creds domain.GatewayCredentials, method domain.HashMethod, fields *FieldSet) *FieldSet {
	fields.Apply(func(_, v string) string { return FilterUnsupportedChars(v, false) })
	ApplyLengthRestrictions(fields)

	data := "MerchantID=" + creds.MerchantID + "&Password=" + creds.Password
	if fields.Len() > 0 {
		data += "&" + fields.Canonical()
	}

	signed := NewFieldSet().
		Set("HashDigest", Digest(data, method, creds.PreSharedKey)).
		Set("MerchantID", creds.MerchantID)
	for _, f := range fields.Fields() {
		signed.Set(f.Name, f.Value)
	}
	return signed
}
