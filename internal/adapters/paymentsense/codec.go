package paymentsense

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"text/template"
)

// Family is a SOAP operation of the gateway
type Family string

const (
	FamilyGetGatewayEntryPoints      Family = "GetGatewayEntryPoints"
	FamilyCardDetailsTransaction     Family = "CardDetailsTransaction"
	FamilyCrossReferenceTransaction  Family = "CrossReferenceTransaction"
	FamilyThreeDSecureAuthentication Family = "ThreeDSecureAuthentication"
)

const soapNamespace = "https://www.thepaymentgateway.net/"

// SOAPAction returns the SOAPAction header value for the family
func (f Family) SOAPAction() string {
	return soapNamespace + string(f)
}

// Values are interpolated verbatim; callers filter them through
// FilterUnsupportedChars where the gateway requires it.
var envelopes = map[Family]*template.Template{
	FamilyGetGatewayEntryPoints: envelope(FamilyGetGatewayEntryPoints, `
      <GetGatewayEntryPointsMessage>
        <MerchantAuthentication MerchantID="{{.MerchantID}}" Password="{{.Password}}" />
      </GetGatewayEntryPointsMessage>`),

	FamilyCardDetailsTransaction: envelope(FamilyCardDetailsTransaction, `
      <PaymentMessage>
        <MerchantAuthentication MerchantID="{{.MerchantID}}" Password="{{.Password}}" />
        <TransactionDetails Amount="{{.Amount}}" CurrencyCode="{{.CurrencyCode}}">
          <MessageDetails TransactionType="{{.TransactionType}}" />
          <OrderID>{{.OrderID}}</OrderID>
          <OrderDescription>{{.OrderDescription}}</OrderDescription>
          <TransactionControl>
            <EchoCardType>TRUE</EchoCardType>
            <EchoAVSCheckResult>TRUE</EchoAVSCheckResult>
            <EchoCV2CheckResult>TRUE</EchoCV2CheckResult>
            <EchoAmountReceived>TRUE</EchoAmountReceived>
            <DuplicateDelay>20</DuplicateDelay>
          </TransactionControl>
        </TransactionDetails>
        <CardDetails>
          <CardName>{{.CardName}}</CardName>
          <CardNumber>{{.CardNumber}}</CardNumber>
          <StartDate Month="" Year="" />
          <ExpiryDate Month="{{.ExpMonth}}" Year="{{.ExpYear}}" />
          <CV2>{{.CV2}}</CV2>
          <IssueNumber>{{.IssueNumber}}</IssueNumber>
        </CardDetails>
        <CustomerDetails>
          <BillingAddress>
            <Address1>{{.Address1}}</Address1>
            <Address2>{{.Address2}}</Address2>
            <Address3>{{.Address3}}</Address3>
            <Address4>{{.Address4}}</Address4>
            <City>{{.City}}</City>
            <State>{{.State}}</State>
            <PostCode>{{.Postcode}}</PostCode>
            <CountryCode>{{.CountryCode}}</CountryCode>
          </BillingAddress>
          <EmailAddress>{{.EmailAddress}}</EmailAddress>
          <PhoneNumber>{{.PhoneNumber}}</PhoneNumber>
          <CustomerIPAddress>{{.IPAddress}}</CustomerIPAddress>
        </CustomerDetails>
      </PaymentMessage>`),

	FamilyCrossReferenceTransaction: envelope(FamilyCrossReferenceTransaction, `
      <PaymentMessage>
        <MerchantAuthentication MerchantID="{{.MerchantID}}" Password="{{.Password}}" />
        <TransactionDetails Amount="{{.Amount}}" CurrencyCode="{{.CurrencyCode}}">
          <MessageDetails TransactionType="{{.TransactionType}}" NewTransaction="FALSE" CrossReference="{{.CrossReference}}" />
          <OrderID>{{.OrderID}}</OrderID>
          <OrderDescription>{{.OrderDescription}}</OrderDescription>
          <TransactionControl>
            <EchoCardType>FALSE</EchoCardType>
            <EchoAVSCheckResult>FALSE</EchoAVSCheckResult>
            <EchoCV2CheckResult>FALSE</EchoCV2CheckResult>
            <EchoAmountReceived>FALSE</EchoAmountReceived>
            <DuplicateDelay>10</DuplicateDelay>
            <AVSOverridePolicy>BPPF</AVSOverridePolicy>
            <ThreeDSecureOverridePolicy>FALSE</ThreeDSecureOverridePolicy>
          </TransactionControl>
        </TransactionDetails>
      </PaymentMessage>`),

	FamilyThreeDSecureAuthentication: envelope(FamilyThreeDSecureAuthentication, `
      <ThreeDSecureMessage>
        <MerchantAuthentication MerchantID="{{.MerchantID}}" Password="{{.Password}}" />
        <ThreeDSecureInputData CrossReference="{{.CrossReference}}">
          <PaRES>{{.PaRES}}</PaRES>
        </ThreeDSecureInputData>
        <PassOutData>Some data to be passed out</PassOutData>
      </ThreeDSecureMessage>`),
}

const envelopeFormat = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <%[1]s xmlns="%[2]s">%[3]s
    </%[1]s>
  </soap:Body>
</soap:Envelope>`

func envelope(family Family, body string) *template.Template {
	return template.Must(
		template.New(string(family)).
			Option("missingkey=zero").
			Parse(fmt.Sprintf(envelopeFormat, family, soapNamespace, body)),
	)
}

// BuildEnvelope renders the SOAP envelope for a family from the request fields
func BuildEnvelope(family Family, fields *FieldSet) (string, error) {
	tmpl, ok := envelopes[family]
	if !ok {
		return "", fmt.Errorf("unknown message family %q", family)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, fields.Map()); err != nil {
		return "", fmt.Errorf("failed to render %s envelope: %w", family, err)
	}
	return buf.String(), nil
}

const crossReferenceNotFound = "No Data Found"

var (
	crossReferencePattern = regexp.MustCompile(`(?iU)<TransactionOutputData CrossReference="(.+)">`)
	previousResultPattern = regexp.MustCompile(`(?iU)<PreviousTransactionResult>(.+)</PreviousTransactionResult>`)
)

// ExtractElement returns the first match of pattern inside <name>...</name>,
// case-insensitive and non-greedy, or "<name> Not Found"
func ExtractElement(xml, name, pattern string) string {
	re, err := regexp.Compile(`(?iU)<` + regexp.QuoteMeta(name) + `>(` + pattern + `)</` + regexp.QuoteMeta(name) + `>`)
	if err == nil {
		if m := re.FindStringSubmatch(xml); m != nil {
			return m[1]
		}
	}
	return name + " Not Found"
}

// ExtractCrossReference returns the TransactionOutputData CrossReference
// attribute, or "No Data Found"
func ExtractCrossReference(xml string) string {
	if m := crossReferencePattern.FindStringSubmatch(xml); m != nil {
		return m[1]
	}
	return crossReferenceNotFound
}

// ExtractPreviousTransactionResult returns the inner text of the
// PreviousTransactionResult block of a duplicate response
func ExtractPreviousTransactionResult(xml string) (string, bool) {
	if m := previousResultPattern.FindStringSubmatch(xml); m != nil {
		return m[1], true
	}
	return "", false
}

// Response holds the values read from a gateway response body
type Response struct {
	Raw                string
	StatusCode         string
	Message            string
	Detail             string
	CrossReference     string
	PaREQ              string
	ACSURL             string
	AuthCode           string
	PreviousStatusCode string
	PreviousMessage    string
	HasPrevious        bool
}

// ParseResponse extracts the known elements from a raw SOAP response
func ParseResponse(raw string) *Response {
	r := &Response{
		Raw:            raw,
		StatusCode:     ExtractElement(raw, "StatusCode", "[0-9]+"),
		Message:        ExtractElement(raw, "Message", ".+"),
		Detail:         ExtractElement(raw, "Detail", ".+"),
		CrossReference: ExtractCrossReference(raw),
		PaREQ:          ExtractElement(raw, "PaREQ", ".+"),
		ACSURL:         ExtractElement(raw, "ACSURL", ".+"),
		AuthCode:       ExtractElement(raw, "AuthCode", ".+"),
	}
	if prev, ok := ExtractPreviousTransactionResult(raw); ok {
		r.HasPrevious = true
		r.PreviousStatusCode = ExtractElement(prev, "StatusCode", ".+")
		r.PreviousMessage = ExtractElement(prev, "Message", ".+")
	}
	return r
}

// Status returns the numeric status code; ok is false for a missing or
// non-numeric code
func (r *Response) Status() (int, bool) {
	n, err := strconv.Atoi(r.StatusCode)
	if err != nil {
		return 0, false
	}
	return n, true
}
