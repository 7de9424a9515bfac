package checkout

import (
	"net/url"
	"strings"
)

// NoticeParam carries an error notice on a redirect to the storefront
const NoticeParam = "psgw_error"

// URLs builds the storefront and callback URLs customers are sent to
type URLs struct {
	// PublicURL is where this service is reachable
	PublicURL string
	// OrderReceivedURL is a template; "{order_id}" is replaced
	OrderReceivedURL string
	CheckoutURL      string
}

func (u URLs) base() string {
	return strings.TrimRight(u.PublicURL, "/")
}

// OrderReceived is the thank-you page of an order
func (u URLs) OrderReceived(orderID string) string {
	return strings.ReplaceAll(u.OrderReceivedURL, "{order_id}", url.PathEscape(orderID))
}

// CheckoutPayment is where the customer can retry paying an order
func (u URLs) CheckoutPayment(orderID string) string {
	return withQuery(u.CheckoutURL, "order_id", orderID)
}

// HostedForm is the auto-submitting hosted payment form page
func (u URLs) HostedForm(orderID string) string {
	return u.base() + "/checkout/hosted/" + url.PathEscape(orderID)
}

// ThreeDSecure is the ACS redirect page of a direct payment
func (u URLs) ThreeDSecure(orderID string) string {
	return u.base() + "/checkout/direct/" + url.PathEscape(orderID) + "/3ds"
}

// TermURL is where the ACS posts the authentication result back
func (u URLs) TermURL(orderID string) string {
	return withQuery(u.base()+"/callback/direct", "order_id", orderID)
}

// Location is the redirect target with the notice appended
func (r Redirect) Location() string {
	if r.Notice == "" {
		return r.URL
	}
	return withQuery(r.URL, NoticeParam, r.Notice)
}

func withQuery(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
