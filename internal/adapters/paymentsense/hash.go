package paymentsense

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"strings"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
)

// RequestType selects the field list used to rebuild a callback's signed string
type RequestType int

const (
	RequestNotification RequestType = iota
	RequestCustomerRedirect
)

func (t RequestType) String() string {
	if t == RequestCustomerRedirect {
		return "customer_redirect"
	}
	return "notification"
}

var notificationFields = []string{
	"StatusCode",
	"Message",
	"PreviousStatusCode",
	"PreviousMessage",
	"CrossReference",
	"Amount",
	"CurrencyCode",
	"OrderID",
	"TransactionType",
	"TransactionDateTime",
	"OrderDescription",
	"CustomerName",
	"Address1",
	"Address2",
	"Address3",
	"Address4",
	"City",
	"State",
	"PostCode",
	"CountryCode",
	"EmailAddress",
	"PhoneNumber",
}

var customerRedirectFields = []string{
	"CrossReference",
	"OrderID",
}

// Digest computes the lowercase hex HashDigest of data. MD5 and SHA1 prepend
// the pre-shared key to the data; the HMAC variants use it as the key.
// An unknown method yields "".
func Digest(data string, method domain.HashMethod, key string) string {
	var h hash.Hash
	switch method {
	case domain.HashMethodMD5:
		h = md5.New()
	case domain.HashMethodSHA1:
		h = sha1.New()
	case domain.HashMethodHMACMD5:
		h = hmac.New(md5.New, []byte(key))
	case domain.HashMethodHMACSHA1:
		h = hmac.New(sha1.New, []byte(key))
	case domain.HashMethodHMACSHA256:
		h = hmac.New(sha256.New, []byte(key))
	case domain.HashMethodHMACSHA512:
		h = hmac.New(sha512.New, []byte(key))
	default:
		return ""
	}

	if !method.IsHMAC() {
		data = "PreSharedKey=" + key + "&" + data
	}
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyDigest compares a received digest against the one computed over data.
// Comparison ignores case and runs in constant time.
func VerifyDigest(received, data string, method domain.HashMethod, key string) bool {
	calculated := Digest(data, method, key)
	if calculated == "" {
		return false
	}
	return subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(received)),
		[]byte(calculated),
	) == 1
}

// CallbackString rebuilds the string the gateway signed for a callback.
// Missing fields contribute an empty value.
func CallbackString(creds domain.GatewayCredentials, requestType RequestType, get func(string) string) string {
	fields := notificationFields
	if requestType == RequestCustomerRedirect {
		fields = customerRedirectFields
	}

	var b strings.Builder
	b.WriteString("MerchantID=")
	b.WriteString(creds.MerchantID)
	b.WriteString("&Password=")
	b.WriteString(creds.Password)
	for _, f := range fields {
		b.WriteString("&")
		b.WriteString(f)
		b.WriteString("=")
		b.WriteString(get(f))
	}
	return b.String()
}

// VerifyCallback checks the HashDigest of an inbound callback
func VerifyCallback(creds domain.GatewayCredentials, requestType RequestType, get func(string) string) bool {
	data := CallbackString(creds, requestType, get)
	return VerifyDigest(get("HashDigest"), data, creds.HashMethod, creds.PreSharedKey)
}

// ClassifyServerRequest tells a SERVER delivery notification (numeric
// StatusCode) from the customer redirect that follows it
func ClassifyServerRequest(statusCode string) RequestType {
	if isNumeric(statusCode) {
		return RequestNotification
	}
	return RequestCustomerRedirect
}
