package domain

import (
	"regexp"
	"strings"
)

// HashMethod identifies how HashDigest values are computed for the hosted form
// and its callbacks
type HashMethod string

const (
	HashMethodMD5        HashMethod = "MD5"
	HashMethodSHA1       HashMethod = "SHA1"
	HashMethodHMACMD5    HashMethod = "HMACMD5"
	HashMethodHMACSHA1   HashMethod = "HMACSHA1"
	HashMethodHMACSHA256 HashMethod = "HMACSHA256"
	HashMethodHMACSHA512 HashMethod = "HMACSHA512"
)

// merchantIDPattern is the ABCDEF-1234567 shape the gateway issues
var merchantIDPattern = regexp.MustCompile(`^\S+-\S+$`)

// ParseHashMethod normalises a configured hash method name
func ParseHashMethod(s string) (HashMethod, error) {
	m := HashMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", ErrInvalidHashMethod.WithDetail("hash_method", s)
	}
	return m, nil
}

// IsValid reports whether the hash method is one the gateway supports
func (m HashMethod) IsValid() bool {
	switch m {
	case HashMethodMD5, HashMethodSHA1, HashMethodHMACMD5,
		HashMethodHMACSHA1, HashMethodHMACSHA256, HashMethodHMACSHA512:
		return true
	}
	return false
}

// IsHMAC reports whether the pre-shared key is used as an HMAC key rather than
// being prepended to the hashed data
func (m HashMethod) IsHMAC() bool {
	return strings.HasPrefix(string(m), "HMAC")
}

// GatewayCredentials identify the merchant to the gateway.
// They are loaded once and shared read-only.
type GatewayCredentials struct {
	MerchantID   string     `json:"merchant_id"`
	Password     string     `json:"-"`
	PreSharedKey string     `json:"-"`
	HashMethod   HashMethod `json:"hash_method"`
}

// IsMerchantIDFormatValid reports whether MerchantID looks like ABCDEF-1234567
func (c GatewayCredentials) IsMerchantIDFormatValid() bool {
	return merchantIDPattern.MatchString(c.MerchantID)
}

// Validate rejects credentials that can never authenticate. Callers run it
// before any network call.
func (c GatewayCredentials) Validate() error {
	if c.MerchantID == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	if !c.IsMerchantIDFormatValid() {
		return ErrInvalidMerchantID.WithDetail("merchant_id", c.MerchantID)
	}
	return nil
}

// ValidateForHostedForm additionally requires the pre-shared key and a known
// hash method, both needed to sign the hosted payment form
func (c GatewayCredentials) ValidateForHostedForm() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !c.HashMethod.IsValid() {
		return ErrInvalidHashMethod.WithDetail("hash_method", string(c.HashMethod))
	}
	if c.PreSharedKey == "" {
		return NewDomainError(ErrorCodeConfiguration, "gateway pre-shared key is required")
	}
	return nil
}
