package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus mirrors the storefront order lifecycle the gateway flows drive
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on-hold"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// Order meta keys written by the checkout flows
const (
	MetaCrossRef         = "CrossRef"
	MetaAuthCode         = "AuthCode"
	MetaPaymentStatus    = "PaymentStatus"
	MetaCustomerErrorMsg = "CustomerErrorMsg"
	MetaErrMessage       = "ErrMessage"
)

// BillingAddress is the customer billing address attached to an order
type BillingAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	Address3  string `json:"address_3"`
	Address4  string `json:"address_4"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"` // ISO 3166-1 alpha-2
}

// FullName joins first and last name the way the hosted form expects
func (a BillingAddress) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	default:
		return a.FirstName + " " + a.LastName
	}
}

// Order is the storefront order a payment is taken against
type Order struct {
	CreatedAt  time.Time         `json:"created_at"`
	ModifiedAt time.Time         `json:"modified_at"`
	Meta       map[string]string `json:"meta"`
	Billing    BillingAddress    `json:"billing"`
	ID         string            `json:"id"`
	Currency   string            `json:"currency"` // ISO 4217 alpha-3
	Email      string            `json:"email"`
	Phone      string            `json:"phone"`
	Status     OrderStatus       `json:"status"`
	Total      decimal.Decimal   `json:"total"`
	Refunded   decimal.Decimal   `json:"refunded"`
}

// OrderNote is an entry in the order's audit trail
type OrderNote struct {
	CreatedAt time.Time `json:"created_at"`
	OrderID   string    `json:"order_id"`
	Text      string    `json:"text"`
}

// GetMeta returns a meta value or "" when absent
func (o *Order) GetMeta(key string) string {
	if o.Meta == nil {
		return ""
	}
	return o.Meta[key]
}

// IsPaid returns true once a payment has been accepted for the order
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusProcessing
}

// Refundable returns the part of the total not refunded yet
func (o *Order) Refundable() decimal.Decimal {
	return o.Total.Sub(o.Refunded)
}

// TotalMinorUnits returns the order total in minor currency units
func (o *Order) TotalMinorUnits() int64 {
	return ToMinorUnits(o.Total)
}

// ToMinorUnits converts an amount to minor units (pence, cents)
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
