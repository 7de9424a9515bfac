package ports

import (
	"context"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

// OrderStore is the storefront order the checkout flows read and update.
// Every mutation is atomic per call; status updates with a non-empty note
// append it to the order notes in the same call.
type OrderStore interface {
	// Create stores a new order
	Create(ctx context.Context, order *domain.Order) error

	// Get returns the order or domain.ErrOrderNotFound
	Get(ctx context.Context, orderID string) (*domain.Order, error)

	// UpdateStatus moves the order to status and records note when not empty
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, note string) error

	// PaymentComplete moves the order to processing
	PaymentComplete(ctx context.Context, orderID string) error

	// SetMeta stores one meta value
	SetMeta(ctx context.Context, orderID, key, value string) error

	// AddNote appends to the order notes
	AddNote(ctx context.Context, orderID, text string) error

	// Notes lists the order notes oldest first
	Notes(ctx context.Context, orderID string) ([]domain.OrderNote, error)

	// AddRefund increases the refunded amount and moves the order to
	// refunded once nothing is left to refund
	AddRefund(ctx context.Context, orderID string, amount decimal.Decimal, note string) error

	// Close releases the store's resources
	Close() error
}

// ChallengeStore keeps 3-D Secure challenge parameters between the sale
// response and the ACS redirect, keyed by customer session
type ChallengeStore interface {
	// Put stores the challenge, replacing any previous one for the session
	Put(ctx context.Context, sessionID string, challenge domain.ThreeDSecureChallenge) error

	// Get returns the challenge or domain.ErrChallengeNotFound
	Get(ctx context.Context, sessionID string) (*domain.ThreeDSecureChallenge, error)

	// Delete removes the challenge; a missing session is not an error
	Delete(ctx context.Context, sessionID string) error

	// Close releases the store's resources
	Close() error
}
