// Package memory holds in-process stores for single-instance deployments
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/common-repository/paymentsense-gateway/pkg/timeutil"
	"github.com/shopspring/decimal"
)

// OrderStore implements ports.OrderStore in memory
type OrderStore struct {
	orders map[string]*domain.Order
	notes  map[string][]domain.OrderNote
	clock  timeutil.Clock
	mu     sync.RWMutex
}

// NewOrderStore creates an empty order store
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make(map[string]*domain.Order),
		notes:  make(map[string][]domain.OrderNote),
		clock:  timeutil.SystemClock{},
	}
}

// WithClock replaces the clock used for timestamps
func (s *OrderStore) WithClock(clock timeutil.Clock) *OrderStore {
	s.clock = clock
	return s
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Meta = make(map[string]string, len(o.Meta))
	for k, v := range o.Meta {
		cp.Meta[k] = v
	}
	return &cp
}

// Create stores a copy of order
func (s *OrderStore) Create(ctx context.Context, order *domain.Order) error {
	if order.ID == "" {
		return domain.ErrEmptyOrderID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return domain.ErrOrderExists
	}

	cp := copyOrder(order)
	if cp.Status == "" {
		cp.Status = domain.OrderStatusPending
	}
	now := s.clock.Now()
	cp.CreatedAt = now
	cp.ModifiedAt = now
	s.orders[cp.ID] = cp
	return nil
}

// Get returns a copy of the order
func (s *OrderStore) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound.WithDetail("order_id", orderID)
	}
	return copyOrder(o), nil
}

// locked runs fn on the stored order under the write lock
func (s *OrderStore) locked(orderID string, fn func(o *domain.Order) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound.WithDetail("order_id", orderID)
	}
	if err := fn(o); err != nil {
		return err
	}
	o.ModifiedAt = s.clock.Now()
	return nil
}

func (s *OrderStore) appendNote(orderID, text string) {
	s.notes[orderID] = append(s.notes[orderID], domain.OrderNote{
		CreatedAt: s.clock.Now(),
		OrderID:   orderID,
		Text:      text,
	})
}

// UpdateStatus moves the order to status and appends note when not empty
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, note string) error {
	return s.locked(orderID, func(o *domain.Order) error {
		o.Status = status
		if note != "" {
			s.appendNote(orderID, note)
		}
		return nil
	})
}

// PaymentComplete moves the order to processing
func (s *OrderStore) PaymentComplete(ctx context.Context, orderID string) error {
	return s.UpdateStatus(ctx, orderID, domain.OrderStatusProcessing, "")
}

// SetMeta stores one meta value
func (s *OrderStore) SetMeta(ctx context.Context, orderID, key, value string) error {
	return s.locked(orderID, func(o *domain.Order) error {
		if o.Meta == nil {
			o.Meta = make(map[string]string)
		}
		o.Meta[key] = value
		return nil
	})
}

// AddNote appends to the order notes
func (s *OrderStore) AddNote(ctx context.Context, orderID, text string) error {
	return s.locked(orderID, func(o *domain.Order) error {
		s.appendNote(orderID, text)
		return nil
	})
}

// Notes lists the order notes oldest first
func (s *OrderStore) Notes(ctx context.Context, orderID string) ([]domain.OrderNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.orders[orderID]; !ok {
		return nil, domain.ErrOrderNotFound.WithDetail("order_id", orderID)
	}
	out := make([]domain.OrderNote, len(s.notes[orderID]))
	copy(out, s.notes[orderID])
	return out, nil
}

// AddRefund increases the refunded amount; the order moves to refunded once
// nothing is left to refund
func (s *OrderStore) AddRefund(ctx context.Context, orderID string, amount decimal.Decimal, note string) error {
	return s.locked(orderID, func(o *domain.Order) error {
		if !amount.IsPositive() || amount.GreaterThan(o.Refundable()) {
			return domain.ErrInvalidAmount.WithDetail("amount", amount.String())
		}
		o.Refunded = o.Refunded.Add(amount)
		if o.Refundable().IsZero() {
			o.Status = domain.OrderStatusRefunded
		}
		if note != "" {
			s.appendNote(orderID, note)
		}
		return nil
	})
}

// Close is a no-op
func (s *OrderStore) Close() error {
	return nil
}
