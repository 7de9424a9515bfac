package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/database"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SQLSTATE raised when the order ID is taken
const uniqueViolation = "23505"

const selectOrder = `
SELECT id, status, currency, total, refunded, email, phone, billing, meta, created_at, modified_at
FROM orders WHERE id = $1`

// OrderStore implements ports.OrderStore on PostgreSQL
type OrderStore struct {
	db     *database.PostgreSQLAdapter
	logger *zap.Logger
}

// NewOrderStore creates a new order store
func NewOrderStore(db *database.PostgreSQLAdapter, logger *zap.Logger) *OrderStore {
	return &OrderStore{db: db, logger: logger}
}

// Create inserts a new order
func (s *OrderStore) Create(ctx context.Context, order *domain.Order) error {
	ctx, cancel := s.db.QueryContext(ctx)
	defer cancel()

	total := numericFromDecimal(order.Total)
	refunded := numericFromDecimal(order.Refunded)

	billing, err := json.Marshal(order.Billing)
	if err != nil {
		return fmt.Errorf("marshal billing: %w", err)
	}
	meta := order.Meta
	if meta == nil {
		meta = map[string]string{}
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	status := order.Status
	if status == "" {
		status = domain.OrderStatusPending
	}

	_, err = s.db.Pool().Exec(ctx, `
INSERT INTO orders (id, status, currency, total, refunded, email, phone, billing, meta)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		order.ID, string(status), order.Currency, total, refunded,
		order.Email, order.Phone, billing, metaBytes,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrOrderExists
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// Get returns the order or domain.ErrOrderNotFound
func (s *OrderStore) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	ctx, cancel := s.db.QueryContext(ctx)
	defer cancel()

	return scanOrder(s.db.Pool().QueryRow(ctx, selectOrder, orderID), orderID)
}

func scanOrder(row pgx.Row, orderID string) (*domain.Order, error) {
	var (
		order     domain.Order
		status    string
		total     pgtype.Numeric
		refunded  pgtype.Numeric
		billing   []byte
		metaBytes []byte
	)
	err := row.Scan(
		&order.ID, &status, &order.Currency, &total, &refunded,
		&order.Email, &order.Phone, &billing, &metaBytes,
		&order.CreatedAt, &order.ModifiedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound.WithDetail("order_id", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	order.Status = domain.OrderStatus(status)
	if order.Total, err = decimalFromNumeric(total); err != nil {
		return nil, err
	}
	if order.Refunded, err = decimalFromNumeric(refunded); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(billing, &order.Billing); err != nil {
		return nil, fmt.Errorf("unmarshal billing: %w", err)
	}
	if err := json.Unmarshal(metaBytes, &order.Meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	if order.Meta == nil {
		order.Meta = map[string]string{}
	}
	return &order, nil
}

// UpdateStatus moves the order to status and appends note when not empty
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, note string) error {
	ctx, cancel := s.db.QueryContext(ctx)
	defer cancel()

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := setStatus(ctx, tx, orderID, status); err != nil {
			return err
		}
		if note == "" {
			return nil
		}
		return insertNote(ctx, tx, orderID, note)
	})
}

// PaymentComplete moves the order to processing
func (s *OrderStore) PaymentComplete(ctx context.Context, orderID string) error {
	ctx, cancel := s.db.QueryContext(ctx)
	defer cancel()

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		return setStatus(ctx, tx, orderID, domain.OrderStatusProcessing)
	})
}

func setStatus(ctx context.Context, tx pgx.Tx, orderID string, status domain.OrderStatus) error {
	tag, err := tx.Exec(ctx,
		`UPDATE orders SET status = $2, modified_at = now() WHERE id = $1`,
		orderID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound.WithDetail("order_id", orderID)
	}
	return nil
}

// SetMeta stores one meta value
func (s *OrderStore) SetMeta(ctx context.Context, orderID, key, value string) error {
	ctx, cancel := s.db.QueryContext(ctx)
	defer cancel()

	tag, err := s.db.Pool().Exec(ctx,
		`UPDATE orders SET meta = meta || jsonb_build_object($2::text, $3::text), modified_at = now() WHERE id = $1`,
		orderID, key, value,
	)
	if err != nil {
		return fmt.Errorf("set order meta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound.WithDetail("order_id", orderID)
	}
	return nil
}

// AddNote appends to the order notes
func (s *OrderStore) AddNote(ctx context.Context, orderID, text string) error {
	ctx, cancel := s.db.QueryContext(ctx)
	defer cancel()

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		return insertNote(ctx, tx, orderID, text)
	})
}

func insertNote(ctx context.Context, tx pgx.Tx, orderID, text string) error {
	tag, err := tx.Exec(ctx, `
INSERT INTO order_notes (order_id, text)
SELECT id, $2 FROM orders WHERE id = $1`,
		orderID, text,
	)
	if err != nil {
		return fmt.Errorf("add order note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound.WithDetail("order_id", orderID)
	}
	return nil
}

// Notes lists the order notes oldest first
func (s *OrderStore) Notes(ctx context.Context, orderID string) ([]domain.OrderNote, error) {
	ctx, cancel := s.db.QueryContext(ctx)
	defer cancel()

	rows, err := s.db.Pool().Query(ctx,
		`SELECT order_id, text, created_at FROM order_notes WHERE order_id = $1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list order notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.OrderNote
	for rows.Next() {
		var note domain.OrderNote
		if err := rows.Scan(&note.OrderID, &note.Text, &note.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// AddRefund increases the refunded amount under a row lock. The order moves
// to refunded once nothing is left to refund.
func (s *OrderStore) AddRefund(ctx context.Context, orderID string, amount decimal.Decimal, note string) error {
	ctx, cancel := s.db.QueryContext(ctx)
	defer cancel()

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		order, err := scanOrder(tx.QueryRow(ctx, selectOrder+" FOR UPDATE", orderID), orderID)
		if err != nil {
			return err
		}
		if !amount.IsPositive() || amount.GreaterThan(order.Refundable()) {
			return domain.ErrInvalidAmount.WithDetail("amount", amount.String())
		}

		refunded := numericFromDecimal(order.Refunded.Add(amount))
		status := order.Status
		if order.Refundable().Equal(amount) {
			status = domain.OrderStatusRefunded
		}

		if _, err := tx.Exec(ctx,
			`UPDATE orders SET refunded = $2, status = $3, modified_at = now() WHERE id = $1`,
			orderID, refunded, string(status),
		); err != nil {
			return fmt.Errorf("record refund: %w", err)
		}

		if note == "" {
			return nil
		}
		return insertNote(ctx, tx, orderID, note)
	})
}

// Close is a no-op; the pool is owned by the database adapter
func (s *OrderStore) Close() error {
	return nil
}
