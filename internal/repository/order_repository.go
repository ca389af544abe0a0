package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/database"
	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAll(ctx context.Context, limit int) ([]*domain.Order, error)
	Count(ctx context.Context) (int, error)
	SumPaidRevenue(ctx context.Context) (decimal.Decimal, error)
	UpdateStatus(ctx context.Context, order *domain.Order) error
	MarkPaid(ctx context.Context, id uuid.UUID, result domain.PaymentResult, paidAt time.Time) (bool, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `o.id, o.user_id, o.shipping_address, o.payment_method, o.discount_code, o.discount_amount,
	o.items_price, o.shipping_price, o.tax_price, o.total_price, o.is_paid, o.paid_at,
	o.payment_result_id, o.payment_result_status, o.is_delivered, o.delivered_at, o.status,
	o.created_at, o.updated_at, u.name, u.email`

// Create inserts an order header and its line items
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}

	conn := database.Conn(ctx, r.db)

	query := `
		INSERT INTO orders (id, user_id, shipping_address, payment_method, discount_code, discount_amount,
			items_price, shipping_price, tax_price, total_price, is_paid, is_delivered, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = conn.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		string(address),
		string(order.PaymentMethod),
		sql.NullString{String: order.DiscountCode, Valid: order.DiscountCode != ""},
		order.DiscountAmount,
		order.ItemsPrice,
		order.ShippingPrice,
		order.TaxPrice,
		order.TotalPrice,
		order.IsPaid,
		order.IsDelivered,
		string(order.Status),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, image, price, size, color, quantity, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if _, err := conn.ExecContext(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.Image,
			item.Price,
			item.Size,
			item.Color,
			item.Quantity,
			i,
		); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

// FindByID retrieves an order with its items and owner resolved
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	orders, err := r.query(ctx, `WHERE o.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return orders[0], nil
}

// FindByIDForUpdate is FindByID holding the order row lock until the
// surrounding transaction ends. Outside a transaction the lock is released
// as soon as the statement completes.
func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	orders, err := r.query(ctx, `WHERE o.id = $1 FOR UPDATE OF o`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return orders[0], nil
}

// ListByUser returns the user's orders, newest first
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders, err := r.query(ctx, `WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user orders: %w", err)
	}
	return orders, nil
}

// ListAll returns every order newest first; a positive limit caps the result
func (r *orderRepository) ListAll(ctx context.Context, limit int) ([]*domain.Order, error) {
	clause := `ORDER BY o.created_at DESC, o.id ASC`
	var args []interface{}
	if limit > 0 {
		clause += ` LIMIT $1`
		args = append(args, limit)
	}

	orders, err := r.query(ctx, clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Count returns the number of orders
func (r *orderRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := database.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return total, nil
}

// SumPaidRevenue totals total_price over paid orders
func (r *orderRepository) SumPaidRevenue(ctx context.Context) (decimal.Decimal, error) {
	var revenue decimal.Decimal
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_price), 0) FROM orders WHERE is_paid = TRUE`).Scan(&revenue)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return revenue, nil
}

// UpdateStatus writes the fulfillment and payment state of order
func (r *orderRepository) UpdateStatus(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $2, is_paid = $3, paid_at = $4, is_delivered = $5, delivered_at = $6
		WHERE id = $1
		RETURNING updated_at
	`

	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		order.ID,
		string(order.Status),
		order.IsPaid,
		nullTime(order.PaidAt),
		order.IsDelivered,
		nullTime(order.DeliveredAt),
	).Scan(&order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return nil
}

// MarkPaid records a successful payment once. It reports false when the
// order was already paid and ErrOrderNotFound when it does not exist.
func (r *orderRepository) MarkPaid(ctx context.Context, id uuid.UUID, result domain.PaymentResult, paidAt time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET is_paid = TRUE, paid_at = $2, payment_result_id = $3, payment_result_status = $4
		WHERE id = $1 AND is_paid = FALSE
	`

	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, paidAt, result.ID, result.Status)
	if err != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return true, nil
	}

	var exists bool
	if err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check order: %w", err)
	}
	if !exists {
		return false, ErrOrderNotFound
	}
	return false, nil
}

func (r *orderRepository) query(ctx context.Context, clause string, args ...interface{}) ([]*domain.Order, error) {
	conn := database.Conn(ctx, r.db)

	query := `SELECT ` + orderColumns + ` FROM orders o LEFT JOIN users u ON u.id = o.user_id ` + clause

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	byID := map[uuid.UUID]*domain.Order{}
	var ids []string

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
		byID[order.ID] = order
		ids = append(ids, order.ID.String())
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if len(ids) == 0 {
		return orders, nil
	}

	itemRows, err := conn.QueryContext(ctx, `
		SELECT id, order_id, product_id, name, image, price, size, color, quantity
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item domain.OrderItem
		if err := itemRows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.Image,
			&item.Price,
			&item.Size,
			&item.Color,
			&item.Quantity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return orders, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{Items: []domain.OrderItem{}}
	var (
		address       []byte
		paymentMethod string
		status        string
		discountCode  sql.NullString
		paidAt        sql.NullTime
		deliveredAt   sql.NullTime
		resultID      sql.NullString
		resultStatus  sql.NullString
		userName      sql.NullString
		userEmail     sql.NullString
	)

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&address,
		&paymentMethod,
		&discountCode,
		&order.DiscountAmount,
		&order.ItemsPrice,
		&order.ShippingPrice,
		&order.TaxPrice,
		&order.TotalPrice,
		&order.IsPaid,
		&paidAt,
		&resultID,
		&resultStatus,
		&order.IsDelivered,
		&deliveredAt,
		&status,
		&order.CreatedAt,
		&order.UpdatedAt,
		&userName,
		&userEmail,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to decode shipping address: %w", err)
	}

	order.PaymentMethod = domain.PaymentMethod(paymentMethod)
	order.Status = domain.OrderStatus(status)
	order.DiscountCode = discountCode.String
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = &deliveredAt.Time
	}
	if resultID.Valid {
		order.PaymentResult = &domain.PaymentResult{ID: resultID.String, Status: resultStatus.String}
	}
	if userName.Valid {
		order.User = &domain.UserSummary{ID: order.UserID, Name: userName.String, Email: userEmail.String}
	}

	return order, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
