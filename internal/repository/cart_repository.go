package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/database"
	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

var ErrCartItemNotFound = errors.New("cart item not found")

// CartRepository defines the interface for per-user cart data access.
// A cart row is created on first write; reads of a missing cart return an
// empty cart.
type CartRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, item *domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	SetDiscountCode(ctx context.Context, userID uuid.UUID, code string) error
	Lock(ctx context.Context, userID uuid.UUID) error
}

type cartRepository struct {
	db   *sql.DB
	tmap *pgtype.Map
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db, tmap: pgtype.NewMap()}
}

// Get loads the cart with every item's product resolved, in insertion order
func (r *cartRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	conn := database.Conn(ctx, r.db)

	cart := &domain.Cart{UserID: userID, Items: []domain.CartItem{}}
	var code sql.NullString

	err := conn.QueryRowContext(ctx,
		`SELECT discount_code, created_at, updated_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&code, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			now := time.Now().UTC()
			cart.CreatedAt, cart.UpdatedAt = now, now
			return cart, nil
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}
	cart.DiscountCode = code.String

	query := `
		SELECT ci.id, ci.product_id, ci.quantity, ci.size, ci.color, ci.created_at, ` + qualify("p", productColumns) + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at ASC, ci.id ASC
	`

	rows, err := conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		product, err := scanProductRow(r.tmap, rows,
			&item.ID,
			&item.ProductID,
			&item.Quantity,
			&item.Size,
			&item.Color,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		item.Product = product
		cart.Items = append(cart.Items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return cart, nil
}

// AddItem merges into an existing line with the same product, size and color
func (r *cartRepository) AddItem(ctx context.Context, userID uuid.UUID, item *domain.CartItem) error {
	if err := r.ensureCart(ctx, userID); err != nil {
		return err
	}

	query := `
		INSERT INTO cart_items (id, user_id, product_id, quantity, size, color, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, product_id, size, color)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, quantity, created_at
	`

	err := database.Conn(ctx, r.db).QueryRowContext(ctx, query,
		item.ID,
		userID,
		item.ProductID,
		item.Quantity,
		item.Size,
		item.Color,
		item.CreatedAt,
	).Scan(&item.ID, &item.Quantity, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}

	return r.touch(ctx, userID)
}

// UpdateItemQuantity sets the quantity of one of the user's items
func (r *cartRepository) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	result, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE id = $1 AND user_id = $2`, itemID, userID, quantity)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	if err := requireRow(result, ErrCartItemNotFound); err != nil {
		return err
	}

	return r.touch(ctx, userID)
}

// RemoveItem deletes one of the user's items
func (r *cartRepository) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	result, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	if err := requireRow(result, ErrCartItemNotFound); err != nil {
		return err
	}

	return r.touch(ctx, userID)
}

// Clear empties the cart and drops the pending discount code. The cart row stays.
func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	conn := database.Conn(ctx, r.db)

	if _, err := conn.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}

	if _, err := conn.ExecContext(ctx, `UPDATE carts SET discount_code = NULL WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart discount: %w", err)
	}

	return nil
}

// SetDiscountCode stores the pending code; an empty code removes it
func (r *cartRepository) SetDiscountCode(ctx context.Context, userID uuid.UUID, code string) error {
	if err := r.ensureCart(ctx, userID); err != nil {
		return err
	}

	value := sql.NullString{String: code, Valid: code != ""}
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE carts SET discount_code = $2 WHERE user_id = $1`, userID, value); err != nil {
		return fmt.Errorf("failed to set cart discount: %w", err)
	}

	return nil
}

// Lock takes a row lock on the cart for the rest of the surrounding
// transaction, so concurrent checkouts of one cart run one after another
func (r *cartRepository) Lock(ctx context.Context, userID uuid.UUID) error {
	if err := r.ensureCart(ctx, userID); err != nil {
		return err
	}

	var locked uuid.UUID
	if err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT user_id FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&locked); err != nil {
		return fmt.Errorf("failed to lock cart: %w", err)
	}
	return nil
}

func (r *cartRepository) ensureCart(ctx context.Context, userID uuid.UUID) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

func (r *cartRepository) touch(ctx context.Context, userID uuid.UUID) error {
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE carts SET updated_at = NOW() WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	return nil
}

func requireRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
