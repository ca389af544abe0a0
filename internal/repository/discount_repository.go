package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/database"
	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrDiscountNotFound      = errors.New("discount not found")
	ErrDiscountAlreadyExists = errors.New("discount code already exists")
	ErrDiscountExhausted     = errors.New("discount usage limit reached")
)

// DiscountRepository defines the interface for discount code data access
type DiscountRepository interface {
	Create(ctx context.Context, discount *domain.Discount) error
	FindByCode(ctx context.Context, code string) (*domain.Discount, error)
	List(ctx context.Context) ([]*domain.Discount, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Discount, error)
	IncrementUsage(ctx context.Context, code string) error
}

type discountRepository struct {
	db *sql.DB
}

// NewDiscountRepository creates a new instance of DiscountRepository
func NewDiscountRepository(db *sql.DB) DiscountRepository {
	return &discountRepository{db: db}
}

const discountColumns = `id, code, description, discount_type, discount_value, min_purchase, max_discount,
	valid_from, valid_until, is_active, usage_limit, used_count, created_at`

// Create inserts a new discount; the code must already be normalized
func (r *discountRepository) Create(ctx context.Context, discount *domain.Discount) error {
	query := `
		INSERT INTO discounts (` + discountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var usageLimit sql.NullInt64
	if discount.UsageLimit != nil {
		usageLimit = sql.NullInt64{Int64: int64(*discount.UsageLimit), Valid: true}
	}

	_, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		discount.ID,
		discount.Code,
		discount.Description,
		string(discount.Type),
		discount.Value,
		discount.MinPurchase,
		nullDecimal(discount.MaxDiscount),
		discount.ValidFrom,
		discount.ValidUntil,
		discount.IsActive,
		usageLimit,
		discount.UsedCount,
		discount.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDiscountAlreadyExists
		}
		return fmt.Errorf("failed to create discount: %w", err)
	}

	return nil
}

// FindByCode looks up a discount by its normalized code, active or not
func (r *discountRepository) FindByCode(ctx context.Context, code string) (*domain.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE code = $1`

	discount, err := scanDiscount(database.Conn(ctx, r.db).QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDiscountNotFound
		}
		return nil, fmt.Errorf("failed to find discount by code: %w", err)
	}

	return discount, nil
}

// List returns every discount, newest first
func (r *discountRepository) List(ctx context.Context) ([]*domain.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts ORDER BY created_at DESC, code ASC`

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list discounts: %w", err)
	}
	defer rows.Close()

	discounts := []*domain.Discount{}
	for rows.Next() {
		discount, err := scanDiscount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan discount: %w", err)
		}
		discounts = append(discounts, discount)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating discounts: %w", err)
	}

	return discounts, nil
}

// SetActive toggles a discount and returns its new state
func (r *discountRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Discount, error) {
	query := `UPDATE discounts SET is_active = $2 WHERE id = $1 RETURNING ` + discountColumns

	discount, err := scanDiscount(database.Conn(ctx, r.db).QueryRowContext(ctx, query, id, active))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDiscountNotFound
		}
		return nil, fmt.Errorf("failed to update discount: %w", err)
	}

	return discount, nil
}

// IncrementUsage consumes one use, failing with ErrDiscountExhausted when the
// limit was reached concurrently
func (r *discountRepository) IncrementUsage(ctx context.Context, code string) error {
	query := `
		UPDATE discounts
		SET used_count = used_count + 1
		WHERE code = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
	`

	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, code)
	if err != nil {
		return fmt.Errorf("failed to increment discount usage: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := r.FindByCode(ctx, code); err != nil {
			return err
		}
		return ErrDiscountExhausted
	}

	return nil
}

func scanDiscount(row rowScanner) (*domain.Discount, error) {
	discount := &domain.Discount{}
	var (
		discountType string
		maxDiscount  decimal.NullDecimal
		usageLimit   sql.NullInt64
	)

	err := row.Scan(
		&discount.ID,
		&discount.Code,
		&discount.Description,
		&discountType,
		&discount.Value,
		&discount.MinPurchase,
		&maxDiscount,
		&discount.ValidFrom,
		&discount.ValidUntil,
		&discount.IsActive,
		&usageLimit,
		&discount.UsedCount,
		&discount.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	discount.Type = domain.DiscountType(discountType)
	if maxDiscount.Valid {
		discount.MaxDiscount = &maxDiscount.Decimal
	}
	if usageLimit.Valid {
		limit := int(usageLimit.Int64)
		discount.UsageLimit = &limit
	}

	return discount, nil
}
