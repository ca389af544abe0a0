package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/database"
	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	Count(ctx context.Context) (int, error)
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
	AddReview(ctx context.Context, review *domain.Review) error
	ListReviews(ctx context.Context, productID uuid.UUID) ([]domain.Review, error)
	UpdateRating(ctx context.Context, id uuid.UUID, rating float64, numReviews int) error
}

type productRepository struct {
	db   *sql.DB
	tmap *pgtype.Map
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db, tmap: pgtype.NewMap()}
}

const productColumns = `id, name, description, category, subcategory, price, compare_at_price,
	images, sizes, colors, stock, featured, popular, rating, num_reviews, created_at, updated_at`

// Create inserts a new product using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := database.Conn(ctx, r.db).ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		string(product.Category),
		product.Subcategory,
		product.Price,
		nullDecimal(product.CompareAtPrice),
		textArray(product.Images),
		textArray(product.Sizes),
		textArray(product.Colors),
		product.Stock,
		product.Featured,
		product.Popular,
		product.Rating,
		product.NumReviews,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update replaces every mutable catalog field; rating and reviews are untouched
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, category = $4, subcategory = $5, price = $6,
		    compare_at_price = $7, images = $8, sizes = $9, colors = $10, stock = $11,
		    featured = $12, popular = $13
		WHERE id = $1
		RETURNING created_at, updated_at, rating, num_reviews
	`

	err := database.Conn(ctx, r.db).QueryRowContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		string(product.Category),
		product.Subcategory,
		product.Price,
		nullDecimal(product.CompareAtPrice),
		textArray(product.Images),
		textArray(product.Sizes),
		textArray(product.Colors),
		product.Stock,
		product.Featured,
		product.Popular,
	).Scan(&product.CreatedAt, &product.UpdatedAt, &product.Rating, &product.NumReviews)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// Delete removes a product; its reviews cascade
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product together with its reviews
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.find(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// FindByIDForUpdate locks the product row for the surrounding transaction.
// Reviews are read after the lock is granted so they include any review
// committed by the previous holder.
func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.find(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *productRepository) find(ctx context.Context, query string, id uuid.UUID) (*domain.Product, error) {

	product, err := r.scanProduct(database.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	reviews, err := r.ListReviews(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Reviews = reviews

	return product, nil
}

// List retrieves products matching filter in the requested order
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	var (
		conditions []string
		args       []interface{}
	)

	addArg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != nil {
		conditions = append(conditions, "category = "+addArg(string(*filter.Category)))
	}
	if filter.Subcategory != nil {
		conditions = append(conditions, "subcategory = "+addArg(*filter.Subcategory))
	}
	if filter.Featured {
		conditions = append(conditions, "featured = TRUE")
	}
	if filter.Popular {
		conditions = append(conditions, "popular = TRUE")
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, "price >= "+addArg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, "price <= "+addArg(*filter.MaxPrice))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		// Use ILIKE for case-insensitive substring search
		placeholder := addArg("%" + escapeLike(search) + "%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", placeholder, placeholder))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s`, productColumns, whereClause, orderClause(filter.SortBy))

	if filter.Limit > 0 {
		query += " LIMIT " + addArg(filter.Limit) + " OFFSET " + addArg(filter.Offset)
	}

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := r.scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Count returns the number of catalog products
func (r *productRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := database.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

// DecrementStock removes quantity units only if that many are available
func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
	`

	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists bool
		if err := database.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check product: %w", err)
		}
		if !exists {
			return ErrProductNotFound
		}
		return ErrInsufficientStock
	}

	return nil
}

// AddReview inserts a review for an existing product
func (r *productRepository) AddReview(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO product_reviews (id, product_id, user_id, name, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		review.ID,
		review.ProductID,
		review.UserID,
		review.Name,
		review.Rating,
		review.Comment,
		review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add review: %w", err)
	}

	return nil
}

// ListReviews returns a product's reviews, oldest first
func (r *productRepository) ListReviews(ctx context.Context, productID uuid.UUID) ([]domain.Review, error) {
	query := `
		SELECT id, product_id, user_id, name, rating, comment, created_at
		FROM product_reviews
		WHERE product_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var review domain.Review
		if err := rows.Scan(
			&review.ID,
			&review.ProductID,
			&review.UserID,
			&review.Name,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}

// UpdateRating stores the derived rating fields
func (r *productRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating float64, numReviews int) error {
	result, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE products SET rating = $2, num_reviews = $3 WHERE id = $1`, id, rating, numReviews)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *productRepository) scanProduct(row rowScanner) (*domain.Product, error) {
	return scanProductRow(r.tmap, row)
}

// scanProductRow scans productColumns after any leading destinations
func scanProductRow(tmap *pgtype.Map, row rowScanner, lead ...interface{}) (*domain.Product, error) {
	product := &domain.Product{}
	var (
		category       string
		compareAtPrice decimal.NullDecimal
	)

	dest := append(lead,
		&product.ID,
		&product.Name,
		&product.Description,
		&category,
		&product.Subcategory,
		&product.Price,
		&compareAtPrice,
		tmap.SQLScanner(&product.Images),
		tmap.SQLScanner(&product.Sizes),
		tmap.SQLScanner(&product.Colors),
		&product.Stock,
		&product.Featured,
		&product.Popular,
		&product.Rating,
		&product.NumReviews,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	product.Category = domain.Category(category)
	if compareAtPrice.Valid {
		product.CompareAtPrice = &compareAtPrice.Decimal
	}

	return product, nil
}

func orderClause(sortBy domain.ProductSort) string {
	switch sortBy {
	case domain.SortPriceLow:
		return "price ASC, created_at DESC"
	case domain.SortPriceHigh:
		return "price DESC, created_at DESC"
	case domain.SortPopular:
		return "rating DESC, num_reviews DESC, created_at DESC"
	default:
		return "created_at DESC, id ASC"
	}
}

// qualify prefixes every column in a comma separated list with alias
func qualify(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func textArray(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
