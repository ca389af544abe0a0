package transport

import (
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReviewRequest represents a product review submission
type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"required,max=2000"`
}

// ProductHandler serves the public catalog
type ProductHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalogService service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers all catalog routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.With(authMiddleware).Post("/{id}/reviews", h.AddReview)
	})
}

// List returns products matching the query string filters
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r.URL.Query())
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := h.catalogService.ListProducts(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Get returns one product with its reviews
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// AddReview records the caller's rating and returns the updated product
func (h *ProductHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req ReviewRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	product, err := h.catalogService.AddReview(r.Context(), id, caller.UserID, req.Rating, req.Comment)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

type queryError string

func (e queryError) Error() string { return string(e) }

func parseProductFilter(q url.Values) (domain.ProductFilter, error) {
	filter := domain.ProductFilter{
		Search: q.Get("search"),
		SortBy: domain.ProductSort(q.Get("sortBy")),
	}

	if v := q.Get("category"); v != "" {
		category := domain.Category(v)
		filter.Category = &category
	}
	if v := q.Get("subcategory"); v != "" {
		filter.Subcategory = &v
	}

	var err error
	if filter.MinPrice, err = queryDecimal(q, "minPrice"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryDecimal(q, "maxPrice"); err != nil {
		return filter, err
	}
	if filter.Featured, err = queryBool(q, "featured"); err != nil {
		return filter, err
	}
	if filter.Popular, err = queryBool(q, "popular"); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(q, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(q, "offset"); err != nil {
		return filter, err
	}

	return filter, nil
}

func queryDecimal(q url.Values, key string) (*decimal.Decimal, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return nil, queryError("invalid " + key)
	}
	return &d, nil
}

func queryBool(q url.Values, key string) (bool, error) {
	v := q.Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, queryError("invalid " + key)
	}
	return b, nil
}

func queryInt(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, queryError("invalid " + key)
	}
	return n, nil
}
