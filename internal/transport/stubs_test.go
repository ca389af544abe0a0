package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Service stubs record their inputs and return canned results

type stubUserService struct {
	registered []string
	loginErr   error
	user       *domain.User
}

func (s *stubUserService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	for _, e := range s.registered {
		if e == email {
			return nil, repository.ErrUserAlreadyExists
		}
	}
	s.registered = append(s.registered, email)
	s.user = &domain.User{ID: uuid.New(), Name: name, Email: email, Role: domain.RoleUser}
	return s.user, nil
}

func (s *stubUserService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if s.loginErr != nil {
		return "", nil, s.loginErr
	}
	return "signed-token", s.user, nil
}

func (s *stubUserService) ValidateToken(tokenString string) (*service.Claims, error) {
	return nil, service.ErrInvalidToken
}

func (s *stubUserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if s.user == nil || s.user.ID != userID {
		return nil, repository.ErrUserNotFound
	}
	return s.user, nil
}

func (s *stubUserService) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	return nil, nil
}

type stubCatalogService struct {
	filter   domain.ProductFilter
	product  *domain.Product
	listErr  error
	reviewBy uuid.UUID
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	s.filter = filter
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []*domain.Product{s.product}, nil
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if s.product == nil || s.product.ID != id {
		return nil, repository.ErrProductNotFound
	}
	return s.product, nil
}

func (s *stubCatalogService) AddReview(ctx context.Context, productID, userID uuid.UUID, rating int, comment string) (*domain.Product, error) {
	s.reviewBy = userID
	p := *s.product
	p.Reviews = append(p.Reviews, domain.Review{UserID: userID, Rating: rating, Comment: comment})
	p.CalculateRating()
	return &p, nil
}

type stubCartService struct {
	userID uuid.UUID
	added  service.AddCartItemInput
	code   string
	err    error
}

func (s *stubCartService) view(userID uuid.UUID) (*service.CartView, error) {
	s.userID = userID
	if s.err != nil {
		return nil, s.err
	}
	return &service.CartView{Cart: &domain.Cart{UserID: userID, Items: []domain.CartItem{}}, Subtotal: decimal.Zero}, nil
}

func (s *stubCartService) GetCart(ctx context.Context, userID uuid.UUID) (*service.CartView, error) {
	return s.view(userID)
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input service.AddCartItemInput) (*service.CartView, error) {
	s.added = input
	return s.view(userID)
}

func (s *stubCartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*service.CartView, error) {
	return s.view(userID)
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*service.CartView, error) {
	return s.view(userID)
}

func (s *stubCartService) Clear(ctx context.Context, userID uuid.UUID) (*service.CartView, error) {
	return s.view(userID)
}

func (s *stubCartService) ApplyDiscount(ctx context.Context, userID uuid.UUID, code string) (*service.CartView, error) {
	s.code = code
	return s.view(userID)
}

func (s *stubCartService) RemoveDiscount(ctx context.Context, userID uuid.UUID) (*service.CartView, error) {
	s.code = ""
	return s.view(userID)
}

type stubOrderService struct {
	input     service.PlaceOrderInput
	requester service.Requester
	order     *domain.Order
	err       error
}

func (s *stubOrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, input service.PlaceOrderInput) (*domain.Order, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Order{ID: uuid.New(), UserID: userID, ShippingAddress: input.ShippingAddress, PaymentMethod: input.PaymentMethod}, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, requester service.Requester, orderID uuid.UUID) (*domain.Order, error) {
	s.requester = requester
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

func (s *stubOrderService) ListMine(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return []*domain.Order{}, nil
}

type stubDiscountService struct {
	created service.NewDiscountInput
	active  *bool
	err     error
}

func (s *stubDiscountService) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*service.DiscountQuote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.DiscountQuote{Valid: true, Code: domain.NormalizeCode(code), DiscountAmount: subtotal.Div(decimal.NewFromInt(10))}, nil
}

func (s *stubDiscountService) List(ctx context.Context) ([]*domain.Discount, error) {
	return []*domain.Discount{}, nil
}

func (s *stubDiscountService) Create(ctx context.Context, input service.NewDiscountInput) (*domain.Discount, error) {
	s.created = input
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Discount{ID: uuid.New(), Code: domain.NormalizeCode(input.Code), Type: input.Type, Value: input.Value, IsActive: input.IsActive}, nil
}

func (s *stubDiscountService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Discount, error) {
	s.active = &active
	return &domain.Discount{ID: id, IsActive: active}, nil
}

type stubPaymentService struct {
	intent    service.CreateIntentInput
	payload   []byte
	signature string
	err       error
}

func (s *stubPaymentService) CreateIntent(ctx context.Context, requester service.Requester, input service.CreateIntentInput) (*service.IntentResult, error) {
	s.intent = input
	if s.err != nil {
		return nil, s.err
	}
	return &service.IntentResult{ClientSecret: "pi_test_secret", PaymentIntentID: "pi_test", AmountMinor: 11560}, nil
}

func (s *stubPaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*domain.PaymentEvent, error) {
	s.payload = payload
	s.signature = signature
	if s.err != nil {
		return nil, s.err
	}
	return &domain.PaymentEvent{Outcome: domain.EventApplied}, nil
}

type stubAdminService struct {
	product *domain.Product
	input   service.ProductInput
	update  domain.OrderStatusUpdate
	limit   int
	err     error
}

func (s *stubAdminService) GetStats(ctx context.Context) (*domain.AdminStats, error) {
	return &domain.AdminStats{TotalProducts: 6, TotalRevenue: decimal.RequireFromString("126.10")}, nil
}

func (s *stubAdminService) CreateProduct(ctx context.Context, input service.ProductInput) (*domain.Product, error) {
	s.input = input
	return &domain.Product{ID: uuid.New(), Name: input.Name, Category: input.Category, Price: input.Price}, nil
}

func (s *stubAdminService) UpdateProduct(ctx context.Context, id uuid.UUID, input service.ProductInput) (*domain.Product, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Product{ID: id, Name: input.Name}, nil
}

func (s *stubAdminService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.err
}

func (s *stubAdminService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return []*domain.Order{}, nil
}

func (s *stubAdminService) UpdateOrder(ctx context.Context, id uuid.UUID, update domain.OrderStatusUpdate) (*domain.Order, error) {
	s.update = update
	return &domain.Order{ID: id}, nil
}

func (s *stubAdminService) ListPaymentEvents(ctx context.Context, limit int) ([]*domain.PaymentEvent, error) {
	s.limit = limit
	return []*domain.PaymentEvent{}, nil
}

// Route registration shared by every handler
type routeRegistrar interface {
	RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler)
}

// newTestRouter mounts h behind a fake auth middleware that authenticates
// caller, or rejects every protected request when caller is nil
func newTestRouter(h routeRegistrar, caller *service.Requester) http.Handler {
	auth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if caller == nil {
				middleware.RespondWithError(w, http.StatusUnauthorized, "not authorized, no token")
				return
			}
			next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), caller.UserID, caller.Role)))
		})
	}

	r := chi.NewRouter()
	h.RegisterRoutes(r, auth)
	return r
}

func customer() *service.Requester {
	return &service.Requester{UserID: uuid.New(), Role: domain.RoleUser}
}

func admin() *service.Requester {
	return &service.Requester{UserID: uuid.New(), Role: domain.RoleAdmin}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var response middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response.Error.Message
}
