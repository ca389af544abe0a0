package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/payment"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mock repositories for testing
type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	for _, user := range m.users {
		if user.ID == id {
			user.Role = role
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (m *mockUserRepository) CountByRole(ctx context.Context, role string) (int, error) {
	count := 0
	for _, user := range m.users {
		if user.Role == role {
			count++
		}
	}
	return count, nil
}

func (m *mockUserRepository) add(name string, role string) *domain.User {
	user := &domain.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     uuid.NewString() + "@example.com",
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	m.users[user.Email] = user
	return user
}

type mockProductRepository struct {
	mu          sync.Mutex
	products    map[uuid.UUID]*domain.Product
	reviews     map[uuid.UUID][]domain.Review
	lockedReads int
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[uuid.UUID]*domain.Product),
		reviews:  make(map[uuid.UUID][]domain.Review),
	}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *product
	m.products[product.ID] = &stored
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	stored := *product
	stored.CreatedAt = existing.CreatedAt
	stored.Rating = existing.Rating
	stored.NumReviews = existing.NumReviews
	stored.UpdatedAt = time.Now().UTC()
	m.products[product.ID] = &stored
	*product = stored
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	delete(m.reviews, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(id)
}

func (m *mockProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockedReads++
	return m.find(id)
}

func (m *mockProductRepository) find(id uuid.UUID) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	found := *product
	found.Reviews = append([]domain.Review(nil), m.reviews[id]...)
	return &found, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	products := []*domain.Product{}
	for id := range m.products {
		product, _ := m.find(id)
		if filter.Category != nil && product.Category != *filter.Category {
			continue
		}
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (m *mockProductRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products), nil
}

func (m *mockProductRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	if product.Stock < quantity {
		return repository.ErrInsufficientStock
	}
	product.Stock -= quantity
	return nil
}

func (m *mockProductRepository) AddReview(ctx context.Context, review *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews[review.ProductID] = append(m.reviews[review.ProductID], *review)
	return nil
}

func (m *mockProductRepository) ListReviews(ctx context.Context, productID uuid.UUID) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Review(nil), m.reviews[productID]...), nil
}

func (m *mockProductRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating float64, numReviews int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	product.Rating = rating
	product.NumReviews = numReviews
	return nil
}

func (m *mockProductRepository) add(name string, price string, stock int) *domain.Product {
	product := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Category:  domain.CategoryJewelry,
		Price:     decimal.RequireFromString(price),
		Images:    []string{"/img/" + name + ".jpg"},
		Sizes:     []string{},
		Colors:    []string{},
		Stock:     stock,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_ = m.Create(context.Background(), product)
	return product
}

func (m *mockProductRepository) stock(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

type mockCart struct {
	items []domain.CartItem
	code  string
}

type mockCartRepository struct {
	carts    map[uuid.UUID]*mockCart
	products *mockProductRepository
	locks    int
}

func newMockCartRepository(products *mockProductRepository) *mockCartRepository {
	return &mockCartRepository{carts: make(map[uuid.UUID]*mockCart), products: products}
}

func (m *mockCartRepository) cart(userID uuid.UUID) *mockCart {
	cart, ok := m.carts[userID]
	if !ok {
		cart = &mockCart{}
		m.carts[userID] = cart
	}
	return cart
}

func (m *mockCartRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	result := &domain.Cart{UserID: userID, Items: []domain.CartItem{}}
	cart, ok := m.carts[userID]
	if !ok {
		return result, nil
	}
	result.DiscountCode = cart.code
	for _, item := range cart.items {
		product, err := m.products.FindByID(ctx, item.ProductID)
		if err != nil {
			continue
		}
		item.Product = product
		result.Items = append(result.Items, item)
	}
	return result, nil
}

func (m *mockCartRepository) AddItem(ctx context.Context, userID uuid.UUID, item *domain.CartItem) error {
	cart := m.cart(userID)
	for i := range cart.items {
		existing := &cart.items[i]
		if existing.ProductID == item.ProductID && existing.Size == item.Size && existing.Color == item.Color {
			existing.Quantity += item.Quantity
			item.ID = existing.ID
			item.Quantity = existing.Quantity
			return nil
		}
	}
	cart.items = append(cart.items, *item)
	return nil
}

func (m *mockCartRepository) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	cart := m.cart(userID)
	for i := range cart.items {
		if cart.items[i].ID == itemID {
			cart.items[i].Quantity = quantity
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (m *mockCartRepository) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	cart := m.cart(userID)
	for i := range cart.items {
		if cart.items[i].ID == itemID {
			cart.items = append(cart.items[:i], cart.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (m *mockCartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	cart := m.cart(userID)
	cart.items = nil
	cart.code = ""
	return nil
}

func (m *mockCartRepository) SetDiscountCode(ctx context.Context, userID uuid.UUID, code string) error {
	m.cart(userID).code = code
	return nil
}

func (m *mockCartRepository) Lock(ctx context.Context, userID uuid.UUID) error {
	m.locks++
	return nil
}

func (m *mockCartRepository) put(userID uuid.UUID, product *domain.Product, quantity int) {
	cart := m.cart(userID)
	cart.items = append(cart.items, domain.CartItem{
		ID:        uuid.New(),
		ProductID: product.ID,
		Quantity:  quantity,
		CreatedAt: time.Now().UTC(),
	})
}

type mockDiscountRepository struct {
	discounts map[string]*domain.Discount
	// exhaustOnIncrement simulates losing the usage race to another checkout
	exhaustOnIncrement bool
}

func newMockDiscountRepository() *mockDiscountRepository {
	return &mockDiscountRepository{discounts: make(map[string]*domain.Discount)}
}

func (m *mockDiscountRepository) Create(ctx context.Context, discount *domain.Discount) error {
	if _, exists := m.discounts[discount.Code]; exists {
		return repository.ErrDiscountAlreadyExists
	}
	m.discounts[discount.Code] = discount
	return nil
}

func (m *mockDiscountRepository) FindByCode(ctx context.Context, code string) (*domain.Discount, error) {
	discount, ok := m.discounts[code]
	if !ok {
		return nil, repository.ErrDiscountNotFound
	}
	found := *discount
	return &found, nil
}

func (m *mockDiscountRepository) List(ctx context.Context) ([]*domain.Discount, error) {
	discounts := make([]*domain.Discount, 0, len(m.discounts))
	for _, discount := range m.discounts {
		discounts = append(discounts, discount)
	}
	return discounts, nil
}

func (m *mockDiscountRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Discount, error) {
	for _, discount := range m.discounts {
		if discount.ID == id {
			discount.IsActive = active
			return discount, nil
		}
	}
	return nil, repository.ErrDiscountNotFound
}

func (m *mockDiscountRepository) IncrementUsage(ctx context.Context, code string) error {
	discount, ok := m.discounts[code]
	if !ok {
		return repository.ErrDiscountNotFound
	}
	if m.exhaustOnIncrement || (discount.UsageLimit != nil && discount.UsedCount >= *discount.UsageLimit) {
		return repository.ErrDiscountExhausted
	}
	discount.UsedCount++
	return nil
}

func (m *mockDiscountRepository) add(discount *domain.Discount) *domain.Discount {
	if discount.ID == uuid.Nil {
		discount.ID = uuid.New()
	}
	if discount.ValidFrom.IsZero() {
		discount.ValidFrom = time.Now().Add(-24 * time.Hour)
	}
	if discount.ValidUntil.IsZero() {
		discount.ValidUntil = time.Now().Add(24 * time.Hour)
	}
	discount.IsActive = true
	m.discounts[discount.Code] = discount
	return discount
}

type mockOrderRepository struct {
	mu          sync.Mutex
	orders      map[uuid.UUID]*domain.Order
	markErr     error
	lockedReads int
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = copyOrder(order)
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func (m *mockOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	m.lockedReads++
	m.mu.Unlock()
	return m.FindByID(ctx, id)
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders, _ := m.ListAll(ctx, 0)
	mine := []*domain.Order{}
	for _, order := range orders {
		if order.UserID == userID {
			mine = append(mine, order)
		}
	}
	return mine, nil
}

func (m *mockOrderRepository) ListAll(ctx context.Context, limit int) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders := []*domain.Order{}
	for _, order := range m.orders {
		orders = append(orders, copyOrder(order))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (m *mockOrderRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders), nil
}

func (m *mockOrderRepository) SumPaidRevenue(ctx context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, order := range m.orders {
		if order.IsPaid {
			total = total.Add(order.TotalPrice)
		}
	}
	return total, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return repository.ErrOrderNotFound
	}
	order.UpdatedAt = time.Now().UTC()
	m.orders[order.ID] = copyOrder(order)
	return nil
}

func (m *mockOrderRepository) MarkPaid(ctx context.Context, id uuid.UUID, result domain.PaymentResult, paidAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return false, m.markErr
	}
	order, ok := m.orders[id]
	if !ok {
		return false, repository.ErrOrderNotFound
	}
	if order.IsPaid {
		return false, nil
	}
	order.IsPaid = true
	order.PaidAt = &paidAt
	order.PaymentResult = &result
	return true, nil
}

func copyOrder(order *domain.Order) *domain.Order {
	cp := *order
	cp.Items = append([]domain.OrderItem(nil), order.Items...)
	return &cp
}

// fakeTransactor runs fn directly; the in-memory mocks have nothing to roll back
type fakeTransactor struct {
	calls int
}

func (f *fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeProcessor struct {
	requests []payment.IntentRequest
	err      error
}

func (f *fakeProcessor) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Intent{
		ID:           "pi_test",
		ClientSecret: "pi_test_secret",
		Status:       "requires_payment_method",
		Amount:       req.AmountMinor,
		Currency:     "usd",
	}, nil
}

type fakeClaimer struct {
	claimed  map[string]bool
	released []string
	err      error
}

func newFakeClaimer() *fakeClaimer {
	return &fakeClaimer{claimed: make(map[string]bool)}
}

func (f *fakeClaimer) Claim(ctx context.Context, eventID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.claimed[eventID] {
		return false, nil
	}
	f.claimed[eventID] = true
	return true, nil
}

func (f *fakeClaimer) Release(ctx context.Context, eventID string) error {
	delete(f.claimed, eventID)
	f.released = append(f.released, eventID)
	return nil
}

type fakeArchive struct {
	events []*domain.PaymentEvent
	err    error
}

func (f *fakeArchive) Record(ctx context.Context, event *domain.PaymentEvent) error {
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.events {
		if existing.ID == event.ID {
			return nil
		}
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeArchive) Recent(ctx context.Context, limit int) ([]*domain.PaymentEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	events := make([]*domain.PaymentEvent, 0, len(f.events))
	for i := len(f.events) - 1; i >= 0 && len(events) < limit; i-- {
		events = append(events, f.events[i])
	}
	return events, nil
}

var errBoom = errors.New("boom")
