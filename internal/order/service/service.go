// Package service implements the shopping cart, order placement and order fulfilment.
package service

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	auditdomain "storefront/backend/internal/audit/domain"
	catalogdomain "storefront/backend/internal/catalog/domain"
	checkoutdomain "storefront/backend/internal/checkout/domain"
	"storefront/backend/internal/order/domain"
	"storefront/backend/internal/order/repository"
	"storefront/backend/internal/platform/errs"
	"storefront/backend/internal/telemetry"
	telemetrydomain "storefront/backend/internal/telemetry/domain"
)

// DefaultDeliveryMethod is used when an order names none.
const DefaultDeliveryMethod = "standard"

// Catalog is the product side of ordering. Implemented by the catalog service.
type Catalog interface {
	GetVisible(ctx context.Context, id string) (*catalogdomain.Product, error)
	Reserve(ctx context.Context, actor, orderID string, lines []catalogdomain.StockLine) error
	Release(ctx context.Context, actor, orderID string, lines []catalogdomain.StockLine) error
}

// Checkout resolves the user's saved addresses and payment methods. Implemented by the checkout service.
type Checkout interface {
	GetAddress(ctx context.Context, userID, id string) (*checkoutdomain.Address, error)
	DefaultAddress(ctx context.Context, userID string, t checkoutdomain.AddressType) (*checkoutdomain.Address, error)
	GetPaymentMethod(ctx context.Context, userID, id string) (*checkoutdomain.PaymentMethod, error)
	DefaultPaymentMethod(ctx context.Context, userID string) (*checkoutdomain.PaymentMethod, error)
}

// AuditLogger records order placement and status changes. See audit.AuditLogger.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for cart and order timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithAuditLogger sets the audit logger for order events.
func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

// WithEmitter sets the telemetry emitter for order events.
func WithEmitter(e telemetry.EventEmitter) Option {
	return func(s *Service) { s.emitter = e }
}

// PlaceOrderInput selects what the order is charged and shipped with. Empty ids fall back to the
// user's defaults; a missing billing address falls back to the shipping address.
type PlaceOrderInput struct {
	ShippingAddressID string `json:"shippingAddressId,omitempty"`
	BillingAddressID  string `json:"billingAddressId,omitempty"`
	PaymentMethodID   string `json:"paymentMethodId,omitempty"`
	DeliveryMethod    string `json:"deliveryMethod,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// Service scopes customer operations to the calling user. Orders owned by someone else are
// reported as errs.ErrNotFound.
type Service struct {
	orders   repository.OrderRepository
	carts    repository.CartRepository
	catalog  Catalog
	checkout Checkout
	clock    clockwork.Clock
	audit    AuditLogger
	emitter  telemetry.EventEmitter

	cartMu sync.Mutex
}

// NewService returns an order service.
func NewService(orders repository.OrderRepository, carts repository.CartRepository, catalog Catalog, checkout Checkout, opts ...Option) *Service {
	s := &Service{orders: orders, carts: carts, catalog: catalog, checkout: checkout, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time { return s.clock.Now().UTC() }

// Cart returns the user's cart.
func (s *Service) Cart(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.carts.Get(ctx, userID)
}

// AddToCart adds quantity of a visible product to the user's cart. The cart may not hold more
// than the product's stock.
func (s *Service) AddToCart(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, errs.Invalid("quantity", "must be positive")
	}
	s.cartMu.Lock()
	defer s.cartMu.Unlock()
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.setLocked(ctx, c, productID, c.Quantity(productID)+quantity)
}

// SetCartQuantity sets the quantity of a product in the user's cart. Zero removes the line.
func (s *Service) SetCartQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 0 {
		return nil, errs.Invalid("quantity", "must not be negative")
	}
	s.cartMu.Lock()
	defer s.cartMu.Unlock()
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.setLocked(ctx, c, productID, quantity)
}

func (s *Service) setLocked(ctx context.Context, c *domain.Cart, productID string, quantity int) (*domain.Cart, error) {
	if quantity > 0 {
		p, err := s.catalog.GetVisible(ctx, productID)
		if err != nil {
			return nil, err
		}
		if quantity > p.StockQuantity {
			return nil, catalogdomain.ErrInsufficientStock
		}
	}
	c.Set(productID, quantity)
	c.UpdatedAt = s.now()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ClearCart empties the user's cart.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()
	return s.carts.Delete(ctx, userID)
}

// PlaceOrder turns the user's cart into a pending order: lines are priced from the catalogue,
// stock is reserved and the cart is emptied.
func (s *Service) PlaceOrder(ctx context.Context, userID string, in PlaceOrderInput) (*domain.Order, error) {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, errs.Invalid("items", "cart is empty")
	}
	deliveryID := strings.TrimSpace(in.DeliveryMethod)
	if deliveryID == "" {
		deliveryID = DefaultDeliveryMethod
	}
	delivery, ok := checkoutdomain.DeliveryMethodByID(deliveryID)
	if !ok || !delivery.Active {
		return nil, errs.Invalid("deliveryMethod", "unknown delivery method")
	}
	shipping, billing, err := s.addresses(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	payment, err := s.paymentMethod(ctx, userID, in.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(c.Items))
	lines := make([]catalogdomain.StockLine, 0, len(c.Items))
	var currency string
	for _, ci := range c.Items {
		p, err := s.catalog.GetVisible(ctx, ci.ProductID)
		if err != nil {
			return nil, err
		}
		if currency == "" {
			currency = p.Currency
		} else if p.Currency != currency {
			return nil, errs.Invalid("items", "products are priced in different currencies")
		}
		items = append(items, domain.Item{ProductID: p.ID, ProductName: p.Name, Quantity: ci.Quantity, PriceAtPurchase: p.Price})
		lines = append(lines, catalogdomain.StockLine{ProductID: p.ID, Quantity: ci.Quantity})
	}

	now := s.now()
	o := &domain.Order{
		ID:              "ORD-" + uuid.NewString(),
		UserID:          userID,
		Items:           items,
		TotalAmount:     domain.Total(items) + delivery.Cost,
		Currency:        currency,
		Status:          domain.StatusPending,
		PaymentStatus:   domain.PaymentPending,
		PaymentMethodID: payment.ID,
		DeliveryMethod:  delivery.ID,
		ShippingAddress: shipping.OneLine(),
		BillingAddress:  billing.OneLine(),
		Notes:           strings.TrimSpace(in.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.catalog.Reserve(ctx, userID, o.ID, lines); err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, o); err != nil {
		if relErr := s.catalog.Release(context.WithoutCancel(ctx), userID, o.ID, lines); relErr != nil {
			log.Printf("order: release stock of unsaved order %s: %v", o.ID, relErr)
		}
		return nil, err
	}
	if err := s.carts.Delete(ctx, userID); err != nil {
		log.Printf("order: clear cart of %s after order %s: %v", userID, o.ID, err)
	}
	s.record(ctx, userID, auditdomain.ActionOrderPlaced, telemetrydomain.EventOrderPlaced, map[string]any{
		"orderId": o.ID, "total": o.TotalAmount, "currency": o.Currency, "items": len(o.Items),
	})
	return o, nil
}

func (s *Service) addresses(ctx context.Context, userID string, in PlaceOrderInput) (shipping, billing *checkoutdomain.Address, err error) {
	shipping, err = s.address(ctx, userID, in.ShippingAddressID, checkoutdomain.AddressShipping)
	if err != nil {
		return nil, nil, err
	}
	if shipping == nil {
		return nil, nil, errs.Required("shippingAddressId")
	}
	billing, err = s.address(ctx, userID, in.BillingAddressID, checkoutdomain.AddressBilling)
	if err != nil {
		return nil, nil, err
	}
	if billing == nil {
		billing = shipping
	}
	return shipping, billing, nil
}

func (s *Service) address(ctx context.Context, userID, id string, t checkoutdomain.AddressType) (*checkoutdomain.Address, error) {
	if id == "" {
		return s.checkout.DefaultAddress(ctx, userID, t)
	}
	return s.checkout.GetAddress(ctx, userID, id)
}

func (s *Service) paymentMethod(ctx context.Context, userID, id string) (*checkoutdomain.PaymentMethod, error) {
	if id != "" {
		return s.checkout.GetPaymentMethod(ctx, userID, id)
	}
	pm, err := s.checkout.DefaultPaymentMethod(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pm == nil {
		return nil, errs.Required("paymentMethodId")
	}
	return pm, nil
}

// ListMine returns the user's orders, newest first.
func (s *Service) ListMine(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// GetMine returns the user's order with id.
func (s *Service) GetMine(ctx context.Context, userID, id string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil || o.UserID != userID {
		return nil, errs.ErrNotFound
	}
	return o, nil
}

// Track returns the progress of the user's order with id.
func (s *Service) Track(ctx context.Context, userID, id string) (*domain.Tracking, error) {
	o, err := s.GetMine(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &domain.Tracking{OrderID: o.ID, Status: o.Status, TrackingNumber: o.TrackingNumber, UpdatedAt: o.UpdatedAt}, nil
}

// CancelMine cancels the user's order while it is still pending and returns its stock.
func (s *Service) CancelMine(ctx context.Context, userID, id string) (*domain.Order, error) {
	o, err := s.GetMine(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.StatusPending {
		return nil, domain.ErrTransition(o.Status, domain.StatusCancelled)
	}
	return s.UpdateStatus(ctx, userID, id, domain.StatusChange{Status: domain.StatusCancelled})
}

// ListAll returns every order in status, newest first. An empty status lists all orders.
func (s *Service) ListAll(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	if status != "" && !status.Valid() {
		return nil, errs.Invalid("status", "unknown order status")
	}
	return s.orders.List(ctx, status)
}

// UpdateStatus moves an order along its lifecycle on behalf of actor. Cancelling returns the
// order's stock.
func (s *Service) UpdateStatus(ctx context.Context, actor, id string, change domain.StatusChange) (*domain.Order, error) {
	if !change.Status.Valid() {
		return nil, errs.Invalid("status", "unknown order status")
	}
	if change.PaymentStatus != "" && !validPayment(change.PaymentStatus) {
		return nil, errs.Invalid("paymentStatus", "unknown payment status")
	}
	change.TrackingNumber = strings.TrimSpace(change.TrackingNumber)
	o, prev, err := s.orders.UpdateStatus(ctx, id, change, s.now())
	if err != nil {
		return nil, err
	}
	if o.Status == domain.StatusCancelled {
		lines := make([]catalogdomain.StockLine, len(o.Items))
		for i, it := range o.Items {
			lines[i] = catalogdomain.StockLine{ProductID: it.ProductID, Quantity: it.Quantity}
		}
		if err := s.catalog.Release(context.WithoutCancel(ctx), actor, o.ID, lines); err != nil {
			log.Printf("order: return stock of cancelled order %s: %v", o.ID, err)
		}
	}
	s.record(ctx, actor, auditdomain.ActionOrderStatusChanged, telemetrydomain.EventOrderStatus, map[string]any{
		"orderId": o.ID, "from": prev, "to": o.Status,
	})
	return o, nil
}

func validPayment(p domain.PaymentStatus) bool {
	switch p {
	case domain.PaymentPending, domain.PaymentPaid, domain.PaymentFailed, domain.PaymentRefunded:
		return true
	}
	return false
}

// record is best-effort: audit and telemetry failures never fail the write.
func (s *Service) record(ctx context.Context, userID, action, eventType string, meta map[string]any) {
	raw, _ := json.Marshal(meta)
	if s.audit != nil {
		s.audit.LogEvent(context.WithoutCancel(ctx), userID, action, "order", string(raw))
	}
	if s.emitter != nil {
		telemetry.EmitAsync(s.emitter, &telemetrydomain.Event{
			EventType: eventType,
			Source:    "order",
			UserID:    userID,
			Metadata:  raw,
			CreatedAt: s.now(),
		})
	}
}
