package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	auditdomain "storefront/backend/internal/audit/domain"
	catalogdomain "storefront/backend/internal/catalog/domain"
	catalogrepo "storefront/backend/internal/catalog/repository"
	catalogservice "storefront/backend/internal/catalog/service"
	checkoutdomain "storefront/backend/internal/checkout/domain"
	checkoutrepo "storefront/backend/internal/checkout/repository"
	checkoutservice "storefront/backend/internal/checkout/service"
	"storefront/backend/internal/kvstore"
	"storefront/backend/internal/order/domain"
	"storefront/backend/internal/order/repository"
	"storefront/backend/internal/platform/errs"
	telemetrydomain "storefront/backend/internal/telemetry/domain"
)

type fakeAudit struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakeAudit) LogEvent(_ context.Context, userID, action, resource, metadata string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
}

func (f *fakeAudit) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...)
}

type chanEmitter chan *telemetrydomain.Event

func (c chanEmitter) Emit(_ context.Context, e *telemetrydomain.Event) error {
	c <- e
	return nil
}

// failingOrders refuses every Create.
type failingOrders struct {
	repository.OrderRepository
}

func (failingOrders) Create(context.Context, *domain.Order) error {
	return errors.New("disk full")
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	catalog  *catalogservice.Service
	checkout *checkoutservice.Service
	audit    *fakeAudit
	events   chanEmitter
	chechia  *catalogdomain.Product
	kilim    *catalogdomain.Product
}

func newFixture(t *testing.T, orders repository.OrderRepository) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(t0)
	f := &fixture{audit: &fakeAudit{}, events: make(chanEmitter, 32)}
	f.catalog = catalogservice.NewService(catalogrepo.NewMemoryProductRepository(), catalogservice.WithClock(clock))
	f.checkout = checkoutservice.NewService(checkoutrepo.NewMemoryAddressRepository(), checkoutrepo.NewMemoryPaymentMethodRepository(),
		checkoutservice.WithClock(clock))
	if orders == nil {
		orders = repository.NewMemoryOrderRepository()
	}
	f.svc = NewService(orders, repository.NewKVCartRepository(kvstore.NewMemory()), f.catalog, f.checkout,
		WithClock(clock), WithAuditLogger(f.audit), WithEmitter(f.events))

	var err error
	f.chechia, err = f.catalog.Create(ctx, catalogdomain.Product{Name: "Chechia", CategoryID: "hats", Currency: "TND", Price: 45, StockQuantity: 5, IsActive: true})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	f.kilim, err = f.catalog.Create(ctx, catalogdomain.Product{Name: "Kilim", CategoryID: "rugs", Currency: "TND", Price: 120, StockQuantity: 2, IsActive: true})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return f
}

// withDefaults gives userID a default shipping address and payment method.
func (f *fixture) withDefaults(t *testing.T, userID string) (*checkoutdomain.Address, *checkoutdomain.PaymentMethod) {
	t.Helper()
	ctx := context.Background()
	a, err := f.checkout.AddAddress(ctx, userID, checkoutdomain.Address{
		Type: checkoutdomain.AddressBoth, IsDefault: true, FullName: "Amira Ben Salah", AddressLine1: "12 Rue de Marseille",
		City: "Tunis", State: "Tunis", PostalCode: "1000", Country: "TN", Phone: "+21612345678",
	})
	if err != nil {
		t.Fatalf("AddAddress: %v", err)
	}
	pm, err := f.checkout.AddPaymentMethod(ctx, userID, checkoutdomain.PaymentMethod{
		Type: checkoutdomain.PaymentCard, IsDefault: true, CardholderName: "Amira Ben Salah", CardLast4: "4242",
		CardBrand: "visa", ExpiryMonth: 12, ExpiryYear: 2030,
	})
	if err != nil {
		t.Fatalf("AddPaymentMethod: %v", err)
	}
	return a, pm
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.catalog.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	return p.StockQuantity
}

func TestAddToCart_Accumulates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.svc.AddToCart(ctx, "u1", f.chechia.ID, 2); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	c, err := f.svc.AddToCart(ctx, "u1", f.chechia.ID, 1)
	if err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if c.Quantity(f.chechia.ID) != 3 || !c.UpdatedAt.Equal(t0) {
		t.Errorf("cart = %+v", c)
	}
	other, _ := f.svc.Cart(ctx, "u2")
	if len(other.Items) != 0 {
		t.Errorf("u2 cart = %+v, want empty", other.Items)
	}
}

func TestAddToCart_Rejects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.svc.AddToCart(ctx, "u1", f.chechia.ID, 0); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("zero quantity = %v, want ErrValidation", err)
	}
	if _, err := f.svc.AddToCart(ctx, "u1", "PRD-missing", 1); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("missing product = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.AddToCart(ctx, "u1", f.kilim.ID, 3); !errors.Is(err, catalogdomain.ErrInsufficientStock) {
		t.Errorf("over stock = %v, want ErrInsufficientStock", err)
	}
	c, _ := f.svc.Cart(ctx, "u1")
	if len(c.Items) != 0 {
		t.Errorf("rejected adds left %+v in the cart", c.Items)
	}
}

func TestSetCartQuantity(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, _ = f.svc.AddToCart(ctx, "u1", f.chechia.ID, 1)
	_, _ = f.svc.AddToCart(ctx, "u1", f.kilim.ID, 1)

	c, err := f.svc.SetCartQuantity(ctx, "u1", f.chechia.ID, 4)
	if err != nil || c.Quantity(f.chechia.ID) != 4 {
		t.Fatalf("SetCartQuantity = %+v, %v", c, err)
	}
	c, err = f.svc.SetCartQuantity(ctx, "u1", f.kilim.ID, 0)
	if err != nil || len(c.Items) != 1 {
		t.Errorf("remove line = %+v, %v", c, err)
	}
	if _, err := f.svc.SetCartQuantity(ctx, "u1", f.chechia.ID, -1); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("negative quantity = %v, want ErrValidation", err)
	}
	if err := f.svc.ClearCart(ctx, "u1"); err != nil {
		t.Fatalf("ClearCart: %v", err)
	}
	c, _ = f.svc.Cart(ctx, "u1")
	if len(c.Items) != 0 {
		t.Errorf("cleared cart = %+v", c.Items)
	}
}

func TestPlaceOrder_UsesDefaultsAndReservesStock(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	addr, pm := f.withDefaults(t, "u1")
	_, _ = f.svc.AddToCart(ctx, "u1", f.chechia.ID, 2)
	_, _ = f.svc.AddToCart(ctx, "u1", f.kilim.ID, 1)

	o, err := f.svc.PlaceOrder(ctx, "u1", PlaceOrderInput{Notes: "  leave at door "})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !strings.HasPrefix(o.ID, "ORD-") {
		t.Errorf("ID = %q, want ORD- prefix", o.ID)
	}
	wantTotal := 2*45.0 + 120 + 5.99
	if math.Abs(o.TotalAmount-wantTotal) > 1e-9 || o.Currency != "TND" || o.DeliveryMethod != DefaultDeliveryMethod {
		t.Errorf("total = %v %s via %s, want %v TND via standard", o.TotalAmount, o.Currency, o.DeliveryMethod, wantTotal)
	}
	if o.Status != domain.StatusPending || o.PaymentStatus != domain.PaymentPending || o.PaymentMethodID != pm.ID {
		t.Errorf("order = %+v", o)
	}
	if o.ShippingAddress != addr.OneLine() || o.BillingAddress != addr.OneLine() || o.Notes != "leave at door" {
		t.Errorf("addresses = %q / %q, notes %q", o.ShippingAddress, o.BillingAddress, o.Notes)
	}
	if o.Items[0].PriceAtPurchase != 45 || o.Items[0].ProductName != "Chechia" {
		t.Errorf("items = %+v", o.Items)
	}
	if got := f.stock(t, f.chechia.ID); got != 3 {
		t.Errorf("chechia stock = %d, want 3", got)
	}
	if got := f.stock(t, f.kilim.ID); got != 1 {
		t.Errorf("kilim stock = %d, want 1", got)
	}
	c, _ := f.svc.Cart(ctx, "u1")
	if len(c.Items) != 0 {
		t.Errorf("cart after order = %+v, want empty", c.Items)
	}
	if got := f.audit.all(); len(got) != 1 || got[0] != auditdomain.ActionOrderPlaced {
		t.Errorf("audit = %v", got)
	}
	select {
	case e := <-f.events:
		if e.EventType != telemetrydomain.EventOrderPlaced || e.UserID != "u1" {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Error("no order event emitted")
	}
}

func TestPlaceOrder_Rejects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.PlaceOrder(ctx, "u1", PlaceOrderInput{}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("empty cart = %v, want ErrValidation", err)
	}
	_, _ = f.svc.AddToCart(ctx, "u1", f.chechia.ID, 1)

	var verr *errs.ValidationError
	if _, err := f.svc.PlaceOrder(ctx, "u1", PlaceOrderInput{}); !errors.As(err, &verr) || verr.Field != "shippingAddressId" {
		t.Errorf("no address = %v, want validation error on shippingAddressId", err)
	}
	f.withDefaults(t, "u1")
	if _, err := f.svc.PlaceOrder(ctx, "u1", PlaceOrderInput{DeliveryMethod: "drone"}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("unknown delivery = %v, want ErrValidation", err)
	}
	if _, err := f.svc.PlaceOrder(ctx, "u1", PlaceOrderInput{PaymentMethodID: "PM-other"}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("foreign payment method = %v, want ErrNotFound", err)
	}

	euro, _ := f.catalog.Create(ctx, catalogdomain.Product{Name: "Print", CategoryID: "art", Currency: "EUR", Price: 10, StockQuantity: 3, IsActive: true})
	_, _ = f.svc.AddToCart(ctx, "u1", euro.ID, 1)
	if _, err := f.svc.PlaceOrder(ctx, "u1", PlaceOrderInput{}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("mixed currencies = %v, want ErrValidation", err)
	}
	if got := f.stock(t, f.chechia.ID); got != 5 {
		t.Errorf("stock after rejected orders = %d, want 5", got)
	}
}

func TestPlaceOrder_OutOfStockReservesNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.withDefaults(t, "u1")
	_, _ = f.svc.AddToCart(ctx, "u1", f.chechia.ID, 2)
	_, _ = f.svc.AddToCart(ctx, "u1", f.kilim.ID, 2)
	// Someone else buys the last kilim after it went into the cart.
	if _, err := f.catalog.AdjustStock(ctx, "staff", f.kilim.ID, -1, "sold in store"); err != nil {
		t.Fatalf("AdjustStock: %v", err)
	}

	if _, err := f.svc.PlaceOrder(ctx, "u1", PlaceOrderInput{}); !errors.Is(err, catalogdomain.ErrInsufficientStock) {
		t.Fatalf("PlaceOrder = %v, want ErrInsufficientStock", err)
	}
	if got := f.stock(t, f.chechia.ID); got != 5 {
		t.Errorf("chechia stock = %d, want 5 after rollback", got)
	}
	c, _ := f.svc.Cart(ctx, "u1")
	if len(c.Items) != 2 {
		t.Errorf("cart = %+v, want it kept", c.Items)
	}
	orders, _ := f.svc.ListMine(ctx, "u1")
	if len(orders) != 0 {
		t.Errorf("orders = %d, want 0", len(orders))
	}
}

func TestPlaceOrder_SaveFailureReleasesStock(t *testing.T) {
	f := newFixture(t, failingOrders{repository.NewMemoryOrderRepository()})
	ctx := context.Background()
	f.withDefaults(t, "u1")
	_, _ = f.svc.AddToCart(ctx, "u1", f.chechia.ID, 2)

	if _, err := f.svc.PlaceOrder(ctx, "u1", PlaceOrderInput{}); err == nil {
		t.Fatal("PlaceOrder succeeded with a failing store")
	}
	if got := f.stock(t, f.chechia.ID); got != 5 {
		t.Errorf("stock = %d, want 5 after release", got)
	}
}

func TestGetMine_HidesOtherUsersOrders(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.withDefaults(t, "u1")
	_, _ = f.svc.AddToCart(ctx, "u1", f.chechia.ID, 1)
	o, err := f.svc.PlaceOrder(ctx, "u1", PlaceOrderInput{DeliveryMethod: "pickup"})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if o.TotalAmount != 45 {
		t.Errorf("pickup total = %v, want 45", o.TotalAmount)
	}
	if _, err := f.svc.GetMine(ctx, "u2", o.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("GetMine by u2 = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.Track(ctx, "u2", o.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Track by u2 = %v, want ErrNotFound", err)
	}
	tr, err := f.svc.Track(ctx, "u1", o.ID)
	if err != nil || tr.Status != domain.StatusPending || tr.OrderID != o.ID {
		t.Errorf("Track = %+v, %v", tr, err)
	}
}

func TestCancelMine_ReleasesStockOnlyWhilePending(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.withDefaults(t, "u1")
	_, _ = f.svc.AddToCart(ctx, "u1", f.chechia.ID, 2)
	first, _ := f.svc.PlaceOrder(ctx, "u1", PlaceOrderInput{})
	_, _ = f.svc.AddToCart(ctx, "u1", f.chechia.ID, 1)
	second, _ := f.svc.PlaceOrder(ctx, "u1", PlaceOrderInput{})

	o, err := f.svc.CancelMine(ctx, "u1", first.ID)
	if err != nil || o.Status != domain.StatusCancelled {
		t.Fatalf("CancelMine = %+v, %v", o, err)
	}
	if got := f.stock(t, f.chechia.ID); got != 4 {
		t.Errorf("stock = %d, want 4", got)
	}

	if _, err := f.svc.UpdateStatus(ctx, "staff", second.ID, domain.StatusChange{Status: domain.StatusProcessing}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if _, err := f.svc.CancelMine(ctx, "u1", second.ID); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("cancel processing order = %v, want ErrConflict", err)
	}
	if _, err := f.svc.CancelMine(ctx, "u2", second.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("cancel by u2 = %v, want ErrNotFound", err)
	}
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.withDefaults(t, "u1")
	_, _ = f.svc.AddToCart(ctx, "u1", f.kilim.ID, 2)
	o, _ := f.svc.PlaceOrder(ctx, "u1", PlaceOrderInput{})

	if _, err := f.svc.UpdateStatus(ctx, "staff", o.ID, domain.StatusChange{Status: "lost"}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("unknown status = %v, want ErrValidation", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, "staff", o.ID, domain.StatusChange{Status: domain.StatusProcessing, PaymentStatus: "maybe"}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("unknown payment status = %v, want ErrValidation", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, "staff", o.ID, domain.StatusChange{Status: domain.StatusDelivered}); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("pending to delivered = %v, want ErrConflict", err)
	}
	steps := []domain.StatusChange{
		{Status: domain.StatusProcessing, PaymentStatus: domain.PaymentPaid},
		{Status: domain.StatusShipped, TrackingNumber: " TN-0042 "},
		{Status: domain.StatusDelivered},
	}
	for _, step := range steps {
		if o, err := f.svc.UpdateStatus(ctx, "staff", o.ID, step); err != nil || o.Status != step.Status {
			t.Fatalf("UpdateStatus(%s) = %+v, %v", step.Status, o, err)
		}
	}
	tr, _ := f.svc.Track(ctx, "u1", o.ID)
	if tr.TrackingNumber != "TN-0042" || tr.Status != domain.StatusDelivered {
		t.Errorf("Track = %+v", tr)
	}
	if got := f.stock(t, f.kilim.ID); got != 0 {
		t.Errorf("stock after delivery = %d, want 0", got)
	}

	delivered, _ := f.svc.ListAll(ctx, domain.StatusDelivered)
	if len(delivered) != 1 {
		t.Errorf("ListAll(delivered) = %d orders, want 1", len(delivered))
	}
	if _, err := f.svc.ListAll(ctx, "lost"); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("ListAll(lost) = %v, want ErrValidation", err)
	}
	changes := 0
	for _, a := range f.audit.all() {
		if a == auditdomain.ActionOrderStatusChanged {
			changes++
		}
	}
	if changes != 3 {
		t.Errorf("status audit entries = %d, want 3", changes)
	}
}
