package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"storefront/backend/internal/audit"
	auditrepo "storefront/backend/internal/audit/repository"
	catalogrepo "storefront/backend/internal/catalog/repository"
	catalogservice "storefront/backend/internal/catalog/service"
	checkoutrepo "storefront/backend/internal/checkout/repository"
	checkoutservice "storefront/backend/internal/checkout/service"
	"storefront/backend/internal/config"
	currencyrepo "storefront/backend/internal/currency/repository"
	currencyservice "storefront/backend/internal/currency/service"
	"storefront/backend/internal/db"
	"storefront/backend/internal/health"
	"storefront/backend/internal/kvstore"
	orderrepo "storefront/backend/internal/order/repository"
	orderservice "storefront/backend/internal/order/service"
	"storefront/backend/internal/telemetry"
	telemetryrepo "storefront/backend/internal/telemetry/repository"
	userrepo "storefront/backend/internal/user/repository"
)

// stores bundles the storage the server runs on. db and rdb are nil when no backend needs them.
type stores struct {
	db  *sql.DB
	rdb *redis.Client

	kv        *kvstore.Store
	users     userrepo.Repository
	addresses checkoutrepo.AddressRepository
	payments  checkoutrepo.PaymentMethodRepository
	products  catalogrepo.ProductRepository
	orders    orderrepo.OrderRepository
	currency  currencyrepo.Repository
	audit     *audit.Logger
	events    telemetryrepo.Repository
}

// openStores connects the configured backends and registers a readiness check for each connection.
func openStores(ctx context.Context, cfg *config.Config, checks *health.Checker) (*stores, error) {
	s := &stores{}
	if cfg.StorageBackend == config.BackendPostgres || cfg.RecordBackend == config.BackendPostgres {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		s.db = conn
		checks.Add("postgres", health.PingCheck(conn))
	}

	switch cfg.StorageBackend {
	case config.BackendRedis:
		rdb, err := kvstore.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		s.rdb = rdb
		checks.Add("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		s.kv = kvstore.New(kvstore.NewRedisBackend(rdb, cfg.StorageNamespace))
	case config.BackendPostgres:
		s.kv = kvstore.New(kvstore.NewPostgresBackend(s.db, cfg.StorageNamespace))
	default:
		log.Println("storage: using in-memory key-value store; session state is lost on restart")
		s.kv = kvstore.New(kvstore.NewMemoryBackend())
	}

	var auditRepo auditrepo.Repository
	if cfg.RecordBackend == config.BackendPostgres {
		s.users = userrepo.NewPostgresRepository(s.db)
		s.addresses = checkoutrepo.NewPostgresAddressRepository(s.db)
		s.payments = checkoutrepo.NewPostgresPaymentMethodRepository(s.db)
		s.products = catalogrepo.NewPostgresProductRepository(s.db)
		s.orders = orderrepo.NewPostgresOrderRepository(s.db)
		s.currency = currencyrepo.NewPostgres(s.db)
		auditRepo = auditrepo.NewPostgresRepository(s.db)
		s.events = telemetryrepo.NewPostgresRepository(s.db)
	} else {
		log.Println("records: using in-memory repositories")
		s.users = userrepo.NewMemoryRepository()
		s.addresses = checkoutrepo.NewMemoryAddressRepository()
		s.payments = checkoutrepo.NewMemoryPaymentMethodRepository()
		s.products = catalogrepo.NewMemoryProductRepository()
		s.orders = orderrepo.NewMemoryOrderRepository()
		s.currency = currencyrepo.NewMemory()
		auditRepo = auditrepo.NewMemoryRepository()
	}
	s.audit = audit.NewLogger(auditRepo, nil)
	return s, nil
}

func (s *stores) Close() {
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			log.Printf("redis close: %v", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("postgres close: %v", err)
		}
	}
}

func newCurrencyService(s *stores, clock clockwork.Clock) *currencyservice.Service {
	return currencyservice.NewService(s.currency, clock, s.audit)
}

func newCheckoutService(s *stores, clock clockwork.Clock, emitter telemetry.EventEmitter) *checkoutservice.Service {
	return checkoutservice.NewService(s.addresses, s.payments,
		checkoutservice.WithClock(clock),
		checkoutservice.WithAuditLogger(s.audit),
		checkoutservice.WithEmitter(emitter),
	)
}

func newCatalogService(s *stores, clock clockwork.Clock, emitter telemetry.EventEmitter) *catalogservice.Service {
	return catalogservice.NewService(s.products,
		catalogservice.WithClock(clock),
		catalogservice.WithAuditLogger(s.audit),
		catalogservice.WithEmitter(emitter),
	)
}

// newOrderService keeps carts in the key-value store next to session state.
func newOrderService(s *stores, catalog *catalogservice.Service, checkout *checkoutservice.Service, clock clockwork.Clock, emitter telemetry.EventEmitter) *orderservice.Service {
	return orderservice.NewService(s.orders, orderrepo.NewKVCartRepository(s.kv), catalog, checkout,
		orderservice.WithClock(clock),
		orderservice.WithAuditLogger(s.audit),
		orderservice.WithEmitter(emitter),
	)
}
