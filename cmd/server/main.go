// Command server runs the storefront HTTP API and the gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	grpchealth "google.golang.org/grpc/health"

	"storefront/backend/internal/config"
	"storefront/backend/internal/health"
	identityservice "storefront/backend/internal/identity/service"
	prefservice "storefront/backend/internal/preferences/service"
	"storefront/backend/internal/rbac"
	"storefront/backend/internal/security"
	"storefront/backend/internal/server"
	sessionservice "storefront/backend/internal/session/service"
	"storefront/backend/internal/telemetry"
	telemetryotel "storefront/backend/internal/telemetry/otel"
	"storefront/backend/internal/telemetry/producer"
)

const serviceName = "storefront-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	kafkaProducer := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	emitter := telemetry.Multi(telemetryotel.NewEventEmitter(providers.LoggerProvider), kafkaProducer)

	clock := clockwork.NewRealClock()
	checks := health.NewChecker(2 * time.Second)

	stores, err := openStores(ctx, cfg, checks)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer stores.Close()

	tokens, err := loadTokens(cfg)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	sessions := sessionservice.NewManager(stores.kv, sessionservice.Config{
		Timeout:       cfg.Timeout(),
		CheckInterval: cfg.CheckInterval(),
		Platform:      cfg.DevicePlatform,
		UserAgent:     serviceName,
	},
		sessionservice.WithClock(clock),
		sessionservice.WithEmitter(emitter),
		sessionservice.WithAuditLogger(stores.audit),
		sessionservice.WithMeter(providers.Meter("storefront/session")),
	)
	cancelExpired := sessions.OnExpired(func() {
		log.Printf("session: expired after %s of inactivity", sessions.Timeout())
	})
	defer cancelExpired()
	// A session left by a previous run that has since timed out is cleared before serving.
	if _, err := sessions.IsSessionValid(ctx); err != nil {
		log.Printf("session: startup check: %v", err)
	}

	auth := identityservice.NewAuthService(stores.users, sessions, stores.kv, security.NewHasher(cfg.BcryptCost), tokens,
		identityservice.WithClock(clock),
		identityservice.WithAuditLogger(stores.audit),
		identityservice.WithEmitter(emitter),
	)
	currency := newCurrencyService(stores, clock)
	if _, err := currency.SeedDefaults(ctx); err != nil {
		log.Printf("currency: seed defaults: %v", err)
	}

	var checker rbac.Checker = rbac.Static{}
	if opa, err := rbac.NewOPAChecker(ctx); err != nil {
		log.Printf("rbac: OPA policy unavailable, using static table: %v", err)
	} else {
		checker = opa
		checks.Add("policy", opa.HealthCheck)
	}

	checkout := newCheckoutService(stores, clock, emitter)
	catalog := newCatalogService(stores, clock, emitter)

	router := server.NewRouter(server.Deps{
		Auth:            auth,
		Sessions:        sessions,
		Tokens:          tokens,
		Catalog:         catalog,
		Orders:          newOrderService(stores, catalog, checkout, clock, emitter),
		Checkout:        checkout,
		Currency:        currency,
		Preferences:     prefservice.NewService(stores.kv),
		Users:           stores.users,
		TelemetryEvents: stores.events,
		Checker:         checker,
		AuditLogger:     stores.audit,
		Emitter:         emitter,
		Health:          checks,
		Clock:           clock,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	healthSrv := grpchealth.NewServer()
	grpcSrv := server.NewGRPCServer(emitter, healthSrv)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	go checks.Watch(ctx, clock, healthSrv, "", 15*time.Second)

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Printf("grpc serve: %v", err)
		}
	}()
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	healthSrv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	grpcSrv.GracefulStop()

	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := kafkaProducer.Close(); err != nil {
		log.Printf("kafka producer close: %v", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("server stopped")
}

// loadTokens builds the token provider from the configured key pair. Outside production a missing
// pair falls back to an ephemeral key, so tokens do not survive a restart.
func loadTokens(cfg *config.Config) (*security.TokenProvider, error) {
	if cfg.JWTPrivateKey == "" || cfg.JWTPublicKey == "" {
		log.Println("tokens: JWT keys not set, using an ephemeral key pair")
		return security.NewEphemeralTokenProvider(cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	}
	priv, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		return nil, err
	}
	return security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL()), nil
}
