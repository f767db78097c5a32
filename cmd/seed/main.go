// seed inserts the default currencies and a demo admin into Postgres for local testing.
// Idempotent: currencies are only seeded into an empty table and the admin is skipped when its email exists.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"storefront/backend/internal/config"
	currencyrepo "storefront/backend/internal/currency/repository"
	currencyservice "storefront/backend/internal/currency/service"
	"storefront/backend/internal/db"
	"storefront/backend/internal/security"
	userdomain "storefront/backend/internal/user/domain"
	userrepo "storefront/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("seed: DATABASE_URL is required")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clock := clockwork.NewRealClock()
	n, err := currencyservice.NewService(currencyrepo.NewPostgres(conn), clock, nil).SeedDefaults(ctx)
	if err != nil {
		log.Fatalf("seed: currencies: %v", err)
	}
	log.Printf("seed: %d currencies inserted", n)

	if cfg.SeedAdminPassword == "" {
		log.Println("seed: SEED_ADMIN_PASSWORD not set, skipping admin")
		return
	}
	if err := seedAdmin(ctx, userrepo.NewPostgresRepository(conn), security.NewHasher(cfg.BcryptCost), clock,
		cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		log.Fatalf("seed: admin: %v", err)
	}
}

func seedAdmin(ctx context.Context, users userrepo.Repository, hasher *security.Hasher, clock clockwork.Clock, email, password string) error {
	email = userdomain.NormalizeEmail(email)
	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Printf("seed: admin %s already exists", email)
		return nil
	}
	hash, err := hasher.Hash([]byte(password))
	if err != nil {
		return err
	}
	now := clock.Now().UTC()
	admin := &userdomain.User{
		ID:           uuid.NewString(),
		Name:         "Administrator",
		Email:        email,
		Role:         userdomain.RoleAdmin,
		Status:       userdomain.UserStatusActive,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := admin.Validate(); err != nil {
		return err
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	log.Printf("seed: admin %s created", email)
	return nil
}
