// seed creates the first admin account as approved. Rerunning it is safe: an
// existing admin with the same email is approved if still pending, and an
// existing non-admin account is left untouched with an error.
// Run: SEED_ADMIN_EMAIL=... SEED_ADMIN_PASSWORD=... go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ErlanBelekov/account-service/config"
	"github.com/ErlanBelekov/account-service/internal/domain"
	"github.com/ErlanBelekov/account-service/internal/infrastructure/store"
	"github.com/ErlanBelekov/account-service/internal/password"
	"github.com/ErlanBelekov/account-service/internal/repository"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadSeed()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	users, closeStore, err := store.Open(ctx, store.Options{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		RedisPrefix: cfg.RedisPrefix,
		Migrate:     true,
	})
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer closeStore()

	admin, created, err := seedAdmin(ctx, users, password.NewHasher(cfg.BcryptCost), cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	if created {
		fmt.Printf("created admin %s (%s)\n", admin.Email, admin.ID)
	} else {
		fmt.Printf("admin %s already exists (%s)\n", admin.Email, admin.ID)
	}
}

// seedAdmin is idempotent: an existing admin with the email is returned,
// approved if it was still pending. An existing non-admin is an error.
func seedAdmin(ctx context.Context, users repository.UserRepository, hasher *password.Hasher, name, rawEmail, pw string) (*domain.User, bool, error) {
	if !password.IsStrong(pw) {
		return nil, false, domain.ErrWeakPassword
	}
	addr := domain.NormalizeEmail(rawEmail)

	existing, err := users.FindByEmail(ctx, addr)
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			return nil, false, fmt.Errorf("%s exists and is not an admin", addr)
		}
		if !existing.Approved() {
			existing, err = users.Approve(ctx, existing.ID)
			if err != nil {
				return nil, false, err
			}
		}
		return existing, false, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, false, err
	}

	hash, err := hasher.Hash(pw)
	if err != nil {
		return nil, false, err
	}

	admin, err := users.Create(ctx, &domain.User{
		Name:         name,
		Email:        addr,
		PasswordHash: hash,
		Status:       domain.StatusApproved,
		Role:         domain.RoleAdmin,
	})
	if err != nil {
		return nil, false, err
	}
	return admin, true, nil
}
