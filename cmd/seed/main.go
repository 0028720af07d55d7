// seed inserts sample data for local testing: one account with a user per
// role and 100 audit logs spread over the past two days. Idempotent: skips
// everything if the sample owner already exists.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"audittrail-backend/internal/auth"
	"audittrail-backend/internal/models"
	"audittrail-backend/internal/storage"
)

const (
	sampleDomain     = "sample-store.com"
	sampleOwnerEmail = "owner@" + sampleDomain
)

var sampleActions = []string{
	"user_login", "user_logout", "product_created", "product_updated",
	"order_created", "order_cancelled", "user_created", "user_updated",
	"inventory_updated", "price_changed", "category_created",
}

var sampleResourceTypes = []string{"user", "product", "order", "inventory", "category"}

func main() {
	db, err := sqlx.Connect("postgres", buildDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store := storage.NewStorage(db)
	if err := store.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()

	if _, err := store.GetUserByEmail(ctx, sampleOwnerEmail); err == nil {
		log.Printf("Sample data already present (%s exists), nothing to do", sampleOwnerEmail)
		return
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		log.Fatalf("Failed to check for existing sample data: %v", err)
	}

	account := &models.Account{
		ID:     uuid.New().String(),
		Name:   "Sample Ecommerce Store",
		Domain: sampleDomain,
	}
	owner := sampleUser(account.ID, "owner", "John", "Owner", models.RoleOwner)

	if err := store.CreateAccountWithOwner(ctx, account, owner); err != nil {
		log.Fatalf("Failed to create sample account: %v", err)
	}

	users := []*models.User{owner}
	for _, u := range []struct {
		local, first, last string
		role               models.Role
	}{
		{"admin", "Jane", "Admin", models.RoleAdmin},
		{"analyst", "Bob", "Analyst", models.RoleAnalyst},
		{"creator", "Alice", "Creator", models.RoleContentCreator},
	} {
		user := sampleUser(account.ID, u.local, u.first, u.last, u.role)
		if err := store.CreateUser(ctx, user); err != nil {
			log.Fatalf("Failed to create sample user %s: %v", user.Email, err)
		}
		users = append(users, user)
	}

	now := time.Now().UTC()
	for i := 0; i < 100; i++ {
		user := users[rand.Intn(len(users))]
		action := sampleActions[rand.Intn(len(sampleActions))]

		// Spread entries across the past two days.
		createdAt := now.
			Add(-time.Duration(rand.Intn(48)) * time.Hour).
			Add(-time.Duration(rand.Intn(60)) * time.Minute)

		entry := &models.AuditLog{
			ID:           uuid.New().String(),
			UserID:       &user.ID,
			AccountID:    account.ID,
			Action:       action,
			ResourceType: sampleResourceTypes[rand.Intn(len(sampleResourceTypes))],
			ResourceID:   fmt.Sprintf("%d", rand.Intn(1000)+1),
			Details:      fmt.Sprintf("Sample %s action performed by %s %s", action, user.FirstName, user.LastName),
			IPAddress:    fmt.Sprintf("192.168.1.%d", rand.Intn(255)+1),
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			CreatedAt:    createdAt,
		}
		if err := store.InsertAuditLog(ctx, entry); err != nil {
			log.Fatalf("Failed to insert sample audit log: %v", err)
		}
	}

	log.Printf("Created account %s (%s) with %d users and 100 audit logs", account.Name, account.Domain, len(users))
	for _, user := range users {
		log.Printf("  - %s: %s", user.Role, user.Email)
	}
}

func sampleUser(accountID, local, first, last string, role models.Role) *models.User {
	// Throwaway local credentials, e.g. owner@sample-store.com / owner123!x
	hash, err := auth.HashPassword(local + "123!x")
	if err != nil {
		log.Fatalf("Failed to hash sample password: %v", err)
	}
	return &models.User{
		ID:           uuid.New().String(),
		AccountID:    accountID,
		Email:        local + "@" + sampleDomain,
		PasswordHash: hash,
		FirstName:    first,
		LastName:     last,
		Role:         role,
		IsActive:     true,
	}
}

func buildDSN() string {
	return "host=" + getEnv("DB_HOST", "localhost") +
		" user=" + getEnv("DB_USER", "audit_user") +
		" password=" + getEnv("DB_PASSWORD", "audit_pass") +
		" dbname=" + getEnv("DB_NAME", "audittrail") +
		" sslmode=" + getEnv("DB_SSLMODE", "disable")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
