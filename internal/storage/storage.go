package storage

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"audittrail-backend/internal/models"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrDomainTaken     = errors.New("account domain already taken")
	ErrEmailTaken      = errors.New("email already taken")
)

// Store is the persistence contract shared by the Postgres and in-memory
// implementations. Audit logs are append-only: there is deliberately no way
// to update or delete one.
type Store interface {
	CreateAccountWithOwner(ctx context.Context, account *models.Account, owner *models.User) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, accountID string) ([]models.User, error)

	InsertAuditLog(ctx context.Context, entry *models.AuditLog) error
	SearchAuditLogs(ctx context.Context, accountID string, filter models.AuditLogFilter, page models.Page) ([]models.AuditLogEntry, int, error)

	Ping(ctx context.Context) error
}

// Storage is the Postgres-backed Store.
type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
