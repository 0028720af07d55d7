package storage

import (
	"context"
	"database/sql"

	"audittrail-backend/internal/models"
)

// CreateAccountWithOwner inserts the account and its owner user in one
// transaction so both commit or neither does. Uniqueness races on domain and
// email are settled by the database constraints, not by pre-checks.
func (s *Storage) CreateAccountWithOwner(ctx context.Context, account *models.Account, owner *models.User) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO accounts (id, name, domain)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	if err := tx.QueryRowContext(ctx, query, account.ID, account.Name, account.Domain).
		Scan(&account.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDomainTaken
		}
		return err
	}

	query = `
		INSERT INTO users (id, account_id, email, password_hash, first_name, last_name, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	if err := tx.QueryRowContext(ctx, query,
		owner.ID, account.ID, owner.Email, owner.PasswordHash,
		owner.FirstName, owner.LastName, owner.Role, owner.IsActive,
	).Scan(&owner.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}

	return tx.Commit()
}

func (s *Storage) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	query := `
		SELECT id, name, domain, created_at
		FROM accounts
		WHERE id = $1
	`

	var account models.Account
	err := s.db.GetContext(ctx, &account, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return &account, nil
}
