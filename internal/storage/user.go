package storage

import (
	"context"
	"database/sql"

	"audittrail-backend/internal/models"
)

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, account_id, email, password_hash, first_name, last_name, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		user.ID, user.AccountID, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.Role, user.IsActive,
	).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}

	return nil
}

func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, account_id, email, password_hash, first_name, last_name, role, is_active, created_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := s.db.GetContext(ctx, &user, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, account_id, email, password_hash, first_name, last_name, role, is_active, created_at
		FROM users
		WHERE email = $1
	`

	var user models.User
	err := s.db.GetContext(ctx, &user, query, models.NormalizeEmail(email))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *Storage) ListUsers(ctx context.Context, accountID string) ([]models.User, error) {
	query := `
		SELECT id, account_id, email, password_hash, first_name, last_name, role, is_active, created_at
		FROM users
		WHERE account_id = $1
		ORDER BY created_at ASC, id ASC
	`

	users := make([]models.User, 0)
	if err := s.db.SelectContext(ctx, &users, query, accountID); err != nil {
		return nil, err
	}
	return users, nil
}
