package models

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Role is the closed set of roles a user can hold within an account.
type Role string

const (
	RoleOwner          Role = "owner"
	RoleAdmin          Role = "admin"
	RoleAnalyst        Role = "analyst"
	RoleContentCreator Role = "content_creator"
)

var roles = map[Role]bool{
	RoleOwner:          true,
	RoleAdmin:          true,
	RoleAnalyst:        true,
	RoleContentCreator: true,
}

// ParseRole validates a role string against the closed enum.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !roles[r] {
		return "", &ValidationError{Field: "role", Message: fmt.Sprintf("invalid role %q", s)}
	}
	return r, nil
}

type Account struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Domain    string    `db:"domain" json:"domain"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type User struct {
	ID           string    `db:"id" json:"id"`
	AccountID    string    `db:"account_id" json:"account_id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Role         Role      `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserSummary is the subset of user fields exposed alongside audit log
// entries and in auth responses.
type UserSummary struct {
	ID        string `db:"id" json:"id"`
	Email     string `db:"email" json:"email"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Role      Role   `db:"role" json:"role"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

// AuditLog is one immutable record of an action taken within an account.
// UserID is nil for system-generated entries.
type AuditLog struct {
	ID           string    `db:"id" json:"id"`
	UserID       *string   `db:"user_id" json:"user_id"`
	AccountID    string    `db:"account_id" json:"account_id"`
	Action       string    `db:"action" json:"action"`
	ResourceType string    `db:"resource_type" json:"resource_type"`
	ResourceID   string    `db:"resource_id" json:"resource_id"`
	Details      string    `db:"details" json:"details"`
	IPAddress    string    `db:"ip_address" json:"ip_address"`
	UserAgent    string    `db:"user_agent" json:"user_agent"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AuditLogEntry is an audit log row with its acting user resolved, as returned
// by the query engine. User is nil for system-generated entries or when the
// user row no longer resolves.
type AuditLogEntry struct {
	AuditLog
	User *UserSummary `json:"user"`
}

// ValidationError reports malformed input at the field level.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IsValidation reports whether err is (or wraps) a field validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NormalizeEmail lowercases an address. Email uniqueness is global and
// case-insensitive, so every lookup and insert goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that the address is well-formed.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Message: "malformed email address"}
	}
	return nil
}

const minPasswordLength = 8

// ValidatePassword enforces the minimum-strength policy.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("must be at least %d characters", minPasswordLength),
		}
	}
	return nil
}
