package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"audittrail-backend/internal/models"
)

// MemoryStore is an in-memory Store for tests and single-process development.
// One mutex guards all maps, so uniqueness check-and-insert is atomic the same
// way the database constraints make it atomic in Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	domains  map[string]string
	users    map[string]models.User
	emails   map[string]string
	logs     []models.AuditLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]models.Account),
		domains:  make(map[string]string),
		users:    make(map[string]models.User),
		emails:   make(map[string]string),
	}
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) CreateAccountWithOwner(_ context.Context, account *models.Account, owner *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.domains[account.Domain]; taken {
		return ErrDomainTaken
	}
	if _, taken := s.emails[owner.Email]; taken {
		return ErrEmailTaken
	}

	account.CreatedAt = time.Now().UTC()
	owner.CreatedAt = account.CreatedAt
	owner.AccountID = account.ID

	s.accounts[account.ID] = *account
	s.domains[account.Domain] = account.ID
	s.users[owner.ID] = *owner
	s.emails[owner.Email] = owner.ID
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if account, ok := s.accounts[id]; ok {
		return &account, nil
	}
	return nil, ErrAccountNotFound
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[user.Email]; taken {
		return ErrEmailTaken
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = *user
	s.emails[user.Email] = user.ID
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, ok := s.users[id]; ok {
		return &user, nil
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.emails[models.NormalizeEmail(email)]; ok {
		user := s.users[id]
		return &user, nil
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) ListUsers(_ context.Context, accountID string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0)
	for _, user := range s.users {
		if user.AccountID == accountID {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *MemoryStore) InsertAuditLog(_ context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *MemoryStore) SearchAuditLogs(_ context.Context, accountID string, filter models.AuditLogFilter, page models.Page) ([]models.AuditLogEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.AuditLog, 0)
	for i := range s.logs {
		l := s.logs[i]
		if l.AccountID != accountID {
			continue
		}
		if !filter.Matches(&l) {
			continue
		}
		matched = append(matched, l)
	}

	// Newest first, ties by id descending, matching the SQL ordering.
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.PerPage
	if end > total {
		end = total
	}

	entries := make([]models.AuditLogEntry, 0, end-start)
	for _, l := range matched[start:end] {
		entry := models.AuditLogEntry{AuditLog: l}
		if l.UserID != nil {
			if user, ok := s.users[*l.UserID]; ok {
				summary := user.Summary()
				entry.User = &summary
			}
		}
		entries = append(entries, entry)
	}

	return entries, total, nil
}
