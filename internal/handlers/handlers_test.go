package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"audittrail-backend/internal/audit"
	"audittrail-backend/internal/auth"
	"audittrail-backend/internal/models"
	"audittrail-backend/internal/policy"
	"audittrail-backend/internal/storage"
)

type APISuite struct {
	suite.Suite
	store    *storage.MemoryStore
	sessions *auth.MemorySessionStore
	recorder *audit.Recorder
	router   chi.Router

	ownerToken   string
	ownerID      string
	accountID    string
	analystToken string
	creatorToken string
}

func (s *APISuite) SetupTest() {
	s.store = storage.NewMemoryStore()
	s.sessions = auth.NewMemorySessionStore()
	s.recorder = audit.NewRecorder(s.store)
	s.recorder.Start()

	h := New(s.store, s.recorder, policy.Default)
	ah := auth.NewHandler(s.store, s.sessions, s.recorder, time.Hour)

	s.router = chi.NewRouter()
	h.RegisterRoutes(s.router, ah, s.sessions)

	resp := s.request(http.MethodPost, "/api/accounts", "", map[string]any{
		"name":             "Alpha Store",
		"domain":           "alpha.test",
		"owner_email":      "owner@alpha.test",
		"owner_password":   "ownerpass1",
		"owner_first_name": "Olive",
		"owner_last_name":  "Owner",
	})
	require.Equal(s.T(), http.StatusCreated, resp.Code)

	var created struct {
		Account models.Account `json:"account"`
		Owner   struct {
			ID string `json:"id"`
		} `json:"owner"`
	}
	require.NoError(s.T(), json.Unmarshal(resp.Body.Bytes(), &created))
	s.accountID = created.Account.ID
	s.ownerID = created.Owner.ID

	s.ownerToken = s.login("owner@alpha.test", "ownerpass1")
	s.analystToken = s.addMember("analyst@alpha.test", models.RoleAnalyst)
	s.creatorToken = s.addMember("creator@alpha.test", models.RoleContentCreator)
}

func (s *APISuite) TearDownTest() {
	s.recorder.Stop()
}

func (s *APISuite) request(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APISuite) login(email, password string) string {
	resp := s.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(s.T(), http.StatusOK, resp.Code)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(s.T(), json.Unmarshal(resp.Body.Bytes(), &out))
	return out.Token
}

func (s *APISuite) addMember(email string, role models.Role) string {
	resp := s.request(http.MethodPost, "/api/users", s.ownerToken, map[string]string{
		"email":      email,
		"password":   "memberpass1",
		"first_name": "Member",
		"last_name":  "User",
		"role":       string(role),
	})
	require.Equal(s.T(), http.StatusCreated, resp.Code)
	return s.login(email, "memberpass1")
}

// seedLogs inserts n entries directly, oldest first, spaced a minute apart
// ending at base.
func (s *APISuite) seedLogs(n int, base time.Time) {
	for i := 0; i < n; i++ {
		entry := &models.AuditLog{
			ID:           fmt.Sprintf("seed-%04d", i),
			UserID:       &s.ownerID,
			AccountID:    s.accountID,
			Action:       "order_created",
			ResourceType: "order",
			CreatedAt:    base.Add(-time.Duration(n-1-i) * time.Minute),
		}
		require.NoError(s.T(), s.store.InsertAuditLog(context.Background(), entry))
	}
}

type searchResponse struct {
	AuditLogs  []models.AuditLogEntry `json:"audit_logs"`
	Pagination models.Pagination      `json:"pagination"`
}

func (s *APISuite) search(token, query string) searchResponse {
	resp := s.request(http.MethodGet, "/api/audit-logs"+query, token, nil)
	require.Equal(s.T(), http.StatusOK, resp.Code)
	var out searchResponse
	require.NoError(s.T(), json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func (s *APISuite) TestIndexAndHealth() {
	resp := s.request(http.MethodGet, "/", "", nil)
	assert.Equal(s.T(), http.StatusOK, resp.Code)

	resp = s.request(http.MethodGet, "/healthz", "", nil)
	assert.Equal(s.T(), http.StatusOK, resp.Code)
}

func (s *APISuite) TestCreateAccountValidation() {
	resp := s.request(http.MethodPost, "/api/accounts", "", map[string]any{
		"name":             "Beta",
		"domain":           "beta.test",
		"owner_email":      "not-an-email",
		"owner_password":   "longenough1",
		"owner_first_name": "B",
		"owner_last_name":  "B",
	})
	assert.Equal(s.T(), http.StatusBadRequest, resp.Code)

	resp = s.request(http.MethodPost, "/api/accounts", "", map[string]any{
		"name":             "Beta",
		"domain":           "beta.test",
		"owner_email":      "owner@beta.test",
		"owner_password":   "short",
		"owner_first_name": "B",
		"owner_last_name":  "B",
	})
	assert.Equal(s.T(), http.StatusBadRequest, resp.Code)

	resp = s.request(http.MethodPost, "/api/accounts", "", map[string]any{
		"name": "Beta",
	})
	assert.Equal(s.T(), http.StatusBadRequest, resp.Code)
}

func (s *APISuite) TestMissingFieldsReportedInDeclaredOrder() {
	var out struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	// With every field absent, the first declared one is the one named.
	resp := s.request(http.MethodPost, "/api/accounts", "", map[string]any{})
	require.Equal(s.T(), http.StatusBadRequest, resp.Code)
	require.NoError(s.T(), json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(s.T(), "name: required", out.Error.Message)

	resp = s.request(http.MethodPost, "/api/users", s.ownerToken, map[string]any{})
	require.Equal(s.T(), http.StatusBadRequest, resp.Code)
	require.NoError(s.T(), json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(s.T(), "email: required", out.Error.Message)
}

func (s *APISuite) TestCreateAccountDuplicateDomain() {
	resp := s.request(http.MethodPost, "/api/accounts", "", map[string]any{
		"name":             "Alpha Again",
		"domain":           "alpha.test",
		"owner_email":      "second@alpha.test",
		"owner_password":   "ownerpass1",
		"owner_first_name": "Second",
		"owner_last_name":  "Owner",
	})
	assert.Equal(s.T(), http.StatusConflict, resp.Code)

	var out struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	require.NoError(s.T(), json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(s.T(), "conflict", out.Error.Kind)
}

func (s *APISuite) TestGetAccount() {
	resp := s.request(http.MethodGet, "/api/accounts/"+s.accountID, s.ownerToken, nil)
	require.Equal(s.T(), http.StatusOK, resp.Code)

	var out struct {
		Account models.Account `json:"account"`
	}
	require.NoError(s.T(), json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(s.T(), "alpha.test", out.Account.Domain)

	// Every role may read its own account.
	resp = s.request(http.MethodGet, "/api/accounts/"+s.accountID, s.creatorToken, nil)
	assert.Equal(s.T(), http.StatusOK, resp.Code)
}

func (s *APISuite) TestGetAccountCrossTenantReadsNotFound() {
	resp := s.request(http.MethodPost, "/api/accounts", "", map[string]any{
		"name":             "Beta Store",
		"domain":           "beta.test",
		"owner_email":      "owner@beta.test",
		"owner_password":   "ownerpass1",
		"owner_first_name": "Bea",
		"owner_last_name":  "Owner",
	})
	require.Equal(s.T(), http.StatusCreated, resp.Code)
	var created struct {
		Account models.Account `json:"account"`
	}
	require.NoError(s.T(), json.Unmarshal(resp.Body.Bytes(), &created))

	resp = s.request(http.MethodGet, "/api/accounts/"+created.Account.ID, s.ownerToken, nil)
	assert.Equal(s.T(), http.StatusNotFound, resp.Code)
}

func (s *APISuite) TestAuthRequired() {
	for _, path := range []string{"/api/users", "/api/audit-logs", "/api/accounts/" + s.accountID} {
		resp := s.request(http.MethodGet, path, "", nil)
		assert.Equal(s.T(), http.StatusUnauthorized, resp.Code, path)
	}

	resp := s.request(http.MethodGet, "/api/users", "sess_forged", nil)
	assert.Equal(s.T(), http.StatusUnauthorized, resp.Code)
}

func (s *APISuite) TestCreateUserRequiresPermission() {
	body := map[string]string{
		"email":      "new@alpha.test",
		"password":   "memberpass1",
		"first_name": "New",
		"last_name":  "User",
		"role":       "analyst",
	}

	resp := s.request(http.MethodPost, "/api/users", s.analystToken, body)
	assert.Equal(s.T(), http.StatusForbidden, resp.Code)

	resp = s.request(http.MethodPost, "/api/users", s.creatorToken, body)
	assert.Equal(s.T(), http.StatusForbidden, resp.Code)

	resp = s.request(http.MethodPost, "/api/users", s.ownerToken, body)
	assert.Equal(s.T(), http.StatusCreated, resp.Code)
}

func (s *APISuite) TestCreateUserDuplicateEmail() {
	resp := s.request(http.MethodPost, "/api/users", s.ownerToken, map[string]string{
		"email":      "analyst@alpha.test",
		"password":   "memberpass1",
		"first_name": "Dup",
		"last_name":  "User",
		"role":       "analyst",
	})
	assert.Equal(s.T(), http.StatusConflict, resp.Code)
}

func (s *APISuite) TestCreateUserInvalidRole() {
	resp := s.request(http.MethodPost, "/api/users", s.ownerToken, map[string]string{
		"email":      "new@alpha.test",
		"password":   "memberpass1",
		"first_name": "New",
		"last_name":  "User",
		"role":       "superuser",
	})
	assert.Equal(s.T(), http.StatusBadRequest, resp.Code)
}

func (s *APISuite) TestListUsers() {
	resp := s.request(http.MethodGet, "/api/users", s.ownerToken, nil)
	require.Equal(s.T(), http.StatusOK, resp.Code)

	var out struct {
		Users []models.User `json:"users"`
	}
	require.NoError(s.T(), json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Len(s.T(), out.Users, 3)
	for _, u := range out.Users {
		assert.Equal(s.T(), s.accountID, u.AccountID)
	}

	resp = s.request(http.MethodGet, "/api/users", s.creatorToken, nil)
	assert.Equal(s.T(), http.StatusForbidden, resp.Code)
}

func (s *APISuite) TestSearchPagination() {
	s.seedLogs(97, time.Now().UTC())

	// Three login entries from setup may still be in flight; pin the search to
	// the seeded action so the totals are deterministic.
	first := s.search(s.ownerToken, "?action=order_created")
	assert.Equal(s.T(), 1, first.Pagination.Page)
	assert.Equal(s.T(), 50, first.Pagination.PerPage)
	assert.Equal(s.T(), 97, first.Pagination.Total)
	assert.Equal(s.T(), 2, first.Pagination.Pages)
	assert.True(s.T(), first.Pagination.HasNext)
	assert.False(s.T(), first.Pagination.HasPrev)
	assert.Len(s.T(), first.AuditLogs, 50)

	second := s.search(s.ownerToken, "?action=order_created&page=2")
	assert.False(s.T(), second.Pagination.HasNext)
	assert.True(s.T(), second.Pagination.HasPrev)
	assert.Len(s.T(), second.AuditLogs, 47)

	// No overlap between pages.
	seen := make(map[string]bool)
	for _, e := range first.AuditLogs {
		seen[e.ID] = true
	}
	for _, e := range second.AuditLogs {
		assert.False(s.T(), seen[e.ID], "page 2 must not repeat page 1 entries")
	}
}

func (s *APISuite) TestSearchPerPageClamped() {
	s.seedLogs(97, time.Now().UTC())

	out := s.search(s.ownerToken, "?action=order_created&per_page=1000")
	assert.Equal(s.T(), 100, out.Pagination.PerPage)
	assert.Len(s.T(), out.AuditLogs, 97)
	assert.Equal(s.T(), 1, out.Pagination.Pages)
}

func (s *APISuite) TestSearchOrderingNewestFirst() {
	s.seedLogs(10, time.Now().UTC())

	out := s.search(s.ownerToken, "?action=order_created")
	require.Len(s.T(), out.AuditLogs, 10)
	for i := 1; i < len(out.AuditLogs); i++ {
		assert.False(s.T(), out.AuditLogs[i].CreatedAt.After(out.AuditLogs[i-1].CreatedAt))
	}
	assert.Equal(s.T(), "seed-0009", out.AuditLogs[0].ID)
}

func (s *APISuite) TestSearchDateRange() {
	base := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	inside := &models.AuditLog{
		ID: "in-range", UserID: &s.ownerID, AccountID: s.accountID,
		Action: "order_created", ResourceType: "order", CreatedAt: base,
	}
	outside := &models.AuditLog{
		ID: "out-of-range", UserID: &s.ownerID, AccountID: s.accountID,
		Action: "order_created", ResourceType: "order", CreatedAt: base.AddDate(0, 0, 2),
	}
	require.NoError(s.T(), s.store.InsertAuditLog(context.Background(), inside))
	require.NoError(s.T(), s.store.InsertAuditLog(context.Background(), outside))

	// A single-day range includes entries from anywhere in that day.
	out := s.search(s.ownerToken, "?start_date=2024-05-02&end_date=2024-05-02")
	require.Len(s.T(), out.AuditLogs, 1)
	assert.Equal(s.T(), "in-range", out.AuditLogs[0].ID)
}

func (s *APISuite) TestSearchInvalidParams() {
	cases := []string{
		"?start_date=2024-05-02&end_date=2024-05-01",
		"?page=abc",
		"?page=-1",
		"?per_page=0",
		"?start_date=tomorrow",
		"?user_id=nobody",
	}
	for _, query := range cases {
		resp := s.request(http.MethodGet, "/api/audit-logs"+query, s.ownerToken, nil)
		assert.Equal(s.T(), http.StatusBadRequest, resp.Code, query)
	}
}

func (s *APISuite) TestSearchForbiddenRoles() {
	resp := s.request(http.MethodGet, "/api/audit-logs", s.analystToken, nil)
	assert.Equal(s.T(), http.StatusForbidden, resp.Code)

	resp = s.request(http.MethodGet, "/api/audit-logs", s.creatorToken, nil)
	assert.Equal(s.T(), http.StatusForbidden, resp.Code)
}

func (s *APISuite) TestSearchUserFilter() {
	s.seedLogs(5, time.Now().UTC())

	out := s.search(s.ownerToken, "?action=order_created&user_id="+s.ownerID)
	assert.Equal(s.T(), 5, out.Pagination.Total)

	// A well-formed id with no entries matches nothing rather than erroring.
	out = s.search(s.ownerToken, "?action=order_created&user_id="+uuid.New().String())
	assert.Equal(s.T(), 0, out.Pagination.Total)
	assert.Empty(s.T(), out.AuditLogs)
}

func (s *APISuite) TestSearchIncludesUserSummary() {
	s.seedLogs(1, time.Now().UTC())

	out := s.search(s.ownerToken, "?action=order_created")
	require.Len(s.T(), out.AuditLogs, 1)
	require.NotNil(s.T(), out.AuditLogs[0].User)
	assert.Equal(s.T(), "owner@alpha.test", out.AuditLogs[0].User.Email)
}

func (s *APISuite) TestUserCreationIsAudited() {
	resp := s.request(http.MethodPost, "/api/users", s.ownerToken, map[string]string{
		"email":      "audited@alpha.test",
		"password":   "memberpass1",
		"first_name": "Aud",
		"last_name":  "Ited",
		"role":       "analyst",
	})
	require.Equal(s.T(), http.StatusCreated, resp.Code)

	require.Eventually(s.T(), func() bool {
		page, _ := models.NewPage(1, 100)
		entries, _, err := s.store.SearchAuditLogs(context.Background(), s.accountID,
			models.AuditLogFilter{Action: "user_created"}, page)
		if err != nil {
			return false
		}
		for _, e := range entries {
			if e.UserID != nil && *e.UserID == s.ownerID {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}
