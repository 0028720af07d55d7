package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"audittrail-backend/internal/audit"
	"audittrail-backend/internal/auth"
	"audittrail-backend/internal/httpx"
	"audittrail-backend/internal/models"
	"audittrail-backend/internal/policy"
	"audittrail-backend/internal/storage"
)

const searchTimeout = 5 * time.Second

type Handler struct {
	store    storage.Store
	recorder *audit.Recorder
	policy   *policy.Table
}

func New(store storage.Store, recorder *audit.Recorder, table *policy.Table) *Handler {
	return &Handler{
		store:    store,
		recorder: recorder,
		policy:   table,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router, ah *auth.Handler, sessions auth.SessionStore) {
	r.Get("/", h.Index)
	r.Get("/healthz", h.Health)

	r.Post("/api/auth/login", ah.Login)
	r.Post("/api/accounts", h.CreateAccount)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(sessions))

		r.Post("/api/auth/logout", ah.Logout)
		r.Get("/api/accounts/{id}", h.GetAccount)
		r.Post("/api/users", h.CreateUser)
		r.Get("/api/users", h.ListUsers)
		r.Get("/api/audit-logs", h.SearchAuditLogs)
	})
}

// Index describes the API surface.
func (h *Handler) Index(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Audit Trail API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"accounts":   "/api/accounts",
			"users":      "/api/users",
			"audit_logs": "/api/audit-logs",
			"auth":       "/api/auth",
		},
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		httpx.Error(w, http.StatusServiceUnavailable, httpx.KindInternal, "storage unavailable")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createAccountRequest struct {
	Name           string `json:"name"`
	Domain         string `json:"domain"`
	OwnerEmail     string `json:"owner_email"`
	OwnerPassword  string `json:"owner_password"`
	OwnerFirstName string `json:"owner_first_name"`
	OwnerLastName  string `json:"owner_last_name"`
}

// CreateAccount registers a tenant and its owner atomically
// @Summary Create account
// @Description Creates an account and its owner user in one transaction
// @Tags accounts
// @Accept json
// @Produce json
// @Param account body createAccountRequest true "Account and owner details"
// @Success 201 {object} map[string]interface{} "Account and owner"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 409 {object} map[string]interface{} "Domain or email conflict"
// @Router /api/accounts [post]
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.KindValidation, "invalid request body")
		return
	}

	required := []struct{ field, value string }{
		{"name", req.Name},
		{"domain", req.Domain},
		{"owner_email", req.OwnerEmail},
		{"owner_password", req.OwnerPassword},
		{"owner_first_name", req.OwnerFirstName},
		{"owner_last_name", req.OwnerLastName},
	}
	for _, f := range required {
		if f.value == "" {
			httpx.Error(w, http.StatusBadRequest, httpx.KindValidation, f.field+": required")
			return
		}
	}
	if err := models.ValidateEmail(req.OwnerEmail); err != nil {
		httpx.ErrorFrom(w, err)
		return
	}
	if err := models.ValidatePassword(req.OwnerPassword); err != nil {
		httpx.ErrorFrom(w, err)
		return
	}

	hash, err := auth.HashPassword(req.OwnerPassword)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, httpx.KindInternal, "internal error")
		return
	}

	account := &models.Account{
		ID:     uuid.New().String(),
		Name:   req.Name,
		Domain: req.Domain,
	}
	owner := &models.User{
		ID:           uuid.New().String(),
		AccountID:    account.ID,
		Email:        models.NormalizeEmail(req.OwnerEmail),
		PasswordHash: hash,
		FirstName:    req.OwnerFirstName,
		LastName:     req.OwnerLastName,
		Role:         models.RoleOwner,
		IsActive:     true,
	}

	if err := h.store.CreateAccountWithOwner(r.Context(), account, owner); err != nil {
		httpx.ErrorFrom(w, err)
		return
	}

	h.recorder.Record(models.AuditLog{
		UserID:       &owner.ID,
		AccountID:    account.ID,
		Action:       "account_created",
		ResourceType: "account",
		ResourceID:   account.ID,
		Details:      fmt.Sprintf("Account %s created", account.Name),
		IPAddress:    httpx.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})

	httpx.JSON(w, http.StatusCreated, map[string]any{
		"account": account,
		"owner":   owner.Summary(),
	})
}

// GetAccount returns the actor's own account
// @Summary Get account
// @Description Returns account details; other tenants' accounts read as not found
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} map[string]interface{} "Account"
// @Failure 401 {object} map[string]interface{} "Unauthenticated"
// @Failure 404 {object} map[string]interface{} "Not found"
// @Security BearerAuth
// @Router /api/accounts/{id} [get]
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.Unauthenticated(w)
		return
	}
	if !h.policy.Allowed(actor.Role, policy.ActionViewAccount) {
		httpx.Forbidden(w)
		return
	}

	id := chi.URLParam(r, "id")
	// Cross-account reads report not found rather than forbidden so an id
	// probe cannot confirm another tenant exists.
	if id != actor.AccountID {
		httpx.Error(w, http.StatusNotFound, httpx.KindNotFound, "account not found")
		return
	}

	account, err := h.store.GetAccount(r.Context(), id)
	if err != nil {
		httpx.ErrorFrom(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"account": account})
}

type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// CreateUser adds a user to the actor's account
// @Summary Create user
// @Description Creates a user in the actor's account; requires the create_user permission
// @Tags users
// @Accept json
// @Produce json
// @Param user body createUserRequest true "User details"
// @Success 201 {object} map[string]interface{} "Created user"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 403 {object} map[string]interface{} "Insufficient role"
// @Failure 409 {object} map[string]interface{} "Email conflict"
// @Security BearerAuth
// @Router /api/users [post]
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.Unauthenticated(w)
		return
	}
	if !h.policy.Allowed(actor.Role, policy.ActionCreateUser) {
		httpx.Forbidden(w)
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.KindValidation, "invalid request body")
		return
	}

	required := []struct{ field, value string }{
		{"email", req.Email},
		{"password", req.Password},
		{"first_name", req.FirstName},
		{"last_name", req.LastName},
		{"role", req.Role},
	}
	for _, f := range required {
		if f.value == "" {
			httpx.Error(w, http.StatusBadRequest, httpx.KindValidation, f.field+": required")
			return
		}
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		httpx.ErrorFrom(w, err)
		return
	}
	if err := models.ValidateEmail(req.Email); err != nil {
		httpx.ErrorFrom(w, err)
		return
	}
	if err := models.ValidatePassword(req.Password); err != nil {
		httpx.ErrorFrom(w, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, httpx.KindInternal, "internal error")
		return
	}

	user := &models.User{
		ID:           uuid.New().String(),
		AccountID:    actor.AccountID,
		Email:        models.NormalizeEmail(req.Email),
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		IsActive:     true,
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		httpx.ErrorFrom(w, err)
		return
	}

	h.recorder.Record(models.AuditLog{
		UserID:       &actor.UserID,
		AccountID:    actor.AccountID,
		Action:       "user_created",
		ResourceType: "user",
		ResourceID:   user.ID,
		Details:      fmt.Sprintf("User %s created with role %s", user.Email, user.Role),
		IPAddress:    httpx.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})

	httpx.JSON(w, http.StatusCreated, map[string]any{"user": user})
}

// ListUsers lists the actor's account members
// @Summary List users
// @Description Lists users scoped to the actor's account; requires the view_users permission
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{} "Users"
// @Failure 401 {object} map[string]interface{} "Unauthenticated"
// @Failure 403 {object} map[string]interface{} "Insufficient role"
// @Security BearerAuth
// @Router /api/users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.Unauthenticated(w)
		return
	}
	if !h.policy.Allowed(actor.Role, policy.ActionViewUsers) {
		httpx.Forbidden(w)
		return
	}

	users, err := h.store.ListUsers(r.Context(), actor.AccountID)
	if err != nil {
		httpx.ErrorFrom(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"users": users})
}

// SearchAuditLogs filters and paginates the account's audit trail
// @Summary Search audit logs
// @Description Filtered, paginated audit log search scoped to the actor's account
// @Tags audit-logs
// @Produce json
// @Param page query int false "1-based page" default(1)
// @Param per_page query int false "Page size, capped at 100" default(50)
// @Param user_id query string false "Filter by acting user"
// @Param action query string false "Filter by exact action"
// @Param resource_type query string false "Filter by exact resource type"
// @Param start_date query string false "Inclusive lower bound (ISO-8601)"
// @Param end_date query string false "Inclusive upper bound (ISO-8601)"
// @Success 200 {object} map[string]interface{} "Entries and pagination metadata"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 401 {object} map[string]interface{} "Unauthenticated"
// @Failure 403 {object} map[string]interface{} "Insufficient role"
// @Security BearerAuth
// @Router /api/audit-logs [get]
func (h *Handler) SearchAuditLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.Unauthenticated(w)
		return
	}
	if !h.policy.Allowed(actor.Role, policy.ActionViewAuditLogs) {
		httpx.Forbidden(w)
		return
	}

	filter, page, err := parseSearchQuery(r)
	if err != nil {
		httpx.ErrorFrom(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), searchTimeout)
	defer cancel()

	entries, total, err := h.store.SearchAuditLogs(ctx, actor.AccountID, filter, page)
	if err != nil {
		httpx.ErrorFrom(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"audit_logs": entries,
		"pagination": models.NewPagination(page, total),
	})
}
