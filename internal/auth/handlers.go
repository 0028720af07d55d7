package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"audittrail-backend/internal/audit"
	"audittrail-backend/internal/httpx"
	"audittrail-backend/internal/models"
	"audittrail-backend/internal/storage"
)

type Handler struct {
	store    storage.Store
	sessions SessionStore
	recorder *audit.Recorder
	ttl      time.Duration
}

func NewHandler(store storage.Store, sessions SessionStore, recorder *audit.Recorder, ttl time.Duration) *Handler {
	return &Handler{
		store:    store,
		sessions: sessions,
		recorder: recorder,
		ttl:      ttl,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Burned for unknown emails so the failure path costs a bcrypt compare either
// way; the response must not reveal whether the email exists.
var unknownUserHash = func() string {
	hash, _ := HashPassword("not-a-real-password")
	return hash
}()

// Login authenticates a user and opens a session
// @Summary User login
// @Description Verifies email and password, issues an opaque session token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "Login credentials"
// @Success 200 {object} map[string]interface{} "Session token and user summary"
// @Failure 400 {object} map[string]interface{} "Missing credentials"
// @Failure 401 {object} map[string]interface{} "Invalid credentials"
// @Router /api/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.KindValidation, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.Error(w, http.StatusBadRequest, httpx.KindValidation, "email and password required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		CheckPassword(unknownUserHash, req.Password)
		httpx.Error(w, http.StatusUnauthorized, httpx.KindUnauthenticated, "invalid credentials")
		return
	}

	if !CheckPassword(user.PasswordHash, req.Password) || !user.IsActive {
		httpx.Error(w, http.StatusUnauthorized, httpx.KindUnauthenticated, "invalid credentials")
		return
	}

	token, err := NewToken()
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, httpx.KindInternal, "failed to create session")
		return
	}

	session := Session{
		UserID:    user.ID,
		AccountID: user.AccountID,
		Email:     user.Email,
		Role:      user.Role,
		ExpiresAt: time.Now().Add(h.ttl),
	}
	if err := h.sessions.Save(r.Context(), token, session, h.ttl); err != nil {
		httpx.Error(w, http.StatusInternalServerError, httpx.KindInternal, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.recorder.Record(models.AuditLog{
		UserID:       &user.ID,
		AccountID:    user.AccountID,
		Action:       "user_login",
		ResourceType: "user",
		ResourceID:   user.ID,
		Details:      "User logged in successfully",
		IPAddress:    httpx.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})

	httpx.JSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":         user.ID,
			"email":      user.Email,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"role":       user.Role,
			"account_id": user.AccountID,
		},
	})
}

// Logout ends the current session
// @Summary User logout
// @Description Invalidates the session token; logging out twice is not an error
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]bool "Success response"
// @Failure 401 {object} map[string]interface{} "Unauthenticated"
// @Security BearerAuth
// @Router /api/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httpx.Unauthenticated(w)
		return
	}

	if err := h.sessions.Delete(r.Context(), actor.Token); err != nil {
		httpx.Error(w, http.StatusInternalServerError, httpx.KindInternal, "failed to end session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.recorder.Record(models.AuditLog{
		UserID:       &actor.UserID,
		AccountID:    actor.AccountID,
		Action:       "user_logout",
		ResourceType: "user",
		ResourceID:   actor.UserID,
		Details:      "User logged out",
		IPAddress:    httpx.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})

	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}
