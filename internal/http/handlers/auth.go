package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/therapy-console/internal/auth"
	"github.com/hongminglow/therapy-console/internal/http/respond"
	"github.com/hongminglow/therapy-console/internal/middleware"
	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/models/dto"
	"github.com/hongminglow/therapy-console/internal/storage"
)

// ErrTokenRevoked is returned by Verify for tokens that were logged out.
var ErrTokenRevoked = errors.New("token revoked")

// AuthHandler owns register/login/getInfo/logout endpoints.
type AuthHandler struct {
	store  storage.UserStore
	tokens *auth.TokenManager
	logger *slog.Logger

	mu      sync.Mutex
	revoked map[string]time.Time // raw token -> expiry
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(store storage.UserStore, tokens *auth.TokenManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		store:   store,
		tokens:  tokens,
		logger:  logger.With("handler", "auth"),
		revoked: map[string]time.Time{},
	}
}

// Routes attaches the public auth routes.
func (h *AuthHandler) Routes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
}

// ProtectedRoutes attaches routes that need a verified token.
func (h *AuthHandler) ProtectedRoutes(r chi.Router) {
	r.Get("/getInfo", h.handleGetInfo)
	r.Post("/logout", h.handleLogout)
}

// Verify implements middleware.TokenVerifier.
func (h *AuthHandler) Verify(_ context.Context, raw string) (auth.Claims, error) {
	claims, err := h.tokens.Parse(raw)
	if err != nil {
		return auth.Claims{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.revoked[raw]; ok {
		return auth.Claims{}, ErrTokenRevoked
	}
	return claims, nil
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateCredentials(req.UserName, req.Password); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := models.User{
		UserName:     strings.TrimSpace(req.UserName),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         models.Viewer,
		PasswordHash: passwordHash,
	}
	created, err := h.store.CreateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusConflict, "user already exists")
			return
		}
		h.logger.Error("create user failed", "username", user.UserName, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	h.logger.Info("user registered", "user_id", created.ID, "username", created.UserName)
	respond.OK(w, "User created successfully", created)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserName) == "" || strings.TrimSpace(req.Password) == "" {
		respond.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}
	user, err := h.store.FindByUsername(r.Context(), strings.TrimSpace(req.UserName))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.logger.Info("login failed: unknown user", "username", req.UserName)
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("login failed: fetch user", "username", req.UserName, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := h.tokens.Generate(user, []string{user.Role})
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respond.Fields(w, "login successful", map[string]any{"token": token})
}

func (h *AuthHandler) handleGetInfo(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing claims")
		return
	}
	id, err := claims.UserID()
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "malformed subject")
		return
	}
	user, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, "user no longer exists")
			return
		}
		storeError(w, h.logger, "get user", err)
		return
	}
	role, err := h.store.FindRole(r.Context(), user.Role)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		storeError(w, h.logger, "get role", err)
		return
	}

	info := models.UserInfo{User: user, Roles: []string{user.Role}, Permissions: role.Permissions}
	if info.Permissions == nil {
		info.Permissions = []string{}
	}
	respond.Fields(w, "success", map[string]any{
		"user":        info.User,
		"roles":       info.Roles,
		"permissions": info.Permissions,
	})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw, _ := middleware.BearerToken(r)
	claims, _ := middleware.ClaimsFrom(r.Context())

	expiry := time.Now().Add(time.Hour)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	h.mu.Lock()
	h.revoked[raw] = expiry
	now := time.Now()
	for tok, exp := range h.revoked {
		if exp.Before(now) {
			delete(h.revoked, tok)
		}
	}
	h.mu.Unlock()

	h.logger.Info("user logged out", "username", claims.UserName)
	respond.OK(w, "logout successful", nil)
}

func validateCredentials(username, password string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(username)); n < 2 || n > 20 {
		return errors.New("username must be between 2 and 20 characters")
	}
	if len(strings.TrimSpace(password)) < 8 || !utf8.ValidString(password) {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// HashPassword is used to seed accounts outside the register endpoint.
func HashPassword(password string) (string, error) {
	return hashPassword(password)
}
