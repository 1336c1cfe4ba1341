package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/lending-console/internal/auth"
	"github.com/hongminglow/lending-console/internal/http/respond"
	"github.com/hongminglow/lending-console/internal/models"
	"github.com/hongminglow/lending-console/internal/models/dto"
	"github.com/hongminglow/lending-console/internal/storage"
)

// AuthHandler owns register/login endpoints.
type AuthHandler struct {
	store   storage.UserStore
	tokens  *auth.TokenManager
	limiter func(http.Handler) http.Handler
	log     logrus.FieldLogger
}

// NewAuthHandler constructs the handler. limiter may be nil.
func NewAuthHandler(store storage.UserStore, tokens *auth.TokenManager, limiter func(http.Handler) http.Handler, log logrus.FieldLogger) *AuthHandler {
	if limiter == nil {
		limiter = func(next http.Handler) http.Handler { return next }
	}
	return &AuthHandler{store: store, tokens: tokens, limiter: limiter, log: log}
}

// Register attaches auth routes to the router.
func (h *AuthHandler) Register(r chi.Router) {
	r.With(h.limiter).Post("/auth/register", h.handleRegister)
	r.With(h.limiter).Post("/auth/login", h.handleLogin)
}

// authEnvelope keeps the envelope fields next to the token and user the
// console reads from the top level.
type authEnvelope struct {
	respond.Envelope
	dto.AuthResponse
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if req.Role == "" {
		req.Role = models.RoleViewer
	}
	if err := validateRegistration(req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Role:         req.Role,
		PasswordHash: passwordHash,
	}
	created, err := h.store.CreateUser(r.Context(), user)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			respond.Error(w, http.StatusConflict, "user already exists")
		default:
			h.log.WithError(err).Error("create user")
			respond.Error(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	h.issue(w, http.StatusCreated, "User created successfully", created)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || strings.TrimSpace(req.Password) == "" {
		respond.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}
	user, err := h.store.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.WithError(err).WithField("email", email).Error("login: fetch user")
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	h.issue(w, http.StatusOK, "login successful", user)
}

func (h *AuthHandler) issue(w http.ResponseWriter, status int, message string, user models.User) {
	token, err := h.tokens.Generate(user)
	if err != nil {
		h.log.WithError(err).Error("generate token")
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respond.Write(w, status, authEnvelope{
		Envelope:     respond.Envelope{Code: status, Message: message},
		AuthResponse: dto.AuthResponse{Token: token, User: user},
	})
}

func validateRegistration(req dto.RegisterRequest) error {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return errors.New("name and email are required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		return errors.New("email is not valid")
	}
	if len(strings.TrimSpace(req.Password)) < 8 || !utf8.ValidString(req.Password) {
		return errors.New("password must be at least 8 characters")
	}
	if !models.ValidRole(req.Role) {
		return errors.New("role must be admin or viewer")
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
