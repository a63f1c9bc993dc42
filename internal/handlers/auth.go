package handlers

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/assignment-tracker/apiserver/internal/services"
	"github.com/assignment-tracker/apiserver/internal/store"
	"github.com/assignment-tracker/apiserver/types"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 5

const (
	msgCredentialsRequired = "Username and password are required"
	msgInvalidCredentials  = "Invalid username or password"
)

// AuthHandler provides registration, login and current-user endpoints.
type AuthHandler struct {
	userService *services.UserService
	tokens      *TokenService
	bcryptCost  int
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens *TokenService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
		bcryptCost:  bcrypt.DefaultCost,
	}
}

// AuthRouter registers auth routes on the given router. Credential
// endpoints go through limit when it is non-nil.
func AuthRouter(
	r chi.Router,
	userService *services.UserService,
	tokens *TokenService,
	limit func(http.Handler) http.Handler,
) {
	handler := NewAuthHandler(userService, tokens)

	r.Group(func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Post("/register", handler.Register)
		r.Post("/login", handler.Login)
	})
	r.With(RequireAuth(tokens)).Get("/me", handler.Me)
}

// RequireAuth rejects requests without a valid bearer token and injects
// the token's identity into the request context.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, "Access token required")
				return
			}

			identity, err := tokens.Verify(tokenString)
			if err != nil {
				writeError(w, http.StatusForbidden, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgCredentialsRequired)
		return
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "Password must be at least 5 characters long")
		return
	}

	if _, err := h.userService.GetByUsername(r.Context(), req.Username); err == nil {
		writeError(w, http.StatusBadRequest, "Username already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeInternal(w, "Registration failed", err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		writeInternal(w, "Registration failed", err)
		return
	}

	user, err := h.userService.Create(r.Context(), types.User{
		Username:     req.Username,
		PasswordHash: string(hashed),
	})
	if err != nil {
		// The unique index catches registrations racing past the lookup above.
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "Username already exists")
			return
		}
		writeInternal(w, "Registration failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		Message:  "User registered successfully",
		UserID:   user.ID,
		Username: user.Username,
	})
}

// Login verifies credentials and returns a signed token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgCredentialsRequired)
		return
	}

	user, err := h.userService.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, msgInvalidCredentials)
			return
		}
		writeInternal(w, "Login failed", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidCredentials)
		return
	}

	token, err := h.tokens.Issue(types.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		writeInternal(w, "Login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message: "Login successful",
		Token:   token,
		User:    LoginUser{ID: user.ID, Username: user.Username},
	})
}

// Me returns the current authenticated user without its password hash.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}

	user, err := h.userService.GetByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeInternal(w, "Failed to fetch user", err)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{User: user})
}

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type LoginUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type LoginResponse struct {
	Message string    `json:"message"`
	Token   string    `json:"token"`
	User    LoginUser `json:"user"`
}

type MeResponse struct {
	User types.User `json:"user"`
}
