package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/quillchat/quill/internal/controlplane/api/auth"
	"github.com/quillchat/quill/internal/controlplane/api/middleware"
	"github.com/quillchat/quill/pkg/controlplane/models"
)

// AdminCredentials is the single admin account the API authenticates
// against. The password is held as a bcrypt hash only; the plaintext
// never outlives server construction.
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

// Verify checks a username/password pair against the stored credentials.
func (c *AdminCredentials) Verify(username, password string) bool {
	if username != c.Username {
		return false
	}
	return models.VerifyPassword(password, c.PasswordHash)
}

// AuthHandler handles authentication-related API endpoints.
type AuthHandler struct {
	creds      *AdminCredentials
	jwtService *auth.JWTService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(creds *AdminCredentials, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		creds:      creds,
		jwtService: jwtService,
	}
}

// LoginRequest is the request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the response body for POST /api/v1/auth/login.
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         UserResponse `json:"user"`
}

// UserResponse is the authenticated identity returned by auth endpoints.
type UserResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// RefreshRequest is the request body for POST /api/v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login handles POST /api/v1/auth/login.
// Authenticates admin credentials and returns a JWT token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" {
		BadRequest(w, "Username and password are required")
		return
	}

	if !h.creds.Verify(req.Username, req.Password) {
		Unauthorized(w, "Invalid username or password")
		return
	}

	tokenPair, err := h.jwtService.GenerateTokenPair(req.Username)
	if err != nil {
		InternalServerError(w, "Failed to generate token")
		return
	}

	response := LoginResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		TokenType:    tokenPair.TokenType,
		ExpiresIn:    tokenPair.ExpiresIn,
		ExpiresAt:    tokenPair.ExpiresAt,
		User:         UserResponse{Username: req.Username, Role: "admin"},
	}

	WriteJSONOK(w, response)
}

// Refresh handles POST /api/v1/auth/refresh.
// Returns a new token pair using a valid refresh token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.RefreshToken == "" {
		BadRequest(w, "Refresh token is required")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			Unauthorized(w, "Refresh token has expired")
			return
		}
		Unauthorized(w, "Invalid refresh token")
		return
	}

	// The admin username can be changed between restarts. A refresh
	// token minted for a previous identity stops working then.
	if claims.Username != h.creds.Username {
		Unauthorized(w, "Unknown token subject")
		return
	}

	tokenPair, err := h.jwtService.GenerateTokenPair(claims.Username)
	if err != nil {
		InternalServerError(w, "Failed to generate token")
		return
	}

	response := LoginResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		TokenType:    tokenPair.TokenType,
		ExpiresIn:    tokenPair.ExpiresIn,
		ExpiresAt:    tokenPair.ExpiresAt,
		User:         UserResponse{Username: claims.Username, Role: claims.Role},
	}

	WriteJSONOK(w, response)
}

// Me handles GET /api/v1/auth/me.
// Returns the current authenticated identity.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	WriteJSONOK(w, UserResponse{Username: claims.Username, Role: claims.Role})
}
