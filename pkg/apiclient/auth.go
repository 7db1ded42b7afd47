package apiclient

import (
	"time"
)

// LoginRequest represents a login request.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Identity is the authenticated admin identity.
type Identity struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// TokenResponse represents the response from login/refresh endpoints.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"` // seconds
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// ExpiresInDuration returns ExpiresIn as a time.Duration.
func (t *TokenResponse) ExpiresInDuration() time.Duration {
	return time.Duration(t.ExpiresIn) * time.Second
}

// Login authenticates with the server and returns tokens.
func (c *Client) Login(username, password string) (*TokenResponse, error) {
	req := LoginRequest{
		Username: username,
		Password: password,
	}

	return createResource[TokenResponse](c, "/api/v1/auth/login", req)
}

// RefreshToken refreshes the access token using the refresh token.
func (c *Client) RefreshToken(refreshToken string) (*TokenResponse, error) {
	req := struct {
		RefreshToken string `json:"refresh_token"`
	}{
		RefreshToken: refreshToken,
	}

	return createResource[TokenResponse](c, "/api/v1/auth/refresh", req)
}

// GetCurrentIdentity returns the identity of the authenticated admin.
func (c *Client) GetCurrentIdentity() (*Identity, error) {
	return getResource[Identity](c, "/api/v1/auth/me")
}
