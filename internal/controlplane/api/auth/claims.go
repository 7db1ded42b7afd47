// Package auth provides JWT authentication for the quill admin API.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenType indicates whether a token is an access token or refresh token.
type TokenType string

const (
	// TokenTypeAccess is a short-lived token used for API authorization.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh is a long-lived token used to obtain new access tokens.
	TokenTypeRefresh TokenType = "refresh"
)

// Claims represents JWT claims for admin API authentication.
type Claims struct {
	jwt.RegisteredClaims

	// Username is the authenticated admin username.
	Username string `json:"username"`

	// Role is the token bearer's role. The admin API issues "admin" only.
	Role string `json:"role"`

	// TokenType indicates whether this is an access or refresh token.
	TokenType TokenType `json:"token_type"`
}

// IsAccessToken returns true if this is an access token.
func (c *Claims) IsAccessToken() bool {
	return c.TokenType == TokenTypeAccess
}

// IsRefreshToken returns true if this is a refresh token.
func (c *Claims) IsRefreshToken() bool {
	return c.TokenType == TokenTypeRefresh
}

// IsAdmin returns true if the token carries the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == "admin"
}
