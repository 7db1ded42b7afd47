package models

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the default cost parameter for bcrypt hashing.
// Cost 10 provides a good balance between security and performance.
const DefaultBcryptCost = 10

// Password validation errors.
var (
	// ErrInvalidCredentials is returned when credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPasswordTooShort is returned when a password is too short.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")

	// ErrPasswordTooLong is returned when a password is too long.
	// bcrypt has a maximum input length of 72 bytes.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

// Password length constraints.
const (
	// MinPasswordLength is the minimum required password length.
	MinPasswordLength = 8

	// MaxPasswordLength is the maximum allowed password length.
	// bcrypt silently truncates at 72 bytes, so we enforce this limit.
	MaxPasswordLength = 72
)

// HashPassword creates a bcrypt hash of the given password.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultBcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyPassword checks if a password matches a bcrypt hash.
func VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidatePassword checks if a password meets the requirements.
// Requirements: at least 8 characters, at most 72 characters (bcrypt limit).
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// NeedsRehash checks if a hash needs to be regenerated, which happens
// when the cost parameter has been increased since the hash was made.
func NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < DefaultBcryptCost
}

// GeneratePassword returns a random URL-safe password of the given
// byte length, suitable for seeding accounts created over the admin
// API without an explicit password.
func GeneratePassword(bytes int) (string, error) {
	if bytes <= 0 {
		bytes = 24
	}
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
