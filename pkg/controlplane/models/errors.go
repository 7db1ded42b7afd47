package models

import "errors"

// Common errors for chat account and social graph operations.
var (
	// User errors
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")

	// Friend application errors
	ErrApplyNotFound = errors.New("friend application not found")

	// Friendship errors
	ErrFriendshipExists = errors.New("friendship already exists")
)
