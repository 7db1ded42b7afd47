package models

import "context"

// UserStore provides account operations for the chat plane and the
// admin API. Thread-safe implementations are required.
type UserStore interface {
	// GetUserByUID returns a user by numeric uid.
	// Returns ErrUserNotFound if no user has this uid.
	GetUserByUID(ctx context.Context, uid int64) (*User, error)

	// GetUserByName returns a user by unique handle.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetUserByName(ctx context.Context, name string) (*User, error)

	// CreateUser inserts a new account and fills in its generated uid.
	// Returns ErrDuplicateUser when the name is taken.
	CreateUser(ctx context.Context, user *User) error

	// ListUsers returns all accounts ordered by uid.
	ListUsers(ctx context.Context) ([]*User, error)

	// CountUsers returns the number of accounts.
	CountUsers(ctx context.Context) (int64, error)
}

// SocialStore provides the friend graph operations chat handlers need.
type SocialStore interface {
	// CreateFriendApply records a pending application from fromUID to
	// toUID. Reapplying is a no-op, never an error.
	CreateFriendApply(ctx context.Context, fromUID, toUID int64) error

	// ListFriendApplies returns applications addressed to toUID joined
	// with applicant profiles, oldest first.
	ListFriendApplies(ctx context.Context, toUID int64, offset, limit int) ([]ApplyRecord, error)

	// AuthorizeFriend settles the applicant's pending application and
	// writes both friendship edges. The authorizer's edge carries back
	// as the remark for the applicant.
	AuthorizeFriend(ctx context.Context, applicantUID, authorizerUID int64, back string) error

	// ListFriends returns uid's confirmed friends with their profiles.
	ListFriends(ctx context.Context, uid int64) ([]FriendRecord, error)
}

// Store is the full persistence surface of a chat node.
type Store interface {
	UserStore
	SocialStore

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}
