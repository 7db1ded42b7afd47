package models

import "time"

// Apply status values.
const (
	// ApplyPending marks an application the recipient has not acted on.
	ApplyPending = 0
	// ApplyAuthorized marks an application the recipient accepted.
	ApplyAuthorized = 1
)

// FriendApply is a pending or settled friend application. One row per
// (applicant, recipient) pair; re-applying refreshes nothing.
type FriendApply struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FromUID   int64     `gorm:"uniqueIndex:idx_apply_pair;not null;index" json:"from_uid"`
	ToUID     int64     `gorm:"uniqueIndex:idx_apply_pair;not null;index" json:"to_uid"`
	Status    int       `gorm:"default:0" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for FriendApply.
func (FriendApply) TableName() string {
	return "friend_applies"
}

// Friendship is one directed edge of a confirmed friend pair. Back is
// the remark the owning side gave the friend, empty when none was set.
// Authorization always writes both directions.
type Friendship struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SelfUID   int64     `gorm:"uniqueIndex:idx_friend_pair;not null;index" json:"self_uid"`
	FriendUID int64     `gorm:"uniqueIndex:idx_friend_pair;not null" json:"friend_uid"`
	Back      string    `gorm:"size:255" json:"back"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Friendship.
func (Friendship) TableName() string {
	return "friendships"
}

// ApplyRecord is a friend application joined with the applicant's
// profile fields, as the login reply presents it.
type ApplyRecord struct {
	UID    int64  `json:"uid"`
	Name   string `json:"name"`
	Nick   string `json:"nick"`
	Desc   string `json:"desc"`
	Sex    int    `json:"sex"`
	Icon   string `json:"icon"`
	Status int    `json:"status"`
}

// FriendRecord is a friendship edge joined with the friend's profile
// fields, as the login reply presents it.
type FriendRecord struct {
	UID  int64  `json:"uid"`
	Name string `json:"name"`
	Nick string `json:"nick"`
	Desc string `json:"desc"`
	Sex  int    `json:"sex"`
	Icon string `json:"icon"`
	Back string `json:"back"`
}
