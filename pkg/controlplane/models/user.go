package models

import (
	"fmt"
	"time"

	"github.com/quillchat/quill/pkg/chat/protocol"
)

// Sex values stored on a user profile. The wire protocol transports
// them as plain integers.
const (
	SexUnspecified = 0
	SexMale        = 1
	SexFemale      = 2
)

// User is a chat account. The numeric UID is the identity every wire
// message and cache key refers to; Name is the human-facing unique
// handle used by search.
type User struct {
	UID       int64     `gorm:"primaryKey;autoIncrement" json:"uid"`
	Name      string    `gorm:"uniqueIndex;not null;size:255" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	Passwd    string    `gorm:"not null" json:"-"`
	Nick      string    `gorm:"size:255" json:"nick"`
	Desc      string    `gorm:"size:512" json:"desc"`
	Sex       int       `gorm:"default:0" json:"sex"`
	Icon      string    `gorm:"size:255" json:"icon"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// Validate checks if the user has valid configuration.
func (u *User) Validate() error {
	if u.Name == "" {
		return fmt.Errorf("name is required")
	}
	if u.Sex < SexUnspecified || u.Sex > SexFemale {
		return fmt.Errorf("invalid sex value %d", u.Sex)
	}
	return nil
}

// Profile converts the record to its wire representation.
func (u *User) Profile() *protocol.UserProfile {
	return &protocol.UserProfile{
		UID:    u.UID,
		Name:   u.Name,
		Passwd: u.Passwd,
		Email:  u.Email,
		Nick:   u.Nick,
		Desc:   u.Desc,
		Sex:    u.Sex,
		Icon:   u.Icon,
	}
}

// Summary converts the record to the trimmed profile used in
// authorization replies.
func (u *User) Summary() *protocol.UserSummary {
	return &protocol.UserSummary{
		Name: u.Name,
		Nick: u.Nick,
		Icon: u.Icon,
		Sex:  u.Sex,
		UID:  u.UID,
	}
}
