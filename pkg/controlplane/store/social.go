package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quillchat/quill/pkg/controlplane/models"
)

// ============================================
// FRIEND GRAPH OPERATIONS
// ============================================

// DefaultApplyPageSize is the page size the login reply uses for
// pending applications.
const DefaultApplyPageSize = 10

func (s *GORMStore) CreateFriendApply(ctx context.Context, fromUID, toUID int64) error {
	apply := &models.FriendApply{FromUID: fromUID, ToUID: toUID}
	// Reapplying keeps the existing row, including its status.
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(apply).Error
}

func (s *GORMStore) ListFriendApplies(ctx context.Context, toUID int64, offset, limit int) ([]models.ApplyRecord, error) {
	if limit <= 0 {
		limit = DefaultApplyPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var records []models.ApplyRecord
	err := s.db.WithContext(ctx).
		Table("friend_applies").
		Select(`users.uid, users.name, users.nick, users."desc", users.sex, users.icon, friend_applies.status`).
		Joins("JOIN users ON users.uid = friend_applies.from_uid").
		Where("friend_applies.to_uid = ?", toUID).
		Order("friend_applies.id ASC").
		Offset(offset).
		Limit(limit).
		Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GORMStore) AuthorizeFriend(ctx context.Context, applicantUID, authorizerUID int64, back string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A vanished apply row is not an error: authorization still
		// establishes the friendship.
		if err := tx.Model(&models.FriendApply{}).
			Where("from_uid = ? AND to_uid = ?", applicantUID, authorizerUID).
			Update("status", models.ApplyAuthorized).Error; err != nil {
			return err
		}

		edges := []models.Friendship{
			{SelfUID: authorizerUID, FriendUID: applicantUID, Back: back},
			{SelfUID: applicantUID, FriendUID: authorizerUID},
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edges).Error
	})
}

func (s *GORMStore) ListFriends(ctx context.Context, uid int64) ([]models.FriendRecord, error) {
	var records []models.FriendRecord
	err := s.db.WithContext(ctx).
		Table("friendships").
		// "desc" is double-quoted because it is a reserved word in both
		// SQLite and PostgreSQL.
		Select(`users.uid, users.name, users.nick, users."desc", users.sex, users.icon, friendships.back`).
		Joins("JOIN users ON users.uid = friendships.friend_uid").
		Where("friendships.self_uid = ?", uid).
		Order("friendships.id ASC").
		Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
